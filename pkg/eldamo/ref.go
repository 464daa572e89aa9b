package eldamo

import "strings"

// Ref is a citation of a word in one of Tolkien's writings. Source is the compound id
// "publication/page.location", e.g. "PE17/056.2410".
type Ref struct {
	linked

	Source   string   `xml:"source,attr"`
	Language Language `xml:"l,attr"`
	Verbum   string   `xml:"v,attr"`
	Mark     string   `xml:"mark,attr"`

	Examples    []*RefRel `xml:"example"`
	Changes     []*RefRel `xml:"change"`
	Corrections []*RefRel `xml:"correction"`
	Cognates    []*RefRel `xml:"cognate"`
	Derivations []*RefRel `xml:"deriv"`
	Related     []*RefRel `xml:"related"`
	Elements    []*RefRel `xml:"element"`
	Inflections []*RefRel `xml:"inflect"`
}

func (r *Ref) String() string { return "Ref{ " + r.Source + " : " + r.Verbum + " }" }

// Publication is the part of Source before the first '/'.
func (r *Ref) Publication() string {
	pub, _, _ := strings.Cut(r.Source, "/")
	return pub
}

// Page is the part of Source between '/' and the following '.'.
func (r *Ref) Page() string {
	_, rest, found := strings.Cut(r.Source, "/")
	if !found {
		rest = r.Source
	}
	page, _, _ := strings.Cut(rest, ".")
	return page
}

// Location is the part of Source after the first '.'.
func (r *Ref) Location() string {
	_, loc, found := strings.Cut(r.Source, ".")
	if !found {
		return r.Source
	}
	return loc
}

// Owner returns the word listing this reference.
func (r *Ref) Owner() (*Word, error) {
	res, err := r.resolver()
	if err != nil {
		return nil, err
	}
	return res.Owner(r)
}

// TypedRefRel pairs a detail entry with the element it was declared by.
type TypedRefRel struct {
	Kind RelKind
	Rel  *RefRel
}

// Links lists every detail entry together with its kind.
func (r *Ref) Links() []TypedRefRel {
	groups := []struct {
		kind RelKind
		rels []*RefRel
	}{
		{RelExample, r.Examples},
		{RelChange, r.Changes},
		{RelCorrection, r.Corrections},
		{RelCognate, r.Cognates},
		{RelDeriv, r.Derivations},
		{RelRelated, r.Related},
		{RelElement, r.Elements},
		{RelInflect, r.Inflections},
	}
	var out []TypedRefRel
	for _, g := range groups {
		for _, rel := range g.rels {
			if rel != nil {
				out = append(out, TypedRefRel{Kind: g.kind, Rel: rel})
			}
		}
	}
	return out
}

// Relationships lists every detail entry of the reference.
func (r *Ref) Relationships() []*RefRel {
	links := r.Links()
	out := make([]*RefRel, len(links))
	for i, l := range links {
		out[i] = l.Rel
	}
	return out
}

func (r *Ref) ChildNodes() []Node {
	var out []Node
	for _, l := range r.Links() {
		out = append(out, l.Rel)
	}
	return out
}

// RefRel is a detail entry of a reference pointing at another reference. Which optional
// fields are present depends on the element: type for example, i1 for change, i1..i3,
// rule-start and rule-example for deriv, form and variant for element and inflect.
type RefRel struct {
	linked

	Source  string `xml:"source,attr"`
	Verbum  string `xml:"v,attr"`
	Note    string `xml:"note"`
	Type    string `xml:"type,attr"`
	Mark    string `xml:"mark,attr"`
	Form    Tokens `xml:"form,attr"`
	Variant Tokens `xml:"variant,attr"`

	I1 string `xml:"i1,attr"`
	I2 string `xml:"i2,attr"`
	I3 string `xml:"i3,attr"`

	RuleStart    *RuleStart     `xml:"rule-start"`
	RuleExamples []*RuleExample `xml:"rule-example"`
}

// Intermediates returns the non-empty intermediate forms in order.
func (r *RefRel) Intermediates() []string {
	var out []string
	for _, s := range []string{r.I1, r.I2, r.I3} {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (r *RefRel) TargetSource() string { return r.Source }

// Ref resolves the target reference through the attached Index.
func (r *RefRel) Ref() (*Ref, error) {
	res, err := r.resolver()
	if err != nil {
		return nil, err
	}
	return r.ResolveIn(res)
}

func (r *RefRel) ResolveIn(res Resolver) (*Ref, error) {
	return res.FindRef(r.Source)
}

func (r *RefRel) ChildNodes() []Node {
	return appendNodes(nil, r.RuleExamples)
}

// RuleStart marks the stage from which phonetic rules apply to a derivation.
type RuleStart struct {
	Language Language `xml:"l,attr"`
	Stage    string   `xml:"stage,attr"`
}

// RuleExample records that a derivation step uses a phonetic rule.
type RuleExample struct {
	linked

	Language Language `xml:"l,attr"`
	RuleTo   string   `xml:"rule,attr"`
	RuleFrom string   `xml:"from,attr"`
	Stage    string   `xml:"stage,attr"`
}

func (e *RuleExample) RuleKey() RuleKey {
	return RuleKey{Language: e.Language, Rule: e.RuleTo, From: e.RuleFrom}
}

// Rule returns the word declaring the rule. A missing rule is reported with ok == false,
// not as an error.
func (e *RuleExample) Rule() (w *Word, ok bool, err error) {
	res, err := e.resolver()
	if err != nil {
		return nil, false, err
	}
	w, ok = e.ResolveIn(res)
	return w, ok, nil
}

func (e *RuleExample) ResolveIn(res Resolver) (*Word, bool) {
	return res.FindRule(e.RuleKey())
}

func (e *RuleExample) ChildNodes() []Node { return nil }
