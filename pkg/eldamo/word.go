package eldamo

import (
	"fmt"
	"strings"
)

// RelKind names the element a relation was declared with.
type RelKind string

const (
	RelBefore     RelKind = "before"
	RelCombine    RelKind = "combine"
	RelSee        RelKind = "see"
	RelSeeAlso    RelKind = "see-also"
	RelSeeFurther RelKind = "see-further"
	RelSeeNotes   RelKind = "see-notes"
	RelCognate    RelKind = "cognate"
	RelDeriv      RelKind = "deriv"
	RelRelated    RelKind = "related"
	RelElement    RelKind = "element"
	RelDeprecated RelKind = "deprecated"
	RelInflect    RelKind = "inflect"
	RelExample    RelKind = "example"
	RelChange     RelKind = "change"
	RelCorrection RelKind = "correction"
	RelOrder      RelKind = "order-example"
	RelRule       RelKind = "rule-example"
)

// Word is an Eldamo page: a word, but also grammar, phrase, text and phonetics pages.
// Use IsNormalWord to tell them apart.
type Word struct {
	linked

	Language Language `xml:"l,attr"`
	Verbum   string   `xml:"v,attr"`
	PageID   string   `xml:"page-id,attr"`
	Speech   Tokens   `xml:"speech,attr"`
	Mark     string   `xml:"mark,attr"`
	Gloss    string   `xml:"gloss,attr"`
	Stem     string   `xml:"stem,attr"`
	// Tengwar holds spelling and mutation hints, e.g. "þ" or "nd-".
	Tengwar  string `xml:"tengwar,attr"`
	Category string `xml:"cat,attr"`

	CreatedBy  string `xml:"created,attr"`
	NeoGloss   string `xml:"neo-gloss,attr"`
	VettedBy   string `xml:"vetted,attr"`
	NeoVersion string `xml:"neo-version,attr"`

	// Phonetic rule pages.
	RuleFrom  string `xml:"from,attr"`
	RuleTo    string `xml:"rule,attr"`
	RuleOrder int    `xml:"order,attr"`

	// Phoneme pages.
	Orthography string `xml:"orthography,attr"`
	PhonCol     int    `xml:"phon-col,attr"`
	PhonRow     int    `xml:"phon-row,attr"`

	// Children are earlier conceptual variants of this word.
	Children []*Word `xml:"word"`
	Refs     []*Ref  `xml:"ref"`
	Notes    []HTML  `xml:"notes"`

	Before      []*WordRel     `xml:"before"`
	Combine     []*WordRel     `xml:"combine"`
	See         []*WordRel     `xml:"see"`
	SeeAlso     []*WordRel     `xml:"see-also"`
	SeeFurther  []*WordRel     `xml:"see-further"`
	SeeNotes    []*WordRel     `xml:"see-notes"`
	Cognates    []*WordRel     `xml:"cognate"`
	Derivations []*WordRel     `xml:"deriv"`
	Related     []*WordRel     `xml:"related"`
	Elements    []*WordRel     `xml:"element"`
	Classes     []*WordClass   `xml:"class"`
	Deprecated  []*Deprecated  `xml:"deprecated"`
	Inflections []*Inflect     `xml:"inflect"`
	Rules       []RuleKey      `xml:"rule"`
	Tables      []InflectTable `xml:"inflect-table"`
}

// Key returns the (language, spelling) key of the word.
func (w *Word) Key() Key { return Key{Language: w.Language, Verbum: w.Verbum} }

// IsNeo reports whether the word is a neologism.
func (w *Word) IsNeo() bool { return w.NeoVersion != "" }

var specialSpeech = []string{
	"grammar", "phrase", "text", "phonetics", "phonetic-group", "phoneme", "phonetic-rule",
}

// IsNormalWord reports whether the page is a dictionary entry rather than a grammar,
// phrase or phonetics page.
func (w *Word) IsNormalWord() bool {
	for _, s := range specialSpeech {
		if w.Speech.Has(s) {
			return false
		}
	}
	return true
}

func (w *Word) EldamoLink() string {
	return "https://eldamo.org/content/words/word-" + w.PageID + ".html"
}

func (w *Word) GithubLink() string {
	return "https://pfstrack.github.io/eldamo/content/words/word-" + w.PageID + ".html"
}

func (w *Word) String() string {
	var b strings.Builder
	b.WriteString(w.Language.Abbreviation())
	b.WriteByte(' ')
	b.WriteString(w.Mark)
	b.WriteString(w.Verbum)
	b.WriteString(" (")
	b.WriteString(strings.Join(w.Speech, ", "))
	if w.Stem != "" {
		b.WriteString(", ")
		b.WriteString(w.Stem)
	}
	if w.Tengwar != "" {
		b.WriteString(", ")
		b.WriteString(w.Tengwar)
	}
	b.WriteString(")")
	switch {
	case w.IsNeo() && w.NeoGloss != "":
		fmt.Fprintf(&b, " “%s”", w.NeoGloss)
	case w.Gloss != "":
		fmt.Fprintf(&b, " “%s”", w.Gloss)
	}
	return b.String()
}

// ChildNodes implements Node.
func (w *Word) ChildNodes() []Node {
	out := make([]Node, 0, len(w.Children)+len(w.Refs))
	out = appendNodes(out, w.Children)
	out = appendNodes(out, w.Refs)
	for _, rel := range w.Relations() {
		out = append(out, rel.Rel)
	}
	out = appendNodes(out, w.Classes)
	out = appendNodes(out, w.Deprecated)
	out = appendNodes(out, w.Inflections)
	return out
}

// TypedWordRel pairs a relation with the element it was declared by.
type TypedWordRel struct {
	Kind RelKind
	Rel  *WordRel
}

// Relations lists every word-to-word relation in document order of the relation kinds.
func (w *Word) Relations() []TypedWordRel {
	groups := []struct {
		kind RelKind
		rels []*WordRel
	}{
		{RelBefore, w.Before},
		{RelCombine, w.Combine},
		{RelSee, w.See},
		{RelSeeAlso, w.SeeAlso},
		{RelSeeFurther, w.SeeFurther},
		{RelSeeNotes, w.SeeNotes},
		{RelCognate, w.Cognates},
		{RelDeriv, w.Derivations},
		{RelRelated, w.Related},
		{RelElement, w.Elements},
	}
	var out []TypedWordRel
	for _, g := range groups {
		for _, r := range g.rels {
			if r != nil {
				out = append(out, TypedWordRel{Kind: g.kind, Rel: r})
			}
		}
	}
	return out
}

// AllSee combines see, see-also, see-further and see-notes.
func (w *Word) AllSee() []*WordRel {
	out := make([]*WordRel, 0, len(w.See)+len(w.SeeAlso)+len(w.SeeFurther)+len(w.SeeNotes))
	out = append(out, w.See...)
	out = append(out, w.SeeAlso...)
	out = append(out, w.SeeFurther...)
	return append(out, w.SeeNotes...)
}

// RelatedRefs returns the word's own references followed by every reference elsewhere
// that points back at one of them.
func (w *Word) RelatedRefs() ([]*Ref, error) {
	r, err := w.resolver()
	if err != nil {
		return nil, err
	}
	return r.RelatedRefs(w), nil
}

// WordRel links to another word by key. Extra attributes are only set for the relation
// kinds that declare them (mark for cognate/deriv/related/element, form and variant for
// element, order examples for before).
type WordRel struct {
	linked

	Language Language `xml:"l,attr"`
	Verbum   string   `xml:"v,attr"`
	Mark     string   `xml:"mark,attr"`
	Form     Tokens   `xml:"form,attr"`
	Variant  Tokens   `xml:"variant,attr"`

	OrderExamples []*OrderExample `xml:"order-example"`
}

// TargetKey is the at-rest target of the relation.
func (r *WordRel) TargetKey() Key { return Key{Language: r.Language, Verbum: r.Verbum} }

// Word resolves the target through the attached Index.
func (r *WordRel) Word() (*Word, error) {
	res, err := r.resolver()
	if err != nil {
		return nil, err
	}
	return r.ResolveIn(res)
}

// ResolveIn resolves the target through res.
func (r *WordRel) ResolveIn(res Resolver) (*Word, error) {
	return res.FindByKey(r.TargetKey())
}

func (r *WordRel) ChildNodes() []Node {
	return appendNodes(nil, r.OrderExamples)
}

// OrderExample is a reference illustrating the order of two phonetic rules.
type OrderExample struct {
	linked

	Source string `xml:"source,attr"`
	Verbum string `xml:"v,attr"`
}

func (o *OrderExample) TargetSource() string { return o.Source }

func (o *OrderExample) Ref() (*Ref, error) {
	res, err := o.resolver()
	if err != nil {
		return nil, err
	}
	return o.ResolveIn(res)
}

func (o *OrderExample) ResolveIn(res Resolver) (*Ref, error) {
	return res.FindRef(o.Source)
}

func (o *OrderExample) ChildNodes() []Node { return nil }

// WordClass is the grammatical class of a word, e.g. a-stem or strong-i.
type WordClass struct {
	linked

	Form    Tokens `xml:"form,attr"`
	Variant string `xml:"variant,attr"`
}

func (c *WordClass) ChildNodes() []Node { return nil }

// Deprecated marks a word as deprecated, optionally pointing at its replacement.
type Deprecated struct {
	linked

	Language Language `xml:"l,attr"`
	Verbum   string   `xml:"v,attr"`
}

// TargetKey returns the replacement key; ok is false when the element names none.
func (d *Deprecated) TargetKey() (key Key, ok bool) {
	if d.Language == "" || d.Verbum == "" {
		return Key{}, false
	}
	return Key{Language: d.Language, Verbum: d.Verbum}, true
}

// Word resolves the replacement. It returns nil without error when none is named.
func (d *Deprecated) Word() (*Word, error) {
	res, err := d.resolver()
	if err != nil {
		return nil, err
	}
	return d.ResolveIn(res)
}

func (d *Deprecated) ResolveIn(res Resolver) (*Word, error) {
	key, ok := d.TargetKey()
	if !ok {
		return nil, nil
	}
	return res.FindByKey(key)
}

func (d *Deprecated) ChildNodes() []Node { return nil }

// Inflect records an inflected form of the word, optionally citing a reference.
type Inflect struct {
	linked

	Source  string `xml:"source,attr"`
	Verbum  string `xml:"v,attr"`
	Form    Tokens `xml:"form,attr"`
	Variant Tokens `xml:"variant,attr"`
}

func (i *Inflect) TargetSource() string { return i.Source }

// Ref resolves the cited reference. It returns nil without error when none is cited.
func (i *Inflect) Ref() (*Ref, error) {
	res, err := i.resolver()
	if err != nil {
		return nil, err
	}
	return i.ResolveIn(res)
}

func (i *Inflect) ResolveIn(res Resolver) (*Ref, error) {
	if i.Source == "" {
		return nil, nil
	}
	return res.FindRef(i.Source)
}

func (i *Inflect) ChildNodes() []Node { return nil }

// InflectTable configures how an inflection table is rendered for a word. It carries no
// relations.
type InflectTable struct {
	Exclude      string `xml:"exclude,attr"`
	Form         Tokens `xml:"form,attr"`
	From         string `xml:"from,attr"`
	Hide         bool   `xml:"hide,attr"`
	Key          string `xml:"key,attr"`
	Language     string `xml:"l,attr"`
	Omit         Tokens `xml:"omit,attr"`
	ShowElements bool   `xml:"show-element-of,attr"`
	ShowForm     bool   `xml:"show-form,attr"`
	ShowGlosses  bool   `xml:"show-glosses,attr"`
	ShowVariants bool   `xml:"show-variants,attr"`
	Speech       string `xml:"speech,attr"`

	Forms []InflectTableForm `xml:"form"`
}

type InflectTableForm struct {
	Exclude  Tokens `xml:"exclude,attr"`
	Exclude2 Tokens `xml:"exclude2,attr"`
	Form     Tokens `xml:"form,attr"`
}

// Excludes combines exclude and exclude2.
func (f InflectTableForm) Excludes() Tokens {
	out := make(Tokens, 0, len(f.Exclude)+len(f.Exclude2))
	out = append(out, f.Exclude...)
	return append(out, f.Exclude2...)
}
