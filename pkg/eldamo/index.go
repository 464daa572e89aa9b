package eldamo

import "fmt"

// Index holds the lookup tables derived from one document. It is built once by Build and
// never modified afterwards, so it is safe for concurrent readers.
type Index struct {
	byKey   map[Key]*Word
	byID    map[string]*Word
	rules   map[RuleKey]*Word
	refs    map[string]*Ref
	owners  map[string]*Word
	related map[string][]*Ref

	// registration order, used by Words and Refs
	words   []*Word
	refList []*Ref

	keyCollisions int
}

var _ Resolver = (*Index)(nil)

// Stats summarises an Index.
type Stats struct {
	Words         int
	Refs          int
	Rules         int
	KeyCollisions int
}

func newIndex() *Index {
	return &Index{
		byKey:   make(map[Key]*Word),
		byID:    make(map[string]*Word),
		rules:   make(map[RuleKey]*Word),
		refs:    make(map[string]*Ref),
		owners:  make(map[string]*Word),
		related: make(map[string][]*Ref),
	}
}

// Build registers every word and reference of data into a new Index and links the whole
// tree to it. data must not have been linked before. A word or reference reachable along
// several paths is registered once.
func Build(data *WordData) (*Index, error) {
	if data == nil {
		return nil, fmt.Errorf("build index: nil document")
	}
	b := &builder{
		idx:       newIndex(),
		seenWords: make(map[*Word]struct{}),
		seenRefs:  make(map[*Ref]struct{}),
	}
	for _, w := range data.Words {
		b.putWord(w)
	}
	if err := Link(data, b.idx); err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	return b.idx, nil
}

type builder struct {
	idx       *Index
	seenWords map[*Word]struct{}
	seenRefs  map[*Ref]struct{}
}

// putWord registers w, then its nested variants, then its references. A later word with
// the same key replaces an earlier one.
func (b *builder) putWord(w *Word) {
	if w == nil {
		return
	}
	if _, ok := b.seenWords[w]; ok {
		return
	}
	b.seenWords[w] = struct{}{}

	idx := b.idx
	key := w.Key()
	if prev, ok := idx.byKey[key]; ok && prev != w {
		idx.keyCollisions++
	}
	idx.byKey[key] = w
	if _, ok := idx.byID[w.PageID]; !ok {
		idx.words = append(idx.words, w)
	}
	idx.byID[w.PageID] = w
	for _, rk := range w.Rules {
		idx.rules[rk] = w
	}
	for _, c := range w.Children {
		b.putWord(c)
	}
	for _, r := range w.Refs {
		b.putRef(r, w)
	}
}

// putRef registers r under its first owner.
func (b *builder) putRef(r *Ref, owner *Word) {
	if r == nil {
		return
	}
	if _, ok := b.seenRefs[r]; ok {
		return
	}
	b.seenRefs[r] = struct{}{}

	idx := b.idx
	if _, ok := idx.refs[r.Source]; !ok {
		idx.refList = append(idx.refList, r)
	}
	idx.refs[r.Source] = r
	idx.owners[r.Source] = owner
	for _, rel := range r.Relationships() {
		idx.related[rel.Source] = append(idx.related[rel.Source], r)
	}
}

// FindByKey returns the word registered last under key.
func (idx *Index) FindByKey(key Key) (*Word, error) {
	if w, ok := idx.byKey[key]; ok {
		return w, nil
	}
	return nil, notFound("word", key)
}

// FindByID returns the word with the given page id.
func (idx *Index) FindByID(pageID string) (*Word, error) {
	if w, ok := idx.byID[pageID]; ok {
		return w, nil
	}
	return nil, notFound("page id", pageID)
}

// FindRule returns the word declaring a phonetic rule. Not every rule referenced in the
// document has a page, so a miss is not an error.
func (idx *Index) FindRule(key RuleKey) (*Word, bool) {
	w, ok := idx.rules[key]
	return w, ok
}

// FindRef returns the reference with the given source id.
func (idx *Index) FindRef(source string) (*Ref, error) {
	if r, ok := idx.refs[source]; ok {
		return r, nil
	}
	return nil, notFound("reference", source)
}

// Owner returns the word whose reference list contains ref.
func (idx *Index) Owner(ref *Ref) (*Word, error) {
	if ref == nil {
		return nil, notFound("reference owner", "<nil>")
	}
	return idx.OwnerOf(ref.Source)
}

// OwnerOf returns the word owning the reference with the given source id.
func (idx *Index) OwnerOf(source string) (*Word, error) {
	if w, ok := idx.owners[source]; ok {
		return w, nil
	}
	return nil, notFound("reference owner", source)
}

// RelatedRefs returns w's own references in document order, followed, for each of them,
// by the references whose detail entries point at it, in registration order. Duplicates
// are kept: a reference pointing at itself appears twice. Nil references are skipped.
func (idx *Index) RelatedRefs(w *Word) []*Ref {
	if w == nil {
		return nil
	}
	out := make([]*Ref, 0, len(w.Refs))
	for _, r := range w.Refs {
		if r != nil {
			out = append(out, r)
		}
	}
	for _, r := range w.Refs {
		if r != nil {
			out = append(out, idx.related[r.Source]...)
		}
	}
	return out
}

// Words returns every registered word, nested variants included, in registration order.
func (idx *Index) Words() []*Word {
	out := make([]*Word, len(idx.words))
	copy(out, idx.words)
	return out
}

// Refs returns every registered reference in registration order.
func (idx *Index) Refs() []*Ref {
	out := make([]*Ref, len(idx.refList))
	copy(out, idx.refList)
	return out
}

func (idx *Index) Stats() Stats {
	return Stats{
		Words:         len(idx.byID),
		Refs:          len(idx.refs),
		Rules:         len(idx.rules),
		KeyCollisions: idx.keyCollisions,
	}
}
