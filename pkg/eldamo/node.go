package eldamo

// Resolver answers the lookups that turn at-rest keys and source ids into entities.
// *Index is the only implementation in this package.
type Resolver interface {
	FindByKey(key Key) (*Word, error)
	FindByID(pageID string) (*Word, error)
	FindRule(key RuleKey) (*Word, bool)
	FindRef(source string) (*Ref, error)
	Owner(ref *Ref) (*Word, error)
	RelatedRefs(w *Word) []*Ref
}

// Node is an entity of the document tree. ChildNodes returns the entities it owns; relation
// targets are never among them.
type Node interface {
	ChildNodes() []Node
	attach(r Resolver) error
}

// linked holds the write-once Resolver attached by Link.
type linked struct {
	r Resolver
}

func (l *linked) attach(r Resolver) error {
	if l.r != nil {
		return ErrAlreadyLinked
	}
	l.r = r
	return nil
}

func (l *linked) resolver() (Resolver, error) {
	if l.r == nil {
		return nil, ErrNotLinked
	}
	return l.r, nil
}

// Linked reports whether the entity has been attached to an Index.
func (l *linked) Linked() bool { return l.r != nil }

func appendNodes[T Node](dst []Node, src []T) []Node {
	for _, n := range src {
		if isNil(n) {
			continue
		}
		dst = append(dst, n)
	}
	return dst
}

// isNil catches typed nil pointers stored in a Node.
func isNil(n Node) bool {
	switch v := n.(type) {
	case nil:
		return true
	case *WordData:
		return v == nil
	case *Word:
		return v == nil
	case *WordRel:
		return v == nil
	case *OrderExample:
		return v == nil
	case *WordClass:
		return v == nil
	case *Deprecated:
		return v == nil
	case *Inflect:
		return v == nil
	case *Ref:
		return v == nil
	case *RefRel:
		return v == nil
	case *RuleExample:
		return v == nil
	}
	return false
}
