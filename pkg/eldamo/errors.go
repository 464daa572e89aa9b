package eldamo

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a key, page id, source id or owner lookup has no match.
	ErrNotFound = errors.New("eldamo: not found")

	// ErrNotLinked is returned by relation accessors called before the entity was linked
	// to an Index.
	ErrNotLinked = errors.New("eldamo: entity not linked to an index")

	// ErrAlreadyLinked is returned when the linker reaches an entity that already carries an
	// Index, i.e. linking ran twice over the same tree or a node is shared by two trees.
	ErrAlreadyLinked = errors.New("eldamo: entity already linked to an index")
)

// ParseError wraps any failure to decode a document.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse eldamo document: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func notFound(kind string, key any) error {
	return fmt.Errorf("%s %v: %w", kind, key, ErrNotFound)
}
