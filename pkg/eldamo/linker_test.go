package eldamo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingNode records how many times the linker attached to it.
type countingNode struct {
	linked
	children []Node
	attached int
}

func (n *countingNode) ChildNodes() []Node { return n.children }

func (n *countingNode) attach(r Resolver) error {
	n.attached++
	return n.linked.attach(r)
}

func TestLinkVisitsSharedNodeOnce(t *testing.T) {
	shared := &countingNode{}
	left := &countingNode{children: []Node{shared}}
	right := &countingNode{children: []Node{shared}}
	root := &countingNode{children: []Node{left, right, left}}

	require.NoError(t, Link(root, newIndex()))
	assert.Equal(t, 1, shared.attached)
	assert.Equal(t, 1, left.attached)
	assert.True(t, shared.Linked())
}

func TestLinkToleratesCycles(t *testing.T) {
	a := &countingNode{}
	b := &countingNode{children: []Node{a}}
	a.children = []Node{b}

	require.NoError(t, Link(a, newIndex()))
	assert.Equal(t, 1, a.attached)
	assert.Equal(t, 1, b.attached)
}

func TestLinkTwiceFails(t *testing.T) {
	data, err := ParseFile("testdata/sample.xml")
	require.NoError(t, err)

	require.NoError(t, Link(data, newIndex()))
	err = Link(data, newIndex())
	assert.ErrorIs(t, err, ErrAlreadyLinked)
}

func TestLinkNodeSharedAcrossTrees(t *testing.T) {
	shared := &Word{Language: "q", Verbum: "x", PageID: "1"}
	first := &WordData{Words: []*Word{shared}}
	second := &WordData{Words: []*Word{{Language: "q", Verbum: "y", PageID: "2", Children: []*Word{shared}}}}

	_, err := Build(first)
	require.NoError(t, err)
	_, err = Build(second)
	assert.ErrorIs(t, err, ErrAlreadyLinked)
}

func TestLinkReachesEveryEntity(t *testing.T) {
	data, idx := loadSample(t)

	var unlinked []string
	var walk func(n Node)
	walk = func(n Node) {
		type linkedNode interface{ Linked() bool }
		if ln, ok := n.(linkedNode); ok && !ln.Linked() {
			unlinked = append(unlinked, nodeName(n))
		}
		for _, c := range n.ChildNodes() {
			walk(c)
		}
	}
	walk(data)
	assert.Empty(t, unlinked)

	alda, err := idx.FindByID("100")
	require.NoError(t, err)
	assert.True(t, alda.Refs[0].Derivations[0].RuleExamples[0].Linked())
	assert.True(t, alda.Refs[0].Linked())
}

func nodeName(n Node) string {
	switch v := n.(type) {
	case *Word:
		return "word " + v.PageID
	case *Ref:
		return "ref " + v.Source
	}
	return "node"
}

func TestLinkIgnoresNilChildren(t *testing.T) {
	w := &Word{Language: "q", Verbum: "x", PageID: "1", Refs: []*Ref{nil}, Cognates: []*WordRel{nil}}
	require.NoError(t, Link(&WordData{Words: []*Word{w, nil}}, newIndex()))
	assert.True(t, w.Linked())
}

func TestLinkNilResolver(t *testing.T) {
	assert.Error(t, Link(&WordData{}, nil))
}
