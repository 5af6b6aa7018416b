package egraph

import (
	"fmt"
	"strings"
)

// Term is a concrete expression stored as a flat list of nodes.
//
// The children of a node are indices of earlier nodes in the same term
// (not class ids), and the last node is the root. A term is what gets fed
// into the graph with AddTerm and what extraction hands back.
type Term struct {
	nodes []Node
}

// NewTerm returns an empty term.
func NewTerm() *Term {
	return &Term{}
}

// Add appends a node whose children refer to earlier positions and returns
// its position.
//
// Panics if a child refers to a position not yet added.
func (t *Term) Add(n Node) ID {
	for _, c := range n.Children {
		if int(c) >= len(t.nodes) {
			panic(fmt.Sprintf("egraph: term child %d out of range (len %d)", c, len(t.nodes)))
		}
	}
	t.nodes = append(t.nodes, n)
	return ID(len(t.nodes) - 1)
}

// Len returns the number of nodes.
func (t *Term) Len() int {
	return len(t.nodes)
}

// Node returns the node at position i.
func (t *Term) Node(i ID) Node {
	return t.nodes[i]
}

// Nodes returns the underlying node list. Callers must not modify it.
func (t *Term) Nodes() []Node {
	return t.nodes
}

// Root returns the position of the root node.
//
// Panics on an empty term.
func (t *Term) Root() ID {
	if len(t.nodes) == 0 {
		panic("egraph: empty term has no root")
	}
	return ID(len(t.nodes) - 1)
}

// Size returns the number of nodes reachable from the root when shared
// subterms are counted once per occurrence.
func (t *Term) Size() int {
	if len(t.nodes) == 0 {
		return 0
	}
	sizes := make([]int, len(t.nodes))
	for i, n := range t.nodes {
		sizes[i] = 1
		for _, c := range n.Children {
			sizes[i] += sizes[c]
		}
	}
	return sizes[len(sizes)-1]
}

// String renders the term as an s-expression, e.g. "(* 2 (+ 1 2))".
func (t *Term) String() string {
	if len(t.nodes) == 0 {
		return "()"
	}
	var b strings.Builder
	t.write(&b, t.Root())
	return b.String()
}

func (t *Term) write(b *strings.Builder, i ID) {
	n := t.nodes[i]
	if n.IsLeaf() {
		b.WriteString(n.Op.String())
		return
	}
	b.WriteByte('(')
	b.WriteString(n.Op.String())
	for _, c := range n.Children {
		b.WriteByte(' ')
		t.write(b, c)
	}
	b.WriteByte(')')
}
