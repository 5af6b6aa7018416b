package egraph

import (
	"fmt"
	"strings"

	"github.com/roach88/eqsat/internal/unionfind"
)

// ID identifies an e-class. Many ids may canonicalize to the same class.
type ID = unionfind.ID

// Op is an operator tag supplied by the embedding language.
//
// Two nodes are the same operator application when their ops compare equal
// with == and their children match, so every dynamic type used as an Op
// must be comparable. String is used for hashing, printing and parsing;
// distinct ops may share a string.
type Op interface {
	String() string
}

// Symbol is a plain named operator. Languages that need nothing more than
// names (tests, uninterpreted functions) use it directly.
type Symbol string

func (s Symbol) String() string { return string(s) }

// Node is one operator application over child classes.
type Node struct {
	Op       Op
	Children []ID
}

// Leaf creates a node without children.
func Leaf(op Op) Node {
	return Node{Op: op}
}

// NewNode creates a node applying op to children.
func NewNode(op Op, children ...ID) Node {
	return Node{Op: op, Children: children}
}

// Arity returns the number of children.
func (n Node) Arity() int {
	return len(n.Children)
}

// IsLeaf reports whether the node has no children.
func (n Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// Matches reports whether n and o apply the same operator with the same
// arity, ignoring children.
func (n Node) Matches(o Node) bool {
	return n.Op == o.Op && len(n.Children) == len(o.Children)
}

// Equal reports whether n and o are identical, children included.
// Children are compared as raw ids; canonicalize first to compare modulo
// equivalence.
func (n Node) Equal(o Node) bool {
	if !n.Matches(o) {
		return false
	}
	for i, c := range n.Children {
		if o.Children[i] != c {
			return false
		}
	}
	return true
}

// MapChildren returns a copy of n with every child replaced by f(child).
// The receiver is never modified.
func (n Node) MapChildren(f func(ID) ID) Node {
	if len(n.Children) == 0 {
		return Node{Op: n.Op}
	}
	children := make([]ID, len(n.Children))
	for i, c := range n.Children {
		children[i] = f(c)
	}
	return Node{Op: n.Op, Children: children}
}

// String renders the node with its child class ids, e.g. "(+ c1 c2)".
func (n Node) String() string {
	if n.IsLeaf() {
		return n.Op.String()
	}
	var b strings.Builder
	b.WriteByte('(')
	b.WriteString(n.Op.String())
	for _, c := range n.Children {
		b.WriteByte(' ')
		b.WriteString(c.String())
	}
	b.WriteByte(')')
	return b.String()
}

// compareNodes orders nodes by operator string, arity, then children.
// Used to keep class member lists deterministic.
func compareNodes(a, b Node) int {
	if c := strings.Compare(a.Op.String(), b.Op.String()); c != 0 {
		return c
	}
	if len(a.Children) != len(b.Children) {
		if len(a.Children) < len(b.Children) {
			return -1
		}
		return 1
	}
	for i := range a.Children {
		if a.Children[i] != b.Children[i] {
			if a.Children[i] < b.Children[i] {
				return -1
			}
			return 1
		}
	}
	if a.Op != b.Op {
		// Same spelling, different operator types.
		return strings.Compare(fmt.Sprintf("%T", a.Op), fmt.Sprintf("%T", b.Op))
	}
	return 0
}
