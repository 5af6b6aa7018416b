package pattern

import (
	"strings"

	"github.com/roach88/eqsat/internal/egraph"
)

// ID is a class id.
type ID = egraph.ID

// Var is a pattern variable. By convention names start with '?'.
type Var string

func (v Var) String() string { return string(v) }

// Pattern is a tree of variables and operator applications.
//
// Exactly one of Var and Op is set.
type Pattern struct {
	Var  Var
	Op   egraph.Op
	Args []*Pattern
}

// V returns a variable pattern.
func V(name string) *Pattern {
	return &Pattern{Var: Var(name)}
}

// Apply returns a pattern applying op to args.
func Apply(op egraph.Op, args ...*Pattern) *Pattern {
	return &Pattern{Op: op, Args: args}
}

// Leaf returns a pattern matching the childless node op.
func Leaf(op egraph.Op) *Pattern {
	return &Pattern{Op: op}
}

// IsVar reports whether p is a variable.
func (p *Pattern) IsVar() bool {
	return p.Op == nil
}

// IsGround reports whether p contains no variables.
func (p *Pattern) IsGround() bool {
	if p.IsVar() {
		return false
	}
	for _, a := range p.Args {
		if !a.IsGround() {
			return false
		}
	}
	return true
}

// Vars returns the distinct variables of p in first-occurrence order.
func (p *Pattern) Vars() []Var {
	var vars []Var
	p.walk(func(q *Pattern) {
		if !q.IsVar() {
			return
		}
		for _, v := range vars {
			if v == q.Var {
				return
			}
		}
		vars = append(vars, q.Var)
	})
	return vars
}

// Size returns the number of pattern nodes, variables included.
func (p *Pattern) Size() int {
	n := 0
	p.walk(func(*Pattern) { n++ })
	return n
}

// walk visits p in pre-order.
func (p *Pattern) walk(f func(*Pattern)) {
	f(p)
	for _, a := range p.Args {
		a.walk(f)
	}
}

// Equal reports whether p and q are structurally identical.
func (p *Pattern) Equal(q *Pattern) bool {
	if p.IsVar() || q.IsVar() {
		return p.IsVar() && q.IsVar() && p.Var == q.Var
	}
	if p.Op != q.Op || len(p.Args) != len(q.Args) {
		return false
	}
	for i := range p.Args {
		if !p.Args[i].Equal(q.Args[i]) {
			return false
		}
	}
	return true
}

// String renders p as an s-expression, e.g. "(+ ?a (* ?b 0))".
func (p *Pattern) String() string {
	var b strings.Builder
	p.write(&b)
	return b.String()
}

func (p *Pattern) write(b *strings.Builder) {
	if p.IsVar() {
		b.WriteString(string(p.Var))
		return
	}
	if len(p.Args) == 0 {
		b.WriteString(p.Op.String())
		return
	}
	b.WriteByte('(')
	b.WriteString(p.Op.String())
	for _, a := range p.Args {
		b.WriteByte(' ')
		a.write(b)
	}
	b.WriteByte(')')
}
