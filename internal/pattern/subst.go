package pattern

import (
	"slices"
	"strings"
)

// binding is one variable assignment.
type binding struct {
	v  Var
	id ID
}

// Subst maps pattern variables to class ids.
//
// A Subst is immutable once built: With returns a copy, so partial
// substitutions can be shared between matching branches.
type Subst struct {
	bindings []binding
}

// NewSubst builds a substitution from a map, binding variables in name
// order.
func NewSubst(pairs map[Var]ID) Subst {
	vars := make([]Var, 0, len(pairs))
	for v := range pairs {
		vars = append(vars, v)
	}
	slices.Sort(vars)
	var s Subst
	for _, v := range vars {
		s = s.With(v, pairs[v])
	}
	return s
}

// Get returns the class bound to v.
func (s Subst) Get(v Var) (ID, bool) {
	for _, b := range s.bindings {
		if b.v == v {
			return b.id, true
		}
	}
	return 0, false
}

// MustGet returns the class bound to v and panics if v is unbound.
func (s Subst) MustGet(v Var) ID {
	id, ok := s.Get(v)
	if !ok {
		panic("pattern: unbound variable " + string(v))
	}
	return id
}

// With returns a copy of s with v bound to id, replacing any previous
// binding of v.
func (s Subst) With(v Var, id ID) Subst {
	out := make([]binding, 0, len(s.bindings)+1)
	for _, b := range s.bindings {
		if b.v != v {
			out = append(out, b)
		}
	}
	return Subst{bindings: append(out, binding{v: v, id: id})}
}

// Len returns the number of bound variables.
func (s Subst) Len() int {
	return len(s.bindings)
}

// Vars returns the bound variables in binding order.
func (s Subst) Vars() []Var {
	vars := make([]Var, len(s.bindings))
	for i, b := range s.bindings {
		vars[i] = b.v
	}
	return vars
}

// String renders s as "{?a: c1, ?b: c2}" in binding order.
func (s Subst) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, bd := range s.bindings {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(string(bd.v))
		b.WriteString(": ")
		b.WriteString(bd.id.String())
	}
	b.WriteByte('}')
	return b.String()
}
