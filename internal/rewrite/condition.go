package rewrite

import (
	"strings"

	"github.com/roach88/eqsat/internal/egraph"
	"github.com/roach88/eqsat/internal/pattern"
)

// Condition decides whether one substitution may be applied.
//
// Check must not mutate the graph.
type Condition[D any] interface {
	Check(g *egraph.EGraph[D], class pattern.ID, s pattern.Subst) bool
	Vars() []pattern.Var
}

// ConditionFunc adapts a function to Condition.
type ConditionFunc[D any] struct {
	Name      string
	Fn        func(g *egraph.EGraph[D], class pattern.ID, s pattern.Subst) bool
	Variables []pattern.Var
}

// Check implements Condition.
func (c ConditionFunc[D]) Check(g *egraph.EGraph[D], class pattern.ID, s pattern.Subst) bool {
	return c.Fn(g, class, s)
}

// Vars implements Condition.
func (c ConditionFunc[D]) Vars() []pattern.Var {
	return c.Variables
}

func (c ConditionFunc[D]) String() string {
	return c.Name
}

// ConditionEqual holds when both patterns, instantiated under the
// substitution, already denote the same class. Neither side is added to
// the graph, so a side that does not exist yet fails the condition.
type ConditionEqual[D any] struct {
	A, B *pattern.Pattern
}

// Check implements Condition.
func (c ConditionEqual[D]) Check(g *egraph.EGraph[D], _ pattern.ID, s pattern.Subst) bool {
	a, ok := c.A.LookupSubst(g, s)
	if !ok {
		return false
	}
	b, ok := c.B.LookupSubst(g, s)
	return ok && a == b
}

// Vars implements Condition.
func (c ConditionEqual[D]) Vars() []pattern.Var {
	vars := c.A.Vars()
	for _, v := range c.B.Vars() {
		if !containsVar(vars, v) {
			vars = append(vars, v)
		}
	}
	return vars
}

func (c ConditionEqual[D]) String() string {
	return c.A.String() + " = " + c.B.String()
}

// Conditional applies Applier only to substitutions that satisfy every
// condition.
type Conditional[D any] struct {
	Conditions []Condition[D]
	Applier    Applier[D]
}

// NewConditional builds the rule lhs => rhs if conds.
func NewConditional[D any](name string, lhs, rhs *pattern.Pattern, conds ...Condition[D]) (*Rewrite[D], error) {
	return NewWith[D](name, PatternSearcher[D]{Pattern: lhs}, Conditional[D]{
		Conditions: conds,
		Applier:    PatternApplier[D]{Pattern: rhs},
	})
}

// Apply implements Applier. Conditions are evaluated for every
// substitution before anything is added.
func (c Conditional[D]) Apply(g *egraph.EGraph[D], matches []pattern.Match, rule string) (int, error) {
	var kept []pattern.Match
	for _, m := range matches {
		var substs []pattern.Subst
		for _, s := range m.Substs {
			if c.holds(g, m.Class, s) {
				substs = append(substs, s)
			}
		}
		if len(substs) > 0 {
			kept = append(kept, pattern.Match{Class: m.Class, Substs: substs})
		}
	}
	if len(kept) == 0 {
		return 0, nil
	}
	return c.Applier.Apply(g, kept, rule)
}

func (c Conditional[D]) holds(g *egraph.EGraph[D], class pattern.ID, s pattern.Subst) bool {
	for _, cond := range c.Conditions {
		if !cond.Check(g, class, s) {
			return false
		}
	}
	return true
}

// Vars implements Applier: the applier's variables plus those the
// conditions read.
func (c Conditional[D]) Vars() []pattern.Var {
	vars := append([]pattern.Var(nil), c.Applier.Vars()...)
	for _, cond := range c.Conditions {
		for _, v := range cond.Vars() {
			if !containsVar(vars, v) {
				vars = append(vars, v)
			}
		}
	}
	return vars
}

func (c Conditional[D]) String() string {
	var parts []string
	for _, cond := range c.Conditions {
		if s, ok := cond.(interface{ String() string }); ok {
			parts = append(parts, s.String())
		}
	}
	if len(parts) == 0 {
		return stringOf(c.Applier)
	}
	return stringOf(c.Applier) + " if " + strings.Join(parts, " && ")
}

func stringOf(v any) string {
	if s, ok := v.(interface{ String() string }); ok {
		return s.String()
	}
	return "<applier>"
}

func containsVar(vars []pattern.Var, v pattern.Var) bool {
	for _, w := range vars {
		if w == v {
			return true
		}
	}
	return false
}
