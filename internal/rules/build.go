package rules

import (
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/eqsat/internal/egraph"
	"github.com/roach88/eqsat/internal/pattern"
	"github.com/roach88/eqsat/internal/rewrite"
	"github.com/roach88/eqsat/internal/sexp"
)

// ErrInvalid is wrapped by Build when Validate reports problems.
var ErrInvalid = errors.New("invalid rule set")

// Build validates rs and turns it into rewrites, in declaration order
// with each reverse rule right after its forward rule. Patterns are
// parsed through cache, which must be for the rule set's language.
func Build[D any](rs *RuleSet, cache *sexp.PatternCache) ([]*rewrite.Rewrite[D], error) {
	if errs := Validate(rs); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, errs[0])
	}

	var out []*rewrite.Rewrite[D]
	for _, r := range rs.Rules {
		lhs, err := cache.Pattern(r.LHS)
		if err != nil {
			return nil, fmt.Errorf("rule %q lhs: %w", r.Name, err)
		}
		rhs, err := cache.Pattern(r.RHS)
		if err != nil {
			return nil, fmt.Errorf("rule %q rhs: %w", r.Name, err)
		}

		switch {
		case r.Bidirectional:
			rws, err := rewrite.NewBidirectional[D](r.Name, lhs, rhs)
			if err != nil {
				return nil, err
			}
			out = append(out, rws...)
		case len(r.UnlessZero) > 0:
			zero, err := cache.Pattern("0")
			if err != nil {
				return nil, fmt.Errorf("rule %q: language has no literal 0: %w", r.Name, err)
			}
			conds := make([]rewrite.Condition[D], len(r.UnlessZero))
			for i, v := range r.UnlessZero {
				conds[i] = unlessZero[D](pattern.Var(v), egraph.Leaf(zero.Op))
			}
			rw, err := rewrite.NewConditional[D](r.Name, lhs, rhs, conds...)
			if err != nil {
				return nil, err
			}
			out = append(out, rw)
		default:
			rw, err := rewrite.New[D](r.Name, lhs, rhs)
			if err != nil {
				return nil, err
			}
			out = append(out, rw)
		}
	}
	return out, nil
}

// unlessZero holds when the class bound to v has no member equal to zero.
func unlessZero[D any](v pattern.Var, zero egraph.Node) rewrite.Condition[D] {
	return rewrite.ConditionFunc[D]{
		Name: "unless-zero " + v.String(),
		Fn: func(g *egraph.EGraph[D], _ pattern.ID, s pattern.Subst) bool {
			return !slices.ContainsFunc(g.Nodes(s.MustGet(v)), zero.Equal)
		},
		Variables: []pattern.Var{v},
	}
}
