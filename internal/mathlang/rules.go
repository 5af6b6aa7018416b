package mathlang

import (
	"slices"

	"github.com/roach88/eqsat/internal/egraph"
	"github.com/roach88/eqsat/internal/extract"
	"github.com/roach88/eqsat/internal/pattern"
	"github.com/roach88/eqsat/internal/rewrite"
	"github.com/roach88/eqsat/internal/sexp"
)

// Rule parses lhs and rhs as math patterns and builds lhs => rhs.
// It panics on malformed input; rule sets here are static.
func Rule[D any](name, lhs, rhs string, conds ...rewrite.Condition[D]) *rewrite.Rewrite[D] {
	l := sexp.MustParsePattern(Language{}, lhs)
	r := sexp.MustParsePattern(Language{}, rhs)
	var (
		rw  *rewrite.Rewrite[D]
		err error
	)
	if len(conds) == 0 {
		rw, err = rewrite.New[D](name, l, r)
	} else {
		rw, err = rewrite.NewConditional[D](name, l, r, conds...)
	}
	if err != nil {
		panic(err)
	}
	return rw
}

// NotZero holds when the class bound to v has no literal 0 member.
func NotZero[D any](v pattern.Var) rewrite.Condition[D] {
	zero := egraph.Leaf(Num(0))
	return rewrite.ConditionFunc[D]{
		Name: "not-zero " + v.String(),
		Fn: func(g *egraph.EGraph[D], _ pattern.ID, s pattern.Subst) bool {
			return !slices.ContainsFunc(g.Nodes(s.MustGet(v)), zero.Equal)
		},
		Variables: []pattern.Var{v},
	}
}

// ConstantIn holds when the class bound to c has a literal or variable
// member and differs from the class bound to x: differentiating it with
// respect to x gives 0.
func ConstantIn[D any](c, x pattern.Var) rewrite.Condition[D] {
	return rewrite.ConditionFunc[D]{
		Name: "constant " + c.String() + " in " + x.String(),
		Fn: func(g *egraph.EGraph[D], _ pattern.ID, s pattern.Subst) bool {
			cid, xid := g.Canonical(s.MustGet(c)), g.Canonical(s.MustGet(x))
			if cid == xid {
				return false
			}
			return slices.ContainsFunc(g.Nodes(cid), func(n egraph.Node) bool {
				_, lit := Constant(n)
				return lit || IsVariable(n)
			})
		},
		Variables: []pattern.Var{c, x},
	}
}

// Rules returns the standard rule set: ring axioms with canonical forms
// for subtraction and division, powers and derivatives.
func Rules[D any]() []*rewrite.Rewrite[D] {
	return []*rewrite.Rewrite[D]{
		Rule[D]("comm-add", "(+ ?a ?b)", "(+ ?b ?a)"),
		Rule[D]("comm-mul", "(* ?a ?b)", "(* ?b ?a)"),
		Rule[D]("assoc-add", "(+ ?a (+ ?b ?c))", "(+ (+ ?a ?b) ?c)"),
		Rule[D]("assoc-mul", "(* ?a (* ?b ?c))", "(* (* ?a ?b) ?c)"),

		Rule[D]("sub-canon", "(- ?a ?b)", "(+ ?a (* -1 ?b))"),
		Rule[D]("div-canon", "(/ ?a ?b)", "(* ?a (pow ?b -1))"),
		Rule[D]("canon-sub", "(+ ?a (* -1 ?b))", "(- ?a ?b)"),

		Rule[D]("zero-add", "(+ ?a 0)", "?a"),
		Rule[D]("zero-mul", "(* ?a 0)", "0"),
		Rule[D]("one-mul", "(* ?a 1)", "?a"),

		Rule[D]("add-zero", "?a", "(+ ?a 0)"),
		Rule[D]("mul-one", "?a", "(* ?a 1)"),

		Rule[D]("cancel-sub", "(- ?a ?a)", "0"),
		Rule[D]("cancel-div", "(/ ?a ?a)", "1", NotZero[D]("?a")),

		Rule[D]("distribute", "(* ?a (+ ?b ?c))", "(+ (* ?a ?b) (* ?a ?c))"),
		Rule[D]("factor", "(+ (* ?a ?b) (* ?a ?c))", "(* ?a (+ ?b ?c))"),

		Rule[D]("pow-intro", "?a", "(pow ?a 1)"),
		Rule[D]("pow-mul", "(* (pow ?a ?b) (pow ?a ?c))", "(pow ?a (+ ?b ?c))"),
		Rule[D]("pow0", "(pow ?x 0)", "1", NotZero[D]("?x")),
		Rule[D]("pow1", "(pow ?x 1)", "?x"),
		Rule[D]("pow2", "(pow ?x 2)", "(* ?x ?x)"),
		Rule[D]("pow-recip", "(pow ?x -1)", "(/ 1 ?x)", NotZero[D]("?x")),

		Rule[D]("d-variable", "(d ?x ?x)", "1"),
		Rule[D]("d-constant", "(d ?x ?c)", "0", ConstantIn[D]("?c", "?x")),

		Rule[D]("d-add", "(d ?x (+ ?a ?b))", "(+ (d ?x ?a) (d ?x ?b))"),
		Rule[D]("d-mul", "(d ?x (* ?a ?b))", "(+ (* ?a (d ?x ?b)) (* ?b (d ?x ?a)))"),

		Rule[D]("d-power",
			"(d ?x (pow ?f ?g))",
			"(* (pow ?f ?g) (+ (* (d ?x ?f) (/ ?g ?f)) (* (d ?x ?g) (log ?f))))",
			NotZero[D]("?f"),
		),
	}
}

// CostFn weighs every operator 1 except d, which costs 100 so that
// extraction gets rid of unresolved derivatives.
func CostFn() extract.OpCost[int] {
	return extract.OpCost[int]{Weights: map[string]int{Diff.String(): 100}, Default: 1}
}
