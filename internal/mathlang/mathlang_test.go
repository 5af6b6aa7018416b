package mathlang

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/eqsat/internal/egraph"
	"github.com/roach88/eqsat/internal/extract"
	"github.com/roach88/eqsat/internal/rewrite"
	"github.com/roach88/eqsat/internal/runner"
	"github.com/roach88/eqsat/internal/sexp"
	"github.com/roach88/eqsat/internal/testutil"
)

func term(src string) *egraph.Term {
	return sexp.MustParseTerm(Language{}, src)
}

func quiet[D any](opts ...runner.Option[D]) []runner.Option[D] {
	return append([]runner.Option[D]{
		runner.WithLogger[D](testutil.DiscardLogger()),
		runner.WithClock[D](testutil.NewManualClock(0)),
		runner.WithRunIDGenerator[D](testutil.NewFixedRunIDGenerator("math-test")),
	}, opts...)
}

// prove saturates start under rules until goal joins its class or a limit
// is reached.
func prove(t *testing.T, rules []*rewrite.Rewrite[Data], start, goal string) (*runner.Runner[Data], *runner.Result) {
	t.Helper()
	g := NewGraph(egraph.WithLogger(testutil.DiscardLogger()))
	r := runner.New(g, quiet(
		runner.WithIterLimit[Data](12),
		runner.WithNodeLimit[Data](50_000),
		runner.WithHook(runner.StopWhenProven[Data](term(goal))),
	)...)
	r.AddTerm(term(start))
	res, err := r.Run(context.Background(), rules)
	require.NoError(t, err)
	require.NoError(t, g.Check())
	return r, res
}

func TestLanguage_ParseOp(t *testing.T) {
	tests := []struct {
		name    string
		symbol  string
		arity   int
		want    egraph.Op
		wantErr bool
	}{
		{"literal", "42", 0, Num(42), false},
		{"negative literal", "-1", 0, Num(-1), false},
		{"variable", "x", 0, egraph.Symbol("x"), false},
		{"binary op", "+", 2, Add, false},
		{"unary op", "sqrt", 1, Sqrt, false},
		{"derivative", "d", 2, Diff, false},
		{"wrong arity", "+", 1, nil, true},
		{"operator as leaf", "pow", 0, nil, true},
		{"applied literal", "3", 1, nil, true},
		{"unknown operator", "foo", 2, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, err := Language{}.ParseOp(tt.symbol, tt.arity)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, op)
		})
	}
}

func TestLanguage_Classifiers(t *testing.T) {
	assert.True(t, IsVariable(egraph.Leaf(egraph.Symbol("x"))))
	assert.False(t, IsVariable(egraph.Leaf(Num(1))))
	assert.False(t, IsVariable(egraph.NewNode(Add, 0, 1)))

	v, ok := Constant(egraph.Leaf(Num(-7)))
	assert.True(t, ok)
	assert.Equal(t, int64(-7), v)
	_, ok = Constant(egraph.Leaf(egraph.Symbol("x")))
	assert.False(t, ok)
}

func TestConstantFolding_Make(t *testing.T) {
	tests := []struct {
		src   string
		want  int64
		known bool
	}{
		{"(* 2 (+ 1 2))", 6, true},
		{"(- 5 7)", -2, true},
		{"(/ 6 3)", 2, true},
		{"(/ 7 2)", 0, false},
		{"(/ 6 0)", 0, false},
		{"(* x 0)", 0, true},
		{"(+ x 1)", 0, false},
		{"(pow 2 3)", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			g := NewGraph(egraph.WithLogger(testutil.DiscardLogger()))
			id := g.AddTerm(term(tt.src))
			_, err := g.Rebuild()
			require.NoError(t, err)

			d := g.Data(id)
			assert.Equal(t, tt.known, d.Known)
			if !tt.known {
				return
			}
			assert.Equal(t, tt.want, d.Value)

			lit, ok := g.Lookup(egraph.Leaf(Num(tt.want)))
			require.True(t, ok, "literal added by Modify")
			assert.Equal(t, g.Canonical(id), lit)
			require.NoError(t, g.Check())
		})
	}
}

func TestFold_Overflow(t *testing.T) {
	tests := []struct {
		name string
		op   egraph.Op
		x, y int64
		want int64
		ok   bool
	}{
		{"add", Add, 2, 3, 5, true},
		{"add_overflow", Add, math.MaxInt64, 1, 0, false},
		{"add_underflow", Add, math.MinInt64, -1, 0, false},
		{"sub", Sub, -3, 4, -7, true},
		{"sub_overflow", Sub, math.MinInt64, 1, 0, false},
		{"sub_neg_overflow", Sub, 0, math.MinInt64, 0, false},
		{"mul", Mul, -4, 5, -20, true},
		{"mul_overflow", Mul, math.MaxInt64, 2, 0, false},
		{"mul_min_neg_one", Mul, math.MinInt64, -1, 0, false},
		{"div_min_neg_one", Div, math.MinInt64, -1, 0, false},
		{"div_inexact", Div, 7, 2, 0, false},
		{"pow", Pow, 2, 3, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := fold(tt.op, tt.x, tt.y)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestConstantFolding_PropagatesUp(t *testing.T) {
	g := NewGraph(egraph.WithLogger(testutil.DiscardLogger()))
	root := g.AddTerm(term("(+ 1 a)"))
	a, _ := g.Lookup(egraph.Leaf(egraph.Symbol("a")))
	_, err := g.Rebuild()
	require.NoError(t, err)
	assert.False(t, g.Data(root).Known)

	four := g.Add(egraph.Leaf(Num(4)))
	_, err = g.Union(a, four)
	require.NoError(t, err)
	_, err = g.Rebuild()
	require.NoError(t, err)

	assert.Equal(t, Data{Value: 5, Known: true}, g.Data(root))
	five, ok := g.LookupTerm(term("5"))
	require.True(t, ok)
	assert.Equal(t, g.Canonical(root), five)
}

func TestConstantFolding_Conflict(t *testing.T) {
	g := NewGraph(egraph.WithLogger(testutil.DiscardLogger()))
	one := g.Add(egraph.Leaf(Num(1)))
	two := g.Add(egraph.Leaf(Num(2)))

	merged, err := g.Union(one, two)
	assert.False(t, merged)
	assert.True(t, egraph.IsAnalysisConflict(err))
	assert.Equal(t, 2, g.NumClasses())
}

func TestData_String(t *testing.T) {
	assert.Equal(t, "?", Data{}.String())
	assert.Equal(t, "-3", Data{Value: -3, Known: true}.String())
}

func TestRules_WellFormed(t *testing.T) {
	rules := Rules[Data]()
	assert.Len(t, rules, 27)

	seen := make(map[string]bool)
	for _, rw := range rules {
		assert.False(t, seen[rw.Name], "duplicate %s", rw.Name)
		seen[rw.Name] = true
	}
	assert.Equal(t, "d-constant: (d ?x ?c) => 0 if constant ?c in ?x", rules[23].String())
}

func TestRule_PanicsOnUnboundVariable(t *testing.T) {
	assert.Panics(t, func() { Rule[Data]("bad", "(+ ?a 0)", "?b") })
}

func TestAssociateAdds(t *testing.T) {
	g := egraph.NewPlain(egraph.WithLogger(testutil.DiscardLogger()))
	r := runner.New(g, quiet(
		runner.WithIterLimit[egraph.Unit](7),
		runner.WithScheduler[egraph.Unit](runner.SimpleScheduler{}),
	)...)
	r.AddTerm(term("(+ 1 (+ 2 (+ 3 (+ 4 (+ 5 (+ 6 7))))))"))

	_, err := r.Run(context.Background(), []*rewrite.Rewrite[egraph.Unit]{
		Rule[egraph.Unit]("comm-add", "(+ ?a ?b)", "(+ ?b ?a)"),
		Rule[egraph.Unit]("assoc-add", "(+ ?a (+ ?b ?c))", "(+ (+ ?a ?b) ?c)"),
	})
	require.NoError(t, err)

	assert.True(t, runner.Proven(g, r.Roots(), term("(+ 7 (+ 6 (+ 5 (+ 4 (+ 3 (+ 2 1))))))")))
	// One class per non-empty subset of the seven leaves.
	assert.Equal(t, 127, g.NumClasses())
}

func TestSimplifyAdd(t *testing.T) {
	tests := []struct {
		name  string
		rules []*rewrite.Rewrite[Data]
	}{
		{"factoring rules", []*rewrite.Rewrite[Data]{
			Rule[Data]("comm-mul", "(* ?a ?b)", "(* ?b ?a)"),
			Rule[Data]("mul-one", "?a", "(* ?a 1)"),
			Rule[Data]("factor", "(+ (* ?a ?b) (* ?a ?c))", "(* ?a (+ ?b ?c))"),
		}},
		{"standard rules", Rules[Data]()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, res := prove(t, tt.rules, "(+ x (+ x (+ x x)))", "(* 4 x)")
			require.Equal(t, runner.StopHook, res.StopReason.Code, "not proven: %s", res.StopReason)

			ex, err := extract.New[int](r.Graph(), CostFn())
			require.NoError(t, err)
			cost, best, err := ex.FindBest(r.Roots()[0])
			require.NoError(t, err)
			assert.Equal(t, 3, cost)
			assert.Contains(t, []string{"(* 4 x)", "(* x 4)"}, best.String())
		})
	}
}

func TestSimplifyConst(t *testing.T) {
	r, res := prove(t, Rules[Data](), "(+ 1 (- a (* (- 2 1) a)))", "1")
	require.Equal(t, runner.StopHook, res.StopReason.Code, "not proven: %s", res.StopReason)

	d := r.Graph().Data(r.Roots()[0])
	assert.True(t, d.Known)
	assert.Equal(t, int64(1), d.Value)
}

func TestDiffPowerSimple(t *testing.T) {
	_, res := prove(t, Rules[Data](), "(d x (pow x 3))", "(* 3 (pow x 2))")
	require.Equal(t, runner.StopHook, res.StopReason.Code, "not proven: %s", res.StopReason)
}

func TestPowers(t *testing.T) {
	_, res := prove(t, Rules[Data](), "(* (pow 2 x) (pow 2 y))", "(pow 2 (+ x y))")
	assert.Equal(t, runner.StopHook, res.StopReason.Code)
	assert.Len(t, res.Iterations, 1)
}

func TestDifferentiate(t *testing.T) {
	tests := []struct {
		start string
		want  string
	}{
		{"(d x x)", "1"},
		{"(d x y)", "0"},
		{"(d x (+ 1 (* 2 x)))", "2"},
		{"(d x (+ 1 (* y x)))", "y"},
	}
	for _, tt := range tests {
		t.Run(tt.start, func(t *testing.T) {
			r, res := prove(t, Rules[Data](), tt.start, tt.want)
			require.Equal(t, runner.StopHook, res.StopReason.Code, "not proven: %s", res.StopReason)

			ex, err := extract.New[int](r.Graph(), CostFn())
			require.NoError(t, err)
			cost, best, err := ex.FindBest(r.Roots()[0])
			require.NoError(t, err)
			assert.Equal(t, 1, cost)
			assert.Equal(t, tt.want, best.String())
		})
	}
}

func TestUnprovable(t *testing.T) {
	g := NewGraph(egraph.WithLogger(testutil.DiscardLogger()))
	r := runner.New(g, quiet(runner.WithIterLimit[Data](4))...)
	r.AddTerm(term("(+ x y)"))

	res, err := r.Run(context.Background(), Rules[Data]())
	require.NoError(t, err)
	assert.NotEqual(t, runner.StopError, res.StopReason.Code)
	assert.False(t, runner.Proven(g, r.Roots(), term("(/ x y)")))
}
