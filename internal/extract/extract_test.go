package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/eqsat/internal/egraph"
	"github.com/roach88/eqsat/internal/pattern"
	"github.com/roach88/eqsat/internal/rewrite"
	"github.com/roach88/eqsat/internal/runner"
	"github.com/roach88/eqsat/internal/testutil"
)

type unit = egraph.Unit

var (
	plus  = egraph.Symbol("+")
	times = egraph.Symbol("*")
)

func newGraph() *egraph.EGraph[unit] {
	return egraph.NewPlain(egraph.WithLogger(testutil.DiscardLogger()))
}

func leaf(name string) egraph.Node {
	return egraph.Leaf(egraph.Symbol(name))
}

func saturate(t *testing.T, g *egraph.EGraph[unit], rules ...*rewrite.Rewrite[unit]) {
	t.Helper()
	r := runner.New(g,
		runner.WithLogger[unit](testutil.DiscardLogger()),
		runner.WithClock[unit](testutil.NewManualClock(0)),
		runner.WithRunIDGenerator[unit](testutil.NewFixedRunIDGenerator("")),
	)
	res, err := r.Run(context.Background(), rules)
	require.NoError(t, err)
	require.Equal(t, runner.StopSaturated, res.StopReason.Code)
}

func TestNew_RequiresCleanGraph(t *testing.T) {
	g := newGraph()
	_, err := g.Union(g.Add(leaf("a")), g.Add(leaf("b")))
	require.NoError(t, err)

	_, err = New[int](g, AstSize{})
	assert.ErrorIs(t, err, ErrDirtyGraph)
}

// TestFindBest_CommuteScenario extracts a+b after saturating with
// commutativity: either order costs 3.
func TestFindBest_CommuteScenario(t *testing.T) {
	g := newGraph()
	a := g.Add(leaf("a"))
	b := g.Add(leaf("b"))
	root := g.Add(egraph.NewNode(plus, a, b))

	saturate(t, g, rewrite.MustNew[unit]("comm-add",
		pattern.Apply(plus, pattern.V("?x"), pattern.V("?y")),
		pattern.Apply(plus, pattern.V("?y"), pattern.V("?x")),
	))
	require.Len(t, g.Nodes(root), 2)

	ex, err := New[int](g, AstSize{})
	require.NoError(t, err)
	cost, term, err := ex.FindBest(root)
	require.NoError(t, err)
	assert.Equal(t, 3, cost)
	assert.Equal(t, "(+ a b)", term.String(), "ties keep the first member")
}

// TestFindBest_FoldingScenario extracts (* 2 3) from (* 2 (+ 1 2)) once
// (+ 1 2) => 3 has fired.
func TestFindBest_FoldingScenario(t *testing.T) {
	term := egraph.NewTerm()
	two := term.Add(leaf("2"))
	one := term.Add(leaf("1"))
	two2 := term.Add(leaf("2"))
	sum := term.Add(egraph.NewNode(plus, one, two2))
	term.Add(egraph.NewNode(times, two, sum))
	require.Equal(t, 5, term.Size())

	g := newGraph()
	root := g.AddTerm(term)
	saturate(t, g, rewrite.MustNew[unit]("fold-1-2",
		pattern.Apply(plus, pattern.Leaf(egraph.Symbol("1")), pattern.Leaf(egraph.Symbol("2"))),
		pattern.Leaf(egraph.Symbol("3")),
	))

	ex, err := New[int](g, AstSize{})
	require.NoError(t, err)
	cost, best, err := ex.FindBest(root)
	require.NoError(t, err)
	assert.Equal(t, 3, cost)
	assert.Equal(t, "(* 2 3)", best.String())
	assert.Equal(t, 3, best.Len())
}

func TestFindBest_SharedSubtermsAppearOnce(t *testing.T) {
	g := newGraph()
	x := g.Add(leaf("x"))
	sq := g.Add(egraph.NewNode(times, x, x))
	root := g.Add(egraph.NewNode(plus, sq, sq))

	ex, err := New[int](g, AstSize{})
	require.NoError(t, err)
	cost, term, err := ex.FindBest(root)
	require.NoError(t, err)

	assert.Equal(t, 7, cost, "tree size counts every occurrence")
	assert.Equal(t, 3, term.Len(), "term stores x, (* x x) and the root once")
	assert.Equal(t, "(+ (* x x) (* x x))", term.String())
}

func TestFindBest_SelfLoopClass(t *testing.T) {
	g := newGraph()
	x := g.Add(leaf("x"))
	fx := g.Add(egraph.NewNode(egraph.Symbol("f"), x))
	_, err := g.Union(x, fx)
	require.NoError(t, err)
	_, err = g.Rebuild()
	require.NoError(t, err)

	ex, err := New[int](g, AstSize{})
	require.NoError(t, err)
	cost, term, err := ex.FindBest(fx)
	require.NoError(t, err)
	assert.Equal(t, 1, cost)
	assert.Equal(t, "x", term.String())

	n, ok := ex.FindBestNode(x)
	require.True(t, ok)
	assert.True(t, n.IsLeaf())
}

func TestCostFunctions(t *testing.T) {
	g := newGraph()
	a := g.Add(leaf("a"))
	b := g.Add(leaf("b"))
	inner := g.Add(egraph.NewNode(times, a, b))
	root := g.Add(egraph.NewNode(plus, inner, a))

	tests := []struct {
		name string
		cost func() (float64, bool)
		want float64
	}{
		{"ast size", func() (float64, bool) {
			ex, err := New[int](g, AstSize{})
			require.NoError(t, err)
			c, ok := ex.FindBestCost(root)
			return float64(c), ok
		}, 5},
		{"ast depth", func() (float64, bool) {
			ex, err := New[int](g, AstDepth{})
			require.NoError(t, err)
			c, ok := ex.FindBestCost(root)
			return float64(c), ok
		}, 3},
		{"op cost", func() (float64, bool) {
			ex, err := New[float64](g, OpCost[float64]{Weights: map[string]float64{"*": 2.5}, Default: 1})
			require.NoError(t, err)
			return ex.FindBestCost(root)
		}, 1 + 2.5 + 1 + 1 + 1},
		{"cost func", func() (float64, bool) {
			ex, err := New[float64](g, CostFunc[float64](func(n egraph.Node, costs func(egraph.ID) float64) float64 {
				total := 0.5
				for _, c := range n.Children {
					total += costs(c)
				}
				return total
			}))
			require.NoError(t, err)
			return ex.FindBestCost(root)
		}, 2.5},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := tc.cost()
			require.True(t, ok)
			assert.InDelta(t, tc.want, got, 1e-9)
		})
	}
}

func TestFindBest_PrefersCheaperMember(t *testing.T) {
	g := newGraph()
	x := g.Add(leaf("x"))
	zero := g.Add(leaf("0"))
	sum := g.Add(egraph.NewNode(plus, x, zero))
	_, err := g.Union(sum, x)
	require.NoError(t, err)
	_, err = g.Rebuild()
	require.NoError(t, err)

	ex, err := New[int](g, AstSize{})
	require.NoError(t, err)
	_, term, err := ex.FindBest(sum)
	require.NoError(t, err)
	assert.Equal(t, "x", term.String())
}
