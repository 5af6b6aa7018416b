package rewrite

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/eqsat/internal/egraph"
	"github.com/roach88/eqsat/internal/pattern"
)

var (
	plus  = egraph.Symbol("+")
	times = egraph.Symbol("*")
	zero  = egraph.Symbol("0")
)

type unit = egraph.Unit

func newGraph() *egraph.EGraph[unit] {
	return egraph.NewPlain(egraph.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func sym(g *egraph.EGraph[unit], name string) egraph.ID {
	return g.Add(egraph.Leaf(egraph.Symbol(name)))
}

func commute() *Rewrite[unit] {
	return MustNew[unit]("comm-add",
		pattern.Apply(plus, pattern.V("?a"), pattern.V("?b")),
		pattern.Apply(plus, pattern.V("?b"), pattern.V("?a")),
	)
}

func TestNew_RejectsUnboundRHSVariable(t *testing.T) {
	_, err := New[unit]("bad",
		pattern.Apply(plus, pattern.V("?a"), zeroLeaf()),
		pattern.Apply(times, pattern.V("?a"), pattern.V("?c")),
	)
	require.Error(t, err)
	assert.True(t, IsMalformedPattern(err))

	var me *MalformedPatternError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "bad", me.Rule)
	assert.Equal(t, []pattern.Var{"?c"}, me.Missing)
	assert.Equal(t, ErrCodeMalformedPattern, me.Code())
}

func zeroLeaf() *pattern.Pattern { return pattern.Leaf(zero) }

func TestMustNew_Panics(t *testing.T) {
	assert.Panics(t, func() {
		MustNew[unit]("bad", pattern.V("?a"), pattern.V("?b"))
	})
}

func TestRewrite_String(t *testing.T) {
	assert.Equal(t, "comm-add: (+ ?a ?b) => (+ ?b ?a)", commute().String())
}

// TestRewrite_CommuteScenario applies a+b => b+a once: both orders end up
// in one class.
func TestRewrite_CommuteScenario(t *testing.T) {
	g := newGraph()
	a := sym(g, "a")
	b := sym(g, "b")
	ab := g.Add(egraph.NewNode(plus, a, b))

	rw := commute()
	matches := rw.Search(g, 0)
	require.Len(t, matches, 1)

	n, err := rw.Apply(g, matches)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = g.Rebuild()
	require.NoError(t, err)

	ba, ok := g.Lookup(egraph.NewNode(plus, b, a))
	require.True(t, ok)
	assert.Equal(t, g.Find(ab), ba)

	// A second application changes nothing.
	n, err = rw.Apply(g, rw.Search(g, 0))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestNewBidirectional(t *testing.T) {
	rws, err := NewBidirectional[unit]("mul-zero",
		pattern.Apply(times, pattern.V("?a"), zeroLeaf()),
		pattern.Apply(times, zeroLeaf(), pattern.V("?a")),
	)
	require.NoError(t, err)
	require.Len(t, rws, 2)
	assert.Equal(t, "mul-zero", rws[0].Name)
	assert.Equal(t, "mul-zero-rev", rws[1].Name)

	_, err = NewBidirectional[unit]("one-way",
		pattern.Apply(times, pattern.V("?a"), zeroLeaf()),
		zeroLeaf(),
	)
	require.Error(t, err, "the reverse direction binds nothing")
	assert.True(t, IsMalformedPattern(err))
}

func TestConditional_FiltersSubstitutions(t *testing.T) {
	g := newGraph()
	a := sym(g, "a")
	z := sym(g, "0")
	az := g.Add(egraph.NewNode(plus, a, z))
	aa := g.Add(egraph.NewNode(plus, a, a))

	notZero := ConditionFunc[unit]{
		Name: "?b != 0",
		Fn: func(g *egraph.EGraph[unit], _ egraph.ID, s pattern.Subst) bool {
			return g.Canonical(s.MustGet("?b")) != z
		},
		Variables: []pattern.Var{"?b"},
	}
	rw, err := NewConditional[unit]("comm-nonzero",
		pattern.Apply(plus, pattern.V("?a"), pattern.V("?b")),
		pattern.Apply(plus, pattern.V("?b"), pattern.V("?a")),
		notZero,
	)
	require.NoError(t, err)
	assert.Equal(t, "comm-nonzero: (+ ?a ?b) => (+ ?b ?a) if ?b != 0", rw.String())

	n, err := rw.Apply(g, rw.Search(g, 0))
	require.NoError(t, err)
	assert.Zero(t, n, "(+ a a) is its own commutation and (+ a 0) is filtered")

	_, ok := g.Lookup(egraph.NewNode(plus, z, a))
	assert.False(t, ok)
	assert.NotEqual(t, g.Find(az), g.Find(aa))
}

func TestConditional_VarsIncludeConditionVars(t *testing.T) {
	_, err := NewConditional[unit]("cond",
		pattern.Apply(plus, pattern.V("?a"), pattern.V("?b")),
		pattern.V("?a"),
		ConditionEqual[unit]{A: pattern.V("?b"), B: pattern.V("?c")},
	)
	require.Error(t, err)
	var me *MalformedPatternError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, []pattern.Var{"?c"}, me.Missing)
}

func TestConditionEqual(t *testing.T) {
	g := newGraph()
	a := sym(g, "a")
	b := sym(g, "b")
	c := sym(g, "c")
	_, err := g.Union(a, b)
	require.NoError(t, err)
	_, err = g.Rebuild()
	require.NoError(t, err)

	cond := ConditionEqual[unit]{A: pattern.V("?x"), B: pattern.V("?y")}
	assert.True(t, cond.Check(g, a, pattern.NewSubst(map[pattern.Var]egraph.ID{"?x": a, "?y": b})))
	assert.False(t, cond.Check(g, a, pattern.NewSubst(map[pattern.Var]egraph.ID{"?x": a, "?y": c})))

	absent := ConditionEqual[unit]{A: pattern.Apply(plus, pattern.V("?x"), pattern.V("?x")), B: pattern.V("?x")}
	assert.False(t, absent.Check(g, a, pattern.NewSubst(map[pattern.Var]egraph.ID{"?x": a})))
	assert.Equal(t, 3, g.NumIDs(), "conditions never add nodes")
}

func TestSearcherFunc_ApplierFunc(t *testing.T) {
	g := newGraph()
	a := sym(g, "a")
	b := sym(g, "b")

	s := SearcherFunc[unit]{
		Fn: func(g *egraph.EGraph[unit], _ int) []pattern.Match {
			return []pattern.Match{{Class: a, Substs: []pattern.Subst{pattern.NewSubst(map[pattern.Var]egraph.ID{"?o": b})}}}
		},
		Variables: []pattern.Var{"?o"},
	}
	ap := ApplierFunc[unit]{
		Fn: func(g *egraph.EGraph[unit], ms []pattern.Match, _ string) (int, error) {
			n := 0
			for _, m := range ms {
				for _, sub := range m.Substs {
					if ok, err := g.Union(m.Class, sub.MustGet("?o")); err != nil {
						return n, err
					} else if ok {
						n++
					}
				}
			}
			return n, nil
		},
		Variables: []pattern.Var{"?o"},
	}
	rw, err := NewWith[unit]("merge-ab", s, ap)
	require.NoError(t, err)

	n, err := rw.Apply(g, rw.Search(g, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, g.Find(a), g.Find(b))
}

type tag struct{ name string }

type tagAnalysis struct{}

var errTagClash = errors.New("tags clash")

func (tagAnalysis) Make(_ *egraph.EGraph[tag], n egraph.Node) tag {
	if n.IsLeaf() {
		return tag{name: n.Op.String()}
	}
	return tag{}
}

func (tagAnalysis) Merge(a, b tag) (tag, bool, error) {
	if a.name != "" && b.name != "" && a.name != b.name {
		return a, false, errTagClash
	}
	if a.name == "" && b.name != "" {
		return b, true, nil
	}
	return a, false, nil
}

func TestPatternApplier_WrapsUnionError(t *testing.T) {
	g := egraph.New[tag](tagAnalysis{}, egraph.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	g.Add(egraph.Leaf(egraph.Symbol("x")))

	rw := MustNew[tag]("x-is-y", pattern.Leaf(egraph.Symbol("x")), pattern.Leaf(egraph.Symbol("y")))
	_, err := rw.Apply(g, rw.Search(g, 0))
	require.Error(t, err)
	assert.True(t, IsApplyError(err))
	assert.True(t, egraph.IsAnalysisConflict(err))
	assert.ErrorIs(t, err, errTagClash)
}

func TestPatternApplier_ConflictSkipsOnlyItsUnion(t *testing.T) {
	g := egraph.New[tag](tagAnalysis{}, egraph.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	x := g.Add(egraph.Leaf(egraph.Symbol("x")))
	y := g.Add(egraph.Leaf(egraph.Symbol("y")))
	kx := g.Add(egraph.NewNode(egraph.Symbol("k"), x))

	// Every class is unioned with y; only x clashes.
	rw := MustNew[tag]("all-y", pattern.V("?a"), pattern.Leaf(egraph.Symbol("y")))
	n, err := rw.Apply(g, rw.Search(g, 0))
	require.Error(t, err)
	assert.True(t, egraph.IsAnalysisConflict(err))
	assert.Equal(t, 1, n)

	assert.Equal(t, g.Find(y), g.Find(kx), "matches after the conflict are still applied")
	assert.NotEqual(t, g.Find(x), g.Find(y))
}
