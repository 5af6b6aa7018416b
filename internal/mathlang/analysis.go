package mathlang

import (
	"fmt"
	"math"

	"github.com/roach88/eqsat/internal/egraph"
)

// Data is the analysis value of a class: its integer value, when known.
type Data struct {
	Value int64
	Known bool
}

func (d Data) String() string {
	if !d.Known {
		return "?"
	}
	return Num(d.Value).String()
}

// Graph is an e-graph over the math language with constant folding.
type Graph = egraph.EGraph[Data]

// NewGraph returns an empty graph with ConstantFolding.
func NewGraph(opts ...egraph.Option) *Graph {
	return egraph.New[Data](ConstantFolding{}, opts...)
}

// ConstantFolding evaluates + - * / over known children.
//
// Division folds only when the divisor is non-zero and divides exactly,
// and no operation folds when the result overflows int64.
// Merging two different known values is a conflict: it means an unsound
// rule equated two distinct integers.
type ConstantFolding struct{}

// Make implements egraph.Analysis.
func (ConstantFolding) Make(g *Graph, n egraph.Node) Data {
	if v, ok := Constant(n); ok {
		return Data{Value: v, Known: true}
	}
	if n.Arity() != 2 {
		return Data{}
	}
	a, b := g.Data(n.Children[0]), g.Data(n.Children[1])
	if n.Op == Mul && ((a.Known && a.Value == 0) || (b.Known && b.Value == 0)) {
		return Data{Value: 0, Known: true}
	}
	if !a.Known || !b.Known {
		return Data{}
	}
	if v, ok := fold(n.Op, a.Value, b.Value); ok {
		return Data{Value: v, Known: true}
	}
	return Data{}
}

// fold evaluates op over x and y. It fails on overflow and on inexact or
// zero division.
func fold(op egraph.Op, x, y int64) (int64, bool) {
	switch op {
	case Add:
		r := x + y
		return r, (y >= 0) == (r >= x)
	case Sub:
		r := x - y
		return r, (y >= 0) == (r <= x)
	case Mul:
		if x == 0 || y == 0 {
			return 0, true
		}
		r := x * y
		if r/y != x || (x == -1 && y == math.MinInt64) || (y == -1 && x == math.MinInt64) {
			return 0, false
		}
		return r, true
	case Div:
		if y == 0 || x%y != 0 || (x == math.MinInt64 && y == -1) {
			return 0, false
		}
		return x / y, true
	}
	return 0, false
}

// Merge implements egraph.Analysis.
func (ConstantFolding) Merge(a, b Data) (Data, bool, error) {
	switch {
	case a.Known && b.Known:
		if a.Value != b.Value {
			return a, false, fmt.Errorf("constant %d merged with %d", a.Value, b.Value)
		}
		return a, false, nil
	case b.Known:
		return b, true, nil
	default:
		return a, false, nil
	}
}

// Modify implements egraph.Modifier: a class with a known value gets the
// literal as a member.
func (ConstantFolding) Modify(g *Graph, id egraph.ID) error {
	d := g.Data(id)
	if !d.Known {
		return nil
	}
	lit := g.Add(egraph.Leaf(Num(d.Value)))
	_, err := g.Union(id, lit)
	return err
}
