package extract

import (
	"golang.org/x/exp/constraints"

	"github.com/roach88/eqsat/internal/egraph"
)

// Cost is the numeric type of a cost function.
type Cost interface {
	constraints.Integer | constraints.Float
}

// CostFunction assigns a cost to a node given the best costs of its
// children.
//
// For extraction to be well defined the cost of a node should be greater
// than the cost of each child; all built-in functions satisfy this.
type CostFunction[C Cost] interface {
	Cost(n egraph.Node, costs func(egraph.ID) C) C
}

// CostFunc adapts a function to CostFunction.
type CostFunc[C Cost] func(n egraph.Node, costs func(egraph.ID) C) C

// Cost implements CostFunction.
func (f CostFunc[C]) Cost(n egraph.Node, costs func(egraph.ID) C) C {
	return f(n, costs)
}

// AstSize counts nodes: 1 plus the size of every child.
type AstSize struct{}

// Cost implements CostFunction.
func (AstSize) Cost(n egraph.Node, costs func(egraph.ID) int) int {
	total := 1
	for _, c := range n.Children {
		total += costs(c)
	}
	return total
}

// AstDepth measures height: 1 plus the deepest child.
type AstDepth struct{}

// Cost implements CostFunction.
func (AstDepth) Cost(n egraph.Node, costs func(egraph.ID) int) int {
	deepest := 0
	for _, c := range n.Children {
		deepest = max(deepest, costs(c))
	}
	return 1 + deepest
}

// OpCost weighs each operator by name and adds the children's costs.
// Operators missing from Weights cost Default.
type OpCost[C Cost] struct {
	Weights map[string]C
	Default C
}

// Cost implements CostFunction.
func (o OpCost[C]) Cost(n egraph.Node, costs func(egraph.ID) C) C {
	w, ok := o.Weights[n.Op.String()]
	if !ok {
		w = o.Default
	}
	for _, c := range n.Children {
		w += costs(c)
	}
	return w
}
