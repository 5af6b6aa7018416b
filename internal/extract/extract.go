package extract

import (
	"errors"
	"fmt"

	"github.com/roach88/eqsat/internal/egraph"
)

var (
	// ErrDirtyGraph is returned by New when the graph has pending repairs.
	ErrDirtyGraph = errors.New("graph is not clean, call Rebuild first")

	// ErrNoTerm is returned when a class has no finite-cost term.
	ErrNoTerm = errors.New("class has no finite term")
)

// best is the cheapest known node of a class.
type best[C Cost] struct {
	cost C
	node egraph.Node
}

// Reader is the graph surface extraction needs. *egraph.EGraph satisfies
// it for any analysis.
type Reader interface {
	IsClean() bool
	Canonical(id egraph.ID) egraph.ID
	ClassIDs() []egraph.ID
	Nodes(id egraph.ID) []egraph.Node
}

// Extractor holds the best node of every class under one cost function.
type Extractor[C Cost] struct {
	graph Reader
	best  map[egraph.ID]best[C]
	cf    CostFunction[C]
}

// New computes the best node of every class of g under cf.
//
// Ties keep the node found first, scanning classes and their sorted
// members in ascending order.
func New[C Cost](g Reader, cf CostFunction[C]) (*Extractor[C], error) {
	if !g.IsClean() {
		return nil, ErrDirtyGraph
	}
	e := &Extractor[C]{
		graph: g,
		best:  make(map[egraph.ID]best[C]),
		cf:    cf,
	}
	e.relax()
	return e, nil
}

// relax runs passes until no class improves.
func (e *Extractor[C]) relax() {
	ids := e.graph.ClassIDs()
	for changed := true; changed; {
		changed = false
		for _, id := range ids {
			for _, n := range e.graph.Nodes(id) {
				cost, ok := e.nodeCost(n)
				if !ok {
					continue
				}
				prev, known := e.best[id]
				if !known || cost < prev.cost {
					e.best[id] = best[C]{cost: cost, node: n}
					changed = true
				}
			}
		}
	}
}

// nodeCost returns the cost of n, or false while a child has none.
func (e *Extractor[C]) nodeCost(n egraph.Node) (C, bool) {
	for _, c := range n.Children {
		if _, ok := e.best[e.graph.Canonical(c)]; !ok {
			return 0, false
		}
	}
	return e.cf.Cost(n, func(c egraph.ID) C {
		return e.best[e.graph.Canonical(c)].cost
	}), true
}

// FindBestCost returns the cost of the best term of the class of id.
func (e *Extractor[C]) FindBestCost(id egraph.ID) (C, bool) {
	b, ok := e.best[e.graph.Canonical(id)]
	return b.cost, ok
}

// FindBestNode returns the cheapest member node of the class of id.
func (e *Extractor[C]) FindBestNode(id egraph.ID) (egraph.Node, bool) {
	b, ok := e.best[e.graph.Canonical(id)]
	return b.node, ok
}

// FindBest returns the cost and the best term of the class of id.
// Subterms shared by several parents appear once in the term.
func (e *Extractor[C]) FindBest(id egraph.ID) (C, *egraph.Term, error) {
	root := e.graph.Canonical(id)
	b, ok := e.best[root]
	if !ok {
		return 0, nil, fmt.Errorf("extract %s: %w", root, ErrNoTerm)
	}
	term := egraph.NewTerm()
	if _, err := e.build(term, root, make(map[egraph.ID]egraph.ID), make(map[egraph.ID]bool)); err != nil {
		return 0, nil, err
	}
	return b.cost, term, nil
}

// build appends the best term of class id to t and returns its position.
func (e *Extractor[C]) build(t *egraph.Term, id egraph.ID, done map[egraph.ID]egraph.ID, active map[egraph.ID]bool) (egraph.ID, error) {
	if pos, ok := done[id]; ok {
		return pos, nil
	}
	if active[id] {
		// Only reachable with a cost function that is not increasing.
		return 0, fmt.Errorf("extract %s: best nodes form a cycle: %w", id, ErrNoTerm)
	}
	active[id] = true
	defer delete(active, id)

	n := e.best[id].node
	children := make([]egraph.ID, len(n.Children))
	for i, c := range n.Children {
		pos, err := e.build(t, e.graph.Canonical(c), done, active)
		if err != nil {
			return 0, err
		}
		children[i] = pos
	}
	pos := t.Add(egraph.NewNode(n.Op, children...))
	done[id] = pos
	return pos, nil
}
