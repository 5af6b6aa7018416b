package report

import (
	"fmt"

	"github.com/roach88/eqsat/internal/egraph"
)

// Graph renders a clean graph: size counters, every class with its sorted
// members and, when the analysis data implements fmt.Stringer, its data,
// and the union-find parent of every id ever issued.
//
// Member nodes print child classes as "c<id>", e.g. "(+ c0 c3)".
func Graph[D any](g *egraph.EGraph[D]) Object {
	ids := g.ClassIDs()
	classes := make(Array, len(ids))
	for i, id := range ids {
		cls := g.Class(id)
		nodes := make(Array, len(cls.Nodes))
		for j, n := range cls.Nodes {
			nodes[j] = String(n.String())
		}
		obj := NewObject(
			P("id", Int(id)),
			P("nodes", nodes),
		)
		if s, ok := any(cls.Data).(fmt.Stringer); ok {
			obj["data"] = String(s.String())
		}
		classes[i] = obj
	}

	uf := g.UnionFind()
	parents := make(Array, uf.Len())
	for i := range parents {
		parents[i] = Int(uf.Parent(egraph.ID(i)))
	}

	return NewObject(
		P("classes", classes),
		P("num_classes", Int(g.NumClasses())),
		P("num_nodes", Int(g.NumNodes())),
		P("num_ids", Int(g.NumIDs())),
		P("num_unions", Int(g.NumUnions())),
		P("union_find", parents),
	)
}
