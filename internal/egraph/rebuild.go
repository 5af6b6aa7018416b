package egraph

import (
	"errors"
	"fmt"
	"slices"
)

// RebuildStats summarizes the work done by one Rebuild.
type RebuildStats struct {
	// Touched is the number of dirty classes whose parents were repaired.
	Touched int

	// Repaired is the number of parent links re-canonicalized.
	Repaired int

	// Unions is the number of unions performed to restore congruence.
	Unions int

	// AnalysisUpdates is the number of classes whose data changed while
	// propagating analysis values upward.
	AnalysisUpdates int

	// Modified is the number of Modify invocations.
	Modified int
}

// Rebuild restores congruence closure and analysis consistency.
//
// The dirty set is drained to a fixed point: for every dirty class each
// parent node is re-canonicalized and re-inserted into the hash-cons table,
// and parents that became identical are unioned, which may dirty more
// classes. Analysis values are re-made for parents of classes whose data
// changed, and Modify runs for new or changed classes. Finally the member
// lists of all classes are canonicalized, sorted and deduplicated.
//
// Calling Rebuild on a clean graph does nothing and returns zero stats.
//
// Errors (analysis conflicts met while restoring congruence, Modify
// failures) do not stop the repair; they are joined and returned once the
// fixed point is reached. A conflicting pair stays unmerged, so the graph
// then violates congruence and Check reports it.
func (g *EGraph[D]) Rebuild() (RebuildStats, error) {
	var stats RebuildStats
	if g.IsClean() {
		return stats, nil
	}

	var errs []error
	for len(g.dirty) > 0 || len(g.analysisPending) > 0 || len(g.modifyPending) > 0 {
		for len(g.dirty) > 0 {
			todo := g.dirty
			g.dirty = nil
			seen := make(map[ID]bool, len(todo))
			for _, id := range todo {
				root := g.uf.Find(id)
				if seen[root] {
					continue
				}
				seen[root] = true
				stats.Touched++
				errs = append(errs, g.repair(root, &stats)...)
			}
		}

		for len(g.analysisPending) > 0 {
			last := len(g.analysisPending) - 1
			link := g.analysisPending[last]
			g.analysisPending = g.analysisPending[:last]
			if err := g.propagate(link, &stats); err != nil {
				errs = append(errs, err)
			}
		}

		if len(g.modifyPending) > 0 {
			todo := g.modifyPending
			g.modifyPending = nil
			seen := make(map[ID]bool, len(todo))
			for _, id := range todo {
				root := g.uf.Find(id)
				if seen[root] {
					continue
				}
				seen[root] = true
				stats.Modified++
				if err := g.modifier.Modify(g, root); err != nil {
					errs = append(errs, fmt.Errorf("modify %s: %w", root, err))
				}
			}
		}
	}

	if g.stale {
		g.refreshClasses()
		g.stale = false
	}

	g.logger.Debug("rebuild complete",
		"touched", stats.Touched,
		"repaired", stats.Repaired,
		"unions", stats.Unions,
		"analysis_updates", stats.AnalysisUpdates,
		"classes", g.numClasses,
		"nodes", g.memo.size,
	)
	return stats, errors.Join(errs...)
}

// repair re-canonicalizes the parents of class id.
//
// Every parent node is re-keyed in the hash-cons table under its canonical
// form. Parents that now coincide are congruent and get unioned; the
// surviving link list keeps one link per canonical node.
func (g *EGraph[D]) repair(id ID, stats *RebuildStats) []error {
	cls := g.classes[id]
	if cls == nil {
		panic(&InvariantViolationError{Message: "dirty root has no class", Class: id})
	}

	parents := cls.parents
	for _, p := range parents {
		g.memo.remove(p.node)
		g.memo.insert(g.canonicalize(p.node), g.uf.Find(p.class))
		stats.Repaired++
	}

	var errs []error
	seen := newMemo()
	kept := make([]parentLink, 0, len(parents))
	for _, p := range parents {
		n := g.canonicalize(p.node)
		if prev, ok := seen.get(n); ok {
			merged, err := g.Union(prev, p.class)
			if err != nil {
				errs = append(errs, fmt.Errorf("congruence %s: %w", n, err))
			} else if merged {
				stats.Unions++
			}
			// The first loop may have keyed n to the absorbed class.
			g.memo.insert(n, g.uf.Find(p.class))
			seen.insert(n, g.uf.Find(p.class))
			continue
		}
		seen.insert(n, g.uf.Find(p.class))
		kept = append(kept, parentLink{node: n, class: p.class})
	}

	// Unions above may have folded more links into cls after parents was
	// read; keep them for the next repair.
	if g.uf.Find(id) == id {
		cls.parents = append(kept, cls.parents[len(parents):]...)
	}
	return errs
}

// propagate re-makes the data of a parent node and merges it into the
// parent's class. A change queues the class's own parents.
func (g *EGraph[D]) propagate(link parentLink, stats *RebuildStats) error {
	id := g.uf.Find(link.class)
	cls := g.classes[id]
	data := g.analysis.Make(g, g.canonicalize(link.node))
	merged, changed, err := g.analysis.Merge(cls.Data, data)
	if err != nil {
		return &AnalysisConflictError{A: id, B: id, Err: err}
	}
	if !changed {
		return nil
	}
	cls.Data = merged
	stats.AnalysisUpdates++
	g.analysisPending = append(g.analysisPending, cls.parents...)
	if g.modifier != nil {
		g.modifyPending = append(g.modifyPending, id)
	}
	return nil
}

// refreshClasses canonicalizes, sorts and deduplicates every member list,
// then re-keys the hash-cons table from the members.
//
// repair re-keys a parent node once per child class, and each link holds
// its own copy of the node, so the table can keep half-canonical keys that
// no later repair finds. Rebuilding it from the members drops them.
func (g *EGraph[D]) refreshClasses() {
	m := newMemo()
	for _, cls := range g.classes {
		if cls == nil {
			continue
		}
		for i, n := range cls.Nodes {
			cls.Nodes[i] = g.canonicalize(n)
		}
		slices.SortFunc(cls.Nodes, compareNodes)
		cls.Nodes = slices.CompactFunc(cls.Nodes, Node.Equal)
		for _, n := range cls.Nodes {
			m.insert(n, cls.ID)
		}
	}
	g.memo = m
}
