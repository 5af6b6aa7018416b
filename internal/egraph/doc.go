// Package egraph implements the e-graph: a set of equivalence classes of
// nodes kept closed under congruence.
//
// ARCHITECTURE:
//
// Classes live in a flat arena indexed by ID. Every reference (node
// children, parent links) is an ID resolved through the union-find, never a
// pointer, so the cycles introduced by rewriting carry no ownership problem.
//
// Mutation Model:
//
//   - Add hash-conses a node: a canonical node already present returns its
//     class, otherwise a singleton class is created.
//   - Union merges two classes eagerly in the union-find and folds the
//     absorbed class into the survivor, but does NOT restore congruence.
//     The touched class is pushed onto the dirty set instead.
//   - Rebuild drains the dirty set to a fixed point: parents of merged
//     classes are re-canonicalized and re-hash-consed, and collisions cause
//     further unions. Analysis data is propagated upward in the same loop.
//
// Searches and extraction are only meaningful on a clean graph (IsClean).
// The runner rebuilds once per iteration, after all rewrites were applied.
//
// Thread-safety: an EGraph has exactly one mutating owner. The read-only
// accessors that never compress union-find paths (Canonical, Class, Nodes,
// ClassIDs, Lookup) may be called concurrently while nobody mutates; the
// runner's parallel search phase relies on this.
package egraph
