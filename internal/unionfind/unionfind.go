// Package unionfind implements the disjoint-set forest that assigns
// canonical class ids in the e-graph.
//
// Ids are dense indices into flat slices. An id never becomes invalid:
// once issued it always resolves, through Find, to the root of the set that
// absorbed it. Sets only ever merge.
package unionfind

import "fmt"

// ID is an opaque handle issued by MakeSet.
type ID uint32

// String renders the id the way it appears in reports and logs.
func (id ID) String() string {
	return fmt.Sprintf("c%d", uint32(id))
}

// UnionFind is a disjoint-set forest with path compression and
// union by size.
//
// Thread-safety: Find mutates (path compression) and must only be called by
// the single owner. FindConst never writes and may be called by concurrent
// readers as long as nobody mutates.
type UnionFind struct {
	parents []ID
	sizes   []uint32
}

// New creates an empty union-find.
func New() *UnionFind {
	return &UnionFind{}
}

// MakeSet creates a new singleton set and returns its id.
func (uf *UnionFind) MakeSet() ID {
	id := ID(len(uf.parents))
	uf.parents = append(uf.parents, id)
	uf.sizes = append(uf.sizes, 1)
	return id
}

// Len returns the number of ids ever issued.
func (uf *UnionFind) Len() int {
	return len(uf.parents)
}

// Find returns the root of the set containing id and repoints every entry
// visited on the way directly at the root.
//
// Panics if id was never issued.
func (uf *UnionFind) Find(id ID) ID {
	root := uf.FindConst(id)
	for id != root {
		next := uf.parents[id]
		uf.parents[id] = root
		id = next
	}
	return root
}

// FindConst returns the root of the set containing id without compressing
// the path.
//
// Panics if id was never issued.
func (uf *UnionFind) FindConst(id ID) ID {
	if int(id) >= len(uf.parents) {
		panic(fmt.Sprintf("unionfind: unknown id %d (issued %d)", id, len(uf.parents)))
	}
	for uf.parents[id] != id {
		id = uf.parents[id]
	}
	return id
}

// Union merges the sets containing a and b.
//
// The smaller tree is attached under the larger one, ties keep a as root.
// Returns the resulting root and whether the sets were distinct.
func (uf *UnionFind) Union(a, b ID) (root ID, changed bool) {
	ra, rb := uf.Find(a), uf.Find(b)
	if ra == rb {
		return ra, false
	}
	if uf.sizes[ra] < uf.sizes[rb] {
		ra, rb = rb, ra
	}
	uf.parents[rb] = ra
	uf.sizes[ra] += uf.sizes[rb]
	return ra, true
}

// Size returns the number of ids in the set containing id.
func (uf *UnionFind) Size(id ID) int {
	return int(uf.sizes[uf.FindConst(id)])
}

// Parent returns the raw parent pointer of id. Used by reports that dump
// the forest structure.
func (uf *UnionFind) Parent(id ID) ID {
	return uf.parents[id]
}

// Roots returns every root in ascending order.
func (uf *UnionFind) Roots() []ID {
	var roots []ID
	for i, p := range uf.parents {
		if ID(i) == p {
			roots = append(roots, p)
		}
	}
	return roots
}

// Clone returns an independent copy of the forest.
func (uf *UnionFind) Clone() *UnionFind {
	return &UnionFind{
		parents: append([]ID(nil), uf.parents...),
		sizes:   append([]uint32(nil), uf.sizes...),
	}
}
