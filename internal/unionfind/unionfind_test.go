package unionfind

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeSets(uf *UnionFind, n int) []ID {
	ids := make([]ID, n)
	for i := range ids {
		ids[i] = uf.MakeSet()
	}
	return ids
}

// TestMakeSet_Singletons verifies fresh ids are their own roots.
func TestMakeSet_Singletons(t *testing.T) {
	uf := New()
	ids := makeSets(uf, 4)

	for i, id := range ids {
		assert.Equal(t, ID(i), id)
		assert.Equal(t, id, uf.Find(id))
		assert.Equal(t, 1, uf.Size(id))
	}
	assert.Equal(t, 4, uf.Len())
	assert.Equal(t, ids, uf.Roots())
}

// TestUnion_ReportsChange verifies changed is false for already-equal ids.
func TestUnion_ReportsChange(t *testing.T) {
	uf := New()
	ids := makeSets(uf, 3)

	root, changed := uf.Union(ids[0], ids[1])
	require.True(t, changed)
	assert.Equal(t, uf.Find(ids[0]), root)
	assert.Equal(t, uf.Find(ids[1]), root)

	root2, changed := uf.Union(ids[1], ids[0])
	assert.False(t, changed)
	assert.Equal(t, root, root2)

	assert.NotEqual(t, uf.Find(ids[2]), root)
}

// TestUnion_SmallerUnderLarger verifies union by size picks the larger root.
func TestUnion_SmallerUnderLarger(t *testing.T) {
	uf := New()
	ids := makeSets(uf, 4)

	// {1,2,3} rooted at 1
	uf.Union(ids[1], ids[2])
	uf.Union(ids[1], ids[3])
	require.Equal(t, 3, uf.Size(ids[3]))

	// 0 is smaller, so it goes under 1 even though it is the first argument.
	root, changed := uf.Union(ids[0], ids[3])
	require.True(t, changed)
	assert.Equal(t, ids[1], root)
	assert.Equal(t, 4, uf.Size(ids[0]))
}

// TestFind_CompressesPath verifies every visited entry points at the root.
func TestFind_CompressesPath(t *testing.T) {
	uf := New()
	ids := makeSets(uf, 5)

	// Build a chain by hand: 4 -> 3 -> 2 -> 1 -> 0.
	for i := 1; i < len(ids); i++ {
		uf.parents[ids[i]] = ids[i-1]
	}

	assert.Equal(t, ids[0], uf.FindConst(ids[4]))
	assert.Equal(t, ids[3], uf.Parent(ids[4]), "FindConst must not compress")

	assert.Equal(t, ids[0], uf.Find(ids[4]))
	for _, id := range ids {
		assert.Equal(t, ids[0], uf.Parent(id))
	}
}

// TestClone_Independent verifies mutations on a clone do not leak back.
func TestClone_Independent(t *testing.T) {
	uf := New()
	ids := makeSets(uf, 2)

	c := uf.Clone()
	c.Union(ids[0], ids[1])

	assert.NotEqual(t, uf.Find(ids[0]), uf.Find(ids[1]))
	assert.Equal(t, c.Find(ids[0]), c.Find(ids[1]))
}

// TestFind_UnknownIDPanics verifies ids never issued are rejected.
func TestFind_UnknownIDPanics(t *testing.T) {
	uf := New()
	assert.Panics(t, func() { uf.Find(7) })
}

func TestID_String(t *testing.T) {
	assert.Equal(t, "c12", ID(12).String())
}
