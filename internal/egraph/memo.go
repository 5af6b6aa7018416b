package egraph

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// memoEntry is one hash-consed node and the class that owns it.
type memoEntry struct {
	node Node
	id   ID
}

// memo is the hash-cons table: canonical node -> class id.
//
// Entries are bucketed by a 64-bit xxhash of the operator spelling and the
// child ids, so lookups hash without building a string key. Collisions
// within a bucket are resolved with Node.Equal.
type memo struct {
	buckets map[uint64][]memoEntry
	size    int
}

func newMemo() *memo {
	return &memo{buckets: make(map[uint64][]memoEntry)}
}

// hashNode hashes the operator spelling and the raw child ids.
func hashNode(n Node) uint64 {
	var arr [64]byte
	b := append(arr[:0], n.Op.String()...)
	b = append(b, 0)
	for _, c := range n.Children {
		b = binary.LittleEndian.AppendUint32(b, uint32(c))
	}
	return xxhash.Sum64(b)
}

// get returns the class owning n.
func (m *memo) get(n Node) (ID, bool) {
	for _, e := range m.buckets[hashNode(n)] {
		if e.node.Equal(n) {
			return e.id, true
		}
	}
	return 0, false
}

// insert maps n to id, replacing any previous mapping.
// Returns the previous id if n was already present.
func (m *memo) insert(n Node, id ID) (prev ID, existed bool) {
	h := hashNode(n)
	bucket := m.buckets[h]
	for i, e := range bucket {
		if e.node.Equal(n) {
			bucket[i].id = id
			return e.id, true
		}
	}
	m.buckets[h] = append(bucket, memoEntry{node: n, id: id})
	m.size++
	return 0, false
}

// remove deletes n. Returns false if n was not present.
func (m *memo) remove(n Node) bool {
	h := hashNode(n)
	bucket := m.buckets[h]
	for i, e := range bucket {
		if e.node.Equal(n) {
			last := len(bucket) - 1
			bucket[i] = bucket[last]
			bucket = bucket[:last]
			if len(bucket) == 0 {
				delete(m.buckets, h)
			} else {
				m.buckets[h] = bucket
			}
			m.size--
			return true
		}
	}
	return false
}

// each calls f for every entry. Order is unspecified.
func (m *memo) each(f func(n Node, id ID)) {
	for _, bucket := range m.buckets {
		for _, e := range bucket {
			f(e.node, e.id)
		}
	}
}

func (m *memo) clone() *memo {
	c := &memo{buckets: make(map[uint64][]memoEntry, len(m.buckets)), size: m.size}
	for h, bucket := range m.buckets {
		c.buckets[h] = append([]memoEntry(nil), bucket...)
	}
	return c
}
