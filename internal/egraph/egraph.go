package egraph

import (
	"fmt"
	"log/slog"

	"github.com/roach88/eqsat/internal/unionfind"
)

// Option configures an EGraph.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger used for debug events.
// Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// EGraph owns all classes, the hash-cons table and the union-find.
//
// INVARIANTS (when IsClean):
//   - classes[id] != nil exactly when id is a union-find root
//   - every member node and every hash-cons key has canonical children
//   - no two classes contain the same canonical node (congruence closure)
//   - the hash-cons table maps every member node to its class
type EGraph[D any] struct {
	analysis Analysis[D]
	modifier Modifier[D]

	uf         *unionfind.UnionFind
	classes    []*Class[D] // indexed by ID, nil for absorbed ids
	numClasses int
	memo       *memo

	// Pending work drained by Rebuild. dirty is the dirty set of classes
	// touched by a union.
	dirty           []ID
	analysisPending []parentLink
	modifyPending   []ID
	stale           bool // member lists need re-canonicalization

	unions int // successful unions, congruence unions included

	logger *slog.Logger
}

// New creates an empty e-graph using the given analysis.
//
// If the analysis also implements Modifier, Modify is invoked during
// Rebuild for new classes and classes whose data changed.
func New[D any](analysis Analysis[D], opts ...Option) *EGraph[D] {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	g := &EGraph[D]{
		analysis: analysis,
		uf:       unionfind.New(),
		memo:     newMemo(),
		logger:   o.logger,
	}
	if m, ok := analysis.(Modifier[D]); ok {
		g.modifier = m
	}
	return g
}

// Analysis returns the analysis the graph was built with.
func (g *EGraph[D]) Analysis() Analysis[D] {
	return g.analysis
}

// Find returns the canonical id for id, compressing the union-find path.
// Only the mutating owner may call it.
func (g *EGraph[D]) Find(id ID) ID {
	return g.uf.Find(id)
}

// Canonical returns the canonical id for id without mutating anything.
func (g *EGraph[D]) Canonical(id ID) ID {
	return g.uf.FindConst(id)
}

// Class returns the class that id belongs to.
func (g *EGraph[D]) Class(id ID) *Class[D] {
	return g.classes[g.uf.FindConst(id)]
}

// Nodes returns the member nodes of the class id belongs to.
func (g *EGraph[D]) Nodes(id ID) []Node {
	return g.Class(id).Nodes
}

// Data returns the analysis value of the class id belongs to.
func (g *EGraph[D]) Data(id ID) D {
	return g.Class(id).Data
}

// ClassIDs returns the canonical id of every class in ascending order.
func (g *EGraph[D]) ClassIDs() []ID {
	ids := make([]ID, 0, g.numClasses)
	for i, c := range g.classes {
		if c != nil {
			ids = append(ids, ID(i))
		}
	}
	return ids
}

// NumClasses returns the number of distinct classes.
func (g *EGraph[D]) NumClasses() int {
	return g.numClasses
}

// NumNodes returns the number of entries in the hash-cons table, i.e.
// distinct canonical nodes once the graph is clean.
func (g *EGraph[D]) NumNodes() int {
	return g.memo.size
}

// NumIDs returns the number of ids ever issued. It only grows, one per
// node that missed the hash-cons table.
func (g *EGraph[D]) NumIDs() int {
	return g.uf.Len()
}

// NumUnions returns the number of successful unions so far, unions
// performed by Rebuild included.
func (g *EGraph[D]) NumUnions() int {
	return g.unions
}

// IsClean reports whether no repair work is pending.
func (g *EGraph[D]) IsClean() bool {
	return len(g.dirty) == 0 && len(g.analysisPending) == 0 && len(g.modifyPending) == 0 && !g.stale
}

// UnionFind exposes the forest for reports. Callers must not mutate it.
func (g *EGraph[D]) UnionFind() *unionfind.UnionFind {
	return g.uf
}

// canonicalize returns n with every child replaced by its root.
func (g *EGraph[D]) canonicalize(n Node) Node {
	return n.MapChildren(g.uf.Find)
}

// canonicalizeConst is canonicalize without path compression.
func (g *EGraph[D]) canonicalizeConst(n Node) Node {
	return n.MapChildren(g.uf.FindConst)
}

// Lookup returns the class containing n, if any, without mutating the
// graph. Children are canonicalized first.
func (g *EGraph[D]) Lookup(n Node) (ID, bool) {
	id, ok := g.memo.get(g.canonicalizeConst(n))
	if !ok {
		return 0, false
	}
	return g.uf.FindConst(id), true
}

// LookupTerm returns the class representing t, if every subterm is present.
func (g *EGraph[D]) LookupTerm(t *Term) (ID, bool) {
	ids := make([]ID, t.Len())
	for i, n := range t.Nodes() {
		id, ok := g.Lookup(n.MapChildren(func(c ID) ID { return ids[c] }))
		if !ok {
			return 0, false
		}
		ids[i] = id
	}
	if len(ids) == 0 {
		return 0, false
	}
	return ids[len(ids)-1], true
}

// Add hash-conses n and returns the id of its class.
//
// A node already present (modulo canonical children) returns the existing
// class without mutation. Otherwise a new singleton class is created, the
// node is recorded as a parent of each distinct child class, and its data
// is computed with Analysis.Make.
//
// Panics if a child id was never issued.
func (g *EGraph[D]) Add(n Node) ID {
	n = g.canonicalize(n)
	if id, ok := g.memo.get(n); ok {
		return g.uf.Find(id)
	}

	id := g.uf.MakeSet()
	if int(id) != len(g.classes) {
		panic(&InvariantViolationError{Message: fmt.Sprintf("class arena out of step with union-find (%d classes)", len(g.classes)), Class: id})
	}
	cls := &Class[D]{ID: id, Nodes: []Node{n}}
	g.classes = append(g.classes, cls)
	g.numClasses++

	for i, c := range n.Children {
		if repeatedChild(n.Children, i) {
			continue
		}
		child := g.classes[c]
		child.parents = append(child.parents, parentLink{node: n, class: id})
	}

	g.memo.insert(n, id)
	cls.Data = g.analysis.Make(g, n)

	if g.modifier != nil {
		g.modifyPending = append(g.modifyPending, id)
	}
	return id
}

// repeatedChild reports whether children[i] already occurs before i.
func repeatedChild(children []ID, i int) bool {
	for j := 0; j < i; j++ {
		if children[j] == children[i] {
			return true
		}
	}
	return false
}

// AddTerm adds every node of t bottom-up and returns the class of its root.
//
// Panics on an empty term.
func (g *EGraph[D]) AddTerm(t *Term) ID {
	if t.Len() == 0 {
		panic("egraph: AddTerm on empty term")
	}
	ids := make([]ID, t.Len())
	for i, n := range t.Nodes() {
		ids[i] = g.Add(n.MapChildren(func(c ID) ID { return ids[c] }))
	}
	return ids[len(ids)-1]
}

// Union asserts that the classes of a and b are equal.
//
// Returns false with no mutation when they already are. Otherwise the
// analysis values are merged first; if Merge fails the union is aborted and
// an *AnalysisConflictError is returned. On success the smaller union-find
// tree goes under the larger, the absorbed class's nodes and parent links
// are folded into the survivor, and both ids join the dirty set.
// Congruence is NOT restored until Rebuild.
func (g *EGraph[D]) Union(a, b ID) (bool, error) {
	ra, rb := g.uf.Find(a), g.uf.Find(b)
	if ra == rb {
		return false, nil
	}
	ca, cb := g.classes[ra], g.classes[rb]

	merged, changedA, err := g.analysis.Merge(ca.Data, cb.Data)
	if err != nil {
		return false, &AnalysisConflictError{A: ra, B: rb, Err: err}
	}
	_, changedB, err := g.analysis.Merge(cb.Data, ca.Data)
	if err != nil {
		return false, &AnalysisConflictError{A: rb, B: ra, Err: err}
	}

	root, _ := g.uf.Union(ra, rb)
	keep, gone := ca, cb
	if root == rb {
		keep, gone = cb, ca
		changedA, changedB = changedB, changedA
	}

	// Parents computed their data from the old values.
	if changedA {
		g.analysisPending = append(g.analysisPending, keep.parents...)
	}
	if changedB {
		g.analysisPending = append(g.analysisPending, gone.parents...)
	}

	keep.Nodes = append(keep.Nodes, gone.Nodes...)
	keep.parents = append(keep.parents, gone.parents...)
	keep.Data = merged

	g.classes[gone.ID] = nil
	g.numClasses--
	g.unions++
	g.stale = true
	g.dirty = append(g.dirty, a, b)
	if g.modifier != nil {
		g.modifyPending = append(g.modifyPending, root)
	}

	g.logger.Debug("classes merged",
		"root", root,
		"absorbed", gone.ID,
		"nodes", len(keep.Nodes),
		"parents", len(keep.parents),
	)
	return true, nil
}

// Snapshot returns a deep copy of the graph. Analysis values are copied by
// assignment, so they should be immutable values.
func (g *EGraph[D]) Snapshot() *EGraph[D] {
	classes := make([]*Class[D], len(g.classes))
	for i, c := range g.classes {
		if c != nil {
			classes[i] = c.clone()
		}
	}
	return &EGraph[D]{
		analysis:        g.analysis,
		modifier:        g.modifier,
		uf:              g.uf.Clone(),
		classes:         classes,
		numClasses:      g.numClasses,
		memo:            g.memo.clone(),
		dirty:           append([]ID(nil), g.dirty...),
		analysisPending: append([]parentLink(nil), g.analysisPending...),
		modifyPending:   append([]ID(nil), g.modifyPending...),
		stale:           g.stale,
		unions:          g.unions,
		logger:          g.logger,
	}
}

// Restore replaces the state of g with the state of snapshot s.
// s must come from Snapshot and must not be used afterwards.
func (g *EGraph[D]) Restore(s *EGraph[D]) {
	*g = *s
}
