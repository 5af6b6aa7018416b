package egraph

// Analysis attaches an abstract value of type D to every class.
//
// Make computes the value for a freshly added node from the data of its
// children (read it with EGraph.Data); it must not mutate the graph.
//
// Merge combines the values of two classes being unioned. It must be
// commutative and return something at least as informative as either
// input. The bool reports whether the result differs from a; it drives
// upward propagation to parents. A non-nil error means the two values
// cannot be reconciled: the union is aborted and the error surfaces as an
// *AnalysisConflictError.
type Analysis[D any] interface {
	Make(g *EGraph[D], n Node) D
	Merge(a, b D) (D, bool, error)
}

// Modifier is an optional extension of Analysis. Modify runs during Rebuild
// for every class that was created or whose data changed, and may Add nodes
// or Union classes; the resulting work is repaired in the same Rebuild.
type Modifier[D any] interface {
	Modify(g *EGraph[D], id ID) error
}

// Unit is the data carried by NoAnalysis.
type Unit = struct{}

// NoAnalysis is the default analysis for graphs that need no abstract
// interpretation.
type NoAnalysis struct{}

// Make implements Analysis.
func (NoAnalysis) Make(*EGraph[Unit], Node) Unit { return Unit{} }

// Merge implements Analysis. It never changes anything.
func (NoAnalysis) Merge(a, _ Unit) (Unit, bool, error) { return a, false, nil }

// NewPlain returns an e-graph without analysis.
func NewPlain(opts ...Option) *EGraph[Unit] {
	return New[Unit](NoAnalysis{}, opts...)
}
