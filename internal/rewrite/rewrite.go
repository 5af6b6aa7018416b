package rewrite

import (
	"errors"
	"fmt"

	"github.com/roach88/eqsat/internal/egraph"
	"github.com/roach88/eqsat/internal/pattern"
)

// Searcher finds matches in a graph.
//
// Search must not mutate g: the runner may call the searchers of several
// rules concurrently. Use only the read-only accessors (Canonical, Class,
// Nodes, Data, ClassIDs, Lookup). limit <= 0 means unlimited; otherwise
// the searcher may stop once it found limit substitutions.
type Searcher[D any] interface {
	Search(g *egraph.EGraph[D], limit int) []pattern.Match
	Vars() []pattern.Var
}

// Applier adds the equivalences justified by matches and returns the
// number of unions that changed the graph.
type Applier[D any] interface {
	Apply(g *egraph.EGraph[D], matches []pattern.Match, rule string) (int, error)
	Vars() []pattern.Var
}

// Rewrite is a named searcher/applier pair.
type Rewrite[D any] struct {
	Name     string
	Searcher Searcher[D]
	Applier  Applier[D]
}

// New builds the rule lhs => rhs.
//
// Returns a *MalformedPatternError if rhs uses a variable lhs does not
// bind.
func New[D any](name string, lhs, rhs *pattern.Pattern) (*Rewrite[D], error) {
	return NewWith[D](name, PatternSearcher[D]{Pattern: lhs}, PatternApplier[D]{Pattern: rhs})
}

// MustNew is New that panics on error, for statically known rule sets.
func MustNew[D any](name string, lhs, rhs *pattern.Pattern) *Rewrite[D] {
	rw, err := New[D](name, lhs, rhs)
	if err != nil {
		panic(err)
	}
	return rw
}

// NewWith builds a rule from any searcher and applier, checking that the
// applier's variables are bound by the searcher.
func NewWith[D any](name string, s Searcher[D], a Applier[D]) (*Rewrite[D], error) {
	bound := make(map[pattern.Var]bool)
	for _, v := range s.Vars() {
		bound[v] = true
	}
	var missing []pattern.Var
	for _, v := range a.Vars() {
		if !bound[v] {
			missing = append(missing, v)
		}
	}
	if len(missing) > 0 {
		return nil, &MalformedPatternError{Rule: name, Missing: missing}
	}
	return &Rewrite[D]{Name: name, Searcher: s, Applier: a}, nil
}

// NewBidirectional builds lhs => rhs named name and rhs => lhs named
// name + "-rev". Both sides must bind the same variables.
func NewBidirectional[D any](name string, lhs, rhs *pattern.Pattern) ([]*Rewrite[D], error) {
	fwd, err := New[D](name, lhs, rhs)
	if err != nil {
		return nil, err
	}
	rev, err := New[D](name+"-rev", rhs, lhs)
	if err != nil {
		return nil, err
	}
	return []*Rewrite[D]{fwd, rev}, nil
}

// Search runs the searcher. limit <= 0 means unlimited.
func (r *Rewrite[D]) Search(g *egraph.EGraph[D], limit int) []pattern.Match {
	return r.Searcher.Search(g, limit)
}

// Apply runs the applier over matches found by Search.
func (r *Rewrite[D]) Apply(g *egraph.EGraph[D], matches []pattern.Match) (int, error) {
	return r.Applier.Apply(g, matches, r.Name)
}

// String renders the rule, e.g. "comm-add: (+ ?a ?b) => (+ ?b ?a)".
func (r *Rewrite[D]) String() string {
	return fmt.Sprintf("%s: %v => %v", r.Name, r.Searcher, r.Applier)
}

// PatternSearcher searches for a pattern.
type PatternSearcher[D any] struct {
	Pattern *pattern.Pattern
}

// Search implements Searcher.
func (s PatternSearcher[D]) Search(g *egraph.EGraph[D], limit int) []pattern.Match {
	return s.Pattern.SearchLimit(g, limit)
}

// Vars implements Searcher.
func (s PatternSearcher[D]) Vars() []pattern.Var {
	return s.Pattern.Vars()
}

func (s PatternSearcher[D]) String() string {
	return s.Pattern.String()
}

// PatternApplier instantiates a pattern for every substitution and unions
// it with the matched class.
type PatternApplier[D any] struct {
	Pattern *pattern.Pattern
}

// Apply implements Applier. An analysis conflict aborts only its own union:
// the remaining matches are still applied and the conflicts are returned
// joined. Any other failure stops at once.
func (a PatternApplier[D]) Apply(g *egraph.EGraph[D], matches []pattern.Match, rule string) (int, error) {
	unions := 0
	var conflicts []error
	for _, m := range matches {
		for _, s := range m.Substs {
			id, err := a.Pattern.Instantiate(g, s)
			if err != nil {
				return unions, errors.Join(append(conflicts, &ApplyError{Rule: rule, Class: m.Class, Err: err})...)
			}
			merged, err := g.Union(m.Class, id)
			if egraph.IsAnalysisConflict(err) {
				conflicts = append(conflicts, &ApplyError{Rule: rule, Class: m.Class, Err: err})
				continue
			}
			if err != nil {
				return unions, errors.Join(append(conflicts, &ApplyError{Rule: rule, Class: m.Class, Err: err})...)
			}
			if merged {
				unions++
			}
		}
	}
	return unions, errors.Join(conflicts...)
}

// Vars implements Applier.
func (a PatternApplier[D]) Vars() []pattern.Var {
	return a.Pattern.Vars()
}

func (a PatternApplier[D]) String() string {
	return a.Pattern.String()
}

// SearcherFunc adapts a function to Searcher. Variables lists what the
// function binds.
type SearcherFunc[D any] struct {
	Fn        func(g *egraph.EGraph[D], limit int) []pattern.Match
	Variables []pattern.Var
}

// Search implements Searcher.
func (f SearcherFunc[D]) Search(g *egraph.EGraph[D], limit int) []pattern.Match {
	return f.Fn(g, limit)
}

// Vars implements Searcher.
func (f SearcherFunc[D]) Vars() []pattern.Var {
	return f.Variables
}

func (f SearcherFunc[D]) String() string {
	return "<func>"
}

// ApplierFunc adapts a function to Applier. Variables lists what the
// function reads from substitutions.
type ApplierFunc[D any] struct {
	Fn        func(g *egraph.EGraph[D], matches []pattern.Match, rule string) (int, error)
	Variables []pattern.Var
}

// Apply implements Applier.
func (f ApplierFunc[D]) Apply(g *egraph.EGraph[D], matches []pattern.Match, rule string) (int, error) {
	return f.Fn(g, matches, rule)
}

// Vars implements Applier.
func (f ApplierFunc[D]) Vars() []pattern.Var {
	return f.Variables
}

func (f ApplierFunc[D]) String() string {
	return "<func>"
}
