package pattern

import (
	"github.com/roach88/eqsat/internal/egraph"
)

// Reader is the read-only surface matching needs. None of its methods may
// compress union-find paths; *egraph.EGraph satisfies it for any analysis.
type Reader interface {
	Canonical(id ID) ID
	ClassIDs() []ID
	Nodes(id ID) []egraph.Node
	Lookup(n egraph.Node) (ID, bool)
}

// Graph is the mutating surface Instantiate and appliers need.
type Graph interface {
	Reader
	Add(n egraph.Node) ID
	Union(a, b ID) (bool, error)
}

// Match is every substitution under which a pattern matches one class.
type Match struct {
	// Class is the canonical id of the matched class.
	Class ID

	// Substs holds one entry per distinct way the class matches.
	Substs []Subst
}

// Search returns every class matching p with all its substitutions, in
// ascending class order. The graph should be clean; matching a dirty graph
// may miss congruent matches.
func (p *Pattern) Search(g Reader) []Match {
	return p.SearchLimit(g, 0)
}

// SearchLimit is Search that stops once at least limit substitutions were
// found (limit <= 0 means no limit). Callers that only need to know whether
// a threshold is crossed pass threshold+1.
func (p *Pattern) SearchLimit(g Reader, limit int) []Match {
	if p.IsGround() {
		id, ok := p.LookupSubst(g, Subst{})
		if !ok {
			return nil
		}
		return []Match{{Class: id, Substs: []Subst{{}}}}
	}

	var matches []Match
	total := 0
	for _, id := range g.ClassIDs() {
		if !p.mayMatch(g, id) {
			continue
		}
		substs := p.SearchClass(g, id)
		if len(substs) == 0 {
			continue
		}
		matches = append(matches, Match{Class: id, Substs: substs})
		total += len(substs)
		if limit > 0 && total >= limit {
			break
		}
	}
	return matches
}

// mayMatch is the discrimination step: a class can only match an
// application if some member has the same root operator and arity.
func (p *Pattern) mayMatch(g Reader, id ID) bool {
	if p.IsVar() {
		return true
	}
	for _, n := range g.Nodes(id) {
		if n.Op == p.Op && len(n.Children) == len(p.Args) {
			return true
		}
	}
	return false
}

// SearchClass returns every substitution under which p matches class id.
func (p *Pattern) SearchClass(g Reader, id ID) []Subst {
	return p.matchClass(g, g.Canonical(id), Subst{}, nil)
}

// matchClass extends s in every way p matches class id and appends the
// results to out.
func (p *Pattern) matchClass(g Reader, id ID, s Subst, out []Subst) []Subst {
	id = g.Canonical(id)
	if p.IsVar() {
		if bound, ok := s.Get(p.Var); ok {
			if g.Canonical(bound) == id {
				out = append(out, s)
			}
			return out
		}
		return append(out, s.With(p.Var, id))
	}

	for _, n := range g.Nodes(id) {
		if n.Op != p.Op || len(n.Children) != len(p.Args) {
			continue
		}
		partial := []Subst{s}
		for i, arg := range p.Args {
			var next []Subst
			for _, ps := range partial {
				next = arg.matchClass(g, n.Children[i], ps, next)
			}
			partial = next
			if len(partial) == 0 {
				break
			}
		}
		out = append(out, partial...)
	}
	return out
}

// Instantiate adds p to g with variables replaced by their bindings in s
// and returns the class of the root.
func (p *Pattern) Instantiate(g Graph, s Subst) (ID, error) {
	if p.IsVar() {
		id, ok := s.Get(p.Var)
		if !ok {
			return 0, &UnboundVariableError{Var: p.Var, Pattern: p.String()}
		}
		return id, nil
	}
	children := make([]ID, len(p.Args))
	for i, a := range p.Args {
		id, err := a.Instantiate(g, s)
		if err != nil {
			return 0, err
		}
		children[i] = id
	}
	return g.Add(egraph.NewNode(p.Op, children...)), nil
}

// Total returns the number of substitutions across matches.
func Total(matches []Match) int {
	n := 0
	for _, m := range matches {
		n += len(m.Substs)
	}
	return n
}

// LookupSubst finds the class p denotes under s without adding anything.
// Returns false if some subterm is absent from the graph or a variable is
// unbound.
func (p *Pattern) LookupSubst(g Reader, s Subst) (ID, bool) {
	if p.IsVar() {
		id, ok := s.Get(p.Var)
		if !ok {
			return 0, false
		}
		return g.Canonical(id), true
	}
	children := make([]ID, len(p.Args))
	for i, a := range p.Args {
		id, ok := a.LookupSubst(g, s)
		if !ok {
			return 0, false
		}
		children[i] = id
	}
	return g.Lookup(egraph.NewNode(p.Op, children...))
}
