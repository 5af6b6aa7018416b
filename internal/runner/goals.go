package runner

import (
	"errors"

	"github.com/roach88/eqsat/internal/egraph"
)

// ErrGoalsProven is the stop message of hooks built by StopWhenProven.
var ErrGoalsProven = errors.New("goals proven")

// StopWhenProven returns a hook that stops the run as soon as every goal is
// represented in the class of the first root. Goals are looked up, never
// added, so a goal that is not in the graph yet keeps the run going.
func StopWhenProven[D any](goals ...*egraph.Term) Hook[D] {
	return func(r *Runner[D]) error {
		if Proven(r.Graph(), r.Roots(), goals...) {
			return ErrGoalsProven
		}
		return nil
	}
}

// Proven reports whether every goal is represented in the class of
// roots[0]. It is false when there are no roots.
func Proven[D any](g *egraph.EGraph[D], roots []egraph.ID, goals ...*egraph.Term) bool {
	if len(roots) == 0 {
		return false
	}
	root := g.Canonical(roots[0])
	for _, goal := range goals {
		id, ok := g.LookupTerm(goal)
		if !ok || id != root {
			return false
		}
	}
	return true
}
