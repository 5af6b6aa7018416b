package runner

import (
	"fmt"
	"time"

	"github.com/roach88/eqsat/internal/egraph"
)

// StopCode categorizes why a run stopped.
type StopCode string

const (
	// StopSaturated indicates an iteration found nothing new.
	StopSaturated StopCode = "SATURATED"

	// StopIterationLimit indicates the iteration limit was reached.
	StopIterationLimit StopCode = "ITERATION_LIMIT"

	// StopNodeLimit indicates the hash-cons table outgrew the node limit.
	StopNodeLimit StopCode = "NODE_LIMIT"

	// StopClassLimit indicates the class count outgrew the class limit.
	StopClassLimit StopCode = "CLASS_LIMIT"

	// StopTimeLimit indicates the time budget ran out.
	StopTimeLimit StopCode = "TIME_LIMIT"

	// StopHook indicates a hook asked the run to stop.
	StopHook StopCode = "HOOK_STOPPED"

	// StopCancelled indicates the context was cancelled.
	StopCancelled StopCode = "CANCELLED"

	// StopError indicates a fatal apply or rebuild error.
	StopError StopCode = "ERROR"
)

// StopReason records why a run stopped.
type StopReason struct {
	Code    StopCode
	Message string
}

func (s StopReason) String() string {
	if s.Message == "" {
		return string(s.Code)
	}
	return fmt.Sprintf("%s: %s", s.Code, s.Message)
}

// Iteration holds the statistics of one completed iteration.
type Iteration struct {
	// Index is the 0-based iteration number.
	Index int

	// Nodes and Classes are the graph size after the rebuild.
	Nodes   int
	Classes int

	// Matches is the number of substitutions found per rule; only rules
	// whose matches were kept appear.
	Matches map[string]int

	// Applied is the number of unions that changed the graph, per rule;
	// only rules with at least one appear.
	Applied map[string]int

	// Banned lists rules the scheduler skipped or discarded this iteration.
	Banned []string

	Rebuild egraph.RebuildStats

	SearchTime  time.Duration
	ApplyTime   time.Duration
	RebuildTime time.Duration
	TotalTime   time.Duration
}

// TotalApplied returns the number of effective unions across all rules.
func (it Iteration) TotalApplied() int {
	n := 0
	for _, c := range it.Applied {
		n += c
	}
	return n
}

// Result is the outcome of Run.
type Result struct {
	RunID      string
	StopReason StopReason

	// Limit is set when a resource budget stopped the run.
	Limit *LimitError

	Iterations []Iteration

	// Roots are the root classes registered with AddTerm, canonicalized at
	// the end of the run.
	Roots []egraph.ID

	StartedAt time.Time
	Elapsed   time.Duration
}

// Saturated reports whether the run stopped because nothing changed.
func (r *Result) Saturated() bool {
	return r.StopReason.Code == StopSaturated
}

// Last returns the final iteration, or false if none completed.
func (r *Result) Last() (Iteration, bool) {
	if len(r.Iterations) == 0 {
		return Iteration{}, false
	}
	return r.Iterations[len(r.Iterations)-1], true
}
