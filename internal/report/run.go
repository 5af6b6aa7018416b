package report

import (
	"time"

	"github.com/roach88/eqsat/internal/runner"
)

// Run renders a run result. Times are whole microseconds; StartedAt is
// RFC 3339 in UTC.
func Run(res *runner.Result) Object {
	iterations := make(Array, len(res.Iterations))
	for i, it := range res.Iterations {
		iterations[i] = Iteration(it)
	}
	roots := make(Array, len(res.Roots))
	for i, id := range res.Roots {
		roots[i] = Int(id)
	}

	stop := NewObject(P("code", String(res.StopReason.Code)))
	if res.StopReason.Message != "" {
		stop["message"] = String(res.StopReason.Message)
	}
	if res.Limit != nil {
		stop["observed"] = Int(res.Limit.Observed)
		stop["limit"] = Int(res.Limit.Limit)
	}

	return NewObject(
		P("run_id", String(res.RunID)),
		P("stop", stop),
		P("iterations", iterations),
		P("roots", roots),
		P("started_at", String(res.StartedAt.UTC().Format(time.RFC3339Nano))),
		P("elapsed_us", micros(res.Elapsed)),
	)
}

// Iteration renders the statistics of one iteration.
func Iteration(it runner.Iteration) Object {
	obj := NewObject(
		P("index", Int(it.Index)),
		P("nodes", Int(it.Nodes)),
		P("classes", Int(it.Classes)),
		P("matches", Counts(it.Matches)),
		P("applied", Counts(it.Applied)),
		P("rebuild", NewObject(
			P("touched", Int(it.Rebuild.Touched)),
			P("repaired", Int(it.Rebuild.Repaired)),
			P("unions", Int(it.Rebuild.Unions)),
			P("analysis_updates", Int(it.Rebuild.AnalysisUpdates)),
			P("modified", Int(it.Rebuild.Modified)),
		)),
		P("search_us", micros(it.SearchTime)),
		P("apply_us", micros(it.ApplyTime)),
		P("rebuild_us", micros(it.RebuildTime)),
		P("total_us", micros(it.TotalTime)),
	)
	if len(it.Banned) > 0 {
		obj["banned"] = Strings(it.Banned)
	}
	return obj
}

func micros(d time.Duration) Int {
	return Int(d.Microseconds())
}
