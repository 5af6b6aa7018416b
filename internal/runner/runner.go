package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/eqsat/internal/egraph"
	"github.com/roach88/eqsat/internal/pattern"
	"github.com/roach88/eqsat/internal/rewrite"
)

// Hook runs at the start of every iteration. Returning an error stops the
// run with StopHook; the error text becomes the stop message.
type Hook[D any] func(r *Runner[D]) error

// ErrDuplicateRule is returned by Run when two rules share a name.
var ErrDuplicateRule = errors.New("duplicate rule name")

// Runner applies rewrite rules to an e-graph until saturation or a limit.
//
// A Runner owns its graph for the duration of Run: nothing else may
// mutate it concurrently.
type Runner[D any] struct {
	graph     *egraph.EGraph[D]
	roots     []egraph.ID
	limits    Limits
	scheduler Scheduler
	hooks     []Hook[D]
	parallel  int
	noCheckpt bool
	clock     Clock
	logger    *slog.Logger
	metrics   *Metrics
	ids       RunIDGenerator

	iterations []Iteration
}

// New creates a runner over g.
func New[D any](g *egraph.EGraph[D], opts ...Option[D]) *Runner[D] {
	r := &Runner[D]{
		graph: g,
		limits: Limits{
			Iterations: DefaultIterLimit,
			Nodes:      DefaultNodeLimit,
			Time:       DefaultTimeLimit,
		},
		scheduler: SimpleScheduler{},
		clock:     SystemClock{},
		logger:    slog.Default(),
		ids:       UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Graph returns the graph being saturated.
func (r *Runner[D]) Graph() *egraph.EGraph[D] {
	return r.graph
}

// AddTerm adds t to the graph and records its class as a root.
func (r *Runner[D]) AddTerm(t *egraph.Term) egraph.ID {
	id := r.graph.AddTerm(t)
	r.roots = append(r.roots, id)
	return id
}

// Roots returns the canonical root classes registered with AddTerm.
func (r *Runner[D]) Roots() []egraph.ID {
	roots := make([]egraph.ID, len(r.roots))
	for i, id := range r.roots {
		roots[i] = r.graph.Canonical(id)
	}
	return roots
}

// Iterations returns the iterations completed so far. Hooks use it to
// inspect progress.
func (r *Runner[D]) Iterations() []Iteration {
	return r.iterations
}

// Run saturates the graph with rules.
//
// The returned Result is always non-nil. The error is non-nil only when
// the run stopped with StopError or the rule set is invalid; limits,
// hooks and cancellation stop the run without an error.
func (r *Runner[D]) Run(ctx context.Context, rules []*rewrite.Rewrite[D]) (*Result, error) {
	r.iterations = nil
	res := &Result{
		RunID:     r.ids.Generate(),
		StartedAt: r.clock.Now(),
	}
	if err := checkRules(rules); err != nil {
		res.StopReason = StopReason{Code: StopError, Message: err.Error()}
		return res, err
	}

	ctx, span := startRunSpan(ctx, res.RunID, len(rules))
	log := r.logger.With("run_id", res.RunID)
	log.Info("run starting",
		"rules", len(rules),
		"nodes", r.graph.NumNodes(),
		"classes", r.graph.NumClasses(),
	)

	err := r.run(ctx, log, rules, res)

	res.Iterations = r.iterations
	res.Roots = r.Roots()
	res.Elapsed = r.clock.Now().Sub(res.StartedAt)
	r.metrics.recordStop(res.StopReason)
	endRunSpan(span, res, err)

	log.Info("run stopped",
		"reason", res.StopReason.String(),
		"iterations", len(res.Iterations),
		"nodes", r.graph.NumNodes(),
		"classes", r.graph.NumClasses(),
		"elapsed", res.Elapsed,
	)
	return res, err
}

func checkRules[D any](rules []*rewrite.Rewrite[D]) error {
	seen := make(map[string]bool, len(rules))
	for _, rw := range rules {
		if seen[rw.Name] {
			return fmt.Errorf("%w: %q", ErrDuplicateRule, rw.Name)
		}
		seen[rw.Name] = true
	}
	return nil
}

// run is the iteration loop. It fills res.StopReason and res.Limit.
func (r *Runner[D]) run(ctx context.Context, log *slog.Logger, rules []*rewrite.Rewrite[D], res *Result) error {
	enforcer := NewLimitEnforcer(r.limits)

	// Searching needs a clean graph.
	if _, err := r.graph.Rebuild(); err != nil {
		res.StopReason = StopReason{Code: StopError, Message: err.Error()}
		return fmt.Errorf("initial rebuild: %w", err)
	}

	for {
		for _, hook := range r.hooks {
			if err := hook(r); err != nil {
				res.StopReason = StopReason{Code: StopHook, Message: err.Error()}
				return nil
			}
		}

		if err := ctx.Err(); err != nil {
			res.StopReason = StopReason{Code: StopCancelled, Message: err.Error()}
			return nil
		}

		if err := enforcer.Check(len(r.iterations), r.graph.NumNodes(), r.graph.NumClasses(), r.elapsed(res)); err != nil {
			r.stopOnLimit(res, err)
			return nil
		}

		it, stop, err := r.runOne(ctx, log, rules, enforcer, res.StartedAt)
		if err != nil {
			res.StopReason = StopReason{Code: StopError, Message: err.Error()}
			return fmt.Errorf("iteration %d: %w", len(r.iterations), err)
		}
		r.iterations = append(r.iterations, it)
		r.metrics.recordIteration(it)
		switch {
		case stop.limit != nil:
			r.stopOnLimit(res, stop.limit)
			return nil
		case stop.saturated:
			res.StopReason = StopReason{Code: StopSaturated}
			return nil
		}
	}
}

// stopOnLimit records a limit stop.
func (r *Runner[D]) stopOnLimit(res *Result, err error) {
	var le *LimitError
	if errors.As(err, &le) {
		res.Limit = le
		res.StopReason = StopReason{Code: le.Code, Message: le.Error()}
		return
	}
	res.StopReason = StopReason{Code: StopError, Message: err.Error()}
}

// iterationStop tells the loop whether to end after an iteration.
type iterationStop struct {
	limit     error
	saturated bool
}

func (r *Runner[D]) elapsed(res *Result) time.Duration {
	return r.clock.Now().Sub(res.StartedAt)
}

// searchResult is the outcome of searching one rule.
type searchResult struct {
	matches []pattern.Match
	found   int
	skipped bool
}

// runOne performs a single iteration. The returned stop says whether the
// run ends after it; a non-nil error means a fatal failure, in which case
// the graph was restored unless checkpointing is off.
func (r *Runner[D]) runOne(ctx context.Context, log *slog.Logger, rules []*rewrite.Rewrite[D], enforcer *LimitEnforcer, startedAt time.Time) (Iteration, iterationStop, error) {
	index := len(r.iterations)
	_, span := startIterationSpan(ctx, index)

	start := r.clock.Now()
	var checkpoint *egraph.EGraph[D]
	if !r.noCheckpt {
		checkpoint = r.graph.Snapshot()
	}
	idsBefore := r.graph.NumIDs()
	unionsBefore := r.graph.NumUnions()

	it := Iteration{
		Index:   index,
		Matches: make(map[string]int),
		Applied: make(map[string]int),
	}
	fail := func(err error) (Iteration, iterationStop, error) {
		span.End()
		if checkpoint == nil {
			log.Error("iteration failed, no checkpoint to restore",
				"iteration", index,
				"error", err,
			)
			return it, iterationStop{}, err
		}
		r.graph.Restore(checkpoint)
		log.Error("iteration failed, graph restored",
			"iteration", index,
			"error", err,
		)
		return it, iterationStop{}, err
	}

	// Search.
	results, err := r.search(index, rules)
	if err != nil {
		return fail(err)
	}
	for i, rw := range rules {
		sr := results[i]
		if sr.skipped {
			it.Banned = append(it.Banned, rw.Name)
			continue
		}
		if !r.scheduler.Observe(index, rw.Name, sr.found) {
			results[i].matches = nil
			it.Banned = append(it.Banned, rw.Name)
			log.Debug("rule banned", "rule", rw.Name, "matches", sr.found, "iteration", index)
			continue
		}
		if sr.found > 0 {
			it.Matches[rw.Name] = sr.found
		}
	}
	searched := r.clock.Now()
	it.SearchTime = searched.Sub(start)

	var limitErr error
	if limitErr = enforcer.CheckTime(searched.Sub(startedAt)); limitErr != nil {
		for i := range results {
			results[i].matches = nil
		}
	}

	// Apply.
	for i, rw := range rules {
		if limitErr != nil {
			break
		}
		if len(results[i].matches) == 0 {
			continue
		}
		n, err := rw.Apply(r.graph, results[i].matches)
		if err != nil {
			return fail(err)
		}
		if n > 0 {
			it.Applied[rw.Name] = n
		}
		limitErr = enforcer.Check(0, r.graph.NumNodes(), r.graph.NumClasses(), r.clock.Now().Sub(startedAt))
	}
	applied := r.clock.Now()
	it.ApplyTime = applied.Sub(searched)

	// Rebuild.
	stats, err := r.graph.Rebuild()
	if err != nil {
		return fail(fmt.Errorf("rebuild: %w", err))
	}
	done := r.clock.Now()
	it.Rebuild = stats
	it.RebuildTime = done.Sub(applied)
	it.TotalTime = done.Sub(start)
	it.Nodes = r.graph.NumNodes()
	it.Classes = r.graph.NumClasses()
	endIterationSpan(span, it)

	log.Debug("iteration complete",
		"iteration", index,
		"nodes", it.Nodes,
		"classes", it.Classes,
		"unions", it.TotalApplied(),
		"rebuild_unions", stats.Unions,
		"banned", len(it.Banned),
	)

	if limitErr != nil {
		return it, iterationStop{limit: limitErr}, nil
	}

	progress := r.graph.NumIDs() != idsBefore || r.graph.NumUnions() != unionsBefore
	if !progress && r.scheduler.CanStop(index) {
		return it, iterationStop{saturated: true}, nil
	}
	return it, iterationStop{}, nil
}

// search runs the search phase. Results are indexed like rules.
func (r *Runner[D]) search(index int, rules []*rewrite.Rewrite[D]) ([]searchResult, error) {
	results := make([]searchResult, len(rules))
	limits := make([]int, len(rules))
	for i, rw := range rules {
		ok, limit := r.scheduler.Plan(index, rw.Name)
		results[i].skipped = !ok
		limits[i] = limit
	}

	searchOne := func(i int) (err error) {
		if results[i].skipped {
			return nil
		}
		rw := rules[i]
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("search %q panicked: %v", rw.Name, p)
			}
		}()
		results[i].matches = rw.Search(r.graph, limits[i])
		results[i].found = pattern.Total(results[i].matches)
		return nil
	}

	if r.parallel <= 1 {
		for i := range rules {
			if err := searchOne(i); err != nil {
				return nil, err
			}
		}
		return results, nil
	}

	var g errgroup.Group
	g.SetLimit(r.parallel)
	for i := range rules {
		g.Go(func() error { return searchOne(i) })
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// AppliedRules returns the names of rules that changed the graph in any
// iteration, sorted.
func AppliedRules(its []Iteration) []string {
	seen := make(map[string]bool)
	for _, it := range its {
		for rule := range maps.Keys(it.Applied) {
			seen[rule] = true
		}
	}
	return slices.Sorted(maps.Keys(seen))
}
