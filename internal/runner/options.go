package runner

import (
	"log/slog"
	"time"
)

const (
	// DefaultIterLimit is the default maximum number of iterations.
	DefaultIterLimit = 30

	// DefaultNodeLimit is the default maximum number of distinct nodes.
	DefaultNodeLimit = 10_000

	// DefaultTimeLimit is the default time budget of a run.
	DefaultTimeLimit = 5 * time.Second
)

// Option configures a Runner.
type Option[D any] func(*Runner[D])

// WithIterLimit sets the maximum number of iterations.
// Default: DefaultIterLimit. Zero disables the limit.
func WithIterLimit[D any](n int) Option[D] {
	return func(r *Runner[D]) {
		r.limits.Iterations = n
	}
}

// WithNodeLimit sets the maximum number of distinct nodes.
// Default: DefaultNodeLimit. Zero disables the limit.
func WithNodeLimit[D any](n int) Option[D] {
	return func(r *Runner[D]) {
		r.limits.Nodes = n
	}
}

// WithClassLimit sets the maximum number of classes.
// Default: 0 (unlimited).
func WithClassLimit[D any](n int) Option[D] {
	return func(r *Runner[D]) {
		r.limits.Classes = n
	}
}

// WithTimeLimit sets the time budget.
// Default: DefaultTimeLimit. Zero disables the limit.
func WithTimeLimit[D any](d time.Duration) Option[D] {
	return func(r *Runner[D]) {
		r.limits.Time = d
	}
}

// WithLimits replaces every limit at once.
func WithLimits[D any](l Limits) Option[D] {
	return func(r *Runner[D]) {
		r.limits = l
	}
}

// WithScheduler sets the rule scheduler.
// Default: SimpleScheduler.
func WithScheduler[D any](s Scheduler) Option[D] {
	return func(r *Runner[D]) {
		r.scheduler = s
	}
}

// WithHook adds a hook run at the start of every iteration. A hook that
// returns an error stops the run with StopHook.
func WithHook[D any](h Hook[D]) Option[D] {
	return func(r *Runner[D]) {
		r.hooks = append(r.hooks, h)
	}
}

// WithParallelSearch searches up to n rules concurrently. n <= 1 searches
// sequentially (the default). Only search runs in parallel; the per-iteration
// checkpoint is still a sequential copy of the whole graph, see
// WithCheckpoint.
func WithParallelSearch[D any](n int) Option[D] {
	return func(r *Runner[D]) {
		r.parallel = n
	}
}

// WithCheckpoint controls the copy of the graph taken at the start of every
// iteration so that a failed iteration can be rolled back. The copy costs
// time and memory linear in the size of the graph. With checkpointing off a
// failed run leaves the graph as the failure found it: possibly with
// half-applied matches and pending unions not yet rebuilt.
// Default: true.
func WithCheckpoint[D any](on bool) Option[D] {
	return func(r *Runner[D]) {
		r.noCheckpt = !on
	}
}

// WithClock sets the clock used for the time limit and all durations.
// Default: SystemClock.
func WithClock[D any](c Clock) Option[D] {
	return func(r *Runner[D]) {
		r.clock = c
	}
}

// WithLogger sets the logger.
// Default: slog.Default().
func WithLogger[D any](l *slog.Logger) Option[D] {
	return func(r *Runner[D]) {
		r.logger = l
	}
}

// WithMetrics exports progress to m.
func WithMetrics[D any](m *Metrics) Option[D] {
	return func(r *Runner[D]) {
		r.metrics = m
	}
}

// WithRunIDGenerator sets the run id generator.
// Default: UUIDv7Generator.
func WithRunIDGenerator[D any](g RunIDGenerator) Option[D] {
	return func(r *Runner[D]) {
		r.ids = g
	}
}
