package runner

import (
	"errors"
	"fmt"
	"time"
)

// Limits are the soft resource budgets of a run. Zero disables a limit.
type Limits struct {
	Iterations int
	Nodes      int
	Classes    int
	Time       time.Duration
}

// LimitEnforcer checks a run's progress against its Limits.
//
// Limits are checked in a fixed order (iterations, nodes, classes, time)
// and the first exceeded one is reported.
type LimitEnforcer struct {
	limits Limits
}

// NewLimitEnforcer creates an enforcer for limits.
func NewLimitEnforcer(limits Limits) *LimitEnforcer {
	return &LimitEnforcer{limits: limits}
}

// Limits returns the configured limits.
func (l *LimitEnforcer) Limits() Limits {
	return l.limits
}

// CheckIterations returns a *LimitError once completed reaches the
// iteration limit.
func (l *LimitEnforcer) CheckIterations(completed int) error {
	if l.limits.Iterations > 0 && completed >= l.limits.Iterations {
		return &LimitError{Code: StopIterationLimit, Observed: int64(completed), Limit: int64(l.limits.Iterations)}
	}
	return nil
}

// CheckSize returns a *LimitError if the graph outgrew the node or class
// limit.
func (l *LimitEnforcer) CheckSize(nodes, classes int) error {
	if l.limits.Nodes > 0 && nodes > l.limits.Nodes {
		return &LimitError{Code: StopNodeLimit, Observed: int64(nodes), Limit: int64(l.limits.Nodes)}
	}
	if l.limits.Classes > 0 && classes > l.limits.Classes {
		return &LimitError{Code: StopClassLimit, Observed: int64(classes), Limit: int64(l.limits.Classes)}
	}
	return nil
}

// CheckTime returns a *LimitError if elapsed exceeds the time budget.
func (l *LimitEnforcer) CheckTime(elapsed time.Duration) error {
	if l.limits.Time > 0 && elapsed > l.limits.Time {
		return &LimitError{Code: StopTimeLimit, Observed: int64(elapsed), Limit: int64(l.limits.Time)}
	}
	return nil
}

// Check runs every check in order.
func (l *LimitEnforcer) Check(completed, nodes, classes int, elapsed time.Duration) error {
	if err := l.CheckIterations(completed); err != nil {
		return err
	}
	if err := l.CheckSize(nodes, classes); err != nil {
		return err
	}
	return l.CheckTime(elapsed)
}

// LimitError reports that a run exceeded a resource budget.
//
// It is not fatal: the run stops and keeps the (clean) graph built so far.
// For StopTimeLimit, Observed and Limit are nanoseconds.
type LimitError struct {
	Code     StopCode
	Observed int64
	Limit    int64
}

// Error implements the error interface.
func (e *LimitError) Error() string {
	if e.Code == StopTimeLimit {
		return fmt.Sprintf("%s: ran for %s > %s budget", e.Code, time.Duration(e.Observed), time.Duration(e.Limit))
	}
	return fmt.Sprintf("%s: %d > %d", e.Code, e.Observed, e.Limit)
}

// IsLimitError returns true if err wraps a *LimitError.
func IsLimitError(err error) bool {
	var le *LimitError
	return errors.As(err, &le)
}

// IsTimeLimit returns true if err wraps a *LimitError for the time budget.
func IsTimeLimit(err error) bool {
	var le *LimitError
	if errors.As(err, &le) {
		return le.Code == StopTimeLimit
	}
	return false
}
