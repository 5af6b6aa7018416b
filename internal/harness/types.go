package harness

import (
	"github.com/roach88/eqsat/internal/runner"
)

// Best is the cheapest term extracted for one start term.
type Best struct {
	Root int    `json:"root"`
	Term string `json:"term"`
	Cost int    `json:"cost"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every assertion held.
	Pass bool `json:"pass"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Run is the runner's result.
	Run *runner.Result `json:"-"`

	// RunError is the error returned by the runner, if any. A failed run is
	// still checked against the assertions.
	RunError string `json:"run_error,omitempty"`

	// Best holds one extraction per start term, in start order.
	Best []Best `json:"best"`

	// Classes and Nodes are the final graph size.
	Classes int `json:"classes"`
	Nodes   int `json:"nodes"`

	// RuleSetHash identifies the rules the scenario ran.
	RuleSetHash string `json:"rule_set_hash"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
		Best:   []Best{},
	}
}

// AddError adds an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
