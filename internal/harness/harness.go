package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/eqsat/internal/egraph"
	"github.com/roach88/eqsat/internal/extract"
	"github.com/roach88/eqsat/internal/mathlang"
	"github.com/roach88/eqsat/internal/rules"
	"github.com/roach88/eqsat/internal/runner"
	"github.com/roach88/eqsat/internal/sexp"
	"github.com/roach88/eqsat/internal/testutil"
)

// DefaultRunID is the run id of scenarios that do not set one.
const DefaultRunID = "test-run-default"

// Harness is the test execution engine.
// It runs scenarios with a frozen clock and a fixed run id.
type Harness struct {
	clock  *testutil.ManualClock
	ids    *testutil.FixedRunIDGenerator
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Execution flow:
// 1. Load and validate the rule set
// 2. Build a graph for the rule set's language
// 3. Add the start terms and run to saturation or a limit
// 4. Extract the best term of every start term
// 5. Evaluate assertions into the result
//
// The error is non-nil only when the scenario cannot run at all (bad
// rules, unparseable terms). Assertion failures are reported through
// Result.Pass and Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a context for cancellation.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	rs, err := LoadRuleSet(scenario.Rules)
	if err != nil {
		return nil, err
	}
	lang, err := rules.Lang(rs.Language)
	if err != nil {
		return nil, err
	}

	runID := scenario.RunID
	if runID == "" {
		runID = DefaultRunID
	}
	h := &Harness{
		clock:  testutil.NewManualClock(0),
		ids:    testutil.NewFixedRunIDGenerator(runID),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	if rs.Language == rules.LanguageSymbols {
		g := egraph.NewPlain(egraph.WithLogger(h.logger))
		return execute(ctx, h, scenario, rs, lang, g, extract.AstSize{})
	}
	g := mathlang.NewGraph(egraph.WithLogger(h.logger))
	return execute(ctx, h, scenario, rs, lang, g, mathlang.CostFn())
}

// LoadRuleSet compiles a rule file or converts an inline list.
func LoadRuleSet(src RuleSource) (*rules.RuleSet, error) {
	if src.File != "" {
		rs, err := rules.CompileFile(src.File)
		if err != nil {
			return nil, fmt.Errorf("load rules: %w", err)
		}
		return rs, nil
	}

	rs := &rules.RuleSet{Language: src.Language}
	if rs.Language == "" {
		rs.Language = rules.DefaultLanguage
	}
	for _, r := range src.Inline {
		rs.Rules = append(rs.Rules, rules.RuleSpec{
			Name:          r.Name,
			LHS:           r.LHS,
			RHS:           r.RHS,
			UnlessZero:    r.UnlessZero,
			Bidirectional: r.Bidirectional,
		})
	}
	return rs, nil
}

// execute runs a scenario over g, whose analysis fits the rule set's
// language.
func execute[D any](ctx context.Context, h *Harness, scenario *Scenario, rs *rules.RuleSet, lang sexp.Language, g *egraph.EGraph[D], cost extract.CostFunction[int]) (*Result, error) {
	rws, err := rules.Build[D](rs, sexp.NewPatternCache(lang, 0))
	if err != nil {
		return nil, fmt.Errorf("build rules: %w", err)
	}
	hash, err := rs.Hash()
	if err != nil {
		return nil, fmt.Errorf("hash rules: %w", err)
	}

	r := runner.New(g, runnerOptions[D](h, scenario)...)
	for i, src := range scenario.Start {
		t, err := sexp.ParseTerm(lang, src)
		if err != nil {
			return nil, fmt.Errorf("start[%d]: %w", i, err)
		}
		r.AddTerm(t)
	}

	result := NewResult()
	result.RuleSetHash = hash
	res, runErr := r.Run(ctx, rws)
	result.Run = res
	if runErr != nil {
		result.RunError = runErr.Error()
	}

	// A failed iteration restores the graph, which may then still be dirty.
	if !g.IsClean() {
		if _, err := g.Rebuild(); err != nil {
			result.AddError(fmt.Sprintf("graph could not be rebuilt after the run: %v", err))
		}
	}
	result.Classes = g.NumClasses()
	result.Nodes = g.NumNodes()

	ex, err := extract.New[int](g, cost)
	if err != nil {
		result.AddError(fmt.Sprintf("extraction failed: %v", err))
	} else {
		for i, root := range res.Roots {
			c, t, err := ex.FindBest(root)
			if err != nil {
				result.AddError(fmt.Sprintf("start[%d]: %v", i, err))
				continue
			}
			result.Best = append(result.Best, Best{Root: i, Term: t.String(), Cost: c})
		}
	}

	h.logger.Info("scenario executed",
		"scenario", scenario.Name,
		"stop", res.StopReason.String(),
		"iterations", len(res.Iterations),
		"classes", result.Classes,
	)

	for i, a := range scenario.Assertions {
		if err := evaluate(g, lang, result, a); err != nil {
			result.AddError(fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return result, nil
}

// runnerOptions returns the deterministic runner options for a scenario.
func runnerOptions[D any](h *Harness, s *Scenario) []runner.Option[D] {
	opts := []runner.Option[D]{
		runner.WithLogger[D](h.logger),
		runner.WithClock[D](h.clock),
		runner.WithRunIDGenerator[D](h.ids),
	}
	if s.Limits.Iterations > 0 {
		opts = append(opts, runner.WithIterLimit[D](s.Limits.Iterations))
	}
	if s.Limits.Nodes > 0 {
		opts = append(opts, runner.WithNodeLimit[D](s.Limits.Nodes))
	}
	if s.Limits.Classes > 0 {
		opts = append(opts, runner.WithClassLimit[D](s.Limits.Classes))
	}
	if s.Limits.Time > 0 {
		opts = append(opts, runner.WithTimeLimit[D](s.Limits.Time))
	}
	if s.Scheduler == SchedulerBackoff {
		opts = append(opts, runner.WithScheduler[D](runner.NewBackoffScheduler()))
	}
	return opts
}
