package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/roach88/eqsat/internal/egraph"
	"github.com/roach88/eqsat/internal/extract"
	"github.com/roach88/eqsat/internal/mathlang"
	"github.com/roach88/eqsat/internal/report"
	"github.com/roach88/eqsat/internal/rules"
	"github.com/roach88/eqsat/internal/runner"
	"github.com/roach88/eqsat/internal/sexp"
	"github.com/roach88/eqsat/internal/store"
)

// SimplifyOptions configures one simplification.
type SimplifyOptions struct {
	Limits   runner.Limits
	Backoff  bool
	Parallel int

	// NoCheckpoint skips the per-iteration copy of the graph. A failed run
	// then cannot be rolled back.
	NoCheckpoint bool

	// Goals stop the run once all of them join the start term's class.
	Goals []string

	Logger  *slog.Logger
	Metrics *runner.Metrics

	// Clock and RunIDs replace the runner defaults when set.
	Clock  runner.Clock
	RunIDs runner.RunIDGenerator
}

// DefaultSimplifyOptions returns the runner's default limits.
func DefaultSimplifyOptions() SimplifyOptions {
	return SimplifyOptions{
		Limits: runner.Limits{
			Iterations: runner.DefaultIterLimit,
			Nodes:      runner.DefaultNodeLimit,
			Time:       runner.DefaultTimeLimit,
		},
	}
}

// Simplification is the outcome of simplifying one expression.
type Simplification struct {
	Input       string `json:"input"`
	Best        string `json:"best"`
	Cost        int    `json:"cost"`
	Proven      *bool  `json:"proven,omitempty"`
	RunID       string `json:"run_id"`
	Stop        string `json:"stop"`
	StopMessage string `json:"stop_message,omitempty"`
	Iterations  int    `json:"iterations"`
	Applied     int    `json:"applied"`
	Classes     int    `json:"classes"`
	Nodes       int    `json:"nodes"`
	GraphHash   string `json:"graph_hash"`
	Rules       string `json:"rules"`
	RuleSetHash string `json:"rule_set_hash"`

	Result *runner.Result `json:"-"`
}

func (s *Simplification) String() string {
	var b strings.Builder
	b.WriteString(s.Best)
	fmt.Fprintf(&b, "\n  cost:       %d", s.Cost)
	if s.Proven != nil {
		fmt.Fprintf(&b, "\n  proven:     %t", *s.Proven)
	}
	stop := s.Stop
	if s.StopMessage != "" {
		stop += " (" + s.StopMessage + ")"
	}
	fmt.Fprintf(&b, "\n  stop:       %s", stop)
	fmt.Fprintf(&b, "\n  iterations: %d", s.Iterations)
	fmt.Fprintf(&b, "\n  applied:    %d", s.Applied)
	fmt.Fprintf(&b, "\n  graph:      %d classes, %d nodes", s.Classes, s.Nodes)
	fmt.Fprintf(&b, "\n  run:        %s", s.RunID)
	return b.String()
}

// Simplify saturates expr under the rules of src and extracts its
// cheapest equivalent. Math rules extract with mathlang.CostFn, symbol
// rules with extract.AstSize.
func Simplify(ctx context.Context, src *RuleSource, expr string, opts SimplifyOptions) (*Simplification, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if src.Language == rules.LanguageSymbols {
		g := egraph.NewPlain(egraph.WithLogger(logger))
		return simplifyOver(ctx, src, g, extract.AstSize{}, expr, opts)
	}
	g := mathlang.NewGraph(egraph.WithLogger(logger))
	return simplifyOver(ctx, src, g, mathlang.CostFn(), expr, opts)
}

func simplifyOver[D any](ctx context.Context, src *RuleSource, g *egraph.EGraph[D], cost extract.CostFunction[int], expr string, opts SimplifyOptions) (*Simplification, error) {
	rws, err := buildRewrites[D](src)
	if err != nil {
		return nil, fmt.Errorf("build rules: %w", err)
	}
	start, err := src.ParseTerm(expr)
	if err != nil {
		return nil, fmt.Errorf("parse expression: %w", err)
	}
	goals := make([]*egraph.Term, len(opts.Goals))
	for i, s := range opts.Goals {
		if goals[i], err = src.ParseTerm(s); err != nil {
			return nil, fmt.Errorf("parse goal %d: %w", i+1, err)
		}
	}

	r := runner.New(g, runnerOptions[D](opts, goals)...)
	r.AddTerm(start)
	res, err := r.Run(ctx, rws)
	if err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}
	if !g.IsClean() {
		if _, err := g.Rebuild(); err != nil {
			return nil, fmt.Errorf("rebuild after run: %w", err)
		}
	}

	ex, err := extract.New[int](g, cost)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	c, best, err := ex.FindBest(res.Roots[0])
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	graphHash, err := report.GraphDigest(report.Graph(g))
	if err != nil {
		return nil, err
	}

	out := &Simplification{
		Input:       expr,
		Best:        best.String(),
		Cost:        c,
		RunID:       res.RunID,
		Stop:        string(res.StopReason.Code),
		StopMessage: res.StopReason.Message,
		Iterations:  len(res.Iterations),
		Classes:     g.NumClasses(),
		Nodes:       g.NumNodes(),
		GraphHash:   graphHash,
		Rules:       src.Name,
		RuleSetHash: src.Hash,
		Result:      res,
	}
	for _, it := range res.Iterations {
		out.Applied += it.TotalApplied()
	}
	if len(goals) > 0 {
		proven := runner.Proven(g, res.Roots, goals...)
		out.Proven = &proven
	}
	return out, nil
}

func runnerOptions[D any](opts SimplifyOptions, goals []*egraph.Term) []runner.Option[D] {
	ropts := []runner.Option[D]{
		runner.WithLimits[D](opts.Limits),
		runner.WithParallelSearch[D](opts.Parallel),
		runner.WithCheckpoint[D](!opts.NoCheckpoint),
	}
	if opts.Logger != nil {
		ropts = append(ropts, runner.WithLogger[D](opts.Logger))
	}
	if opts.Backoff {
		ropts = append(ropts, runner.WithScheduler[D](runner.NewBackoffScheduler()))
	}
	if len(goals) > 0 {
		ropts = append(ropts, runner.WithHook[D](runner.StopWhenProven[D](goals...)))
	}
	if opts.Metrics != nil {
		ropts = append(ropts, runner.WithMetrics[D](opts.Metrics))
	}
	if opts.Clock != nil {
		ropts = append(ropts, runner.WithClock[D](opts.Clock))
	}
	if opts.RunIDs != nil {
		ropts = append(ropts, runner.WithRunIDGenerator[D](opts.RunIDs))
	}
	return ropts
}

// SimplifyCommandOptions holds flags for the simplify command.
type SimplifyCommandOptions struct {
	*RootOptions
	Rules      string
	IterLimit  int
	NodeLimit  int
	ClassLimit int
	TimeLimit  time.Duration
	Backoff    bool
	Parallel   int
	NoCheckpt  bool
	Goals      []string
	DBPath     string
	Metrics    bool
}

// NewSimplifyCommand creates the simplify command.
func NewSimplifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SimplifyCommandOptions{RootOptions: rootOpts}
	defaults := DefaultSimplifyOptions()

	cmd := &cobra.Command{
		Use:   "simplify <expr>",
		Short: "Saturate an expression and extract its simplest form",
		Long: `Simplify an s-expression by equality saturation.

The expression is added to a fresh e-graph, the rules are applied until
the graph saturates or a limit is hit, and the cheapest equivalent term
is extracted. Without --rules the built-in math rules are used.

Exit codes:
  0 - Simplified (and every --goal proven)
  1 - A --goal was not proven
  2 - Command error (bad rules, unparseable expression, database error)

Examples:
  eqsat simplify "(+ x 0)"
  eqsat simplify "(d x (pow x 2))" --backoff
  eqsat simplify "(* a b)" --rules rules.cue --goal "(* b a)"
  eqsat simplify "(+ x (+ x x))" --db runs.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimplify(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Rules, "rules", "", "CUE rule file (default: built-in math rules)")
	cmd.Flags().IntVar(&opts.IterLimit, "iter-limit", defaults.Limits.Iterations, "maximum iterations (0 disables)")
	cmd.Flags().IntVar(&opts.NodeLimit, "node-limit", defaults.Limits.Nodes, "maximum distinct nodes (0 disables)")
	cmd.Flags().IntVar(&opts.ClassLimit, "class-limit", 0, "maximum classes (0 disables)")
	cmd.Flags().DurationVar(&opts.TimeLimit, "time-limit", defaults.Limits.Time, "time budget (0 disables)")
	cmd.Flags().BoolVar(&opts.Backoff, "backoff", false, "use the backoff scheduler")
	cmd.Flags().IntVar(&opts.Parallel, "parallel", 1, "rules searched concurrently")
	cmd.Flags().BoolVar(&opts.NoCheckpt, "no-checkpoint", false, "skip the per-iteration graph copy used to roll back a failed iteration")
	cmd.Flags().StringArrayVar(&opts.Goals, "goal", nil, "stop once this term is proven equal (repeatable)")
	cmd.Flags().StringVar(&opts.DBPath, "db", "", "SQLite database to record the run in")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print runner metrics to stderr")

	return cmd
}

func runSimplify(cmd *cobra.Command, opts *SimplifyCommandOptions, expr string) error {
	formatter := newFormatter(cmd, opts.RootOptions)

	src, err := LoadRules(opts.Rules)
	if err != nil {
		return reportLoadError(formatter, err)
	}
	formatter.VerboseLog("Rules: %s (%d rewrites, %s)", src.Name, len(src.Names()), src.Hash)

	sopts := SimplifyOptions{
		Limits: runner.Limits{
			Iterations: opts.IterLimit,
			Nodes:      opts.NodeLimit,
			Classes:    opts.ClassLimit,
			Time:       opts.TimeLimit,
		},
		Backoff:      opts.Backoff,
		Parallel:     opts.Parallel,
		NoCheckpoint: opts.NoCheckpt,
		Goals:        opts.Goals,
		Logger:       slog.Default(),
	}
	var reg *prometheus.Registry
	if opts.Metrics {
		reg = prometheus.NewRegistry()
		sopts.Metrics = runner.NewMetrics(reg)
	}

	out, err := Simplify(cmd.Context(), src, expr, sopts)
	if err != nil {
		code := ErrCodeRun
		if sexp.IsParseError(err) {
			code = ErrCodeParse
		}
		return formatter.Fail(code, err.Error(), "simplify failed", err)
	}
	formatter.RunID = out.RunID

	if reg != nil {
		if err := writeMetrics(formatter.GetErrWriter(), reg); err != nil {
			return WrapExitError(ExitCommandError, "write metrics", err)
		}
	}

	if opts.DBPath != "" {
		if err := recordRun(cmd.Context(), opts.DBPath, out); err != nil {
			return formatter.Fail(ErrCodeStore, err.Error(), "record run", err)
		}
		formatter.VerboseLog("Recorded run %s in %s", out.RunID, opts.DBPath)
	}

	if err := formatter.Success(out); err != nil {
		return err
	}
	if out.Proven != nil && !*out.Proven {
		return NewExitError(ExitFailure, "goal not proven")
	}
	return nil
}

// recordRun stores a finished simplification.
func recordRun(ctx context.Context, dbPath string, s *Simplification) error {
	st, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	_, err = st.WriteRun(ctx, store.Run{
		Expr:        s.Input,
		RuleSetHash: s.RuleSetHash,
		Classes:     s.Classes,
		Nodes:       s.Nodes,
		Best:        s.Best,
		BestCost:    int64(s.Cost),
		Result:      s.Result,
	})
	return err
}

// writeMetrics prints every gathered family in the Prometheus text format.
func writeMetrics(w io.Writer, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

// reportLoadError prints a rule loading error and maps it to an exit code.
func reportLoadError(f *OutputFormatter, err error) error {
	var le *LoadError
	if errors.As(err, &le) {
		return f.Fail(le.Code, le.Message, "load rules", err)
	}
	return f.Fail(ErrCodeGeneric, err.Error(), "load rules", err)
}
