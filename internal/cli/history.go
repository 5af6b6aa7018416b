package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/roach88/eqsat/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	DBPath string
	Limit  int
	RunID  string
	Rules  bool
}

// RunSummary is one stored run in history output.
type RunSummary struct {
	ID          string `json:"id"`
	Expr        string `json:"expr"`
	Best        string `json:"best,omitempty"`
	BestCost    *int64 `json:"best_cost,omitempty"`
	Stop        string `json:"stop"`
	Iterations  int    `json:"iterations"`
	Classes     int    `json:"classes"`
	Nodes       int    `json:"nodes"`
	RuleSetHash string `json:"rule_set_hash"`
	StartedAt   string `json:"started_at"`
}

// RunDetail is a single run with its iterations and verified report.
type RunDetail struct {
	RunSummary
	StopMessage string                  `json:"stop_message,omitempty"`
	ElapsedUS   int64                   `json:"elapsed_us"`
	ReportHash  string                  `json:"report_hash"`
	Steps       []store.IterationRecord `json:"steps"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded runs",
		Long: `Show runs recorded by "eqsat simplify --db".

Without flags the most recent runs are listed, newest first. --run shows
one run with its iterations; its stored report is verified against its
digest. --rules totals matches and unions per rule over all runs.

Exit codes:
  0 - Success
  2 - Command error (database not found, unknown run, corrupted report)

Examples:
  eqsat history --db runs.db
  eqsat history --db runs.db --limit 5
  eqsat history --db runs.db --run 0190c6f2-...
  eqsat history --db runs.db --rules --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.DBPath, "db", "", "path to SQLite database (required)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum runs to list (0 lists all)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "show a single run")
	cmd.Flags().BoolVar(&opts.Rules, "rules", false, "show per-rule totals")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(cmd *cobra.Command, opts *HistoryOptions) error {
	formatter := newFormatter(cmd, opts.RootOptions)

	st, err := store.Open(opts.DBPath)
	if err != nil {
		return formatter.Fail(ErrCodeStore, err.Error(), "open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	switch {
	case opts.RunID != "":
		rec, err := st.ReadRun(ctx, opts.RunID)
		if errors.Is(err, store.ErrRunNotFound) {
			return formatter.Fail(ErrCodeNotFound, fmt.Sprintf("run not found: %s", opts.RunID), "read run", err)
		}
		if err != nil {
			return formatter.Fail(ErrCodeStore, err.Error(), "read run", err)
		}
		its, err := st.ReadIterations(ctx, rec.ID)
		if err != nil {
			return formatter.Fail(ErrCodeStore, err.Error(), "read iterations", err)
		}
		detail := RunDetail{
			RunSummary:  summarize(*rec),
			StopMessage: rec.StopMessage,
			ElapsedUS:   rec.Elapsed.Microseconds(),
			ReportHash:  rec.ReportHash,
			Steps:       its,
		}
		if opts.Format == "json" {
			return formatter.Success(detail)
		}
		return formatter.Success(renderRunDetail(detail))

	case opts.Rules:
		totals, err := st.RuleTotals(ctx)
		if err != nil {
			return formatter.Fail(ErrCodeStore, err.Error(), "rule totals", err)
		}
		if opts.Format == "json" {
			return formatter.Success(totals)
		}
		if len(totals) == 0 {
			return formatter.Success("No rule applications recorded.")
		}
		t := newTable("RULE", "RUNS", "MATCHES", "APPLIED", "BANNED")
		for _, rt := range totals {
			t.Row(rt.Rule, strconv.Itoa(rt.Runs), strconv.Itoa(rt.Matches), strconv.Itoa(rt.Applied), strconv.Itoa(rt.Banned))
		}
		return formatter.Success(t.Render())

	default:
		recs, err := st.ListRuns(ctx, opts.Limit)
		if err != nil {
			return formatter.Fail(ErrCodeStore, err.Error(), "list runs", err)
		}
		runs := make([]RunSummary, len(recs))
		for i, rec := range recs {
			runs[i] = summarize(rec)
		}
		if opts.Format == "json" {
			return formatter.Success(runs)
		}
		if len(runs) == 0 {
			return formatter.Success("No runs recorded.")
		}
		t := newTable("RUN", "EXPR", "BEST", "STOP", "ITERS", "CLASSES")
		for _, r := range runs {
			t.Row(r.ID, r.Expr, r.Best, r.Stop, strconv.Itoa(r.Iterations), strconv.Itoa(r.Classes))
		}
		return formatter.Success(t.Render())
	}
}

func summarize(rec store.RunRecord) RunSummary {
	return RunSummary{
		ID:          rec.ID,
		Expr:        rec.Expr,
		Best:        rec.Best,
		BestCost:    rec.BestCost,
		Stop:        rec.StopCode,
		Iterations:  rec.Iterations,
		Classes:     rec.Classes,
		Nodes:       rec.Nodes,
		RuleSetHash: rec.RuleSetHash,
		StartedAt:   rec.StartedAt.UTC().Format(time.RFC3339Nano),
	}
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...)
}

func renderRunDetail(d RunDetail) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s\n", d.ID)
	fmt.Fprintf(&b, "  expr:    %s\n", d.Expr)
	if d.BestCost != nil {
		fmt.Fprintf(&b, "  best:    %s (cost %d)\n", d.Best, *d.BestCost)
	}
	stop := d.Stop
	if d.StopMessage != "" {
		stop += " (" + d.StopMessage + ")"
	}
	fmt.Fprintf(&b, "  stop:    %s\n", stop)
	fmt.Fprintf(&b, "  graph:   %d classes, %d nodes\n", d.Classes, d.Nodes)
	fmt.Fprintf(&b, "  rules:   %s\n", d.RuleSetHash)
	fmt.Fprintf(&b, "  report:  %s\n", d.ReportHash)
	fmt.Fprintf(&b, "  started: %s\n", d.StartedAt)

	t := newTable("ITER", "NODES", "CLASSES", "APPLIED", "UNIONS", "SEARCH", "APPLY", "REBUILD")
	for _, it := range d.Steps {
		t.Row(strconv.Itoa(it.Index), strconv.Itoa(it.Nodes), strconv.Itoa(it.Classes),
			strconv.Itoa(it.Applied), strconv.Itoa(it.RebuildUnions),
			it.SearchTime.String(), it.ApplyTime.String(), it.RebuildTime.String())
	}
	b.WriteString(t.Render())
	return b.String()
}
