package store

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"time"

	"github.com/roach88/eqsat/internal/report"
	"github.com/roach88/eqsat/internal/runner"
)

// Run is a finished run ready to be stored.
type Run struct {
	// Expr is the start term as the user wrote it.
	Expr string

	// RuleSetHash identifies the rules the run used.
	RuleSetHash string

	// Classes and Nodes are the final graph size.
	Classes int
	Nodes   int

	// Best is the extracted term, empty when nothing was extracted.
	Best     string
	BestCost int64

	Result *runner.Result
}

// WriteRun stores a run with its iterations and per-rule counts in one
// transaction. The run's report is rendered with report.Run and stored as
// canonical JSON next to its digest.
//
// Uses ON CONFLICT(id) DO NOTHING for idempotency: a second write of the
// same run id returns inserted=false and changes nothing.
func (s *Store) WriteRun(ctx context.Context, run Run) (inserted bool, err error) {
	res := run.Result
	if res == nil || res.RunID == "" {
		return false, fmt.Errorf("write run: result with run id required")
	}

	rep := report.Run(res)
	blob, err := report.Marshal(rep)
	if err != nil {
		return false, fmt.Errorf("write run: marshal report: %w", err)
	}
	digest, err := report.RunDigest(rep)
	if err != nil {
		return false, fmt.Errorf("write run: %w", err)
	}

	var bestCost sql.NullInt64
	if run.Best != "" {
		bestCost = sql.NullInt64{Int64: run.BestCost, Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("write run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, expr, rule_set_hash, stop_code, stop_message, iterations, classes, nodes,
		 best, best_cost, started_at, elapsed_us, report, report_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		res.RunID,
		run.Expr,
		run.RuleSetHash,
		string(res.StopReason.Code),
		res.StopReason.Message,
		len(res.Iterations),
		run.Classes,
		run.Nodes,
		run.Best,
		bestCost,
		res.StartedAt.UTC().Format(time.RFC3339Nano),
		res.Elapsed.Microseconds(),
		string(blob),
		digest,
	)
	if err != nil {
		return false, fmt.Errorf("write run: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("write run: rows affected: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	for _, it := range res.Iterations {
		if err := writeIteration(ctx, tx, res.RunID, it); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("write run: commit: %w", err)
	}
	return true, nil
}

func writeIteration(ctx context.Context, tx *sql.Tx, runID string, it runner.Iteration) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO iterations
		(run_id, idx, nodes, classes, applied, rebuild_unions, search_us, apply_us, rebuild_us)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		runID,
		it.Index,
		it.Nodes,
		it.Classes,
		it.TotalApplied(),
		it.Rebuild.Unions,
		it.SearchTime.Microseconds(),
		it.ApplyTime.Microseconds(),
		it.RebuildTime.Microseconds(),
	)
	if err != nil {
		return fmt.Errorf("write iteration %d: %w", it.Index, err)
	}

	for _, rule := range iterationRules(it) {
		banned := 0
		if slices.Contains(it.Banned, rule) {
			banned = 1
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO rule_applications
			(run_id, iteration, rule, matches, applied, banned)
			VALUES (?, ?, ?, ?, ?, ?)
		`, runID, it.Index, rule, it.Matches[rule], it.Applied[rule], banned)
		if err != nil {
			return fmt.Errorf("write rule application %s/%d: %w", rule, it.Index, err)
		}
	}
	return nil
}

// iterationRules returns every rule mentioned by it, sorted.
func iterationRules(it runner.Iteration) []string {
	var rules []string
	for r := range it.Matches {
		rules = append(rules, r)
	}
	for r := range it.Applied {
		rules = append(rules, r)
	}
	rules = append(rules, it.Banned...)
	slices.Sort(rules)
	return slices.Compact(rules)
}
