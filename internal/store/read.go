package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/eqsat/internal/report"
)

// ErrRunNotFound is returned by ReadRun for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

// RunRecord is a stored run. Report is only populated by ReadRun.
type RunRecord struct {
	Seq         int64
	ID          string
	Expr        string
	RuleSetHash string
	StopCode    string
	StopMessage string
	Iterations  int
	Classes     int
	Nodes       int
	Best        string
	BestCost    *int64
	StartedAt   time.Time
	Elapsed     time.Duration
	Report      report.Object
	ReportHash  string
}

// IterationRecord is one stored iteration.
type IterationRecord struct {
	Index         int           `json:"index"`
	Nodes         int           `json:"nodes"`
	Classes       int           `json:"classes"`
	Applied       int           `json:"applied"`
	RebuildUnions int           `json:"rebuild_unions"`
	SearchTime    time.Duration `json:"search_ns"`
	ApplyTime     time.Duration `json:"apply_ns"`
	RebuildTime   time.Duration `json:"rebuild_ns"`
}

// RuleTotal aggregates one rule over every stored run.
type RuleTotal struct {
	Rule    string `json:"rule"`
	Runs    int    `json:"runs"`
	Matches int    `json:"matches"`
	Applied int    `json:"applied"`
	Banned  int    `json:"banned"`
}

const runColumns = `seq, id, expr, rule_set_hash, stop_code, stop_message, iterations,
	classes, nodes, best, best_cost, started_at, elapsed_us, report_hash`

// ReadRun returns the run with the given id, its report decoded.
//
// The stored digest is recomputed from the report blob; a mismatch is
// an error.
func (s *Store) ReadRun(ctx context.Context, id string) (*RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+runColumns+`, report
		FROM runs
		WHERE id = ?
	`, id)

	var blob string
	rec, err := scanRun(row, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	v, err := report.Unmarshal([]byte(blob))
	if err != nil {
		return nil, fmt.Errorf("read run %s: decode report: %w", id, err)
	}
	obj, ok := v.(report.Object)
	if !ok {
		return nil, fmt.Errorf("read run %s: report is not an object", id)
	}
	digest, err := report.RunDigest(obj)
	if err != nil {
		return nil, fmt.Errorf("read run %s: %w", id, err)
	}
	if digest != rec.ReportHash {
		return nil, fmt.Errorf("read run %s: report digest mismatch: stored %s, computed %s", id, rec.ReportHash, digest)
	}
	rec.Report = obj
	return rec, nil
}

// ListRuns returns up to limit runs, newest first (limit <= 0 means all).
// Ordering uses the insertion sequence, then id COLLATE BINARY.
//
// Returns an empty slice (not nil) if no runs exist.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		ORDER BY seq DESC, id COLLATE BINARY ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunRecord{}
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadIterations returns the iterations of a run ordered by index.
func (s *Store) ReadIterations(ctx context.Context, runID string) ([]IterationRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, nodes, classes, applied, rebuild_unions, search_us, apply_us, rebuild_us
		FROM iterations
		WHERE run_id = ?
		ORDER BY idx ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query iterations: %w", err)
	}
	defer rows.Close()

	its := []IterationRecord{}
	for rows.Next() {
		var (
			it                           IterationRecord
			searchUS, applyUS, rebuildUS int64
		)
		if err := rows.Scan(&it.Index, &it.Nodes, &it.Classes, &it.Applied, &it.RebuildUnions,
			&searchUS, &applyUS, &rebuildUS); err != nil {
			return nil, fmt.Errorf("scan iteration: %w", err)
		}
		it.SearchTime = time.Duration(searchUS) * time.Microsecond
		it.ApplyTime = time.Duration(applyUS) * time.Microsecond
		it.RebuildTime = time.Duration(rebuildUS) * time.Microsecond
		its = append(its, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate iterations: %w", err)
	}
	return its, nil
}

// RuleTotals sums matches and effective unions per rule over every stored
// run, most productive rule first, ties by rule name COLLATE BINARY.
func (s *Store) RuleTotals(ctx context.Context) ([]RuleTotal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT rule, COUNT(DISTINCT run_id), SUM(matches), SUM(applied), SUM(banned)
		FROM rule_applications
		GROUP BY rule
		ORDER BY SUM(applied) DESC, rule COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query rule totals: %w", err)
	}
	defer rows.Close()

	totals := []RuleTotal{}
	for rows.Next() {
		var t RuleTotal
		if err := rows.Scan(&t.Rule, &t.Runs, &t.Matches, &t.Applied, &t.Banned); err != nil {
			return nil, fmt.Errorf("scan rule total: %w", err)
		}
		totals = append(totals, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rule totals: %w", err)
	}
	return totals, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanRun scans runColumns, followed by extra destinations.
func scanRun(row scanner, extra ...any) (*RunRecord, error) {
	var (
		rec       RunRecord
		bestCost  sql.NullInt64
		startedAt string
		elapsedUS int64
	)
	dest := []any{
		&rec.Seq, &rec.ID, &rec.Expr, &rec.RuleSetHash, &rec.StopCode, &rec.StopMessage,
		&rec.Iterations, &rec.Classes, &rec.Nodes, &rec.Best, &bestCost,
		&startedAt, &elapsedUS, &rec.ReportHash,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}

	t, err := time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return nil, fmt.Errorf("scan run %s: started_at: %w", rec.ID, err)
	}
	rec.StartedAt = t
	rec.Elapsed = time.Duration(elapsedUS) * time.Microsecond
	if bestCost.Valid {
		c := bestCost.Int64
		rec.BestCost = &c
	}
	return &rec, nil
}
