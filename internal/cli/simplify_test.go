package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/eqsat/internal/runner"
	"github.com/roach88/eqsat/internal/store"
	"github.com/roach88/eqsat/internal/testutil"
)

func runSimplifyCommand(t *testing.T, format string, args ...string) (string, string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd := NewSimplifyCommand(&RootOptions{Format: format})
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func deterministic(id string) SimplifyOptions {
	opts := DefaultSimplifyOptions()
	opts.Clock = testutil.NewManualClock(0)
	opts.RunIDs = testutil.NewFixedRunIDGenerator(id)
	opts.Logger = testutil.DiscardLogger()
	return opts
}

func TestSimplify_SymbolRules(t *testing.T) {
	src, err := LoadRules(rulesFile("symbols.cue"))
	require.NoError(t, err)

	out, err := Simplify(context.Background(), src, "(f a b)", deterministic("run-1"))
	require.NoError(t, err)

	assert.Equal(t, "(f a b)", out.Input)
	assert.Equal(t, "c", out.Best)
	assert.Equal(t, 1, out.Cost)
	assert.Equal(t, "run-1", out.RunID)
	assert.Equal(t, string(runner.StopSaturated), out.Stop)
	assert.Equal(t, 3, out.Classes, "a, b and the folded class")
	assert.Equal(t, src.Hash, out.RuleSetHash)
	assert.Len(t, out.GraphHash, 64)
	assert.Nil(t, out.Proven)
	assert.Positive(t, out.Applied)
	require.NotNil(t, out.Result)
	assert.Len(t, out.Result.Iterations, out.Iterations)
}

func TestSimplify_Deterministic(t *testing.T) {
	src, err := LoadRules(rulesFile("symbols.cue"))
	require.NoError(t, err)

	a, err := Simplify(context.Background(), src, "(f (f a b) b)", deterministic("run-a"))
	require.NoError(t, err)
	b, err := Simplify(context.Background(), src, "(f (f a b) b)", deterministic("run-b"))
	require.NoError(t, err)

	assert.Equal(t, a.GraphHash, b.GraphHash)
	assert.Equal(t, a.Best, b.Best)
	assert.Equal(t, "(f b c)", a.Best)
}

func TestSimplify_Goals(t *testing.T) {
	src, err := LoadRules(rulesFile("symbols.cue"))
	require.NoError(t, err)

	opts := deterministic("run-goal")
	opts.Goals = []string{"c"}
	out, err := Simplify(context.Background(), src, "(f a b)", opts)
	require.NoError(t, err)
	require.NotNil(t, out.Proven)
	assert.True(t, *out.Proven)
	assert.Equal(t, string(runner.StopHook), out.Stop)

	opts.Goals = []string{"d"}
	out, err = Simplify(context.Background(), src, "(f a b)", opts)
	require.NoError(t, err)
	require.NotNil(t, out.Proven)
	assert.False(t, *out.Proven)
	assert.Equal(t, string(runner.StopSaturated), out.Stop)
}

func TestSimplify_BuiltinRules(t *testing.T) {
	src, err := BuiltinRules()
	require.NoError(t, err)

	opts := deterministic("run-math")
	opts.Limits.Iterations = 3
	out, err := Simplify(context.Background(), src, "(+ x 0)", opts)
	require.NoError(t, err)
	assert.Equal(t, "x", out.Best)
	assert.Equal(t, 1, out.Cost)
	assert.Equal(t, BuiltinRulesName, out.Rules)
}

func TestSimplify_Errors(t *testing.T) {
	src, err := LoadRules(rulesFile("symbols.cue"))
	require.NoError(t, err)

	_, err = Simplify(context.Background(), src, "(f a", deterministic("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse expression")

	opts := deterministic("x")
	opts.Goals = []string{"(g"}
	_, err = Simplify(context.Background(), src, "(f a b)", opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse goal 1")
}

func TestSimplifyCommandText(t *testing.T) {
	out, _, err := runSimplifyCommand(t, "text", "(f a b)", "--rules", rulesFile("symbols.cue"))
	require.NoError(t, err)
	assert.Contains(t, out, "c\n  cost:       1")
	assert.Contains(t, out, "stop:       SATURATED")
	assert.Contains(t, out, "graph:      3 classes")
}

func TestSimplifyCommandJSON(t *testing.T) {
	out, _, err := runSimplifyCommand(t, "json", "(f a b)", "--rules", rulesFile("symbols.cue"), "--backoff", "--parallel", "2")
	require.NoError(t, err)

	var response struct {
		Status string         `json:"status"`
		Data   Simplification `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &response))
	assert.Equal(t, "ok", response.Status)
	assert.Equal(t, "c", response.Data.Best)
	assert.Equal(t, 1, response.Data.Cost)
	assert.NotEmpty(t, response.Data.RunID)
	assert.Equal(t, rulesFile("symbols.cue"), response.Data.Rules)
}

func TestSimplifyCommandGoalNotProven(t *testing.T) {
	out, _, err := runSimplifyCommand(t, "text", "(f a b)", "--rules", rulesFile("symbols.cue"), "--goal", "d")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "proven:     false")
}

func TestSimplifyCommandIterationLimit(t *testing.T) {
	out, _, err := runSimplifyCommand(t, "text", "(f a b)", "--rules", rulesFile("symbols.cue"), "--iter-limit", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "stop:       ITERATION_LIMIT")
	assert.Contains(t, out, "iterations: 1")
}

func TestSimplifyCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"parse", []string{"(f a", "--rules", rulesFile("symbols.cue")}, "Error [E005]"},
		{"missing_rules", []string{"x", "--rules", rulesFile("missing.cue")}, "Error [E002]"},
		{"syntax_rules", []string{"x", "--rules", rulesFile("syntax.cue")}, "Error [E003]"},
		{"invalid_rules", []string{"x", "--rules", rulesFile("unbound.cue")}, "Error [E004]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := runSimplifyCommand(t, "text", tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestSimplifyCommandMetrics(t *testing.T) {
	_, errOut, err := runSimplifyCommand(t, "text", "(f a b)", "--rules", rulesFile("symbols.cue"), "--metrics")
	require.NoError(t, err)
	assert.Contains(t, errOut, "eqsat_runner_iterations_total")
	assert.Contains(t, errOut, `eqsat_runner_stops_total{reason="SATURATED"} 1`)
}

func TestSimplifyCommandRecordsRun(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")
	out, _, err := runSimplifyCommand(t, "json", "(f a b)", "--rules", rulesFile("symbols.cue"), "--db", db)
	require.NoError(t, err)

	var response struct {
		Data Simplification `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &response))

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()

	rec, err := st.ReadRun(context.Background(), response.Data.RunID)
	require.NoError(t, err)
	assert.Equal(t, "(f a b)", rec.Expr)
	assert.Equal(t, "c", rec.Best)
	require.NotNil(t, rec.BestCost)
	assert.Equal(t, int64(1), *rec.BestCost)
	assert.Equal(t, response.Data.RuleSetHash, rec.RuleSetHash)
	assert.Equal(t, "SATURATED", rec.StopCode)
}
