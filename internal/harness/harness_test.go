package harness

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/eqsat/internal/rules"
	"github.com/roach88/eqsat/internal/runner"
)

func load(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name))
	require.NoError(t, err)
	return s
}

func TestRun_Scenarios(t *testing.T) {
	tests := []struct {
		file string
		stop runner.StopCode
	}{
		{"add_zero.yaml", runner.StopSaturated},
		{"commute_symbols.yaml", runner.StopSaturated},
		{"assoc_limit.yaml", runner.StopIterationLimit},
		{"fold_symbols.yaml", runner.StopSaturated},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			result, err := Run(load(t, tt.file))
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Empty(t, result.Errors)
			assert.Empty(t, result.RunError)
			assert.Equal(t, tt.stop, result.Run.StopReason.Code)
			assert.NotEmpty(t, result.RuleSetHash)
		})
	}
}

func TestRun_AddZeroResult(t *testing.T) {
	result, err := Run(load(t, "add_zero.yaml"))
	require.NoError(t, err)

	require.Len(t, result.Best, 1)
	assert.Equal(t, Best{Root: 0, Term: "x", Cost: 1}, result.Best[0])
	assert.Equal(t, DefaultRunID, result.Run.RunID)
	assert.Equal(t, 2, result.Classes)
}

func TestRun_ReportsFailedAssertions(t *testing.T) {
	s := load(t, "add_zero.yaml")
	cost := 5
	s.Assertions = []Assertion{
		{Type: AssertBest, Expect: "y"},
		{Type: AssertBestCost, Cost: &cost},
		{Type: AssertStopReason, Expect: string(runner.StopNodeLimit)},
		{Type: AssertMaxClasses, Count: 1},
		{Type: AssertEquivalent, Terms: []string{"x", "y"}},
		{Type: AssertNotEquivalent, Terms: []string{"x", "(+ x 0)"}},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 6)
	assert.Contains(t, result.Errors[0], "assertions[0]")
	assert.Contains(t, result.Errors[0], "expected: y")
	assert.Contains(t, result.Errors[1], "cost 5")
	assert.Contains(t, result.Errors[2], "NODE_LIMIT")
	assert.Contains(t, result.Errors[3], "at most 1 classes")
	assert.Contains(t, result.Errors[4], "not represented")
	assert.Contains(t, result.Errors[5], "not_equivalent")
}

func TestRun_InvalidRules(t *testing.T) {
	s := &Scenario{
		Name:        "bad",
		Description: "unbound variable",
		Rules: RuleSource{Inline: []InlineRule{
			{Name: "r", LHS: "(+ ?a 0)", RHS: "?b"},
		}},
		Start:      []string{"(+ x 0)"},
		Assertions: []Assertion{{Type: AssertStopReason, Expect: "SATURATED"}},
	}
	_, err := Run(s)
	require.Error(t, err)
	assert.ErrorIs(t, err, rules.ErrInvalid)
}

func TestRun_UnparseableStart(t *testing.T) {
	s := load(t, "add_zero.yaml")
	s.Start = []string{"(+ x"}
	_, err := Run(s)
	assert.Error(t, err)
}

func TestRunWithGolden_FoldSymbols(t *testing.T) {
	result, err := RunWithGolden(t, load(t, "fold_symbols.yaml"))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestLoadRuleSet(t *testing.T) {
	rs, err := LoadRuleSet(RuleSource{Inline: []InlineRule{
		{Name: "dist", LHS: "(* ?a (+ ?b ?c))", RHS: "(+ (* ?a ?b) (* ?a ?c))", Bidirectional: true},
		{Name: "cancel", LHS: "(/ ?a ?a)", RHS: "1", UnlessZero: []string{"?a"}},
	}})
	require.NoError(t, err)
	assert.Equal(t, rules.DefaultLanguage, rs.Language)
	assert.Equal(t, []string{"dist", "dist-rev", "cancel"}, rs.Names())
	assert.Equal(t, []string{"?a"}, rs.Rules[1].UnlessZero)

	rs, err = LoadRuleSet(RuleSource{File: filepath.Join("testdata", "rules", "arith.cue")})
	require.NoError(t, err)
	assert.Len(t, rs.Rules, 4)

	_, err = LoadRuleSet(RuleSource{File: filepath.Join("testdata", "rules", "missing.cue")})
	assert.Error(t, err)
}

func TestLoadScenario_ResolvesRulePath(t *testing.T) {
	s := load(t, "add_zero.yaml")
	assert.Equal(t, filepath.Join("testdata", "rules", "arith.cue"), s.Rules.File)
	assert.Equal(t, 10, s.Limits.Iterations)
	assert.Equal(t, 1000, s.Limits.Nodes)
	require.NotNil(t, s.Assertions[2].Cost)
	assert.Equal(t, 1, *s.Assertions[2].Cost)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenarioWithBasePath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "r.cue"), []byte(`rules: r: {lhs: "(+ ?a 0)", rhs: "?a"}`), 0o644))
	path := filepath.Join(dir, "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: s
description: d
rules: r.cue
start: ["(+ y 0)"]
assertions:
  - type: best
    expect: y
`), 0o644))

	s, err := LoadScenarioWithBasePath(path, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "r.cue"), s.Rules.File)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestParseScenario(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: timed
description: d
rules:
  inline:
    - {name: r, lhs: "(+ ?a 0)", rhs: "?a"}
start: ["(+ x 0)"]
limits:
  time: 2s
  classes: 50
assertions:
  - {type: max_classes, count: 3}
`), "")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, s.Limits.Time)
	assert.Equal(t, 50, s.Limits.Classes)
	assert.Empty(t, s.Rules.File)
	require.Len(t, s.Rules.Inline, 1)
	assert.Equal(t, "r", s.Rules.Inline[0].Name)
}

func TestParseScenario_Invalid(t *testing.T) {
	const head = "name: s\ndescription: d\nrules:\n  inline:\n    - {name: r, lhs: \"(+ ?a 0)\", rhs: \"?a\"}\nstart: [\"(+ x 0)\"]\n"
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown field", head + "assertion:\n  - {type: best, expect: x}\n", "failed to parse YAML"},
		{"missing name", "description: d\nrules: {inline: [{name: r, lhs: a, rhs: b}]}\nstart: [x]\nassertions: [{type: best, expect: x}]\n", "name is required"},
		{"missing description", "name: s\nrules: {inline: [{name: r, lhs: a, rhs: b}]}\nstart: [x]\nassertions: [{type: best, expect: x}]\n", "description is required"},
		{"missing rules", "name: s\ndescription: d\nstart: [x]\nassertions: [{type: best, expect: x}]\n", "rules is required"},
		{"rule file not found", "name: s\ndescription: d\nrules: nope.cue\nstart: [x]\nassertions: [{type: best, expect: x}]\n", "rule file not found"},
		{"missing start", "name: s\ndescription: d\nrules: {inline: [{name: r, lhs: a, rhs: b}]}\nassertions: [{type: best, expect: x}]\n", "start list is required"},
		{"missing assertions", head, "assertions list is required"},
		{"negative limit", head + "limits: {iterations: -1}\nassertions: [{type: best, expect: x}]\n", "non-negative"},
		{"unknown scheduler", head + "scheduler: greedy\nassertions: [{type: best, expect: x}]\n", "unknown scheduler"},
		{"unknown assertion", head + "assertions: [{type: shortest}]\n", "unknown assertion type"},
		{"one term", head + "assertions: [{type: equivalent, terms: [x]}]\n", "at least two terms"},
		{"best without expect", head + "assertions: [{type: best}]\n", "expect is required"},
		{"best_cost without cost", head + "assertions: [{type: best_cost}]\n", "cost is required"},
		{"unknown stop code", head + "assertions: [{type: stop_reason, expect: DONE}]\n", "unknown stop code"},
		{"zero max classes", head + "assertions: [{type: max_classes}]\n", "count must be positive"},
		{"root out of range", head + "assertions: [{type: best, expect: x, root: 1}]\n", "out of range"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml), "")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
