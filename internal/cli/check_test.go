package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/eqsat/internal/rules"
)

func rulesFile(name string) string {
	return filepath.Join("testdata", "rules", name)
}

func runCheckCommand(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewCheckCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestCheckCommandValid(t *testing.T) {
	out, err := runCheckCommand(t, "text", rulesFile("symbols.cue"))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ testdata/rules/symbols.cue: 2 rewrite(s), language symbols")
	assert.Regexp(t, `hash: [0-9a-f]{64}`, out)
	assert.Contains(t, out, "info: rules feed each other: comm -> comm")
}

func TestCheckCommandValidJSON(t *testing.T) {
	out, err := runCheckCommand(t, "json", rulesFile("symbols.cue"))
	require.NoError(t, err)

	var response struct {
		Status string      `json:"status"`
		Data   CheckResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &response))
	assert.Equal(t, "ok", response.Status)
	assert.True(t, response.Data.Valid)
	assert.Equal(t, "symbols", response.Data.Language)
	assert.Equal(t, []string{"fold", "comm"}, response.Data.Rewrites)
	assert.Empty(t, response.Data.Errors)

	rs, err := rules.CompileFile(rulesFile("symbols.cue"))
	require.NoError(t, err)
	hash, err := rs.Hash()
	require.NoError(t, err)
	assert.Equal(t, hash, response.Data.Hash)
}

func TestCheckCommandValidationErrors(t *testing.T) {
	out, err := runCheckCommand(t, "text", rulesFile("unbound.cue"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ testdata/rules/unbound.cue: 1 validation error(s)")
	assert.Contains(t, out, "[E205]")
	assert.NotContains(t, out, "hash:")
}

func TestCheckCommandValidationErrorsJSON(t *testing.T) {
	out, err := runCheckCommand(t, "json", rulesFile("unbound.cue"))
	require.Error(t, err)

	var response CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &response))
	assert.Equal(t, "error", response.Status)
	require.NotNil(t, response.Error)
	assert.Equal(t, ErrCodeInvalidRules, response.Error.Code)
	assert.NotNil(t, response.Error.Details)
}

func TestCheckCommandGrowth(t *testing.T) {
	out, err := runCheckCommand(t, "text", rulesFile("grow.cue"))
	require.NoError(t, err, "growth is a warning unless --strict")
	assert.Contains(t, out, "warning: rules can grow the graph without bound: wrap -> wrap")

	_, err = runCheckCommand(t, "text", rulesFile("grow.cue"), "--strict")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	// Info-level groups never fail.
	_, err = runCheckCommand(t, "text", rulesFile("symbols.cue"), "--strict")
	require.NoError(t, err)
}

func TestCheckCommandCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		file string
		code string
	}{
		{"not_found", rulesFile("missing.cue"), "Error [E002]"},
		{"syntax", rulesFile("syntax.cue"), "Error [E003]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCheckCommand(t, "text", tt.file)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, out, tt.code)
		})
	}
}

func TestCheckCommandMissingArgs(t *testing.T) {
	_, err := runCheckCommand(t, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}
