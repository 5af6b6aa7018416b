package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Success(map[string]string{"best": "x"})
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, map[string]any{"best": "x"}, resp.Data)
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error(ErrCodeParse, "unexpected )", []string{"(+ x))"})
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E005", resp.Error.Code)
	assert.Equal(t, "unexpected )", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	require.NoError(t, formatter.Success("rules ok"))
	assert.Equal(t, "rules ok\n", buf.String())
}

func TestOutputFormatter_TextError(t *testing.T) {
	tests := []struct {
		name        string
		verbose     bool
		wantDetails bool
	}{
		{"quiet", false, false},
		{"verbose", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:  "text",
				Writer:  buf,
				Verbose: tt.verbose,
			}

			err := formatter.Error(ErrCodeCompile, "rules do not compile", map[string]string{"file": "math.cue"})
			require.NoError(t, err)
			assert.Contains(t, buf.String(), "Error [E003]: rules do not compile")
			if tt.wantDetails {
				assert.Contains(t, buf.String(), "Details:")
			} else {
				assert.NotContains(t, buf.String(), "Details:")
			}
		})
	}
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &bytes.Buffer{}
			diag := &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:    "json",
				Writer:    out,
				ErrWriter: diag,
				Verbose:   tt.verbose,
			}

			formatter.VerboseLog("loaded %d rules", 4)

			assert.Empty(t, out.String(), "diagnostics never go to the data writer")
			if tt.wantLog {
				assert.Equal(t, "loaded 4 rules\n", diag.String())
			} else {
				assert.Empty(t, diag.String())
			}
		})
	}
}

func TestOutputFormatter_GetErrWriterFallsBack(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Writer: buf}
	assert.Same(t, buf, formatter.GetErrWriter())
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"plain", errors.New("boom"), ExitFailure},
		{"exit_failure", NewExitError(ExitFailure, "scenarios failed"), ExitFailure},
		{"command_error", NewExitError(ExitCommandError, "no such file"), ExitCommandError},
		{"wrapped", fmt.Errorf("simplify: %w", NewExitError(ExitCommandError, "bad expr")), ExitCommandError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestExitError_Message(t *testing.T) {
	cause := errors.New("disk full")
	err := WrapExitError(ExitCommandError, "write run", cause)
	assert.Equal(t, "write run: disk full", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "no rules", NewExitError(ExitFailure, "no rules").Error())
}

func TestOutputFormatter_Fail(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}
	cause := errors.New("disk full")

	err := formatter.Fail(ErrCodeStore, "cannot write run", "record run", cause)
	require.Error(t, err)
	assert.Equal(t, "Error [E007]: cannot write run\n", buf.String())
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "record run: disk full", err.Error())
}

type failingWriter struct{ err error }

func (w failingWriter) Write([]byte) (int, error) { return 0, w.err }

func TestOutputFormatter_FailKeepsWriteError(t *testing.T) {
	closed := errors.New("stdout closed")
	cause := errors.New("disk full")

	for _, format := range []string{"text", "json"} {
		t.Run(format, func(t *testing.T) {
			formatter := &OutputFormatter{Format: format, Writer: failingWriter{closed}}

			err := formatter.Fail(ErrCodeStore, "cannot write run", "record run", cause)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.ErrorIs(t, err, cause)
			assert.ErrorIs(t, err, closed)
		})
	}
}

func TestOutputFormatter_RunID(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		buf := &bytes.Buffer{}
		formatter := &OutputFormatter{Format: "json", Writer: buf, RunID: "run-42"}
		require.NoError(t, formatter.Error(ErrCodeStore, "database is locked", nil))

		var resp CLIResponse
		require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
		assert.Equal(t, "run-42", resp.RunID)
		assert.Equal(t, "error", resp.Status)
	})

	t.Run("text", func(t *testing.T) {
		buf := &bytes.Buffer{}
		formatter := &OutputFormatter{Format: "text", Writer: buf, RunID: "run-42"}
		require.NoError(t, formatter.Error(ErrCodeStore, "database is locked", nil))
		assert.Equal(t, "Error [E007]: database is locked (run run-42)\n", buf.String())
	})
}
