package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// Process exit codes. main passes GetExitCode(err) to os.Exit.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // a verdict came back negative: invalid rules, failing scenario, unproven goal
	ExitCommandError = 2 // the command could not run: bad path, unparseable term, database
)

// Codes for CLIError.Code. They are stable across releases so scripts can
// match on them.
const (
	ErrCodeGeneric      = "E001"
	ErrCodeNotFound     = "E002" // rule file, scenario or run id
	ErrCodeCompile      = "E003" // CUE rule file
	ErrCodeInvalidRules = "E004"
	ErrCodeParse        = "E005" // s-expression
	ErrCodeRun          = "E006" // saturation stopped with ERROR
	ErrCodeStore        = "E007" // run history database
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError returns an ExitError without a cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError returns an ExitError whose message is prefixed to err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode maps err to a process exit code: ExitSuccess for nil, the
// code of the first ExitError in the chain, ExitFailure otherwise.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter writes command results as text or as a CLIResponse
// envelope. Diagnostics go to ErrWriter so JSON on Writer stays parseable.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
	Verbose   bool

	// RunID tags every envelope written once a saturation run exists, so a
	// failure after the run (recording it, say) still names the run.
	RunID string
}

// CLIResponse is the JSON envelope of every command.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
	RunID  string    `json:"run_id,omitempty"`
}

// CLIError is the error part of a CLIResponse.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Success writes data. Text output prints it with fmt's %v, so types with a
// String method render themselves.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
			RunID:  f.RunID,
		})
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Error writes an error report. Details are printed in text mode only with
// --verbose. The returned error is a failure to write, not the report.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
			RunID: f.RunID,
		})
	}

	line := fmt.Sprintf("Error [%s]: %s", code, message)
	if f.RunID != "" {
		line += fmt.Sprintf(" (run %s)", f.RunID)
	}
	if _, err := fmt.Fprintln(f.Writer, line); err != nil {
		return err
	}
	if f.Verbose && details != nil {
		if _, err := fmt.Fprintf(f.Writer, "Details: %v\n", details); err != nil {
			return err
		}
	}
	return nil
}

// Fail reports err under code and returns it as an ExitCommandError named
// after action. If the report itself cannot be written, that error is
// joined to the result so it is not lost.
func (f *OutputFormatter) Fail(code, message, action string, err error) error {
	exit := WrapExitError(ExitCommandError, action, err)
	if werr := f.Error(code, message, nil); werr != nil {
		return errors.Join(exit, fmt.Errorf("write error report: %w", werr))
	}
	return exit
}

// VerboseLog writes a diagnostic line when --verbose is set.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// newFormatter builds the formatter for cmd from the root flags.
func newFormatter(cmd *cobra.Command, opts *RootOptions) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// GetErrWriter returns ErrWriter, or Writer when none is set.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
