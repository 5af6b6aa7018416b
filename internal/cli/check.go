package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/eqsat/internal/rules"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	Strict bool // growth warnings fail the check
}

// CheckResult is the outcome of checking a rule file.
type CheckResult struct {
	File     string                  `json:"file"`
	Language string                  `json:"language"`
	Rewrites []string                `json:"rewrites"`
	Hash     string                  `json:"hash,omitempty"`
	Errors   []rules.ValidationError `json:"errors,omitempty"`
	Growth   []rules.GrowthWarning   `json:"growth,omitempty"`
	Valid    bool                    `json:"valid"`
}

func (r *CheckResult) String() string {
	var b strings.Builder
	if r.Valid {
		fmt.Fprintf(&b, "✓ %s: %d rewrite(s), language %s", r.File, len(r.Rewrites), r.Language)
		fmt.Fprintf(&b, "\n  hash: %s", r.Hash)
	} else {
		fmt.Fprintf(&b, "✗ %s", r.File)
		if len(r.Errors) > 0 {
			fmt.Fprintf(&b, ": %d validation error(s)", len(r.Errors))
		}
	}
	for _, e := range r.Errors {
		fmt.Fprintf(&b, "\n  %s", e.Error())
	}
	for _, w := range r.Growth {
		fmt.Fprintf(&b, "\n  %s: %s", w.Level, w.Message)
	}
	return b.String()
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <rules.cue>",
		Short: "Validate a rule file",
		Long: `Compile and validate a CUE rule file.

Every rule is checked against its language: patterns must parse, names
must be unique and right-hand sides may only use bound variables. Groups
of rules that keep triggering each other are reported; with --strict a
group that can grow the graph without bound fails the check.

Exit codes:
  0 - Rule file is valid
  1 - Validation failed
  2 - Command error (file not found, CUE syntax error)

Examples:
  eqsat check rules.cue
  eqsat check rules.cue --strict --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, opts, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "fail on growth warnings")

	return cmd
}

func runCheck(cmd *cobra.Command, opts *CheckOptions, path string) error {
	formatter := newFormatter(cmd, opts.RootOptions)

	rs, err := rules.CompileFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return formatter.Fail(ErrCodeNotFound, fmt.Sprintf("rule file not found: %s", path), "check failed", err)
	}
	if err != nil {
		return formatter.Fail(ErrCodeCompile, err.Error(), "check failed", err)
	}
	formatter.VerboseLog("Compiled %d rule(s) from %s", len(rs.Rules), path)

	result := &CheckResult{
		File:     path,
		Language: rs.Language,
		Rewrites: rs.Names(),
		Errors:   rules.Validate(rs),
	}
	if len(result.Errors) == 0 {
		if result.Hash, err = rs.Hash(); err != nil {
			return WrapExitError(ExitCommandError, "hash rules", err)
		}
		result.Growth = rules.AnalyzeGrowth(rs)
	}
	result.Valid = len(result.Errors) == 0 && !(opts.Strict && hasGrowthWarning(result.Growth))

	if opts.Format == "json" && !result.Valid {
		if err := formatter.Error(ErrCodeInvalidRules, "rule file is invalid", result); err != nil {
			return err
		}
	} else if err := formatter.Success(result); err != nil {
		return err
	}

	if !result.Valid {
		return NewExitError(ExitFailure, "rule file is invalid")
	}
	return nil
}

func hasGrowthWarning(ws []rules.GrowthWarning) bool {
	for _, w := range ws {
		if w.Level == rules.LevelWarning {
			return true
		}
	}
	return false
}
