package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/eqsat/internal/harness"
	"github.com/roach88/eqsat/internal/report"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update   bool   // regenerate golden files
	Filter   string // scenario filter (glob pattern)
	RulesDir string // base directory for relative rule files
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Best   []string `json:"best,omitempty"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenario-or-dir>...",
		Short: "Run scenario files",
		Long: `Run YAML scenarios through the harness.

Each argument is a scenario file or a directory searched for *.yaml and
*.yml files. Every scenario is run with a frozen clock and a fixed run id
and checked against its assertions. When golden/<name>.golden exists next
to a scenario, its canonical report must match byte for byte.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  eqsat test ./scenarios
  eqsat test ./scenarios --filter "assoc-*"
  eqsat test ./scenarios --update
  eqsat test add_zero.yaml --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().StringVar(&opts.RulesDir, "rules-dir", "", "resolve relative rule files against this directory")

	return cmd
}

func runTests(opts *TestOptions, paths []string, cmd *cobra.Command) error {
	files, err := collectScenarios(paths, opts.Filter)
	if err != nil {
		return err
	}

	result := TestResult{Scenarios: []ScenarioResult{}}
	if len(files) == 0 && opts.Format != "json" {
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
		return nil
	}
	for _, file := range files {
		result.record(runScenario(file, opts, cmd))
	}

	if opts.Format == "json" {
		return outputTestJSON(cmd, result)
	}
	return outputTestText(cmd, result)
}

func (r *TestResult) record(s ScenarioResult) {
	r.Scenarios = append(r.Scenarios, s)
	r.Total++
	if s.Pass {
		r.Passed++
	} else {
		r.Failed++
	}
}

// failure is the exit error for r, nil when every scenario passed.
func (r *TestResult) failure() error {
	if r.Failed == 0 {
		return nil
	}
	return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", r.Failed))
}

// collectScenarios expands directories in paths to the scenario files
// below them. Plain files are taken as given, without the filter.
func collectScenarios(paths []string, filter string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("scenario path not found: %s", p))
		}
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "stat scenario path", err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		found, err := findScenarioFiles(p, filter)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to find scenarios", err)
		}
		files = append(files, found...)
	}
	return files, nil
}

// findScenarioFiles lists the .yaml and .yml files under dir in lexical
// order. golden directories are skipped; filter matches the file name
// without its extension.
func findScenarioFiles(dir string, filter string) ([]string, error) {
	if filter != "" {
		if _, err := filepath.Match(filter, ""); err != nil {
			return nil, fmt.Errorf("invalid filter pattern: %w", err)
		}
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		switch {
		case err != nil:
			return err
		case d.IsDir():
			if path != dir && d.Name() == "golden" {
				return filepath.SkipDir
			}
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			if ok, _ := filepath.Match(filter, strings.TrimSuffix(d.Name(), ext)); !ok {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	return files, err
}

// runScenario runs one scenario file, prints its line in text mode and
// returns its result.
func runScenario(file string, opts *TestOptions, cmd *cobra.Command) ScenarioResult {
	w := cmd.OutOrStdout()
	text := opts.Format != "json"

	fail := func(name string, errs ...string) ScenarioResult {
		if text {
			fmt.Fprintf(w, "✗ %s\n", name)
			for _, e := range errs {
				fmt.Fprintf(w, "  %s\n", e)
			}
		}
		return ScenarioResult{Name: name, Errors: errs}
	}

	base := opts.RulesDir
	if base == "" {
		base = filepath.Dir(file)
	}
	scenario, err := harness.LoadScenarioWithBasePath(file, base)
	if err != nil {
		return fail(filepath.Base(file), fmt.Sprintf("failed to load scenario: %v", err))
	}

	result, err := harness.RunContext(cmd.Context(), scenario)
	if err != nil {
		return fail(scenario.Name, fmt.Sprintf("execution failed: %v", err))
	}
	snapshot, err := report.Marshal(harness.Snapshot(scenario.Name, result))
	if err != nil {
		return fail(scenario.Name, fmt.Sprintf("marshal report: %v", err))
	}

	note := ""
	goldenPath := goldenFilePath(file)
	if opts.Update {
		if err := writeGolden(goldenPath, snapshot); err != nil {
			return fail(scenario.Name, fmt.Sprintf("failed to update golden file: %v", err))
		}
		note = " (golden updated)"
	} else if golden, err := os.ReadFile(goldenPath); err == nil {
		if !bytes.Equal(golden, snapshot) {
			return fail(scenario.Name, "report does not match golden file (run with --update to regenerate)")
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fail(scenario.Name, fmt.Sprintf("failed to read golden file: %v", err))
	}

	if !result.Pass {
		return fail(scenario.Name, result.Errors...)
	}
	if text {
		fmt.Fprintf(w, "✓ %s%s\n", scenario.Name, note)
	}
	best := make([]string, len(result.Best))
	for i, b := range result.Best {
		best[i] = b.Term
	}
	return ScenarioResult{Name: scenario.Name, Pass: true, Best: best}
}

// goldenFilePath maps dir/name.yaml to dir/golden/name.golden.
func goldenFilePath(scenarioFile string) string {
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(scenarioFile), "golden", name+".golden")
}

func writeGolden(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create golden directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

func outputTestJSON(cmd *cobra.Command, result TestResult) error {
	response := CLIResponse{Status: "ok", Data: result}
	failure := result.failure()
	if failure != nil {
		response.Status = "error"
		response.Error = &CLIError{Code: "E_TEST_FAILED", Message: failure.Error()}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}
	return failure
}

func outputTestText(cmd *cobra.Command, result TestResult) error {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "\nTest Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	if err := result.failure(); err != nil {
		return err
	}
	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
