package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/eqsat/internal/runner"
)

// Scenario defines a saturation test: rules, start terms, limits and the
// assertions that must hold once the run stops.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are named after it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Rules is a CUE rule file or an inline rule list.
	Rules RuleSource `yaml:"rules"`

	// Start lists the terms added as roots before the run.
	Start []string `yaml:"start"`

	// Limits bounds the run. Zero fields keep the runner defaults.
	Limits Limits `yaml:"limits,omitempty"`

	// Scheduler is "simple" (default) or "backoff".
	Scheduler string `yaml:"scheduler,omitempty"`

	// Assertions are checked after the run.
	Assertions []Assertion `yaml:"assertions"`

	// RunID is an optional fixed run id.
	// If empty, defaults to "test-run-default" for golden file comparison.
	RunID string `yaml:"run_id,omitempty"`
}

// RuleSource is either a path to a CUE rule file or an inline rule list.
//
// In YAML a plain string is a file path; a mapping may carry file,
// language and inline.
type RuleSource struct {
	File     string       `yaml:"file,omitempty"`
	Language string       `yaml:"language,omitempty"`
	Inline   []InlineRule `yaml:"inline,omitempty"`
}

// UnmarshalYAML accepts a scalar path or a mapping.
func (r *RuleSource) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		r.File = node.Value
		return nil
	}
	type plain RuleSource
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*r = RuleSource(p)
	return nil
}

// InlineRule is one rule written directly in a scenario.
type InlineRule struct {
	Name          string   `yaml:"name"`
	LHS           string   `yaml:"lhs"`
	RHS           string   `yaml:"rhs"`
	UnlessZero    []string `yaml:"unless_zero,omitempty"`
	Bidirectional bool     `yaml:"bidirectional,omitempty"`
}

// Limits bounds a scenario run.
type Limits struct {
	Iterations int           `yaml:"iterations,omitempty"`
	Nodes      int           `yaml:"nodes,omitempty"`
	Classes    int           `yaml:"classes,omitempty"`
	Time       time.Duration `yaml:"time,omitempty"`
}

// Assertion checks the saturated graph or the run result.
type Assertion struct {
	// Type specifies the assertion type:
	// - "equivalent": Terms are all present and in one class
	// - "not_equivalent": Terms are not all in one class
	// - "best": Extracted term of start[Root] equals Expect
	// - "best_cost": Extracted cost of start[Root] equals Cost
	// - "stop_reason": Stop code equals Expect
	// - "max_classes": Final class count is at most Count
	Type string `yaml:"type"`

	// Terms are compared by equivalent and not_equivalent.
	Terms []string `yaml:"terms,omitempty"`

	// Root indexes Start (used by best and best_cost).
	Root int `yaml:"root,omitempty"`

	// Expect is the expected term (best) or stop code (stop_reason).
	Expect string `yaml:"expect,omitempty"`

	// Cost is the expected extraction cost (used by best_cost).
	Cost *int `yaml:"cost,omitempty"`

	// Count is the class bound (used by max_classes).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertEquivalent    = "equivalent"
	AssertNotEquivalent = "not_equivalent"
	AssertBest          = "best"
	AssertBestCost      = "best_cost"
	AssertStopReason    = "stop_reason"
	AssertMaxClasses    = "max_classes"
)

// Scheduler names.
const (
	SchedulerSimple  = "simple"
	SchedulerBackoff = "backoff"
)

var stopCodes = map[runner.StopCode]bool{
	runner.StopSaturated:      true,
	runner.StopIterationLimit: true,
	runner.StopNodeLimit:      true,
	runner.StopClassLimit:     true,
	runner.StopTimeLimit:      true,
	runner.StopHook:           true,
	runner.StopCancelled:      true,
	runner.StopError:          true,
}

// LoadScenario reads and parses a scenario YAML file. A relative rule
// file path is resolved against the scenario's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the rule file path relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data, basePath)
}

// ParseScenario parses scenario YAML. basePath resolves a relative rule
// file path; empty leaves it as written.
func ParseScenario(data []byte, basePath string) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve the rule path BEFORE validation
	if f := scenario.Rules.File; f != "" && !filepath.IsAbs(f) && basePath != "" {
		scenario.Rules.File = filepath.Join(basePath, f)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch {
	case s.Rules.File == "" && len(s.Rules.Inline) == 0:
		return fmt.Errorf("rules is required: a rule file or an inline list")
	case s.Rules.File != "" && len(s.Rules.Inline) > 0:
		return fmt.Errorf("rules: file and inline are mutually exclusive")
	case s.Rules.File != "" && s.Rules.Language != "":
		return fmt.Errorf("rules: language is read from the rule file")
	}
	if s.Rules.File != "" {
		if _, err := os.Stat(s.Rules.File); os.IsNotExist(err) {
			return fmt.Errorf("rule file not found: %s", s.Rules.File)
		}
	}

	if len(s.Start) == 0 {
		return fmt.Errorf("start list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.Limits.Iterations < 0 || s.Limits.Nodes < 0 || s.Limits.Classes < 0 || s.Limits.Time < 0 {
		return fmt.Errorf("limits must be non-negative")
	}

	switch s.Scheduler {
	case "", SchedulerSimple, SchedulerBackoff:
	default:
		return fmt.Errorf("unknown scheduler %q", s.Scheduler)
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i], len(s.Start)); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, roots int) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertEquivalent, AssertNotEquivalent:
		if len(a.Terms) < 2 {
			return fmt.Errorf("assertions[%d]: at least two terms are required for %s", index, a.Type)
		}
	case AssertBest:
		if a.Expect == "" {
			return fmt.Errorf("assertions[%d]: expect is required for best", index)
		}
	case AssertBestCost:
		if a.Cost == nil {
			return fmt.Errorf("assertions[%d]: cost is required for best_cost", index)
		}
	case AssertStopReason:
		if !stopCodes[runner.StopCode(a.Expect)] {
			return fmt.Errorf("assertions[%d]: unknown stop code %q", index, a.Expect)
		}
	case AssertMaxClasses:
		if a.Count <= 0 {
			return fmt.Errorf("assertions[%d]: count must be positive for max_classes", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	if a.Root < 0 || a.Root >= roots {
		return fmt.Errorf("assertions[%d]: root %d out of range (%d start terms)", index, a.Root, roots)
	}
	return nil
}
