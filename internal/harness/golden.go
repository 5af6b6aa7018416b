package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/eqsat/internal/report"
)

// Snapshot renders the canonical report of a scenario result: the run
// report and the extracted terms. Golden files hold its canonical JSON.
func Snapshot(scenarioName string, result *Result) report.Object {
	best := make(report.Array, len(result.Best))
	for i, b := range result.Best {
		best[i] = report.NewObject(
			report.P("root", report.Int(b.Root)),
			report.P("term", report.String(b.Term)),
			report.P("cost", report.Int(b.Cost)),
		)
	}
	return report.NewObject(
		report.P("scenario", report.String(scenarioName)),
		report.P("run", report.Run(result.Run)),
		report.P("best", best),
	)
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the snapshot of an existing result against a
// golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := report.Marshal(Snapshot(scenarioName, result))
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
