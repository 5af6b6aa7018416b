// Package harness runs saturation scenarios and checks their outcome.
//
// A scenario names a rule set, one or more start terms, optional limits
// and a list of assertions about the saturated graph.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	rules: rules/math.cue          # CUE rule file, relative to the scenario
//	start:
//	  - "(+ x 0)"
//	limits:
//	  iterations: 10
//	  nodes: 10000
//	  time: 5s
//	scheduler: backoff             # simple (default) or backoff
//	assertions:
//	  - type: equivalent
//	    terms: ["(+ x 0)", "x"]
//	  - type: best
//	    expect: "x"
//
// Rules may also be given inline:
//
//	rules:
//	  language: symbols
//	  inline:
//	    - name: fold
//	      lhs: "(f a b)"
//	      rhs: "c"
//
// # Assertion Types
//
//   - equivalent: all terms are in the graph and in one class
//   - not_equivalent: the terms are not all in one class
//   - best: the cheapest term extracted from root is expect
//   - best_cost: the cheapest term extracted from root costs cost
//   - stop_reason: the run stopped with code expect
//   - max_classes: the final graph has at most count classes
//
// best and best_cost read the start term at index root (default 0).
//
// # Deterministic Testing
//
// Scenarios execute with a manual clock that never advances and a fixed
// run id, so reports are byte-for-byte reproducible and can be compared
// against golden files with RunWithGolden.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/add_zero.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, e := range result.Errors {
//	        log.Println(e)
//	    }
//	}
package harness
