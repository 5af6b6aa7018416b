package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/eqsat/internal/egraph"
	"github.com/roach88/eqsat/internal/sexp"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  actual: %s", e.Actual)
	return buf.String()
}

// evaluate checks one assertion against the finished run.
func evaluate[D any](g *egraph.EGraph[D], lang sexp.Language, result *Result, a Assertion) error {
	switch a.Type {
	case AssertEquivalent:
		return assertEquivalent(g, lang, a.Terms)
	case AssertNotEquivalent:
		return assertNotEquivalent(g, lang, a.Terms)
	case AssertBest:
		return assertBest(result, a)
	case AssertBestCost:
		return assertBestCost(result, a)
	case AssertStopReason:
		return assertStopReason(result, a)
	case AssertMaxClasses:
		return assertMaxClasses(result, a)
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
}

// lookupTerms parses terms and finds their classes. Missing terms map to
// ok=false.
func lookupTerms[D any](g *egraph.EGraph[D], lang sexp.Language, terms []string) ([]egraph.ID, []bool, error) {
	ids := make([]egraph.ID, len(terms))
	found := make([]bool, len(terms))
	for i, src := range terms {
		t, err := sexp.ParseTerm(lang, src)
		if err != nil {
			return nil, nil, fmt.Errorf("term %q: %w", src, err)
		}
		ids[i], found[i] = g.LookupTerm(t)
	}
	return ids, found, nil
}

// assertEquivalent checks that every term is in the graph and in the
// class of the first.
func assertEquivalent[D any](g *egraph.EGraph[D], lang sexp.Language, terms []string) error {
	ids, found, err := lookupTerms(g, lang, terms)
	if err != nil {
		return err
	}
	for i, ok := range found {
		if !ok {
			return &AssertionError{
				Type:     AssertEquivalent,
				Expected: fmt.Sprintf("%s in the graph", terms[i]),
				Actual:   "not represented",
			}
		}
	}
	for i := 1; i < len(ids); i++ {
		if ids[i] != ids[0] {
			return &AssertionError{
				Type:     AssertEquivalent,
				Expected: fmt.Sprintf("%s = %s", terms[0], terms[i]),
				Actual:   fmt.Sprintf("classes %s and %s", ids[0], ids[i]),
			}
		}
	}
	return nil
}

// assertNotEquivalent checks that the terms are not all in one class. A
// term missing from the graph is equivalent to nothing.
func assertNotEquivalent[D any](g *egraph.EGraph[D], lang sexp.Language, terms []string) error {
	ids, found, err := lookupTerms(g, lang, terms)
	if err != nil {
		return err
	}
	for i := range ids {
		if !found[i] || ids[i] != ids[0] {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertNotEquivalent,
		Expected: fmt.Sprintf("%s not all equal", strings.Join(terms, ", ")),
		Actual:   fmt.Sprintf("all in class %s", ids[0]),
	}
}

func bestFor(result *Result, root int) (Best, bool) {
	for _, b := range result.Best {
		if b.Root == root {
			return b, true
		}
	}
	return Best{}, false
}

// assertBest compares the extracted term of a root.
func assertBest(result *Result, a Assertion) error {
	b, ok := bestFor(result, a.Root)
	if !ok {
		return &AssertionError{Type: AssertBest, Expected: a.Expect, Actual: "no term extracted"}
	}
	if b.Term != a.Expect {
		return &AssertionError{Type: AssertBest, Expected: a.Expect, Actual: b.Term}
	}
	return nil
}

// assertBestCost compares the extraction cost of a root.
func assertBestCost(result *Result, a Assertion) error {
	want := fmt.Sprintf("cost %d", *a.Cost)
	b, ok := bestFor(result, a.Root)
	if !ok {
		return &AssertionError{Type: AssertBestCost, Expected: want, Actual: "no term extracted"}
	}
	if b.Cost != *a.Cost {
		return &AssertionError{Type: AssertBestCost, Expected: want, Actual: fmt.Sprintf("cost %d (%s)", b.Cost, b.Term)}
	}
	return nil
}

// assertStopReason compares the stop code.
func assertStopReason(result *Result, a Assertion) error {
	got := string(result.Run.StopReason.Code)
	if got != a.Expect {
		return &AssertionError{Type: AssertStopReason, Expected: a.Expect, Actual: result.Run.StopReason.String()}
	}
	return nil
}

// assertMaxClasses bounds the final class count.
func assertMaxClasses(result *Result, a Assertion) error {
	if result.Classes > a.Count {
		return &AssertionError{
			Type:     AssertMaxClasses,
			Expected: fmt.Sprintf("at most %d classes", a.Count),
			Actual:   fmt.Sprintf("%d classes", result.Classes),
		}
	}
	return nil
}
