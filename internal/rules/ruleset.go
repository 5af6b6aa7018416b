package rules

import (
	"fmt"

	"github.com/roach88/eqsat/internal/mathlang"
	"github.com/roach88/eqsat/internal/report"
	"github.com/roach88/eqsat/internal/sexp"
)

// Term languages a rule file may name.
const (
	LanguageMath    = "math"
	LanguageSymbols = "symbols"
)

// DefaultLanguage is used when a rule file does not name one.
const DefaultLanguage = LanguageMath

// RuleSpec is one rule as written in a rule file.
type RuleSpec struct {
	Name string `json:"name"`
	LHS  string `json:"lhs"`
	RHS  string `json:"rhs"`

	// UnlessZero lists variables whose class must not contain the literal
	// 0 for the rule to apply.
	UnlessZero []string `json:"unless_zero,omitempty"`

	// Bidirectional also installs RHS => LHS as Name + "-rev".
	Bidirectional bool `json:"bidirectional,omitempty"`

	// Line is the source line of the rule, 0 when unknown.
	Line int `json:"line,omitempty"`
}

// RuleSet is a compiled rule file.
type RuleSet struct {
	Language string     `json:"language"`
	Rules    []RuleSpec `json:"rules"`
}

// Lang resolves the term language named by a rule set.
func Lang(name string) (sexp.Language, error) {
	switch name {
	case LanguageMath, "":
		return mathlang.Language{}, nil
	case LanguageSymbols:
		return sexp.Symbols{}, nil
	default:
		return nil, fmt.Errorf("unknown language %q", name)
	}
}

// Names returns the names of the rewrites Build installs, in order.
func (rs *RuleSet) Names() []string {
	var names []string
	for _, r := range rs.Rules {
		names = append(names, r.Name)
		if r.Bidirectional {
			names = append(names, r.Name+"-rev")
		}
	}
	return names
}

// Value renders the rule set for reports. Source lines are left out so
// that moving rules around in a file without reordering them keeps the
// digest.
func (rs *RuleSet) Value() report.Object {
	rules := make(report.Array, len(rs.Rules))
	for i, r := range rs.Rules {
		obj := report.NewObject(
			report.P("name", report.String(r.Name)),
			report.P("lhs", report.String(r.LHS)),
			report.P("rhs", report.String(r.RHS)),
		)
		if len(r.UnlessZero) > 0 {
			obj["unless_zero"] = report.Strings(r.UnlessZero)
		}
		if r.Bidirectional {
			obj["bidirectional"] = report.Bool(true)
		}
		rules[i] = obj
	}
	return report.NewObject(
		report.P("language", report.String(rs.Language)),
		report.P("rules", rules),
	)
}

// Hash returns the content digest of the rule set.
func (rs *RuleSet) Hash() (string, error) {
	return report.RuleSetDigest(rs.Value())
}
