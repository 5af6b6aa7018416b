package rules

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/eqsat/internal/pattern"
	"github.com/roach88/eqsat/internal/sexp"
)

// Validation error codes (E200-E299).
const (
	ErrUnknownLanguage       = "E200" // language not recognized
	ErrEmptyName             = "E201" // rule name is empty
	ErrDuplicateName         = "E202" // two rewrites would share a name
	ErrEmptyPattern          = "E203" // lhs or rhs is blank
	ErrInvalidPattern        = "E204" // pattern does not parse
	ErrUnboundVariable       = "E205" // rhs uses a variable lhs does not bind
	ErrUnboundCondition      = "E206" // unless_zero names an unbound variable
	ErrConditionalReversible = "E207" // bidirectional rule with conditions
	ErrBareVariableBothSides = "E208" // lhs and rhs are both bare variables
)

// ValidationError is one problem found by Validate.
type ValidationError struct {
	Rule    string `json:"rule,omitempty"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks every rule against its language and returns all
// problems found, in rule order.
func Validate(rs *RuleSet) []ValidationError {
	lang, err := Lang(rs.Language)
	if err != nil {
		return []ValidationError{{Field: "language", Message: err.Error(), Code: ErrUnknownLanguage}}
	}

	var errs []ValidationError
	names := make(map[string]bool)
	claim := func(r RuleSpec, field, name string) {
		if names[name] {
			errs = append(errs, ValidationError{
				Rule: r.Name, Field: field, Line: r.Line, Code: ErrDuplicateName,
				Message: fmt.Sprintf("duplicate rule name %q", name),
			})
		}
		names[name] = true
	}

	for i, r := range rs.Rules {
		field := fmt.Sprintf("rules[%d]", i)
		if strings.TrimSpace(r.Name) == "" {
			errs = append(errs, ValidationError{Field: field + ".name", Line: r.Line, Code: ErrEmptyName, Message: "rule name is required"})
		} else {
			claim(r, field+".name", r.Name)
			if r.Bidirectional {
				claim(r, field+".bidirectional", r.Name+"-rev")
			}
		}
		errs = append(errs, validateRule(lang, r, field)...)
	}
	return errs
}

func validateRule(lang sexp.Language, r RuleSpec, field string) []ValidationError {
	var errs []ValidationError
	fail := func(f, code, msg string) {
		errs = append(errs, ValidationError{Rule: r.Name, Field: field + "." + f, Line: r.Line, Code: code, Message: msg})
	}

	parse := func(f, src string) *pattern.Pattern {
		if strings.TrimSpace(src) == "" {
			fail(f, ErrEmptyPattern, f+" is required")
			return nil
		}
		p, err := sexp.ParsePattern(lang, src)
		if err != nil {
			fail(f, ErrInvalidPattern, err.Error())
			return nil
		}
		return p
	}
	lhs := parse("lhs", r.LHS)
	rhs := parse("rhs", r.RHS)
	if lhs == nil || rhs == nil {
		return errs
	}

	lhsVars, rhsVars := lhs.Vars(), rhs.Vars()
	for _, v := range rhsVars {
		if !slices.Contains(lhsVars, v) {
			fail("rhs", ErrUnboundVariable, fmt.Sprintf("%s is not bound by the lhs", v))
		}
	}
	if r.Bidirectional {
		for _, v := range lhsVars {
			if !slices.Contains(rhsVars, v) {
				fail("lhs", ErrUnboundVariable, fmt.Sprintf("%s is not bound by the rhs of the reverse rule", v))
			}
		}
		if len(r.UnlessZero) > 0 {
			fail("unless_zero", ErrConditionalReversible, "bidirectional rules cannot have conditions")
		}
	}
	for _, v := range r.UnlessZero {
		if !slices.Contains(lhsVars, pattern.Var(v)) {
			fail("unless_zero", ErrUnboundCondition, fmt.Sprintf("%s is not bound by the lhs", v))
		}
	}
	if lhs.IsVar() && rhs.IsVar() {
		fail("rhs", ErrBareVariableBothSides, "a rule from a variable to a variable does nothing")
	}
	return errs
}
