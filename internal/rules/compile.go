package rules

import (
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// CompileError is a structural problem in a rule file, with its source
// position when CUE knows it.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// CompileFile reads and compiles the rule file at path.
func CompileFile(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule file: %w", err)
	}
	return CompileSource(path, string(data))
}

// CompileSource compiles CUE source; filename is used in positions only.
func CompileSource(filename, src string) (*RuleSet, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename(filename))
	return Compile(v)
}

// Compile reads a rule set from a CUE value holding the top-level
// language and rules fields. Rules keep their declaration order.
func Compile(v cue.Value) (*RuleSet, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	rs := &RuleSet{Language: DefaultLanguage}
	if lv := v.LookupPath(cue.ParsePath("language")); lv.Exists() {
		lang, err := lv.String()
		if err != nil {
			return nil, &CompileError{Field: "language", Message: "language must be a string", Pos: lv.Pos()}
		}
		rs.Language = lang
	}

	rulesVal := v.LookupPath(cue.ParsePath("rules"))
	if !rulesVal.Exists() {
		return nil, &CompileError{Field: "rules", Message: "rules is required", Pos: v.Pos()}
	}
	iter, err := rulesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		spec, err := CompileRule(iter.Value())
		if err != nil {
			return nil, err
		}
		rs.Rules = append(rs.Rules, *spec)
	}
	if len(rs.Rules) == 0 {
		return nil, &CompileError{Field: "rules", Message: "at least one rule is required", Pos: rulesVal.Pos()}
	}
	return rs, nil
}

// CompileRule reads one rule. Its name is the last path selector, so v
// must be looked up from the file, e.g. `rules."comm-add"`.
func CompileRule(v cue.Value) (*RuleSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &RuleSpec{}
	if sels := v.Path().Selectors(); len(sels) > 0 {
		spec.Name = strings.Trim(sels[len(sels)-1].String(), `"`)
	}
	if pos := v.Pos(); pos.IsValid() {
		spec.Line = pos.Line()
	}

	var err error
	if spec.LHS, err = requiredString(v, "lhs"); err != nil {
		return nil, err
	}
	if spec.RHS, err = requiredString(v, "rhs"); err != nil {
		return nil, err
	}

	if uz := v.LookupPath(cue.ParsePath("unless_zero")); uz.Exists() {
		list, err := uz.List()
		if err != nil {
			return nil, &CompileError{Field: "unless_zero", Message: "unless_zero must be a list of variables", Pos: uz.Pos()}
		}
		for list.Next() {
			s, err := list.Value().String()
			if err != nil {
				return nil, &CompileError{Field: "unless_zero", Message: "unless_zero entries must be strings", Pos: list.Value().Pos()}
			}
			spec.UnlessZero = append(spec.UnlessZero, s)
		}
	}

	if bv := v.LookupPath(cue.ParsePath("bidirectional")); bv.Exists() {
		b, err := bv.Bool()
		if err != nil {
			return nil, &CompileError{Field: "bidirectional", Message: "bidirectional must be a bool", Pos: bv.Pos()}
		}
		spec.Bidirectional = b
	}
	return spec, nil
}

func requiredString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &CompileError{Field: field, Message: field + " is required", Pos: v.Pos()}
	}
	s, err := fv.String()
	if err != nil {
		return "", &CompileError{Field: field, Message: field + " must be a string", Pos: fv.Pos()}
	}
	return s, nil
}

// formatCUEError keeps the first CUE error and its position.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{Field: "cue", Message: first.Error(), Pos: positions[0]}
	}
	return &CompileError{Field: "cue", Message: first.Error()}
}
