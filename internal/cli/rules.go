package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/roach88/eqsat/internal/egraph"
	"github.com/roach88/eqsat/internal/mathlang"
	"github.com/roach88/eqsat/internal/report"
	"github.com/roach88/eqsat/internal/rewrite"
	"github.com/roach88/eqsat/internal/rules"
	"github.com/roach88/eqsat/internal/sexp"
)

// BuiltinRulesName names the built-in math rule set in output.
const BuiltinRulesName = "builtin"

// RuleSource is a rule set ready to build for its language: either a
// compiled rule file or the built-in math rules.
type RuleSource struct {
	// Name is the rule file path, or BuiltinRulesName.
	Name string

	// Language is the term language of the rules.
	Language string

	// Set is the compiled rule file, nil for the built-in rules.
	Set *rules.RuleSet

	// Hash is the content digest of the rules.
	Hash string

	lang  sexp.Language
	cache *sexp.PatternCache
}

// LoadError represents an error that occurred while loading rules.
type LoadError struct {
	Code    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// LoadRules compiles and validates the rule file at path. An empty path
// selects the built-in math rules.
func LoadRules(path string) (*RuleSource, error) {
	if path == "" {
		return BuiltinRules()
	}

	rs, err := rules.CompileFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("rule file not found: %s", path), Err: err}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeCompile, Message: err.Error(), Err: err}
	}
	if errs := rules.Validate(rs); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, &LoadError{
			Code:    ErrCodeInvalidRules,
			Message: fmt.Sprintf("%d validation error(s): %s", len(errs), strings.Join(msgs, "; ")),
			Err:     rules.ErrInvalid,
		}
	}
	lang, err := rules.Lang(rs.Language)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeInvalidRules, Message: err.Error(), Err: err}
	}
	hash, err := rs.Hash()
	if err != nil {
		return nil, &LoadError{Code: ErrCodeGeneric, Message: err.Error(), Err: err}
	}
	return &RuleSource{
		Name:     path,
		Language: rs.Language,
		Set:      rs,
		Hash:     hash,
		lang:     lang,
		cache:    sexp.NewPatternCache(lang, 0),
	}, nil
}

// BuiltinRules returns the built-in math rules. Their hash covers the
// printed form of every rewrite, conditions included.
func BuiltinRules() (*RuleSource, error) {
	var printed []string
	for _, rw := range mathlang.Rules[mathlang.Data]() {
		printed = append(printed, rw.String())
	}
	hash, err := report.RuleSetDigest(report.NewObject(
		report.P("language", report.String(rules.LanguageMath)),
		report.P("builtin", report.Strings(printed)),
	))
	if err != nil {
		return nil, err
	}
	return &RuleSource{
		Name:     BuiltinRulesName,
		Language: rules.LanguageMath,
		Hash:     hash,
		lang:     mathlang.Language{},
	}, nil
}

// Builtin reports whether s holds the built-in rules.
func (s *RuleSource) Builtin() bool {
	return s.Set == nil
}

// Names returns the rewrite names in installation order.
func (s *RuleSource) Names() []string {
	if s.Set != nil {
		return s.Set.Names()
	}
	var names []string
	for _, rw := range mathlang.Rules[mathlang.Data]() {
		names = append(names, rw.Name)
	}
	return names
}

// ParseTerm parses src in the language of the rules.
func (s *RuleSource) ParseTerm(src string) (*egraph.Term, error) {
	return sexp.ParseTerm(s.lang, src)
}

// buildRewrites instantiates the rules for analysis data D.
func buildRewrites[D any](s *RuleSource) ([]*rewrite.Rewrite[D], error) {
	if s.Set == nil {
		return mathlang.Rules[D](), nil
	}
	return rules.Build[D](s.Set, s.cache)
}
