package rewrite

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/eqsat/internal/pattern"
)

// ErrorCode categorizes rewrite errors.
type ErrorCode string

const (
	// ErrCodeMalformedPattern indicates the applier uses a variable the
	// searcher never binds.
	ErrCodeMalformedPattern ErrorCode = "MALFORMED_PATTERN"

	// ErrCodeApplyFailed indicates the applier could not add or union.
	ErrCodeApplyFailed ErrorCode = "APPLY_FAILED"
)

// MalformedPatternError is returned when a rule is constructed whose
// right-hand side references variables the left-hand side does not bind.
type MalformedPatternError struct {
	Rule    string
	Missing []pattern.Var
}

// Error implements the error interface.
func (e *MalformedPatternError) Error() string {
	names := make([]string, len(e.Missing))
	for i, v := range e.Missing {
		names[i] = string(v)
	}
	return fmt.Sprintf("%s: rule %q uses unbound variables %s", ErrCodeMalformedPattern, e.Rule, strings.Join(names, ", "))
}

// Code returns ErrCodeMalformedPattern.
func (e *MalformedPatternError) Code() ErrorCode {
	return ErrCodeMalformedPattern
}

// ApplyError wraps a failure while applying the matches of one rule.
type ApplyError struct {
	Rule  string
	Class pattern.ID
	Err   error
}

// Error implements the error interface.
func (e *ApplyError) Error() string {
	return fmt.Sprintf("%s: rule %q at %s: %v", ErrCodeApplyFailed, e.Rule, e.Class, e.Err)
}

// Unwrap returns the underlying error.
func (e *ApplyError) Unwrap() error {
	return e.Err
}

// Code returns ErrCodeApplyFailed.
func (e *ApplyError) Code() ErrorCode {
	return ErrCodeApplyFailed
}

// IsMalformedPattern returns true if err wraps a *MalformedPatternError.
func IsMalformedPattern(err error) bool {
	var me *MalformedPatternError
	return errors.As(err, &me)
}

// IsApplyError returns true if err wraps an *ApplyError.
func IsApplyError(err error) bool {
	var ae *ApplyError
	return errors.As(err, &ae)
}
