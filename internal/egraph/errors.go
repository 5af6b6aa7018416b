package egraph

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes e-graph errors.
type ErrorCode string

const (
	// ErrCodeAnalysisConflict indicates Merge could not reconcile two classes.
	ErrCodeAnalysisConflict ErrorCode = "ANALYSIS_CONFLICT"

	// ErrCodeInvariantViolation indicates the hash-cons table or congruence
	// closure is inconsistent. Always a programming error.
	ErrCodeInvariantViolation ErrorCode = "INVARIANT_VIOLATION"
)

// AnalysisConflictError is returned when the analysis refuses to merge the
// data of two classes. The union that triggered it did not happen.
type AnalysisConflictError struct {
	// A and B are the canonical ids of the classes that could not merge.
	A, B ID

	// Err is the error returned by Analysis.Merge.
	Err error
}

// Error implements the error interface.
func (e *AnalysisConflictError) Error() string {
	return fmt.Sprintf("%s: cannot merge %s and %s: %v", ErrCodeAnalysisConflict, e.A, e.B, e.Err)
}

// Unwrap returns the analysis error.
func (e *AnalysisConflictError) Unwrap() error {
	return e.Err
}

// Code returns ErrCodeAnalysisConflict.
func (e *AnalysisConflictError) Code() ErrorCode {
	return ErrCodeAnalysisConflict
}

// InvariantViolationError describes an internal inconsistency.
//
// Check returns it; Rebuild panics with it, since the graph can no longer
// be trusted.
type InvariantViolationError struct {
	Message string
	Class   ID
	Node    string
}

// Error implements the error interface.
func (e *InvariantViolationError) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("%s: %s (class=%s, node=%s)", ErrCodeInvariantViolation, e.Message, e.Class, e.Node)
	}
	return fmt.Sprintf("%s: %s (class=%s)", ErrCodeInvariantViolation, e.Message, e.Class)
}

// Code returns ErrCodeInvariantViolation.
func (e *InvariantViolationError) Code() ErrorCode {
	return ErrCodeInvariantViolation
}

// IsAnalysisConflict returns true if err wraps an *AnalysisConflictError.
func IsAnalysisConflict(err error) bool {
	var ae *AnalysisConflictError
	return errors.As(err, &ae)
}

// IsInvariantViolation returns true if err wraps an *InvariantViolationError.
func IsInvariantViolation(err error) bool {
	var ie *InvariantViolationError
	return errors.As(err, &ie)
}
