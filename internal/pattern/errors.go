package pattern

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes pattern errors.
type ErrorCode string

// ErrCodeUnboundVariable indicates Instantiate met a variable the
// substitution does not bind.
const ErrCodeUnboundVariable ErrorCode = "UNBOUND_VARIABLE"

// UnboundVariableError is returned by Instantiate when the substitution
// lacks a binding the pattern needs. Nothing was added for the failing
// subtree.
type UnboundVariableError struct {
	Var     Var
	Pattern string
}

// Error implements the error interface.
func (e *UnboundVariableError) Error() string {
	return fmt.Sprintf("%s: %s not bound while instantiating %s", ErrCodeUnboundVariable, e.Var, e.Pattern)
}

// Code returns ErrCodeUnboundVariable.
func (e *UnboundVariableError) Code() ErrorCode {
	return ErrCodeUnboundVariable
}

// IsUnboundVariable returns true if err wraps an *UnboundVariableError.
func IsUnboundVariable(err error) bool {
	var ue *UnboundVariableError
	return errors.As(err, &ue)
}
