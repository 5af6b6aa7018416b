package sexp

import (
	"errors"
	"fmt"
)

// ErrCodeParse identifies s-expression parse errors.
const ErrCodeParse = "PARSE_ERROR"

// ParseError describes malformed input.
type ParseError struct {
	// Offset is the byte offset of the offending token.
	Offset int
	Msg    string
	Err    error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s at offset %d: %s: %v", ErrCodeParse, e.Offset, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s at offset %d: %s", ErrCodeParse, e.Offset, e.Msg)
}

// Unwrap returns the language error, if any.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsParseError returns true if err wraps a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
