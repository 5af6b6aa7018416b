package sexp

import (
	"fmt"

	"github.com/roach88/eqsat/internal/egraph"
)

// Language resolves atoms to operators.
type Language interface {
	// ParseOp returns the operator spelled symbol applied to arity
	// arguments, or an error if the language has no such operator.
	ParseOp(symbol string, arity int) (egraph.Op, error)
}

// Symbols accepts every atom as an egraph.Symbol of any arity.
type Symbols struct{}

// ParseOp implements Language.
func (Symbols) ParseOp(symbol string, _ int) (egraph.Op, error) {
	return egraph.Symbol(symbol), nil
}

// Arities is a language of egraph.Symbol operators with fixed arities.
// Atoms not listed are accepted as leaves only.
type Arities map[string]int

// ParseOp implements Language.
func (a Arities) ParseOp(symbol string, arity int) (egraph.Op, error) {
	want := a[symbol]
	if arity != want {
		return nil, fmt.Errorf("%q takes %d arguments, got %d", symbol, want, arity)
	}
	return egraph.Symbol(symbol), nil
}
