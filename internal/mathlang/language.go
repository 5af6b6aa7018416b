package mathlang

import (
	"fmt"
	"strconv"

	"github.com/roach88/eqsat/internal/egraph"
)

// Num is an integer literal.
type Num int64

func (n Num) String() string { return strconv.FormatInt(int64(n), 10) }

// Operators.
const (
	Diff  = egraph.Symbol("d")
	Add   = egraph.Symbol("+")
	Sub   = egraph.Symbol("-")
	Mul   = egraph.Symbol("*")
	Div   = egraph.Symbol("/")
	Pow   = egraph.Symbol("pow")
	Exp   = egraph.Symbol("exp")
	Log   = egraph.Symbol("log")
	Sqrt  = egraph.Symbol("sqrt")
	Cbrt  = egraph.Symbol("cbrt")
	Fabs  = egraph.Symbol("fabs")
	Log1p = egraph.Symbol("log1p")
	Expm1 = egraph.Symbol("expm1")
)

var arity = map[egraph.Symbol]int{
	Diff: 2, Add: 2, Sub: 2, Mul: 2, Div: 2, Pow: 2,
	Exp: 1, Log: 1, Sqrt: 1, Cbrt: 1, Fabs: 1, Log1p: 1, Expm1: 1,
}

// Language parses math atoms. It implements sexp.Language.
type Language struct{}

// ParseOp resolves an atom: integers become Num, operator names must be
// applied to their arity, anything else is a variable.
func (Language) ParseOp(symbol string, n int) (egraph.Op, error) {
	if v, err := strconv.ParseInt(symbol, 10, 64); err == nil {
		if n != 0 {
			return nil, fmt.Errorf("literal %s applied to %d arguments", symbol, n)
		}
		return Num(v), nil
	}
	op := egraph.Symbol(symbol)
	if want, ok := arity[op]; ok {
		if n != want {
			return nil, fmt.Errorf("%q takes %d arguments, got %d", symbol, want, n)
		}
		return op, nil
	}
	if n != 0 {
		return nil, fmt.Errorf("unknown operator %q", symbol)
	}
	return op, nil
}

// IsVariable reports whether n is a variable leaf.
func IsVariable(n egraph.Node) bool {
	op, ok := n.Op.(egraph.Symbol)
	if !ok || !n.IsLeaf() {
		return false
	}
	_, isOp := arity[op]
	return !isOp
}

// Constant returns the literal of n, if n is one.
func Constant(n egraph.Node) (int64, bool) {
	v, ok := n.Op.(Num)
	return int64(v), ok
}
