package sexp

import (
	"strings"
	"unicode"

	"github.com/roach88/eqsat/internal/egraph"
	"github.com/roach88/eqsat/internal/pattern"
)

// sexpr is a parsed but uninterpreted s-expression.
type sexpr struct {
	atom   string
	list   []sexpr
	isList bool
	offset int
}

// read parses exactly one s-expression from src.
func read(src string) (sexpr, error) {
	r := &reader{src: src}
	r.skipSpace()
	if r.pos >= len(r.src) {
		return sexpr{}, &ParseError{Offset: r.pos, Msg: "empty input"}
	}
	e, err := r.expr()
	if err != nil {
		return sexpr{}, err
	}
	r.skipSpace()
	if r.pos < len(r.src) {
		return sexpr{}, &ParseError{Offset: r.pos, Msg: "unexpected input after expression"}
	}
	return e, nil
}

type reader struct {
	src string
	pos int
}

func (r *reader) skipSpace() {
	for r.pos < len(r.src) {
		c := r.src[r.pos]
		switch {
		case c == ';':
			for r.pos < len(r.src) && r.src[r.pos] != '\n' {
				r.pos++
			}
		case unicode.IsSpace(rune(c)):
			r.pos++
		default:
			return
		}
	}
}

func (r *reader) expr() (sexpr, error) {
	start := r.pos
	switch r.src[r.pos] {
	case ')':
		return sexpr{}, &ParseError{Offset: start, Msg: "unexpected ')'"}
	case '(':
		r.pos++
		var items []sexpr
		for {
			r.skipSpace()
			if r.pos >= len(r.src) {
				return sexpr{}, &ParseError{Offset: start, Msg: "unclosed '('"}
			}
			if r.src[r.pos] == ')' {
				r.pos++
				break
			}
			item, err := r.expr()
			if err != nil {
				return sexpr{}, err
			}
			items = append(items, item)
		}
		if len(items) == 0 {
			return sexpr{}, &ParseError{Offset: start, Msg: "empty list"}
		}
		if items[0].isList {
			return sexpr{}, &ParseError{Offset: items[0].offset, Msg: "operator must be an atom"}
		}
		return sexpr{list: items, isList: true, offset: start}, nil
	default:
		for r.pos < len(r.src) {
			c := r.src[r.pos]
			if c == '(' || c == ')' || c == ';' || unicode.IsSpace(rune(c)) {
				break
			}
			r.pos++
		}
		return sexpr{atom: r.src[start:r.pos], offset: start}, nil
	}
}

// head returns the operator atom and the arguments of e.
func (e sexpr) head() (string, []sexpr) {
	if !e.isList {
		return e.atom, nil
	}
	return e.list[0].atom, e.list[1:]
}

// ParseTerm parses src into a term over lang.
func ParseTerm(lang Language, src string) (*egraph.Term, error) {
	e, err := read(src)
	if err != nil {
		return nil, err
	}
	t := egraph.NewTerm()
	if _, err := addTerm(lang, t, e); err != nil {
		return nil, err
	}
	return t, nil
}

func addTerm(lang Language, t *egraph.Term, e sexpr) (egraph.ID, error) {
	symbol, args := e.head()
	if isVar(symbol) {
		return 0, &ParseError{Offset: e.offset, Msg: "variable " + symbol + " in a term"}
	}
	children := make([]egraph.ID, len(args))
	for i, a := range args {
		id, err := addTerm(lang, t, a)
		if err != nil {
			return 0, err
		}
		children[i] = id
	}
	op, err := lang.ParseOp(symbol, len(args))
	if err != nil {
		return 0, &ParseError{Offset: e.offset, Msg: "unknown operator " + symbol, Err: err}
	}
	return t.Add(egraph.NewNode(op, children...)), nil
}

// ParsePattern parses src into a pattern over lang.
func ParsePattern(lang Language, src string) (*pattern.Pattern, error) {
	e, err := read(src)
	if err != nil {
		return nil, err
	}
	return toPattern(lang, e)
}

func toPattern(lang Language, e sexpr) (*pattern.Pattern, error) {
	symbol, args := e.head()
	if isVar(symbol) {
		if e.isList {
			return nil, &ParseError{Offset: e.offset, Msg: "variable " + symbol + " applied to arguments"}
		}
		return pattern.V(symbol), nil
	}
	subs := make([]*pattern.Pattern, len(args))
	for i, a := range args {
		p, err := toPattern(lang, a)
		if err != nil {
			return nil, err
		}
		subs[i] = p
	}
	op, err := lang.ParseOp(symbol, len(args))
	if err != nil {
		return nil, &ParseError{Offset: e.offset, Msg: "unknown operator " + symbol, Err: err}
	}
	return pattern.Apply(op, subs...), nil
}

func isVar(symbol string) bool {
	return len(symbol) > 1 && strings.HasPrefix(symbol, "?")
}

// MustParseTerm is ParseTerm that panics on error, for tests and static
// inputs.
func MustParseTerm(lang Language, src string) *egraph.Term {
	t, err := ParseTerm(lang, src)
	if err != nil {
		panic(err)
	}
	return t
}

// MustParsePattern is ParsePattern that panics on error.
func MustParsePattern(lang Language, src string) *pattern.Pattern {
	p, err := ParsePattern(lang, src)
	if err != nil {
		panic(err)
	}
	return p
}
