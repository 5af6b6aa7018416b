// Package sexp reads and writes terms and patterns as s-expressions.
//
//	(* 2 (+ x 1))        a term
//	(+ ?a (* ?b 0))      a pattern; atoms starting with '?' are variables
//
// Atoms are turned into operators by a Language, which sees the atom and
// the number of arguments it is applied to. Comments run from ';' to the
// end of the line.
package sexp
