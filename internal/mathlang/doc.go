// Package mathlang is a small arithmetic language over 64-bit integers with
// symbolic differentiation, used to exercise the saturation engine end to
// end.
//
// Operators are egraph.Symbol values, integer literals are Num and every
// other atom is a variable:
//
//	(d x (+ 1 (* 2 x)))
//	(* (pow 2 x) (pow 2 y))
//
// ConstantFolding tracks the known value of each class and adds the
// literal to the class once it is known. Rules returns the standard rule
// set; CostFn prefers terms without derivatives.
package mathlang
