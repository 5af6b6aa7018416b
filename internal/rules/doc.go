// Package rules compiles rule sets written in CUE into rewrites.
//
// A rule file names its term language and declares rules by name, in the
// order they should run:
//
//	language: "math"
//
//	rules: "comm-add":  {lhs: "(+ ?a ?b)", rhs: "(+ ?b ?a)"}
//	rules: "pow-recip": {lhs: "(pow ?x -1)", rhs: "(/ 1 ?x)", unless_zero: ["?x"]}
//	rules: "assoc":     {lhs: "(+ ?a (+ ?b ?c))", rhs: "(+ (+ ?a ?b) ?c)", bidirectional: true}
//
// Compilation is in three steps. Compile reads the CUE value into a
// RuleSet and reports structural problems as *CompileError with the source
// position. Validate checks the patterns against the language and returns
// every problem found as ValidationError values with stable codes. Build
// turns a valid RuleSet into rewrites for a graph of any analysis type.
//
// AnalyzeGrowth is an optional static pass that reports groups of rules
// able to feed each other, flagging the ones that can keep enlarging the
// graph.
package rules
