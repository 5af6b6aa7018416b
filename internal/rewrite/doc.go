// Package rewrite defines rewrite rules: a named pair of a searcher that
// finds matches in an e-graph and an applier that adds the equivalences
// those matches justify.
//
// Rules built from two patterns (New) search for the left-hand side and
// union every match with the instantiated right-hand side. Custom searchers
// and appliers plug in through the Searcher and Applier interfaces, and
// Conditional guards an applier with per-substitution conditions.
//
// Search never mutates the graph. The runner collects the matches of every
// rule before applying any of them and rebuilds once afterwards, so rules
// see a consistent graph within an iteration.
package rewrite
