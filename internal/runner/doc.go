// Package runner drives equality saturation over an e-graph.
//
// Each iteration has three phases:
//
//  1. Search: every rule the scheduler lets through is searched against the
//     clean graph. Searches are read-only and may run in parallel; results
//     are merged in rule order.
//  2. Apply: the matches of each rule are applied in rule order. Unions are
//     not repaired yet.
//  3. Rebuild: congruence closure and analysis data are restored once.
//
// The loop stops on the first of: a hook asking to stop, context
// cancellation (checked between iterations only), the iteration, node,
// class or time limit, saturation (an iteration that added no id and
// performed no union while the scheduler had nothing banned), or a fatal
// apply/rebuild error.
//
// Limits are soft: they are checked between phases, so a single huge
// iteration can overshoot them. A fatal error restores the graph to the
// checkpoint taken at the start of the failing iteration.
//
// DETERMINISM:
//
// Rules are searched and applied in the order given to Run, class ids are
// visited in ascending order, and all timing goes through an injectable
// Clock. Two runs over the same input with the same clock produce the same
// graph and the same Result.
package runner
