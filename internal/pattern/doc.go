// Package pattern implements e-matching: finding every class of an e-graph
// that contains a node shaped like a pattern, together with the variable
// bindings that make it match.
//
// A Pattern is a tree of variables (?x) and operator applications over
// subpatterns. Matching is top-down over the graph: a variable binds the
// whole class it is matched against, and an application tries every member
// node with the same operator and arity. Repeated variables must bind the
// same canonical class.
//
// Search only reads the graph through Reader, whose methods never compress
// union-find paths, so several patterns may be searched concurrently while
// nobody mutates the graph. Instantiate needs the mutating Graph surface.
package pattern
