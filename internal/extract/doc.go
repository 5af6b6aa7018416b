// Package extract picks the cheapest concrete term represented by a class.
//
// Costs are computed bottom-up by fixed-point relaxation: every class
// starts without a cost, and each pass assigns a node a cost once all its
// children have one, keeping the cheapest node per class. Passes repeat
// until no class improves. Classes whose every member depends on a cycle
// never get a cost and cannot be extracted.
//
// The extractor is a snapshot: it reads a clean graph once in New and
// never looks at it again except to resolve ids.
package extract
