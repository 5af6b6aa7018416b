package egraph

// Check verifies the invariants of a clean graph and returns the first
// violation found as an *InvariantViolationError.
//
// Verified:
//   - classes are stored exactly under union-find roots
//   - member nodes and hash-cons keys are canonical
//   - every member node maps to its own class in the hash-cons table
//   - no canonical node belongs to two classes (congruence closure)
//
// Check is O(nodes) and meant for tests and debugging.
func (g *EGraph[D]) Check() error {
	if !g.IsClean() {
		return &InvariantViolationError{Message: "graph has pending repairs, call Rebuild first"}
	}

	count := 0
	for i, cls := range g.classes {
		id := ID(i)
		root := g.uf.FindConst(id)
		if cls == nil {
			if root == id {
				return &InvariantViolationError{Message: "union-find root without class", Class: id}
			}
			continue
		}
		count++
		if root != id {
			return &InvariantViolationError{Message: "class stored under non-canonical id", Class: id}
		}
		if cls.ID != id {
			return &InvariantViolationError{Message: "class id does not match its slot", Class: id}
		}
		if len(cls.Nodes) == 0 {
			return &InvariantViolationError{Message: "class has no members", Class: id}
		}
	}
	if count != g.numClasses {
		return &InvariantViolationError{Message: "class count out of step with arena"}
	}

	owners := newMemo()
	for _, id := range g.ClassIDs() {
		for _, n := range g.classes[id].Nodes {
			cn := g.canonicalizeConst(n)
			if !cn.Equal(n) {
				return &InvariantViolationError{Message: "member node is not canonical", Class: id, Node: n.String()}
			}
			if other, ok := owners.get(cn); ok && other != id {
				return &InvariantViolationError{Message: "congruent node in two classes (also in " + other.String() + ")", Class: id, Node: n.String()}
			}
			owners.insert(cn, id)

			mid, ok := g.memo.get(cn)
			if !ok {
				return &InvariantViolationError{Message: "member node missing from hash-cons table", Class: id, Node: n.String()}
			}
			if g.uf.FindConst(mid) != id {
				return &InvariantViolationError{Message: "hash-cons table maps member to another class", Class: id, Node: n.String()}
			}
		}
	}

	var violation error
	g.memo.each(func(n Node, id ID) {
		if violation != nil {
			return
		}
		if !g.canonicalizeConst(n).Equal(n) {
			violation = &InvariantViolationError{Message: "stale hash-cons key", Class: g.uf.FindConst(id), Node: n.String()}
			return
		}
		if _, ok := owners.get(n); !ok {
			violation = &InvariantViolationError{Message: "hash-cons key not a member of any class", Class: g.uf.FindConst(id), Node: n.String()}
		}
	})
	return violation
}
