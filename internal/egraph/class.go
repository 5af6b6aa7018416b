package egraph

// parentLink records that node (owned by class) has the linked class among
// its children. Links may go stale after unions; Rebuild re-canonicalizes
// them.
type parentLink struct {
	node  Node
	class ID
}

// Class is an equivalence class of nodes.
type Class[D any] struct {
	// ID is the canonical id of the class.
	ID ID

	// Nodes are the member nodes. After Rebuild they are canonical, sorted
	// and free of duplicates.
	Nodes []Node

	// Data is the analysis value for the class.
	Data D

	parents []parentLink
}

// Len returns the number of member nodes.
func (c *Class[D]) Len() int {
	return len(c.Nodes)
}

// NumParents returns the number of parent links, stale ones included.
func (c *Class[D]) NumParents() int {
	return len(c.parents)
}

// Leaves returns the member nodes without children.
func (c *Class[D]) Leaves() []Node {
	var leaves []Node
	for _, n := range c.Nodes {
		if n.IsLeaf() {
			leaves = append(leaves, n)
		}
	}
	return leaves
}

// Contains reports whether the class has a member identical to n.
// n should be canonical.
func (c *Class[D]) Contains(n Node) bool {
	for _, m := range c.Nodes {
		if m.Equal(n) {
			return true
		}
	}
	return false
}

func (c *Class[D]) clone() *Class[D] {
	nodes := make([]Node, len(c.Nodes))
	for i, n := range c.Nodes {
		nodes[i] = Node{Op: n.Op, Children: append([]ID(nil), n.Children...)}
	}
	return &Class[D]{
		ID:      c.ID,
		Nodes:   nodes,
		Data:    c.Data,
		parents: append([]parentLink(nil), c.parents...),
	}
}
