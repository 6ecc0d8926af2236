// Package ch implements contraction hierarchy preprocessing: it orders
// the nodes of a chgraph.IndexedGraph by importance, inserts shortcut
// edges so that a bidirectional search restricted to "upward" edges
// still finds shortest paths, and emits the resulting overlay plus the
// shortcut list a query engine needs to unpack those shortcuts back
// into real paths.
package ch

import "chway/pkg/chgraph"

// NoMiddle marks an edge as an original graph edge rather than a
// shortcut, used as the Via sentinel wherever a via-node is expected.
const NoMiddle = chgraph.NodeIdx(^uint32(0))

// noMiddle is the unexported alias used internally by this package.
const noMiddle = NoMiddle

// Contraction is a single shortcut inserted while contracting node Via:
// it replaces the two-hop path U -> Via -> W with a single edge U -> W.
// The two component costs are kept separate, not just their sum,
// because unpacking a shortcut recursively needs the exact cost of each
// half to look it up in turn — a half may itself be another shortcut.
type Contraction struct {
	U, W     chgraph.NodeIdx
	Via      chgraph.NodeIdx
	CostUVia uint32
	CostViaW uint32
}

// Cost is the shortcut's total edge weight.
func (c Contraction) Cost() uint32 {
	return c.CostUVia + c.CostViaW
}

// Upward is one entry of a node's upward adjacency list in the final
// overlay: an edge to a higher-ranked neighbor, the only kind of edge a
// CH query is allowed to relax.
type Upward struct {
	To   chgraph.NodeIdx
	Cost uint32
}

// Result is the complete output of Build: the node order and rank
// permutation, every shortcut inserted (including ones that ended up
// "downward" and so are absent from the overlay itself but are still
// needed to recursively unpack a shortcut that sits above them), and
// the upward-only forward and backward overlay graphs a query engine
// searches.
type Result struct {
	NumNodes chgraph.NodeIdx

	// Order[i] is the node contracted at step i; Rank is its inverse:
	// Rank[Order[i]] == i.
	Order []chgraph.NodeIdx
	Rank  []chgraph.NodeIdx

	Shortcuts []Contraction

	ForwardUp  [][]Upward
	BackwardUp [][]Upward
}

// ceEdge is one entry of the mutable adjacency the builder maintains
// while contracting. Middle is noMiddle for an original graph edge, or
// the via-node of a shortcut.
type ceEdge struct {
	To     chgraph.NodeIdx
	Cost   uint32
	Middle chgraph.NodeIdx
}
