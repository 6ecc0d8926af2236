// Package chgraph implements the bit-packed directed graph representation
// that the contraction builder and query engine operate on: a NodeIdx
// address space, a packed Edge word carrying direction and cost, and an
// IndexedGraph built from a plain edge list via bidirectional closure.
package chgraph

import "fmt"

// NodeIdx addresses a node in an IndexedGraph. Valid range is
// [0, NumNodes).
type NodeIdx uint32

// Dir is the direction a packed Edge represents relative to the node
// whose adjacency list holds it.
type Dir uint8

const (
	// DirInvalid marks a zero-value Edge as corrupt; a real edge is
	// never DirInvalid.
	DirInvalid Dir = 0
	// DirForward means the edge was inserted while walking the graph
	// in its original direction.
	DirForward Dir = 1
	// DirBackward means the edge is the synthesized reverse of a
	// Forward edge, inserted during bidirectional closure.
	DirBackward Dir = 2

	dirShift  = 30
	costMask  = (1 << dirShift) - 1
	maxCost   = costMask
)

// Edge packs a direction (top 2 bits) and a cost (low 30 bits) with a
// target node index alongside it. NumNodes up to 2^32 and per-edge cost
// up to 2^30-1 fit in this representation.
type Edge struct {
	To   NodeIdx
	word uint32
}

// NewEdge builds a packed Edge. cost must fit in 30 bits; callers that
// compute costs from real-world units are responsible for scaling them
// down into range before calling this.
func NewEdge(to NodeIdx, dir Dir, cost uint32) Edge {
	if dir != DirForward && dir != DirBackward {
		panic(fmt.Sprintf("chgraph: invalid edge direction %d", dir))
	}
	if cost > maxCost {
		panic(fmt.Sprintf("chgraph: edge cost %d exceeds %d-bit budget", cost, dirShift))
	}
	return Edge{To: to, word: uint32(dir)<<dirShift | cost}
}

// Dir returns the edge's direction. DirInvalid indicates a zero-value
// Edge that was never initialized through NewEdge — a corruption signal
// wherever it's checked.
func (e Edge) Dir() Dir {
	return Dir(e.word >> dirShift)
}

// Cost returns the edge's weight.
func (e Edge) Cost() uint32 {
	return e.word & costMask
}

// SetCost overwrites the cost in place, keeping the direction bits.
func (e *Edge) SetCost(cost uint32) {
	if cost > maxCost {
		panic(fmt.Sprintf("chgraph: edge cost %d exceeds %d-bit budget", cost, dirShift))
	}
	e.word = uint32(e.Dir())<<dirShift | cost
}

// Less orders edges by direction only, Forward before Backward; cost
// and target are ignored.
func (e Edge) Less(o Edge) bool {
	return e.Dir() < o.Dir()
}

// RawEdge is a single directed edge as a loader produces it, before
// bidirectional closure. Cost is in the same unit the caller wants
// IndexedGraph.Edge.Cost to report (typically millimeters or
// milliseconds — see pkg/network).
type RawEdge struct {
	From NodeIdx
	To   NodeIdx
	Cost uint32
}

// IndexedGraph is an adjacency-list graph where every edge has both a
// Forward entry (in the direction it was given) and a Backward entry
// (the reverse, used by backward search and backward witness lookups).
// Edges are plain Go slices rather than a CSR layout: preprocessing
// mutates per-node adjacency constantly (shortcut insertion, contracted
// edge removal) and a growable slice-of-slices amortizes that far better
// than repeatedly rebuilding prefix sums.
type IndexedGraph struct {
	NumNodes NodeIdx
	adj      [][]Edge
}

// New builds an IndexedGraph from a Forward edge list. For every input
// edge (u, v, cost) it inserts a DirForward entry into adj[u] and a
// DirBackward entry into adj[v], giving every node a single adjacency
// list that holds both directions — exactly the layout the contraction
// builder's witness search needs to look a node's incoming and outgoing
// neighbors without consulting a second graph.
func New(numNodes NodeIdx, edges []RawEdge) *IndexedGraph {
	g := &IndexedGraph{
		NumNodes: numNodes,
		adj:      make([][]Edge, numNodes),
	}
	for _, e := range edges {
		g.adj[e.From] = append(g.adj[e.From], NewEdge(e.To, DirForward, e.Cost))
		g.adj[e.To] = append(g.adj[e.To], NewEdge(e.From, DirBackward, e.Cost))
	}
	return g
}

// BuildInput is what a network loader (pkg/network) produces: a Forward
// edge list plus the node coordinates needed downstream by pkg/snap,
// before bidirectional closure has built the IndexedGraph itself.
type BuildInput struct {
	NumNodes NodeIdx
	Edges    []RawEdge
	NodeLat  []float64
	NodeLon  []float64
}

// Graph builds the IndexedGraph for this input's edge list.
func (b *BuildInput) Graph() *IndexedGraph {
	return New(b.NumNodes, b.Edges)
}

// EdgesFrom returns the adjacency list for n, containing both the
// Forward edges leaving n and the Backward edges representing edges
// that enter n.
func (g *IndexedGraph) EdgesFrom(n NodeIdx) []Edge {
	return g.adj[n]
}

// NumEdges returns the total number of packed Edge entries across all
// adjacency lists (i.e. 2x the number of RawEdge inputs).
func (g *IndexedGraph) NumEdges() int {
	total := 0
	for _, es := range g.adj {
		total += len(es)
	}
	return total
}
