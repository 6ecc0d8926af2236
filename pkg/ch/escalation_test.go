package ch

import (
	"testing"

	"chway/pkg/chgraph"
)

// newTestBuilder wires up a builder's adjacency straight from an
// IndexedGraph, the same setup Build performs, without running any
// contraction — tests that need to drive findShortcuts/rebuildShortcuts
// directly at a chosen hopLimit use this instead of Build.
func newTestBuilder(g *chgraph.IndexedGraph, hopLimit uint16) *builder {
	b := &builder{
		numNodes: g.NumNodes,
		adj: make([]struct {
			fwd []ceEdge
			bwd []ceEdge
		}, g.NumNodes),
		contracted:   make([]bool, g.NumNodes),
		deletedCount: make([]int32, g.NumNodes),
		hopLimit:     hopLimit,
		rank:         make([]chgraph.NodeIdx, g.NumNodes),
		order:        make([]chgraph.NodeIdx, 0, g.NumNodes),
	}
	for u := chgraph.NodeIdx(0); u < g.NumNodes; u++ {
		for _, e := range g.EdgesFrom(u) {
			ce := ceEdge{To: e.To, Cost: e.Cost(), Middle: noMiddle}
			switch e.Dir() {
			case chgraph.DirForward:
				b.adj[u].fwd = append(b.adj[u].fwd, ce)
			case chgraph.DirBackward:
				b.adj[u].bwd = append(b.adj[u].bwd, ce)
			}
		}
	}
	return b
}

// witnessGraph builds A(0) -> V(2) -> W(3), the pair a contraction of V
// would need a shortcut for, plus a two-hop detour A(0) -> X(1) -> W(3)
// that is only visible to a witness search once the hop limit reaches 2.
func witnessGraph() *chgraph.IndexedGraph {
	edges := []chgraph.RawEdge{
		{From: 0, To: 2, Cost: 10},
		{From: 2, To: 3, Cost: 10},
		{From: 0, To: 1, Cost: 7},
		{From: 1, To: 3, Cost: 8},
	}
	return chgraph.New(4, edges)
}

func TestFindShortcutsHopLimitAffectsWitnessDepth(t *testing.T) {
	g := witnessGraph()

	shallow := newTestBuilder(g, 1)
	needed := shallow.findShortcuts(2)
	if len(needed) != 1 {
		t.Fatalf("hop_limit=1: got %d needed shortcuts, want 1 (A->W via V, detour not yet visible)", len(needed))
	}

	deep := newTestBuilder(g, 2)
	needed = deep.findShortcuts(2)
	if len(needed) != 0 {
		t.Fatalf("hop_limit=2: got %d needed shortcuts, want 0 (A->X->W witness found)", len(needed))
	}
}

func TestAvgRemainingDegree(t *testing.T) {
	g := buildTestGraph()
	b := newTestBuilder(g, 1)

	var total int64
	for v := chgraph.NodeIdx(0); v < b.numNodes; v++ {
		total += int64(len(b.adj[v].fwd) + len(b.adj[v].bwd))
	}
	want := float64(total) / float64(b.numNodes) / 2
	if got := b.avgRemainingDegree(); got != want {
		t.Errorf("avgRemainingDegree() = %v, want %v", got, want)
	}

	b.contracted[0] = true
	want = float64(total-int64(len(b.adj[0].fwd)+len(b.adj[0].bwd))) / float64(b.numNodes-1) / 2
	if got := b.avgRemainingDegree(); got != want {
		t.Errorf("avgRemainingDegree() after contracting node 0 = %v, want %v", got, want)
	}
}

// TestRebuildShortcutsIsConsistentAndMonotonic checks the properties
// rebuildShortcuts must hold regardless of which specific edges a
// deeper witness search decides to keep: it only ever removes
// adjacency (never invents an edge), and every surviving edge is still
// mirrored at both endpoints.
func TestRebuildShortcutsIsConsistentAndMonotonic(t *testing.T) {
	g := buildTestGraph()
	b := newTestBuilder(g, 1)

	before := adjacencyEdgeCount(b)

	b.hopLimit = 3
	b.rebuildShortcuts()

	after := adjacencyEdgeCount(b)
	if after > before {
		t.Errorf("rebuildShortcuts grew the adjacency from %d to %d entries", before, after)
	}

	for v := chgraph.NodeIdx(0); v < b.numNodes; v++ {
		for _, e := range b.adj[v].fwd {
			if !hasBackEdge(b, e.To, v, e.Cost) {
				t.Errorf("node %d has forward edge to %d (cost %d) with no matching backward edge", v, e.To, e.Cost)
			}
		}
		for _, e := range b.adj[v].bwd {
			if !hasForwardEdge(b, e.To, v, e.Cost) {
				t.Errorf("node %d has backward edge to %d (cost %d) with no matching forward edge", v, e.To, e.Cost)
			}
		}
	}
}

func adjacencyEdgeCount(b *builder) int {
	n := 0
	for v := chgraph.NodeIdx(0); v < b.numNodes; v++ {
		n += len(b.adj[v].fwd) + len(b.adj[v].bwd)
	}
	return n
}

func hasBackEdge(b *builder, at, to chgraph.NodeIdx, cost uint32) bool {
	for _, e := range b.adj[at].bwd {
		if e.To == to && e.Cost == cost {
			return true
		}
	}
	return false
}

func hasForwardEdge(b *builder, at, to chgraph.NodeIdx, cost uint32) bool {
	for _, e := range b.adj[at].fwd {
		if e.To == to && e.Cost == cost {
			return true
		}
	}
	return false
}

func TestUpsertMinCostKeepsCheaper(t *testing.T) {
	var list []ceEdge
	list = upsertMinCost(list, 5, 100, NoMiddle)
	list = upsertMinCost(list, 5, 50, 9)
	if len(list) != 1 {
		t.Fatalf("len(list) = %d, want 1 (same target dedups)", len(list))
	}
	if list[0].Cost != 50 || list[0].Middle != 9 {
		t.Errorf("upsertMinCost did not keep the cheaper entry: got %+v", list[0])
	}
	list = upsertMinCost(list, 5, 200, 1)
	if list[0].Cost != 50 {
		t.Errorf("upsertMinCost overwrote a cheaper entry with a costlier one: got cost %d", list[0].Cost)
	}
}
