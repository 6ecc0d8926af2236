package chquery

import (
	"math"
	"testing"

	"chway/pkg/ch"
	"chway/pkg/chgraph"
)

func plainDijkstra(g *chgraph.IndexedGraph, source, target chgraph.NodeIdx) (uint32, bool) {
	dist := make([]uint32, g.NumNodes)
	for i := range dist {
		dist[i] = math.MaxUint32
	}
	dist[source] = 0

	type item struct {
		node chgraph.NodeIdx
		dist uint32
	}
	pq := []item{{source, 0}}

	for len(pq) > 0 {
		minIdx := 0
		for i := 1; i < len(pq); i++ {
			if pq[i].dist < pq[minIdx].dist {
				minIdx = i
			}
		}
		cur := pq[minIdx]
		pq[minIdx] = pq[len(pq)-1]
		pq = pq[:len(pq)-1]
		if cur.dist > dist[cur.node] {
			continue
		}
		for _, e := range g.EdgesFrom(cur.node) {
			if e.Dir() != chgraph.DirForward {
				continue
			}
			nd := cur.dist + e.Cost()
			if nd < dist[e.To] {
				dist[e.To] = nd
				pq = append(pq, item{e.To, nd})
			}
		}
	}
	if dist[target] == math.MaxUint32 {
		return 0, false
	}
	return dist[target], true
}

func gridGraph() *chgraph.IndexedGraph {
	edges := []chgraph.RawEdge{
		{From: 0, To: 1, Cost: 100},
		{From: 1, To: 0, Cost: 100},
		{From: 1, To: 2, Cost: 200},
		{From: 2, To: 1, Cost: 200},
		{From: 0, To: 3, Cost: 300},
		{From: 3, To: 0, Cost: 300},
		{From: 2, To: 5, Cost: 400},
		{From: 5, To: 2, Cost: 400},
		{From: 3, To: 4, Cost: 500},
		{From: 4, To: 3, Cost: 500},
		{From: 4, To: 5, Cost: 600},
		{From: 5, To: 4, Cost: 600},
	}
	return chgraph.New(6, edges)
}

func pathValid(g *chgraph.IndexedGraph, path []chgraph.NodeIdx) bool {
	for i := 0; i+1 < len(path); i++ {
		found := false
		for _, e := range g.EdgesFrom(path[i]) {
			if e.Dir() == chgraph.DirForward && e.To == path[i+1] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func TestSearchMatchesPlainDijkstra(t *testing.T) {
	g := gridGraph()
	res := ch.Build(g)
	q := New(FromResult(res))

	for s := chgraph.NodeIdx(0); s < g.NumNodes; s++ {
		for d := chgraph.NodeIdx(0); d < g.NumNodes; d++ {
			if s == d {
				continue
			}
			wantCost, wantReachable := plainDijkstra(g, s, d)
			path, gotCost, ok := q.Search(s, d)

			if ok != wantReachable {
				t.Fatalf("s=%d d=%d: Search ok=%v, want %v", s, d, ok, wantReachable)
			}
			if !ok {
				continue
			}
			if gotCost != wantCost {
				t.Errorf("s=%d d=%d: cost=%d, want %d", s, d, gotCost, wantCost)
			}
			if path[0] != s || path[len(path)-1] != d {
				t.Errorf("s=%d d=%d: path endpoints are %d..%d", s, d, path[0], path[len(path)-1])
			}
			if !pathValid(g, path) {
				t.Errorf("s=%d d=%d: unpacked path %v is not a walk over real edges", s, d, path)
			}
		}
	}
}

func TestSearchNoPath(t *testing.T) {
	edges := []chgraph.RawEdge{
		{From: 0, To: 1, Cost: 1},
		{From: 1, To: 0, Cost: 1},
	}
	g := chgraph.New(4, edges)
	res := ch.Build(g)
	q := New(FromResult(res))

	if _, _, ok := q.Search(0, 3); ok {
		t.Errorf("expected no path from 0 to an isolated node")
	}
}

func TestSearchSameNode(t *testing.T) {
	g := gridGraph()
	res := ch.Build(g)
	q := New(FromResult(res))

	path, cost, ok := q.Search(2, 2)
	if !ok || cost != 0 || len(path) != 1 || path[0] != 2 {
		t.Errorf("Search(2,2) = %v, %d, %v; want [2], 0, true", path, cost, ok)
	}
}
