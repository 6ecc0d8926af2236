package ch

import (
	"log"
	"runtime"

	"golang.org/x/sync/errgroup"

	"chway/pkg/chgraph"
)

// scoreTolerance bounds the lazy re-scoring: a popped node whose
// recomputed score is at most this margin above its heap score (or
// lower than it) is trusted without a re-push, avoiding a re-sort on
// every near-tie.
const scoreTolerance = int32(2)

// step is the base unit the heap-rebuild interval is derived from.
const step = 10000

// heapMinInterval is the minimum number of contractions between full
// heap rebuilds; the effective interval is the larger of this and
// heapLen/10, so rebuilds stay rare on small graphs and frequent enough
// on large ones to keep stale scores from drifting too far.
const heapMinInterval = step * 2

// builder holds the mutable state of one contraction run.
type builder struct {
	numNodes chgraph.NodeIdx
	adj      []struct {
		fwd []ceEdge
		bwd []ceEdge
	}
	contracted   []bool
	deletedCount []int32

	// hopLimit is the single builder-wide witness-search depth, not a
	// per-node value: it starts at 1 and only ever escalates, in step
	// with the density of the remaining graph (see the periodic rebuild
	// in Build).
	hopLimit uint16

	rank      []chgraph.NodeIdx
	order     []chgraph.NodeIdx
	shortcuts []Contraction
}

// Build runs contraction hierarchy preprocessing on g and returns the
// node order, shortcut list, and upward-only overlay a query engine
// needs.
func Build(g *chgraph.IndexedGraph) *Result {
	n := g.NumNodes
	b := &builder{
		numNodes: n,
		adj: make([]struct {
			fwd []ceEdge
			bwd []ceEdge
		}, n),
		contracted:   make([]bool, n),
		deletedCount: make([]int32, n),
		hopLimit:     1,
		rank:         make([]chgraph.NodeIdx, n),
		order:        make([]chgraph.NodeIdx, 0, n),
	}

	for u := chgraph.NodeIdx(0); u < n; u++ {
		for _, e := range g.EdgesFrom(u) {
			ce := ceEdge{To: e.To, Cost: e.Cost(), Middle: noMiddle}
			switch e.Dir() {
			case chgraph.DirForward:
				b.adj[u].fwd = append(b.adj[u].fwd, ce)
			case chgraph.DirBackward:
				b.adj[u].bwd = append(b.adj[u].bwd, ce)
			default:
				panic("ch: corrupt edge with invalid direction during adjacency build")
			}
		}
	}

	pq := b.buildInitialHeap()

	log.Printf("ch: contracting %d nodes", n)

	contractedSinceRebuild := 0
	for i := chgraph.NodeIdx(0); i < n; i++ {
		entry, ok := pq.Pop()
		if !ok {
			break
		}
		v := entry.node
		if b.contracted[v] {
			continue
		}

		needed, fresh := b.scoreWithShortcuts(v)
		if fresh > entry.score+scoreTolerance {
			pq.Push(v, fresh)
			i--
			continue
		}

		b.contractNode(v, needed, chgraph.NodeIdx(len(b.order)))

		contractedSinceRebuild++
		rebuildInterval := heapMinInterval
		if pq.Len()/10 > rebuildInterval {
			rebuildInterval = pq.Len() / 10
		}
		if contractedSinceRebuild >= rebuildInterval {
			prevHopLimit := b.hopLimit
			avgDegree := b.avgRemainingDegree()
			switch {
			case avgDegree > 8 && b.hopLimit < 5:
				b.hopLimit = 5
			case avgDegree > 5 && b.hopLimit < 3:
				b.hopLimit = 3
			case avgDegree > 3.3 && b.hopLimit < 2:
				b.hopLimit = 2
			}
			if b.hopLimit != prevHopLimit {
				log.Printf("ch: raising hop limit %d -> %d (avg remaining degree %.2f)", prevHopLimit, b.hopLimit, avgDegree)
				b.rebuildShortcuts()
				for i := range b.deletedCount {
					b.deletedCount[i] = 0
				}
			}
			pq = b.rebuildHeap()
			contractedSinceRebuild = 0
		}

		if len(b.order)%50000 == 0 {
			log.Printf("ch: contracted %d/%d nodes, %d shortcuts so far", len(b.order), n, len(b.shortcuts))
		}
	}

	// Nodes with no adjacency at all are excluded from the heap (see
	// buildInitialHeap) and so never get popped above; give each one a
	// trailing rank here so order still covers every node, contracted or
	// not.
	for v := chgraph.NodeIdx(0); v < n; v++ {
		if b.contracted[v] {
			continue
		}
		b.contracted[v] = true
		b.rank[v] = chgraph.NodeIdx(len(b.order))
		b.order = append(b.order, v)
	}

	log.Printf("ch: contraction complete: %d shortcuts for %d nodes", len(b.shortcuts), n)

	return b.buildResult(g)
}

// contractNode commits v as the next contracted node: it inserts the
// computed shortcuts into both endpoints' adjacency (mirrored, forward
// and backward, so later witness searches see them), bumps every
// neighbor's deleted-edge count, and removes v's own edges from the
// mutable adjacency (garbage collection) so later witness searches
// never waste hops passing through an already-contracted node.
func (b *builder) contractNode(v chgraph.NodeIdx, needed []neededShortcut, rankPos chgraph.NodeIdx) {
	for _, ns := range needed {
		cost := ns.predCost + ns.succCost
		b.shortcuts = append(b.shortcuts, Contraction{U: ns.from, W: ns.to, Via: v, CostUVia: ns.predCost, CostViaW: ns.succCost})
		b.adj[ns.from].fwd = upsertMinCost(b.adj[ns.from].fwd, ns.to, cost, v)
		b.adj[ns.to].bwd = upsertMinCost(b.adj[ns.to].bwd, ns.from, cost, v)
	}

	b.contracted[v] = true
	b.rank[v] = rankPos
	b.order = append(b.order, v)

	for _, e := range b.adj[v].fwd {
		if !b.contracted[e.To] {
			b.deletedCount[e.To]++
		}
	}
	for _, e := range b.adj[v].bwd {
		if !b.contracted[e.To] {
			b.deletedCount[e.To]++
		}
	}

	b.gcNode(v)
}

// gcNode removes every edge touching v from its neighbors' adjacency
// lists, then frees v's own lists. Once v is contracted it will never
// be walked by another witness search, so carrying its edges around
// any longer only costs memory and wasted filtering in every future
// findShortcuts call over its neighbors.
func (b *builder) gcNode(v chgraph.NodeIdx) {
	for _, e := range b.adj[v].fwd {
		b.adj[e.To].bwd = removeEdgeTo(b.adj[e.To].bwd, v)
	}
	for _, e := range b.adj[v].bwd {
		b.adj[e.To].fwd = removeEdgeTo(b.adj[e.To].fwd, v)
	}
	b.adj[v].fwd = nil
	b.adj[v].bwd = nil
}

func removeEdgeTo(list []ceEdge, target chgraph.NodeIdx) []ceEdge {
	out := list[:0]
	for _, e := range list {
		if e.To != target {
			out = append(out, e)
		}
	}
	return out
}

// score computes the node priority used to order contraction: lower
// scores contract first. edgeDifference (shortcuts added minus edges
// removed) dominates; the deleted-count term is subtracted, so a node
// that has already lost edges to contracted neighbors scores lower and
// is contracted sooner. These are the same two terms the node priority
// heuristic this package is grounded on combines.
func (b *builder) score(v chgraph.NodeIdx) int32 {
	_, s := b.scoreWithShortcuts(v)
	return s
}

// scoreWithShortcuts is score's implementation, exposed separately so
// the main contraction loop can reuse the shortcut list it computes
// instead of re-running the witness search a second time right after
// accepting a node off the heap.
func (b *builder) scoreWithShortcuts(v chgraph.NodeIdx) ([]neededShortcut, int32) {
	needed := b.findShortcuts(v)
	edgeDifference := int32(len(needed)) - int32(len(b.adj[v].fwd)+len(b.adj[v].bwd))
	return needed, edgeDifference - b.deletedCount[v]
}

// hasAdjacency reports whether v has any edge at all, in either
// direction. Nodes without one contribute nothing to contract and are
// excluded from the heap entirely.
func (b *builder) hasAdjacency(v chgraph.NodeIdx) bool {
	return len(b.adj[v].fwd)+len(b.adj[v].bwd) > 0
}

// buildInitialHeap scores every non-empty node in parallel (the graph
// is immutable at this point, so per-node witness searches have no
// shared mutable state) and returns a populated priority queue.
func (b *builder) buildInitialHeap() *priorityQueue {
	scores := make([]int32, b.numNodes)

	workers := runtime.GOMAXPROCS(0)
	if workers < 1 {
		workers = 1
	}
	if int(b.numNodes) < workers {
		workers = int(b.numNodes)
	}

	var g errgroup.Group
	if workers > 0 {
		chunk := (int(b.numNodes) + workers - 1) / workers
		for w := 0; w < workers; w++ {
			lo := w * chunk
			hi := lo + chunk
			if hi > int(b.numNodes) {
				hi = int(b.numNodes)
			}
			if lo >= hi {
				continue
			}
			g.Go(func() error {
				for i := lo; i < hi; i++ {
					if b.hasAdjacency(chgraph.NodeIdx(i)) {
						scores[i] = b.score(chgraph.NodeIdx(i))
					}
				}
				return nil
			})
		}
	}
	_ = g.Wait()

	pq := &priorityQueue{}
	for i := chgraph.NodeIdx(0); i < b.numNodes; i++ {
		if b.hasAdjacency(i) {
			pq.Push(i, scores[i])
		}
	}
	return pq
}

// rebuildHeap recomputes scores for all remaining non-empty,
// uncontracted nodes. Periodic rebuilds correct for the drift lazy
// re-scoring tolerates between rebuilds.
func (b *builder) rebuildHeap() *priorityQueue {
	pq := &priorityQueue{}
	for v := chgraph.NodeIdx(0); v < b.numNodes; v++ {
		if b.contracted[v] || !b.hasAdjacency(v) {
			continue
		}
		pq.Push(v, b.score(v))
	}
	return pq
}

// avgRemainingDegree is the density signal hop-limit escalation is
// driven by: total adjacency entries across not-yet-contracted nodes,
// divided by how many remain, divided by two since every edge is
// counted once from each endpoint.
func (b *builder) avgRemainingDegree() float64 {
	var total, remaining int64
	for v := chgraph.NodeIdx(0); v < b.numNodes; v++ {
		if b.contracted[v] {
			continue
		}
		remaining++
		total += int64(len(b.adj[v].fwd) + len(b.adj[v].bwd))
	}
	if remaining == 0 {
		return 0
	}
	return float64(total) / float64(remaining) / 2
}

// rebuildShortcuts prunes the live adjacency down to edges that are
// still load-bearing at the new, deeper hop limit: for every
// not-yet-contracted node, the witness search is rerun, and an
// adjacency edge survives only if it is the predecessor or successor
// side of one of that node's still-necessary shortcuts. Surviving
// edges are collected and re-paired into a fresh adjacency from
// scratch. This only touches the working adjacency later contractions
// read from; the shortcuts already emitted into the output log are
// untouched.
func (b *builder) rebuildShortcuts() {
	type survivor struct {
		from, to chgraph.NodeIdx
		cost     uint32
		middle   chgraph.NodeIdx
	}

	survivors := make([][]survivor, b.numNodes)

	workers := runtime.GOMAXPROCS(0)
	if workers < 1 {
		workers = 1
	}
	if int(b.numNodes) < workers {
		workers = int(b.numNodes)
	}

	var g errgroup.Group
	chunk := (int(b.numNodes) + workers - 1) / workers
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > int(b.numNodes) {
			hi = int(b.numNodes)
		}
		if lo >= hi {
			continue
		}
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				v := chgraph.NodeIdx(i)
				if b.contracted[v] || !b.hasAdjacency(v) {
					continue
				}
				needed := b.findShortcuts(v)
				if len(needed) == 0 {
					continue
				}
				succOK := make(map[chgraph.NodeIdx]bool, len(needed))
				predOK := make(map[chgraph.NodeIdx]bool, len(needed))
				for _, ns := range needed {
					succOK[ns.to] = true
					predOK[ns.from] = true
				}
				var kept []survivor
				for _, e := range b.adj[v].fwd {
					if succOK[e.To] {
						kept = append(kept, survivor{from: v, to: e.To, cost: e.Cost, middle: e.Middle})
					}
				}
				for _, e := range b.adj[v].bwd {
					if predOK[e.To] {
						kept = append(kept, survivor{from: e.To, to: v, cost: e.Cost, middle: e.Middle})
					}
				}
				survivors[i] = kept
			}
			return nil
		})
	}
	_ = g.Wait()

	fresh := make([]struct {
		fwd []ceEdge
		bwd []ceEdge
	}, b.numNodes)
	for _, kept := range survivors {
		for _, s := range kept {
			fresh[s.from].fwd = upsertMinCost(fresh[s.from].fwd, s.to, s.cost, s.middle)
			fresh[s.to].bwd = upsertMinCost(fresh[s.to].bwd, s.from, s.cost, s.middle)
		}
	}
	b.adj = fresh
}

// upsertMinCost inserts a (to, cost, middle) edge into list, or lowers
// an existing entry to to's cost if it's cheaper, mirroring the
// parallel-edge dedup rule shortcut insertion applies elsewhere.
func upsertMinCost(list []ceEdge, to chgraph.NodeIdx, cost uint32, middle chgraph.NodeIdx) []ceEdge {
	for i := range list {
		if list[i].To == to {
			if cost < list[i].Cost {
				list[i].Cost = cost
				list[i].Middle = middle
			}
			return list
		}
	}
	return append(list, ceEdge{To: to, Cost: cost, Middle: middle})
}

// buildResult assembles the final upward-only overlay: an edge from u
// survives into the forward-up graph if its target has a strictly
// higher rank, and symmetrically for the backward-up graph built from
// the reverse (bwd) adjacency. Since every shortcut was mirrored into
// both endpoints' fwd and bwd lists at insertion time, this single pass
// over the (now emptied-by-GC) per-contraction adjacency would miss
// them — so the overlay is instead rebuilt from the original graph plus
// the accumulated shortcut list, which were never GC'd.
func (b *builder) buildResult(g *chgraph.IndexedGraph) *Result {
	n := b.numNodes
	res := &Result{
		NumNodes:   n,
		Order:      b.order,
		Rank:       b.rank,
		Shortcuts:  b.shortcuts,
		ForwardUp:  make([][]Upward, n),
		BackwardUp: make([][]Upward, n),
	}

	for u := chgraph.NodeIdx(0); u < n; u++ {
		for _, e := range g.EdgesFrom(u) {
			switch e.Dir() {
			case chgraph.DirForward:
				if res.Rank[e.To] > res.Rank[u] {
					res.ForwardUp[u] = append(res.ForwardUp[u], Upward{To: e.To, Cost: e.Cost()})
				}
			case chgraph.DirBackward:
				if res.Rank[e.To] > res.Rank[u] {
					res.BackwardUp[u] = append(res.BackwardUp[u], Upward{To: e.To, Cost: e.Cost()})
				}
			}
		}
	}
	for _, sc := range b.shortcuts {
		cost := sc.Cost()
		if res.Rank[sc.W] > res.Rank[sc.U] {
			res.ForwardUp[sc.U] = append(res.ForwardUp[sc.U], Upward{To: sc.W, Cost: cost})
		}
		if res.Rank[sc.U] > res.Rank[sc.W] {
			res.BackwardUp[sc.W] = append(res.BackwardUp[sc.W], Upward{To: sc.U, Cost: cost})
		}
	}

	return res
}
