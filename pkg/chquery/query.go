// Package chquery implements the bidirectional contraction-hierarchy
// query: a forward search restricted to upward edges from the source, a
// backward search restricted to upward edges from the destination,
// meeting-node detection with cost-limit tightening, and shortcut
// unpacking back into a path over the original graph.
package chquery

import (
	"math"

	"chway/pkg/ch"
	"chway/pkg/chgraph"
)

// Overlay is the subset of a contraction Result a query needs. Kept
// separate from ch.Result so a query engine loaded from a serialized
// artifact (pkg/artifact) doesn't need the builder's internal types in
// scope — only its public output shape.
type Overlay struct {
	NumNodes   chgraph.NodeIdx
	Rank       []chgraph.NodeIdx
	ForwardUp  [][]ch.Upward
	BackwardUp [][]ch.Upward
	Shortcuts  []ch.Contraction
}

// FromResult adapts a freshly built ch.Result into an Overlay without
// copying the (potentially large) adjacency slices.
func FromResult(res *ch.Result) *Overlay {
	return &Overlay{
		NumNodes:   res.NumNodes,
		Rank:       res.Rank,
		ForwardUp:  res.ForwardUp,
		BackwardUp: res.BackwardUp,
		Shortcuts:  res.Shortcuts,
	}
}

// shortcutKey identifies a shortcut by its endpoints and exact cost.
// Cost is part of the key, not just (U, W), because an original edge
// and a shortcut can connect the same pair of nodes at different
// costs — the cost the search actually relaxed tells unpack which one
// it used.
type shortcutKey struct {
	u, w chgraph.NodeIdx
	cost uint32
}

// CHQuery answers shortest-path queries against a contracted graph.
// Safe for concurrent use: a query holds no mutable state of its own
// beyond the read-only index built at construction, and allocates
// fresh scratch state on every Search call.
type CHQuery struct {
	overlay *Overlay
	byKey   map[shortcutKey]ch.Contraction
}

// New builds a query engine over overlay.
func New(overlay *Overlay) *CHQuery {
	byKey := make(map[shortcutKey]ch.Contraction, len(overlay.Shortcuts))
	for _, sc := range overlay.Shortcuts {
		byKey[shortcutKey{sc.U, sc.W, sc.Cost()}] = sc
	}
	return &CHQuery{overlay: overlay, byKey: byKey}
}

const infinite = uint32(math.MaxUint32)

// side is the per-direction search state of one bidirectional query.
type side struct {
	dist []uint32
	pred []chgraph.NodeIdx
	// predCost[x] is the cost of the specific edge that produced the
	// current pred[x] relaxation — needed by unpack to identify exactly
	// which shortcut (if any) was used, since more than one edge can
	// connect the same pair of nodes at different costs.
	predCost []uint32
	heap     []entry
}

type entry struct {
	node chgraph.NodeIdx
	dist uint32
}

func newSide(n chgraph.NodeIdx) *side {
	dist := make([]uint32, n)
	for i := range dist {
		dist[i] = infinite
	}
	return &side{
		dist:     dist,
		pred:     make([]chgraph.NodeIdx, n),
		predCost: make([]uint32, n),
	}
}

func (s *side) push(node chgraph.NodeIdx, dist uint32) {
	s.heap = append(s.heap, entry{node, dist})
	i := len(s.heap) - 1
	for i > 0 {
		parent := (i - 1) / 2
		if s.heap[parent].dist <= s.heap[i].dist {
			break
		}
		s.heap[parent], s.heap[i] = s.heap[i], s.heap[parent]
		i = parent
	}
}

func (s *side) pop() (entry, bool) {
	if len(s.heap) == 0 {
		return entry{}, false
	}
	top := s.heap[0]
	n := len(s.heap) - 1
	s.heap[0] = s.heap[n]
	s.heap = s.heap[:n]
	i := 0
	for {
		l, r := 2*i+1, 2*i+2
		small := i
		if l < n && s.heap[l].dist < s.heap[small].dist {
			small = l
		}
		if r < n && s.heap[r].dist < s.heap[small].dist {
			small = r
		}
		if small == i {
			break
		}
		s.heap[i], s.heap[small] = s.heap[small], s.heap[i]
		i = small
	}
	return top, true
}

func (s *side) peek() uint32 {
	if len(s.heap) == 0 {
		return infinite
	}
	return s.heap[0].dist
}

func (s *side) relax(from chgraph.NodeIdx, fromDist uint32, edges []ch.Upward) {
	for _, e := range edges {
		nd := fromDist + e.Cost
		if nd < s.dist[e.To] {
			s.dist[e.To] = nd
			s.pred[e.To] = from
			s.predCost[e.To] = e.Cost
			s.push(e.To, nd)
		}
	}
}

// Search finds the shortest path from src to dst, returning the node
// sequence over the original (uncontracted) graph, its total cost, and
// whether a path exists.
func (q *CHQuery) Search(src, dst chgraph.NodeIdx) (path []chgraph.NodeIdx, cost uint32, ok bool) {
	n := q.overlay.NumNodes
	fwd := newSide(n)
	bwd := newSide(n)

	fwd.dist[src] = 0
	fwd.pred[src] = src
	fwd.push(src, 0)
	bwd.dist[dst] = 0
	bwd.pred[dst] = dst
	bwd.push(dst, 0)

	meet := chgraph.NodeIdx(0)
	found := false
	mu := infinite

	for len(fwd.heap) > 0 || len(bwd.heap) > 0 {
		if len(fwd.heap) > 0 && fwd.peek() < mu {
			cur, _ := fwd.pop()
			if cur.dist <= fwd.dist[cur.node] {
				if bwd.dist[cur.node] != infinite {
					if cand := cur.dist + bwd.dist[cur.node]; cand < mu {
						mu = cand
						meet = cur.node
						found = true
					}
				}
				fwd.relax(cur.node, cur.dist, q.overlay.ForwardUp[cur.node])
			}
		}
		if len(bwd.heap) > 0 && bwd.peek() < mu {
			cur, _ := bwd.pop()
			if cur.dist <= bwd.dist[cur.node] {
				if fwd.dist[cur.node] != infinite {
					if cand := fwd.dist[cur.node] + cur.dist; cand < mu {
						mu = cand
						meet = cur.node
						found = true
					}
				}
				bwd.relax(cur.node, cur.dist, q.overlay.BackwardUp[cur.node])
			}
		}
		if fwd.peek() >= mu && bwd.peek() >= mu {
			break
		}
	}

	if !found {
		return nil, 0, false
	}

	nodes, costs := decodeOverlayPath(fwd, bwd, src, dst, meet)
	full := q.unpack(nodes, costs)
	return full, mu, true
}

// decodeOverlayPath walks both sides' predecessor arrays from meet back
// to src and forward to dst, returning the overlay-level node sequence
// (original nodes plus unresolved shortcut endpoints) and, parallel to
// it, the per-hop edge cost that produced each step — costs[i] is the
// cost of the edge nodes[i] -> nodes[i+1].
func decodeOverlayPath(fwd, bwd *side, src, dst, meet chgraph.NodeIdx) (nodes []chgraph.NodeIdx, costs []uint32) {
	var lNodes []chgraph.NodeIdx
	var lCosts []uint32
	for cur := meet; cur != src; {
		p := fwd.pred[cur]
		lNodes = append(lNodes, cur)
		lCosts = append(lCosts, fwd.predCost[cur])
		cur = p
	}
	lNodes = append(lNodes, src)
	for i, j := 0, len(lNodes)-1; i < j; i, j = i+1, j-1 {
		lNodes[i], lNodes[j] = lNodes[j], lNodes[i]
	}
	for i, j := 0, len(lCosts)-1; i < j; i, j = i+1, j-1 {
		lCosts[i], lCosts[j] = lCosts[j], lCosts[i]
	}

	var rNodes []chgraph.NodeIdx
	var rCosts []uint32
	rNodes = append(rNodes, meet)
	for cur := meet; cur != dst; {
		c := bwd.predCost[cur]
		next := bwd.pred[cur]
		rCosts = append(rCosts, c)
		rNodes = append(rNodes, next)
		cur = next
	}

	nodes = append(lNodes, rNodes[1:]...)
	costs = append(lCosts, rCosts...)
	return nodes, costs
}

// unpack expands every overlay-level hop into the original edges it
// represents, recursively resolving shortcuts via the cost-keyed index
// until only original graph edges remain.
func (q *CHQuery) unpack(nodes []chgraph.NodeIdx, costs []uint32) []chgraph.NodeIdx {
	if len(nodes) == 0 {
		return nodes
	}
	full := []chgraph.NodeIdx{nodes[0]}
	for i := 0; i < len(costs); i++ {
		full = q.expand(full, nodes[i], nodes[i+1], costs[i])
	}
	return full
}

// expand appends the path from u to w (exclusive of u) to full. If the
// edge u->w at the given cost matches a known shortcut, it recurses
// through the shortcut's via node; otherwise it's an original edge and
// w is appended directly.
func (q *CHQuery) expand(full []chgraph.NodeIdx, u, w chgraph.NodeIdx, cost uint32) []chgraph.NodeIdx {
	sc, isShortcut := q.byKey[shortcutKey{u, w, cost}]
	if !isShortcut {
		return append(full, w)
	}
	full = q.expand(full, u, sc.Via, sc.CostUVia)
	full = q.expand(full, sc.Via, w, sc.CostViaW)
	return full
}
