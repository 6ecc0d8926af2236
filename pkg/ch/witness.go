package ch

import (
	"chway/pkg/chgraph"
	"chway/pkg/dijkstra"
)

// maxSettled caps the number of heap entries a single witness search is
// allowed to push (it is the search's heapLimit), bounding the work a
// single contraction can cost regardless of the builder's current hop
// limit.
const maxSettled = 500

// neededShortcut is one (predecessor, successor) pair for which no
// witness path was found, so a shortcut through the contracted node is
// necessary.
type neededShortcut struct {
	from     chgraph.NodeIdx
	to       chgraph.NodeIdx
	predCost uint32 // cost of from -> v
	succCost uint32 // cost of v -> to
}

// findShortcuts determines, for the node v about to be contracted,
// which (predecessor, successor) pairs need a shortcut inserted. It
// runs one bounded witness search per predecessor u: a search from u
// that is forbidden from passing through v, bounded by the cost of the
// most expensive path through v to any successor. A successor that is
// not reached, or is reached only at a higher cost than the path
// through v, has no witness and gets a shortcut.
//
// This replaces the per-(in,out)-pair witness search with one search
// per incoming neighbor, the same batching the asymmetric witness
// search this package is grounded on relies on: a single run finds
// witnesses to every successor at once instead of O(|in|*|out|) runs.
func (b *builder) findShortcuts(v chgraph.NodeIdx) []neededShortcut {
	preds := b.adj[v].bwd
	succs := b.adj[v].fwd
	if len(succs) == 0 || len(preds) == 0 {
		return nil
	}

	var maxSuccCost uint32
	for _, s := range succs {
		if s.Cost > maxSuccCost {
			maxSuccCost = s.Cost
		}
	}

	var out []neededShortcut
	for _, pred := range preds {
		u := pred.To
		if u == v {
			continue
		}
		fromCost := pred.Cost
		costLimit := fromCost + maxSuccCost + 1

		s := dijkstra.New[chgraph.NodeIdx](costLimit, maxSettled, b.hopLimit)
		s.AddSource(u, 0)
		for {
			cur, cost, hop, ok := s.Next()
			if !ok {
				break
			}
			for _, e := range b.adj[cur].fwd {
				if e.To == v {
					continue // never route a witness through the contraction candidate
				}
				s.Update(cur, cost, hop, e.To, e.Cost)
			}
		}

		for _, succ := range succs {
			w := succ.To
			if w == u {
				continue
			}
			needCost := fromCost + succ.Cost
			witnessCost, reached := s.Cost(w)
			if reached && witnessCost <= needCost {
				continue // witness exists, no shortcut needed
			}
			out = append(out, neededShortcut{from: u, to: w, predCost: fromCost, succCost: succ.Cost})
		}
	}
	return out
}
