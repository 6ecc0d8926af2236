package chquery

import (
	"chway/pkg/artifact"
	"chway/pkg/ch"
	"chway/pkg/chgraph"
)

// FromArtifact reconstructs the upward-only overlay a query needs from a
// loaded CHArtifact plus the original graph it was built from. This is
// the load path cmd/ch-search and cmd/ch-server use: preprocessing happens
// once in cmd/ch-build and its output is reloaded from disk for every
// later query process, rather than recontracting on every run.
func FromArtifact(art *artifact.CHArtifact, g *chgraph.IndexedGraph) *Overlay {
	n := art.NumNodes
	o := &Overlay{
		NumNodes:   n,
		Rank:       art.Rank,
		Shortcuts:  art.Shortcuts,
		ForwardUp:  make([][]ch.Upward, n),
		BackwardUp: make([][]ch.Upward, n),
	}

	for u := chgraph.NodeIdx(0); u < n; u++ {
		for _, e := range g.EdgesFrom(u) {
			switch e.Dir() {
			case chgraph.DirForward:
				if o.Rank[e.To] > o.Rank[u] {
					o.ForwardUp[u] = append(o.ForwardUp[u], ch.Upward{To: e.To, Cost: e.Cost()})
				}
			case chgraph.DirBackward:
				if o.Rank[e.To] > o.Rank[u] {
					o.BackwardUp[u] = append(o.BackwardUp[u], ch.Upward{To: e.To, Cost: e.Cost()})
				}
			}
		}
	}
	for _, sc := range art.Shortcuts {
		cost := sc.Cost()
		if o.Rank[sc.W] > o.Rank[sc.U] {
			o.ForwardUp[sc.U] = append(o.ForwardUp[sc.U], ch.Upward{To: sc.W, Cost: cost})
		}
		if o.Rank[sc.U] > o.Rank[sc.W] {
			o.BackwardUp[sc.W] = append(o.BackwardUp[sc.W], ch.Upward{To: sc.U, Cost: cost})
		}
	}

	return o
}

// NewFromArtifact builds a query engine directly from a loaded artifact
// and the graph it overlays, without the caller needing to construct an
// Overlay by hand.
func NewFromArtifact(art *artifact.CHArtifact, g *chgraph.IndexedGraph) *CHQuery {
	return New(FromArtifact(art, g))
}
