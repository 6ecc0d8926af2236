package snap

import (
	"testing"

	"github.com/paulmach/orb"

	"chway/pkg/chgraph"
	"chway/pkg/geo"
)

// a small line of three nodes running north near the equator, 1km apart.
func lineGraph() (*chgraph.IndexedGraph, []orb.Point) {
	coords := []orb.Point{
		geo.Point(1.3000, 103.8000),
		geo.Point(1.3090, 103.8000), // ~1km north
		geo.Point(1.3180, 103.8000), // ~2km north
	}
	edges := []chgraph.RawEdge{
		{From: 0, To: 1, Cost: 1000},
		{From: 1, To: 0, Cost: 1000},
		{From: 1, To: 2, Cost: 1000},
		{From: 2, To: 1, Cost: 1000},
	}
	return chgraph.New(3, edges), coords
}

func TestNearestSnapsToCloserEndpoint(t *testing.T) {
	g, coords := lineGraph()
	idx := Build(g, func(n chgraph.NodeIdx) orb.Point { return coords[n] })

	res, err := idx.Nearest(1.3005, 103.8000) // just north of node 0
	if err != nil {
		t.Fatalf("Nearest: %v", err)
	}
	if res.Node != 0 {
		t.Errorf("Nearest() node = %d, want 0", res.Node)
	}
}

func TestNearestTooFar(t *testing.T) {
	g, coords := lineGraph()
	idx := Build(g, func(n chgraph.NodeIdx) orb.Point { return coords[n] })

	if _, err := idx.Nearest(10.0, 103.8000); err != ErrPointTooFar {
		t.Errorf("Nearest() err = %v, want ErrPointTooFar", err)
	}
}
