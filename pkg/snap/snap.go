// Package snap turns a raw (lat, lng) query endpoint into a graph node
// by finding the nearest road segment and reporting which endpoint of
// that segment to route from.
package snap

import (
	"errors"
	"math"

	"github.com/paulmach/orb"
	"github.com/tidwall/geoindex"
	"github.com/tidwall/rtree"

	"chway/pkg/chgraph"
	"chway/pkg/geo"
)

// ErrPointTooFar is returned when the query point has no road segment
// within maxSnapDistMeters.
var ErrPointTooFar = errors.New("snap: point too far from any road")

const maxSnapDistMeters = 500.0

// Result is a point snapped to the nearer endpoint of a road segment.
type Result struct {
	Node chgraph.NodeIdx
	Dist float64 // meters from the query point to Node
}

// segment is one indexed road edge: the index stores both endpoints'
// coordinates so Nearby's box-distance bound and the exact
// point-to-segment projection can both be computed without a second
// lookup into the graph.
type segment struct {
	u, v     chgraph.NodeIdx
	uPt, vPt orb.Point
}

// Index is an R-tree over every road segment's bounding box, used to
// answer nearest-segment queries in better than linear time. Built once
// per loaded network and shared across queries.
type Index struct {
	tree *rtree.RTreeG[segment]
}

// NodePoint supplies the coordinates of a node, keyed by its index —
// the shape pkg/network's loader already produces.
type NodePoint func(n chgraph.NodeIdx) orb.Point

// Build indexes every Forward edge of g. Edges are taken as undirected
// for snapping purposes: a one-way street is still a place to stand.
func Build(g *chgraph.IndexedGraph, coord NodePoint) *Index {
	tree := &rtree.RTreeG[segment]{}
	for u := chgraph.NodeIdx(0); u < g.NumNodes; u++ {
		uPt := coord(u)
		for _, e := range g.EdgesFrom(u) {
			if e.Dir() != chgraph.DirForward {
				continue
			}
			vPt := coord(e.To)
			min, max := bbox(uPt, vPt)
			tree.Insert(min, max, segment{u: u, v: e.To, uPt: uPt, vPt: vPt})
		}
	}
	return &Index{tree: tree}
}

func bbox(a, b orb.Point) (min, max [2]float64) {
	min = [2]float64{math.Min(a[0], b[0]), math.Min(a[1], b[1])}
	max = [2]float64{math.Max(a[0], b[0]), math.Max(a[1], b[1])}
	return min, max
}

// geoindexPoint is geoindex's coordinate type, the argument type of
// nearestPoint; Nearest converts its (lat, lng) query into it.
type geoindexPoint = geoindex.Point

// Nearest returns the closer endpoint of the nearest indexed segment to
// (lat, lng), or ErrPointTooFar if nothing is within range.
func (idx *Index) Nearest(lat, lng float64) (Result, error) {
	target := geo.Point(lat, lng)
	return idx.nearestPoint(geoindexPoint(target))
}

func (idx *Index) nearestPoint(target geoindexPoint) (Result, error) {
	p := orb.Point(target)

	bestDist := math.Inf(1)
	var best Result
	found := false

	boxDist := func(min, max [2]float64, data segment, item bool) float64 {
		return boxPointDist(min, max, p)
	}

	idx.tree.Nearby(boxDist, func(min, max [2]float64, data segment, item bool) bool {
		lowerBound := boxPointDist(min, max, p)
		if found && lowerBound > bestDist {
			return false // every remaining candidate is farther than our best match
		}

		dist, ratio := geo.PointToSegmentDistPoints(p, data.uPt, data.vPt)
		if dist < bestDist {
			bestDist = dist
			found = true
			if ratio < 0.5 {
				best = Result{Node: data.u, Dist: geo.HaversinePoints(p, data.uPt)}
			} else {
				best = Result{Node: data.v, Dist: geo.HaversinePoints(p, data.vPt)}
			}
		}
		return true
	})

	if !found || bestDist > maxSnapDistMeters {
		return Result{}, ErrPointTooFar
	}
	return best, nil
}

// boxPointDist is the Euclidean distance in degree-space from p to the
// nearest point of the axis-aligned box [min, max]; used both as the
// Nearby priority function and as the early-exit lower bound.
func boxPointDist(min, max [2]float64, p orb.Point) float64 {
	dx := 0.0
	if p[0] < min[0] {
		dx = min[0] - p[0]
	} else if p[0] > max[0] {
		dx = p[0] - max[0]
	}
	dy := 0.0
	if p[1] < min[1] {
		dy = min[1] - p[1]
	} else if p[1] > max[1] {
		dy = p[1] - max[1]
	}
	return math.Sqrt(dx*dx + dy*dy)
}
