package api

import (
	"context"
	"errors"

	"chway/pkg/chgraph"
	"chway/pkg/chquery"
	"chway/pkg/geo"
	"chway/pkg/snap"
)

// ErrNoRoute is returned when source and destination are both
// successfully snapped to the network but no path connects them.
var ErrNoRoute = errors.New("api: no route found")

// ErrPointTooFar is re-exported from pkg/snap so callers of this
// package never need to import snap just to check errors.Is.
var ErrPointTooFar = snap.ErrPointTooFar

// LatLng is a WGS84 coordinate pair.
type LatLng struct {
	Lat, Lng float64
}

// Segment is one hop of a route over the original (unpacked) graph.
type Segment struct {
	DistanceMeters float64
	Geometry       []LatLng
}

// RouteResult is the outcome of a successful Route call.
type RouteResult struct {
	TotalDistanceMeters float64
	Segments            []Segment
}

// Router answers routing queries. Handlers depends on this interface,
// not on CHRouter directly, so handlers_test.go can substitute a mock.
type Router interface {
	Route(ctx context.Context, start, end LatLng) (*RouteResult, error)
}

// NodeCoords supplies a node's coordinates by index.
type NodeCoords func(n chgraph.NodeIdx) (lat, lng float64)

// CHRouter answers routing queries against a contraction hierarchy: it
// snaps both endpoints to the nearest road node, runs a bidirectional
// CH search, and reprojects the unpacked node path back into
// lat/lng segments.
type CHRouter struct {
	query  *chquery.CHQuery
	index  *snap.Index
	coords NodeCoords
}

// NewCHRouter builds a Router over a loaded contraction hierarchy.
func NewCHRouter(query *chquery.CHQuery, index *snap.Index, coords NodeCoords) *CHRouter {
	return &CHRouter{query: query, index: index, coords: coords}
}

func (cr *CHRouter) Route(ctx context.Context, start, end LatLng) (*RouteResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	srcSnap, err := cr.index.Nearest(start.Lat, start.Lng)
	if err != nil {
		return nil, err
	}
	dstSnap, err := cr.index.Nearest(end.Lat, end.Lng)
	if err != nil {
		return nil, err
	}

	path, cost, ok := cr.query.Search(srcSnap.Node, dstSnap.Node)
	if !ok {
		return nil, ErrNoRoute
	}

	result := &RouteResult{TotalDistanceMeters: float64(cost) / 1000.0}
	for i := 0; i+1 < len(path); i++ {
		fromLat, fromLng := cr.coords(path[i])
		toLat, toLng := cr.coords(path[i+1])
		result.Segments = append(result.Segments, Segment{
			DistanceMeters: geo.Haversine(fromLat, fromLng, toLat, toLng),
			Geometry:       []LatLng{{Lat: fromLat, Lng: fromLng}, {Lat: toLat, Lng: toLng}},
		})
	}
	return result, nil
}
