// Package network loads a routable graph from OpenStreetMap PBF data:
// a two-pass PBF scan collecting accessible ways and their node
// coordinates, compaction into a dense node index space, and largest
// weakly-connected-component extraction so preprocessing never has to
// deal with the many tiny disconnected islands a raw extract contains.
package network

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"sort"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"

	"chway/pkg/chgraph"
	"chway/pkg/geo"
)

// BBox filters loaded edges to a geographic bounding box. The zero
// value disables filtering.
type BBox struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

func (b BBox) isZero() bool {
	return b == BBox{}
}

func (b BBox) contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// Options configures a network load.
type Options struct {
	BBox BBox
}

// accessPredicate decides whether a way is usable by this network's
// traffic mode.
type accessPredicate func(tags osm.Tags) bool

// directionFunc decides which direction(s) of a way are traversable.
type directionFunc func(tags osm.Tags) (forward, backward bool)

// carHighways lists highway tag values accessible by car.
var carHighways = map[string]bool{
	"motorway": true, "motorway_link": true,
	"trunk": true, "trunk_link": true,
	"primary": true, "primary_link": true,
	"secondary": true, "secondary_link": true,
	"tertiary": true, "tertiary_link": true,
	"unclassified":  true,
	"residential":   true,
	"living_street": true,
	"service":       true,
}

func carAccessible(tags osm.Tags) bool {
	if !carHighways[tags.Find("highway")] {
		return false
	}
	if tags.Find("area") == "yes" {
		return false
	}
	access := tags.Find("access")
	if access == "no" || access == "private" {
		return false
	}
	if tags.Find("motor_vehicle") == "no" {
		return false
	}
	return true
}

func carDirections(tags osm.Tags) (forward, backward bool) {
	forward, backward = true, true
	hw := tags.Find("highway")
	if hw == "motorway" || hw == "motorway_link" || tags.Find("junction") == "roundabout" {
		backward = false
	}
	switch tags.Find("oneway") {
	case "yes", "true", "1":
		forward, backward = true, false
	case "-1", "reverse":
		forward, backward = false, true
	case "no":
		forward, backward = true, true
	case "reversible":
		forward, backward = false, false
	}
	return forward, backward
}

// walkHighways is broader than carHighways: footways, paths, and
// pedestrian-only infrastructure that a car network excludes are all
// fair game for a walking network. Grounded on the original
// implementation's separate foot-traffic network, which the distilled
// specification only named in passing.
var walkHighways = map[string]bool{
	"motorway": false, "motorway_link": false, // explicit exclusion, cars only
	"trunk": true, "trunk_link": true,
	"primary": true, "primary_link": true,
	"secondary": true, "secondary_link": true,
	"tertiary": true, "tertiary_link": true,
	"unclassified":  true,
	"residential":   true,
	"living_street": true,
	"service":       true,
	"pedestrian":    true,
	"footway":       true,
	"path":          true,
	"steps":         true,
	"track":         true,
}

func walkAccessible(tags osm.Tags) bool {
	hw := tags.Find("highway")
	allowed, known := walkHighways[hw]
	if !known || !allowed {
		return false
	}
	if tags.Find("foot") == "no" {
		return false
	}
	return true
}

// walkDirections ignores vehicle oneway restrictions: a pedestrian can
// walk either way down a one-way street unless a foot-specific
// restriction says otherwise.
func walkDirections(tags osm.Tags) (forward, backward bool) {
	if tags.Find("oneway:foot") == "yes" {
		return true, false
	}
	if tags.Find("oneway:foot") == "-1" {
		return false, true
	}
	return true, true
}

// wayInfo is collected in pass 1, before node coordinates are known.
type wayInfo struct {
	nodeIDs  []osm.NodeID
	forward  bool
	backward bool
}

// LoadRoad parses a car-accessible network from an OSM PBF file.
func LoadRoad(ctx context.Context, rs io.ReadSeeker, opts Options) (*chgraph.BuildInput, error) {
	return load(ctx, rs, opts, carAccessible, carDirections)
}

// LoadWalk parses a pedestrian-accessible network from an OSM PBF file.
func LoadWalk(ctx context.Context, rs io.ReadSeeker, opts Options) (*chgraph.BuildInput, error) {
	return load(ctx, rs, opts, walkAccessible, walkDirections)
}

func load(ctx context.Context, rs io.ReadSeeker, opts Options, accessible accessPredicate, dirFn directionFunc) (*chgraph.BuildInput, error) {
	ways, referenced, err := scanWays(ctx, rs, accessible, dirFn)
	if err != nil {
		return nil, err
	}
	log.Printf("network: pass 1 complete: %d ways, %d referenced nodes", len(ways), len(referenced))

	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("network: seek for pass 2: %w", err)
	}
	nodeLat, nodeLon, err := scanNodes(ctx, rs, referenced)
	if err != nil {
		return nil, err
	}
	log.Printf("network: pass 2 complete: %d node coordinates collected", len(nodeLat))

	input := compact(ways, nodeLat, nodeLon, opts.BBox)
	log.Printf("network: compacted to %d nodes before component extraction", input.NumNodes)

	reduced := LargestComponent(input)
	log.Printf("network: largest component has %d/%d nodes", reduced.NumNodes, input.NumNodes)
	return reduced, nil
}

func scanWays(ctx context.Context, rs io.ReadSeeker, accessible accessPredicate, dirFn directionFunc) ([]wayInfo, map[osm.NodeID]struct{}, error) {
	referenced := make(map[osm.NodeID]struct{})
	var ways []wayInfo

	scanner := osmpbf.New(ctx, rs, 1)
	scanner.SkipNodes = true
	scanner.SkipRelations = true
	defer scanner.Close()

	for scanner.Scan() {
		w, ok := scanner.Object().(*osm.Way)
		if !ok || !accessible(w.Tags) || len(w.Nodes) < 2 {
			continue
		}
		fwd, bwd := dirFn(w.Tags)
		if !fwd && !bwd {
			continue
		}
		nodeIDs := make([]osm.NodeID, len(w.Nodes))
		for i, wn := range w.Nodes {
			nodeIDs[i] = wn.ID
			referenced[wn.ID] = struct{}{}
		}
		ways = append(ways, wayInfo{nodeIDs: nodeIDs, forward: fwd, backward: bwd})
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("network: pass 1 (ways): %w", err)
	}
	return ways, referenced, nil
}

func scanNodes(ctx context.Context, rs io.ReadSeeker, referenced map[osm.NodeID]struct{}) (map[osm.NodeID]float64, map[osm.NodeID]float64, error) {
	nodeLat := make(map[osm.NodeID]float64, len(referenced))
	nodeLon := make(map[osm.NodeID]float64, len(referenced))

	scanner := osmpbf.New(ctx, rs, 1)
	scanner.SkipWays = true
	scanner.SkipRelations = true
	defer scanner.Close()

	for scanner.Scan() {
		n, ok := scanner.Object().(*osm.Node)
		if !ok {
			continue
		}
		if _, needed := referenced[n.ID]; !needed {
			continue
		}
		nodeLat[n.ID] = n.Lat
		nodeLon[n.ID] = n.Lon
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("network: pass 2 (nodes): %w", err)
	}
	return nodeLat, nodeLon, nil
}

// compact assigns a dense NodeIdx to every referenced node actually
// used by a kept edge and builds the final RawEdge list.
func compact(ways []wayInfo, nodeLat, nodeLon map[osm.NodeID]float64, bbox BBox) *chgraph.BuildInput {
	nodeSet := make(map[osm.NodeID]chgraph.NodeIdx)
	var lats, lons []float64

	addNode := func(id osm.NodeID) chgraph.NodeIdx {
		if idx, ok := nodeSet[id]; ok {
			return idx
		}
		idx := chgraph.NodeIdx(len(lats))
		nodeSet[id] = idx
		lats = append(lats, nodeLat[id])
		lons = append(lons, nodeLon[id])
		return idx
	}

	var edges []chgraph.RawEdge
	useBBox := !bbox.isZero()

	for _, w := range ways {
		for i := 0; i+1 < len(w.nodeIDs); i++ {
			fromID, toID := w.nodeIDs[i], w.nodeIDs[i+1]
			fromLat, fromOk := nodeLat[fromID]
			fromLon := nodeLon[fromID]
			toLat, toOk := nodeLat[toID]
			toLon := nodeLon[toID]
			if !fromOk || !toOk {
				continue
			}
			if useBBox && (!bbox.contains(fromLat, fromLon) || !bbox.contains(toLat, toLon)) {
				continue
			}

			distMM := uint32(math.Round(geo.Haversine(fromLat, fromLon, toLat, toLon) * 1000))
			if distMM == 0 {
				distMM = 1
			}

			from, to := addNode(fromID), addNode(toID)
			if w.forward {
				edges = append(edges, chgraph.RawEdge{From: from, To: to, Cost: distMM})
			}
			if w.backward {
				edges = append(edges, chgraph.RawEdge{From: to, To: from, Cost: distMM})
			}
		}
	}

	return &chgraph.BuildInput{
		NumNodes: chgraph.NodeIdx(len(lats)),
		Edges:    edges,
		NodeLat:  lats,
		NodeLon:  lons,
	}
}

// unionFind is a disjoint-set structure with path halving and union by
// rank, used to find the network's largest weakly-connected component.
type unionFind struct {
	parent []chgraph.NodeIdx
	rank   []byte
	size   []uint32
}

func newUnionFind(n chgraph.NodeIdx) *unionFind {
	uf := &unionFind{
		parent: make([]chgraph.NodeIdx, n),
		rank:   make([]byte, n),
		size:   make([]uint32, n),
	}
	for i := range uf.parent {
		uf.parent[i] = chgraph.NodeIdx(i)
		uf.size[i] = 1
	}
	return uf
}

func (uf *unionFind) find(x chgraph.NodeIdx) chgraph.NodeIdx {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(x, y chgraph.NodeIdx) {
	rx, ry := uf.find(x), uf.find(y)
	if rx == ry {
		return
	}
	if uf.rank[rx] < uf.rank[ry] {
		rx, ry = ry, rx
	}
	uf.parent[ry] = rx
	uf.size[rx] += uf.size[ry]
	if uf.rank[rx] == uf.rank[ry] {
		uf.rank[rx]++
	}
}

// LargestComponent returns a BuildInput containing only the nodes and
// edges of input's largest weakly-connected component (directed edges
// treated as undirected for the purpose of connectivity).
func LargestComponent(input *chgraph.BuildInput) *chgraph.BuildInput {
	n := input.NumNodes
	if n == 0 {
		return input
	}

	uf := newUnionFind(n)
	for _, e := range input.Edges {
		uf.union(e.From, e.To)
	}

	bestRoot, bestSize := chgraph.NodeIdx(0), uint32(0)
	for i := chgraph.NodeIdx(0); i < n; i++ {
		root := uf.find(i)
		if uf.size[root] > bestSize {
			bestRoot, bestSize = root, uf.size[root]
		}
	}

	oldToNew := make(map[chgraph.NodeIdx]chgraph.NodeIdx, bestSize)
	lats := make([]float64, 0, bestSize)
	lons := make([]float64, 0, bestSize)
	for i := chgraph.NodeIdx(0); i < n; i++ {
		if uf.find(i) != bestRoot {
			continue
		}
		oldToNew[i] = chgraph.NodeIdx(len(lats))
		lats = append(lats, input.NodeLat[i])
		lons = append(lons, input.NodeLon[i])
	}

	edges := make([]chgraph.RawEdge, 0, len(input.Edges))
	for _, e := range input.Edges {
		newFrom, ok1 := oldToNew[e.From]
		newTo, ok2 := oldToNew[e.To]
		if ok1 && ok2 {
			edges = append(edges, chgraph.RawEdge{From: newFrom, To: newTo, Cost: e.Cost})
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})

	return &chgraph.BuildInput{
		NumNodes: chgraph.NodeIdx(len(lats)),
		Edges:    edges,
		NodeLat:  lats,
		NodeLon:  lons,
	}
}
