package network

import (
	"testing"

	"github.com/paulmach/osm"
	"github.com/stretchr/testify/require"

	"chway/pkg/chgraph"
)

func osmTags(kv map[string]string) osm.Tags {
	tags := make(osm.Tags, 0, len(kv))
	for k, v := range kv {
		tags = append(tags, osm.Tag{Key: k, Value: v})
	}
	return tags
}

func TestLargestComponentKeepsOnlyBiggestIsland(t *testing.T) {
	// Nodes 0-2 form a triangle; nodes 3-4 form a disconnected pair.
	input := &chgraph.BuildInput{
		NumNodes: 5,
		Edges: []chgraph.RawEdge{
			{From: 0, To: 1, Cost: 10},
			{From: 1, To: 2, Cost: 10},
			{From: 2, To: 0, Cost: 10},
			{From: 3, To: 4, Cost: 10},
		},
		NodeLat: []float64{1, 2, 3, 4, 5},
		NodeLon: []float64{1, 2, 3, 4, 5},
	}

	out := LargestComponent(input)

	require.EqualValues(t, 3, out.NumNodes)
	require.Len(t, out.Edges, 3)
	for _, e := range out.Edges {
		require.Less(t, int(e.From), 3)
		require.Less(t, int(e.To), 3)
	}
}

func TestLargestComponentEmptyInput(t *testing.T) {
	input := &chgraph.BuildInput{}
	out := LargestComponent(input)
	require.EqualValues(t, 0, out.NumNodes)
}

func TestBBoxContains(t *testing.T) {
	b := BBox{MinLat: 1, MaxLat: 2, MinLon: 100, MaxLon: 101}
	require.True(t, b.contains(1.5, 100.5))
	require.False(t, b.contains(3, 100.5))
	require.False(t, BBox{}.contains(1, 1))
	require.True(t, BBox{}.isZero())
	require.False(t, b.isZero())
}

func TestCarDirections(t *testing.T) {
	fwd, bwd := carDirections(osmTags(map[string]string{"highway": "motorway"}))
	require.True(t, fwd)
	require.False(t, bwd)

	fwd, bwd = carDirections(osmTags(map[string]string{"oneway": "-1"}))
	require.False(t, fwd)
	require.True(t, bwd)
}

func TestWalkIgnoresVehicleOneway(t *testing.T) {
	fwd, bwd := walkDirections(osmTags(map[string]string{"oneway": "yes"}))
	require.True(t, fwd)
	require.True(t, bwd)

	fwd, bwd = walkDirections(osmTags(map[string]string{"oneway:foot": "yes"}))
	require.True(t, fwd)
	require.False(t, bwd)
}

func TestWalkAccessibleBroaderThanCar(t *testing.T) {
	require.True(t, walkAccessible(osmTags(map[string]string{"highway": "footway"})))
	require.False(t, carAccessible(osmTags(map[string]string{"highway": "footway"})))
	require.False(t, walkAccessible(osmTags(map[string]string{"highway": "motorway"})))
}
