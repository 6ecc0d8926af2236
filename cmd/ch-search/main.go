// Command ch-search loads a network and its prebuilt contraction
// hierarchy artifact, snaps two coordinates onto the network, and runs
// a single bidirectional query, printing the path's hop count, cost,
// and how long the search took.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/paulmach/orb"
	"github.com/spf13/cobra"

	"chway/pkg/artifact"
	"chway/pkg/chgraph"
	"chway/pkg/chquery"
	"chway/pkg/geo"
	"chway/pkg/network"
	"chway/pkg/snap"
)

var (
	inputPath    string
	artifactDir  string
	networkTy    string
	fromLat      float64
	fromLng      float64
	toLat        float64
	toLng        float64
)

func main() {
	root := &cobra.Command{
		Use:   "ch-search",
		Short: "Run a single shortest-path query against a prebuilt contraction hierarchy",
		RunE:  run,
	}
	root.Flags().StringVar(&inputPath, "input", "", "Path to the .osm.pbf file the artifact was built from")
	root.Flags().StringVar(&artifactDir, "artifact", "chway-artifact", "Directory containing order.csv/shortcuts.csv")
	root.Flags().StringVar(&networkTy, "ty", "road", "Network type: road or walk")
	root.Flags().Float64Var(&fromLat, "from-lat", 0, "Start latitude")
	root.Flags().Float64Var(&fromLng, "from-lng", 0, "Start longitude")
	root.Flags().Float64Var(&toLat, "to-lat", 0, "End latitude")
	root.Flags().Float64Var(&toLng, "to-lng", 0, "End longitude")
	root.MarkFlagRequired("input")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	f, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("ch-search: open input: %w", err)
	}
	defer f.Close()

	var input *chgraph.BuildInput
	switch networkTy {
	case "road":
		input, err = network.LoadRoad(context.Background(), f, network.Options{})
	case "walk":
		input, err = network.LoadWalk(context.Background(), f, network.Options{})
	default:
		return fmt.Errorf("ch-search: unknown network type %q (want road or walk)", networkTy)
	}
	if err != nil {
		return fmt.Errorf("ch-search: load network: %w", err)
	}
	g := input.Graph()

	art, err := artifact.Load(artifactDir)
	if err != nil {
		return fmt.Errorf("ch-search: load artifact: %w", err)
	}
	if art.NumNodes != input.NumNodes {
		return fmt.Errorf("ch-search: artifact has %d nodes but network has %d; did --input change since ch-build ran?", art.NumNodes, input.NumNodes)
	}

	index := snap.Build(g, func(n chgraph.NodeIdx) orb.Point {
		return geo.Point(input.NodeLat[n], input.NodeLon[n])
	})

	startRes, err := index.Nearest(fromLat, fromLng)
	if err != nil {
		return fmt.Errorf("ch-search: snap start point: %w", err)
	}
	endRes, err := index.Nearest(toLat, toLng)
	if err != nil {
		return fmt.Errorf("ch-search: snap end point: %w", err)
	}

	query := chquery.NewFromArtifact(art, g)

	searchStart := time.Now()
	path, cost, ok := query.Search(startRes.Node, endRes.Node)
	elapsed := time.Since(searchStart)

	if !ok {
		fmt.Println("ch-search: no route found")
		return nil
	}

	fmt.Printf("ch-search: %d hops, cost %d (%.2f km), elapsed %s\n",
		len(path)-1, cost, float64(cost)/1_000_000.0, elapsed)
	return nil
}
