// Command ch-server loads a network and its prebuilt contraction
// hierarchy artifact once at startup and serves routing queries over
// HTTP until interrupted.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/paulmach/orb"
	"github.com/spf13/cobra"

	"chway/pkg/api"
	"chway/pkg/artifact"
	"chway/pkg/chgraph"
	"chway/pkg/chquery"
	"chway/pkg/geo"
	"chway/pkg/network"
	"chway/pkg/snap"
)

var (
	inputPath   string
	artifactDir string
	networkTy   string
	addr        string
	corsOrigin  string
)

func main() {
	root := &cobra.Command{
		Use:   "ch-server",
		Short: "Serve routing queries over HTTP against a prebuilt contraction hierarchy",
		RunE:  run,
	}
	root.Flags().StringVar(&inputPath, "input", "", "Path to the .osm.pbf file the artifact was built from")
	root.Flags().StringVar(&artifactDir, "artifact", "chway-artifact", "Directory containing order.csv/shortcuts.csv")
	root.Flags().StringVar(&networkTy, "ty", "road", "Network type: road or walk")
	root.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	root.Flags().StringVar(&corsOrigin, "cors-origin", "", "Value for Access-Control-Allow-Origin, empty disables CORS headers")
	root.MarkFlagRequired("input")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	f, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("ch-server: open input: %w", err)
	}
	defer f.Close()

	loadStart := time.Now()
	var input *chgraph.BuildInput
	switch networkTy {
	case "road":
		input, err = network.LoadRoad(context.Background(), f, network.Options{})
	case "walk":
		input, err = network.LoadWalk(context.Background(), f, network.Options{})
	default:
		return fmt.Errorf("ch-server: unknown network type %q (want road or walk)", networkTy)
	}
	if err != nil {
		return fmt.Errorf("ch-server: load network: %w", err)
	}
	g := input.Graph()

	art, err := artifact.Load(artifactDir)
	if err != nil {
		return fmt.Errorf("ch-server: load artifact: %w", err)
	}
	if art.NumNodes != input.NumNodes {
		return fmt.Errorf("ch-server: artifact has %d nodes but network has %d; did --input change since ch-build ran?", art.NumNodes, input.NumNodes)
	}

	index := snap.Build(g, func(n chgraph.NodeIdx) orb.Point {
		return geo.Point(input.NodeLat[n], input.NodeLon[n])
	})
	query := chquery.NewFromArtifact(art, g)
	router := api.NewCHRouter(query, index, func(n chgraph.NodeIdx) (lat, lng float64) {
		return input.NodeLat[n], input.NodeLon[n]
	})

	// The loader's intermediate maps (wayInfo, per-node coordinate
	// maps) are no longer reachable once the graph and index are
	// built; force a collection now rather than let the server's first
	// requests pay for it under load.
	runtime.GC()
	debug.FreeOSMemory()

	log.Printf("ch-server: ready in %s: %d nodes, %d edges", time.Since(loadStart).Round(time.Millisecond), input.NumNodes, len(input.Edges))

	var fwd, bwd int
	for n := chgraph.NodeIdx(0); n < input.NumNodes; n++ {
		for _, e := range g.EdgesFrom(n) {
			if e.Dir() == chgraph.DirForward {
				fwd++
			} else {
				bwd++
			}
		}
	}

	cfg := api.DefaultConfig(addr)
	cfg.CORSOrigin = corsOrigin
	handlers := api.NewHandlers(router, api.StatsResponse{
		NumNodes:    uint32(input.NumNodes),
		NumFwdEdges: fwd,
		NumBwdEdges: bwd,
	})
	srv := api.NewServer(cfg, handlers)
	return api.ListenAndServe(srv)
}
