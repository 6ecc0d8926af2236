// Command ch-build loads a road or pedestrian network from an OSM PBF
// extract, runs contraction hierarchy preprocessing, and writes the
// resulting artifact (order.csv, shortcuts.csv) to an output directory.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"chway/internal/runstore"
	"chway/pkg/artifact"
	"chway/pkg/ch"
	"chway/pkg/chgraph"
	"chway/pkg/network"
)

var (
	inputPath  string
	outputDir  string
	networkTy  string
	bboxFlag   string
	singapore  bool
	kl         bool
	runDBPath  string
)

func main() {
	root := &cobra.Command{
		Use:   "ch-build",
		Short: "Build a contraction hierarchy from an OSM PBF extract",
		RunE:  run,
	}
	root.Flags().StringVar(&inputPath, "input", "", "Path to .osm.pbf file")
	root.Flags().StringVar(&outputDir, "output", "chway-artifact", "Output directory for order.csv/shortcuts.csv")
	root.Flags().StringVar(&networkTy, "ty", "road", "Network type: road, walk, or shp (shp is unsupported)")
	root.Flags().StringVar(&bboxFlag, "bbox", "", "Bounding box filter: minLat,minLon,maxLat,maxLon")
	root.Flags().BoolVar(&singapore, "singapore", false, "Shortcut for the Singapore bounding box")
	root.Flags().BoolVar(&kl, "kl", false, "Shortcut for the Selangor + Kuala Lumpur bounding box")
	root.Flags().StringVar(&runDBPath, "run-db", "", "Optional SQLite database to record this run in, for cmd/ch-stats")
	root.MarkFlagRequired("input")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	start := time.Now()

	if networkTy == "shp" {
		return fmt.Errorf("ch-build: shapefile networks (--ty shp) are not supported: no shapefile-reading library is available")
	}
	if networkTy != "road" && networkTy != "walk" {
		return fmt.Errorf("ch-build: unknown network type %q (want road or walk)", networkTy)
	}

	opts, err := resolveOptions()
	if err != nil {
		return err
	}

	f, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("ch-build: open input: %w", err)
	}
	defer f.Close()

	fmt.Printf("ch-build: loading %s network from %s\n", networkTy, inputPath)
	var input *chgraph.BuildInput
	switch networkTy {
	case "road":
		input, err = network.LoadRoad(context.Background(), f, opts)
		if err != nil {
			return fmt.Errorf("ch-build: load road network: %w", err)
		}
	case "walk":
		input, err = network.LoadWalk(context.Background(), f, opts)
		if err != nil {
			return fmt.Errorf("ch-build: load walk network: %w", err)
		}
	}

	fmt.Printf("ch-build: %s nodes, %s edges after component extraction\n",
		humanize.Comma(int64(input.NumNodes)), humanize.Comma(int64(len(input.Edges))))

	g := input.Graph()

	buildStart := time.Now()
	result := ch.Build(g)
	buildDuration := time.Since(buildStart)
	fmt.Printf("ch-build: contraction done in %s: %s shortcuts\n",
		buildDuration.Round(time.Millisecond), humanize.Comma(int64(len(result.Shortcuts))))

	if err := artifact.Write(outputDir, artifact.FromResult(result)); err != nil {
		return fmt.Errorf("ch-build: write artifact: %w", err)
	}
	fmt.Printf("ch-build: wrote artifact to %s\n", outputDir)

	if runDBPath != "" {
		store, err := runstore.Open(runDBPath)
		if err != nil {
			return fmt.Errorf("ch-build: open run database: %w", err)
		}
		defer store.Close()
		if _, err := store.RecordRun(inputPath, uint32(input.NumNodes), len(input.Edges), len(result.Shortcuts), buildDuration); err != nil {
			return fmt.Errorf("ch-build: record run: %w", err)
		}
	}

	fmt.Printf("ch-build: done in %s\n", time.Since(start).Round(time.Second))
	return nil
}

func resolveOptions() (network.Options, error) {
	var opts network.Options
	switch {
	case kl:
		opts.BBox = network.BBox{MinLat: 2.75, MaxLat: 3.5, MinLon: 101.2, MaxLon: 102.0}
	case singapore:
		opts.BBox = network.BBox{MinLat: 1.15, MaxLat: 1.48, MinLon: 103.6, MaxLon: 104.1}
	case bboxFlag != "":
		var minLat, minLon, maxLat, maxLon float64
		if _, err := fmt.Sscanf(bboxFlag, "%f,%f,%f,%f", &minLat, &minLon, &maxLat, &maxLon); err != nil {
			return opts, fmt.Errorf("ch-build: invalid --bbox (want minLat,minLon,maxLat,maxLon): %w", err)
		}
		opts.BBox = network.BBox{MinLat: minLat, MaxLat: maxLat, MinLon: minLon, MaxLon: maxLon}
	}
	return opts, nil
}
