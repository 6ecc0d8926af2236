// Command ch-stats renders a histogram of recorded query latencies for
// the most recent (or a named) preprocessing run, reading from an
// internal/runstore database: cmd/ch-build records runs in it, and the
// latencies are the queries recorded against a run with
// runstore.Store.RecordQuery.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"chway/internal/runstore"
)

var (
	runDBPath string
	runID     string
	outPath   string
	numBins   int
)

func main() {
	root := &cobra.Command{
		Use:   "ch-stats",
		Short: "Plot query latency distribution for a recorded preprocessing run",
		RunE:  run,
	}
	root.Flags().StringVar(&runDBPath, "run-db", "", "SQLite run database (as written by ch-build --run-db)")
	root.Flags().StringVar(&runID, "run", "", "Run ID to plot, defaults to the most recently recorded run")
	root.Flags().StringVar(&outPath, "out", "latency.png", "Output image path")
	root.Flags().IntVar(&numBins, "bins", 30, "Number of histogram bins")
	root.MarkFlagRequired("run-db")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	store, err := runstore.Open(runDBPath)
	if err != nil {
		return fmt.Errorf("ch-stats: open run database: %w", err)
	}
	defer store.Close()

	targetRun := runID
	if targetRun == "" {
		latest, err := store.LatestRun()
		if err != nil {
			return fmt.Errorf("ch-stats: find latest run: %w", err)
		}
		if latest == nil {
			return fmt.Errorf("ch-stats: no runs recorded in %s yet", runDBPath)
		}
		targetRun = latest.ID
		fmt.Printf("ch-stats: plotting latest run %s (%s, %d nodes)\n", latest.ID, latest.NetworkPath, latest.NumNodes)
	}

	latencies, err := store.QueryLatencies(targetRun)
	if err != nil {
		return fmt.Errorf("ch-stats: load latencies: %w", err)
	}
	if len(latencies) == 0 {
		return fmt.Errorf("ch-stats: run %s has no recorded queries", targetRun)
	}

	values := make(plotter.Values, len(latencies))
	for i, v := range latencies {
		values[i] = float64(v)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Query latency distribution (run %s)", targetRun)
	p.X.Label.Text = "Elapsed time (microseconds)"
	p.Y.Label.Text = "Count"
	p.Add(plotter.NewGrid())

	hist, err := plotter.NewHist(values, numBins)
	if err != nil {
		return fmt.Errorf("ch-stats: build histogram: %w", err)
	}
	p.Add(hist)

	if err := p.Save(16*vg.Centimeter, 10*vg.Centimeter, outPath); err != nil {
		return fmt.Errorf("ch-stats: save plot: %w", err)
	}
	fmt.Printf("ch-stats: wrote %s (%d samples, %d bins)\n", outPath, len(latencies), numBins)
	return nil
}
