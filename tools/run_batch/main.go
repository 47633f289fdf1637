// Package main runs every scenario in a directory headless, collects
// per-run metrics and writes them to CSV and optionally a SQLite index.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/parcelworks/logisim/internal/core"
	"github.com/parcelworks/logisim/internal/persistence/rundb"
	"github.com/parcelworks/logisim/internal/risk"
	"github.com/parcelworks/logisim/internal/scenario"
	"github.com/parcelworks/logisim/internal/sim"
)

// Result stores the metrics of one scenario run.
type Result struct {
	Timestamp string
	GoVersion string
	Scenario  string
	GridSize  string
	Agents    int
	Packages  int
	Ticks     int
	Moves     int
	Blocks    int
	Delivered int
	Deadlocks int
	Yields    int
	Anomalies int
	Completed bool
	RuntimeMs float64
}

func runScenario(path string, scorer risk.Scorer) (*Result, error) {
	sc, err := scenario.Load(path)
	if err != nil {
		return nil, err
	}
	cfg := sc.ApplyTo(core.DefaultConfig())
	grid, agents, packages := sc.Build(cfg)
	ctrl := sim.NewController(grid, agents, packages, scorer, cfg)

	start := time.Now()
	ctrl.Run()
	elapsed := time.Since(start)

	delivered := 0
	for _, p := range packages {
		if p.State == core.Delivered {
			delivered++
		}
	}
	stats := ctrl.Stats()
	return &Result{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		GoVersion: runtime.Version(),
		Scenario:  sc.Name,
		GridSize:  fmt.Sprintf("%dx%d", cfg.Rows, cfg.Cols),
		Agents:    len(agents),
		Packages:  len(packages),
		Ticks:     ctrl.Tick(),
		Moves:     stats.Moves,
		Blocks:    stats.Blocks,
		Delivered: delivered,
		Deadlocks: stats.DeadlocksResolved,
		Yields:    stats.Yields,
		Anomalies: stats.Anomalies,
		Completed: delivered == len(packages),
		RuntimeMs: float64(elapsed.Microseconds()) / 1000.0,
	}, nil
}

func writeCSV(results []*Result, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"timestamp", "go_version", "scenario", "grid_size", "agents", "packages",
		"ticks", "moves", "blocks", "delivered", "deadlocks", "yields",
		"anomalies", "completed", "runtime_ms",
	}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, r := range results {
		row := []string{
			r.Timestamp, r.GoVersion, r.Scenario, r.GridSize,
			fmt.Sprintf("%d", r.Agents), fmt.Sprintf("%d", r.Packages),
			fmt.Sprintf("%d", r.Ticks), fmt.Sprintf("%d", r.Moves),
			fmt.Sprintf("%d", r.Blocks), fmt.Sprintf("%d", r.Delivered),
			fmt.Sprintf("%d", r.Deadlocks), fmt.Sprintf("%d", r.Yields),
			fmt.Sprintf("%d", r.Anomalies), fmt.Sprintf("%t", r.Completed),
			fmt.Sprintf("%.3f", r.RuntimeMs),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func printSummary(results []*Result) {
	completed := 0
	var totalTicks, totalDeadlocks int
	var totalMs float64
	for _, r := range results {
		if r.Completed {
			completed++
		}
		totalTicks += r.Ticks
		totalDeadlocks += r.Deadlocks
		totalMs += r.RuntimeMs
	}
	fmt.Println()
	fmt.Printf("=== Batch summary: %d scenarios ===\n", len(results))
	fmt.Printf("  completed:       %d/%d\n", completed, len(results))
	if len(results) > 0 {
		fmt.Printf("  avg ticks:       %.1f\n", float64(totalTicks)/float64(len(results)))
		fmt.Printf("  avg deadlocks:   %.1f\n", float64(totalDeadlocks)/float64(len(results)))
		fmt.Printf("  avg runtime:     %.1fms\n", totalMs/float64(len(results)))
	}
}

func main() {
	inputDir := flag.String("input", "testdata", "directory of scenario JSON files")
	csvPath := flag.String("csv", "batch_results.csv", "CSV output path")
	dbPath := flag.String("db", "", "optional SQLite run index path")
	riskPath := flag.String("risk", "", "optional risk-model weights file")
	flag.Parse()

	paths, err := filepath.Glob(filepath.Join(*inputDir, "*.json"))
	if err != nil || len(paths) == 0 {
		fmt.Fprintf(os.Stderr, "no scenarios found in %s\n", *inputDir)
		os.Exit(1)
	}
	sort.Strings(paths)

	var scorer risk.Scorer
	if *riskPath != "" {
		s, err := risk.LoadLogisticScorer(*riskPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "risk model: %v\n", err)
			os.Exit(1)
		}
		scorer = s
	}

	var index *rundb.DB
	if *dbPath != "" {
		index, err = rundb.Open(*dbPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "rundb: %v\n", err)
			os.Exit(1)
		}
		defer index.Close()
	}

	var results []*Result
	for _, path := range paths {
		fmt.Printf("running %s... ", filepath.Base(path))
		started := time.Now()
		r, err := runScenario(path, scorer)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		fmt.Printf("%d ticks, %d/%d delivered, %.1fms\n", r.Ticks, r.Delivered, r.Packages, r.RuntimeMs)
		results = append(results, r)

		if index != nil {
			runID := fmt.Sprintf("batch-%s-%d", r.Scenario, started.UnixNano())
			if err := index.StartRun(runID, r.Scenario, started); err != nil {
				fmt.Fprintf(os.Stderr, "rundb: %v\n", err)
				continue
			}
			stats := sim.Stats{
				Ticks: r.Ticks, Moves: r.Moves, Blocks: r.Blocks,
				Dropoffs: r.Delivered, DeadlocksResolved: r.Deadlocks,
				Yields: r.Yields, Anomalies: r.Anomalies,
			}
			if err := index.FinishRun(runID, stats, r.Delivered, r.Packages,
				time.Duration(r.RuntimeMs*float64(time.Millisecond))); err != nil {
				fmt.Fprintf(os.Stderr, "rundb: %v\n", err)
			}
		}
	}

	if err := writeCSV(results, *csvPath); err != nil {
		fmt.Fprintf(os.Stderr, "csv: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("results written to %s\n", *csvPath)
	printSummary(results)
}
