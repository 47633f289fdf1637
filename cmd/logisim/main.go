// Command logisim runs the grid logistics simulation on a scenario file,
// with optional terminal rendering, run recording, a run index database
// and a live websocket observer feed.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/parcelworks/logisim/internal/core"
	"github.com/parcelworks/logisim/internal/persistence/rundb"
	"github.com/parcelworks/logisim/internal/persistence/runlog"
	"github.com/parcelworks/logisim/internal/risk"
	"github.com/parcelworks/logisim/internal/scenario"
	"github.com/parcelworks/logisim/internal/sim"
	"github.com/parcelworks/logisim/internal/term"
	"github.com/parcelworks/logisim/internal/transport/obsws"
)

func main() {
	var (
		scenarioPath = flag.String("scenario", "", "scenario JSON file (required)")
		tuningPath   = flag.String("tuning", "", "optional YAML tuning overlay")
		riskPath     = flag.String("risk", "", "optional risk-model weights file")
		logDir       = flag.String("log-dir", "runs", "run log directory, empty disables recording")
		dbPath       = flag.String("db", "", "optional SQLite run index path")
		listen       = flag.String("listen", "", "optional websocket observer address, e.g. :8701")
		render       = flag.Bool("render", true, "draw the grid in the terminal")
		color        = flag.Bool("color", true, "use ANSI colors when rendering")
		sleep        = flag.Duration("sleep", 100*time.Millisecond, "pause between ticks when rendering")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "[logisim] ", log.LstdFlags)
	if err := run(logger, *scenarioPath, *tuningPath, *riskPath, *logDir, *dbPath, *listen, *render, *color, *sleep); err != nil {
		logger.Fatal(err)
	}
}

func run(logger *log.Logger, scenarioPath, tuningPath, riskPath, logDir, dbPath, listen string, render, color bool, sleep time.Duration) error {
	if scenarioPath == "" {
		flag.Usage()
		return fmt.Errorf("missing -scenario")
	}

	sc, err := scenario.Load(scenarioPath)
	if err != nil {
		return err
	}
	cfg := sc.ApplyTo(core.DefaultConfig())
	if tuningPath != "" {
		tun, err := scenario.LoadTuning(tuningPath)
		if err != nil {
			return err
		}
		cfg = tun.Apply(cfg)
	}

	var scorer risk.Scorer
	if riskPath != "" {
		s, err := risk.LoadLogisticScorer(riskPath)
		if err != nil {
			return err
		}
		scorer = s
		logger.Printf("risk model loaded from %s", riskPath)
	}

	grid, agents, packages := sc.Build(cfg)
	ctrl := sim.NewController(grid, agents, packages, scorer, cfg)
	logger.Printf("scenario %q: %dx%d grid, %d agents, %d packages",
		sc.Name, cfg.Rows, cfg.Cols, len(agents), len(packages))

	var recorder *runlog.Writer
	if logDir != "" {
		recorder, err = runlog.New(logDir, sc.Name)
		if err != nil {
			return err
		}
		ctrl.AddObserver(recorder)
		logger.Printf("recording run %s to %s", recorder.RunID(), recorder.Dir())
	}

	var index *rundb.DB
	if dbPath != "" {
		index, err = rundb.Open(dbPath)
		if err != nil {
			return err
		}
		defer index.Close()
		runID := "unrecorded"
		if recorder != nil {
			runID = recorder.RunID()
		}
		if err := index.StartRun(runID, sc.Name, time.Now()); err != nil {
			return err
		}
	}

	var feed *obsws.Server
	if listen != "" {
		feed = obsws.NewServer(logger)
		defer feed.Close()
		go func() {
			logger.Printf("observer feed on ws://%s", listen)
			if err := http.ListenAndServe(listen, feed.Handler()); err != nil {
				logger.Printf("observer feed: %v", err)
			}
		}()
	}

	var renderer *term.Renderer
	if render {
		renderer = term.NewRenderer(os.Stdout, color)
		ctrl.AddObserver(renderer)
	}

	start := time.Now()
	for !ctrl.Done() {
		ctrl.Step()

		if index != nil && recorder != nil {
			if err := index.RecordTick(recorder.RunID(), ctrl.Tick(), ctrl.Stats()); err != nil {
				return err
			}
		}
		if feed != nil {
			feed.Broadcast(obsws.Snapshot(ctrl.Tick(), ctrl.Done(), agents, packages, ctrl.Stats()))
		}
		if renderer != nil {
			renderer.Draw(ctrl.Tick(), grid, agents, packages, ctrl.Stats())
			time.Sleep(sleep)
		}
	}
	elapsed := time.Since(start)

	stats := ctrl.Stats()
	delivered := 0
	for _, p := range packages {
		if p.State == core.Delivered {
			delivered++
		}
	}
	logger.Printf("done after %d ticks in %v: %d moves, %d/%d delivered, %d deadlocks resolved",
		ctrl.Tick(), elapsed.Round(time.Millisecond), stats.Moves, delivered, len(packages), stats.DeadlocksResolved)

	if recorder != nil {
		if err := recorder.Finish(stats); err != nil {
			return fmt.Errorf("finish run log: %w", err)
		}
	}
	if index != nil {
		runID := "unrecorded"
		if recorder != nil {
			runID = recorder.RunID()
		}
		if err := index.FinishRun(runID, stats, delivered, len(packages), elapsed); err != nil {
			return err
		}
	}
	return nil
}
