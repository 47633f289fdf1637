// Command logisimvis replays a recorded simulation run in a GUI window.
package main

import (
	"flag"
	"log"
	"os"

	"gioui.org/app"
	"gioui.org/unit"

	"github.com/parcelworks/logisim/internal/vis"
)

func main() {
	scenarioPath := flag.String("scenario", "", "scenario JSON the run was recorded with")
	runDir := flag.String("run", "", "run directory written by logisim (contains events.jsonl.zst)")
	flag.Parse()

	if *scenarioPath == "" || *runDir == "" {
		flag.Usage()
		os.Exit(2)
	}

	replay, err := vis.LoadReplay(*scenarioPath, *runDir)
	if err != nil {
		log.Fatalf("load replay: %v", err)
	}

	go func() {
		window := new(app.Window)
		window.Option(
			app.Title("Logisim Playback"),
			app.Size(unit.Dp(1400), unit.Dp(900)),
		)

		application := vis.NewApp(replay)
		if err := application.Run(window); err != nil {
			log.Fatal(err)
		}
		os.Exit(0)
	}()
	app.Main()
}
