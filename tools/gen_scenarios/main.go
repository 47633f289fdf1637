// Package main generates deterministic warehouse scenarios for the
// simulator: rack rows with aisle gaps, agents docked along the west
// wall, packages scattered over the free floor.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
)

// Params defines one generated scenario.
type Params struct {
	Seed      int64 `json:"seed"`
	Rows      int   `json:"rows"`
	Cols      int   `json:"cols"`
	NumAgents int   `json:"num_agents"`
	Packages  int   `json:"packages"`
	RackEvery int   `json:"rack_every"` // blank rows between rack rows
	AisleGap  int   `json:"aisle_gap"`  // columns between aisle cuts in a rack
	MaxSteps  int   `json:"max_steps"`
}

type settingsOut struct {
	Rows     int `json:"rows"`
	Cols     int `json:"cols"`
	MaxSteps int `json:"max_steps"`
}

type agentOut struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Pos  [2]int `json:"pos"`
}

type packageOut struct {
	Name    string `json:"name"`
	Pickup  [2]int `json:"pickup"`
	Dropoff [2]int `json:"dropoff"`
}

type scenarioOut struct {
	Name     string       `json:"name"`
	Settings settingsOut  `json:"settings"`
	Walls    [][4]int     `json:"walls"`
	Agents   []agentOut   `json:"agents"`
	Packages []packageOut `json:"packages"`
}

func generate(p Params) *scenarioOut {
	rng := rand.New(rand.NewSource(p.Seed))

	out := &scenarioOut{
		Name:     fmt.Sprintf("warehouse_%dx%d_a%d_p%d_s%d", p.Rows, p.Cols, p.NumAgents, p.Packages, p.Seed),
		Settings: settingsOut{Rows: p.Rows, Cols: p.Cols, MaxSteps: p.MaxSteps},
		Walls:    [][4]int{},
	}

	// Rack rows with aisle cuts. Column 0 and the last column stay clear
	// so agents can always circulate.
	blocked := make(map[[2]int]bool)
	for r := p.RackEvery; r < p.Rows-1; r += p.RackEvery + 1 {
		segStart := -1
		for c := 1; c < p.Cols-1; c++ {
			cut := p.AisleGap > 0 && c%(p.AisleGap+1) == 0
			if !cut {
				if segStart < 0 {
					segStart = c
				}
				blocked[[2]int{r, c}] = true
				continue
			}
			if segStart >= 0 {
				out.Walls = append(out.Walls, [4]int{r, segStart, r, c - 1})
				segStart = -1
			}
		}
		if segStart >= 0 {
			out.Walls = append(out.Walls, [4]int{r, segStart, r, p.Cols - 2})
		}
	}

	used := make(map[[2]int]bool)
	freeCell := func() [2]int {
		for {
			cell := [2]int{rng.Intn(p.Rows), rng.Intn(p.Cols)}
			if !blocked[cell] && !used[cell] {
				used[cell] = true
				return cell
			}
		}
	}

	// Agents dock along the west wall, one per row top to bottom.
	docks := 0
	for r := 0; r < p.Rows && docks < p.NumAgents; r++ {
		cell := [2]int{r, 0}
		if blocked[cell] {
			continue
		}
		used[cell] = true
		docks++
		out.Agents = append(out.Agents, agentOut{ID: docks, Name: fmt.Sprintf("R%d", docks), Pos: cell})
	}
	for docks < p.NumAgents {
		docks++
		out.Agents = append(out.Agents, agentOut{ID: docks, Name: fmt.Sprintf("R%d", docks), Pos: freeCell()})
	}

	for i := 0; i < p.Packages; i++ {
		out.Packages = append(out.Packages, packageOut{
			Name:    fmt.Sprintf("P%d", i+1),
			Pickup:  freeCell(),
			Dropoff: freeCell(),
		})
	}
	return out
}

func main() {
	seed := flag.Int64("seed", 42, "random seed for deterministic generation")
	rows := flag.Int("rows", 26, "grid rows")
	cols := flag.Int("cols", 80, "grid columns")
	agents := flag.Int("agents", 8, "number of agents")
	packages := flag.Int("packages", 20, "number of packages")
	rackEvery := flag.Int("rack-every", 3, "blank rows between rack rows")
	aisleGap := flag.Int("aisle-gap", 9, "columns between aisle cuts")
	maxSteps := flag.Int("max-steps", 1000, "tick budget")
	count := flag.Int("count", 1, "number of scenarios (seed increments per file)")
	outputDir := flag.String("output", "testdata", "output directory")
	flag.Parse()

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "error creating output directory: %v\n", err)
		os.Exit(1)
	}

	for i := 0; i < *count; i++ {
		sc := generate(Params{
			Seed:      *seed + int64(i),
			Rows:      *rows,
			Cols:      *cols,
			NumAgents: *agents,
			Packages:  *packages,
			RackEvery: *rackEvery,
			AisleGap:  *aisleGap,
			MaxSteps:  *maxSteps,
		})

		data, err := json.MarshalIndent(sc, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "error encoding scenario: %v\n", err)
			os.Exit(1)
		}
		path := filepath.Join(*outputDir, sc.Name+".json")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "error writing %s: %v\n", path, err)
			os.Exit(1)
		}
		fmt.Printf("wrote %s (%d walls, %d agents, %d packages)\n",
			path, len(sc.Walls), len(sc.Agents), len(sc.Packages))
	}
}
