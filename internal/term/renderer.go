// Package term renders the simulation in a terminal with ANSI escapes:
// the grid, a statistics bar and a short activity log. It hangs off the
// controller's observer stream and keeps no simulation state of its own
// beyond what it draws.
package term

import (
	"fmt"
	"io"
	"strings"

	"github.com/parcelworks/logisim/internal/core"
	"github.com/parcelworks/logisim/internal/sim"
)

const activityWindow = 8

const (
	ansiReset  = "\033[0m"
	ansiBold   = "\033[1m"
	ansiDim    = "\033[90m"
	ansiGreen  = "\033[92m"
	ansiYellow = "\033[93m"
	ansiRed    = "\033[91m"
	ansiCyan   = "\033[96m"
	ansiHome   = "\033[H\033[J"

	bgWall    = "\033[100m"
	bgIdle    = "\033[44m"
	bgPickup  = "\033[46m"
	bgDropoff = "\033[42m"
	bgEvac    = "\033[41m"
	bgHome    = "\033[45m"
)

// Renderer draws the grid after each tick. Implements sim.Observer to
// collect the activity log; Draw is called by the run loop once per tick.
type Renderer struct {
	out   io.Writer
	color bool

	activities []string
}

// NewRenderer writes frames to out. With color false every escape is
// dropped, which keeps the output usable in a pipe or a log file.
func NewRenderer(out io.Writer, color bool) *Renderer {
	return &Renderer{out: out, color: color}
}

// Observe records noteworthy events for the activity log.
func (r *Renderer) Observe(e sim.Event) {
	switch e.Kind {
	case sim.EventMove, sim.EventBlock:
		return // too chatty for the log
	}
	line := fmt.Sprintf("[%04d] %-9s %s", e.Tick, e.Kind, e.Agent)
	if e.Detail != "" {
		line += " " + e.Detail
	}
	r.activities = append(r.activities, line)
	if len(r.activities) > activityWindow {
		r.activities = r.activities[1:]
	}
}

// Draw paints one full frame.
func (r *Renderer) Draw(tick int, grid *core.Grid, agents []*core.Agent, packages []*core.Package, stats sim.Stats) {
	var b strings.Builder
	if r.color {
		b.WriteString(ansiHome)
	}

	delivered := 0
	for _, p := range packages {
		if p.State == core.Delivered {
			delivered++
		}
	}
	fmt.Fprintf(&b, "%sTick:%s %s%-5d%s | %sMoves:%s %d | %sPickups:%s %s%d%s | %sDelivered:%s %s%d/%d%s | %sDeadlocks:%s %s%d%s\n",
		r.sty(ansiBold), r.sty(ansiReset), r.sty(ansiCyan), tick, r.sty(ansiReset),
		r.sty(ansiBold), r.sty(ansiReset), stats.Moves,
		r.sty(ansiBold), r.sty(ansiReset), r.sty(ansiGreen), stats.Pickups, r.sty(ansiReset),
		r.sty(ansiBold), r.sty(ansiReset), r.sty(ansiYellow), delivered, len(packages), r.sty(ansiReset),
		r.sty(ansiBold), r.sty(ansiReset), r.sty(ansiRed), stats.DeadlocksResolved, r.sty(ansiReset))
	b.WriteString(strings.Repeat("-", 3*grid.Cols+3) + "\n")

	cells := r.paintCells(grid, agents, packages)

	fmt.Fprintf(&b, "%s   ", r.sty(ansiDim))
	for c := 0; c < grid.Cols; c++ {
		fmt.Fprintf(&b, "%02d ", c%100)
	}
	b.WriteString(r.sty(ansiReset) + "\n")
	for row := 0; row < grid.Rows; row++ {
		fmt.Fprintf(&b, "%s%02d %s", r.sty(ansiDim), row%100, r.sty(ansiReset))
		for col := 0; col < grid.Cols; col++ {
			b.WriteString(cells[row][col])
		}
		b.WriteByte('\n')
	}

	if len(r.activities) > 0 {
		b.WriteString(strings.Repeat("-", 3*grid.Cols+3) + "\n")
		for _, line := range r.activities {
			b.WriteString(line + "\n")
		}
	}
	_, _ = io.WriteString(r.out, b.String())
}

func (r *Renderer) paintCells(grid *core.Grid, agents []*core.Agent, packages []*core.Package) [][]string {
	cells := make([][]string, grid.Rows)
	for row := range cells {
		cells[row] = make([]string, grid.Cols)
		for col := range cells[row] {
			c := core.Cell{Row: row, Col: col}
			if grid.IsFree(c) {
				cells[row][col] = r.sty(ansiDim) + " . " + r.sty(ansiReset)
			} else {
				cells[row][col] = r.sty(bgWall) + "   " + r.sty(ansiReset)
			}
		}
	}

	for _, p := range packages {
		if p.State == core.Waiting {
			cells[p.Pickup.Row][p.Pickup.Col] = r.sty(ansiGreen+ansiBold) + " P " + r.sty(ansiReset)
		}
		if p.State == core.Waiting || p.State == core.Picked {
			cells[p.Dropoff.Row][p.Dropoff.Col] = r.sty(ansiYellow+ansiBold) + " D " + r.sty(ansiReset)
		}
	}

	for _, a := range agents {
		label := strings.TrimPrefix(a.Name, "R")
		if len(label) > 3 {
			label = label[:3]
		}
		cells[a.Pos.Row][a.Pos.Col] = r.sty(stateStyle(a.State)+ansiBold) +
			fmt.Sprintf("%3s", label) + r.sty(ansiReset)
	}
	return cells
}

func stateStyle(s core.AgentState) string {
	switch s {
	case core.ToPickup:
		return bgPickup
	case core.ToDropoff:
		return bgDropoff
	case core.Evacuating:
		return bgEvac
	case core.Home:
		return bgHome
	default:
		return bgIdle
	}
}

func (r *Renderer) sty(code string) string {
	if !r.color {
		return ""
	}
	return code
}
