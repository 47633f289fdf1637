// Package vis implements a Gio-based playback visualizer for recorded
// runs: the scenario fixes the geometry, the run log replays agent
// movement and package lifecycle tick by tick.
package vis

import (
	"fmt"

	"github.com/parcelworks/logisim/internal/core"
	"github.com/parcelworks/logisim/internal/persistence/runlog"
	"github.com/parcelworks/logisim/internal/scenario"
	"github.com/parcelworks/logisim/internal/sim"
)

// AgentFrame is one agent's reconstructed state at a tick.
type AgentFrame struct {
	ID       int
	Name     string
	Pos      core.Cell
	Carrying bool
	Blocked  bool
}

// PackageFrame is one package's reconstructed state at a tick.
type PackageFrame struct {
	Name    string
	Pickup  core.Cell
	Dropoff core.Cell
	State   core.PackageState
}

// Frame is the full reconstructed state after one tick.
type Frame struct {
	Tick     int
	Agents   []AgentFrame
	Packages []PackageFrame
}

// Replay is a fully decoded run: grid geometry plus one frame per tick,
// frame 0 being the initial placement.
type Replay struct {
	RunID    string
	Scenario string
	Grid     *core.Grid
	Frames   []Frame
	Stats    sim.Stats
}

// BuildReplay reconstructs a run from its scenario and log records. The
// log carries only events, so per-tick state is rebuilt by folding moves
// and package transitions over the initial placement, one frame per tick.
func BuildReplay(sc *scenario.Scenario, recs []runlog.Record) (*Replay, error) {
	cfg := sc.ApplyTo(core.DefaultConfig())
	grid, agents, packages := sc.Build(cfg)

	rp := &Replay{Grid: grid}

	cur := make(map[int]*AgentFrame, len(agents))
	order := make([]int, 0, len(agents))
	for _, a := range agents {
		cur[a.ID] = &AgentFrame{ID: a.ID, Name: a.Name, Pos: a.Home}
		order = append(order, a.ID)
	}
	pkgFrames := make([]PackageFrame, len(packages))
	for i, p := range packages {
		pkgFrames[i] = PackageFrame{Name: p.Name, Pickup: p.Pickup, Dropoff: p.Dropoff, State: core.Waiting}
	}

	snapshot := func(tick int) Frame {
		f := Frame{Tick: tick}
		for _, id := range order {
			f.Agents = append(f.Agents, *cur[id])
		}
		f.Packages = append([]PackageFrame(nil), pkgFrames...)
		return f
	}
	rp.Frames = append(rp.Frames, snapshot(0))

	var events []runlog.Record
	maxTick := 0
	for _, rec := range recs {
		switch rec.Type {
		case "start":
			rp.RunID = rec.RunID
			rp.Scenario = rec.Scenario
		case "summary":
			if rec.Stats != nil {
				rp.Stats = *rec.Stats
			}
		case "event":
			events = append(events, rec)
			if rec.Tick > maxTick {
				maxTick = rec.Tick
			}
		}
	}

	// Events are logged in tick order; fold each tick's batch, then
	// snapshot.
	i := 0
	for t := 1; t <= maxTick; t++ {
		for _, id := range order {
			cur[id].Blocked = false
		}
		for i < len(events) && events[i].Tick == t {
			if err := apply(cur, pkgFrames, events[i]); err != nil {
				return nil, err
			}
			i++
		}
		rp.Frames = append(rp.Frames, snapshot(t))
	}
	return rp, nil
}

func apply(cur map[int]*AgentFrame, pkgs []PackageFrame, rec runlog.Record) error {
	a, ok := cur[rec.AgentID]
	if !ok {
		return fmt.Errorf("replay: event for unknown agent %d at tick %d", rec.AgentID, rec.Tick)
	}
	switch rec.Kind {
	case "MOVE":
		a.Pos = core.Cell{Row: rec.To[0], Col: rec.To[1]}
	case "BLOCK":
		a.Blocked = true
	case "PICKUP":
		a.Carrying = true
		if rec.PackageID >= 0 && rec.PackageID < len(pkgs) {
			pkgs[rec.PackageID].State = core.Picked
		}
	case "DROPOFF":
		a.Carrying = false
		if rec.PackageID >= 0 && rec.PackageID < len(pkgs) {
			pkgs[rec.PackageID].State = core.Delivered
		}
	}
	return nil
}

// LoadReplay reads the scenario and run directory from disk.
func LoadReplay(scenarioPath, runDir string) (*Replay, error) {
	sc, err := scenario.Load(scenarioPath)
	if err != nil {
		return nil, err
	}
	recs, err := runlog.Read(runDir)
	if err != nil {
		return nil, err
	}
	return BuildReplay(sc, recs)
}

// MaxTick returns the last reconstructed tick.
func (r *Replay) MaxTick() int {
	return len(r.Frames) - 1
}

// FrameAt clamps tick into range and returns its frame.
func (r *Replay) FrameAt(tick int) Frame {
	if tick < 0 {
		tick = 0
	}
	if tick > r.MaxTick() {
		tick = r.MaxTick()
	}
	return r.Frames[tick]
}

// TrailThrough returns the distinct cells agent id visited up to and
// including tick, capped to the most recent limit cells.
func (r *Replay) TrailThrough(id, tick, limit int) []core.Cell {
	var out []core.Cell
	for t := 0; t <= tick && t <= r.MaxTick(); t++ {
		for _, a := range r.Frames[t].Agents {
			if a.ID != id {
				continue
			}
			if len(out) == 0 || a.Pos != out[len(out)-1] {
				out = append(out, a.Pos)
			}
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}
