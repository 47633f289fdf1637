package vis

import (
	"testing"

	"github.com/parcelworks/logisim/internal/core"
	"github.com/parcelworks/logisim/internal/persistence/runlog"
	"github.com/parcelworks/logisim/internal/scenario"
	"github.com/parcelworks/logisim/internal/sim"
)

func testScenario(t *testing.T) *scenario.Scenario {
	t.Helper()
	sc, err := scenario.Parse([]byte(`{
	  "settings": {"rows": 5, "cols": 5},
	  "agents": [{"id": 1, "name": "R1", "pos": [0, 0]}],
	  "packages": [{"name": "P1", "pickup": [0, 2], "dropoff": [0, 4]}]
	}`))
	if err != nil {
		t.Fatal(err)
	}
	return sc
}

func TestBuildReplayFoldsEvents(t *testing.T) {
	recs := []runlog.Record{
		{Type: "start", RunID: "abc", Scenario: "unit"},
		{Type: "event", Tick: 1, Kind: "MOVE", AgentID: 1, From: [2]int{0, 0}, To: [2]int{0, 1}},
		{Type: "event", Tick: 2, Kind: "MOVE", AgentID: 1, From: [2]int{0, 1}, To: [2]int{0, 2}},
		{Type: "event", Tick: 2, Kind: "PICKUP", AgentID: 1, PackageID: 0},
		{Type: "event", Tick: 4, Kind: "BLOCK", AgentID: 1},
		{Type: "summary", Stats: &sim.Stats{Moves: 2}},
	}

	rp, err := BuildReplay(testScenario(t), recs)
	if err != nil {
		t.Fatal(err)
	}

	if rp.RunID != "abc" || rp.Scenario != "unit" {
		t.Errorf("run metadata lost: %q %q", rp.RunID, rp.Scenario)
	}
	if rp.MaxTick() != 4 {
		t.Fatalf("max tick = %d, want 4", rp.MaxTick())
	}
	if rp.Stats.Moves != 2 {
		t.Errorf("summary stats not captured: %+v", rp.Stats)
	}

	f0 := rp.FrameAt(0)
	if f0.Agents[0].Pos != (core.Cell{Row: 0, Col: 0}) || f0.Agents[0].Carrying {
		t.Errorf("bad initial frame: %+v", f0.Agents[0])
	}
	if f0.Packages[0].State != core.Waiting {
		t.Errorf("initial package state = %v, want WAITING", f0.Packages[0].State)
	}

	// Tick 2 applies both the move and the pickup.
	f2 := rp.FrameAt(2)
	if f2.Agents[0].Pos != (core.Cell{Row: 0, Col: 2}) {
		t.Errorf("tick 2 pos = %v, want [0, 2]", f2.Agents[0].Pos)
	}
	if !f2.Agents[0].Carrying || f2.Packages[0].State != core.Picked {
		t.Errorf("tick 2 missed the pickup: %+v %v", f2.Agents[0], f2.Packages[0].State)
	}

	// Tick 3 has no events: state carries forward, blocked flag clear.
	f3 := rp.FrameAt(3)
	if f3.Agents[0].Pos != f2.Agents[0].Pos || f3.Agents[0].Blocked {
		t.Errorf("gap tick not carried forward: %+v", f3.Agents[0])
	}

	// The block shows only on its own tick.
	if !rp.FrameAt(4).Agents[0].Blocked {
		t.Error("tick 4 block flag missing")
	}
}

func TestBuildReplayRejectsUnknownAgent(t *testing.T) {
	recs := []runlog.Record{
		{Type: "event", Tick: 1, Kind: "MOVE", AgentID: 99, To: [2]int{1, 1}},
	}
	if _, err := BuildReplay(testScenario(t), recs); err == nil {
		t.Fatal("expected error for unknown agent")
	}
}

func TestFrameAtClamps(t *testing.T) {
	rp, err := BuildReplay(testScenario(t), nil)
	if err != nil {
		t.Fatal(err)
	}
	if rp.MaxTick() != 0 {
		t.Fatalf("empty replay max tick = %d", rp.MaxTick())
	}
	if got := rp.FrameAt(-5).Tick; got != 0 {
		t.Errorf("negative tick clamped to %d", got)
	}
	if got := rp.FrameAt(99).Tick; got != 0 {
		t.Errorf("overlong tick clamped to %d", got)
	}
}

func TestTrailThroughDedupesAndCaps(t *testing.T) {
	var recs []runlog.Record
	for i := 0; i < 30; i++ {
		recs = append(recs, runlog.Record{
			Type: "event", Tick: i + 1, Kind: "MOVE", AgentID: 1,
			To: [2]int{0, (i + 1) % 5},
		})
	}
	rp, err := BuildReplay(testScenario(t), recs)
	if err != nil {
		t.Fatal(err)
	}

	trail := rp.TrailThrough(1, 30, 10)
	if len(trail) != 10 {
		t.Fatalf("trail length = %d, want capped at 10", len(trail))
	}
	for i := 1; i < len(trail); i++ {
		if trail[i] == trail[i-1] {
			t.Errorf("consecutive duplicate in trail at %d: %v", i, trail[i])
		}
	}
}

func TestPlaybackControls(t *testing.T) {
	p := NewPlayback(10)

	p.Seek(4.6)
	if p.Tick() != 4 {
		t.Errorf("tick = %d, want 4", p.Tick())
	}
	p.StepForward()
	if p.Tick() != 5 || p.Playing {
		t.Errorf("step forward: tick=%d playing=%v", p.Tick(), p.Playing)
	}
	p.StepBack()
	if p.Tick() != 4 {
		t.Errorf("step back: tick=%d", p.Tick())
	}

	p.Seek(99)
	if p.Current != 10 {
		t.Errorf("seek past end = %v, want clamp to 10", p.Current)
	}
	// Toggling play at the end restarts from zero.
	p.TogglePlay()
	if !p.Playing || p.Current != 0 {
		t.Errorf("restart at end: playing=%v current=%v", p.Playing, p.Current)
	}

	p.SetSpeed(1000)
	if p.Speed != 64 {
		t.Errorf("speed clamped to %v, want 64", p.Speed)
	}
}
