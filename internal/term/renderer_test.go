package term

import (
	"strings"
	"testing"

	"github.com/parcelworks/logisim/internal/core"
	"github.com/parcelworks/logisim/internal/sim"
)

func TestDrawPlainFrame(t *testing.T) {
	g := core.NewGrid(3, 4, []core.Cell{{Row: 1, Col: 1}})
	agent := core.NewAgent(12, "R12", core.Cell{Row: 0, Col: 0})
	pkg := core.NewPackage(0, "P1", core.Cell{Row: 2, Col: 2}, core.Cell{Row: 2, Col: 3})

	var out strings.Builder
	r := NewRenderer(&out, false)
	r.Draw(5, g, []*core.Agent{agent}, []*core.Package{pkg}, sim.Stats{Moves: 3})
	frame := out.String()

	if strings.Contains(frame, "\033[") {
		t.Error("plain frame contains ANSI escapes")
	}
	if !strings.Contains(frame, "Tick:") || !strings.Contains(frame, "5") {
		t.Error("statistics bar missing the tick")
	}
	if !strings.Contains(frame, " 12") {
		t.Errorf("agent label missing from frame:\n%s", frame)
	}
	if !strings.Contains(frame, " P ") || !strings.Contains(frame, " D ") {
		t.Errorf("package markers missing from frame:\n%s", frame)
	}

	// 3 header-ish lines plus one line per row at minimum.
	if lines := strings.Count(frame, "\n"); lines < g.Rows+3 {
		t.Errorf("frame has %d lines, want at least %d", lines, g.Rows+3)
	}
}

func TestMarkersFollowPackageState(t *testing.T) {
	g := core.NewGrid(3, 4, nil)
	pkg := core.NewPackage(0, "P1", core.Cell{Row: 0, Col: 1}, core.Cell{Row: 0, Col: 2})
	pkg.State = core.Picked

	var out strings.Builder
	r := NewRenderer(&out, false)
	r.Draw(1, g, nil, []*core.Package{pkg}, sim.Stats{})
	frame := out.String()

	if strings.Contains(frame, " P ") {
		t.Error("picked package still shows its pickup marker")
	}
	if !strings.Contains(frame, " D ") {
		t.Error("in-flight package lost its dropoff marker")
	}

	pkg.State = core.Delivered
	out.Reset()
	r.Draw(2, g, nil, []*core.Package{pkg}, sim.Stats{})
	if strings.Contains(out.String(), " D ") {
		t.Error("delivered package still shows its dropoff marker")
	}
}

func TestObserveKeepsBoundedActivityLog(t *testing.T) {
	r := NewRenderer(&strings.Builder{}, false)
	for i := 0; i < 20; i++ {
		r.Observe(sim.Event{Tick: i, Kind: sim.EventYield, Agent: "R1"})
	}
	if len(r.activities) != activityWindow {
		t.Errorf("activity log has %d entries, want %d", len(r.activities), activityWindow)
	}
	// Moves never reach the log.
	r.Observe(sim.Event{Tick: 99, Kind: sim.EventMove, Agent: "R1"})
	for _, line := range r.activities {
		if strings.Contains(line, "MOVE") {
			t.Error("MOVE event leaked into the activity log")
		}
	}
}
