package sim

import (
	"testing"

	"github.com/parcelworks/logisim/internal/core"
)

// threeCycle builds agents X, Y, Z each planning into the next one's
// cell, all past the decision threshold.
func threeCycle(wait int) (*core.Grid, []*core.Agent) {
	g := core.NewGrid(5, 5, nil)
	a := core.NewAgent(1, "R1", core.Cell{Row: 1, Col: 1})
	b := core.NewAgent(2, "R2", core.Cell{Row: 1, Col: 2})
	c := core.NewAgent(3, "R3", core.Cell{Row: 2, Col: 1})
	for _, ag := range []*core.Agent{a, b, c} {
		ag.State = core.ToPickup
		ag.Wait = wait
	}
	a.Path = []core.Cell{b.Pos}
	b.Path = []core.Cell{c.Pos}
	c.Path = []core.Cell{a.Pos}
	return g, []*core.Agent{a, b, c}
}

func TestDetectGroupsThreeCycle(t *testing.T) {
	g, agents := threeCycle(6)
	d := NewDeadlockResolver(g, agents, nil, core.DefaultConfig())

	groups := d.DetectGroups()
	if len(groups) != 1 {
		t.Fatalf("got %d groups, want 1: %v", len(groups), groups)
	}
	if len(groups[0]) != 3 {
		t.Errorf("group = %v, want all three agents", groups[0])
	}
}

func TestDetectGroupsBelowThreshold(t *testing.T) {
	g, agents := threeCycle(3) // under the decision threshold
	d := NewDeadlockResolver(g, agents, nil, core.DefaultConfig())

	if groups := d.DetectGroups(); len(groups) != 0 {
		t.Errorf("agents under threshold grouped: %v", groups)
	}
}

func TestDetectGroupsMutualPair(t *testing.T) {
	g := core.NewGrid(3, 3, nil)
	a := core.NewAgent(1, "R1", core.Cell{Row: 1, Col: 0})
	b := core.NewAgent(2, "R2", core.Cell{Row: 1, Col: 1})
	a.State, b.State = core.ToPickup, core.ToDropoff
	a.Wait, b.Wait = 7, 7
	a.Path = []core.Cell{b.Pos}
	b.Path = []core.Cell{a.Pos}
	d := NewDeadlockResolver(g, []*core.Agent{a, b}, nil, core.DefaultConfig())

	groups := d.DetectGroups()
	if len(groups) != 1 || len(groups[0]) != 2 {
		t.Fatalf("mutual pair not detected: %v", groups)
	}
}

func TestResolveGroupOneMoverRestYield(t *testing.T) {
	g, agents := threeCycle(6)
	d := NewDeadlockResolver(g, agents, nil, core.DefaultConfig())

	d.ResolveGroup([]int{1, 2, 3})

	movers, yielders := 0, 0
	for _, a := range agents {
		switch a.Mode {
		case core.ModeNormal:
			movers++
		case core.ModeYielding:
			yielders++
			if a.State != core.Evacuating {
				t.Errorf("%s yielding but state %v, want EVACUATING", a.Name, a.State)
			}
			if len(a.Path) != 1 {
				t.Errorf("%s has no one-step retreat: %v", a.Name, a.Path)
			}
		}
	}
	if movers != 1 {
		t.Errorf("got %d movers, want exactly 1", movers)
	}
	if yielders != 2 {
		t.Errorf("got %d yielders, want 2", yielders)
	}

	// Equal priority everywhere, so the lowest id keeps its move.
	if agents[0].Mode != core.ModeNormal {
		t.Errorf("agent 1 should be the mover at equal priority, mode %v", agents[0].Mode)
	}
}

func TestResolveGroupStagnantEscalatesToForced(t *testing.T) {
	g := core.NewGrid(5, 5, nil)
	a := core.NewAgent(1, "R1", core.Cell{Row: 1, Col: 1})
	b := core.NewAgent(2, "R2", core.Cell{Row: 1, Col: 2})
	c := core.NewAgent(3, "R3", core.Cell{Row: 2, Col: 1})
	a.State, b.State = core.ToDropoff, core.ToDropoff
	c.State = core.Home // lowest priority in the group
	a.Wait, b.Wait = 6, 6
	c.Wait = 16 // stagnant past the deadlock threshold
	a.Path = []core.Cell{b.Pos}
	b.Path = []core.Cell{c.Pos}
	c.Path = []core.Cell{a.Pos}
	d := NewDeadlockResolver(g, []*core.Agent{a, b, c}, nil, core.DefaultConfig())

	d.ResolveGroup([]int{1, 2, 3})

	if c.Mode != core.ModeForced {
		t.Errorf("stagnant low-priority agent mode = %v, want FORCED", c.Mode)
	}
	if len(c.Path) != 1 {
		t.Errorf("forced agent has no emergency move: %v", c.Path)
	}
}

func TestMakeDecisiveActionLadder(t *testing.T) {
	g := core.NewGrid(5, 5, nil)
	cfg := core.DefaultConfig()

	newStuck := func(wait int) (*core.Agent, *DeadlockResolver) {
		a := core.NewAgent(1, "R1", core.Cell{Row: 2, Col: 2})
		a.State = core.ToPickup
		a.Wait = wait
		a.Dir = core.Direction{DR: 0, DC: 1}
		a.Path = []core.Cell{{Row: 2, Col: 3}}
		d := NewDeadlockResolver(g, []*core.Agent{a}, nil, cfg)
		return a, d
	}

	a, d := newStuck(1)
	if got := d.MakeDecisiveAction(a); got.Kind != ActWait {
		t.Errorf("wait=1: %v, want WAIT", got.Kind)
	}

	// No blocker on the next cell, path exists: keep waiting at yield tier.
	a, d = newStuck(cfg.YieldThreshold)
	if got := d.MakeDecisiveAction(a); got.Kind != ActWait {
		t.Errorf("wait=%d no blocker: %v, want WAIT", cfg.YieldThreshold, got.Kind)
	}

	a, d = newStuck(cfg.DecisionThreshold)
	if got := d.MakeDecisiveAction(a); got.Kind != ActRepath {
		t.Errorf("wait=%d: %v, want REPATH", cfg.DecisionThreshold, got.Kind)
	}
	if _, failed := a.FailedCells[core.Cell{Row: 2, Col: 3}]; !failed {
		t.Error("repath tier should blacklist the blocked next cell")
	}

	a, d = newStuck(cfg.ForceThreshold)
	got := d.MakeDecisiveAction(a)
	if got.Kind != ActRetreat {
		t.Fatalf("wait=%d: %v, want RETREAT", cfg.ForceThreshold, got.Kind)
	}
	// Heading right, so the retreat walks left.
	if got.Path[0] != (core.Cell{Row: 2, Col: 1}) {
		t.Errorf("retreat path = %v, want to start at [2, 1]", got.Path)
	}
	if a.Mode != core.ModeYielding {
		t.Errorf("retreating agent mode = %v, want YIELDING", a.Mode)
	}
}

func TestMakeDecisiveActionYieldTier(t *testing.T) {
	g := core.NewGrid(5, 5, nil)
	cfg := core.DefaultConfig()

	// a wants b's cell; b is delivering and far more important.
	a := core.NewAgent(1, "R1", core.Cell{Row: 2, Col: 2})
	a.State = core.Home
	a.Wait = cfg.YieldThreshold
	a.Path = []core.Cell{{Row: 2, Col: 3}}
	b := core.NewAgent(2, "R2", core.Cell{Row: 2, Col: 3})
	b.State = core.ToDropoff
	b.PackageID = 0
	b.Path = []core.Cell{{Row: 2, Col: 4}}
	d := NewDeadlockResolver(g, []*core.Agent{a, b}, nil, cfg)

	got := d.MakeDecisiveAction(a)
	if got.Kind != ActYield {
		t.Fatalf("got %v, want YIELD", got.Kind)
	}
	if a.Mode != core.ModeYielding || a.YieldTo != b.ID {
		t.Errorf("yielder mode=%v yieldTo=%d, want YIELDING to %d", a.Mode, a.YieldTo, b.ID)
	}
	if !g.IsFree(got.Target) {
		t.Errorf("yield target %v is not free", got.Target)
	}
	if got.Target == b.Path[0] || got.Target == b.Pos {
		t.Errorf("yield target %v sits on the priority agent's route", got.Target)
	}
}

func TestEmergencyMoveAvoidsFailedThenRelents(t *testing.T) {
	g := core.NewGrid(3, 3, nil)
	a := core.NewAgent(1, "R1", core.Cell{Row: 0, Col: 0})
	d := NewDeadlockResolver(g, []*core.Agent{a}, nil, core.DefaultConfig())

	a.MarkFailed(core.Cell{Row: 1, Col: 0})
	spot, ok := d.EmergencyMove(a)
	if !ok || spot != (core.Cell{Row: 0, Col: 1}) {
		t.Errorf("emergency move = %v/%v, want [0, 1] skipping failed", spot, ok)
	}

	// With every neighbor failed, the set is cleared and any free cell
	// will do.
	a.MarkFailed(core.Cell{Row: 1, Col: 0})
	a.MarkFailed(core.Cell{Row: 0, Col: 1})
	spot, ok = d.EmergencyMove(a)
	if !ok {
		t.Fatal("emergency move gave up with free neighbors available")
	}
	if len(a.FailedCells) != 0 {
		t.Error("failed set should be cleared on fallback")
	}
	_ = spot
}
