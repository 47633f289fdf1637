package algo

import (
	"testing"

	"github.com/parcelworks/logisim/internal/core"
	"github.com/parcelworks/logisim/internal/risk"
)

func TestSpaceTimeReachesGoalAndReserves(t *testing.T) {
	g := core.NewGrid(5, 5, nil)
	cfg := core.DefaultConfig()
	rt := NewReservationTable()
	p := NewPlanner(g, NewPenaltyMap(cfg), rt, risk.ZeroScorer{}, cfg)

	start := core.Cell{Row: 0, Col: 0}
	goal := core.Cell{Row: 0, Col: 4}
	path := p.FindPathSpaceTime(AgentView{ID: 1}, start, goal, 0, nil, nil)
	if len(path) == 0 {
		t.Fatal("no space-time path found on empty grid")
	}
	if path[0] != start || path[len(path)-1] != goal {
		t.Fatalf("path endpoints wrong: %v", path)
	}

	// Every step of the winning path must be committed to the table.
	for i, c := range path {
		id, ok := rt.ReservedBy(c, i)
		if !ok || id != 1 {
			t.Errorf("step %d at %v not reserved for agent 1", i, c)
		}
	}
}

func TestSpaceTimeRoutesAroundReservation(t *testing.T) {
	g := core.NewGrid(3, 5, nil)
	cfg := core.DefaultConfig()
	rt := NewReservationTable()
	p := NewPlanner(g, NewPenaltyMap(cfg), rt, risk.ZeroScorer{}, cfg)

	// Agent 9 sits parked on (1,2) for the whole horizon.
	if err := rt.Reserve(9, []core.Cell{{Row: 1, Col: 2}}, 0, cfg.TimeHorizon); err != nil {
		t.Fatal(err)
	}

	path := p.FindPathSpaceTime(AgentView{ID: 1}, core.Cell{Row: 1, Col: 0}, core.Cell{Row: 1, Col: 4}, 0, nil, nil)
	if len(path) == 0 {
		t.Fatal("no path found around parked agent")
	}
	for i, c := range path {
		if rt.IsReservedByOther(c, i, 1) {
			t.Errorf("step %d enters foreign reservation at %v", i, c)
		}
	}
}

func TestSpaceTimeWaitCap(t *testing.T) {
	g := core.NewGrid(1, 6, nil)
	cfg := core.DefaultConfig()
	rt := NewReservationTable()
	p := NewPlanner(g, NewPenaltyMap(cfg), rt, risk.ZeroScorer{}, cfg)

	// Corridor with a blocker that clears after a couple of timesteps:
	// reserve (0,2) for agent 9 at t=1 and t=2 only. Waiting twice then
	// proceeding is cheaper than any alternative, and legal.
	for _, tm := range []int{1, 2} {
		rt.byTime[tm] = map[core.Cell]int{{Row: 0, Col: 2}: 9}
	}

	path := p.FindPathSpaceTime(AgentView{ID: 1}, core.Cell{Row: 0, Col: 0}, core.Cell{Row: 0, Col: 5}, 0, nil, nil)
	if len(path) == 0 {
		t.Fatal("no path found past temporary blocker")
	}

	consecutive := 0
	for i := 1; i < len(path); i++ {
		if path[i] == path[i-1] {
			consecutive++
			if consecutive > cfg.MaxWaitActions {
				t.Fatalf("path waits %d times in a row, cap is %d: %v",
					consecutive, cfg.MaxWaitActions, path)
			}
		} else {
			consecutive = 0
		}
	}
}

func TestSpaceTimeNoSwap(t *testing.T) {
	g := core.NewGrid(1, 4, nil)
	cfg := core.DefaultConfig()
	rt := NewReservationTable()
	p := NewPlanner(g, NewPenaltyMap(cfg), rt, risk.ZeroScorer{}, cfg)

	// Agent 9 drives head-on from (0,3) to (0,0). Whatever agent 1 plans
	// in the width-1 corridor, it must never exchange cells with the
	// oncoming agent in a single timestep.
	oncoming := []core.Cell{{Row: 0, Col: 3}, {Row: 0, Col: 2}, {Row: 0, Col: 1}, {Row: 0, Col: 0}}
	if err := rt.Reserve(9, oncoming, 0, cfg.TimeHorizon); err != nil {
		t.Fatal(err)
	}

	path := p.FindPathSpaceTime(AgentView{ID: 1}, core.Cell{Row: 0, Col: 0}, core.Cell{Row: 0, Col: 3}, 0, nil, nil)
	for i := 1; i < len(path); i++ {
		cur, next := path[i-1], path[i]
		if owner, ok := rt.ReservedBy(next, i-1); ok && owner == 9 {
			if id, ok := rt.ReservedBy(cur, i); ok && id == 9 {
				t.Fatalf("path swaps with oncoming agent at step %d: %v", i, path)
			}
		}
	}
}

func TestSpaceTimeFailureReservesNothing(t *testing.T) {
	g := core.NewGrid(1, 3, core.WallRect(0, 1, 0, 1))
	cfg := core.DefaultConfig()
	rt := NewReservationTable()
	p := NewPlanner(g, NewPenaltyMap(cfg), rt, risk.ZeroScorer{}, cfg)

	path := p.FindPathSpaceTime(AgentView{ID: 1}, core.Cell{Row: 0, Col: 0}, core.Cell{Row: 0, Col: 2}, 0, nil, nil)
	if path != nil {
		t.Fatalf("expected nil path across wall, got %v", path)
	}
	if _, ok := rt.ReservedBy(core.Cell{Row: 0, Col: 0}, 0); ok {
		t.Error("failed search left reservations behind")
	}
}

func TestPlanModeSelection(t *testing.T) {
	g := core.NewGrid(5, 5, nil)
	cfg := core.DefaultConfig()
	rt := NewReservationTable()
	p := NewPlanner(g, NewPenaltyMap(cfg), rt, risk.ZeroScorer{}, cfg)

	start := core.Cell{Row: 2, Col: 0}
	goal := core.Cell{Row: 2, Col: 4}

	path, mode := p.Plan(AgentView{ID: 1}, start, goal, nil, nil, 0)
	if mode != PlanSpatial {
		t.Errorf("freely moving agent planned in %v, want SPATIAL", mode)
	}
	if len(path) != 4 || path[0] == start {
		t.Errorf("plan must strip the start cell: %v", path)
	}

	path, mode = p.Plan(AgentView{ID: 1, Wait: 2}, start, goal, nil, nil, 5)
	if mode != PlanSpaceTime {
		t.Errorf("waiting agent planned in %v, want SPACE_TIME", mode)
	}
	if len(path) == 0 {
		t.Fatal("space-time plan failed on empty grid")
	}
	if path[0] == start {
		t.Errorf("plan must strip the start cell: %v", path)
	}
}
