package core

import "testing"

func TestPriorityRanking(t *testing.T) {
	mk := func(state AgentState) *Agent {
		a := NewAgent(1, "R1", Cell{0, 0})
		a.State = state
		return a
	}

	order := []AgentState{ToDropoff, ToPickup, Evacuating, Home, Idle}
	for i := 0; i < len(order)-1; i++ {
		hi, lo := mk(order[i]), mk(order[i+1])
		if hi.Priority() <= lo.Priority() {
			t.Errorf("Priority(%v)=%d should beat Priority(%v)=%d",
				order[i], hi.Priority(), order[i+1], lo.Priority())
		}
	}
}

func TestPriorityWaitBonus(t *testing.T) {
	a := NewAgent(1, "R1", Cell{0, 0})
	a.State = ToPickup
	base := a.Priority()
	a.Wait = 4
	if a.Priority() != base+400 {
		t.Errorf("wait bonus = %d, want %d", a.Priority()-base, 400)
	}
}

func TestImportanceDeliveryDistance(t *testing.T) {
	near := NewAgent(1, "R1", Cell{0, 0})
	near.State = ToDropoff
	near.PackageID = 0
	near.Path = []Cell{{0, 1}}

	far := NewAgent(2, "R2", Cell{0, 0})
	far.State = ToDropoff
	far.PackageID = 0
	far.Path = make([]Cell, 40)

	if near.Importance() <= far.Importance() {
		t.Error("agent closer to dropoff should be more important")
	}
}

func TestOscillationDetection(t *testing.T) {
	a := NewAgent(1, "R1", Cell{0, 0})

	// Bounce between two cells.
	for i := 0; i < 6; i++ {
		if i%2 == 0 {
			a.Pos = Cell{0, 0}
		} else {
			a.Pos = Cell{0, 1}
		}
		a.RecordPosition()
	}
	if !a.Oscillating(5) {
		t.Error("bouncing agent should be flagged as oscillating")
	}

	a.ClearHistory()
	if a.Oscillating(5) {
		t.Error("cleared history should not oscillate")
	}

	// A straight walk covers distinct cells.
	for i := 0; i < 6; i++ {
		a.Pos = Cell{0, i}
		a.RecordPosition()
	}
	if a.Oscillating(5) {
		t.Error("progressing agent flagged as oscillating")
	}
}

func TestFailedCells(t *testing.T) {
	a := NewAgent(1, "R1", Cell{0, 0})
	a.MarkFailed(Cell{0, 1})
	a.MarkFailed(Cell{1, 0})
	if len(a.FailedCells) != 2 {
		t.Fatalf("FailedCells = %d, want 2", len(a.FailedCells))
	}
	a.ClearFailed()
	if len(a.FailedCells) != 0 {
		t.Error("ClearFailed left entries behind")
	}
}
