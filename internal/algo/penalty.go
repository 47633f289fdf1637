// Package algo implements the pathfinding engine: cost-augmented spatial
// A*, reservation-respecting space-time A*, and the dynamic traffic state
// both feed on.
package algo

import "github.com/parcelworks/logisim/internal/core"

// dropBelow is the floor under which a decayed penalty entry is removed,
// bounding the map to recently trafficked cells.
const dropBelow = 0.01

// PenaltyMap accumulates a decaying per-cell congestion cost. Cells an
// agent occupies or traverses get a bump each tick; Decay then shrinks
// every entry, so the surcharge fades over a bounded number of ticks.
type PenaltyMap struct {
	increment float64
	decay     float64
	cap       float64

	cells map[core.Cell]float64
}

// NewPenaltyMap creates an empty map with the given tuning.
func NewPenaltyMap(cfg core.Config) *PenaltyMap {
	return &PenaltyMap{
		increment: cfg.PenaltyIncrement,
		decay:     cfg.PenaltyDecay,
		cap:       cfg.MaxCellPenalty,
		cells:     make(map[core.Cell]float64),
	}
}

// Penalty returns the current congestion cost of c, zero for untouched
// cells.
func (p *PenaltyMap) Penalty(c core.Cell) float64 {
	return p.cells[c]
}

// RecordPresence bumps the penalty of c, saturating at the per-cell cap.
func (p *PenaltyMap) RecordPresence(c core.Cell) {
	v := p.cells[c] + p.increment
	if v > p.cap {
		v = p.cap
	}
	p.cells[c] = v
}

// Decay shrinks every entry by the decay factor and drops entries near
// zero. Called exactly once per tick, after all RecordPresence calls.
func (p *PenaltyMap) Decay() {
	for c, v := range p.cells {
		v *= p.decay
		if v < dropBelow {
			delete(p.cells, c)
		} else {
			p.cells[c] = v
		}
	}
}

// Len returns the number of live entries, for tests and stats.
func (p *PenaltyMap) Len() int {
	return len(p.cells)
}
