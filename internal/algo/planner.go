package algo

import "github.com/parcelworks/logisim/internal/core"

// PlanMode selects which search a planning call runs.
type PlanMode int

const (
	// PlanSpatial is the cheap timeless search, used while an agent is
	// moving freely.
	PlanSpatial PlanMode = iota
	// PlanSpaceTime is the reservation-aware timed search, used once an
	// agent has started waiting or when forced globally.
	PlanSpaceTime
)

func (m PlanMode) String() string {
	if m == PlanSpaceTime {
		return "SPACE_TIME"
	}
	return "SPATIAL"
}

// Plan picks a search mode for the agent, runs it, and returns the
// future cells of the resulting path with the start cell stripped. A nil
// result means no route was found this tick.
//
// Mode selection: a freely moving agent (wait == 0) plans spatially
// unless space-time search is globally forced. Any wait escalates to the
// space-time search. Switching modes releases the agent's reservations,
// since a spatial path makes no timing claims.
func (p *Planner) Plan(v AgentView, start, goal core.Cell, blocked, avoid CellSet, now int) ([]core.Cell, PlanMode) {
	mode := PlanSpaceTime
	if v.Wait == 0 && !p.cfg.UseSpaceTime {
		mode = PlanSpatial
	}

	if last, ok := p.lastUse[v.ID]; ok && last != mode {
		p.res.Release(v.ID)
	}
	p.lastUse[v.ID] = mode

	var path []core.Cell
	switch mode {
	case PlanSpatial:
		path = p.FindPath(v, start, goal, blocked, avoid)
	case PlanSpaceTime:
		path = p.FindPathSpaceTime(v, start, goal, now, blocked, avoid)
	}

	if len(path) > 0 && path[0] == start {
		path = path[1:]
	}
	if len(path) == 0 {
		return nil, mode
	}
	return path, mode
}

// Forget drops planner bookkeeping and reservations for an agent that
// left the simulation.
func (p *Planner) Forget(agentID int) {
	delete(p.lastUse, agentID)
	p.res.Release(agentID)
}
