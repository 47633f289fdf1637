package sim

import (
	"fmt"

	"github.com/parcelworks/logisim/internal/algo"
	"github.com/parcelworks/logisim/internal/core"
)

// AgentManager owns agent and package lifecycle: assignment, state
// transitions and repair of invalid combinations. It is the sole writer
// of the agent<->package link, in both directions.
type AgentManager struct {
	grid     *core.Grid
	agents   []*core.Agent
	packages []*core.Package
	planner  *algo.Planner
	cfg      core.Config
	emit     func(Event)
}

// NewAgentManager wires the manager to the shared collections. emit may
// be nil when no observer cares.
func NewAgentManager(grid *core.Grid, agents []*core.Agent, packages []*core.Package, planner *algo.Planner, cfg core.Config, emit func(Event)) *AgentManager {
	if emit == nil {
		emit = func(Event) {}
	}
	return &AgentManager{
		grid:     grid,
		agents:   agents,
		packages: packages,
		planner:  planner,
		cfg:      cfg,
		emit:     emit,
	}
}

func (m *AgentManager) agentByID(id int) *core.Agent {
	for _, a := range m.agents {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func (m *AgentManager) packageByID(id int) *core.Package {
	for _, p := range m.packages {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// view snapshots the fields planning reads from an agent.
func view(a *core.Agent) algo.AgentView {
	return algo.AgentView{
		ID:           a.ID,
		Dir:          a.Dir,
		Momentum:     a.Momentum,
		Wait:         a.Wait,
		Priority:     a.Priority(),
		State:        a.State,
		Mode:         a.Mode,
		RecentBlocks: a.RecentBlocks,
		RecentMoves:  a.RecentMoves,
	}
}

// BlockedFor builds the hard no-go set for one agent's planning call:
// every other agent's current cell plus the cells already claimed by
// higher-priority planners this tick.
func (m *AgentManager) BlockedFor(a *core.Agent, reserved algo.CellSet) algo.CellSet {
	blocked := make(algo.CellSet, len(m.agents)+len(reserved))
	for _, other := range m.agents {
		if other.ID != a.ID {
			blocked[other.Pos] = struct{}{}
		}
	}
	for c := range reserved {
		blocked[c] = struct{}{}
	}
	delete(blocked, a.Pos)
	return blocked
}

// AvoidFor builds the soft no-go set: cells an agent must not park on or
// cut through, but may enter when they are its own goal. Covers foreign
// in-use dropoffs and every still-waiting pickup cell.
func (m *AgentManager) AvoidFor(a *core.Agent) algo.CellSet {
	avoid := make(algo.CellSet)

	var myDropoff *core.Cell
	if a.PackageID != core.NoID && a.State == core.ToDropoff {
		if pkg := m.packageByID(a.PackageID); pkg != nil {
			myDropoff = &pkg.Dropoff
		}
	}
	var myPickup *core.Cell
	if a.PackageID != core.NoID && a.State == core.ToPickup {
		if pkg := m.packageByID(a.PackageID); pkg != nil {
			myPickup = &pkg.Pickup
		}
	}

	for _, pkg := range m.packages {
		if pkg.State == core.Picked && (myDropoff == nil || pkg.Dropoff != *myDropoff) {
			avoid[pkg.Dropoff] = struct{}{}
		}
		if pkg.State == core.Waiting && (myPickup == nil || pkg.Pickup != *myPickup) {
			avoid[pkg.Pickup] = struct{}{}
		}
	}
	return avoid
}

// CanEnter checks the pickup/dropoff entry rules for an executed move:
// an in-use dropoff admits only its deliverer, and a waiting pickup cell
// admits only the agent sent to collect it.
func (m *AgentManager) CanEnter(a *core.Agent, c core.Cell) bool {
	for _, pkg := range m.packages {
		if pkg.Dropoff == c && pkg.State == core.Picked {
			if !(a.PackageID == pkg.ID && a.State == core.ToDropoff) {
				return false
			}
		}
		if pkg.Pickup == c && pkg.State == core.Waiting {
			if !(a.PackageID == pkg.ID && a.State == core.ToPickup) {
				return false
			}
		}
	}
	return true
}

// PlanTo plans a path for a toward goal, honoring the shared blocked and
// avoid sets plus the agent's own failed cells. The resulting path (start
// stripped) replaces the agent's current one; nil on failure.
func (m *AgentManager) PlanTo(a *core.Agent, goal core.Cell, reserved algo.CellSet, now int) {
	blocked := m.BlockedFor(a, reserved)
	for c := range a.FailedCells {
		blocked[c] = struct{}{}
	}
	path, _ := m.planner.Plan(view(a), a.Pos, goal, blocked, m.AvoidFor(a), now)
	if path == nil {
		// Retry against actual positions only; the soft sets can
		// overconstrain a crowded map.
		path, _ = m.planner.Plan(view(a), a.Pos, goal, m.BlockedFor(a, nil), nil, now)
	}
	a.Path = path
}

// trafficDensity estimates how crowded the area around pos is, weighting
// nearby agents by inverse distance.
func (m *AgentManager) trafficDensity(pos core.Cell, exceptID int) float64 {
	density := 0.0
	for _, a := range m.agents {
		if a.ID == exceptID {
			continue
		}
		switch dist := core.Manhattan(pos, a.Pos); {
		case dist == 0:
			density += 10
		case dist <= 2:
			density += 5 / float64(dist)
		case dist <= 4:
			density += 2 / float64(dist)
		}
	}
	return density
}

// RequestPackage picks the cheapest waiting package for an idle agent,
// costing in pickup distance, leg length, congestion around the pickup,
// narrow-passage access and competition from closer busy agents. Returns
// nil when nothing is available. The assignment is written on both sides.
func (m *AgentManager) RequestPackage(a *core.Agent) *core.Package {
	var best *core.Package
	bestCost := 0.0
	for _, pkg := range m.packages {
		if pkg.State != core.Waiting || pkg.AssignedTo != core.NoID {
			continue
		}
		pickupDist := core.Manhattan(a.Pos, pkg.Pickup)
		dropoffDist := core.Manhattan(pkg.Pickup, pkg.Dropoff)

		passage := 0.0
		if m.grid.IsNarrowPassage(pkg.Pickup) {
			passage = 2.0
		}
		competing := 0
		for _, rb := range m.agents {
			if rb.ID != a.ID && rb.PackageID != core.NoID &&
				core.Manhattan(rb.Pos, pkg.Pickup) < pickupDist {
				competing++
			}
		}

		cost := float64(pickupDist) +
			float64(dropoffDist)*0.2 +
			m.trafficDensity(pkg.Pickup, a.ID)*1.5 +
			passage +
			float64(competing)*3.0

		if best == nil || cost < bestCost {
			best = pkg
			bestCost = cost
		}
	}
	if best == nil {
		return nil
	}
	best.AssignedTo = a.ID
	a.PackageID = best.ID
	return best
}

// AssignIdleWork hands the nearest unassigned waiting package to each
// idle agent, nearest pickup first, package order breaking ties. Agents
// that get work are planned toward their pickup immediately.
func (m *AgentManager) AssignIdleWork(now int) {
	for _, a := range m.agents {
		if a.State != core.Idle || a.PackageID != core.NoID {
			continue
		}
		a.ClearFailed()

		var best *core.Package
		bestDist := 0
		for _, pkg := range m.packages {
			if pkg.State != core.Waiting || pkg.AssignedTo != core.NoID {
				continue
			}
			dist := core.Manhattan(a.Pos, pkg.Pickup)
			if best == nil || dist < bestDist {
				best = pkg
				bestDist = dist
			}
		}
		if best == nil {
			continue
		}

		best.AssignedTo = a.ID
		a.PackageID = best.ID
		a.State = core.ToPickup
		a.Mode = core.ModeNormal
		a.Wait = 0
		a.ClearFailed()
		m.PlanTo(a, best.Pickup, nil, now)
	}
}

// FixStates repairs invalid agent/package combinations before anything
// else runs in the tick. Inconsistencies are anomalies worth reporting,
// never fatal.
func (m *AgentManager) FixStates(now int) {
	for _, a := range m.agents {
		if a.PackageID == core.NoID {
			if a.State == core.ToPickup || a.State == core.ToDropoff {
				m.emit(Event{Tick: now, Kind: EventAnomaly, AgentID: a.ID, Agent: a.Name,
					Detail: fmt.Sprintf("%s with no package, resetting to IDLE", a.State)})
				a.State = core.Idle
				a.Path = nil
				a.Wait = 0
			}
			continue
		}

		pkg := m.packageByID(a.PackageID)
		switch {
		case pkg == nil || pkg.State == core.Delivered:
			m.emit(Event{Tick: now, Kind: EventAnomaly, AgentID: a.ID, Agent: a.Name,
				Detail: "assigned package gone or delivered, clearing link"})
			a.PackageID = core.NoID
			if a.State == core.ToPickup || a.State == core.ToDropoff {
				a.State = core.Idle
				a.Path = nil
				a.Wait = 0
			}

		case pkg.AssignedTo != a.ID:
			// Two agents believe they own the package; the recorded
			// assignee keeps it.
			m.emit(Event{Tick: now, Kind: EventAnomaly, AgentID: a.ID, Agent: a.Name, PackageID: pkg.ID,
				Detail: "package assigned to another agent, dropping claim"})
			a.PackageID = core.NoID
			if a.State == core.ToPickup || a.State == core.ToDropoff {
				a.State = core.Idle
				a.Path = nil
				a.Wait = 0
			}

		case pkg.State == core.Picked && a.State == core.Idle:
			m.emit(Event{Tick: now, Kind: EventAnomaly, AgentID: a.ID, Agent: a.Name, PackageID: pkg.ID,
				Detail: "holding picked package while IDLE, resuming delivery"})
			a.State = core.ToDropoff
			a.Wait = 0
			a.ClearFailed()
			m.PlanTo(a, pkg.Dropoff, nil, now)

		case pkg.State == core.Waiting && a.State == core.Idle:
			m.emit(Event{Tick: now, Kind: EventAnomaly, AgentID: a.ID, Agent: a.Name, PackageID: pkg.ID,
				Detail: "assigned waiting package while IDLE, resuming pickup"})
			a.State = core.ToPickup
			a.Wait = 0
			a.ClearFailed()
			m.PlanTo(a, pkg.Pickup, nil, now)
		}
	}
}

// CleanupOrphans releases waiting packages whose recorded assignee is no
// longer actually working on them.
func (m *AgentManager) CleanupOrphans() {
	for _, pkg := range m.packages {
		if pkg.State != core.Waiting || pkg.AssignedTo == core.NoID {
			continue
		}
		a := m.agentByID(pkg.AssignedTo)
		working := a != nil && a.PackageID == pkg.ID &&
			(a.State == core.ToPickup || a.State == core.ToDropoff)
		if !working {
			pkg.AssignedTo = core.NoID
		}
	}
}

// ReassignStuck moves a waiting package from a badly stuck collector to a
// closer free agent, if one exists.
func (m *AgentManager) ReassignStuck(now int) {
	for _, pkg := range m.packages {
		if pkg.State != core.Waiting || pkg.AssignedTo == core.NoID {
			continue
		}
		holder := m.agentByID(pkg.AssignedTo)
		if holder == nil || holder.Wait <= m.cfg.ReassignThreshold {
			continue
		}

		var best *core.Agent
		bestDist := core.Manhattan(holder.Pos, pkg.Pickup)
		for _, rb := range m.agents {
			if rb.ID == holder.ID {
				continue
			}
			if rb.State != core.Idle && rb.State != core.Home {
				continue
			}
			if rb.Wait > m.cfg.YieldThreshold {
				continue
			}
			if dist := core.Manhattan(rb.Pos, pkg.Pickup); dist < bestDist {
				bestDist = dist
				best = rb
			}
		}
		if best == nil {
			continue
		}

		holder.PackageID = core.NoID
		holder.State = core.Idle
		holder.Path = nil
		holder.ClearFailed()

		pkg.AssignedTo = best.ID
		best.PackageID = pkg.ID
		best.State = core.ToPickup
		best.Mode = core.ModeNormal
		best.Wait = 0
		best.ClearFailed()
		m.PlanTo(best, pkg.Pickup, nil, now)

		m.emit(Event{Tick: now, Kind: EventAnomaly, AgentID: best.ID, Agent: best.Name, PackageID: pkg.ID,
			Detail: fmt.Sprintf("package reassigned from stuck %s", holder.Name)})
	}
}

// ForceReset knocks a hopelessly stuck agent back to a clean IDLE,
// releasing its waiting package for someone else.
func (m *AgentManager) ForceReset(a *core.Agent) {
	a.State = core.Idle
	a.Mode = core.ModeNormal
	a.Path = nil
	a.EvacTarget = nil
	a.YieldTo = core.NoID
	a.Wait = 0
	a.StuckAt = nil
	a.StuckCount = 0
	a.EvacSince = 0
	a.YieldSince = 0
	a.Momentum = 0
	a.ClearFailed()
	a.ClearHistory()

	if a.PackageID != core.NoID {
		if pkg := m.packageByID(a.PackageID); pkg != nil && pkg.State == core.Waiting {
			pkg.AssignedTo = core.NoID
			a.PackageID = core.NoID
		}
	}
}

// AllDelivered reports whether every package has reached its terminal
// state.
func (m *AgentManager) AllDelivered() bool {
	for _, pkg := range m.packages {
		if pkg.State != core.Delivered {
			return false
		}
	}
	return true
}
