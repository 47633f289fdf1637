package sim

import (
	"fmt"
	"sort"

	"github.com/parcelworks/logisim/internal/algo"
	"github.com/parcelworks/logisim/internal/core"
	"github.com/parcelworks/logisim/internal/risk"
)

// evacRadius is how close to an active dropoff an idle agent must be
// before it is asked to clear out of a critical path.
const evacRadius = 2

// Controller owns all mutable simulation state and drives the
// seven-phase tick. It is strictly single-threaded: one tick completes
// before the next begins, and no component keeps references into another
// component's internals across ticks.
type Controller struct {
	cfg  core.Config
	grid *core.Grid

	agents   []*core.Agent
	packages []*core.Package

	pen      *algo.PenaltyMap
	planner  *algo.Planner
	manager  *AgentManager
	resolver *DeadlockResolver

	observers []Observer
	stats     Stats
	tick      int
	done      bool
}

// NewController assembles a simulation over pre-validated inputs. The
// scorer may be nil; risk weighting then degrades to zero.
func NewController(grid *core.Grid, agents []*core.Agent, packages []*core.Package, scorer risk.Scorer, cfg core.Config) *Controller {
	c := &Controller{
		cfg:      cfg,
		grid:     grid,
		agents:   agents,
		packages: packages,
	}
	c.pen = algo.NewPenaltyMap(cfg)
	c.planner = algo.NewPlanner(grid, c.pen, algo.NewReservationTable(), scorer, cfg)
	c.manager = NewAgentManager(grid, agents, packages, c.planner, cfg, c.emit)
	c.resolver = NewDeadlockResolver(grid, agents, packages, cfg)
	return c
}

// AddObserver registers a sink for tick events. Observers run
// synchronously inside the tick, in registration order.
func (c *Controller) AddObserver(o Observer) {
	c.observers = append(c.observers, o)
}

func (c *Controller) emit(e Event) {
	e.Tick = c.tick
	for _, o := range c.observers {
		o.Observe(e)
	}
}

// Tick returns the index of the last completed tick.
func (c *Controller) Tick() int { return c.tick }

// Done reports whether the run has terminated.
func (c *Controller) Done() bool { return c.done }

// Stats returns the aggregate counters so far.
func (c *Controller) Stats() Stats { return c.stats }

// Agents exposes the live agent collection. Read-only by convention:
// only the sim package mutates agents.
func (c *Controller) Agents() []*core.Agent { return c.agents }

// Packages exposes the live package collection, same convention.
func (c *Controller) Packages() []*core.Package { return c.packages }

// Grid returns the immutable grid.
func (c *Controller) Grid() *core.Grid { return c.grid }

// Config returns the tuning in effect.
func (c *Controller) Config() core.Config { return c.cfg }

// Penalties exposes the live penalty map for rendering overlays.
func (c *Controller) Penalties() *algo.PenaltyMap { return c.pen }

// Run advances ticks until the run terminates.
func (c *Controller) Run() Stats {
	for !c.done {
		c.Step()
	}
	return c.stats
}

// Step advances the simulation by exactly one tick through the seven
// phases: maintenance, deadlock detection, critical-path evacuation,
// decisions, planning, execution, final repair. Calling Step after the
// run is done is a no-op.
func (c *Controller) Step() {
	if c.done {
		return
	}
	c.tick++

	c.phaseMaintenance()
	c.phaseDeadlocks()
	c.phaseEvacuation()
	c.phaseDecisions()

	order := c.priorityOrder()
	reserved := make(algo.CellSet)
	planned := c.phasePlanning(order, reserved)
	c.phaseExecution(order, planned, reserved)
	c.phaseRepair(reserved)

	c.endOfTick()
}

// phaseMaintenance repairs broken state and keeps idle agents employed.
func (c *Controller) phaseMaintenance() {
	c.manager.FixStates(c.tick)
	c.manager.CleanupOrphans()
	c.manager.ReassignStuck(c.tick)
	c.manager.AssignIdleWork(c.tick)
}

// phaseDeadlocks detects and breaks groups of mutually blocked agents.
func (c *Controller) phaseDeadlocks() {
	for _, group := range c.resolver.DetectGroups() {
		c.resolver.ResolveGroup(group)
		c.stats.DeadlocksResolved++
		c.emit(Event{Kind: EventDeadlock, Detail: fmt.Sprintf("group %v resolved", group)})
	}
}

// phaseEvacuation handles oscillation resets, evacuation and yield
// timeouts, and asks idle agents squatting on a delivery route to step
// aside.
func (c *Controller) phaseEvacuation() {
	crit := c.resolver.CriticalPaths()

	for _, a := range c.agents {
		a.RecordPosition()
		if a.Oscillating(5) {
			c.emit(Event{Kind: EventAnomaly, AgentID: a.ID, Agent: a.Name,
				Detail: fmt.Sprintf("oscillating at %v in %s/%s", a.Pos, a.State, a.Mode)})
			c.stats.Anomalies++
			c.manager.ForceReset(a)
			c.planner.Forget(a.ID)
			continue
		}

		if a.State == core.Evacuating {
			if a.EvacSince == 0 {
				a.EvacSince = c.tick
			}
			arrived := a.EvacTarget != nil && a.Pos == *a.EvacTarget
			if c.tick-a.EvacSince > c.cfg.EvacTimeout || arrived {
				c.manager.ForceReset(a)
				continue
			}
		} else {
			a.EvacSince = 0
		}

		if a.Mode == core.ModeYielding {
			if a.YieldSince == 0 {
				a.YieldSince = c.tick
			}
			if c.tick-a.YieldSince > c.cfg.YieldTimeout {
				a.Mode = core.ModeNormal
				a.YieldTo = core.NoID
				a.YieldSince = 0
				a.Path = nil
				a.Wait = 0
			}
		} else {
			a.YieldSince = 0
		}

		if a.State == core.Idle || a.State == core.Home {
			if _, blocking := c.resolver.InCriticalPath(a, crit); !blocking {
				continue
			}
			if !c.resolver.NearActiveDropoff(a, evacRadius) {
				continue
			}
			spot, ok := c.resolver.FindEvacuationSpot(a, crit, nil)
			if !ok || core.Manhattan(a.Pos, spot) > 3 {
				continue
			}
			t := spot
			a.EvacTarget = &t
			a.State = core.Evacuating
			a.EvacSince = c.tick
			a.Wait = 0
			c.manager.PlanTo(a, spot, nil, c.tick)
			c.emit(Event{Kind: EventEvacuate, AgentID: a.ID, Agent: a.Name, From: a.Pos, To: spot})
		}
	}
}

// phaseDecisions climbs the backoff ladder for every agent that has been
// waiting too long.
func (c *Controller) phaseDecisions() {
	for _, a := range c.agents {
		if a.Wait < c.cfg.YieldThreshold {
			continue
		}
		dir := c.resolver.MakeDecisiveAction(a)
		switch dir.Kind {
		case ActYield:
			c.manager.PlanTo(a, dir.Target, nil, c.tick)
			if len(a.Path) == 0 {
				a.Path = []core.Cell{dir.Target}
			}
			t := dir.Target
			a.EvacTarget = &t
			a.State = core.Evacuating
			a.Wait = 0
			c.stats.Yields++
			c.emit(Event{Kind: EventYield, AgentID: a.ID, Agent: a.Name, From: a.Pos, To: dir.Target,
				Detail: fmt.Sprintf("yield to agent %d", a.YieldTo)})

		case ActRetreat:
			a.Path = dir.Path
			a.Wait = 0
			c.stats.Retreats++
			c.emit(Event{Kind: EventRetreat, AgentID: a.ID, Agent: a.Name,
				From: a.Pos, To: dir.Path[len(dir.Path)-1]})

		case ActEmergency:
			a.Path = []core.Cell{dir.Target}
			a.Wait = 0
			c.stats.Emergencies++
			c.emit(Event{Kind: EventEmergency, AgentID: a.ID, Agent: a.Name, From: a.Pos, To: dir.Target})

		case ActRepath:
			a.Path = nil
			a.Wait = 0
			c.emit(Event{Kind: EventRepath, AgentID: a.ID, Agent: a.Name, From: a.Pos})
		}
	}
}

// priorityOrder returns the agents sorted for planning and execution:
// priority descending, id ascending on ties.
func (c *Controller) priorityOrder() []*core.Agent {
	order := make([]*core.Agent, len(c.agents))
	copy(order, c.agents)
	sort.SliceStable(order, func(i, j int) bool {
		pi, pj := order[i].Priority(), order[j].Priority()
		if pi != pj {
			return pi > pj
		}
		return order[i].ID < order[j].ID
	})
	return order
}

// phasePlanning produces a planned next cell for every agent, planning
// fresh paths where needed, and runs the idle/home employment logic.
// Higher-priority agents plan first so that later planners route around
// the cells they will occupy.
func (c *Controller) phasePlanning(order []*core.Agent, reserved algo.CellSet) map[int]core.Cell {
	planned := make(map[int]core.Cell, len(order))

	for _, a := range order {
		if a.State != core.Idle && a.State != core.Home && len(a.Path) == 0 {
			if target, ok := c.targetOf(a); ok {
				if a.Wait > 2 {
					a.ClearFailed()
				}
				c.manager.PlanTo(a, target, reserved, c.tick)
			}
		}

		if next, ok := a.NextCell(); ok && c.grid.IsFree(next) {
			planned[a.ID] = next
		} else {
			planned[a.ID] = a.Pos
		}

		switch a.State {
		case core.Idle:
			c.planIdle(a, reserved)
		case core.Home:
			if a.Pos == a.Home {
				a.State = core.Idle
				a.Path = nil
				a.Mode = core.ModeNormal
				a.Wait = 0
				a.ClearFailed()
			} else if len(a.Path) == 0 {
				c.manager.PlanTo(a, a.Home, reserved, c.tick)
			}
		}
	}
	return planned
}

// targetOf resolves the goal cell implied by the agent's state.
func (c *Controller) targetOf(a *core.Agent) (core.Cell, bool) {
	switch a.State {
	case core.ToPickup:
		if pkg := c.manager.packageByID(a.PackageID); pkg != nil {
			return pkg.Pickup, true
		}
	case core.ToDropoff:
		if pkg := c.manager.packageByID(a.PackageID); pkg != nil {
			return pkg.Dropoff, true
		}
	case core.Home:
		return a.Home, true
	case core.Evacuating:
		if a.EvacTarget != nil {
			return *a.EvacTarget, true
		}
	}
	return core.Cell{}, false
}

// planIdle gives an idle agent something to do: resume an interrupted
// assignment, request fresh work, or head home.
func (c *Controller) planIdle(a *core.Agent, reserved algo.CellSet) {
	a.ClearFailed()

	if a.PackageID != core.NoID {
		pkg := c.manager.packageByID(a.PackageID)
		if pkg != nil {
			switch pkg.State {
			case core.Picked:
				a.State = core.ToDropoff
				a.Wait = 0
				c.manager.PlanTo(a, pkg.Dropoff, reserved, c.tick)
				return
			case core.Waiting:
				a.State = core.ToPickup
				a.Wait = 0
				c.manager.PlanTo(a, pkg.Pickup, reserved, c.tick)
				return
			}
		}
	}

	if pkg := c.manager.RequestPackage(a); pkg != nil {
		a.State = core.ToPickup
		a.Mode = core.ModeNormal
		a.Wait = 0
		a.ClearFailed()
		c.manager.PlanTo(a, pkg.Pickup, reserved, c.tick)
		return
	}

	if a.Pos != a.Home {
		a.State = core.Home
		a.Wait = 0
		c.manager.PlanTo(a, a.Home, reserved, c.tick)
	}
}

// isSwap reports whether executing a's move would exchange cells with
// another agent's planned move this tick.
func (c *Controller) isSwap(a *core.Agent, next core.Cell, planned map[int]core.Cell) bool {
	for _, other := range c.agents {
		if other.ID == a.ID {
			continue
		}
		if on, ok := planned[other.ID]; ok && on == a.Pos && next == other.Pos {
			return true
		}
	}
	return false
}

// phaseExecution applies at most one move per agent, in priority order,
// with collision arbitration: the first (highest-priority) agent to
// claim a cell gets it, later claimants are blocked and wait. Position
// swaps between two agents in the same tick are rejected outright.
func (c *Controller) phaseExecution(order []*core.Agent, planned map[int]core.Cell, reserved algo.CellSet) {
	for _, a := range order {
		next, ok := planned[a.ID]
		if !ok {
			next = a.Pos
		}

		if next == a.Pos {
			reserved[a.Pos] = struct{}{}
			if a.State != core.Idle {
				a.Wait++
			}
			a.Momentum = max(0, a.Momentum-1)
			continue
		}

		occupied := c.resolver.occupantOf(next, a.ID) != nil
		if !c.grid.IsFree(next) || occupied || reserved.Has(next) || !c.manager.CanEnter(a, next) {
			a.Wait++
			a.MarkFailed(next)
			reserved[a.Pos] = struct{}{}
			a.Momentum = 0
			a.RecentBlocks++
			c.stats.Blocks++
			c.emit(Event{Kind: EventBlock, AgentID: a.ID, Agent: a.Name, From: a.Pos, To: next})
			if c.grid.IsFree(next) && !c.manager.CanEnter(a, next) {
				// Entry rules, not congestion: the path itself is wrong.
				a.Path = nil
			}
			continue
		}

		if c.isSwap(a, next, planned) {
			a.Wait++
			reserved[a.Pos] = struct{}{}
			a.Momentum = 0
			continue
		}

		c.executeMove(a, next, reserved)
	}
}

// executeMove commits one step and runs the arrival transitions.
func (c *Controller) executeMove(a *core.Agent, next core.Cell, reserved algo.CellSet) {
	from := a.Pos
	newDir := core.DirectionBetween(from, next)
	if core.IsTurn(a.Dir, newDir) {
		a.TotalTurns++
		c.stats.Turns++
		a.Momentum = max(0, a.Momentum-2)
	} else {
		a.Momentum = min(5, a.Momentum+1)
	}
	a.Dir = newDir
	a.Pos = next
	a.ClearHistory()
	if len(a.Path) > 0 && a.Path[0] == next {
		a.Path = a.Path[1:]
	}
	reserved[next] = struct{}{}
	a.Wait = 0
	a.TotalMoves++
	a.RecentMoves++
	c.stats.Moves++
	c.emit(Event{Kind: EventMove, AgentID: a.ID, Agent: a.Name, From: from, To: next,
		Detail: fmt.Sprintf("%s/%s", a.State, a.Mode)})

	if a.Mode != core.ModeNormal {
		if a.State != core.Evacuating || (a.EvacTarget != nil && a.Pos == *a.EvacTarget) {
			a.Mode = core.ModeNormal
			a.YieldTo = core.NoID
		}
	}

	switch a.State {
	case core.ToPickup:
		pkg := c.manager.packageByID(a.PackageID)
		if pkg != nil && a.Pos == pkg.Pickup {
			pkg.State = core.Picked
			a.State = core.ToDropoff
			a.Mode = core.ModeNormal
			a.ClearFailed()
			c.stats.Pickups++
			c.emit(Event{Kind: EventPickup, AgentID: a.ID, Agent: a.Name, To: a.Pos, PackageID: pkg.ID})
			c.manager.PlanTo(a, pkg.Dropoff, reserved, c.tick)
		}

	case core.ToDropoff:
		pkg := c.manager.packageByID(a.PackageID)
		if pkg != nil && a.Pos == pkg.Dropoff {
			pkg.State = core.Delivered
			pkg.AssignedTo = core.NoID
			a.PackageID = core.NoID
			a.State = core.Home
			a.Mode = core.ModeNormal
			a.ClearFailed()
			c.stats.Dropoffs++
			c.emit(Event{Kind: EventDropoff, AgentID: a.ID, Agent: a.Name, To: a.Pos, PackageID: pkg.ID})
			c.manager.PlanTo(a, a.Home, reserved, c.tick)
		}

	case core.Home:
		if a.Pos == a.Home {
			a.State = core.Idle
			a.Path = nil
			a.Mode = core.ModeNormal
			a.Wait = 0
			a.ClearFailed()
		}

	case core.Evacuating:
		if a.EvacTarget != nil && a.Pos == *a.EvacTarget {
			a.State = core.Idle
			a.EvacTarget = nil
			a.Path = nil
			a.Mode = core.ModeNormal
			a.YieldTo = core.NoID
		}
	}
}

// phaseRepair replans for agents left without a usable path after
// execution, so the next tick starts clean.
func (c *Controller) phaseRepair(reserved algo.CellSet) {
	for _, a := range c.agents {
		switch a.State {
		case core.Idle:
			if a.PackageID == core.NoID && a.Pos != a.Home {
				a.State = core.Home
				c.manager.PlanTo(a, a.Home, reserved, c.tick)
			}

		case core.ToPickup, core.ToDropoff, core.Home, core.Evacuating:
			if len(a.Path) > 0 || a.Wait <= c.cfg.YieldThreshold {
				continue
			}
			target, ok := c.targetOf(a)
			if !ok {
				continue
			}
			c.manager.PlanTo(a, target, reserved, c.tick)
			if len(a.Path) > 0 {
				a.Wait = 0
				a.ClearFailed()
			}
		}
	}
}

// endOfTick updates the traffic model, prunes expired reservations,
// decays the recent-activity counters and checks termination.
func (c *Controller) endOfTick() {
	for _, a := range c.agents {
		c.pen.RecordPresence(a.Pos)
		if c.tick%5 == 0 {
			a.RecentMoves /= 2
			a.RecentBlocks /= 2
		}
	}
	c.pen.Decay()
	c.planner.Reservations().Prune(c.tick)
	c.stats.Ticks = c.tick

	if c.tick >= c.cfg.MaxSteps {
		c.done = true
		return
	}
	if !c.manager.AllDelivered() {
		return
	}
	for _, a := range c.agents {
		switch a.State {
		case core.Idle:
		case core.Home:
			if a.Pos != a.Home {
				return
			}
		default:
			return
		}
	}
	c.done = true
}
