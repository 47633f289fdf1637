package sim

import (
	"github.com/parcelworks/logisim/internal/algo"
	"github.com/parcelworks/logisim/internal/core"
)

// waitChainDepth bounds how far a wait chain is followed before giving up.
const waitChainDepth = 10

// DirectiveKind is the outcome of the decision ladder for a stuck agent.
type DirectiveKind int

const (
	ActWait DirectiveKind = iota
	ActYield
	ActRetreat
	ActEmergency
	ActRepath
)

func (k DirectiveKind) String() string {
	return [...]string{"WAIT", "YIELD", "RETREAT", "EMERGENCY", "REPATH"}[k]
}

// Directive tells the controller what remedy to apply to a stuck agent.
// Target is set for YIELD and EMERGENCY, Path for RETREAT.
type Directive struct {
	Kind   DirectiveKind
	Target core.Cell
	Path   []core.Cell
}

// DeadlockResolver detects groups of mutually blocked agents and decides
// who moves, who yields and who gets forced out of the way. It reads and
// writes live agent state but never moves an agent itself; the controller
// executes the resulting paths.
type DeadlockResolver struct {
	grid     *core.Grid
	agents   []*core.Agent
	packages []*core.Package
	cfg      core.Config
}

// NewDeadlockResolver wires the resolver to the shared collections.
func NewDeadlockResolver(grid *core.Grid, agents []*core.Agent, packages []*core.Package, cfg core.Config) *DeadlockResolver {
	return &DeadlockResolver{grid: grid, agents: agents, packages: packages, cfg: cfg}
}

func (d *DeadlockResolver) agentByID(id int) *core.Agent {
	for _, a := range d.agents {
		if a.ID == id {
			return a
		}
	}
	return nil
}

// occupantOf returns the agent standing on c, excluding exceptID.
func (d *DeadlockResolver) occupantOf(c core.Cell, exceptID int) *core.Agent {
	for _, a := range d.agents {
		if a.ID != exceptID && a.Pos == c {
			return a
		}
	}
	return nil
}

// blockerOf returns the agent occupying a's planned next cell, if any.
func (d *DeadlockResolver) blockerOf(a *core.Agent) *core.Agent {
	next, ok := a.NextCell()
	if !ok {
		return nil
	}
	return d.occupantOf(next, a.ID)
}

// TraceWaitChain follows the wait-dependency relation from a: each hop is
// the agent occupying the previous agent's next cell. The chain ends at a
// free-moving agent, a repeat (cycle) or the depth bound.
func (d *DeadlockResolver) TraceWaitChain(a *core.Agent) []int {
	chain := []int{a.ID}
	cur := a
	for i := 0; i < waitChainDepth; i++ {
		next := d.blockerOf(cur)
		if next == nil {
			break
		}
		for _, id := range chain {
			if id == next.ID {
				return append(chain, next.ID)
			}
		}
		chain = append(chain, next.ID)
		cur = next
	}
	return chain
}

// DetectGroups finds clusters of mutually blocked agents this tick. Only
// agents past the decision threshold are considered; a pair waiting on
// each other or a wait chain that closes into a cycle forms a group.
func (d *DeadlockResolver) DetectGroups() [][]int {
	var groups [][]int
	var waiting []*core.Agent
	for _, a := range d.agents {
		if a.Wait > d.cfg.DecisionThreshold {
			waiting = append(waiting, a)
		}
	}
	if len(waiting) < 2 {
		return nil
	}

	inGroup := make(map[int]bool)
	addGroup := func(ids []int) {
		var fresh []int
		for _, id := range ids {
			if !inGroup[id] {
				inGroup[id] = true
				fresh = append(fresh, id)
			}
		}
		if len(fresh) >= 2 {
			groups = append(groups, fresh)
		}
	}

	for _, a := range waiting {
		if inGroup[a.ID] {
			continue
		}
		next, ok := a.NextCell()
		if !ok {
			continue
		}
		for _, b := range waiting {
			if b.ID == a.ID || b.Pos != next {
				continue
			}
			if bn, ok := b.NextCell(); ok && bn == a.Pos {
				addGroup([]int{a.ID, b.ID})
			}
			break
		}
		if inGroup[a.ID] {
			continue
		}
		chain := d.TraceWaitChain(a)
		if len(chain) >= 3 && chain[0] == chain[len(chain)-1] {
			addGroup(chain[:len(chain)-1])
		}
	}
	return groups
}

// ResolveGroup breaks one detected group. The highest-priority member
// (ties to the lowest id) keeps its planned move; every other member is
// switched to YIELDING/EVACUATING with a one-step retreat. A member with
// no retreat cell, or one already past the deadlock threshold, escalates
// to FORCED with an emergency move instead.
func (d *DeadlockResolver) ResolveGroup(group []int) {
	if len(group) < 2 {
		return
	}

	var mover *core.Agent
	for _, id := range group {
		a := d.agentByID(id)
		if a == nil {
			continue
		}
		if mover == nil || a.Priority() > mover.Priority() ||
			(a.Priority() == mover.Priority() && a.ID < mover.ID) {
			mover = a
		}
	}
	if mover == nil {
		return
	}

	for _, id := range group {
		a := d.agentByID(id)
		if a == nil || a.ID == mover.ID {
			continue
		}

		forced := a.Wait > d.cfg.DeadlockThreshold
		var spot core.Cell
		found := false
		if !forced {
			spot, found = d.retreatSpot(a)
		}
		if !found {
			spot, found = d.EmergencyMove(a)
			forced = true
		}
		if !found {
			// Boxed in completely; drop the path and let replanning
			// handle it next tick.
			a.Path = nil
			a.Mode = core.ModeForced
			continue
		}

		if forced {
			a.Mode = core.ModeForced
		} else {
			a.Mode = core.ModeYielding
		}
		a.State = core.Evacuating
		t := spot
		a.EvacTarget = &t
		a.Path = []core.Cell{spot}
		a.Wait = 0
	}
}

// retreatSpot finds a free adjacent cell that no other agent occupies or
// is about to enter.
func (d *DeadlockResolver) retreatSpot(a *core.Agent) (core.Cell, bool) {
	for _, dir := range core.Directions {
		n := a.Pos.Step(dir)
		if !d.grid.IsFree(n) || d.occupantOf(n, a.ID) != nil {
			continue
		}
		contested := false
		for _, other := range d.agents {
			if other.ID == a.ID {
				continue
			}
			if on, ok := other.NextCell(); ok && on == n {
				contested = true
				break
			}
		}
		if !contested {
			return n, true
		}
	}
	return core.Cell{}, false
}

// EmergencyMove finds any free adjacent cell not occupied by another
// agent, preferring cells outside the agent's failed set. Directions are
// probed in the fixed global order so runs stay reproducible.
func (d *DeadlockResolver) EmergencyMove(a *core.Agent) (core.Cell, bool) {
	for _, dir := range core.Directions {
		n := a.Pos.Step(dir)
		if !d.grid.IsFree(n) || d.occupantOf(n, a.ID) != nil {
			continue
		}
		if _, failed := a.FailedCells[n]; failed {
			continue
		}
		return n, true
	}
	a.ClearFailed()
	for _, dir := range core.Directions {
		n := a.Pos.Step(dir)
		if d.grid.IsFree(n) && d.occupantOf(n, a.ID) == nil {
			return n, true
		}
	}
	return core.Cell{}, false
}

// decideWhoYields picks which of two facing agents gives way: the less
// important one when the gap is clear, otherwise the one with the longer
// remaining path, otherwise the lower id.
func (d *DeadlockResolver) decideWhoYields(a, b *core.Agent) *core.Agent {
	ia, ib := a.Importance(), b.Importance()
	if diff := ia - ib; diff > 100 || diff < -100 {
		if ia < ib {
			return a
		}
		return b
	}
	la, lb := len(a.Path), len(b.Path)
	if la == 0 {
		la = 999
	}
	if lb == 0 {
		lb = 999
	}
	if la != lb {
		if la > lb {
			return a
		}
		return b
	}
	if a.ID < b.ID {
		return a
	}
	return b
}

// findYieldPosition picks a nearby cell for a to step aside to, staying
// off other's upcoming path and preferring wide cells far from it. The
// eight surrounding cells are all candidates so an agent can tuck into a
// diagonal pocket.
func (d *DeadlockResolver) findYieldPosition(a, other *core.Agent) (core.Cell, bool) {
	otherPath := algo.CellSet{other.Pos: {}}
	for i, c := range other.Path {
		if i >= 5 {
			break
		}
		otherPath[c] = struct{}{}
	}

	best := core.Cell{}
	bestScore := -999.0
	found := false
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			if dr == 0 && dc == 0 {
				continue
			}
			n := core.Cell{Row: a.Pos.Row + dr, Col: a.Pos.Col + dc}
			if !d.grid.IsFree(n) || d.occupantOf(n, a.ID) != nil || otherPath.Has(n) {
				continue
			}
			minDist := 0
			first := true
			for c := range otherPath {
				dist := core.Manhattan(n, c)
				if first || dist < minDist {
					minDist = dist
					first = false
				}
			}
			score := float64(d.grid.CorridorScore(n)) + float64(minDist)*2
			if score > bestScore {
				bestScore = score
				best = n
				found = true
			}
		}
	}
	return best, found
}

// findRetreatPath walks backwards along the agent's heading for up to
// steps free, unoccupied cells.
func (d *DeadlockResolver) findRetreatPath(a *core.Agent, steps int) []core.Cell {
	back := a.Dir.Opposite()
	if back.IsZero() {
		return nil
	}
	var path []core.Cell
	cur := a.Pos
	for i := 0; i < steps; i++ {
		n := cur.Step(back)
		if !d.grid.IsFree(n) || d.occupantOf(n, a.ID) != nil {
			break
		}
		path = append(path, n)
		cur = n
	}
	return path
}

// MakeDecisiveAction climbs the backoff ladder for a stuck agent and
// returns the remedy to apply. The ladder escalates with the wait
// counter: voluntary yield, forced replan, retreat or emergency move,
// then full deadlock handling which may displace the blocking agent.
func (d *DeadlockResolver) MakeDecisiveAction(a *core.Agent) Directive {
	wait := a.Wait

	if a.StuckAt != nil && *a.StuckAt == a.Pos {
		a.StuckCount++
	} else {
		p := a.Pos
		a.StuckAt = &p
		a.StuckCount = 1
	}

	if wait >= 3 && a.PackageID != core.NoID {
		a.ClearFailed()
	}

	if wait < d.cfg.YieldThreshold {
		return Directive{Kind: ActWait}
	}

	blocking := d.blockerOf(a)

	if wait < d.cfg.DecisionThreshold {
		if blocking != nil {
			if d.decideWhoYields(a, blocking) == a {
				if spot, ok := d.findYieldPosition(a, blocking); ok {
					a.Mode = core.ModeYielding
					a.YieldTo = blocking.ID
					return Directive{Kind: ActYield, Target: spot}
				}
			}
		}
		if len(a.Path) == 0 {
			a.ClearFailed()
			return Directive{Kind: ActRepath}
		}
		return Directive{Kind: ActWait}
	}

	if wait < d.cfg.ForceThreshold {
		a.ClearFailed()
		if next, ok := a.NextCell(); ok {
			a.MarkFailed(next)
		}
		a.Mode = core.ModeNormal
		return Directive{Kind: ActRepath}
	}

	if wait < d.cfg.DeadlockThreshold {
		a.ClearFailed()
		if path := d.findRetreatPath(a, 3); len(path) > 0 {
			a.Mode = core.ModeYielding
			return Directive{Kind: ActRetreat, Path: path}
		}
		if spot, ok := d.EmergencyMove(a); ok {
			a.Mode = core.ModeForced
			return Directive{Kind: ActEmergency, Target: spot}
		}
		return Directive{Kind: ActRepath}
	}

	// Past the deadlock threshold.
	a.ClearFailed()
	a.StuckCount = 0

	if a.State == core.Idle || a.State == core.Home {
		if spot, ok := d.EmergencyMove(a); ok {
			a.Mode = core.ModeForced
			return Directive{Kind: ActEmergency, Target: spot}
		}
	}

	// A far more important agent may shove its blocker aside.
	if blocking != nil && a.Importance() > blocking.Importance()+200 {
		if spot, ok := d.findYieldPosition(blocking, a); ok {
			blocking.Mode = core.ModeForced
			blocking.State = core.Evacuating
			t := spot
			blocking.EvacTarget = &t
			blocking.Path = []core.Cell{spot}
			return Directive{Kind: ActWait}
		}
	}

	if spot, ok := d.EmergencyMove(a); ok {
		a.Mode = core.ModeForced
		return Directive{Kind: ActEmergency, Target: spot}
	}
	return Directive{Kind: ActRepath}
}

// CriticalPaths collects the planned cells of every actively delivering
// agent, keyed by agent id.
func (d *DeadlockResolver) CriticalPaths() map[int]algo.CellSet {
	crit := make(map[int]algo.CellSet)
	for _, a := range d.agents {
		if a.State != core.ToDropoff || a.PackageID == core.NoID || len(a.Path) == 0 {
			continue
		}
		set := make(algo.CellSet, len(a.Path))
		for _, c := range a.Path {
			set[c] = struct{}{}
		}
		crit[a.ID] = set
	}
	return crit
}

// InCriticalPath reports whether a stands on some other agent's critical
// path, returning that agent's id.
func (d *DeadlockResolver) InCriticalPath(a *core.Agent, crit map[int]algo.CellSet) (int, bool) {
	for id, set := range crit {
		if id != a.ID && set.Has(a.Pos) {
			return id, true
		}
	}
	return 0, false
}

// NearActiveDropoff reports whether a is within radius of a dropoff cell
// some delivering agent is heading to.
func (d *DeadlockResolver) NearActiveDropoff(a *core.Agent, radius int) bool {
	for _, other := range d.agents {
		if other.State != core.ToDropoff || other.PackageID == core.NoID {
			continue
		}
		pkg := d.packageByID(other.PackageID)
		if pkg != nil && core.Manhattan(a.Pos, pkg.Dropoff) <= radius {
			return true
		}
	}
	return false
}

func (d *DeadlockResolver) packageByID(id int) *core.Package {
	for _, p := range d.packages {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// FindEvacuationSpot picks the best nearby cell for an idle agent to
// clear off the critical paths: first a wide adjacent cell, then a short
// BFS for a sheltered spot, finally any free neighbor at all.
func (d *DeadlockResolver) FindEvacuationSpot(a *core.Agent, crit map[int]algo.CellSet, reserved algo.CellSet) (core.Cell, bool) {
	allCrit := make(algo.CellSet)
	for _, set := range crit {
		for c := range set {
			allCrit[c] = struct{}{}
		}
	}

	for _, dir := range core.Directions {
		n := a.Pos.Step(dir)
		if !d.grid.IsFree(n) || d.occupantOf(n, a.ID) != nil || reserved.Has(n) {
			continue
		}
		if !allCrit.Has(n) && d.grid.CorridorScore(n) >= 4 {
			return n, true
		}
	}

	// BFS a few cells out, scoring shelter: wide cells, close by, and
	// corner pockets with walls on two sides.
	visited := map[core.Cell]bool{a.Pos: true}
	type qItem struct {
		cell core.Cell
		dist int
	}
	queue := []qItem{{a.Pos, 0}}
	best := core.Cell{}
	bestScore := -999.0
	found := false

	for len(queue) > 0 && len(visited) < 30 {
		item := queue[0]
		queue = queue[1:]
		if item.dist > 4 {
			continue
		}
		for _, dir := range core.Directions {
			n := item.cell.Step(dir)
			if visited[n] {
				continue
			}
			visited[n] = true
			if !d.grid.IsFree(n) {
				continue
			}
			blocked := d.occupantOf(n, a.ID) != nil || reserved.Has(n)
			if !blocked && !allCrit.Has(n) {
				score := float64(d.grid.CorridorScore(n))*2 - float64(item.dist+1)*0.5
				walls := 0
				for _, d2 := range core.Directions {
					if !d.grid.IsFree(n.Step(d2)) {
						walls++
					}
				}
				if walls >= 2 {
					score += 5
				}
				if score > bestScore {
					bestScore = score
					best = n
					found = true
				}
			}
			queue = append(queue, qItem{n, item.dist + 1})
		}
	}
	if found {
		return best, true
	}

	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			if dr == 0 && dc == 0 {
				continue
			}
			n := core.Cell{Row: a.Pos.Row + dr, Col: a.Pos.Col + dc}
			if d.grid.IsFree(n) && !reserved.Has(n) && d.occupantOf(n, a.ID) == nil {
				return n, true
			}
		}
	}
	return core.Cell{}, false
}
