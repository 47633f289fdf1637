package core

// historyWindow bounds the per-agent position history used for
// oscillation detection.
const historyWindow = 10

// Agent is one autonomous unit on the grid. All mutation happens inside a
// tick, under the controller; nothing outside the sim package writes to an
// Agent.
type Agent struct {
	ID   int
	Name string

	Pos  Cell
	Home Cell
	Dir  Direction // heading of the last executed move

	State AgentState
	Mode  AgentMode

	// PackageID links to the assigned package, NoID when empty. The
	// matching Package.AssignedTo back-link is maintained by the
	// AgentManager only.
	PackageID int

	// Path holds the remaining planned cells, next step first. An empty
	// path means "stay put until replanned".
	Path []Cell

	// Wait counts consecutive ticks without productive movement. Any
	// executed move resets it, including retreats and emergency moves.
	Wait     int
	Momentum int

	// FailedCells are next-step cells that recently blocked this agent;
	// the planner avoids them until the set is cleared.
	FailedCells map[Cell]struct{}

	EvacTarget *Cell
	YieldTo    int
	EvacSince  int // tick the current evacuation started, 0 when not evacuating
	YieldSince int // tick the current yield started, 0 when not yielding

	StuckAt    *Cell
	StuckCount int

	// Short move/block counters feeding the risk scorer. Decayed each
	// tick so they describe the recent past, not the whole run.
	RecentMoves  int
	RecentBlocks int

	TotalMoves int
	TotalTurns int

	posHistory []Cell
}

// NewAgent creates an idle agent parked at its home cell.
func NewAgent(id int, name string, home Cell) *Agent {
	return &Agent{
		ID:          id,
		Name:        name,
		Pos:         home,
		Home:        home,
		State:       Idle,
		Mode:        ModeNormal,
		PackageID:   NoID,
		YieldTo:     NoID,
		FailedCells: make(map[Cell]struct{}),
	}
}

// NextCell returns the agent's planned next step, if any.
func (a *Agent) NextCell() (Cell, bool) {
	if len(a.Path) == 0 {
		return Cell{}, false
	}
	return a.Path[0], true
}

// ClearFailed forgets all recently blocked cells.
func (a *Agent) ClearFailed() {
	for c := range a.FailedCells {
		delete(a.FailedCells, c)
	}
}

// MarkFailed records a cell that blocked the agent this tick.
func (a *Agent) MarkFailed(c Cell) {
	a.FailedCells[c] = struct{}{}
}

// RecordPosition appends the current position to the oscillation history.
func (a *Agent) RecordPosition() {
	a.posHistory = append(a.posHistory, a.Pos)
	if len(a.posHistory) > historyWindow {
		a.posHistory = a.posHistory[1:]
	}
}

// ClearHistory resets the oscillation history, called after a real move.
func (a *Agent) ClearHistory() {
	a.posHistory = a.posHistory[:0]
}

// Oscillating reports whether the agent has been bouncing between a
// handful of cells: at least window recorded positions covering no more
// than three distinct cells.
func (a *Agent) Oscillating(window int) bool {
	if len(a.posHistory) < window {
		return false
	}
	recent := a.posHistory[len(a.posHistory)-window:]
	distinct := make(map[Cell]struct{}, window)
	for _, c := range recent {
		distinct[c] = struct{}{}
	}
	return len(distinct) <= 3
}

// Priority ranks agents for narrow-passage costing, planning order and
// collision arbitration. Delivering beats fetching beats everything else;
// long waits and momentum break ties upward, long remaining paths
// downward.
func (a *Agent) Priority() int {
	base := 0
	switch a.State {
	case ToDropoff:
		base = 3000
	case ToPickup:
		base = 2000
	case Evacuating:
		base = 1500
	case Home:
		base = 1000
	}
	score := base + a.Wait*100 + a.Momentum*50
	if len(a.Path) > 0 {
		score += 500 - min(len(a.Path), 500)
	}
	return score
}

// Importance ranks agents inside a deadlock group; the least important
// member is the one displaced. It is deliberately flatter than Priority
// so that wait counts matter less once agents are mutually stuck.
func (a *Agent) Importance() int {
	score := 0
	switch a.State {
	case ToDropoff:
		score = 1000
		if a.PackageID != NoID && len(a.Path) > 0 {
			score += 500 - min(len(a.Path), 500)
		}
	case ToPickup:
		score = 500
	case Home:
		score = 100
	case Evacuating:
		score = 50
	}
	return score + a.Momentum*20 + a.Wait*10
}
