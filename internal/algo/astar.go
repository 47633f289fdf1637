package algo

import (
	"container/heap"

	"github.com/parcelworks/logisim/internal/core"
	"github.com/parcelworks/logisim/internal/risk"
)

// AgentView is the read-only snapshot of an agent that planning needs.
// Planners never touch live Agent state.
type AgentView struct {
	ID       int
	Dir      core.Direction
	Momentum int
	Wait     int
	Priority int
	State    core.AgentState
	Mode     core.AgentMode

	RecentBlocks int
	RecentMoves  int
}

// CellSet is a plain membership set of cells.
type CellSet map[core.Cell]struct{}

// Has reports membership; a nil set contains nothing.
func (s CellSet) Has(c core.Cell) bool {
	_, ok := s[c]
	return ok
}

// spatialState keys the closed set of the spatial search. Direction is
// part of the state so that turn costs stay consistent: reaching a cell
// heading north is not the same node as reaching it heading east.
type spatialState struct {
	cell core.Cell
	dir  core.Direction
}

// astarNode is shared by both searches.
type astarNode struct {
	cell core.Cell
	t    int // timestep, spatial search leaves it 0
	dir  core.Direction
	g    float64
	h    float64
	f    float64
	seq  int // insertion order, final tie-break
	// consecutive WAIT actions taken to reach this node (space-time only)
	waits  int
	parent *astarNode
	index  int
}

// astarHeap orders by f, then h (prefer closer to goal), then insertion
// order. The seq tie-break keeps expansion fully deterministic.
type astarHeap []*astarNode

func (h astarHeap) Len() int { return len(h) }
func (h astarHeap) Less(i, j int) bool {
	if h[i].f != h[j].f {
		return h[i].f < h[j].f
	}
	if h[i].h != h[j].h {
		return h[i].h < h[j].h
	}
	return h[i].seq < h[j].seq
}
func (h astarHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *astarHeap) Push(x any) {
	n := x.(*astarNode)
	n.index = len(*h)
	*h = append(*h, n)
}
func (h *astarHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[0 : n-1]
	return x
}

func reconstructCells(node *astarNode) []core.Cell {
	var path []core.Cell
	for n := node; n != nil; n = n.parent {
		path = append([]core.Cell{n.cell}, path...)
	}
	return path
}

// Planner bundles the shared read-only planning state: grid geometry,
// traffic penalties, the reservation table and the risk scorer. One
// Planner serves every agent; per-call state lives on the stack.
type Planner struct {
	grid    *core.Grid
	pen     *PenaltyMap
	res     *ReservationTable
	scorer  risk.Scorer
	cfg     core.Config
	lastUse map[int]PlanMode
}

// NewPlanner creates a planner. A nil scorer degrades to zero risk.
func NewPlanner(grid *core.Grid, pen *PenaltyMap, res *ReservationTable, scorer risk.Scorer, cfg core.Config) *Planner {
	if scorer == nil {
		scorer = risk.ZeroScorer{}
	}
	return &Planner{
		grid:    grid,
		pen:     pen,
		res:     res,
		scorer:  scorer,
		cfg:     cfg,
		lastUse: make(map[int]PlanMode),
	}
}

// Reservations exposes the table so the controller can prune and release.
func (p *Planner) Reservations() *ReservationTable { return p.res }

// orderedDirections returns the four moves with the current heading first,
// so the stable seq tie-break keeps momentum when costs are equal.
func orderedDirections(prev core.Direction) [4]core.Direction {
	dirs := core.Directions
	if prev.IsZero() {
		return dirs
	}
	for i, d := range dirs {
		if d == prev && i != 0 {
			dirs[0], dirs[i] = dirs[i], dirs[0]
			break
		}
	}
	return dirs
}

// moveCost computes the augmented edge cost of stepping from cur to next.
// spaceTime softens the turn penalty, matching the shorter effective
// horizon of the timed search.
func (p *Planner) moveCost(v AgentView, cur, next, goal core.Cell, prevDir, nextDir core.Direction, spaceTime bool) float64 {
	cost := 1.0

	// Per-agent bias desynchronizes identical routes between agents.
	cost += float64(v.ID%3) * 0.15

	// Predicted deadlock risk, only consulted once an agent has already
	// been stalling. Continuing straight discounts the penalty so the
	// scorer steers rather than stops.
	if v.Wait >= p.cfg.RiskMinWait && v.State != core.Idle {
		r := p.scorer.Score(risk.Features{
			FromRow:      cur.Row,
			FromCol:      cur.Col,
			ToRow:        next.Row,
			ToCol:        next.Col,
			DirRow:       nextDir.DR,
			DirCol:       nextDir.DC,
			Wait:         v.Wait,
			State:        v.State.String(),
			Mode:         v.Mode.String(),
			RecentBlocks: v.RecentBlocks,
			RecentMoves:  v.RecentMoves,
		})
		pen := r * p.cfg.RiskWeight
		if pen > p.cfg.RiskMaxPenalty {
			pen = p.cfg.RiskMaxPenalty
		}
		if nextDir == prevDir {
			pen *= 0.3
		}
		cost += pen
	}

	if core.IsTurn(prevDir, nextDir) {
		if spaceTime {
			cost += p.cfg.TurnPenalty * 0.7
		} else {
			cost += p.cfg.TurnPenalty
		}
	}

	cost += p.pen.Penalty(next) * p.cfg.TrafficWeight

	switch score := p.grid.CorridorScore(next); {
	case score >= 6:
		cost *= p.cfg.CorridorBonus
	case score <= 2:
		cost *= 1.3
	}

	if !core.IsTurn(prevDir, nextDir) && v.Momentum > 0 {
		m := 1.0 - float64(v.Momentum)*0.06
		if m < 0.65 {
			m = 0.65
		}
		cost *= m
	}

	if core.Manhattan(next, goal) <= 3 {
		cost *= 0.9
	}

	if p.grid.IsNarrowPassage(next) && v.Priority < 2000 {
		cost *= 1.5
	}

	return cost
}

// heuristic is Manhattan distance, nudged below one when the move heads
// toward the goal or sustains momentum.
func (p *Planner) heuristic(v AgentView, next, goal core.Cell, prevDir, nextDir core.Direction) float64 {
	h := float64(core.Manhattan(next, goal))

	goalDir := core.Direction{DR: sign(goal.Row - next.Row), DC: sign(goal.Col - next.Col)}
	if nextDir.DR == goalDir.DR || nextDir.DC == goalDir.DC {
		h *= 0.92
	}
	if v.Momentum >= 3 && nextDir == prevDir {
		h *= 0.95
	}
	return h
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// FindPath runs cost-augmented spatial A* from start to goal.
//
// blocked cells are never entered. avoid cells are skipped too, except
// for the goal itself: a pickup or dropoff cell stays enterable for the
// one agent whose goal it is.
//
// The returned path includes start; nil means no path was found, which
// callers treat as "stay put, retry next tick".
func (p *Planner) FindPath(v AgentView, start, goal core.Cell, blocked, avoid CellSet) []core.Cell {
	if start == goal {
		return []core.Cell{start}
	}

	open := &astarHeap{}
	heap.Init(open)
	seq := 0

	startNode := &astarNode{
		cell: start,
		dir:  v.Dir,
		h:    float64(core.Manhattan(start, goal)),
	}
	startNode.f = startNode.h
	heap.Push(open, startNode)

	closed := make(map[spatialState]bool)
	best := map[spatialState]float64{{start, v.Dir}: 0}

	for open.Len() > 0 {
		cur := heap.Pop(open).(*astarNode)

		if cur.cell == goal {
			return reconstructCells(cur)
		}

		state := spatialState{cur.cell, cur.dir}
		if closed[state] {
			continue
		}
		closed[state] = true

		for _, d := range orderedDirections(cur.dir) {
			next := cur.cell.Step(d)
			if !p.grid.IsFree(next) || blocked.Has(next) {
				continue
			}
			if next != goal && avoid.Has(next) {
				continue
			}

			g := cur.g + p.moveCost(v, cur.cell, next, goal, cur.dir, d, false)
			ns := spatialState{next, d}
			if prev, ok := best[ns]; ok && g >= prev {
				continue
			}
			best[ns] = g

			seq++
			h := p.heuristic(v, next, goal, cur.dir, d)
			heap.Push(open, &astarNode{
				cell:   next,
				dir:    d,
				g:      g,
				h:      h,
				f:      g + h,
				seq:    seq,
				parent: cur,
			})
		}
	}

	return nil
}
