package algo

import (
	"container/heap"

	"github.com/parcelworks/logisim/internal/core"
)

// timedState keys the closed set of the space-time search.
type timedState struct {
	cell core.Cell
	t    int
	dir  core.Direction
}

// FindPathSpaceTime runs A* over (cell, timestep) states, honoring the
// reservation table and allowing bounded in-place WAIT actions. The
// search is capped at startT+TimeHorizon timesteps.
//
// On success the winning path is committed to the reservation table
// before returning, so later planners in the same tick route around it.
// On any failure, including a commit conflict, nothing is reserved and
// nil is returned; the agent stays put this tick and retries later.
func (p *Planner) FindPathSpaceTime(v AgentView, start, goal core.Cell, startT int, blocked, avoid CellSet) []core.Cell {
	horizon := p.cfg.TimeHorizon
	maxT := startT + horizon

	open := &astarHeap{}
	heap.Init(open)
	seq := 0

	startNode := &astarNode{
		cell: start,
		t:    startT,
		dir:  v.Dir,
		h:    float64(core.Manhattan(start, goal)),
	}
	startNode.f = startNode.h
	heap.Push(open, startNode)

	closed := make(map[timedState]bool)
	best := map[timedState]float64{{start, startT, v.Dir}: 0}

	push := func(n *astarNode) {
		ts := timedState{n.cell, n.t, n.dir}
		if prev, ok := best[ts]; ok && n.g >= prev {
			return
		}
		best[ts] = n.g
		seq++
		n.seq = seq
		n.f = n.g + n.h
		heap.Push(open, n)
	}

	for open.Len() > 0 {
		cur := heap.Pop(open).(*astarNode)

		if cur.cell == goal {
			path := reconstructCells(cur)
			if err := p.res.Reserve(v.ID, path, startT, horizon); err != nil {
				return nil
			}
			return path
		}
		if cur.t >= maxT {
			continue
		}

		state := timedState{cur.cell, cur.t, cur.dir}
		if closed[state] {
			continue
		}
		closed[state] = true

		nt := cur.t + 1

		for _, d := range orderedDirections(cur.dir) {
			next := cur.cell.Step(d)
			if !p.grid.IsFree(next) || blocked.Has(next) {
				continue
			}
			if next != goal && avoid.Has(next) {
				continue
			}
			if p.res.IsReservedByOther(next, nt, v.ID) {
				continue
			}
			if p.willSwap(v.ID, cur.cell, next, cur.t) {
				continue
			}

			push(&astarNode{
				cell:   next,
				t:      nt,
				dir:    d,
				g:      cur.g + p.moveCost(v, cur.cell, next, goal, cur.dir, d, true),
				h:      p.heuristic(v, next, goal, cur.dir, d),
				parent: cur,
			})
		}

		// WAIT in place, capped so agents cannot plan to stand still
		// forever inside the horizon.
		if cur.waits < p.cfg.MaxWaitActions && !p.res.IsReservedByOther(cur.cell, nt, v.ID) {
			push(&astarNode{
				cell:   cur.cell,
				t:      nt,
				dir:    cur.dir,
				g:      cur.g + p.cfg.WaitCost,
				h:      float64(core.Manhattan(cur.cell, goal)),
				waits:  cur.waits + 1,
				parent: cur,
			})
		}
	}

	return nil
}

// willSwap reports whether moving from cur at time t to next at time t+1
// trades places with an agent reserved to make the opposite move.
func (p *Planner) willSwap(agentID int, cur, next core.Cell, t int) bool {
	other, ok := p.res.ReservedBy(next, t)
	if !ok || other == agentID {
		return false
	}
	id, ok := p.res.ReservedBy(cur, t+1)
	return ok && id == other
}
