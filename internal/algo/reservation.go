package algo

import (
	"fmt"

	"github.com/parcelworks/logisim/internal/core"
)

// slot is one (cell, timestep) claim.
type slot struct {
	cell core.Cell
	t    int
}

// ReservationTable maps (cell, timestep) to the agent that claimed it.
// Space-time planning prunes successors that collide with another agent's
// claims; committing a winning path writes its claims here. Reservations
// are advisory to planning only: the executor still re-validates against
// actual positions before moving.
type ReservationTable struct {
	byTime  map[int]map[core.Cell]int
	byAgent map[int][]slot
}

// NewReservationTable creates an empty table.
func NewReservationTable() *ReservationTable {
	return &ReservationTable{
		byTime:  make(map[int]map[core.Cell]int),
		byAgent: make(map[int][]slot),
	}
}

// ConflictError reports a reservation attempt that hit a slot claimed by
// another agent. It forces a replan, never a crash.
type ConflictError struct {
	Cell  core.Cell
	T     int
	Owner int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("slot %v@%d already reserved by agent %d", e.Cell, e.T, e.Owner)
}

// ReservedBy returns the agent holding (c, t), if any.
func (r *ReservationTable) ReservedBy(c core.Cell, t int) (int, bool) {
	row, ok := r.byTime[t]
	if !ok {
		return 0, false
	}
	id, ok := row[c]
	return id, ok
}

// IsReservedByOther reports whether (c, t) is claimed by an agent other
// than agentID.
func (r *ReservationTable) IsReservedByOther(c core.Cell, t int, agentID int) bool {
	id, ok := r.ReservedBy(c, t)
	return ok && id != agentID
}

// Reserve claims every step of path for agentID, one timestep apiece
// starting at startT, then parks the agent on the final cell through the
// horizon. The claim is two-phase: if any slot is held by another agent
// the whole call fails with *ConflictError and the table is unchanged.
// The agent's previous claims are replaced on success.
func (r *ReservationTable) Reserve(agentID int, path []core.Cell, startT, horizon int) error {
	if len(path) == 0 {
		return nil
	}

	// Phase 1: check for foreign claims.
	t := startT
	for _, c := range path {
		if id, ok := r.ReservedBy(c, t); ok && id != agentID {
			return &ConflictError{Cell: c, T: t, Owner: id}
		}
		t++
	}
	last := path[len(path)-1]
	for pt := t; pt < t+horizon; pt++ {
		if id, ok := r.ReservedBy(last, pt); ok && id != agentID {
			return &ConflictError{Cell: last, T: pt, Owner: id}
		}
	}

	// Phase 2: commit, replacing the agent's old claims.
	r.Release(agentID)
	t = startT
	for _, c := range path {
		r.put(agentID, c, t)
		t++
	}
	for pt := t; pt < t+horizon; pt++ {
		r.put(agentID, last, pt)
	}
	return nil
}

func (r *ReservationTable) put(agentID int, c core.Cell, t int) {
	row, ok := r.byTime[t]
	if !ok {
		row = make(map[core.Cell]int)
		r.byTime[t] = row
	}
	row[c] = agentID
	r.byAgent[agentID] = append(r.byAgent[agentID], slot{cell: c, t: t})
}

// Release clears every claim held by agentID.
func (r *ReservationTable) Release(agentID int) {
	for _, s := range r.byAgent[agentID] {
		if row, ok := r.byTime[s.t]; ok && row[s.cell] == agentID {
			delete(row, s.cell)
			if len(row) == 0 {
				delete(r.byTime, s.t)
			}
		}
	}
	delete(r.byAgent, agentID)
}

// Prune drops every claim strictly before now, bounding memory to the
// lookahead horizon. Called once per tick.
func (r *ReservationTable) Prune(now int) {
	for t := range r.byTime {
		if t < now {
			delete(r.byTime, t)
		}
	}
	for id, slots := range r.byAgent {
		kept := slots[:0]
		for _, s := range slots {
			if s.t >= now {
				kept = append(kept, s)
			}
		}
		if len(kept) == 0 {
			delete(r.byAgent, id)
		} else {
			r.byAgent[id] = kept
		}
	}
}
