// Package core defines domain models for the logistics grid simulation.
package core

import "fmt"

// Cell is a grid coordinate (row, col).
type Cell struct {
	Row, Col int
}

func (c Cell) String() string {
	return fmt.Sprintf("[%d, %d]", c.Row, c.Col)
}

// Manhattan returns the L1 distance between two cells.
func Manhattan(a, b Cell) int {
	return abs(a.Row-b.Row) + abs(a.Col-b.Col)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Direction is a unit step on the grid. The zero value means "no direction"
// (an agent that has not moved yet).
type Direction struct {
	DR, DC int
}

// The four orthogonal moves, in the fixed expansion order used by both
// planners. Keeping the order stable keeps search results deterministic.
var Directions = [4]Direction{
	{-1, 0}, // up
	{1, 0},  // down
	{0, -1}, // left
	{0, 1},  // right
}

// IsZero reports whether d is the null direction.
func (d Direction) IsZero() bool {
	return d.DR == 0 && d.DC == 0
}

// Opposite returns the reversed direction.
func (d Direction) Opposite() Direction {
	return Direction{-d.DR, -d.DC}
}

// DirectionBetween returns the step from a to b.
func DirectionBetween(a, b Cell) Direction {
	return Direction{b.Row - a.Row, b.Col - a.Col}
}

// IsTurn reports whether moving in next after prev changes heading.
// The null direction never counts as a turn.
func IsTurn(prev, next Direction) bool {
	if prev.IsZero() {
		return false
	}
	return prev != next
}

// Step returns the cell reached by taking d from c.
func (c Cell) Step(d Direction) Cell {
	return Cell{c.Row + d.DR, c.Col + d.DC}
}

// AgentState is the lifecycle state of an agent.
type AgentState int

const (
	Idle AgentState = iota
	ToPickup
	ToDropoff
	Home
	Evacuating
)

func (s AgentState) String() string {
	return [...]string{"IDLE", "TO_PICKUP", "TO_DROPOFF", "HOME", "EVACUATING"}[s]
}

// AgentMode is the conflict-handling mode of an agent.
type AgentMode int

const (
	ModeNormal AgentMode = iota
	ModeYielding
	ModeForced
)

func (m AgentMode) String() string {
	return [...]string{"NORMAL", "YIELDING", "FORCED"}[m]
}

// PackageState is the delivery state of a package. Delivered is terminal.
type PackageState int

const (
	Waiting PackageState = iota
	Picked
	Delivered
)

func (s PackageState) String() string {
	return [...]string{"WAITING", "PICKED", "DELIVERED"}[s]
}

// NoID marks an empty agent/package reference. Assignment links are held as
// IDs on both sides; the AgentManager is the sole writer of either side.
const NoID = -1
