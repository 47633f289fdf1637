// Package sim drives the logistics simulation: agent and package
// lifecycle, deadlock detection and resolution, and the seven-phase tick
// that ties planning to execution.
package sim

import "github.com/parcelworks/logisim/internal/core"

// EventKind classifies the structured events the controller emits each
// tick for rendering, logging and persistence collaborators.
type EventKind int

const (
	EventMove EventKind = iota
	EventBlock
	EventYield
	EventRetreat
	EventEmergency
	EventRepath
	EventPickup
	EventDropoff
	EventDeadlock
	EventEvacuate
	EventAnomaly
)

func (k EventKind) String() string {
	return [...]string{
		"MOVE", "BLOCK", "YIELD", "RETREAT", "EMERGENCY", "REPATH",
		"PICKUP", "DROPOFF", "DEADLOCK", "EVACUATE", "ANOMALY",
	}[k]
}

// Event is one observation from inside a tick. The controller performs no
// I/O itself; observers format and persist these however they like.
type Event struct {
	Tick      int
	Kind      EventKind
	AgentID   int
	Agent     string
	From, To  core.Cell
	PackageID int
	Detail    string
}

// Observer consumes events synchronously during a tick. Implementations
// must not mutate simulation state.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) { f(e) }

// Stats aggregates counters across a run.
type Stats struct {
	Ticks             int
	Moves             int
	Blocks            int
	Turns             int
	Pickups           int
	Dropoffs          int
	Yields            int
	Retreats          int
	Emergencies       int
	DeadlocksResolved int
	Anomalies         int
}
