package core

// Config carries every tunable of the simulation. It is built once at
// startup and threaded through components unchanged, so two simulations
// with different tuning can run side by side.
type Config struct {
	Rows, Cols int

	// Tick budget before the run is abandoned.
	MaxSteps int

	// Wait-counter thresholds, lowest to highest. An agent climbs this
	// ladder one rung per remedy: voluntary yield, forced replan, retreat
	// or emergency move, then full deadlock handling.
	YieldThreshold    int
	DecisionThreshold int
	ForceThreshold    int
	DeadlockThreshold int

	// Ticks of waiting before a stuck agent's package is offered to
	// another idle agent.
	ReassignThreshold int

	// Timeouts for the evacuation and yielding modes. Agents that cannot
	// complete a retreat within these budgets are reset to IDLE.
	EvacTimeout  int
	YieldTimeout int

	// Spatial A* cost shaping.
	TurnPenalty   float64
	CorridorBonus float64

	// Penalty map (dynamic traffic cost).
	PenaltyIncrement float64
	PenaltyDecay     float64
	MaxCellPenalty   float64
	TrafficWeight    float64

	// Deadlock-risk scoring.
	RiskWeight     float64
	RiskMaxPenalty float64
	RiskMinWait    int

	// Space-time A*.
	UseSpaceTime   bool // force space-time planning for every agent
	TimeHorizon    int
	MaxWaitActions int
	WaitCost       float64
}

// DefaultConfig returns the tuning used by the reference scenarios.
func DefaultConfig() Config {
	return Config{
		Rows:     26,
		Cols:     80,
		MaxSteps: 1000,

		YieldThreshold:    3,
		DecisionThreshold: 5,
		ForceThreshold:    10,
		DeadlockThreshold: 15,
		ReassignThreshold: 30,

		EvacTimeout:  15,
		YieldTimeout: 10,

		TurnPenalty:   1.5,
		CorridorBonus: 0.8,

		PenaltyIncrement: 1.0,
		PenaltyDecay:     0.95,
		MaxCellPenalty:   5.0,
		TrafficWeight:    0.15,

		RiskWeight:     2.0,
		RiskMaxPenalty: 1.5,
		RiskMinWait:    5,

		UseSpaceTime:   false,
		TimeHorizon:    30,
		MaxWaitActions: 5,
		WaitCost:       1.2,
	}
}
