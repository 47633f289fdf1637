// Package risk defines the deadlock-risk scoring boundary. The simulation
// consumes a Scorer as an opaque capability; planning works identically
// with a trained model, a test fake, or no model at all.
package risk

// Features describes one candidate move for scoring.
type Features struct {
	FromRow, FromCol int
	ToRow, ToCol     int
	DirRow, DirCol   int

	Wait  int
	State string
	Mode  string

	RecentBlocks int
	RecentMoves  int
}

// Scorer estimates the probability, in [0,1], that a move contributes to a
// deadlock. Implementations must be safe for concurrent use.
type Scorer interface {
	Score(f Features) float64
}

// ZeroScorer is the degraded default used when no model is available:
// every move scores zero and risk weighting becomes a no-op.
type ZeroScorer struct{}

func (ZeroScorer) Score(Features) float64 { return 0 }
