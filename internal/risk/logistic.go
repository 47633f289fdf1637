package risk

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Weights is the serialized form of a trained logistic deadlock model.
// The offline training pipeline exports this as JSON; the simulation only
// reads it.
type Weights struct {
	Bias         float64 `json:"bias"`
	FromRow      float64 `json:"from_row"`
	FromCol      float64 `json:"from_col"`
	ToRow        float64 `json:"to_row"`
	ToCol        float64 `json:"to_col"`
	DirRow       float64 `json:"dir_row"`
	DirCol       float64 `json:"dir_col"`
	Wait         float64 `json:"wait"`
	RecentBlocks float64 `json:"recent_blocks"`
	RecentMoves  float64 `json:"recent_moves"`
}

// LogisticScorer scores moves with a logistic regression over the numeric
// move features.
type LogisticScorer struct {
	w Weights
}

// NewLogisticScorer wraps an in-memory weight vector.
func NewLogisticScorer(w Weights) *LogisticScorer {
	return &LogisticScorer{w: w}
}

// LoadLogisticScorer reads a weights JSON file exported by the training
// pipeline.
func LoadLogisticScorer(path string) (*LogisticScorer, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("risk model: %w", err)
	}
	var w Weights
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("risk model %s: %w", path, err)
	}
	return &LogisticScorer{w: w}, nil
}

// Score returns sigmoid(w·x + b), clamped to [0,1] by construction.
func (s *LogisticScorer) Score(f Features) float64 {
	z := s.w.Bias +
		s.w.FromRow*float64(f.FromRow) +
		s.w.FromCol*float64(f.FromCol) +
		s.w.ToRow*float64(f.ToRow) +
		s.w.ToCol*float64(f.ToCol) +
		s.w.DirRow*float64(f.DirRow) +
		s.w.DirCol*float64(f.DirCol) +
		s.w.Wait*float64(f.Wait) +
		s.w.RecentBlocks*float64(f.RecentBlocks) +
		s.w.RecentMoves*float64(f.RecentMoves)
	return 1.0 / (1.0 + math.Exp(-z))
}
