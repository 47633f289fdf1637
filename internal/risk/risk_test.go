package risk

import (
	"os"
	"path/filepath"
	"testing"
)

func TestZeroScorer(t *testing.T) {
	var s Scorer = ZeroScorer{}
	if got := s.Score(Features{Wait: 100, RecentBlocks: 50}); got != 0 {
		t.Errorf("ZeroScorer.Score = %v, want 0", got)
	}
}

func TestLogisticScorerRange(t *testing.T) {
	s := NewLogisticScorer(Weights{Bias: -1, Wait: 0.5, RecentBlocks: 0.3})

	tests := []struct {
		name string
		f    Features
	}{
		{"calm", Features{}},
		{"stuck", Features{Wait: 12, RecentBlocks: 8}},
		{"extreme", Features{Wait: 1000, RecentBlocks: 1000}},
	}

	var prev float64 = -1
	for _, tt := range tests {
		got := s.Score(tt.f)
		if got < 0 || got > 1 {
			t.Errorf("%s: score %v outside [0,1]", tt.name, got)
		}
		if got < prev {
			t.Errorf("%s: score %v decreased; higher wait should raise risk", tt.name, got)
		}
		prev = got
	}
}

func TestLoadLogisticScorer(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deadlock.json")
	blob := `{"bias": -2.0, "wait": 0.4, "recent_blocks": 0.2}`
	if err := os.WriteFile(path, []byte(blob), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := LoadLogisticScorer(path)
	if err != nil {
		t.Fatalf("LoadLogisticScorer: %v", err)
	}
	low := s.Score(Features{})
	high := s.Score(Features{Wait: 10, RecentBlocks: 5})
	if high <= low {
		t.Errorf("trained weights ignored: low=%v high=%v", low, high)
	}

	if _, err := LoadLogisticScorer(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing model file")
	}
}
