package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/parcelworks/logisim/internal/core"
)

// Tuning is an optional YAML overlay for the simulation's thresholds and
// cost weights. Every field is a pointer so an absent key leaves the
// default untouched.
type Tuning struct {
	MaxSteps *int `yaml:"max_steps"`

	YieldThreshold    *int `yaml:"yield_threshold"`
	DecisionThreshold *int `yaml:"decision_threshold"`
	ForceThreshold    *int `yaml:"force_threshold"`
	DeadlockThreshold *int `yaml:"deadlock_threshold"`
	ReassignThreshold *int `yaml:"reassign_threshold"`

	EvacTimeout  *int `yaml:"evac_timeout"`
	YieldTimeout *int `yaml:"yield_timeout"`

	TurnPenalty   *float64 `yaml:"turn_penalty"`
	CorridorBonus *float64 `yaml:"corridor_bonus"`

	PenaltyIncrement *float64 `yaml:"penalty_increment"`
	PenaltyDecay     *float64 `yaml:"penalty_decay"`
	MaxCellPenalty   *float64 `yaml:"max_cell_penalty"`
	TrafficWeight    *float64 `yaml:"traffic_weight"`

	RiskWeight     *float64 `yaml:"risk_weight"`
	RiskMaxPenalty *float64 `yaml:"risk_max_penalty"`
	RiskMinWait    *int     `yaml:"risk_min_wait"`

	UseSpaceTime   *bool    `yaml:"use_space_time"`
	TimeHorizon    *int     `yaml:"time_horizon"`
	MaxWaitActions *int     `yaml:"max_wait_actions"`
	WaitCost       *float64 `yaml:"wait_cost"`
}

// LoadTuning reads a YAML tuning file.
func LoadTuning(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning: %w", err)
	}
	return t, nil
}

// Apply folds the overlay into cfg and returns the result.
func (t Tuning) Apply(cfg core.Config) core.Config {
	setInt := func(dst *int, src *int) {
		if src != nil {
			*dst = *src
		}
	}
	setFloat := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}

	setInt(&cfg.MaxSteps, t.MaxSteps)
	setInt(&cfg.YieldThreshold, t.YieldThreshold)
	setInt(&cfg.DecisionThreshold, t.DecisionThreshold)
	setInt(&cfg.ForceThreshold, t.ForceThreshold)
	setInt(&cfg.DeadlockThreshold, t.DeadlockThreshold)
	setInt(&cfg.ReassignThreshold, t.ReassignThreshold)
	setInt(&cfg.EvacTimeout, t.EvacTimeout)
	setInt(&cfg.YieldTimeout, t.YieldTimeout)

	setFloat(&cfg.TurnPenalty, t.TurnPenalty)
	setFloat(&cfg.CorridorBonus, t.CorridorBonus)
	setFloat(&cfg.PenaltyIncrement, t.PenaltyIncrement)
	setFloat(&cfg.PenaltyDecay, t.PenaltyDecay)
	setFloat(&cfg.MaxCellPenalty, t.MaxCellPenalty)
	setFloat(&cfg.TrafficWeight, t.TrafficWeight)
	setFloat(&cfg.RiskWeight, t.RiskWeight)
	setFloat(&cfg.RiskMaxPenalty, t.RiskMaxPenalty)
	setInt(&cfg.RiskMinWait, t.RiskMinWait)

	if t.UseSpaceTime != nil {
		cfg.UseSpaceTime = *t.UseSpaceTime
	}
	setInt(&cfg.TimeHorizon, t.TimeHorizon)
	setInt(&cfg.MaxWaitActions, t.MaxWaitActions)
	setFloat(&cfg.WaitCost, t.WaitCost)
	return cfg
}
