package portfolio

import (
	"fmt"

	engineerrors "github.com/ducminhle1904/prop-challenge-engine/internal/errors"
	"github.com/ducminhle1904/prop-challenge-engine/internal/risk"
)

// StrategyConfig registers a sub-strategy slot and its share of the risk budget
type StrategyConfig struct {
	Name       string          `json:"name" yaml:"name"`
	Allocation float64         `json:"allocation" yaml:"allocation"`
	Instrument risk.Instrument `json:"instrument" yaml:"instrument"`
}

// Config holds the arbitration limits and the cost model
type Config struct {
	MaxConcurrentPositions int              `json:"max_concurrent_positions" yaml:"max_concurrent_positions"`
	MaxSameDirection       int              `json:"max_same_direction" yaml:"max_same_direction"`
	CommissionPerLot       float64          `json:"commission_per_lot" yaml:"commission_per_lot"` // round turn
	SlippagePips           float64          `json:"slippage_pips" yaml:"slippage_pips"`           // per fill
	Strategies             []StrategyConfig `json:"strategies" yaml:"strategies"`
}

// DefaultConfig returns three strategies sharing the budget 40/35/25
func DefaultConfig() Config {
	inst := risk.DefaultInstrument()
	return Config{
		MaxConcurrentPositions: 2,
		MaxSameDirection:       1,
		CommissionPerLot:       7.0,
		SlippagePips:           0.5,
		Strategies: []StrategyConfig{
			{Name: "breakout", Allocation: 0.40, Instrument: inst},
			{Name: "trend", Allocation: 0.35, Instrument: inst},
			{Name: "reversion", Allocation: 0.25, Instrument: inst},
		},
	}
}

// Validate checks limits, cost model and allocation weights
func (c Config) Validate() error {
	invalid := func(format string, args ...interface{}) error {
		return engineerrors.NewConfigurationError("portfolio", "validate", fmt.Sprintf(format, args...))
	}

	if c.MaxConcurrentPositions < 1 {
		return invalid("max concurrent positions must be at least 1, got: %d", c.MaxConcurrentPositions)
	}
	if c.MaxSameDirection < 1 {
		return invalid("max same-direction positions must be at least 1, got: %d", c.MaxSameDirection)
	}
	if c.CommissionPerLot < 0 || c.SlippagePips < 0 {
		return invalid("commission and slippage must be non-negative")
	}
	if len(c.Strategies) == 0 {
		return invalid("at least one strategy is required")
	}

	seen := make(map[string]bool, len(c.Strategies))
	total := 0.0
	for _, s := range c.Strategies {
		if s.Name == "" {
			return invalid("strategy name cannot be empty")
		}
		if seen[s.Name] {
			return invalid("duplicate strategy %q", s.Name)
		}
		seen[s.Name] = true
		if s.Allocation <= 0 || s.Allocation > 1 {
			return invalid("strategy %q allocation %.4f must be in (0, 1]", s.Name, s.Allocation)
		}
		if err := s.Instrument.Validate(); err != nil {
			return err
		}
		total += s.Allocation
	}
	if total > 1+1e-9 {
		return invalid("strategy allocations sum to %.4f, must not exceed 1", total)
	}
	return nil
}
