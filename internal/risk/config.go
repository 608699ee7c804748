package risk

import (
	"fmt"

	engineerrors "github.com/ducminhle1904/prop-challenge-engine/internal/errors"
)

// Config holds the challenge rules and sizing parameters.
// Drawdown thresholds are positive fractions of equity (0.10 = 10%).
type Config struct {
	InitialEquity float64 `json:"initial_equity" yaml:"initial_equity"`
	MaxLeverage   float64 `json:"max_leverage" yaml:"max_leverage"`

	// Per-trade risk
	BaseRiskFraction float64 `json:"base_risk_fraction" yaml:"base_risk_fraction"`
	MinRiskFraction  float64 `json:"min_risk_fraction" yaml:"min_risk_fraction"`
	MaxRiskFraction  float64 `json:"max_risk_fraction" yaml:"max_risk_fraction"`

	// Terminal rules
	ProfitTarget     float64 `json:"profit_target" yaml:"profit_target"`
	MaxTotalDrawdown float64 `json:"max_total_drawdown" yaml:"max_total_drawdown"`
	MaxDailyDrawdown float64 `json:"max_daily_drawdown" yaml:"max_daily_drawdown"`

	// Circuit breakers
	WarningTotalDrawdown  float64 `json:"warning_total_drawdown" yaml:"warning_total_drawdown"`
	WarningDailyDrawdown  float64 `json:"warning_daily_drawdown" yaml:"warning_daily_drawdown"`
	CriticalTotalDrawdown float64 `json:"critical_total_drawdown" yaml:"critical_total_drawdown"`
	CriticalDailyDrawdown float64 `json:"critical_daily_drawdown" yaml:"critical_daily_drawdown"`
	WarningRiskMultiplier float64 `json:"warning_risk_multiplier" yaml:"warning_risk_multiplier"`

	// Streak scaling
	LossStreakTrigger    int     `json:"loss_streak_trigger" yaml:"loss_streak_trigger"`
	LossStreakMultiplier float64 `json:"loss_streak_multiplier" yaml:"loss_streak_multiplier"`
	WinStreakTrigger     int     `json:"win_streak_trigger" yaml:"win_streak_trigger"`
	WinStreakMultiplier  float64 `json:"win_streak_multiplier" yaml:"win_streak_multiplier"`
}

// DefaultConfig returns the rules of a standard 100k two-phase challenge
func DefaultConfig() Config {
	return Config{
		InitialEquity: 100000,
		MaxLeverage:   100,

		BaseRiskFraction: 0.01,
		MinRiskFraction:  0.005,
		MaxRiskFraction:  0.02,

		ProfitTarget:     0.10,
		MaxTotalDrawdown: 0.10,
		MaxDailyDrawdown: 0.05,

		WarningTotalDrawdown:  0.07,
		WarningDailyDrawdown:  0.03,
		CriticalTotalDrawdown: 0.09,
		CriticalDailyDrawdown: 0.045,
		WarningRiskMultiplier: 0.5,

		LossStreakTrigger:    3,
		LossStreakMultiplier: 0.5,
		WinStreakTrigger:     5,
		WinStreakMultiplier:  1.5,
	}
}

// Validate checks the configuration for internal consistency
func (c Config) Validate() error {
	invalid := func(format string, args ...interface{}) error {
		return engineerrors.NewConfigurationError("risk", "validate", fmt.Sprintf(format, args...))
	}

	if c.InitialEquity <= 0 {
		return invalid("initial equity must be positive, got: %.2f", c.InitialEquity)
	}
	if c.MaxLeverage <= 0 {
		return invalid("max leverage must be positive, got: %.2f", c.MaxLeverage)
	}
	if c.MinRiskFraction <= 0 || c.MinRiskFraction > c.MaxRiskFraction {
		return invalid("risk bounds must satisfy 0 < min <= max, got: [%.4f, %.4f]", c.MinRiskFraction, c.MaxRiskFraction)
	}
	if c.MaxRiskFraction >= 1 {
		return invalid("max risk fraction must be below 1, got: %.4f", c.MaxRiskFraction)
	}
	if c.BaseRiskFraction < c.MinRiskFraction || c.BaseRiskFraction > c.MaxRiskFraction {
		return invalid("base risk fraction %.4f outside [%.4f, %.4f]", c.BaseRiskFraction, c.MinRiskFraction, c.MaxRiskFraction)
	}
	if c.ProfitTarget <= 0 {
		return invalid("profit target must be positive, got: %.4f", c.ProfitTarget)
	}
	if err := checkLadder("total", c.WarningTotalDrawdown, c.CriticalTotalDrawdown, c.MaxTotalDrawdown); err != nil {
		return err
	}
	if err := checkLadder("daily", c.WarningDailyDrawdown, c.CriticalDailyDrawdown, c.MaxDailyDrawdown); err != nil {
		return err
	}
	if c.WarningRiskMultiplier <= 0 || c.LossStreakMultiplier <= 0 || c.WinStreakMultiplier <= 0 {
		return invalid("risk multipliers must be positive")
	}
	if c.LossStreakTrigger < 1 || c.WinStreakTrigger < 1 {
		return invalid("streak triggers must be at least 1, got: losses=%d wins=%d", c.LossStreakTrigger, c.WinStreakTrigger)
	}
	return nil
}

// checkLadder requires 0 < warning < critical < max < 1
func checkLadder(kind string, warning, critical, max float64) error {
	if warning <= 0 || warning >= critical || critical >= max || max >= 1 {
		return engineerrors.NewConfigurationError("risk", "validate",
			fmt.Sprintf("%s drawdown thresholds must satisfy 0 < warning < critical < max < 1, got: %.4f / %.4f / %.4f",
				kind, warning, critical, max))
	}
	return nil
}
