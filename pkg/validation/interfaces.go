package validation

import (
	"time"

	"github.com/ducminhle1904/prop-challenge-engine/internal/backtest"
	"github.com/ducminhle1904/prop-challenge-engine/pkg/types"
)

// Package validation replays a challenge from many start dates to estimate
// how often the rule set passes

// WindowSplitter cuts bar history into challenge attempts
type WindowSplitter interface {
	CreateRollingWindows(data []types.OHLCV, cfg RollingConfig) []ChallengeWindow
}

// RollingConfig holds the attempt length and the spacing between start dates
type RollingConfig struct {
	WindowDays int `json:"window_days" yaml:"window_days"`
	StepDays   int `json:"step_days" yaml:"step_days"`
	MinBars    int `json:"min_bars" yaml:"min_bars"`
}

// DefaultRollingConfig is a 30 day attempt started every week
func DefaultRollingConfig() RollingConfig {
	return RollingConfig{WindowDays: 30, StepDays: 7, MinBars: 20}
}

// ChallengeWindow is one attempt's slice of history
type ChallengeWindow struct {
	Index int
	Start time.Time
	End   time.Time
	Bars  []types.OHLCV
}

// AttemptResult is the outcome of one window
type AttemptResult struct {
	Window  ChallengeWindow
	Results *backtest.BacktestResults
	Error   error
}

// DaysToFinish returns the calendar days from window start to the terminal
// transition, or zero when the attempt is still active
func (a AttemptResult) DaysToFinish() float64 {
	if a.Results == nil || a.Results.Challenge.At.IsZero() {
		return 0
	}
	return a.Results.Challenge.At.Sub(a.Window.Start).Hours() / 24
}

// RollingSummary aggregates all attempts
type RollingSummary struct {
	Config            RollingConfig   `json:"config"`
	Attempts          []AttemptResult `json:"-"`
	Completed         int             `json:"completed"`
	Passed            int             `json:"passed"`
	Failed            int             `json:"failed"`
	Active            int             `json:"active"`
	Errors            int             `json:"errors"`
	PassRate          float64         `json:"pass_rate"` // fraction of completed attempts
	FailRate          float64         `json:"fail_rate"`
	AverageDaysToPass float64         `json:"average_days_to_pass"`
	AverageReturn     float64         `json:"average_return"`
	WorstDrawdown     float64         `json:"worst_drawdown"`
	FailReasons       map[string]int  `json:"fail_reasons"`
}
