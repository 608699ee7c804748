package validation

import (
	"context"
	"fmt"
	"sort"

	"github.com/ducminhle1904/prop-challenge-engine/internal/backtest"
	engineerrors "github.com/ducminhle1904/prop-challenge-engine/internal/errors"
	"github.com/ducminhle1904/prop-challenge-engine/internal/risk"
	"github.com/ducminhle1904/prop-challenge-engine/pkg/types"
)

// RollingValidator runs one challenge attempt per window in parallel
type RollingValidator struct {
	splitter WindowSplitter
	workers  int
}

// NewRollingValidator creates a validator; workers <= 0 uses one per CPU
func NewRollingValidator(workers int) *RollingValidator {
	return &RollingValidator{
		splitter: NewDefaultWindowSplitter(),
		workers:  workers,
	}
}

// Validate replays setup over every rolling window and summarizes the outcomes
func (v *RollingValidator) Validate(ctx context.Context, setup backtest.Setup, data []types.OHLCV, signals backtest.SignalSource, cfg RollingConfig) (*RollingSummary, error) {
	if cfg.WindowDays < 1 || cfg.StepDays < 1 {
		return nil, engineerrors.NewValidationError("validation", "rolling",
			fmt.Sprintf("window and step must be at least one day, got: %d / %d", cfg.WindowDays, cfg.StepDays))
	}
	windows := v.splitter.CreateRollingWindows(data, cfg)
	if len(windows) == 0 {
		return nil, engineerrors.NewValidationError("validation", "rolling",
			fmt.Sprintf("not enough data for a %d day attempt", cfg.WindowDays))
	}

	wp := backtest.NewWorkerPool(ctx, v.workers, len(windows))
	wp.Start()

	byID := make(map[string]ChallengeWindow, len(windows))
	submitted := 0
	var submitErr error
	for _, w := range windows {
		id := fmt.Sprintf("window_%04d", w.Index)
		byID[id] = w
		s := setup
		s.Label = fmt.Sprintf("%s_%s", setup.Label, w.Start.Format("20060102"))
		if submitErr = wp.SubmitJob(backtest.SweepJob{ID: id, Setup: s, Data: w.Bars, Signals: signals}); submitErr != nil {
			break
		}
		submitted++
	}

	attempts := make([]AttemptResult, 0, submitted)
	for i := 0; i < submitted; i++ {
		select {
		case r := <-wp.Results():
			attempts = append(attempts, AttemptResult{Window: byID[r.ID], Results: r.Results, Error: r.Error})
		case <-ctx.Done():
			wp.Stop()
			return nil, ctx.Err()
		}
	}
	wp.Stop()
	if submitErr != nil {
		return nil, submitErr
	}

	sort.Slice(attempts, func(i, j int) bool { return attempts[i].Window.Index < attempts[j].Window.Index })
	return summarize(cfg, attempts), nil
}

func summarize(cfg RollingConfig, attempts []AttemptResult) *RollingSummary {
	s := &RollingSummary{
		Config:      cfg,
		Attempts:    attempts,
		FailReasons: make(map[string]int),
	}

	var daysToPass, totalReturn float64
	for _, a := range attempts {
		if a.Error != nil || a.Results == nil {
			s.Errors++
			continue
		}
		s.Completed++
		totalReturn += a.Results.TotalReturn
		if a.Results.MaxDrawdown > s.WorstDrawdown {
			s.WorstDrawdown = a.Results.MaxDrawdown
		}

		switch a.Results.Challenge.Status {
		case risk.StatusPassed:
			s.Passed++
			daysToPass += a.DaysToFinish()
		case risk.StatusFailed:
			s.Failed++
			s.FailReasons[a.Results.Challenge.Reason]++
		default:
			s.Active++
		}
	}

	if s.Completed > 0 {
		s.PassRate = float64(s.Passed) / float64(s.Completed)
		s.FailRate = float64(s.Failed) / float64(s.Completed)
		s.AverageReturn = totalReturn / float64(s.Completed)
	}
	if s.Passed > 0 {
		s.AverageDaysToPass = daysToPass / float64(s.Passed)
	}
	return s
}
