package main

import (
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/ducminhle1904/prop-challenge-engine/internal/backtest"
	"github.com/ducminhle1904/prop-challenge-engine/internal/logger"
	"github.com/ducminhle1904/prop-challenge-engine/pkg/config"
	"github.com/ducminhle1904/prop-challenge-engine/pkg/reporting"
	"github.com/ducminhle1904/prop-challenge-engine/pkg/validation"
	"github.com/spf13/cobra"
)

var (
	rlOverrides  config.Overrides
	rlWindowDays int
	rlStepDays   int
	rlWorkers    int
)

var rollingCmd = &cobra.Command{
	Use:   "rolling",
	Short: "Start a fresh challenge at regular dates and report the pass rate",
	RunE:  runRolling,
}

func init() {
	f := rollingCmd.Flags()
	f.StringVar(&rlOverrides.DataFile, "data", "", "OHLCV bar CSV file")
	f.StringVar(&rlOverrides.SignalsFile, "signals", "", "Signal CSV file")
	f.Float64Var(&rlOverrides.RiskFraction, "risk", 0, "Override base risk fraction")
	f.IntVar(&rlWindowDays, "window-days", 0, "Attempt length in days (default from config)")
	f.IntVar(&rlStepDays, "step-days", 0, "Days between attempt start dates (default from config)")
	f.IntVar(&rlWorkers, "workers", runtime.NumCPU(), "Parallel replays")
}

func runRolling(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(rlOverrides)
	if err != nil {
		return err
	}
	rc := cfg.Rolling
	if rlWindowDays > 0 {
		rc.WindowDays = rlWindowDays
	}
	if rlStepDays > 0 {
		rc.StepDays = rlStepDays
	}

	bars, signals, err := loadInputs(cfg, logger.NewConsoleLogger(os.Stderr, cfg.Name))
	if err != nil {
		return err
	}
	setup, err := cfg.Setup()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := validation.NewRollingValidator(rlWorkers).Validate(ctx, setup, bars, backtest.NewScheduledSignals(signals), rc)
	if err != nil {
		return err
	}
	reporting.NewDefaultConsoleReporter().OutputRolling(cmd.OutOrStdout(), summary)
	return nil
}
