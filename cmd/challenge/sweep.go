package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/ducminhle1904/prop-challenge-engine/internal/backtest"
	"github.com/ducminhle1904/prop-challenge-engine/internal/logger"
	"github.com/ducminhle1904/prop-challenge-engine/pkg/config"
	"github.com/ducminhle1904/prop-challenge-engine/pkg/reporting"
	"github.com/spf13/cobra"
)

var (
	swOverrides config.Overrides
	swFractions []float64
	swWorkers   int
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Replay the same signals under several base risk fractions",
	Long: `Run one backtest per base risk fraction in parallel and compare the
challenge outcomes. Fractions outside the configured min/max risk bounds
widen the bounds for that run.`,
	RunE: runSweep,
}

func init() {
	f := sweepCmd.Flags()
	f.StringVar(&swOverrides.DataFile, "data", "", "OHLCV bar CSV file")
	f.StringVar(&swOverrides.SignalsFile, "signals", "", "Signal CSV file")
	f.Float64Var(&swOverrides.InitialEquity, "equity", 0, "Override initial equity")
	f.Float64SliceVar(&swFractions, "fractions", []float64{0.0025, 0.005, 0.01, 0.015, 0.02}, "Base risk fractions to compare")
	f.IntVar(&swWorkers, "workers", runtime.NumCPU(), "Parallel replays")
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(swOverrides)
	if err != nil {
		return err
	}
	bars, signals, err := loadInputs(cfg, logger.NewConsoleLogger(os.Stderr, cfg.Name))
	if err != nil {
		return err
	}
	base, err := cfg.Setup()
	if err != nil {
		return err
	}

	setups := make([]backtest.Setup, 0, len(swFractions))
	for _, fraction := range swFractions {
		s := base
		s.Label = fmt.Sprintf("risk_%.4f", fraction)
		s.Risk.BaseRiskFraction = fraction
		if fraction < s.Risk.MinRiskFraction {
			s.Risk.MinRiskFraction = fraction
		}
		if fraction > s.Risk.MaxRiskFraction {
			s.Risk.MaxRiskFraction = fraction
		}
		setups = append(setups, s)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, err := backtest.Sweep(ctx, setups, bars, backtest.NewScheduledSignals(signals), swWorkers)
	if err != nil {
		return err
	}
	reporting.NewDefaultConsoleReporter().OutputSweep(cmd.OutOrStdout(), results)
	return nil
}
