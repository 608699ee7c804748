package main

import (
	"fmt"

	engineerrors "github.com/ducminhle1904/prop-challenge-engine/internal/errors"
	"github.com/ducminhle1904/prop-challenge-engine/internal/portfolio"
	"github.com/ducminhle1904/prop-challenge-engine/internal/risk"
	"github.com/ducminhle1904/prop-challenge-engine/internal/state"
	"github.com/ducminhle1904/prop-challenge-engine/pkg/config"
	"github.com/ducminhle1904/prop-challenge-engine/pkg/reporting"
	"github.com/spf13/cobra"
)

var (
	szEntry     float64
	szStop      float64
	szStrategy  string
	szEquity    float64
	szStateFile string
)

var sizeCmd = &cobra.Command{
	Use:   "size",
	Short: "Size a position against the current account state",
	Long: `Compute the lot size for a trade from entry and stop. Without --state
the account is fresh at the configured initial equity. With --strategy the
size uses that strategy's instrument and share of the risk budget.`,
	RunE: runSize,
}

func init() {
	f := sizeCmd.Flags()
	f.Float64Var(&szEntry, "entry", 0, "Entry price")
	f.Float64Var(&szStop, "stop", 0, "Stop loss price")
	f.StringVar(&szStrategy, "strategy", "", "Size for this strategy slot")
	f.Float64Var(&szEquity, "equity", 0, "Override initial equity")
	f.StringVar(&szStateFile, "state", "", "Size against a saved state snapshot")
	_ = sizeCmd.MarkFlagRequired("entry")
	_ = sizeCmd.MarkFlagRequired("stop")
}

func runSize(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(config.Overrides{InitialEquity: szEquity})
	if err != nil {
		return err
	}
	p, err := openPortfolio(cfg, szStateFile)
	if err != nil {
		return err
	}
	rm := p.Risk()

	inst := risk.DefaultInstrument()
	var res risk.SizeResult
	if szStrategy != "" {
		sc, ok := p.Strategy(szStrategy)
		if !ok {
			return engineerrors.NewValidationError("cli", "size", fmt.Sprintf("unknown strategy %q", szStrategy))
		}
		inst = sc.Instrument
		res = rm.SizeWithShare(szEntry, szStop, inst, sc.Allocation)
	} else {
		res = rm.CalculatePositionSize(szEntry, szStop, inst)
	}

	rep := reporting.NewDefaultConsoleReporter()
	rep.OutputStatus(cmd.OutOrStdout(), rm.Status())
	rep.OutputSizing(cmd.OutOrStdout(), inst.Symbol, res)
	return nil
}

// openPortfolio restores the snapshot at statePath or starts a fresh account
func openPortfolio(cfg *config.ChallengeConfig, statePath string) (*portfolio.Portfolio, error) {
	if statePath == "" {
		statePath = getEnvWithDefault(envStateFile, "")
	}
	if statePath == "" {
		rm, err := risk.NewManager(cfg.Risk)
		if err != nil {
			return nil, err
		}
		return portfolio.NewPortfolio(cfg.Portfolio, rm)
	}

	store, err := state.NewFileStore(statePath)
	if err != nil {
		return nil, err
	}
	snap, err := store.Load()
	if err != nil {
		return nil, err
	}
	return state.Restore(snap, cfg.Risk, cfg.Portfolio, nil, nil)
}
