package main

import (
	"fmt"
	"os"

	engineerrors "github.com/ducminhle1904/prop-challenge-engine/internal/errors"
	"github.com/ducminhle1904/prop-challenge-engine/internal/logger"
	"github.com/ducminhle1904/prop-challenge-engine/pkg/config"
	"github.com/ducminhle1904/prop-challenge-engine/pkg/data"
	"github.com/ducminhle1904/prop-challenge-engine/pkg/types"
)

// loadInputs reads bars and signals named by the run config, restricted to
// the configured date range
func loadInputs(cfg *config.ChallengeConfig, log *logger.Logger) ([]types.OHLCV, []types.Signal, error) {
	if cfg.Run.DataFile == "" {
		return nil, nil, engineerrors.NewConfigurationError("cli", "load_inputs", "no data file, set run.data_file or --data")
	}
	if cfg.Run.SignalsFile == "" {
		return nil, nil, engineerrors.NewConfigurationError("cli", "load_inputs", "no signals file, set run.signals_file or --signals")
	}

	format := data.DefaultCSVFormat
	if cfg.Run.DateFormat != "" {
		format.DateFormat = cfg.Run.DateFormat
	}
	provider := data.NewCSVProviderWithFormat(format, log)
	bars, err := provider.LoadData(cfg.Run.DataFile)
	if err != nil {
		return nil, nil, err
	}
	if err := provider.ValidateData(bars); err != nil {
		return nil, nil, err
	}

	from, to, err := cfg.Run.DateRange()
	if err != nil {
		return nil, nil, err
	}
	bars = data.NewDefaultDataFilter().FilterByDateRange(bars, from, to)
	if len(bars) == 0 {
		return nil, nil, engineerrors.NewDataError("cli", "load_inputs",
			fmt.Errorf("no bars between %q and %q", cfg.Run.From, cfg.Run.To))
	}

	signals, err := data.NewCSVSignalProvider(cfg.Run.DateFormat).LoadSignals(cfg.Run.SignalsFile)
	if err != nil {
		return nil, nil, err
	}
	log.Info("replaying %d bars with %d signals", len(bars), len(signals))
	return bars, signals, nil
}

// newRunLogger logs to a dated file under dir, or to stderr when dir is empty
func newRunLogger(dir, name string) (*logger.Logger, error) {
	if dir == "" {
		return logger.NewConsoleLogger(os.Stderr, name), nil
	}
	return logger.NewLogger(dir, name)
}
