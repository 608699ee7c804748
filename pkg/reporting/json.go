package reporting

import (
	"encoding/json"
	"math"
	"os"

	"github.com/ducminhle1904/prop-challenge-engine/internal/backtest"
	engineerrors "github.com/ducminhle1904/prop-challenge-engine/internal/errors"
)

// WriteResultsJSON writes the full results. Infinite ratios are stored as
// -1 since JSON has no infinity.
func WriteResultsJSON(results *backtest.BacktestResults, path string) error {
	out := *results
	out.ProfitFactor = finite(out.ProfitFactor)
	out.SortinoRatio = finite(out.SortinoRatio)
	out.SharpeRatio = finite(out.SharpeRatio)

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return engineerrors.NewReportError("reporting", "write_results_json", err)
	}
	if err := EnsureDirectoryExists(path); err != nil {
		return engineerrors.NewReportError("reporting", "write_results_json", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return engineerrors.NewReportError("reporting", "write_results_json", err)
	}
	return nil
}

func finite(v float64) float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return -1
	}
	return v
}
