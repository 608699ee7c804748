package reporting

import (
	"io"
	"path/filepath"

	"github.com/ducminhle1904/prop-challenge-engine/internal/backtest"
	"github.com/ducminhle1904/prop-challenge-engine/internal/risk"
	"github.com/ducminhle1904/prop-challenge-engine/pkg/validation"
)

// DefaultReporter implements ConsoleReporter and FileReporter
type DefaultReporter struct {
	console *DefaultConsoleReporter
	csv     *DefaultCSVReporter
	excel   *DefaultExcelReporter
}

func NewDefaultReporter() *DefaultReporter {
	return &DefaultReporter{
		console: NewDefaultConsoleReporter(),
		csv:     NewDefaultCSVReporter(),
		excel:   NewDefaultExcelReporter(),
	}
}

// Console output methods
func (r *DefaultReporter) OutputResults(w io.Writer, results *backtest.BacktestResults) {
	r.console.OutputResults(w, results)
}

func (r *DefaultReporter) OutputStatus(w io.Writer, status risk.Status) {
	r.console.OutputStatus(w, status)
}

func (r *DefaultReporter) OutputSweep(w io.Writer, results []backtest.SweepResult) {
	r.console.OutputSweep(w, results)
}

func (r *DefaultReporter) OutputSizing(w io.Writer, symbol string, res risk.SizeResult) {
	r.console.OutputSizing(w, symbol, res)
}

func (r *DefaultReporter) OutputRolling(w io.Writer, summary *validation.RollingSummary) {
	r.console.OutputRolling(w, summary)
}

// File output methods
func (r *DefaultReporter) WriteTradesCSV(results *backtest.BacktestResults, path string) error {
	return r.csv.WriteTradesCSV(results, path)
}

func (r *DefaultReporter) WriteEquityCSV(results *backtest.BacktestResults, path string) error {
	return r.csv.WriteEquityCSV(results, path)
}

func (r *DefaultReporter) WriteResultsXLSX(results *backtest.BacktestResults, path string) error {
	return r.excel.WriteResultsXLSX(results, path)
}

func (r *DefaultReporter) WriteResultsJSON(results *backtest.BacktestResults, path string) error {
	return WriteResultsJSON(results, path)
}

// ReportingManager writes every enabled output for a run
type ReportingManager struct {
	reporter *DefaultReporter
	config   ReportingConfig
}

func NewReportingManager(config ReportingConfig) *ReportingManager {
	return &ReportingManager{
		reporter: NewDefaultReporter(),
		config:   config,
	}
}

// ReportResults renders results to w and the configured output directory,
// returning the files written
func (m *ReportingManager) ReportResults(w io.Writer, results *backtest.BacktestResults) ([]string, error) {
	if m.config.EnableConsole {
		m.reporter.OutputResults(w, results)
	}

	dir := m.config.OutputDirectory
	if dir == "" {
		return nil, nil
	}

	var written []string
	outputs := []struct {
		enabled bool
		name    string
		write   func(*backtest.BacktestResults, string) error
	}{
		{m.config.CSVEnabled, "trades.csv", m.reporter.WriteTradesCSV},
		{m.config.CSVEnabled, "equity.csv", m.reporter.WriteEquityCSV},
		{m.config.ExcelEnabled, "results.xlsx", m.reporter.WriteResultsXLSX},
		{m.config.JSONEnabled, "results.json", m.reporter.WriteResultsJSON},
	}
	for _, out := range outputs {
		if !out.enabled {
			continue
		}
		path := filepath.Join(dir, out.name)
		if err := out.write(results, path); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}
