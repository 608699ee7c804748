package reporting

import (
	"io"

	"github.com/ducminhle1904/prop-challenge-engine/internal/backtest"
	"github.com/ducminhle1904/prop-challenge-engine/internal/risk"
	"github.com/ducminhle1904/prop-challenge-engine/pkg/validation"
)

// Package reporting renders challenge replay results for people and tools

// ConsoleReporter defines interface for console output
type ConsoleReporter interface {
	OutputResults(w io.Writer, results *backtest.BacktestResults)
	OutputStatus(w io.Writer, status risk.Status)
	OutputSweep(w io.Writer, results []backtest.SweepResult)
	OutputSizing(w io.Writer, symbol string, res risk.SizeResult)
	OutputRolling(w io.Writer, summary *validation.RollingSummary)
}

// FileReporter defines interface for file output
type FileReporter interface {
	WriteTradesCSV(results *backtest.BacktestResults, path string) error
	WriteEquityCSV(results *backtest.BacktestResults, path string) error
	WriteResultsXLSX(results *backtest.BacktestResults, path string) error
	WriteResultsJSON(results *backtest.BacktestResults, path string) error
}

// ExcelStyles holds Excel formatting styles
type ExcelStyles struct {
	HeaderStyle   int
	CurrencyStyle int
	PercentStyle  int
	PriceStyle    int
	BaseStyle     int
	LossStyle     int
	ProfitStyle   int
	SummaryStyle  int
}

// ReportingConfig holds configuration for reporting
type ReportingConfig struct {
	EnableConsole   bool   `json:"console" yaml:"console"`
	OutputDirectory string `json:"output_dir" yaml:"output_dir"`
	ExcelEnabled    bool   `json:"excel" yaml:"excel"`
	CSVEnabled      bool   `json:"csv" yaml:"csv"`
	JSONEnabled     bool   `json:"json" yaml:"json"`
}
