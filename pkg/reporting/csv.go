package reporting

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	engineerrors "github.com/ducminhle1904/prop-challenge-engine/internal/errors"
	"github.com/ducminhle1904/prop-challenge-engine/internal/backtest"
)

const csvTimeLayout = "2006-01-02 15:04:05"

// DefaultCSVReporter implements CSV output functionality
type DefaultCSVReporter struct{}

func NewDefaultCSVReporter() *DefaultCSVReporter {
	return &DefaultCSVReporter{}
}

var tradeHeaders = []string{
	"ID", "Strategy", "Symbol", "Direction", "Entry_Time", "Exit_Time",
	"Entry_Price", "Exit_Price", "Stop_Loss", "Take_Profit", "Size",
	"Gross_PnL", "Commission", "Slippage", "PnL", "Return_%", "Exit_Reason", "Equity_After",
}

// WriteTradesCSV writes one row per closed trade
func (r *DefaultCSVReporter) WriteTradesCSV(results *backtest.BacktestResults, path string) error {
	rows := make([][]string, 0, len(results.Trades))
	for _, t := range results.Trades {
		rows = append(rows, []string{
			t.ID,
			t.Strategy,
			t.Symbol,
			string(t.Direction),
			t.EntryTime.Format(csvTimeLayout),
			t.ExitTime.Format(csvTimeLayout),
			price(t.EntryPrice),
			price(t.ExitPrice),
			price(t.StopLoss),
			price(t.TakeProfit),
			strconv.FormatFloat(t.Size, 'f', 2, 64),
			money(t.GrossPnL),
			money(t.Commission),
			money(t.Slippage),
			money(t.PnL),
			strconv.FormatFloat(t.Return()*100, 'f', 4, 64),
			string(t.ExitReason),
			money(t.EquityAfter),
		})
	}
	return writeCSV(path, "write_trades_csv", tradeHeaders, rows)
}

// WriteEquityCSV writes the equity curve
func (r *DefaultCSVReporter) WriteEquityCSV(results *backtest.BacktestResults, path string) error {
	headers := []string{"Timestamp", "Equity", "Peak_Equity", "Drawdown_%", "Daily_Drawdown_%", "Open_Positions"}
	rows := make([][]string, 0, len(results.EquityCurve))
	for _, p := range results.EquityCurve {
		rows = append(rows, []string{
			p.Timestamp.UTC().Format(time.RFC3339),
			money(p.Equity),
			money(p.PeakEquity),
			strconv.FormatFloat(p.Drawdown*100, 'f', 4, 64),
			strconv.FormatFloat(p.DailyDrawdown*100, 'f', 4, 64),
			strconv.Itoa(p.OpenPositions),
		})
	}
	return writeCSV(path, "write_equity_csv", headers, rows)
}

func writeCSV(path, op string, headers []string, rows [][]string) error {
	if err := EnsureDirectoryExists(path); err != nil {
		return engineerrors.NewReportError("reporting", op, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return engineerrors.NewReportError("reporting", op, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(headers); err != nil {
		return engineerrors.NewReportError("reporting", op, err)
	}
	if err := w.WriteAll(rows); err != nil {
		return engineerrors.NewReportError("reporting", op, err)
	}
	return nil
}

func price(v float64) string {
	return strconv.FormatFloat(v, 'f', 5, 64)
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// WriteTradesCSV is a convenience function using the default CSV reporter
func WriteTradesCSV(results *backtest.BacktestResults, path string) error {
	return NewDefaultCSVReporter().WriteTradesCSV(results, path)
}
