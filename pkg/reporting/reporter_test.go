package reporting

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ducminhle1904/prop-challenge-engine/internal/backtest"
	"github.com/ducminhle1904/prop-challenge-engine/internal/portfolio"
	"github.com/ducminhle1904/prop-challenge-engine/internal/risk"
	"github.com/ducminhle1904/prop-challenge-engine/pkg/types"
	"github.com/ducminhle1904/prop-challenge-engine/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var t0 = time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

func sampleResults() *backtest.BacktestResults {
	trades := []portfolio.TradeRecord{
		{ID: "a", Strategy: "breakout", Symbol: "EURUSD", Direction: types.Long, EntryTime: t0, ExitTime: t0.Add(time.Hour),
			EntryPrice: 1.1, ExitPrice: 1.11, StopLoss: 1.095, TakeProfit: 1.11, Size: 0.8,
			GrossPnL: 800, Commission: 5.6, Slippage: 8, PnL: 786.4, ExitReason: portfolio.ExitTakeProfit, EquityAfter: 100786.4},
		{ID: "b", Strategy: "trend", Symbol: "EURUSD", Direction: types.Short, EntryTime: t0.Add(2 * time.Hour), ExitTime: t0.Add(3 * time.Hour),
			EntryPrice: 1.1, ExitPrice: 1.105, StopLoss: 1.105, Size: 0.7,
			GrossPnL: -350, Commission: 4.9, Slippage: 7, PnL: -361.9, ExitReason: portfolio.ExitStopLoss, EquityAfter: 100424.5},
	}
	r := &backtest.BacktestResults{
		StartBalance: 100000,
		EndBalance:   100424.5,
		TotalReturn:  0.004245,
		Trades:       trades,
		Rejections:   map[risk.Rejection]int{portfolio.RejectSameDirection: 2},
		Challenge:    risk.ChallengeResult{Status: risk.StatusActive},
		StrategyStats: []portfolio.StrategyStats{
			{Strategy: "breakout", Allocation: 0.4, Trades: 1, Wins: 1, NetPnL: 786.4},
			{Strategy: "trend", Allocation: 0.35, Trades: 1, Losses: 1, NetPnL: -361.9, Rejections: 2},
		},
		EquityCurve: []types.EquityPoint{
			{Timestamp: t0, Equity: 100000, PeakEquity: 100000},
			{Timestamp: t0.Add(time.Hour), Equity: 100786.4, PeakEquity: 100786.4},
			{Timestamp: t0.Add(3 * time.Hour), Equity: 100424.5, PeakEquity: 100786.4, Drawdown: -0.00359},
		},
	}
	r.UpdateMetrics()
	return r
}

func TestReportingManager_WritesAllOutputs(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	m := NewReportingManager(ReportingConfig{
		EnableConsole:   true,
		OutputDirectory: dir,
		CSVEnabled:      true,
		ExcelEnabled:    true,
		JSONEnabled:     true,
	})
	var console bytes.Buffer

	written, err := m.ReportResults(&console, sampleResults())

	require.NoError(t, err)
	assert.Len(t, written, 4)
	for _, p := range written {
		assert.FileExists(t, p)
	}
	assert.Contains(t, console.String(), "CHALLENGE RESULT")
	assert.Contains(t, console.String(), "breakout")
	assert.Contains(t, console.String(), string(portfolio.RejectSameDirection))
}

func TestWriteTradesCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")

	require.NoError(t, WriteTradesCSV(sampleResults(), path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, tradeHeaders, rows[0])
	assert.Equal(t, "breakout", rows[1][1])
	assert.Equal(t, "786.40", rows[1][14])
	assert.Equal(t, "stop_loss", rows[2][16])
}

func TestWriteEquityCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "equity.csv")

	require.NoError(t, NewDefaultCSVReporter().WriteEquityCSV(sampleResults(), path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "2024-03-04T10:00:00Z", rows[1][0])
	assert.Equal(t, "-0.3590", rows[3][3])
}

func TestWriteResultsXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.xlsx")

	require.NoError(t, WriteResultsXLSX(sampleResults(), path))

	fx, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer fx.Close()
	assert.Equal(t, []string{summarySheet, tradesSheet, equitySheet, strategiesSheet}, fx.GetSheetList())

	trades, err := fx.GetRows(tradesSheet)
	require.NoError(t, err)
	require.Len(t, trades, 3)
	assert.Equal(t, "Strategy", trades[0][0])
	assert.Equal(t, "trend", trades[2][0])

	title, err := fx.GetCellValue(summarySheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Challenge ACTIVE", title)
}

func TestWriteResultsJSON_InfiniteRatios(t *testing.T) {
	r := sampleResults()
	r.ProfitFactor = math.Inf(1)
	path := filepath.Join(t.TempDir(), "results.json")

	require.NoError(t, WriteResultsJSON(r, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, -1.0, decoded["profit_factor"])
	assert.Equal(t, "ACTIVE", decoded["challenge"].(map[string]interface{})["status"])
}

func TestOutputStatusAndSweep(t *testing.T) {
	var buf bytes.Buffer
	rep := NewDefaultConsoleReporter()

	rep.OutputStatus(&buf, risk.Status{Account: risk.Account{Equity: 95000, PeakEquity: 100000}, Level: risk.LevelWarning})
	rep.OutputSweep(&buf, []backtest.SweepResult{
		{Setup: backtest.Setup{Label: "risk_0.010"}, Results: sampleResults(), Duration: time.Second},
		{Setup: backtest.Setup{Label: "broken"}, Error: errors.New("invalid config")},
	})

	rep.OutputSizing(&buf, "EURUSD", risk.SizeResult{Size: 0.8, RiskFraction: 0.01, AppliedFraction: 0.004, RiskAmount: 400, StopPips: 50})
	rep.OutputSizing(&buf, "GBPUSD", risk.SizeResult{Rejection: risk.RejectTradingHalted})

	out := buf.String()
	assert.Contains(t, out, "POSITION SIZE EURUSD")
	assert.Contains(t, out, "$400.00")
	assert.Contains(t, out, string(risk.RejectTradingHalted))
	assert.Contains(t, out, "WARNING")
	assert.Contains(t, out, "$95000.00")
	assert.Contains(t, out, "risk_0.010")
	assert.Contains(t, out, "invalid config")
}

func TestOutputRolling(t *testing.T) {
	var buf bytes.Buffer
	passed := sampleResults()
	passed.Challenge = risk.ChallengeResult{Status: risk.StatusPassed, At: t0.AddDate(0, 0, 12)}
	summary := &validation.RollingSummary{
		Config: validation.RollingConfig{WindowDays: 30, StepDays: 7},
		Attempts: []validation.AttemptResult{
			{Window: validation.ChallengeWindow{Start: t0, End: t0.AddDate(0, 0, 29)}, Results: passed},
			{Window: validation.ChallengeWindow{Start: t0.AddDate(0, 0, 7)}, Error: errors.New("bad setup")},
		},
		Completed: 1, Passed: 1, PassRate: 1, AverageDaysToPass: 12,
	}

	NewDefaultConsoleReporter().OutputRolling(&buf, summary)

	out := buf.String()
	assert.Contains(t, out, "ROLLING ATTEMPTS (30 days, every 7 days)")
	assert.Contains(t, out, "2024-03-04")
	assert.Contains(t, out, "bad setup")
	assert.Contains(t, out, "100.00%")
}

func TestDefaultOutputDir(t *testing.T) {
	assert.Equal(t, filepath.Join("results", "my_run_20240304_100000"), DefaultOutputDir("My Run", t0))
	assert.Equal(t, filepath.Join("results", "challenge_20240304_100000"), DefaultOutputDir("", t0))
}
