package reporting

import (
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"github.com/ducminhle1904/prop-challenge-engine/internal/backtest"
	"github.com/ducminhle1904/prop-challenge-engine/internal/risk"
	"github.com/ducminhle1904/prop-challenge-engine/pkg/validation"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// DefaultConsoleReporter renders tables with go-pretty
type DefaultConsoleReporter struct{}

func NewDefaultConsoleReporter() *DefaultConsoleReporter {
	return &DefaultConsoleReporter{}
}

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(title)
	t.SetStyle(table.StyleRounded)
	return t
}

// OutputResults prints the challenge outcome, performance and per-strategy breakdown
func (r *DefaultConsoleReporter) OutputResults(w io.Writer, results *backtest.BacktestResults) {
	t := newTable(w, "CHALLENGE RESULT")
	t.AppendRows([]table.Row{
		{"Status", colorStatus(results.Challenge.Status)},
		{"Reason", results.Challenge.Reason},
	})
	if !results.Challenge.At.IsZero() {
		t.AppendRow(table.Row{"Decided At", results.Challenge.At.Format(time.RFC3339)})
	}
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Initial Balance", fmt.Sprintf("$%.2f", results.StartBalance)},
		{"Final Balance", fmt.Sprintf("$%.2f", results.EndBalance)},
		{"Total Return", pct(results.TotalReturn)},
		{"Max Drawdown", pct(results.MaxDrawdown)},
		{"Max Daily Drawdown", pct(results.MaxDailyDrawdown)},
		{"Breaker Level", results.FinalStatus.Level.String()},
		{"Trading Days", results.FinalStatus.TradingDays},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Trades", results.TotalTrades},
		{"Win Rate", fmt.Sprintf("%.1f%%", results.WinRate)},
		{"Average Win", fmt.Sprintf("$%.2f", results.AverageWin)},
		{"Average Loss", fmt.Sprintf("$%.2f", results.AverageLoss)},
		{"Profit Factor", ratio(results.ProfitFactor)},
		{"Sharpe (per trade)", ratio(results.SharpeRatio)},
		{"Sortino (per trade)", ratio(results.SortinoRatio)},
		{"Bars / Signals", fmt.Sprintf("%d / %d", results.BarsProcessed, results.SignalsSeen)},
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 20, Align: text.AlignLeft},
		{Number: 2, WidthMin: 25, Align: text.AlignRight},
	})
	t.Render()

	if len(results.StrategyStats) > 0 {
		st := newTable(w, "STRATEGIES")
		st.AppendHeader(table.Row{"Strategy", "Allocation", "Trades", "Wins", "Losses", "Win %", "Net PnL", "Rejected"})
		for _, s := range results.StrategyStats {
			st.AppendRow(table.Row{
				s.Strategy, pct(s.Allocation), s.Trades, s.Wins, s.Losses,
				fmt.Sprintf("%.1f", s.WinRate()), fmt.Sprintf("%.2f", s.NetPnL), s.Rejections,
			})
		}
		st.Render()
	}

	if len(results.Rejections) > 0 {
		rt := newTable(w, "REJECTIONS")
		rt.AppendHeader(table.Row{"Reason", "Count"})
		reasons := make([]string, 0, len(results.Rejections))
		for reason := range results.Rejections {
			reasons = append(reasons, string(reason))
		}
		sort.Strings(reasons)
		for _, reason := range reasons {
			rt.AppendRow(table.Row{reason, results.Rejections[risk.Rejection(reason)]})
		}
		rt.Render()
	}
}

// OutputStatus prints a single account status report
func (r *DefaultConsoleReporter) OutputStatus(w io.Writer, status risk.Status) {
	t := newTable(w, "ACCOUNT STATUS")
	t.AppendRows([]table.Row{
		{"Equity", fmt.Sprintf("$%.2f", status.Account.Equity)},
		{"Peak Equity", fmt.Sprintf("$%.2f", status.Account.PeakEquity)},
		{"Profit", pct(status.Profit)},
		{"Total Drawdown", pct(status.TotalDrawdown)},
		{"Daily Drawdown", pct(status.DailyDrawdown)},
		{"Breaker Level", status.Level.String()},
		{"Challenge", colorStatus(status.Result.Status)},
		{"Can Trade", status.CanTrade},
		{"Risk Fraction", pct(status.Streak.CurrentRiskFraction)},
		{"Win / Loss Streak", fmt.Sprintf("%d / %d", status.Streak.ConsecutiveWins, status.Streak.ConsecutiveLosses)},
	})
	t.Render()
}

// OutputSizing prints a position sizing decision
func (r *DefaultConsoleReporter) OutputSizing(w io.Writer, symbol string, res risk.SizeResult) {
	t := newTable(w, "POSITION SIZE "+symbol)
	if !res.Accepted() {
		t.AppendRow(table.Row{"Rejected", text.FgRed.Sprint(string(res.Rejection))})
		t.Render()
		return
	}
	t.AppendRows([]table.Row{
		{"Lots", fmt.Sprintf("%.2f", res.Size)},
		{"Risk Fraction", pct(res.RiskFraction)},
		{"Applied Fraction", pct(res.AppliedFraction)},
		{"Risk Amount", fmt.Sprintf("$%.2f", res.RiskAmount)},
		{"Stop Distance", fmt.Sprintf("%.1f pips", res.StopPips)},
		{"Leverage Capped", res.LeverageCapped},
	})
	t.Render()
}

// OutputSweep prints one row per replayed setup
func (r *DefaultConsoleReporter) OutputSweep(w io.Writer, results []backtest.SweepResult) {
	t := newTable(w, "SWEEP")
	t.AppendHeader(table.Row{"Setup", "Status", "Return", "Max DD", "Max Daily DD", "Trades", "Win %", "PF", "Time"})
	for _, res := range results {
		if res.Error != nil {
			t.AppendRow(table.Row{res.Setup.Label, text.FgRed.Sprint("ERROR"), res.Error.Error()})
			continue
		}
		b := res.Results
		t.AppendRow(table.Row{
			res.Setup.Label, colorStatus(b.Challenge.Status), pct(b.TotalReturn), pct(b.MaxDrawdown),
			pct(b.MaxDailyDrawdown), b.TotalTrades, fmt.Sprintf("%.1f", b.WinRate), ratio(b.ProfitFactor),
			res.Duration.Round(time.Millisecond),
		})
	}
	t.Render()
}

// OutputRolling prints one row per challenge attempt and the pass rate
func (r *DefaultConsoleReporter) OutputRolling(w io.Writer, summary *validation.RollingSummary) {
	t := newTable(w, fmt.Sprintf("ROLLING ATTEMPTS (%d days, every %d days)", summary.Config.WindowDays, summary.Config.StepDays))
	t.AppendHeader(table.Row{"Start", "End", "Status", "Reason", "Days", "Return", "Max DD", "Trades"})
	for _, a := range summary.Attempts {
		start, end := a.Window.Start.Format("2006-01-02"), a.Window.End.Format("2006-01-02")
		if a.Error != nil {
			t.AppendRow(table.Row{start, end, text.FgRed.Sprint("ERROR"), a.Error.Error()})
			continue
		}
		res := a.Results
		t.AppendRow(table.Row{
			start, end, colorStatus(res.Challenge.Status), res.Challenge.Reason,
			fmt.Sprintf("%.1f", a.DaysToFinish()), pct(res.TotalReturn), pct(res.MaxDrawdown), res.TotalTrades,
		})
	}
	t.AppendFooter(table.Row{
		"Pass Rate", pct(summary.PassRate), fmt.Sprintf("%d / %d", summary.Passed, summary.Completed),
		"Fail " + pct(summary.FailRate), fmt.Sprintf("%.1f", summary.AverageDaysToPass),
		pct(summary.AverageReturn), pct(summary.WorstDrawdown), "",
	})
	t.Render()
}

func colorStatus(s risk.ChallengeStatus) string {
	switch s {
	case risk.StatusPassed:
		return text.FgGreen.Sprint(s.String())
	case risk.StatusFailed:
		return text.FgRed.Sprint(s.String())
	default:
		return text.FgYellow.Sprint(s.String())
	}
}

func pct(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

func ratio(v float64) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.2f", v)
}

// OutputResults is a convenience function using the default console reporter
func OutputResults(w io.Writer, results *backtest.BacktestResults) {
	NewDefaultConsoleReporter().OutputResults(w, results)
}
