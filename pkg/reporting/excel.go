package reporting

import (
	"fmt"
	"math"

	engineerrors "github.com/ducminhle1904/prop-challenge-engine/internal/errors"
	"github.com/ducminhle1904/prop-challenge-engine/internal/backtest"
	"github.com/xuri/excelize/v2"
)

const (
	summarySheet    = "Summary"
	tradesSheet     = "Trades"
	equitySheet     = "Equity"
	strategiesSheet = "Strategies"
)

// DefaultExcelReporter implements Excel output functionality
type DefaultExcelReporter struct{}

func NewDefaultExcelReporter() *DefaultExcelReporter {
	return &DefaultExcelReporter{}
}

// WriteResultsXLSX writes a workbook with summary, trades, equity and strategy sheets
func (r *DefaultExcelReporter) WriteResultsXLSX(results *backtest.BacktestResults, path string) error {
	if err := EnsureDirectoryExists(path); err != nil {
		return engineerrors.NewReportError("reporting", "write_xlsx", err)
	}

	fx := excelize.NewFile()
	defer fx.Close()

	fx.SetSheetName(fx.GetSheetName(0), summarySheet)
	for _, s := range []string{tradesSheet, equitySheet, strategiesSheet} {
		if _, err := fx.NewSheet(s); err != nil {
			return engineerrors.NewReportError("reporting", "write_xlsx", err)
		}
	}

	styles, err := r.createExcelStyles(fx)
	if err != nil {
		return engineerrors.NewReportError("reporting", "write_xlsx", err)
	}

	for _, write := range []func(*excelize.File, *backtest.BacktestResults, ExcelStyles) error{
		r.writeSummarySheet,
		r.writeTradesSheet,
		r.writeEquitySheet,
		r.writeStrategiesSheet,
	} {
		if err := write(fx, results, styles); err != nil {
			return engineerrors.NewReportError("reporting", "write_xlsx", err)
		}
	}

	if err := fx.SaveAs(path); err != nil {
		return engineerrors.NewReportError("reporting", "write_xlsx", err)
	}
	return nil
}

func (r *DefaultExcelReporter) createExcelStyles(fx *excelize.File) (ExcelStyles, error) {
	var styles ExcelStyles
	var err error

	border := []excelize.Border{
		{Type: "left", Color: "E0E0E0", Style: 1},
		{Type: "right", Color: "E0E0E0", Style: 1},
		{Type: "bottom", Color: "E0E0E0", Style: 1},
	}

	// Header style - Dark slate background with white text
	styles.HeaderStyle, err = fx.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF", Family: "Calibri"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"2F4F4F"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return styles, err
	}

	styles.CurrencyStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    7,
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    border,
	})
	if err != nil {
		return styles, err
	}

	styles.PercentStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    10,
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    border,
	})
	if err != nil {
		return styles, err
	}

	fivePlaces := "0.00000"
	styles.PriceStyle, err = fx.NewStyle(&excelize.Style{
		CustomNumFmt: &fivePlaces,
		Alignment:    &excelize.Alignment{Horizontal: "right"},
		Border:       border,
	})
	if err != nil {
		return styles, err
	}

	styles.BaseStyle, err = fx.NewStyle(&excelize.Style{Border: border})
	if err != nil {
		return styles, err
	}

	styles.LossStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt: 7,
		Font:   &excelize.Font{Color: "FF0000"},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"FFE6E6"}, Pattern: 1},
		Border: border,
	})
	if err != nil {
		return styles, err
	}

	styles.ProfitStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt: 7,
		Font:   &excelize.Font{Color: "008000"},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"E6FFE6"}, Pattern: 1},
		Border: border,
	})
	if err != nil {
		return styles, err
	}

	styles.SummaryStyle, err = fx.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12, Color: "FFFFFF", Family: "Calibri"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
	})
	return styles, err
}

func writeHeader(fx *excelize.File, sheet string, headers []string, style int) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := fx.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
		if err := fx.SetCellStyle(sheet, cell, cell, style); err != nil {
			return err
		}
	}
	return fx.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

// writeRow writes values at row with one style per column
func writeRow(fx *excelize.File, sheet string, row int, values []interface{}, styles []int) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := fx.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
		if i < len(styles) {
			if err := fx.SetCellStyle(sheet, cell, cell, styles[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *DefaultExcelReporter) writeSummarySheet(fx *excelize.File, results *backtest.BacktestResults, styles ExcelStyles) error {
	fx.SetColWidth(summarySheet, "A", "A", 24)
	fx.SetColWidth(summarySheet, "B", "B", 60)

	title := fmt.Sprintf("Challenge %s", results.Challenge.Status)
	if err := fx.SetCellValue(summarySheet, "A1", title); err != nil {
		return err
	}
	if err := fx.MergeCell(summarySheet, "A1", "B1"); err != nil {
		return err
	}
	if err := fx.SetCellStyle(summarySheet, "A1", "B1", styles.SummaryStyle); err != nil {
		return err
	}

	rows := []struct {
		label string
		value interface{}
		style int
	}{
		{"Reason", results.Challenge.Reason, styles.BaseStyle},
		{"Initial Balance", results.StartBalance, styles.CurrencyStyle},
		{"Final Balance", results.EndBalance, styles.CurrencyStyle},
		{"Total Return", results.TotalReturn, styles.PercentStyle},
		{"Max Drawdown", results.MaxDrawdown, styles.PercentStyle},
		{"Max Daily Drawdown", results.MaxDailyDrawdown, styles.PercentStyle},
		{"Breaker Level", results.FinalStatus.Level.String(), styles.BaseStyle},
		{"Trading Days", results.FinalStatus.TradingDays, styles.BaseStyle},
		{"Trades", results.TotalTrades, styles.BaseStyle},
		{"Win Rate", results.WinRate / 100, styles.PercentStyle},
		{"Profit Factor", excelRatio(results.ProfitFactor), styles.BaseStyle},
		{"Sharpe (per trade)", excelRatio(results.SharpeRatio), styles.BaseStyle},
		{"Sortino (per trade)", excelRatio(results.SortinoRatio), styles.BaseStyle},
		{"Bars Processed", results.BarsProcessed, styles.BaseStyle},
		{"Signals Seen", results.SignalsSeen, styles.BaseStyle},
	}
	for i, row := range rows {
		if err := writeRow(fx, summarySheet, i+2, []interface{}{row.label, row.value}, []int{styles.BaseStyle, row.style}); err != nil {
			return err
		}
	}
	return nil
}

func (r *DefaultExcelReporter) writeTradesSheet(fx *excelize.File, results *backtest.BacktestResults, styles ExcelStyles) error {
	headers := []string{
		"Strategy", "Direction", "Entry Time", "Exit Time", "Entry", "Exit", "Stop", "Target",
		"Size", "Gross PnL", "Costs", "Net PnL", "Return", "Exit Reason", "Equity After",
	}
	if err := writeHeader(fx, tradesSheet, headers, styles.HeaderStyle); err != nil {
		return err
	}
	fx.SetColWidth(tradesSheet, "A", "B", 12)
	fx.SetColWidth(tradesSheet, "C", "D", 20)
	fx.SetColWidth(tradesSheet, "E", "O", 13)

	for i, t := range results.Trades {
		pnlStyle := styles.ProfitStyle
		if t.PnL < 0 {
			pnlStyle = styles.LossStyle
		}
		values := []interface{}{
			t.Strategy, string(t.Direction), t.EntryTime.Format(csvTimeLayout), t.ExitTime.Format(csvTimeLayout),
			t.EntryPrice, t.ExitPrice, t.StopLoss, t.TakeProfit, t.Size,
			t.GrossPnL, t.Commission + t.Slippage, t.PnL, t.Return(), string(t.ExitReason), t.EquityAfter,
		}
		rowStyles := []int{
			styles.BaseStyle, styles.BaseStyle, styles.BaseStyle, styles.BaseStyle,
			styles.PriceStyle, styles.PriceStyle, styles.PriceStyle, styles.PriceStyle, styles.BaseStyle,
			styles.CurrencyStyle, styles.CurrencyStyle, pnlStyle, styles.PercentStyle, styles.BaseStyle, styles.CurrencyStyle,
		}
		if err := writeRow(fx, tradesSheet, i+2, values, rowStyles); err != nil {
			return err
		}
	}
	return nil
}

func (r *DefaultExcelReporter) writeEquitySheet(fx *excelize.File, results *backtest.BacktestResults, styles ExcelStyles) error {
	headers := []string{"Timestamp", "Equity", "Peak Equity", "Drawdown", "Daily Drawdown", "Open Positions"}
	if err := writeHeader(fx, equitySheet, headers, styles.HeaderStyle); err != nil {
		return err
	}
	fx.SetColWidth(equitySheet, "A", "A", 20)
	fx.SetColWidth(equitySheet, "B", "F", 15)

	rowStyles := []int{styles.BaseStyle, styles.CurrencyStyle, styles.CurrencyStyle, styles.PercentStyle, styles.PercentStyle, styles.BaseStyle}
	for i, p := range results.EquityCurve {
		values := []interface{}{p.Timestamp.Format(csvTimeLayout), p.Equity, p.PeakEquity, p.Drawdown, p.DailyDrawdown, p.OpenPositions}
		if err := writeRow(fx, equitySheet, i+2, values, rowStyles); err != nil {
			return err
		}
	}
	return nil
}

func (r *DefaultExcelReporter) writeStrategiesSheet(fx *excelize.File, results *backtest.BacktestResults, styles ExcelStyles) error {
	headers := []string{"Strategy", "Allocation", "Trades", "Wins", "Losses", "Win Rate", "Net PnL", "Rejections"}
	if err := writeHeader(fx, strategiesSheet, headers, styles.HeaderStyle); err != nil {
		return err
	}
	fx.SetColWidth(strategiesSheet, "A", "H", 14)

	for i, s := range results.StrategyStats {
		pnlStyle := styles.ProfitStyle
		if s.NetPnL < 0 {
			pnlStyle = styles.LossStyle
		}
		values := []interface{}{s.Strategy, s.Allocation, s.Trades, s.Wins, s.Losses, s.WinRate() / 100, s.NetPnL, s.Rejections}
		rowStyles := []int{styles.BaseStyle, styles.PercentStyle, styles.BaseStyle, styles.BaseStyle, styles.BaseStyle, styles.PercentStyle, pnlStyle, styles.BaseStyle}
		if err := writeRow(fx, strategiesSheet, i+2, values, rowStyles); err != nil {
			return err
		}
	}
	return nil
}

// excelRatio keeps infinite ratios out of numeric cells
func excelRatio(v float64) interface{} {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return "inf"
	}
	return v
}

// WriteResultsXLSX is a convenience function using the default Excel reporter
func WriteResultsXLSX(results *backtest.BacktestResults, path string) error {
	return NewDefaultExcelReporter().WriteResultsXLSX(results, path)
}
