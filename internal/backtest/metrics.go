package backtest

import (
	"math"
	"time"

	"github.com/ducminhle1904/prop-challenge-engine/internal/portfolio"
	"github.com/ducminhle1904/prop-challenge-engine/internal/risk"
	"github.com/ducminhle1904/prop-challenge-engine/pkg/types"
)

// BacktestResults contains the outcome of a challenge replay
type BacktestResults struct {
	StartBalance float64 `json:"start_balance"`
	EndBalance   float64 `json:"end_balance"`
	TotalReturn  float64 `json:"total_return"`
	MaxDrawdown  float64 `json:"max_drawdown"`
	// MaxDailyDrawdown is the deepest intraday loss from a day start, as a positive fraction
	MaxDailyDrawdown float64 `json:"max_daily_drawdown"`

	TotalTrades   int `json:"total_trades"`
	WinningTrades int `json:"winning_trades"`
	LosingTrades  int `json:"losing_trades"`

	SharpeRatio      float64 `json:"sharpe_ratio"`
	SortinoRatio     float64 `json:"sortino_ratio"`
	ProfitFactor     float64 `json:"profit_factor"`
	WinRate          float64 `json:"win_rate"`
	AverageWin       float64 `json:"average_win"`
	AverageLoss      float64 `json:"average_loss"`
	AnnualizedReturn float64 `json:"annualized_return"`

	BarsProcessed int                    `json:"bars_processed"`
	SignalsSeen   int                    `json:"signals_seen"`
	Rejections    map[risk.Rejection]int `json:"rejections"`

	Challenge     risk.ChallengeResult      `json:"challenge"`
	FinalStatus   risk.Status               `json:"final_status"`
	Trades        []portfolio.TradeRecord   `json:"trades"`
	StrategyStats []portfolio.StrategyStats `json:"strategy_stats"`
	EquityCurve   []types.EquityPoint       `json:"equity_curve"`
}

// UpdateMetrics recomputes all derived metrics from trades and the equity curve
func (b *BacktestResults) UpdateMetrics() {
	b.TotalTrades = len(b.Trades)
	b.WinningTrades, b.LosingTrades = 0, 0
	wins, losses := 0.0, 0.0
	for _, t := range b.Trades {
		if t.PnL > 0 {
			b.WinningTrades++
			wins += t.PnL
		} else if t.PnL < 0 {
			b.LosingTrades++
			losses += t.PnL
		}
	}
	if b.WinningTrades > 0 {
		b.AverageWin = wins / float64(b.WinningTrades)
	}
	if b.LosingTrades > 0 {
		b.AverageLoss = losses / float64(b.LosingTrades)
	}

	b.SharpeRatio = b.CalculateSharpeRatio()
	b.ProfitFactor = b.CalculateProfitFactor()
	b.WinRate = b.CalculateWinRate()
	b.SortinoRatio = b.calculateSortinoRatio()
	b.calculateDrawdowns()
	b.calculateAnnualizedReturn()
}

// CalculateSharpeRatio is the mean over the standard deviation of per-trade
// returns, with a zero risk-free rate
func (b *BacktestResults) CalculateSharpeRatio() float64 {
	returns := b.tradeReturns()
	if len(returns) < 2 {
		return 0
	}
	avg := mean(returns)

	variance := 0.0
	for _, r := range returns {
		variance += math.Pow(r-avg, 2)
	}
	stdDev := math.Sqrt(variance / float64(len(returns)))
	if stdDev < 1e-10 {
		return 0
	}
	return avg / stdDev
}

// CalculateProfitFactor is gross profit over gross loss. All winners yields +Inf.
func (b *BacktestResults) CalculateProfitFactor() float64 {
	profit, loss := 0.0, 0.0
	for _, t := range b.Trades {
		if t.PnL > 0 {
			profit += t.PnL
		} else {
			loss += math.Abs(t.PnL)
		}
	}
	if loss == 0 {
		if profit > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return profit / loss
}

// CalculateWinRate returns winning trades as a percentage
func (b *BacktestResults) CalculateWinRate() float64 {
	if len(b.Trades) == 0 {
		return 0
	}
	wins := 0
	for _, t := range b.Trades {
		if t.PnL > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(b.Trades)) * 100
}

// calculateSortinoRatio uses downside deviation of per-trade returns
func (b *BacktestResults) calculateSortinoRatio() float64 {
	returns := b.tradeReturns()
	if len(returns) == 0 {
		return 0
	}
	avg := mean(returns)

	downside := 0.0
	n := 0
	for _, r := range returns {
		if r < 0 {
			downside += r * r
			n++
		}
	}
	if n == 0 {
		if avg > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return avg / math.Sqrt(downside/float64(n))
}

func (b *BacktestResults) calculateDrawdowns() {
	b.MaxDrawdown, b.MaxDailyDrawdown = 0, 0
	for _, p := range b.EquityCurve {
		if dd := -p.Drawdown; dd > b.MaxDrawdown {
			b.MaxDrawdown = dd
		}
		if dd := -p.DailyDrawdown; dd > b.MaxDailyDrawdown {
			b.MaxDailyDrawdown = dd
		}
	}
}

func (b *BacktestResults) calculateAnnualizedReturn() {
	b.AnnualizedReturn = 0
	if len(b.EquityCurve) < 2 || b.StartBalance <= 0 || b.EndBalance <= 0 {
		return
	}
	first := b.EquityCurve[0].Timestamp
	last := b.EquityCurve[len(b.EquityCurve)-1].Timestamp
	years := last.Sub(first).Hours() / (24 * 365.25)
	// annualizing anything shorter than a month is noise
	if years < float64(30*24*time.Hour)/float64(365*24*time.Hour) {
		return
	}
	b.AnnualizedReturn = math.Pow(b.EndBalance/b.StartBalance, 1.0/years) - 1.0
}

func (b *BacktestResults) tradeReturns() []float64 {
	out := make([]float64, 0, len(b.Trades))
	for _, t := range b.Trades {
		out = append(out, t.Return())
	}
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
