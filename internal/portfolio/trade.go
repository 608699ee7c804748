package portfolio

import (
	"time"

	"github.com/ducminhle1904/prop-challenge-engine/pkg/types"
)

// ExitReason names why a position was closed
type ExitReason string

const (
	ExitStopLoss   ExitReason = "stop_loss"
	ExitTakeProfit ExitReason = "take_profit"
	ExitTime       ExitReason = "time_exit"
	ExitSignal     ExitReason = "signal"
	ExitEndOfData  ExitReason = "end_of_data"
	ExitManual     ExitReason = "manual"
)

// Position is the open trade held by one strategy slot
type Position struct {
	Strategy     string          `json:"strategy"`
	Symbol       string          `json:"symbol"`
	Direction    types.Direction `json:"direction"`
	EntryPrice   float64         `json:"entry_price"`
	StopLoss     float64         `json:"stop_loss"`
	TakeProfit   float64         `json:"take_profit,omitempty"`
	Size         float64         `json:"size"`
	EntryTime    time.Time       `json:"entry_time"`
	RiskFraction float64         `json:"risk_fraction"`
	RiskAmount   float64         `json:"risk_amount"`
}

// TradeRecord is a closed trade. Records are values and never modified after creation.
type TradeRecord struct {
	ID          string          `json:"id"`
	Strategy    string          `json:"strategy"`
	Symbol      string          `json:"symbol"`
	Direction   types.Direction `json:"direction"`
	EntryTime   time.Time       `json:"entry_time"`
	ExitTime    time.Time       `json:"exit_time"`
	EntryPrice  float64         `json:"entry_price"`
	ExitPrice   float64         `json:"exit_price"`
	StopLoss    float64         `json:"stop_loss"`
	TakeProfit  float64         `json:"take_profit,omitempty"`
	Size        float64         `json:"size"`
	GrossPnL    float64         `json:"gross_pnl"`
	Commission  float64         `json:"commission"`
	Slippage    float64         `json:"slippage"`
	PnL         float64         `json:"pnl"`
	ExitReason  ExitReason      `json:"exit_reason"`
	EquityAfter float64         `json:"equity_after"`
}

// Return is the PnL relative to equity before the trade
func (t TradeRecord) Return() float64 {
	before := t.EquityAfter - t.PnL
	if before <= 0 {
		return 0
	}
	return t.PnL / before
}

// Duration is how long the position was held
func (t TradeRecord) Duration() time.Duration {
	return t.ExitTime.Sub(t.EntryTime)
}

// StrategyStats aggregates closed trades of one strategy
type StrategyStats struct {
	Strategy   string  `json:"strategy"`
	Allocation float64 `json:"allocation"`
	Trades     int     `json:"trades"`
	Wins       int     `json:"wins"`
	Losses     int     `json:"losses"`
	NetPnL     float64 `json:"net_pnl"`
	Rejections int     `json:"rejections"`
}

// WinRate returns wins as a percentage of trades
func (s StrategyStats) WinRate() float64 {
	if s.Trades == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Trades) * 100
}
