package types

import (
	"fmt"
	"strings"
	"time"
)

type OHLCV struct {
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Timestamp time.Time
}

// Direction is the side of a position
type Direction string

const (
	Long  Direction = "long"
	Short Direction = "short"
)

// ParseDirection accepts long/short and the buy/sell aliases
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "long", "buy":
		return Long, nil
	case "short", "sell":
		return Short, nil
	default:
		return "", fmt.Errorf("unknown direction %q", s)
	}
}

// Sign returns +1 for long and -1 for short
func (d Direction) Sign() float64 {
	if d == Short {
		return -1
	}
	return 1
}

func (d Direction) Valid() bool {
	return d == Long || d == Short
}

// Signal is an entry request produced by a strategy signal generator
type Signal struct {
	Time       time.Time
	Strategy   string
	Direction  Direction
	Entry      float64
	StopLoss   float64
	TakeProfit float64
}

// EquityPoint is one sample of the equity curve
type EquityPoint struct {
	Timestamp     time.Time
	Equity        float64
	PeakEquity    float64
	Drawdown      float64
	DailyDrawdown float64
	OpenPositions int
}
