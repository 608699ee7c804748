package portfolio

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/ducminhle1904/prop-challenge-engine/internal/risk"
	"github.com/ducminhle1904/prop-challenge-engine/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

func newTestPortfolio(t *testing.T, mutate func(*Config), opts ...Option) *Portfolio {
	t.Helper()
	rm, err := risk.NewManager(risk.DefaultConfig())
	require.NoError(t, err)

	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	seq := 0
	opts = append([]Option{WithIDGenerator(func() string {
		seq++
		return fmt.Sprintf("T%03d", seq)
	})}, opts...)

	p, err := NewPortfolio(cfg, rm, opts...)
	require.NoError(t, err)
	return p
}

func TestOpenPosition_SizesWithAllocation(t *testing.T) {
	p := newTestPortfolio(t, nil)

	res := p.OpenPosition("breakout", types.Long, 1.1000, 1.0950, 1.1100, t0)

	require.True(t, res.Accepted())
	// 100000 * 1% * 40% = 400 risked over 50 pips * $10
	assert.Equal(t, 0.8, res.Size())
	assert.InDelta(t, 0.004, res.Position.RiskFraction, 1e-12)
	assert.Equal(t, 1, p.OpenCount())
}

func TestOpenPosition_DoubleOpenRejected(t *testing.T) {
	p := newTestPortfolio(t, nil)

	first := p.OpenPosition("breakout", types.Long, 1.1000, 1.0950, 1.1100, t0)
	require.True(t, first.Accepted())

	second := p.OpenPosition("breakout", types.Short, 1.2000, 1.2100, 1.1900, t0.Add(time.Minute))

	assert.Equal(t, RejectAlreadyOpen, second.Reason)
	assert.Equal(t, 0.0, second.Size())
	pos, ok := p.Position("breakout")
	require.True(t, ok)
	assert.Equal(t, first.Position, pos, "first position must be untouched")
	assert.Equal(t, 1, p.OpenCount())
}

func TestOpenPosition_MaxConcurrent(t *testing.T) {
	p := newTestPortfolio(t, func(c *Config) { c.MaxSameDirection = 3 })

	require.True(t, p.OpenPosition("breakout", types.Long, 1.1000, 1.0950, 0, t0).Accepted())
	require.True(t, p.OpenPosition("trend", types.Short, 1.1000, 1.1050, 0, t0).Accepted())

	res := p.OpenPosition("reversion", types.Long, 1.1000, 1.0950, 0, t0)

	assert.Equal(t, RejectMaxPositions, res.Reason)
	assert.Equal(t, 2, p.OpenCount())
}

func TestOpenPosition_SameDirectionCap(t *testing.T) {
	p := newTestPortfolio(t, nil)

	require.True(t, p.OpenPosition("breakout", types.Long, 1.1000, 1.0950, 0, t0).Accepted())

	res := p.OpenPosition("trend", types.Long, 1.1000, 1.0950, 0, t0)
	assert.Equal(t, RejectSameDirection, res.Reason)

	res = p.OpenPosition("trend", types.Short, 1.1000, 1.1050, 0, t0)
	assert.True(t, res.Accepted())
}

func TestOpenPosition_Validation(t *testing.T) {
	tests := []struct {
		name      string
		strategy  string
		direction types.Direction
		entry     float64
		sl        float64
		tp        float64
		reason    risk.Rejection
	}{
		{"unknown strategy", "scalper", types.Long, 1.1, 1.09, 0, RejectUnknownStrategy},
		{"long stop above entry", "breakout", types.Long, 1.1, 1.11, 0, risk.RejectInvalidStop},
		{"short stop below entry", "breakout", types.Short, 1.1, 1.09, 0, risk.RejectInvalidStop},
		{"stop equals entry", "breakout", types.Long, 1.1, 1.1, 0, risk.RejectInvalidStop},
		{"long target below entry", "breakout", types.Long, 1.1, 1.09, 1.05, RejectInvalidTarget},
		{"bad direction", "breakout", types.Direction("flat"), 1.1, 1.09, 0, RejectInvalidDirection},
		{"zero entry", "breakout", types.Long, 0, 1.09, 0, risk.RejectInvalidPrice},
		{"nan stop", "breakout", types.Long, 1.1, math.NaN(), 0, risk.RejectInvalidPrice},
		{"infinite entry", "breakout", types.Long, math.Inf(1), 1.09, 0, risk.RejectInvalidPrice},
		{"nan target", "breakout", types.Long, 1.1, 1.09, math.NaN(), risk.RejectInvalidPrice},
		{"negative infinite stop", "breakout", types.Long, 1.1, math.Inf(-1), 0, risk.RejectInvalidPrice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPortfolio(t, nil)
			res := p.OpenPosition(tt.strategy, tt.direction, tt.entry, tt.sl, tt.tp, t0)
			assert.Equal(t, tt.reason, res.Reason)
			assert.Equal(t, 0, p.OpenCount())
		})
	}
}

func TestOpenPosition_ZeroSizeRejected(t *testing.T) {
	p := newTestPortfolio(t, nil)

	res := p.OpenPosition("reversion", types.Long, 150, 50, 0, t0)

	assert.Equal(t, RejectZeroSize, res.Reason)
	assert.True(t, res.Sizing.Accepted(), "sizer computed zero without refusing")
}

func TestOpenPosition_TradingHalted(t *testing.T) {
	p := newTestPortfolio(t, nil)
	p.Risk().UpdateEquity(91000, t0)

	res := p.OpenPosition("breakout", types.Long, 1.1000, 1.0950, 0, t0)

	assert.Equal(t, risk.RejectTradingHalted, res.Reason)
	assert.True(t, p.Risk().IsChallengeActive())
}

func TestClosePosition_RealizesPnL(t *testing.T) {
	p := newTestPortfolio(t, nil)
	require.True(t, p.OpenPosition("breakout", types.Long, 1.1000, 1.0950, 1.1100, t0).Accepted())

	res := p.ClosePosition("breakout", 1.1100, t0.Add(2*time.Hour), ExitTakeProfit)

	require.True(t, res.Closed())
	trade := res.Trade
	assert.Equal(t, "T001", trade.ID)
	assert.InDelta(t, 800, trade.GrossPnL, 1e-6)
	assert.InDelta(t, 5.6, trade.Commission, 1e-9)
	assert.InDelta(t, 8.0, trade.Slippage, 1e-9)
	assert.InDelta(t, 786.4, trade.PnL, 1e-6)
	assert.InDelta(t, 100786.4, trade.EquityAfter, 1e-6)
	assert.Equal(t, ExitTakeProfit, trade.ExitReason)
	assert.Equal(t, 2*time.Hour, trade.Duration())

	assert.InDelta(t, 100786.4, p.Risk().Equity(), 1e-6)
	assert.Equal(t, 1, p.Risk().Streak().ConsecutiveWins)
	assert.Equal(t, 0, p.OpenCount())
	assert.Len(t, p.Trades(), 1)
}

func TestClosePosition_ShortLoss(t *testing.T) {
	p := newTestPortfolio(t, func(c *Config) {
		c.CommissionPerLot = 0
		c.SlippagePips = 0
	})
	require.True(t, p.OpenPosition("trend", types.Short, 1.1000, 1.1050, 1.0900, t0).Accepted())

	res := p.ClosePosition("trend", 1.1050, t0.Add(time.Hour), ExitStopLoss)

	// 0.7 lots * 50 pips * $10
	assert.InDelta(t, -350, res.Trade.PnL, 1e-6)
	assert.Equal(t, 1, p.Risk().Streak().ConsecutiveLosses)
	stats := p.Stats()
	assert.Equal(t, "trend", stats[1].Strategy)
	assert.Equal(t, 1, stats[1].Losses)
}

func TestClosePosition_NoPosition(t *testing.T) {
	p := newTestPortfolio(t, nil)

	res := p.ClosePosition("breakout", 1.1, t0, ExitManual)

	assert.Equal(t, RejectNoPosition, res.Reason)
	assert.Empty(t, p.Trades())
}

func TestClosePosition_OutOfOrder(t *testing.T) {
	p := newTestPortfolio(t, nil)
	require.True(t, p.OpenPosition("breakout", types.Long, 1.1000, 1.0950, 0, t0).Accepted())
	p.Risk().UpdateDaily(p.Risk().Equity(), t0.Add(time.Hour))

	res := p.ClosePosition("breakout", 1.1050, t0.Add(time.Minute), ExitManual)

	assert.Equal(t, risk.RejectOutOfOrder, res.Reason)
	assert.Equal(t, 1, p.OpenCount())
}

func TestClosePosition_NonFiniteExit(t *testing.T) {
	p := newTestPortfolio(t, nil)
	require.True(t, p.OpenPosition("breakout", types.Long, 1.1000, 1.0950, 0, t0).Accepted())

	for _, exit := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		res := p.ClosePosition("breakout", exit, t0.Add(time.Hour), ExitManual)
		assert.Equal(t, risk.RejectInvalidPrice, res.Reason)
	}
	assert.Equal(t, 100000.0, p.Risk().Equity())
	assert.Equal(t, 1, p.OpenCount())
	assert.Empty(t, p.Trades())
}

func TestClosePosition_LossOnNewDayCountsAgainstThatDay(t *testing.T) {
	p := newTestPortfolio(t, func(c *Config) {
		c.CommissionPerLot = 0
		c.SlippagePips = 0
	})
	p.Risk().UpdateDaily(100000, t0)
	open := p.OpenPosition("breakout", types.Long, 1.1000, 1.0950, 0, t0)
	require.True(t, open.Accepted())
	require.InDelta(t, 0.8, open.Position.Size, 1e-9)

	// 750 pips against 0.8 lots on the following day
	res := p.ClosePosition("breakout", 1.0250, t0.Add(24*time.Hour), ExitManual)
	require.True(t, res.Closed())

	acct := p.Risk().Account()
	assert.InDelta(t, 94000, acct.Equity, 1e-6)
	assert.InDelta(t, 100000, acct.DayStartEquity, 1e-6, "day must roll before the loss is applied")
	assert.Equal(t, "2024-03-05", acct.Day)
	assert.True(t, res.Update.Transitioned)
	assert.Equal(t, risk.StatusFailed, p.Risk().Result().Status)
	assert.Contains(t, p.Risk().Result().Reason, "daily drawdown")
}

func TestSlotLifecycle_ReopenAfterClose(t *testing.T) {
	p := newTestPortfolio(t, nil)

	require.True(t, p.OpenPosition("breakout", types.Long, 1.1000, 1.0950, 0, t0).Accepted())
	require.True(t, p.ClosePosition("breakout", 1.1010, t0.Add(time.Hour), ExitSignal).Closed())

	res := p.OpenPosition("breakout", types.Short, 1.1010, 1.1060, 0, t0.Add(2*time.Hour))
	assert.True(t, res.Accepted())
}

// TestFailedChallenge_HaltsOpensButAllowsCloses covers the terminal failure path
func TestFailedChallenge_HaltsOpensButAllowsCloses(t *testing.T) {
	p := newTestPortfolio(t, nil)
	require.True(t, p.OpenPosition("breakout", types.Long, 1.1000, 1.0950, 0, t0).Accepted())

	upd := p.Risk().UpdateEquity(89000, t0.Add(time.Hour))
	require.Equal(t, risk.StatusFailed, upd.Status)
	require.Contains(t, upd.Reason, "max drawdown")

	for i := 0; i < 3; i++ {
		res := p.OpenPosition("trend", types.Short, 1.1000, 1.1050, 0, t0.Add(time.Duration(2+i)*time.Hour))
		assert.Equal(t, risk.RejectChallengeOver, res.Reason)
		assert.Equal(t, 0.0, res.Size())
	}

	res := p.ClosePosition("breakout", 1.0980, t0.Add(6*time.Hour), ExitManual)
	assert.True(t, res.Closed())
	assert.Equal(t, risk.StatusFailed, res.Update.Status)
	assert.False(t, res.Update.Transitioned)
	assert.Equal(t, 0, p.OpenCount())
}

func TestClosePosition_ReportsTransition(t *testing.T) {
	p := newTestPortfolio(t, func(c *Config) {
		c.CommissionPerLot = 0
		c.SlippagePips = 0
	})
	p.Risk().UpdateEquity(109900, t0)
	require.True(t, p.OpenPosition("breakout", types.Long, 1.1000, 1.0950, 0, t0).Accepted())

	res := p.ClosePosition("breakout", 1.1050, t0.Add(time.Hour), ExitTakeProfit)

	assert.True(t, res.Update.Transitioned)
	assert.Equal(t, risk.StatusPassed, res.Update.Status)
}

func TestExposure(t *testing.T) {
	p := newTestPortfolio(t, nil)
	require.True(t, p.OpenPosition("breakout", types.Long, 1.1000, 1.0950, 0, t0).Accepted())

	e := p.Exposure()

	assert.InDelta(t, 88000, e.Notional, 1e-6)
	assert.InDelta(t, 880, e.MarginUsed, 1e-6)
	assert.InDelta(t, 0.0088, e.MarginUtilization, 1e-9)
	assert.Equal(t, 1, e.Long)
}

func TestRestorePositions(t *testing.T) {
	p := newTestPortfolio(t, nil)
	pos := Position{Strategy: "trend", Direction: types.Short, EntryPrice: 1.1, StopLoss: 1.105, Size: 0.5, EntryTime: t0}

	assert.Equal(t, risk.RejectNone, p.RestorePositions([]Position{pos}))
	assert.Equal(t, RejectAlreadyOpen, p.RestorePositions([]Position{pos}))
	assert.Equal(t, RejectUnknownStrategy, p.RestorePositions([]Position{{Strategy: "nope"}}))
	assert.Equal(t, 1, p.OpenCount())
}

func TestRestorePositions_EnforcesOpenRules(t *testing.T) {
	long := func(strategy string) Position {
		return Position{Strategy: strategy, Direction: types.Long, EntryPrice: 1.1, StopLoss: 1.095, Size: 0.5, EntryTime: t0}
	}
	short := func(strategy string) Position {
		return Position{Strategy: strategy, Direction: types.Short, EntryPrice: 1.1, StopLoss: 1.105, Size: 0.5, EntryTime: t0}
	}
	with := func(pos Position, mutate func(*Position)) Position {
		mutate(&pos)
		return pos
	}

	tests := []struct {
		name      string
		mutate    func(*Config)
		positions []Position
		reason    risk.Rejection
	}{
		{"above max concurrent", func(c *Config) { c.MaxSameDirection = 3 },
			[]Position{long("breakout"), short("trend"), long("reversion")}, RejectMaxPositions},
		{"above same direction cap", nil,
			[]Position{long("breakout"), long("trend")}, RejectSameDirection},
		{"duplicate strategy", nil,
			[]Position{long("breakout"), short("breakout")}, RejectAlreadyOpen},
		{"long stop above entry", nil,
			[]Position{with(long("breakout"), func(p *Position) { p.StopLoss = 1.2 })}, risk.RejectInvalidStop},
		{"short target above entry", nil,
			[]Position{with(short("trend"), func(p *Position) { p.TakeProfit = 1.2 })}, RejectInvalidTarget},
		{"bad direction", nil,
			[]Position{with(long("breakout"), func(p *Position) { p.Direction = "flat" })}, RejectInvalidDirection},
		{"nan entry", nil,
			[]Position{with(long("breakout"), func(p *Position) { p.EntryPrice = math.NaN() })}, risk.RejectInvalidPrice},
		{"zero size", nil,
			[]Position{with(long("breakout"), func(p *Position) { p.Size = 0 })}, risk.RejectInvalidPrice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPortfolio(t, tt.mutate)
			assert.Equal(t, tt.reason, p.RestorePositions(tt.positions))
			assert.Equal(t, 0, p.OpenCount(), "a refused snapshot restores nothing")
		})
	}
}

func TestRestorePositions_CountsExistingSlots(t *testing.T) {
	p := newTestPortfolio(t, nil)
	require.True(t, p.OpenPosition("breakout", types.Long, 1.1000, 1.0950, 0, t0).Accepted())

	pos := Position{Strategy: "trend", Direction: types.Long, EntryPrice: 1.1, StopLoss: 1.095, Size: 0.5, EntryTime: t0}
	assert.Equal(t, RejectSameDirection, p.RestorePositions([]Position{pos}))

	pos.Direction, pos.StopLoss = types.Short, 1.105
	assert.Equal(t, risk.RejectNone, p.RestorePositions([]Position{pos}))
	assert.Equal(t, 2, p.OpenCount())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"allocations above one", func(c *Config) { c.Strategies[0].Allocation = 0.6 }},
		{"duplicate name", func(c *Config) { c.Strategies[1].Name = c.Strategies[0].Name }},
		{"zero cap", func(c *Config) { c.MaxConcurrentPositions = 0 }},
		{"negative commission", func(c *Config) { c.CommissionPerLot = -1 }},
		{"no strategies", func(c *Config) { c.Strategies = nil }},
		{"bad instrument", func(c *Config) { c.Strategies[0].Instrument.PipSize = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, DefaultConfig().Validate())
}

type countingObserver struct {
	trades     int
	rejections map[risk.Rejection]int
	open       int
}

func (c *countingObserver) ObserveTrade(TradeRecord) { c.trades++ }
func (c *countingObserver) ObserveRejection(_ string, r risk.Rejection) {
	c.rejections[r]++
}
func (c *countingObserver) ObserveOpenPositions(n int) { c.open = n }

func TestPortfolio_NotifiesObserver(t *testing.T) {
	obs := &countingObserver{rejections: map[risk.Rejection]int{}}
	p := newTestPortfolio(t, nil, WithObserver(obs))

	p.OpenPosition("breakout", types.Long, 1.1000, 1.0950, 0, t0)
	assert.Equal(t, 1, obs.open)
	p.OpenPosition("breakout", types.Long, 1.1000, 1.0950, 0, t0)
	p.ClosePosition("breakout", 1.1010, t0.Add(time.Hour), ExitManual)

	assert.Equal(t, 1, obs.trades)
	assert.Equal(t, 1, obs.rejections[RejectAlreadyOpen])
	assert.Equal(t, 0, obs.open)
	assert.Equal(t, 1, p.Stats()[0].Rejections)
}
