package backtest

import (
	"sort"
	"time"

	"github.com/ducminhle1904/prop-challenge-engine/internal/logger"
	"github.com/ducminhle1904/prop-challenge-engine/internal/portfolio"
	"github.com/ducminhle1904/prop-challenge-engine/internal/risk"
	"github.com/ducminhle1904/prop-challenge-engine/pkg/types"
)

// SignalSource yields the entry signals due at a bar
type SignalSource interface {
	SignalsAt(bar types.OHLCV) []types.Signal
}

// ScheduledSignals is a SignalSource backed by a fixed list of timestamped signals
type ScheduledSignals struct {
	byTime map[int64][]types.Signal
}

// NewScheduledSignals indexes signals by their bar time
func NewScheduledSignals(signals []types.Signal) *ScheduledSignals {
	s := &ScheduledSignals{byTime: make(map[int64][]types.Signal)}
	for _, sig := range signals {
		key := sig.Time.UnixNano()
		s.byTime[key] = append(s.byTime[key], sig)
	}
	return s
}

// SignalsAt returns the signals stamped with the bar's timestamp
func (s *ScheduledSignals) SignalsAt(bar types.OHLCV) []types.Signal {
	return s.byTime[bar.Timestamp.UnixNano()]
}

// Options control the driver loop
type Options struct {
	// MaxHoldingPeriod closes positions at the bar close once exceeded. Zero disables.
	MaxHoldingPeriod time.Duration
	// StopWhenFinished ends the run once the challenge is over and no positions remain
	StopWhenFinished bool
}

// BacktestEngine replays bars through a portfolio. It is the caller loop that
// detects stop/target/time exits and forwards signals to the arbiter.
type BacktestEngine struct {
	portfolio *portfolio.Portfolio
	signals   SignalSource
	opts      Options
	log       *logger.Logger
	results   *BacktestResults
}

// NewBacktestEngine creates an engine driving p with signals
func NewBacktestEngine(p *portfolio.Portfolio, signals SignalSource, opts Options, log *logger.Logger) *BacktestEngine {
	if log == nil {
		log = logger.Nop()
	}
	start := p.Risk().Equity()
	return &BacktestEngine{
		portfolio: p,
		signals:   signals,
		opts:      opts,
		log:       log,
		results: &BacktestResults{
			StartBalance: start,
			EndBalance:   start,
			Rejections:   make(map[risk.Rejection]int),
		},
	}
}

// Portfolio returns the portfolio being driven
func (b *BacktestEngine) Portfolio() *portfolio.Portfolio { return b.portfolio }

// Run processes bars in order and returns the results with metrics computed
func (b *BacktestEngine) Run(data []types.OHLCV) *BacktestResults {
	rm := b.portfolio.Risk()

	for i, bar := range data {
		rm.UpdateDaily(rm.Equity(), bar.Timestamp)

		b.processExits(bar)

		if b.opts.StopWhenFinished && !rm.IsChallengeActive() && b.portfolio.OpenCount() == 0 {
			b.recordPoint(bar.Timestamp)
			b.results.BarsProcessed = i + 1
			b.log.Info("challenge %s at %s, stopping replay", rm.Result().Status, bar.Timestamp.Format(time.RFC3339))
			break
		}

		b.processSignals(bar)
		b.recordPoint(bar.Timestamp)
		b.results.BarsProcessed = i + 1
	}

	if n := b.results.BarsProcessed; n > 0 {
		last := data[n-1]
		for _, pos := range b.portfolio.OpenPositions() {
			b.close(pos.Strategy, last.Close, last.Timestamp, portfolio.ExitEndOfData)
		}
		b.recordPoint(last.Timestamp)
	}

	b.finalize()
	return b.results
}

// processExits closes positions whose stop, target or holding period was hit.
// When a bar touches both stop and target the stop is assumed to fill first.
func (b *BacktestEngine) processExits(bar types.OHLCV) {
	for _, pos := range b.portfolio.OpenPositions() {
		if !bar.Timestamp.After(pos.EntryTime) {
			continue
		}
		if price, reason, hit := exitFor(pos, bar); hit {
			b.close(pos.Strategy, price, bar.Timestamp, reason)
			continue
		}
		if b.opts.MaxHoldingPeriod > 0 && bar.Timestamp.Sub(pos.EntryTime) >= b.opts.MaxHoldingPeriod {
			b.close(pos.Strategy, bar.Close, bar.Timestamp, portfolio.ExitTime)
		}
	}
}

func exitFor(pos portfolio.Position, bar types.OHLCV) (float64, portfolio.ExitReason, bool) {
	if pos.Direction == types.Long {
		if bar.Low <= pos.StopLoss {
			return stopFill(bar.Open, pos.StopLoss, types.Long), portfolio.ExitStopLoss, true
		}
		if pos.TakeProfit > 0 && bar.High >= pos.TakeProfit {
			return pos.TakeProfit, portfolio.ExitTakeProfit, true
		}
		return 0, "", false
	}
	if bar.High >= pos.StopLoss {
		return stopFill(bar.Open, pos.StopLoss, types.Short), portfolio.ExitStopLoss, true
	}
	if pos.TakeProfit > 0 && bar.Low <= pos.TakeProfit {
		return pos.TakeProfit, portfolio.ExitTakeProfit, true
	}
	return 0, "", false
}

// stopFill fills a stop at the open when the bar gapped through it
func stopFill(open, stop float64, dir types.Direction) float64 {
	if dir == types.Long && open < stop {
		return open
	}
	if dir == types.Short && open > stop {
		return open
	}
	return stop
}

func (b *BacktestEngine) processSignals(bar types.OHLCV) {
	if b.signals == nil {
		return
	}
	sigs := append([]types.Signal(nil), b.signals.SignalsAt(bar)...)
	// deterministic arbitration order for signals sharing a bar
	sort.SliceStable(sigs, func(i, j int) bool { return sigs[i].Strategy < sigs[j].Strategy })

	for _, sig := range sigs {
		b.results.SignalsSeen++
		entry := sig.Entry
		if entry <= 0 {
			entry = bar.Close
		}
		res := b.portfolio.OpenPosition(sig.Strategy, sig.Direction, entry, sig.StopLoss, sig.TakeProfit, bar.Timestamp)
		if !res.Accepted() {
			b.results.Rejections[res.Reason]++
		}
	}
}

func (b *BacktestEngine) close(strategy string, price float64, ts time.Time, reason portfolio.ExitReason) {
	res := b.portfolio.ClosePosition(strategy, price, ts, reason)
	if !res.Closed() {
		b.log.Warning("close %s refused: %s", strategy, res.Reason)
	}
}

func (b *BacktestEngine) recordPoint(ts time.Time) {
	st := b.portfolio.Risk().Status()
	point := types.EquityPoint{
		Timestamp:     ts,
		Equity:        st.Account.Equity,
		PeakEquity:    st.Account.PeakEquity,
		Drawdown:      st.TotalDrawdown,
		DailyDrawdown: st.DailyDrawdown,
		OpenPositions: b.portfolio.OpenCount(),
	}
	curve := b.results.EquityCurve
	if n := len(curve); n > 0 && curve[n-1].Timestamp.Equal(ts) {
		curve[n-1] = point
		return
	}
	b.results.EquityCurve = append(curve, point)
}

func (b *BacktestEngine) finalize() {
	rm := b.portfolio.Risk()
	st := rm.Status()

	r := b.results
	r.Trades = b.portfolio.Trades()
	r.StrategyStats = b.portfolio.Stats()
	r.EndBalance = st.Account.Equity
	if r.StartBalance > 0 {
		r.TotalReturn = (r.EndBalance - r.StartBalance) / r.StartBalance
	}
	r.Challenge = st.Result
	r.FinalStatus = st
	r.UpdateMetrics()
}
