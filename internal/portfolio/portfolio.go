package portfolio

import (
	"time"

	"github.com/ducminhle1904/prop-challenge-engine/internal/logger"
	"github.com/ducminhle1904/prop-challenge-engine/internal/risk"
	"github.com/ducminhle1904/prop-challenge-engine/pkg/types"
	"github.com/google/uuid"
)

// Arbitration rejections, in addition to the ones the risk manager returns
const (
	RejectUnknownStrategy  risk.Rejection = "unknown_strategy"
	RejectAlreadyOpen      risk.Rejection = "strategy_already_open"
	RejectMaxPositions     risk.Rejection = "max_concurrent_positions"
	RejectSameDirection    risk.Rejection = "max_same_direction"
	RejectInvalidDirection risk.Rejection = "invalid_direction"
	RejectInvalidTarget    risk.Rejection = "invalid_take_profit"
	RejectZeroSize         risk.Rejection = "zero_size"
	RejectNoPosition       risk.Rejection = "no_open_position"
)

// Observer receives trade lifecycle events
type Observer interface {
	ObserveTrade(trade TradeRecord)
	ObserveRejection(strategy string, reason risk.Rejection)
	ObserveOpenPositions(count int)
}

// Option configures a Portfolio
type Option func(*Portfolio)

func WithLogger(l *logger.Logger) Option {
	return func(p *Portfolio) { p.log = l }
}

func WithObserver(o Observer) Option {
	return func(p *Portfolio) { p.observer = o }
}

// WithIDGenerator overrides trade id generation
func WithIDGenerator(gen func() string) Option {
	return func(p *Portfolio) { p.newID = gen }
}

// Portfolio arbitrates positions across named sub-strategies. Each strategy
// slot is either empty or holds one Position. Not safe for concurrent use.
type Portfolio struct {
	cfg        Config
	risk       *risk.Manager
	strategies map[string]StrategyConfig
	order      []string
	positions  map[string]*Position
	trades     []TradeRecord
	stats      map[string]*StrategyStats

	log      *logger.Logger
	observer Observer
	newID    func() string
}

// OpenResult is the outcome of an open request
type OpenResult struct {
	Position Position
	Sizing   risk.SizeResult
	Reason   risk.Rejection
}

// Accepted reports whether a position was opened
func (r OpenResult) Accepted() bool { return r.Reason == risk.RejectNone }

// Size is the opened size, zero when rejected
func (r OpenResult) Size() float64 { return r.Position.Size }

// CloseResult is the outcome of a close request
type CloseResult struct {
	Trade  TradeRecord
	Update risk.EquityUpdate
	Reason risk.Rejection
}

// Closed reports whether a trade was realized
func (r CloseResult) Closed() bool { return r.Reason == risk.RejectNone }

// NewPortfolio creates the arbiter over the given risk manager
func NewPortfolio(cfg Config, rm *risk.Manager, opts ...Option) (*Portfolio, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Portfolio{
		cfg:        cfg,
		risk:       rm,
		strategies: make(map[string]StrategyConfig, len(cfg.Strategies)),
		positions:  make(map[string]*Position),
		stats:      make(map[string]*StrategyStats, len(cfg.Strategies)),
		log:        logger.Nop(),
		newID:      func() string { return uuid.NewString() },
	}
	for _, s := range cfg.Strategies {
		p.strategies[s.Name] = s
		p.order = append(p.order, s.Name)
		p.stats[s.Name] = &StrategyStats{Strategy: s.Name, Allocation: s.Allocation}
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Risk returns the underlying risk manager
func (p *Portfolio) Risk() *risk.Manager { return p.risk }

// Config returns the arbitration config
func (p *Portfolio) Config() Config { return p.cfg }

// OpenPosition opens a position for strategy when every rule allows it.
// Rejections leave the portfolio unchanged.
func (p *Portfolio) OpenPosition(strategy string, direction types.Direction, entry, stopLoss, takeProfit float64, ts time.Time) OpenResult {
	sc, known := p.strategies[strategy]

	reason := risk.RejectNone
	switch {
	case !p.risk.IsChallengeActive():
		reason = risk.RejectChallengeOver
	case !p.risk.CanTrade():
		reason = risk.RejectTradingHalted
	case !known:
		reason = RejectUnknownStrategy
	case p.positions[strategy] != nil:
		reason = RejectAlreadyOpen
	case len(p.positions) >= p.cfg.MaxConcurrentPositions:
		reason = RejectMaxPositions
	case p.countDirection(direction) >= p.cfg.MaxSameDirection:
		reason = RejectSameDirection
	case !direction.Valid():
		reason = RejectInvalidDirection
	case !risk.IsFinite(entry, stopLoss, takeProfit) || entry <= 0:
		reason = risk.RejectInvalidPrice
	case (stopLoss-entry)*direction.Sign() >= 0:
		reason = risk.RejectInvalidStop
	case takeProfit != 0 && (takeProfit-entry)*direction.Sign() <= 0:
		reason = RejectInvalidTarget
	}
	if reason != risk.RejectNone {
		return p.reject(strategy, reason, risk.SizeResult{})
	}

	sizing := p.risk.SizeWithShare(entry, stopLoss, sc.Instrument, sc.Allocation)
	if !sizing.Accepted() {
		return p.reject(strategy, sizing.Rejection, sizing)
	}
	if sizing.Size <= 0 {
		return p.reject(strategy, RejectZeroSize, sizing)
	}

	pos := &Position{
		Strategy:     strategy,
		Symbol:       sc.Instrument.Symbol,
		Direction:    direction,
		EntryPrice:   entry,
		StopLoss:     stopLoss,
		TakeProfit:   takeProfit,
		Size:         sizing.Size,
		EntryTime:    ts,
		RiskFraction: sizing.AppliedFraction,
		RiskAmount:   sizing.RiskAmount,
	}
	p.positions[strategy] = pos

	p.log.Trade("open %s %s %.2f lots @ %.5f sl %.5f tp %.5f (risk %.3f%%)",
		strategy, direction, pos.Size, entry, stopLoss, takeProfit, pos.RiskFraction*100)
	if p.observer != nil {
		p.observer.ObserveOpenPositions(len(p.positions))
	}
	return OpenResult{Position: *pos, Sizing: sizing}
}

// ClosePosition realizes the strategy's position at exitPrice. Closing stays
// allowed after the challenge has ended so final PnL is booked.
func (p *Portfolio) ClosePosition(strategy string, exitPrice float64, ts time.Time, reason ExitReason) CloseResult {
	pos := p.positions[strategy]
	switch {
	case pos == nil:
		return CloseResult{Reason: RejectNoPosition}
	case !risk.IsFinite(exitPrice) || exitPrice <= 0:
		return CloseResult{Reason: risk.RejectInvalidPrice}
	case !p.risk.InOrder(ts):
		return CloseResult{Reason: risk.RejectOutOfOrder}
	}

	inst := p.strategies[strategy].Instrument
	gross := inst.PnL(pos.Direction, pos.EntryPrice, exitPrice, pos.Size)
	commission := pos.Size * p.cfg.CommissionPerLot
	slippage := pos.Size * p.cfg.SlippagePips * inst.PipValue * 2
	pnl := gross - commission - slippage

	// a new day starts from the equity held before this close
	roll := p.risk.UpdateDaily(p.risk.Equity(), ts)

	equity := p.risk.Equity() + pnl
	total := p.risk.UpdateEquity(equity, ts)
	upd := p.risk.UpdateDaily(equity, ts)
	upd.Transitioned = upd.Transitioned || total.Transitioned || roll.Transitioned
	p.risk.RecordTrade(pnl, ts)

	trade := TradeRecord{
		ID:          p.newID(),
		Strategy:    strategy,
		Symbol:      pos.Symbol,
		Direction:   pos.Direction,
		EntryTime:   pos.EntryTime,
		ExitTime:    ts,
		EntryPrice:  pos.EntryPrice,
		ExitPrice:   exitPrice,
		StopLoss:    pos.StopLoss,
		TakeProfit:  pos.TakeProfit,
		Size:        pos.Size,
		GrossPnL:    gross,
		Commission:  commission,
		Slippage:    slippage,
		PnL:         pnl,
		ExitReason:  reason,
		EquityAfter: equity,
	}
	p.trades = append(p.trades, trade)
	delete(p.positions, strategy)

	st := p.stats[strategy]
	st.Trades++
	st.NetPnL += pnl
	if pnl > 0 {
		st.Wins++
	} else if pnl < 0 {
		st.Losses++
	}

	p.log.LogTradeClose(strategy, string(pos.Direction), pos.Size, pos.EntryPrice, exitPrice, pnl, equity, string(reason))
	if p.observer != nil {
		p.observer.ObserveTrade(trade)
		p.observer.ObserveOpenPositions(len(p.positions))
	}
	return CloseResult{Trade: trade, Update: upd}
}

// Position returns the open position of strategy
func (p *Portfolio) Position(strategy string) (Position, bool) {
	pos := p.positions[strategy]
	if pos == nil {
		return Position{}, false
	}
	return *pos, true
}

// OpenPositions returns open positions in strategy registration order
func (p *Portfolio) OpenPositions() []Position {
	out := make([]Position, 0, len(p.positions))
	for _, name := range p.order {
		if pos := p.positions[name]; pos != nil {
			out = append(out, *pos)
		}
	}
	return out
}

// OpenCount returns the number of open positions
func (p *Portfolio) OpenCount() int { return len(p.positions) }

// Trades returns a copy of the trade log
func (p *Portfolio) Trades() []TradeRecord {
	out := make([]TradeRecord, len(p.trades))
	copy(out, p.trades)
	return out
}

// Stats returns per-strategy statistics in registration order
func (p *Portfolio) Stats() []StrategyStats {
	out := make([]StrategyStats, 0, len(p.order))
	for _, name := range p.order {
		out = append(out, *p.stats[name])
	}
	return out
}

// Strategy returns the registered config of a strategy
func (p *Portfolio) Strategy(name string) (StrategyConfig, bool) {
	sc, ok := p.strategies[name]
	return sc, ok
}

// RestorePositions reinstates open positions from a snapshot into empty
// slots. The snapshot is refused as a whole when any position would break a
// rule OpenPosition enforces.
func (p *Portfolio) RestorePositions(positions []Position) risk.Rejection {
	count := len(p.positions)
	perDirection := map[types.Direction]int{
		types.Long:  p.countDirection(types.Long),
		types.Short: p.countDirection(types.Short),
	}
	seen := make(map[string]bool, len(positions))
	for _, pos := range positions {
		if _, ok := p.strategies[pos.Strategy]; !ok {
			return RejectUnknownStrategy
		}
		if p.positions[pos.Strategy] != nil || seen[pos.Strategy] {
			return RejectAlreadyOpen
		}
		seen[pos.Strategy] = true
		switch {
		case !pos.Direction.Valid():
			return RejectInvalidDirection
		case !risk.IsFinite(pos.EntryPrice, pos.StopLoss, pos.TakeProfit, pos.Size) || pos.EntryPrice <= 0 || pos.Size <= 0:
			return risk.RejectInvalidPrice
		case (pos.StopLoss-pos.EntryPrice)*pos.Direction.Sign() >= 0:
			return risk.RejectInvalidStop
		case pos.TakeProfit != 0 && (pos.TakeProfit-pos.EntryPrice)*pos.Direction.Sign() <= 0:
			return RejectInvalidTarget
		}
		count++
		perDirection[pos.Direction]++
		if count > p.cfg.MaxConcurrentPositions {
			return RejectMaxPositions
		}
		if perDirection[pos.Direction] > p.cfg.MaxSameDirection {
			return RejectSameDirection
		}
	}
	for i := range positions {
		pos := positions[i]
		p.positions[pos.Strategy] = &pos
	}
	return risk.RejectNone
}

func (p *Portfolio) countDirection(direction types.Direction) int {
	n := 0
	for _, pos := range p.positions {
		if pos.Direction == direction {
			n++
		}
	}
	return n
}

func (p *Portfolio) reject(strategy string, reason risk.Rejection, sizing risk.SizeResult) OpenResult {
	if st := p.stats[strategy]; st != nil {
		st.Rejections++
	}
	p.log.Info("open %s rejected: %s", strategy, reason)
	if p.observer != nil {
		p.observer.ObserveRejection(strategy, reason)
	}
	return OpenResult{Sizing: sizing, Reason: reason}
}
