package risk

import (
	"fmt"
	"time"

	"github.com/ducminhle1904/prop-challenge-engine/internal/logger"
)

// Observer receives the account status after every applied update
type Observer interface {
	ObserveStatus(status Status)
}

// Option configures a Manager
type Option func(*Manager)

// WithLogger sets the logger used for breaker and terminal transitions
func WithLogger(l *logger.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithObserver registers an observer for status updates
func WithObserver(o Observer) Option {
	return func(m *Manager) { m.observer = o }
}

// Manager tracks account equity, evaluates circuit breakers and sizes trades
// for one challenge run. It is owned by a single caller and is not safe for
// concurrent use; updates must arrive in chronological order.
type Manager struct {
	cfg        Config
	account    Account
	streak     StreakState
	level      BreakerLevel
	result     ChallengeResult
	lastUpdate time.Time

	totalTrades int
	tradingDays map[string]struct{}

	log      *logger.Logger
	observer Observer
}

// EquityUpdate is the outcome of applying an equity value
type EquityUpdate struct {
	Equity        float64
	PeakEquity    float64
	TotalDrawdown float64
	DailyDrawdown float64
	Profit        float64
	Level         BreakerLevel
	Status        ChallengeStatus
	// Transitioned is true when this update ended the challenge
	Transitioned bool
	Reason       string
	Rejection    Rejection
}

// NewManager creates a risk manager for a fresh challenge
func NewManager(cfg Config, opts ...Option) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := &Manager{
		cfg:         cfg,
		account:     newAccount(cfg.InitialEquity),
		tradingDays: make(map[string]struct{}),
		log:         logger.Nop(),
	}
	m.streak.CurrentRiskFraction = cfg.BaseRiskFraction
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Config returns the rules the manager was built with
func (m *Manager) Config() Config { return m.cfg }

// Account returns a copy of the account state
func (m *Manager) Account() Account { return m.account }

// Streak returns a copy of the streak state
func (m *Manager) Streak() StreakState { return m.streak }

// Equity returns the current equity
func (m *Manager) Equity() float64 { return m.account.Equity }

// Level returns the current breaker level
func (m *Manager) Level() BreakerLevel { return m.level }

// Result returns the challenge result
func (m *Manager) Result() ChallengeResult { return m.result }

// IsChallengeActive reports whether the challenge has neither passed nor failed
func (m *Manager) IsChallengeActive() bool { return m.result.Status == StatusActive }

// CanTrade reports whether new positions may be opened
func (m *Manager) CanTrade() bool {
	return m.IsChallengeActive() && m.level != LevelCritical
}

// InOrder reports whether an update stamped ts would be accepted
func (m *Manager) InOrder(ts time.Time) bool {
	return m.lastUpdate.IsZero() || ts.IsZero() || !ts.Before(m.lastUpdate)
}

// UpdateEquity applies a new equity value, updates the peak and checks the
// max drawdown and profit target rules. Breaker levels are evaluated against
// the current day-start baseline, so callers crossing into a new calendar day
// roll it first with UpdateDaily at the equity held before the change.
func (m *Manager) UpdateEquity(equity float64, ts time.Time) EquityUpdate {
	if !m.InOrder(ts) {
		return m.rejected(RejectOutOfOrder)
	}
	if !IsFinite(equity) {
		return m.rejected(RejectInvalidEquity)
	}
	m.touch(ts)
	m.account.setEquity(equity)

	transitioned := false
	if m.IsChallengeActive() {
		total := m.account.TotalDrawdown()
		switch {
		case total < -m.cfg.MaxTotalDrawdown:
			transitioned = m.finish(StatusFailed, ts, fmt.Sprintf(
				"max drawdown limit breached: total drawdown %.2f%% below -%.2f%%",
				total*100, m.cfg.MaxTotalDrawdown*100))
		case m.account.Profit() >= m.cfg.ProfitTarget-epsilon:
			transitioned = m.finish(StatusPassed, ts, fmt.Sprintf(
				"profit target reached: %.2f%% >= %.2f%%",
				m.account.Profit()*100, m.cfg.ProfitTarget*100))
		}
	}
	return m.settle(transitioned)
}

// UpdateDaily rolls the day-start baseline when ts falls on a new calendar
// day and fails the challenge when the daily loss limit is breached.
func (m *Manager) UpdateDaily(equity float64, ts time.Time) EquityUpdate {
	if !m.InOrder(ts) {
		return m.rejected(RejectOutOfOrder)
	}
	if !IsFinite(equity) {
		return m.rejected(RejectInvalidEquity)
	}
	m.touch(ts)
	if !ts.IsZero() {
		if day := dayKey(ts); day != m.account.Day {
			if m.account.Day != "" {
				m.log.Status("new trading day %s: day-start equity %.2f", day, equity)
			}
			m.account.Day = day
			m.account.DayStartEquity = equity
		}
	}
	m.account.setEquity(equity)

	transitioned := false
	if m.IsChallengeActive() {
		if daily := m.account.DailyDrawdown(); daily < -m.cfg.MaxDailyDrawdown {
			transitioned = m.finish(StatusFailed, ts, fmt.Sprintf(
				"daily drawdown limit breached: daily drawdown %.2f%% below -%.2f%%",
				daily*100, m.cfg.MaxDailyDrawdown*100))
		}
	}
	return m.settle(transitioned)
}

// RecordTrade updates the win/loss streaks with a realized PnL. A breakeven
// trade leaves the streaks unchanged.
func (m *Manager) RecordTrade(pnl float64, ts time.Time) {
	m.streak.record(pnl)
	m.totalTrades++
	if !ts.IsZero() {
		m.tradingDays[dayKey(ts)] = struct{}{}
	}
	m.streak.CurrentRiskFraction = m.RiskFraction()
}

// RiskFraction returns the per-trade risk fraction after drawdown and streak
// adjustments, clamped to [MinRiskFraction, MaxRiskFraction].
func (m *Manager) RiskFraction() float64 {
	f := m.cfg.BaseRiskFraction
	if m.level >= LevelWarning {
		f *= m.cfg.WarningRiskMultiplier
	}
	if m.streak.ConsecutiveLosses >= m.cfg.LossStreakTrigger {
		f *= m.cfg.LossStreakMultiplier
	}
	if m.streak.ConsecutiveWins >= m.cfg.WinStreakTrigger {
		f *= m.cfg.WinStreakMultiplier
	}
	return clamp(f, m.cfg.MinRiskFraction, m.cfg.MaxRiskFraction)
}

func (m *Manager) touch(ts time.Time) {
	if !ts.IsZero() {
		m.lastUpdate = ts
	}
}

func (m *Manager) finish(status ChallengeStatus, ts time.Time, reason string) bool {
	if !m.IsChallengeActive() {
		return false
	}
	m.result = ChallengeResult{Status: status, Reason: reason, At: ts}
	if status == StatusFailed {
		m.log.Error("challenge FAILED: %s", reason)
	} else {
		m.log.Info("challenge PASSED: %s", reason)
	}
	return true
}

// settle re-evaluates the breaker level and builds the update outcome
func (m *Manager) settle(transitioned bool) EquityUpdate {
	level := evaluateLevel(m.cfg, m.account.TotalDrawdown(), m.account.DailyDrawdown())
	if level != m.level {
		m.log.Warning("circuit breaker %s -> %s (total %.2f%%, daily %.2f%%)",
			m.level, level, m.account.TotalDrawdown()*100, m.account.DailyDrawdown()*100)
		m.level = level
	}
	m.streak.CurrentRiskFraction = m.RiskFraction()

	if m.observer != nil {
		m.observer.ObserveStatus(m.Status())
	}

	upd := m.snapshotUpdate()
	upd.Transitioned = transitioned
	return upd
}

func (m *Manager) rejected(reason Rejection) EquityUpdate {
	m.log.Warning("equity update refused: %s", reason)
	upd := m.snapshotUpdate()
	upd.Rejection = reason
	return upd
}

func (m *Manager) snapshotUpdate() EquityUpdate {
	return EquityUpdate{
		Equity:        m.account.Equity,
		PeakEquity:    m.account.PeakEquity,
		TotalDrawdown: m.account.TotalDrawdown(),
		DailyDrawdown: m.account.DailyDrawdown(),
		Profit:        m.account.Profit(),
		Level:         m.level,
		Status:        m.result.Status,
		Reason:        m.result.Reason,
	}
}

func dayKey(ts time.Time) string {
	return ts.Format("2006-01-02")
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
