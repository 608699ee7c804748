package risk

import (
	"sort"
	"time"

	engineerrors "github.com/ducminhle1904/prop-challenge-engine/internal/errors"
)

// Status is a point-in-time report of the challenge
type Status struct {
	Account       Account         `json:"account"`
	Streak        StreakState     `json:"streak"`
	TotalDrawdown float64         `json:"total_drawdown"`
	DailyDrawdown float64         `json:"daily_drawdown"`
	Profit        float64         `json:"profit"`
	Level         BreakerLevel    `json:"level"`
	Result        ChallengeResult `json:"result"`
	CanTrade      bool            `json:"can_trade"`
	TotalTrades   int             `json:"total_trades"`
	TradingDays   int             `json:"trading_days"`
}

// Status returns the current challenge status
func (m *Manager) Status() Status {
	return Status{
		Account:       m.account,
		Streak:        m.streak,
		TotalDrawdown: m.account.TotalDrawdown(),
		DailyDrawdown: m.account.DailyDrawdown(),
		Profit:        m.account.Profit(),
		Level:         m.level,
		Result:        m.result,
		CanTrade:      m.CanTrade(),
		TotalTrades:   m.totalTrades,
		TradingDays:   len(m.tradingDays),
	}
}

// State is the persistable form of a Manager
type State struct {
	Account     Account         `json:"account"`
	Streak      StreakState     `json:"streak"`
	Level       BreakerLevel    `json:"level"`
	Result      ChallengeResult `json:"result"`
	LastUpdate  time.Time       `json:"last_update"`
	TotalTrades int             `json:"total_trades"`
	TradingDays []string        `json:"trading_days"`
}

// State exports the manager state for persistence
func (m *Manager) State() State {
	days := make([]string, 0, len(m.tradingDays))
	for d := range m.tradingDays {
		days = append(days, d)
	}
	sort.Strings(days)
	return State{
		Account:     m.account,
		Streak:      m.streak,
		Level:       m.level,
		Result:      m.result,
		LastUpdate:  m.lastUpdate,
		TotalTrades: m.totalTrades,
		TradingDays: days,
	}
}

// RestoreManager rebuilds a manager from a saved state
func RestoreManager(cfg Config, st State, opts ...Option) (*Manager, error) {
	m, err := NewManager(cfg, opts...)
	if err != nil {
		return nil, err
	}
	if st.Account.PeakEquity < st.Account.Equity {
		return nil, engineerrors.NewValidationError("risk", "restore", "peak equity below equity in saved state")
	}
	m.account = st.Account
	m.streak = st.Streak
	m.level = st.Level
	m.result = st.Result
	m.lastUpdate = st.LastUpdate
	m.totalTrades = st.TotalTrades
	for _, d := range st.TradingDays {
		m.tradingDays[d] = struct{}{}
	}
	return m, nil
}
