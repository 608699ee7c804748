package risk

// Account is the equity bookkeeping of the challenge. PeakEquity never
// decreases and is always >= Equity.
type Account struct {
	InitialEquity  float64 `json:"initial_equity"`
	Equity         float64 `json:"equity"`
	PeakEquity     float64 `json:"peak_equity"`
	DayStartEquity float64 `json:"day_start_equity"`
	Day            string  `json:"day"` // YYYY-MM-DD of the day-start baseline
}

func newAccount(initial float64) Account {
	return Account{
		InitialEquity:  initial,
		Equity:         initial,
		PeakEquity:     initial,
		DayStartEquity: initial,
	}
}

func (a *Account) setEquity(equity float64) {
	a.Equity = equity
	if equity > a.PeakEquity {
		a.PeakEquity = equity
	}
}

// TotalDrawdown is (equity - peak) / peak, never positive
func (a Account) TotalDrawdown() float64 {
	if a.PeakEquity <= 0 {
		return 0
	}
	return (a.Equity - a.PeakEquity) / a.PeakEquity
}

// DailyDrawdown is the change from the day-start equity, zero when above it
func (a Account) DailyDrawdown() float64 {
	if a.DayStartEquity <= 0 || a.Equity >= a.DayStartEquity {
		return 0
	}
	return (a.Equity - a.DayStartEquity) / a.DayStartEquity
}

// Profit is the return on initial equity
func (a Account) Profit() float64 {
	if a.InitialEquity <= 0 {
		return 0
	}
	return (a.Equity - a.InitialEquity) / a.InitialEquity
}

// StreakState tracks consecutive trade outcomes
type StreakState struct {
	ConsecutiveWins     int     `json:"consecutive_wins"`
	ConsecutiveLosses   int     `json:"consecutive_losses"`
	CurrentRiskFraction float64 `json:"current_risk_fraction"`
}

func (s *StreakState) record(pnl float64) {
	switch {
	case pnl > 0:
		s.ConsecutiveWins++
		s.ConsecutiveLosses = 0
	case pnl < 0:
		s.ConsecutiveLosses++
		s.ConsecutiveWins = 0
	}
}
