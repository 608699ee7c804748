package risk

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(DefaultConfig())
	require.NoError(t, err)
	return m
}

var day1 = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

// TestNewManager_InitialState tests a fresh manager
func TestNewManager_InitialState(t *testing.T) {
	m := newTestManager(t)

	acct := m.Account()
	assert.Equal(t, 100000.0, acct.Equity)
	assert.Equal(t, 100000.0, acct.PeakEquity)
	assert.Equal(t, 100000.0, acct.DayStartEquity)
	assert.True(t, m.IsChallengeActive())
	assert.True(t, m.CanTrade())
	assert.Equal(t, LevelNormal, m.Level())
	assert.InDelta(t, 0.01, m.RiskFraction(), 1e-12)
}

func TestNewManager_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WarningTotalDrawdown = 0.095 // above critical

	_, err := NewManager(cfg)
	assert.Error(t, err)
}

// TestUpdateEquity_PeakInvariant walks a random equity path and checks the peak
func TestUpdateEquity_PeakInvariant(t *testing.T) {
	m := newTestManager(t)
	rng := rand.New(rand.NewSource(42))

	equity := 100000.0
	prevPeak := m.Account().PeakEquity
	ts := day1
	for i := 0; i < 500; i++ {
		equity += (rng.Float64() - 0.5) * 800
		ts = ts.Add(time.Hour)
		upd := m.UpdateEquity(equity, ts)

		assert.GreaterOrEqual(t, upd.PeakEquity, prevPeak, "peak must not decrease")
		assert.GreaterOrEqual(t, upd.PeakEquity, upd.Equity, "peak must be >= equity")
		assert.LessOrEqual(t, upd.TotalDrawdown, 0.0)
		prevPeak = upd.PeakEquity
	}
}

func TestUpdateEquity_MaxDrawdownFails(t *testing.T) {
	m := newTestManager(t)

	upd := m.UpdateEquity(89000, day1)

	assert.Equal(t, StatusFailed, upd.Status)
	assert.True(t, upd.Transitioned)
	assert.Contains(t, upd.Reason, "max drawdown")
	assert.False(t, m.IsChallengeActive())
	assert.False(t, m.CanTrade())
}

func TestUpdateEquity_ExactLimitDoesNotFail(t *testing.T) {
	m := newTestManager(t)

	upd := m.UpdateEquity(90000, day1)

	assert.Equal(t, StatusActive, upd.Status)
	assert.Equal(t, LevelCritical, upd.Level)
}

func TestUpdateEquity_ProfitTargetPasses(t *testing.T) {
	m := newTestManager(t)

	upd := m.UpdateEquity(110000, day1)
	assert.Equal(t, StatusPassed, upd.Status)
	assert.True(t, upd.Transitioned)
	assert.Contains(t, upd.Reason, "profit target")

	// terminal state is set once
	upd = m.UpdateEquity(85000, day1.Add(time.Hour))
	assert.Equal(t, StatusPassed, upd.Status)
	assert.False(t, upd.Transitioned)
	assert.True(t, m.Result().Passed())
}

func TestUpdateEquity_FailureIsPermanent(t *testing.T) {
	m := newTestManager(t)

	m.UpdateEquity(89000, day1)
	upd := m.UpdateEquity(120000, day1.Add(time.Hour))

	assert.Equal(t, StatusFailed, upd.Status)
	assert.False(t, upd.Transitioned)
	assert.True(t, m.Result().Failed())
}

func TestUpdateEquity_OutOfOrderRefused(t *testing.T) {
	m := newTestManager(t)

	m.UpdateEquity(99000, day1.Add(2*time.Hour))
	upd := m.UpdateEquity(50000, day1)

	assert.Equal(t, RejectOutOfOrder, upd.Rejection)
	assert.Equal(t, 99000.0, m.Equity())
	assert.True(t, m.IsChallengeActive())
}

func TestUpdateEquity_NonFiniteRefused(t *testing.T) {
	m := newTestManager(t)

	for _, equity := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		assert.Equal(t, RejectInvalidEquity, m.UpdateEquity(equity, day1).Rejection)
		assert.Equal(t, RejectInvalidEquity, m.UpdateDaily(equity, day1).Rejection)
	}
	assert.Equal(t, 100000.0, m.Equity())
	assert.Equal(t, 100000.0, m.Account().PeakEquity)
	assert.True(t, m.IsChallengeActive())
}

func TestCircuitBreaker_Levels(t *testing.T) {
	tests := []struct {
		name   string
		equity float64
		level  BreakerLevel
		trade  bool
	}{
		{"normal", 97000, LevelNormal, true},
		{"warning at -7%", 93000, LevelWarning, true},
		{"warning between bands", 92000, LevelWarning, true},
		{"critical at -9%", 91000, LevelCritical, false},
		{"critical before terminal", 90500, LevelCritical, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(t)
			// same calendar day keeps the daily drawdown in play, so move the
			// day baseline along with the equity to isolate total drawdown
			m.UpdateEquity(tt.equity, day1)
			m.UpdateDaily(tt.equity, day1.AddDate(0, 0, 1))

			assert.Equal(t, tt.level, m.Level())
			assert.Equal(t, tt.trade, m.CanTrade())
			assert.True(t, m.IsChallengeActive())
		})
	}
}

// TestCriticalDrawdown_BlocksSizing covers the -9% scenario
func TestCriticalDrawdown_BlocksSizing(t *testing.T) {
	m := newTestManager(t)

	m.UpdateEquity(91000, day1)

	assert.False(t, m.CanTrade())
	res := m.CalculatePositionSize(1.1000, 1.0950, DefaultInstrument())
	assert.Equal(t, 0.0, res.Size)
	assert.Equal(t, RejectTradingHalted, res.Rejection)

	res = m.CalculatePositionSize(2000, 1990, Instrument{Symbol: "XAUUSD", PipSize: 0.1, PipValue: 10, ContractSize: 100, LotStep: 0.01})
	assert.Equal(t, 0.0, res.Size)
}

func TestCriticalDrawdown_Recovers(t *testing.T) {
	m := newTestManager(t)

	m.UpdateEquity(91000, day1)
	require.False(t, m.CanTrade())

	m.UpdateDaily(91000, day1.AddDate(0, 0, 1))
	m.UpdateEquity(96000, day1.AddDate(0, 0, 1).Add(time.Hour))

	assert.Equal(t, LevelNormal, m.Level())
	assert.True(t, m.CanTrade())
}

// TestUpdateDaily_DailyLimitFails covers the -5.5% intraday scenario
func TestUpdateDaily_DailyLimitFails(t *testing.T) {
	m := newTestManager(t)

	m.UpdateDaily(100000, day1)
	upd := m.UpdateDaily(94500, day1.Add(6*time.Hour))

	assert.Equal(t, StatusFailed, upd.Status)
	assert.True(t, upd.Transitioned)
	assert.Contains(t, upd.Reason, "daily drawdown")
	assert.InDelta(t, -0.055, upd.DailyDrawdown, 1e-9)
}

func TestUpdateDaily_NewDayResetsBaseline(t *testing.T) {
	m := newTestManager(t)

	m.UpdateDaily(100000, day1)
	upd := m.UpdateDaily(96000, day1.Add(4*time.Hour))
	assert.Equal(t, LevelWarning, upd.Level, "-4%% daily is in the warning band")

	upd = m.UpdateDaily(96000, day1.AddDate(0, 0, 1))
	assert.Equal(t, 96000.0, m.Account().DayStartEquity)
	assert.Equal(t, 0.0, upd.DailyDrawdown)
	assert.Equal(t, LevelNormal, upd.Level)

	// a fresh 5% budget applies on the new day
	upd = m.UpdateDaily(92000, day1.AddDate(0, 0, 1).Add(time.Hour))
	assert.Equal(t, StatusActive, upd.Status)
	assert.Equal(t, LevelWarning, upd.Level)
}

func TestUpdateDaily_DailyWarningAndCritical(t *testing.T) {
	m := newTestManager(t)

	m.UpdateDaily(100000, day1)
	assert.Equal(t, LevelWarning, m.UpdateDaily(97000, day1.Add(time.Hour)).Level)
	assert.Equal(t, LevelCritical, m.UpdateDaily(95500, day1.Add(2*time.Hour)).Level)
	assert.True(t, m.IsChallengeActive())
	assert.False(t, m.CanTrade())
}

// TestRecordTrade_LossStreak covers four consecutive -700 losses
func TestRecordTrade_LossStreak(t *testing.T) {
	m := newTestManager(t)

	equity := 100000.0
	ts := day1
	for i := 0; i < 4; i++ {
		equity -= 700
		ts = ts.Add(time.Hour)
		m.UpdateEquity(equity, ts)
		m.UpdateDaily(equity, ts)
		m.RecordTrade(-700, ts)
	}

	st := m.Streak()
	assert.Equal(t, 4, st.ConsecutiveLosses)
	assert.Equal(t, 0, st.ConsecutiveWins)
	assert.InDelta(t, 0.005, m.RiskFraction(), 1e-12)
	assert.InDelta(t, 0.005, st.CurrentRiskFraction, 1e-12)
}

func TestRecordTrade_WinStreakScalesUp(t *testing.T) {
	m := newTestManager(t)

	for i := 0; i < 4; i++ {
		m.RecordTrade(100, day1)
	}
	assert.InDelta(t, 0.01, m.RiskFraction(), 1e-12)

	m.RecordTrade(100, day1)
	assert.InDelta(t, 0.015, m.RiskFraction(), 1e-12)

	m.RecordTrade(-50, day1)
	assert.Equal(t, 0, m.Streak().ConsecutiveWins)
	assert.Equal(t, 1, m.Streak().ConsecutiveLosses)
	assert.InDelta(t, 0.01, m.RiskFraction(), 1e-12)
}

func TestRecordTrade_BreakevenKeepsStreak(t *testing.T) {
	m := newTestManager(t)

	m.RecordTrade(-10, day1)
	m.RecordTrade(0, day1)

	assert.Equal(t, 1, m.Streak().ConsecutiveLosses)
	assert.Equal(t, 2, m.Status().TotalTrades)
}

// TestRiskFraction_ClampInvariant sweeps streak and drawdown combinations
func TestRiskFraction_ClampInvariant(t *testing.T) {
	cfg := DefaultConfig()
	for _, equity := range []float64{100000, 99000, 93000, 92000, 91500} {
		for n := 0; n <= 8; n++ {
			for _, pnl := range []float64{100, -100} {
				m, err := NewManager(cfg)
				require.NoError(t, err)
				m.UpdateEquity(equity, day1)
				for i := 0; i < n; i++ {
					m.RecordTrade(pnl, day1)
				}
				f := m.RiskFraction()
				assert.GreaterOrEqual(t, f, cfg.MinRiskFraction)
				assert.LessOrEqual(t, f, cfg.MaxRiskFraction)
			}
		}
	}
}

func TestRiskFraction_WarningAndWinsMultiply(t *testing.T) {
	m := newTestManager(t)

	m.UpdateEquity(93000, day1)
	m.UpdateDaily(93000, day1.AddDate(0, 0, 1))
	for i := 0; i < 5; i++ {
		m.RecordTrade(10, day1.AddDate(0, 0, 1))
	}

	// 0.01 * 0.5 * 1.5
	assert.InDelta(t, 0.0075, m.RiskFraction(), 1e-12)
}

func TestStatus_TradingDays(t *testing.T) {
	m := newTestManager(t)

	m.RecordTrade(10, day1)
	m.RecordTrade(10, day1.Add(time.Hour))
	m.RecordTrade(10, day1.AddDate(0, 0, 2))

	st := m.Status()
	assert.Equal(t, 2, st.TradingDays)
	assert.Equal(t, 3, st.TotalTrades)
}

func TestRestoreManager_RoundTrip(t *testing.T) {
	m := newTestManager(t)
	m.UpdateDaily(100000, day1)
	m.UpdateEquity(95000, day1.Add(time.Hour))
	m.RecordTrade(-5000, day1.Add(time.Hour))

	restored, err := RestoreManager(DefaultConfig(), m.State())
	require.NoError(t, err)

	assert.Equal(t, m.Account(), restored.Account())
	assert.Equal(t, m.Streak(), restored.Streak())
	assert.Equal(t, m.Level(), restored.Level())
	assert.Equal(t, m.Status().TradingDays, restored.Status().TradingDays)
	assert.False(t, restored.InOrder(day1), "last update time is restored")
}

func TestRestoreManager_RejectsBrokenPeak(t *testing.T) {
	st := newTestManager(t).State()
	st.Account.PeakEquity = st.Account.Equity - 1

	_, err := RestoreManager(DefaultConfig(), st)
	assert.Error(t, err)
}

type recordingObserver struct {
	statuses []Status
}

func (r *recordingObserver) ObserveStatus(s Status) { r.statuses = append(r.statuses, s) }

func TestManager_NotifiesObserver(t *testing.T) {
	obs := &recordingObserver{}
	m, err := NewManager(DefaultConfig(), WithObserver(obs))
	require.NoError(t, err)

	m.UpdateEquity(101000, day1)
	m.UpdateDaily(101000, day1)

	require.Len(t, obs.statuses, 2)
	assert.Equal(t, 101000.0, obs.statuses[1].Account.Equity)
}
