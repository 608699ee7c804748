package monitoring

import (
	"net/http"

	"github.com/ducminhle1904/prop-challenge-engine/internal/portfolio"
	"github.com/ducminhle1904/prop-challenge-engine/internal/risk"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Account metrics
	equityGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "prop_challenge_equity",
			Help: "Current account equity",
		},
	)

	peakEquityGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "prop_challenge_peak_equity",
			Help: "Highest equity observed",
		},
	)

	drawdownGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "prop_challenge_drawdown_ratio",
			Help: "Drawdown as a signed fraction, by window",
		},
		[]string{"window"},
	)

	breakerLevelGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "prop_challenge_breaker_level",
			Help: "Circuit breaker level (0 normal, 1 warning, 2 critical)",
		},
	)

	challengeStatusGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "prop_challenge_status",
			Help: "Challenge status (0 active, 1 passed, 2 failed)",
		},
	)

	riskFractionGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "prop_challenge_risk_fraction",
			Help: "Current per-trade risk fraction after adjustments",
		},
	)

	// Trading metrics
	tradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prop_challenge_trades_total",
			Help: "Total number of closed trades",
		},
		[]string{"strategy", "exit_reason"},
	)

	tradePnL = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "prop_challenge_trade_pnl",
			Help:    "Distribution of net trade PnL",
			Buckets: []float64{-2000, -1000, -500, -250, 0, 250, 500, 1000, 2000, 4000},
		},
		[]string{"strategy"},
	)

	rejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prop_challenge_rejections_total",
			Help: "Open requests refused, by strategy and reason",
		},
		[]string{"strategy", "reason"},
	)

	openPositionsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "prop_challenge_open_positions",
			Help: "Number of open positions",
		},
	)

	// Error metrics
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prop_challenge_errors_total",
			Help: "Total number of errors",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(equityGauge)
	prometheus.MustRegister(peakEquityGauge)
	prometheus.MustRegister(drawdownGauge)
	prometheus.MustRegister(breakerLevelGauge)
	prometheus.MustRegister(challengeStatusGauge)
	prometheus.MustRegister(riskFractionGauge)
	prometheus.MustRegister(tradesTotal)
	prometheus.MustRegister(tradePnL)
	prometheus.MustRegister(rejectionsTotal)
	prometheus.MustRegister(openPositionsGauge)
	prometheus.MustRegister(errorsTotal)
}

// MetricsHandler handles Prometheus metrics endpoint
type MetricsHandler struct{}

func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

// ServeHTTP serves the Prometheus metrics endpoint
func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// Recorder exports risk and portfolio events as Prometheus metrics and keeps
// the health checker current. It satisfies risk.Observer and portfolio.Observer.
type Recorder struct {
	health *HealthChecker
}

// NewRecorder creates a recorder; health may be nil
func NewRecorder(health *HealthChecker) *Recorder {
	return &Recorder{health: health}
}

// ObserveStatus updates the account gauges
func (r *Recorder) ObserveStatus(st risk.Status) {
	equityGauge.Set(st.Account.Equity)
	peakEquityGauge.Set(st.Account.PeakEquity)
	drawdownGauge.WithLabelValues("total").Set(st.TotalDrawdown)
	drawdownGauge.WithLabelValues("daily").Set(st.DailyDrawdown)
	breakerLevelGauge.Set(float64(st.Level))
	challengeStatusGauge.Set(float64(st.Result.Status))
	riskFractionGauge.Set(st.Streak.CurrentRiskFraction)
	if r.health != nil {
		r.health.Update(st)
	}
}

// ObserveTrade records a closed trade
func (r *Recorder) ObserveTrade(trade portfolio.TradeRecord) {
	tradesTotal.WithLabelValues(trade.Strategy, string(trade.ExitReason)).Inc()
	tradePnL.WithLabelValues(trade.Strategy).Observe(trade.PnL)
}

// ObserveRejection counts a refused open request
func (r *Recorder) ObserveRejection(strategy string, reason risk.Rejection) {
	rejectionsTotal.WithLabelValues(strategy, string(reason)).Inc()
}

// ObserveOpenPositions sets the open position gauge
func (r *Recorder) ObserveOpenPositions(count int) {
	openPositionsGauge.Set(float64(count))
}

// RecordError records an error metric
func RecordError(errorType string) {
	errorsTotal.WithLabelValues(errorType).Inc()
}
