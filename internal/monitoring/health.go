package monitoring

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/ducminhle1904/prop-challenge-engine/internal/risk"
)

type HealthChecker struct {
	mu         sync.RWMutex
	startTime  time.Time
	lastUpdate time.Time
	status     risk.Status
	seen       bool
}

type HealthStatus struct {
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
	LastUpdate    time.Time `json:"last_update"`
	Equity        float64   `json:"equity"`
	TotalDrawdown float64   `json:"total_drawdown"`
	DailyDrawdown float64   `json:"daily_drawdown"`
	Breaker       string    `json:"breaker"`
	Challenge     string    `json:"challenge"`
	Reason        string    `json:"reason,omitempty"`
	Uptime        string    `json:"uptime"`
}

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{startTime: time.Now()}
}

// Update stores the latest challenge status
func (h *HealthChecker) Update(st risk.Status) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.status = st
	h.lastUpdate = time.Now()
	h.seen = true
}

// Snapshot builds the health report. A failed challenge is unhealthy, a
// critical breaker or a run with no updates yet is degraded.
func (h *HealthChecker) Snapshot() HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "healthy"
	switch {
	case h.seen && h.status.Result.Failed():
		status = "unhealthy"
	case !h.seen || h.status.Level == risk.LevelCritical:
		status = "degraded"
	}

	return HealthStatus{
		Status:        status,
		Timestamp:     time.Now(),
		LastUpdate:    h.lastUpdate,
		Equity:        h.status.Account.Equity,
		TotalDrawdown: h.status.TotalDrawdown,
		DailyDrawdown: h.status.DailyDrawdown,
		Breaker:       h.status.Level.String(),
		Challenge:     h.status.Result.Status.String(),
		Reason:        h.status.Result.Reason,
		Uptime:        time.Since(h.startTime).String(),
	}
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	health := h.Snapshot()

	w.Header().Set("Content-Type", "application/json")
	switch health.Status {
	case "degraded":
		w.WriteHeader(http.StatusServiceUnavailable)
	case "unhealthy":
		w.WriteHeader(http.StatusInternalServerError)
	}
	json.NewEncoder(w).Encode(health)
}
