package risk

import (
	"fmt"
	"time"
)

// BreakerLevel is the non-terminal circuit breaker state
type BreakerLevel int

const (
	LevelNormal BreakerLevel = iota
	LevelWarning
	LevelCritical
)

// String returns the string representation of the breaker level
func (l BreakerLevel) String() string {
	switch l {
	case LevelNormal:
		return "NORMAL"
	case LevelWarning:
		return "WARNING"
	case LevelCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

func (l BreakerLevel) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

func (l *BreakerLevel) UnmarshalText(b []byte) error {
	switch string(b) {
	case "NORMAL":
		*l = LevelNormal
	case "WARNING":
		*l = LevelWarning
	case "CRITICAL":
		*l = LevelCritical
	default:
		return fmt.Errorf("unknown breaker level %q", b)
	}
	return nil
}

// ChallengeStatus is the terminal state of the challenge
type ChallengeStatus int

const (
	StatusActive ChallengeStatus = iota
	StatusPassed
	StatusFailed
)

func (s ChallengeStatus) String() string {
	switch s {
	case StatusActive:
		return "ACTIVE"
	case StatusPassed:
		return "PASSED"
	case StatusFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

func (s ChallengeStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *ChallengeStatus) UnmarshalText(b []byte) error {
	switch string(b) {
	case "ACTIVE":
		*s = StatusActive
	case "PASSED":
		*s = StatusPassed
	case "FAILED":
		*s = StatusFailed
	default:
		return fmt.Errorf("unknown challenge status %q", b)
	}
	return nil
}

// ChallengeResult is set once when the challenge ends
type ChallengeResult struct {
	Status ChallengeStatus `json:"status"`
	Reason string          `json:"reason,omitempty"`
	At     time.Time       `json:"at,omitempty"`
}

func (r ChallengeResult) Passed() bool { return r.Status == StatusPassed }
func (r ChallengeResult) Failed() bool { return r.Status == StatusFailed }

// Rejection names why an operation was refused. The empty value means accepted.
type Rejection string

const (
	RejectNone          Rejection = ""
	RejectChallengeOver Rejection = "challenge_over"
	RejectTradingHalted Rejection = "trading_halted"
	RejectOutOfOrder    Rejection = "out_of_order"
	RejectInvalidPrice  Rejection = "invalid_price"
	RejectInvalidStop   Rejection = "invalid_stop"
	RejectInvalidShare  Rejection = "invalid_share"
	RejectInvalidEquity Rejection = "invalid_equity"
)

// thresholds compare with a small tolerance so that -0.09 computed from
// 91000/100000 lands inside the -9% band
const epsilon = 1e-12

// evaluateLevel maps total and daily drawdown (both <= 0) onto a breaker level
func evaluateLevel(cfg Config, total, daily float64) BreakerLevel {
	switch {
	case total <= -cfg.CriticalTotalDrawdown+epsilon || daily <= -cfg.CriticalDailyDrawdown+epsilon:
		return LevelCritical
	case total <= -cfg.WarningTotalDrawdown+epsilon || daily <= -cfg.WarningDailyDrawdown+epsilon:
		return LevelWarning
	default:
		return LevelNormal
	}
}
