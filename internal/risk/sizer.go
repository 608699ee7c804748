package risk

import "math"

// SizeResult is the outcome of a sizing request. A zero Size with an empty
// Rejection is a valid computed size; a non-empty Rejection means refused.
type SizeResult struct {
	Size            float64
	RiskFraction    float64 // account-level fraction after adjustments
	AppliedFraction float64 // fraction actually risked (RiskFraction * share)
	RiskAmount      float64
	StopPips        float64
	LeverageCapped  bool
	Rejection       Rejection
}

// Accepted reports whether sizing was allowed
func (r SizeResult) Accepted() bool { return r.Rejection == RejectNone }

// IsFinite reports whether every value is neither NaN nor infinite
func IsFinite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// CalculatePositionSize sizes a trade with the full account risk fraction
func (m *Manager) CalculatePositionSize(entry, stop float64, inst Instrument) SizeResult {
	return m.SizeWithShare(entry, stop, inst, 1)
}

// SizeWithShare sizes a trade risking share of the adjusted account fraction.
// Lots = equity * fraction * share / (stop pips * pip value), capped by
// leverage and rounded down to the lot step.
func (m *Manager) SizeWithShare(entry, stop float64, inst Instrument, share float64) SizeResult {
	switch {
	case !m.IsChallengeActive():
		return SizeResult{Rejection: RejectChallengeOver}
	case m.level == LevelCritical:
		return SizeResult{Rejection: RejectTradingHalted}
	case !IsFinite(entry, stop) || entry <= 0 || stop <= 0 || inst.Validate() != nil:
		return SizeResult{Rejection: RejectInvalidPrice}
	case share <= 0 || share > 1:
		return SizeResult{Rejection: RejectInvalidShare}
	}

	stopPips := inst.StopPips(entry, stop)
	if stopPips <= 0 {
		return SizeResult{Rejection: RejectInvalidStop}
	}

	fraction := m.RiskFraction()
	applied := fraction * share
	equity := m.account.Equity
	riskAmount := equity * applied

	lots := riskAmount / (stopPips * inst.PipValue)
	maxLots := math.Max(equity, 0) * m.cfg.MaxLeverage / inst.ContractSize
	capped := false
	if lots > maxLots {
		lots = maxLots
		capped = true
	}

	return SizeResult{
		Size:            inst.RoundLots(lots),
		RiskFraction:    fraction,
		AppliedFraction: applied,
		RiskAmount:      riskAmount,
		StopPips:        stopPips,
		LeverageCapped:  capped,
	}
}
