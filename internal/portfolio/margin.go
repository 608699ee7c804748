package portfolio

// Exposure summarizes the notional and margin held by open positions
type Exposure struct {
	Notional          float64 `json:"notional"`
	MarginUsed        float64 `json:"margin_used"`
	MarginUtilization float64 `json:"margin_utilization"` // margin used / equity
	Long              int     `json:"long"`
	Short             int     `json:"short"`
}

// RequiredMargin returns the margin for a notional at leverage.
//
// Example: $100,000 notional at 100x = $1,000 margin
func RequiredMargin(notional, leverage float64) float64 {
	if leverage <= 0 {
		return notional
	}
	return notional / leverage
}

// Exposure computes notional and margin for the open positions using the
// account leverage cap
func (p *Portfolio) Exposure() Exposure {
	leverage := p.risk.Config().MaxLeverage
	var e Exposure
	for name, pos := range p.positions {
		inst := p.strategies[name].Instrument
		notional := pos.Size * inst.ContractSize * pos.EntryPrice
		e.Notional += notional
		e.MarginUsed += RequiredMargin(notional, leverage)
		if pos.Direction.Sign() > 0 {
			e.Long++
		} else {
			e.Short++
		}
	}
	if eq := p.risk.Equity(); eq > 0 {
		e.MarginUtilization = e.MarginUsed / eq
	}
	return e
}
