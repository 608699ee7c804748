package risk

import (
	"fmt"
	"math"

	engineerrors "github.com/ducminhle1904/prop-challenge-engine/internal/errors"
	"github.com/ducminhle1904/prop-challenge-engine/pkg/types"
	"github.com/shopspring/decimal"
)

// Instrument describes how price moves translate into money for one lot
type Instrument struct {
	Symbol       string  `json:"symbol" yaml:"symbol"`
	PipSize      float64 `json:"pip_size" yaml:"pip_size"`           // price increment of one pip
	PipValue     float64 `json:"pip_value" yaml:"pip_value"`         // account currency per pip per lot
	ContractSize float64 `json:"contract_size" yaml:"contract_size"` // notional units per lot
	LotStep      float64 `json:"lot_step" yaml:"lot_step"`
}

// DefaultInstrument returns a standard EURUSD contract
func DefaultInstrument() Instrument {
	return Instrument{
		Symbol:       "EURUSD",
		PipSize:      0.0001,
		PipValue:     10,
		ContractSize: 100000,
		LotStep:      0.01,
	}
}

// Validate checks the instrument parameters
func (i Instrument) Validate() error {
	if i.PipSize <= 0 || i.PipValue <= 0 || i.ContractSize <= 0 || i.LotStep <= 0 {
		return engineerrors.NewConfigurationError("risk", "validate_instrument",
			fmt.Sprintf("instrument %q needs positive pip size, pip value, contract size and lot step", i.Symbol))
	}
	return nil
}

// StopPips returns the distance between entry and stop in pips
func (i Instrument) StopPips(entry, stop float64) float64 {
	return math.Abs(entry-stop) / i.PipSize
}

// PnL returns the gross profit of size lots moved from entry to exit
func (i Instrument) PnL(direction types.Direction, entry, exit, size float64) float64 {
	pips := (exit - entry) / i.PipSize * direction.Sign()
	return pips * i.PipValue * size
}

// RoundLots rounds lots down to the lot step
func (i Instrument) RoundLots(lots float64) float64 {
	if lots <= 0 || i.LotStep <= 0 {
		return 0
	}
	// Round off float noise first so 0.29999999 becomes 0.30 before flooring.
	d := decimal.NewFromFloat(lots).Round(8)
	step := decimal.NewFromFloat(i.LotStep)
	steps := d.Div(step).Floor()
	v, _ := steps.Mul(step).Float64()
	return v
}
