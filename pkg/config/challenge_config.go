package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ducminhle1904/prop-challenge-engine/internal/backtest"
	engineerrors "github.com/ducminhle1904/prop-challenge-engine/internal/errors"
	"github.com/ducminhle1904/prop-challenge-engine/internal/portfolio"
	"github.com/ducminhle1904/prop-challenge-engine/internal/risk"
	"github.com/ducminhle1904/prop-challenge-engine/pkg/reporting"
	"github.com/ducminhle1904/prop-challenge-engine/pkg/validation"
)

const dateLayout = "2006-01-02"

// ChallengeConfig is everything needed to replay one challenge
type ChallengeConfig struct {
	Name      string                   `json:"name" yaml:"name"`
	Risk      risk.Config              `json:"risk" yaml:"risk"`
	Portfolio portfolio.Config         `json:"portfolio" yaml:"portfolio"`
	Run       RunConfig                `json:"run" yaml:"run"`
	Output    OutputConfig             `json:"output" yaml:"output"`
	Rolling   validation.RollingConfig `json:"rolling" yaml:"rolling"`
}

// RunConfig describes the data replayed and how the replay behaves
type RunConfig struct {
	DataFile         string `json:"data_file" yaml:"data_file"`
	SignalsFile      string `json:"signals_file" yaml:"signals_file"`
	DateFormat       string `json:"date_format,omitempty" yaml:"date_format,omitempty"`
	From             string `json:"from,omitempty" yaml:"from,omitempty"` // YYYY-MM-DD, inclusive
	To               string `json:"to,omitempty" yaml:"to,omitempty"`     // YYYY-MM-DD, inclusive
	MaxHolding       string `json:"max_holding,omitempty" yaml:"max_holding,omitempty"`
	StopWhenFinished bool   `json:"stop_when_finished" yaml:"stop_when_finished"`
	StateFile        string `json:"state_file,omitempty" yaml:"state_file,omitempty"`
	LogDir           string `json:"log_dir,omitempty" yaml:"log_dir,omitempty"`
	MetricsAddr      string `json:"metrics_addr,omitempty" yaml:"metrics_addr,omitempty"`
}

// OutputConfig selects the report files
type OutputConfig struct {
	Directory string `json:"directory,omitempty" yaml:"directory,omitempty"`
	Console   bool   `json:"console" yaml:"console"`
	CSV       bool   `json:"csv" yaml:"csv"`
	Excel     bool   `json:"excel" yaml:"excel"`
	JSON      bool   `json:"json" yaml:"json"`
}

// NewDefaultChallengeConfig returns a 100k challenge with three strategies
func NewDefaultChallengeConfig() *ChallengeConfig {
	return &ChallengeConfig{
		Name:      "challenge",
		Risk:      risk.DefaultConfig(),
		Portfolio: portfolio.DefaultConfig(),
		Run: RunConfig{
			StopWhenFinished: true,
			LogDir:           "logs",
		},
		Output: OutputConfig{
			Console: true,
			CSV:     true,
			Excel:   true,
			JSON:    true,
		},
		Rolling: validation.DefaultRollingConfig(),
	}
}

// Validate checks the risk and portfolio sections plus the run settings
func (c *ChallengeConfig) Validate() error {
	if err := c.Risk.Validate(); err != nil {
		return err
	}
	if err := c.Portfolio.Validate(); err != nil {
		return err
	}
	if c.Rolling.WindowDays < 1 || c.Rolling.StepDays < 1 || c.Rolling.MinBars < 0 {
		return engineerrors.NewConfigurationError("config", "validate",
			fmt.Sprintf("rolling window and step must be at least one day, got: %d / %d", c.Rolling.WindowDays, c.Rolling.StepDays))
	}
	if _, err := c.Run.HoldingPeriod(); err != nil {
		return err
	}
	from, to, err := c.Run.DateRange()
	if err != nil {
		return err
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return engineerrors.NewConfigurationError("config", "validate",
			fmt.Sprintf("run end date %s is before start date %s", c.Run.To, c.Run.From))
	}
	return nil
}

// HoldingPeriod parses MaxHolding. Empty means no limit.
func (r RunConfig) HoldingPeriod() (time.Duration, error) {
	if strings.TrimSpace(r.MaxHolding) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(r.MaxHolding)
	if err != nil || d < 0 {
		return 0, engineerrors.NewConfigurationError("config", "holding_period",
			fmt.Sprintf("invalid max holding %q, expected a duration such as 48h", r.MaxHolding))
	}
	return d, nil
}

// DateRange parses From and To. The end date covers its whole day.
func (r RunConfig) DateRange() (time.Time, time.Time, error) {
	var from, to time.Time
	var err error
	if r.From != "" {
		if from, err = time.Parse(dateLayout, r.From); err != nil {
			return from, to, engineerrors.NewConfigurationError("config", "date_range",
				fmt.Sprintf("invalid from date %q, expected YYYY-MM-DD", r.From))
		}
	}
	if r.To != "" {
		if to, err = time.Parse(dateLayout, r.To); err != nil {
			return from, to, engineerrors.NewConfigurationError("config", "date_range",
				fmt.Sprintf("invalid to date %q, expected YYYY-MM-DD", r.To))
		}
		to = to.Add(24*time.Hour - time.Nanosecond)
	}
	return from, to, nil
}

// Setup converts the configuration into a replayable backtest setup
func (c *ChallengeConfig) Setup() (backtest.Setup, error) {
	hold, err := c.Run.HoldingPeriod()
	if err != nil {
		return backtest.Setup{}, err
	}
	return backtest.Setup{
		Label:     c.Name,
		Risk:      c.Risk,
		Portfolio: c.Portfolio,
		Options: backtest.Options{
			MaxHoldingPeriod: hold,
			StopWhenFinished: c.Run.StopWhenFinished,
		},
	}, nil
}

// Reporting maps the output section onto the reporting layer
func (c *ChallengeConfig) Reporting() reporting.ReportingConfig {
	return reporting.ReportingConfig{
		EnableConsole:   c.Output.Console,
		OutputDirectory: c.Output.Directory,
		CSVEnabled:      c.Output.CSV,
		ExcelEnabled:    c.Output.Excel,
		JSONEnabled:     c.Output.JSON,
	}
}

// applyInstrumentDefaults fills strategies that omit their instrument
func (c *ChallengeConfig) applyInstrumentDefaults() {
	for i := range c.Portfolio.Strategies {
		if c.Portfolio.Strategies[i].Instrument == (risk.Instrument{}) {
			c.Portfolio.Strategies[i].Instrument = risk.DefaultInstrument()
		}
	}
}
