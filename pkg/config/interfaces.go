package config

// Package config loads and validates challenge run configurations

// ConfigManager handles loading, validation and saving of challenge configurations
type ConfigManager interface {
	// LoadConfig loads defaults, applies the config file, then command line overrides
	LoadConfig(configFile string, overrides Overrides) (*ChallengeConfig, error)

	// ValidateConfig validates a configuration
	ValidateConfig(cfg *ChallengeConfig) error

	// SaveConfig writes a configuration in the format implied by the file extension
	SaveConfig(cfg *ChallengeConfig, path string) error
}

// Overrides are command line values applied on top of the config file.
// Zero values leave the file value untouched.
type Overrides struct {
	DataFile      string
	SignalsFile   string
	InitialEquity float64
	RiskFraction  float64
	OutputDir     string
}
