package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	engineerrors "github.com/ducminhle1904/prop-challenge-engine/internal/errors"
	"gopkg.in/yaml.v3"
)

// ChallengeConfigManager implements ConfigManager for YAML and JSON files
type ChallengeConfigManager struct{}

// NewChallengeConfigManager creates a new configuration manager
func NewChallengeConfigManager() *ChallengeConfigManager {
	return &ChallengeConfigManager{}
}

// LoadConfig loads configuration from file and command line parameters
func (m *ChallengeConfigManager) LoadConfig(configFile string, overrides Overrides) (*ChallengeConfig, error) {
	cfg := NewDefaultChallengeConfig()

	if configFile != "" {
		if err := m.loadFromFile(configFile, cfg); err != nil {
			return nil, err
		}
	}
	cfg.applyInstrumentDefaults()
	applyOverrides(cfg, overrides)

	if err := m.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// ValidateConfig validates a configuration
func (m *ChallengeConfigManager) ValidateConfig(cfg *ChallengeConfig) error {
	if cfg == nil {
		return engineerrors.NewValidationError("config", "validate", "configuration is nil")
	}
	return cfg.Validate()
}

// SaveConfig writes cfg as YAML or JSON depending on the extension
func (m *ChallengeConfigManager) SaveConfig(cfg *ChallengeConfig, path string) error {
	var (
		data []byte
		err  error
	)
	switch format(path) {
	case "yaml":
		data, err = yaml.Marshal(cfg)
	case "json":
		data, err = json.MarshalIndent(cfg, "", "  ")
	default:
		return unsupported(path)
	}
	if err != nil {
		return engineerrors.NewConfigurationError("config", "save", err.Error()).WithContext("path", path)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return engineerrors.NewConfigurationError("config", "save", err.Error()).WithContext("path", path)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return engineerrors.NewConfigurationError("config", "save", err.Error()).WithContext("path", path)
	}
	return nil
}

// loadFromFile decodes the file over the defaults already in cfg
func (m *ChallengeConfigManager) loadFromFile(configFile string, cfg *ChallengeConfig) error {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return engineerrors.NewConfigurationError("config", "load",
			fmt.Sprintf("could not read config file: %v", err)).WithContext("path", configFile)
	}

	switch format(configFile) {
	case "yaml":
		err = yaml.Unmarshal(data, cfg)
	case "json":
		err = json.Unmarshal(data, cfg)
	default:
		return unsupported(configFile)
	}
	if err != nil {
		return engineerrors.NewConfigurationError("config", "load",
			fmt.Sprintf("could not parse config file: %v", err)).WithContext("path", configFile)
	}
	return nil
}

func applyOverrides(cfg *ChallengeConfig, o Overrides) {
	if o.DataFile != "" {
		cfg.Run.DataFile = o.DataFile
	}
	if o.SignalsFile != "" {
		cfg.Run.SignalsFile = o.SignalsFile
	}
	if o.InitialEquity > 0 {
		cfg.Risk.InitialEquity = o.InitialEquity
	}
	if o.RiskFraction > 0 {
		cfg.Risk.BaseRiskFraction = o.RiskFraction
	}
	if o.OutputDir != "" {
		cfg.Output.Directory = o.OutputDir
	}
}

func format(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".json":
		return "json"
	}
	return ""
}

func unsupported(path string) error {
	return engineerrors.NewConfigurationError("config", "format",
		"unsupported config file extension, use .yaml, .yml or .json").WithContext("path", path)
}
