package main

import (
	"fmt"
	"os"

	"github.com/ducminhle1904/prop-challenge-engine/pkg/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const (
	envConfigFile  = "PROP_CHALLENGE_CONFIG"
	envOutputDir   = "PROP_CHALLENGE_OUTPUT_DIR"
	envMetricsAddr = "PROP_CHALLENGE_METRICS_ADDR"
	envStateFile   = "PROP_CHALLENGE_STATE_FILE"
)

var (
	configFile string
	envFile    string
)

// rootCmd is the base command for the challenge CLI
var rootCmd = &cobra.Command{
	Use:   "challenge",
	Short: "Prop-firm challenge risk engine",
	Long: `challenge replays trading signals through a funded-account challenge
rule set: drawdown circuit breakers, dynamic position sizing and a
multi-strategy conflict arbiter.

Example usage:
  challenge init --out challenge.yaml
  challenge backtest --config challenge.yaml --data eurusd_h1.csv --signals signals.csv
  challenge sweep --config challenge.yaml --fractions 0.005,0.01,0.02
  challenge rolling --config challenge.yaml --window-days 30 --step-days 7
  challenge size --entry 1.1000 --stop 1.0950
  challenge status --state challenge_state.json`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadEnv(envFile, cmd.Flags().Changed("env-file"))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Challenge config file (.yaml, .yml or .json)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file with CLI defaults")

	rootCmd.AddCommand(backtestCmd, sweepCmd, rollingCmd, sizeCmd, statusCmd, initCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadEnv reads the env file. A missing default file is fine, a missing
// explicit one is an error.
func loadEnv(path string, explicit bool) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) && !explicit {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("could not load environment file %s: %w", path, err)
	}
	return nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// loadConfig resolves the config file from the flag or environment and
// applies overrides
func loadConfig(overrides config.Overrides) (*config.ChallengeConfig, error) {
	path := configFile
	if path == "" {
		path = os.Getenv(envConfigFile)
	}
	if overrides.OutputDir == "" {
		overrides.OutputDir = os.Getenv(envOutputDir)
	}
	return config.NewChallengeConfigManager().LoadConfig(path, overrides)
}
