package main

import (
	"fmt"
	"os"

	"github.com/ducminhle1904/prop-challenge-engine/pkg/config"
	"github.com/spf13/cobra"
)

var (
	initOut   string
	initForce bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default challenge configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(initOut); err == nil && !initForce {
			return fmt.Errorf("%s already exists, use --force to overwrite", initOut)
		}
		if err := config.NewChallengeConfigManager().SaveConfig(config.NewDefaultChallengeConfig(), initOut); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", initOut)
		return nil
	},
}

func init() {
	initCmd.Flags().StringVarP(&initOut, "out", "o", "challenge.yaml", "Destination file (.yaml, .yml or .json)")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing file")
}
