package main

import (
	"fmt"

	"github.com/ducminhle1904/prop-challenge-engine/pkg/config"
	"github.com/ducminhle1904/prop-challenge-engine/pkg/reporting"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var stStateFile string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the account status stored in a state snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(config.Overrides{})
		if err != nil {
			return err
		}
		if stStateFile == "" && getEnvWithDefault(envStateFile, "") == "" {
			return fmt.Errorf("no state file, pass --state or set %s", envStateFile)
		}
		p, err := openPortfolio(cfg, stStateFile)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		reporting.NewDefaultConsoleReporter().OutputStatus(out, p.Risk().Status())

		positions := p.OpenPositions()
		if len(positions) == 0 {
			fmt.Fprintln(out, "no open positions")
			return nil
		}
		t := table.NewWriter()
		t.SetOutputMirror(out)
		t.SetTitle("OPEN POSITIONS")
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{"Strategy", "Symbol", "Direction", "Lots", "Entry", "Stop", "Target", "Opened"})
		for _, pos := range positions {
			t.AppendRow(table.Row{
				pos.Strategy, pos.Symbol, pos.Direction, fmt.Sprintf("%.2f", pos.Size),
				fmt.Sprintf("%.5f", pos.EntryPrice), fmt.Sprintf("%.5f", pos.StopLoss),
				fmt.Sprintf("%.5f", pos.TakeProfit), pos.EntryTime.Format("2006-01-02 15:04"),
			})
		}
		e := p.Exposure()
		t.AppendFooter(table.Row{"Exposure", fmt.Sprintf("%d long / %d short", e.Long, e.Short), "",
			fmt.Sprintf("$%.0f", e.Notional), "Margin", fmt.Sprintf("$%.2f", e.MarginUsed),
			fmt.Sprintf("%.2f%%", e.MarginUtilization*100), ""})
		t.Render()
		return nil
	},
}

func init() {
	statusCmd.Flags().StringVar(&stStateFile, "state", "", "State snapshot file")
}
