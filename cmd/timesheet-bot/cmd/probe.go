package cmd

import (
	"os"
	"timesheet-backend/internal/bot/probe"
	"timesheet-backend/internal/components/telemetry"
	"timesheet-backend/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(probeCmd)
}

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Checks over plain HTTP whether each quarter form is still being served.",
	Run: func(cmd *cobra.Command, args []string) {
		quarters := loadQuarters(loadConfig())

		checker, err := probe.NewChecker(telemetry.SlogAPI{})
		if err != nil {
			serviceutil.Fatal("failed to initialize http client", err)
		}

		statuses := checker.CheckAll(cmd.Context(), quarters)

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{"Quarter", "Reachable", "HTTP", "Form", "Detail"})

		failures := 0
		for _, s := range statuses {
			if !s.FormFound {
				failures++
			}
			t.AppendRow(table.Row{s.Definition.Name, s.Reachable, s.StatusCode, s.FormFound, s.Message})
		}
		t.Render()

		if failures > 0 {
			os.Exit(1)
		}
	},
}
