package cmd

import (
	"errors"
	"fmt"
	"os"
	"timesheet-backend/internal/bot/quarter"
	"timesheet-backend/internal/components/chrono"
	"timesheet-backend/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(quartersCmd)
}

var quartersCmd = &cobra.Command{
	Use:   "quarters [date]",
	Short: "Prints the configured quarter windows, or resolves a YYYY-MM-DD date to its quarter.",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		quarters := loadQuarters(loadConfig())

		clock, err := chrono.NewStandardImpl()
		if err != nil {
			serviceutil.Fatal("failed to load timezone data", err)
		}
		// the table marker always tracks today's quarter; a date argument
		// gets its resolution printed separately
		current, hasCurrent := quarters.Current(clock)

		if len(args) == 1 {
			if message := quarters.ValidateAvailability(args[0]); message != "" {
				serviceutil.Fatal("date resolves to no quarter", errors.New(message))
			}
			resolved, _ := quarters.Resolve(args[0])
			fmt.Println(describeResolution(args[0], resolved))
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{"ID", "Name", "Start", "End", "Form URL", ""})
		for _, def := range quarters.Definitions() {
			marker := ""
			if hasCurrent && def.ID == current.ID {
				marker = "<-"
			}
			t.AppendRow(table.Row{def.ID, def.Name, def.StartDate, def.EndDate, def.FormURL, marker})
		}
		t.Render()
	},
}

func describeResolution(date string, def quarter.Definition) string {
	return fmt.Sprintf("%s falls in %s (%s, %s to %s)", date, def.Name, def.ID, def.StartDate, def.EndDate)
}
