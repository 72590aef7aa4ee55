package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"
	"timesheet-backend/internal/bot"
	"timesheet-backend/internal/bot/timesheet"
	"timesheet-backend/internal/components/chrono"
	"timesheet-backend/internal/components/telemetry"
	"timesheet-backend/lib/configutil"
	"timesheet-backend/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(submitCmd)
}

var submitCmd = &cobra.Command{
	Use:   "submit <rows.json5>",
	Short: "Submits the timesheet rows in the given file to their quarter forms.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		quarters := loadQuarters(cfg)

		creds := loadCredentials(cfg)
		if creds.Email == "" || creds.Password == "" {
			serviceutil.Fatal(
				"missing credentials",
				errors.New("set email/password in the config file or TIMESHEET_EMAIL/TIMESHEET_PASSWORD"),
			)
		}

		rows, err := configutil.ReadConfig[[]timesheet.Row](args[0])
		if err != nil {
			serviceutil.Fatal("failed to read rows file", err)
		}

		clock, err := chrono.NewStandardImpl()
		if err != nil {
			serviceutil.Fatal("failed to load timezone data", err)
		}

		b := bot.New(cfg.Bot, quarters, clock, telemetry.SlogAPI{})
		b.OnProgress(func(p bot.Progress) {
			slog.Info(p.Message, "percent", fmt.Sprintf("%.0f%%", p.Percent))
		})

		slog.Info("submitting rows", "count", len(rows), "user", timesheet.RedactEmail(creds.Email))
		t1 := time.Now()
		result := b.Submit(cmd.Context(), rows, creds)
		slog.Info("run finished", "seconds", time.Since(t1).Seconds(), "ok", result.OK)

		printResult(rows, result)
		if !result.OK {
			os.Exit(1)
		}
	},
}

func printResult(rows []timesheet.Row, result bot.Result) {
	byIndex := map[int]string{}
	for _, i := range result.Submitted {
		byIndex[i] = "submitted"
	}
	for _, i := range result.Aborted {
		byIndex[i] = "aborted"
	}
	messages := map[int]string{}
	for _, e := range result.Errors {
		byIndex[e.Index] = "failed"
		messages[e.Index] = e.Message
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"#", "Date", "Project", "Hours", "Status", "Detail"})

	if msg, ok := messages[-1]; ok {
		t.AppendRow(table.Row{"-", "-", "-", "-", "failed", msg})
	}
	for i, row := range rows {
		t.AppendRow(table.Row{i, row.Date, row.Project, row.Hours, byIndex[i], messages[i]})
	}
	t.Render()
}
