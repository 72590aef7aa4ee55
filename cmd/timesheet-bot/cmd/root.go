package cmd

import (
	"context"
	"fmt"
	"os"
	"timesheet-backend/internal/components/telemetry"
	libtelemetry "timesheet-backend/lib/telemetry"

	"github.com/spf13/cobra"
)

var (
	debug      *bool
	configPath *string
)

func init() {
	debug = rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging.")
	configPath = rootCmd.PersistentFlags().String("config", "timesheet.json5", "Path to the bot configuration file.")
}

var rootCmd = &cobra.Command{
	Use:   "timesheet-bot",
	Short: "timesheet-bot submits timesheet rows to the quarterly SmartSheet forms.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		libtelemetry.InitSlog(*debug)

		if err := libtelemetry.SetupFromEnv(cmd.Context(), "timesheet-bot"); err != nil {
			// the bot is fully functional without an otlp collector
			telemetry.SlogAPI{}.ReportDebug("telemetry export disabled", err)
		}
		libtelemetry.InstrumentPerfStats(cmd.Context())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if err := libtelemetry.Shutdown(cmd.Context()); err != nil {
			telemetry.SlogAPI{}.ReportDebug("telemetry shutdown", err)
		}
	},
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
