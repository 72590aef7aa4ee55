package main

import (
	"timesheet-backend/cmd/timesheet-bot/cmd"
	"timesheet-backend/lib/serviceutil"
)

func main() {
	ctx := serviceutil.SignalContext()
	cmd.ExecuteContext(ctx)
}
