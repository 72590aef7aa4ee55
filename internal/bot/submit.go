package bot

import (
	"context"
	"fmt"
	"timesheet-backend/internal/bot/timesheet"
)

// Submit is the scoped-acquisition entry point: it starts the browser
// session, runs the rows and always tears the session down, on every exit
// path. Run-fatal failures come back inside the Result as a synthetic
// index -1 error rather than as a returned error.
func (b *Bot) Submit(ctx context.Context, rows []timesheet.Row, creds timesheet.Credentials) Result {
	// no browser needed when there is nothing to submit
	if len(rows) == 0 {
		result := emptyResult()
		result.OK = true
		return result
	}

	if err := b.Start(ctx); err != nil {
		b.Close()
		return fatalResult(fmt.Sprintf("start browser: %s", err))
	}
	defer b.Close()

	result, err := b.Run(ctx, rows, creds)
	if err != nil {
		// Run only errors on usage violations, which Start just ruled out
		return fatalResult(err.Error())
	}
	return result
}
