package webform

import (
	"context"
	"errors"
	"strings"
	"testing"
	"timesheet-backend/internal/bot/quarter"
	"timesheet-backend/internal/bot/timesheet"
	"timesheet-backend/internal/components/telemetry"
	testutil "timesheet-backend/test/util"

	"github.com/stretchr/testify/require"
)

const successHTML = `<html><body><div class="success-message">Thank you for your submission</div></body></html>`

var q3 = quarter.Definition{
	ID:        "2025-Q3",
	Name:      "Q3 2025",
	StartDate: "2025-07-01",
	EndDate:   "2025-09-30",
	FormURL:   "https://app.smartsheet.com/b/form/0197cbae7daf72bdb96b3395b500d414",
	FormID:    "0197cbae7daf72bdb96b3395b500d414",
}

func fastConfig() Config {
	return Config{
		FieldDelayMs:     1,
		SettleDelayMs:    1,
		ConfirmTimeoutMs: 200,
		ConfirmPollMs:    10,
	}
}

func strptr(s string) *string { return &s }

func fullRow() timesheet.Row {
	return timesheet.Row{
		Date:            "2025-08-15",
		Hours:           "7.75",
		Project:         "PRJ-001",
		Tool:            strptr("Lathe"),
		ChargeCode:      strptr("CC-42"),
		TaskDescription: "Machined fixture plates",
	}
}

// onFormPage fakes a page already sitting on the quarter form with a
// confirmation document queued up for the post-submit poll.
func onFormPage() *testutil.FakePage {
	return &testutil.FakePage{
		Location: q3.FormURL,
		Document: successHTML,
	}
}

func TestFillRowFillsAllFields(t *testing.T) {
	page := onFormPage()
	f := NewFiller(fastConfig(), telemetry.SlogAPI{})

	err := f.FillRow(context.Background(), page, fullRow(), q3)
	require.NoError(t, err)

	require.Equal(t, "PRJ-001", page.FilledValue("input[aria-label='Project']"))
	require.Equal(t, "2025-08-15", page.FilledValue("input[placeholder='mm/dd/yyyy']"))
	require.Equal(t, "7.75", page.FilledValue("input[aria-label='Hours']"))
	require.Equal(t, "Lathe", page.FilledValue("input[aria-label*='Tool']"))
	require.Equal(t, "Machined fixture plates", page.FilledValue("[role='textbox'][aria-label='Task Description']"))
	require.Equal(t, "CC-42", page.FilledValue("input[aria-label='Detail Charge Code']"))
}

func TestFillRowCommitsDropdowns(t *testing.T) {
	page := onFormPage()
	f := NewFiller(fastConfig(), telemetry.SlogAPI{})

	require.NoError(t, f.FillRow(context.Background(), page, fullRow(), q3))

	presses := 0
	for _, call := range page.Calls {
		if strings.HasPrefix(call, "press ") {
			require.Contains(t, call, "[ArrowDown Enter]")
			presses++
		}
	}
	// project, tool and detail charge code are combo boxes
	require.Equal(t, 3, presses)
}

func TestFillRowDoesNotNavigateWhenOnForm(t *testing.T) {
	page := onFormPage()
	f := NewFiller(fastConfig(), telemetry.SlogAPI{})

	require.NoError(t, f.FillRow(context.Background(), page, fullRow(), q3))
	for _, call := range page.Calls {
		require.NotContains(t, call, "navigate")
	}
}

func TestFillRowNavigatesWhenOffForm(t *testing.T) {
	page := &testutil.FakePage{
		Location: "https://app.smartsheet.com/home",
		Document: successHTML,
	}
	f := NewFiller(fastConfig(), telemetry.SlogAPI{})

	require.NoError(t, f.FillRow(context.Background(), page, fullRow(), q3))
	require.Contains(t, page.Calls, "navigate "+q3.FormURL)
}

func TestFillRowSkipsToolWhenNotRequired(t *testing.T) {
	row := fullRow()
	row.Tool = nil

	page := onFormPage()
	f := NewFiller(fastConfig(), telemetry.SlogAPI{})

	require.NoError(t, f.FillRow(context.Background(), page, row, q3))
	require.False(t, page.Filled("input[aria-label*='Tool']"))
	// a charge code without a tool never reaches the form
	require.False(t, page.Filled("input[aria-label='Detail Charge Code']"))
}

func TestFillRowSkipsChargeCodeWhenToolHasNone(t *testing.T) {
	row := fullRow()
	row.ChargeCode = nil

	page := onFormPage()
	f := NewFiller(fastConfig(), telemetry.SlogAPI{})

	require.NoError(t, f.FillRow(context.Background(), page, row, q3))
	require.True(t, page.Filled("input[aria-label*='Tool']"))
	require.False(t, page.Filled("input[aria-label='Detail Charge Code']"))
}

func TestFillRowRequiredFieldFailure(t *testing.T) {
	page := onFormPage()
	page.FailSelectors = map[string]error{
		"input[aria-label='Hours']": errors.New("element not found"),
	}
	f := NewFiller(fastConfig(), telemetry.SlogAPI{})

	err := f.FillRow(context.Background(), page, fullRow(), q3)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Hours")
}

func TestFillRowToleratesOptionalFieldFailure(t *testing.T) {
	page := onFormPage()
	page.FailSelectors = map[string]error{
		"input[aria-label*='Tool']": errors.New("element not found"),
	}
	f := NewFiller(fastConfig(), telemetry.SlogAPI{})

	require.NoError(t, f.FillRow(context.Background(), page, fullRow(), q3))
}

func TestSubmitFallsBackAcrossSelectors(t *testing.T) {
	page := onFormPage()
	page.Missing = map[string]bool{
		"button[data-client-id='form_submit_btn']": true,
		"input[type='submit']":                     true,
	}
	f := NewFiller(fastConfig(), telemetry.SlogAPI{})

	require.NoError(t, f.FillRow(context.Background(), page, fullRow(), q3))
	require.Contains(t, page.Calls, "click button[type='submit']")
}

func TestSubmitButtonNotFound(t *testing.T) {
	page := onFormPage()
	page.Missing = map[string]bool{}
	for _, selector := range DefaultSubmitSelectors() {
		page.Missing[selector] = true
	}
	f := NewFiller(fastConfig(), telemetry.SlogAPI{})

	err := f.FillRow(context.Background(), page, fullRow(), q3)
	require.Error(t, err)
	require.Contains(t, err.Error(), "submit button not found")
}

func TestConfirmDetectsErrorBanner(t *testing.T) {
	page := onFormPage()
	page.Document = `<html><body><div role="alert">Date must be in Q1 2025 (01/01-03/31)</div></body></html>`
	f := NewFiller(fastConfig(), telemetry.SlogAPI{})

	err := f.FillRow(context.Background(), page, fullRow(), q3)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Date must be in Q1 2025")
}

func TestConfirmAcceptsURLMarker(t *testing.T) {
	page := &testutil.FakePage{
		Location: "https://app.smartsheet.com/home",
		Document: `<html><body></body></html>`,
	}
	// the form redirects to a confirmation URL once loaded and submitted
	page.OnNavigate = func(string) { page.Location = q3.FormURL + "/confirmation" }
	f := NewFiller(fastConfig(), telemetry.SlogAPI{})

	require.NoError(t, f.FillRow(context.Background(), page, fullRow(), q3))
}

func TestFillRowReloadsFormAfterSubmission(t *testing.T) {
	page := onFormPage()
	f := NewFiller(fastConfig(), telemetry.SlogAPI{})

	require.NoError(t, f.FillRow(context.Background(), page, fullRow(), q3))
	require.NotContains(t, page.Calls, "navigate "+q3.FormURL)

	// second row on the same page object: the URL still carries the form
	// id, but the form was consumed and must be reloaded
	require.NoError(t, f.FillRow(context.Background(), page, fullRow(), q3))
	require.Contains(t, page.Calls, "navigate "+q3.FormURL)
	require.Equal(t, "PRJ-001", page.FilledValue("input[aria-label='Project']"))
}

func TestFillRowNavigatesOffConfirmationPage(t *testing.T) {
	page := &testutil.FakePage{
		Location: q3.FormURL + "/confirmation",
		Document: successHTML,
	}
	f := NewFiller(fastConfig(), telemetry.SlogAPI{})

	require.NoError(t, f.FillRow(context.Background(), page, fullRow(), q3))
	require.Contains(t, page.Calls, "navigate "+q3.FormURL)
}

func TestConfirmAcceptsTextIndicator(t *testing.T) {
	page := onFormPage()
	page.Document = `<html><body><p>Success! We've captured your submission.</p></body></html>`
	f := NewFiller(fastConfig(), telemetry.SlogAPI{})

	require.NoError(t, f.FillRow(context.Background(), page, fullRow(), q3))
}

func TestConfirmTimesOut(t *testing.T) {
	page := onFormPage()
	page.Document = `<html><body><p>still thinking</p></body></html>`
	f := NewFiller(fastConfig(), telemetry.SlogAPI{})

	err := f.FillRow(context.Background(), page, fullRow(), q3)
	require.Error(t, err)
	require.Contains(t, err.Error(), "confirmation timed out")
}

func TestFillRowHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	page := onFormPage()
	f := NewFiller(fastConfig(), telemetry.SlogAPI{})

	err := f.FillRow(ctx, page, fullRow(), q3)
	require.ErrorIs(t, err, context.Canceled)
}
