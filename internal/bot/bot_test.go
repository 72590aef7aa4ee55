package bot

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"testing"
	"time"
	"timesheet-backend/internal/bot/browser"
	"timesheet-backend/internal/bot/login"
	"timesheet-backend/internal/bot/quarter"
	"timesheet-backend/internal/bot/timesheet"
	"timesheet-backend/internal/bot/webform"
	"timesheet-backend/internal/components/chrono"
	"timesheet-backend/internal/components/telemetry"
	libtelemetry "timesheet-backend/lib/telemetry"
	testutil "timesheet-backend/test/util"

	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	cleanup := libtelemetry.SetupForTesting("test:bot")
	code := m.Run()
	cleanup()
	os.Exit(code)
}

const successHTML = `<html><body><div class="success-message">Thank you for your submission</div></body></html>`

type fakeSession struct {
	page     *testutil.FakePage
	startErr error
	alive    func() bool

	starts, pages, closes int
}

func (s *fakeSession) Start(ctx context.Context) error {
	s.starts++
	return s.startErr
}

func (s *fakeSession) NewPage(ctx context.Context) (browser.Page, error) {
	s.pages++
	return s.page, nil
}

func (s *fakeSession) Alive() bool {
	if s.alive != nil {
		return s.alive()
	}
	return true
}

func (s *fakeSession) Close() error {
	s.closes++
	return nil
}

func fastConfig() Config {
	return Config{
		Login: login.Config{
			StepDelayMs:       1,
			NavigationDelayMs: 1,
		},
		Webform: webform.Config{
			FieldDelayMs:     1,
			SettleDelayMs:    1,
			ConfirmTimeoutMs: 100,
			ConfirmPollMs:    5,
		},
		SubmitsPerSecond: 1000,
	}
}

// august2025 pins "today" inside Q3 2025.
var august2025 = chrono.FixedImpl{Time: time.Date(2025, 8, 15, 12, 0, 0, 0, time.UTC)}

var creds = timesheet.Credentials{Email: "user@example.com", Password: "hunter2"}

func newTestBot(t *testing.T, cfg Config) (*Bot, *fakeSession) {
	t.Helper()
	sess := &fakeSession{
		page: &testutil.FakePage{Document: successHTML},
	}
	b := New(cfg, quarter.Default(), august2025, telemetry.SlogAPI{})
	b.newSession = func() session { return sess }
	return b, sess
}

var rndm = rand.New(rand.NewSource(42))

func row(date string) timesheet.Row {
	return timesheet.Row{
		Date:            date,
		Hours:           "8",
		Project:         "PRJ-001",
		TaskDescription: testutil.RandomString(rndm, 24),
	}
}

func TestRunSubmitsAllRows(t *testing.T) {
	b, _ := newTestBot(t, fastConfig())
	require.NoError(t, b.Start(context.Background()))
	defer b.Close()

	rows := []timesheet.Row{row("2025-08-11"), row("2025-08-12"), row("2025-08-13")}
	result, err := b.Run(context.Background(), rows, creds)
	require.NoError(t, err)

	require.True(t, result.OK)
	require.Equal(t, []int{0, 1, 2}, result.Submitted)
	require.Empty(t, result.Errors)
	require.Empty(t, result.Aborted)
}

func TestRunRecordsRoutingErrorWithoutAborting(t *testing.T) {
	b, sess := newTestBot(t, fastConfig())
	require.NoError(t, b.Start(context.Background()))
	defer b.Close()

	rows := []timesheet.Row{row("2025-08-11"), row("2031-01-01"), row("2025-08-13")}
	result, err := b.Run(context.Background(), rows, creds)
	require.NoError(t, err)

	require.False(t, result.OK)
	require.Equal(t, []int{0, 2}, result.Submitted)
	require.Len(t, result.Errors, 1)
	require.Equal(t, 1, result.Errors[0].Index)
	require.Contains(t, result.Errors[0].Message, "Date must be in")

	// the bad date never reached the form
	require.NotContains(t, sess.page.Calls, "fill input[placeholder='mm/dd/yyyy']=2031-01-01")
}

func TestRunLoginFailureIsFatal(t *testing.T) {
	b, sess := newTestBot(t, fastConfig())
	sess.page.FailSelectors = map[string]error{
		"#i0116": errors.New("element not found"),
	}
	require.NoError(t, b.Start(context.Background()))
	defer b.Close()

	result, err := b.Run(context.Background(), []timesheet.Row{row("2025-08-11")}, creds)
	require.NoError(t, err)

	require.False(t, result.OK)
	require.Empty(t, result.Submitted)
	require.Len(t, result.Errors, 1)
	require.Equal(t, -1, result.Errors[0].Index)
	require.Contains(t, result.Errors[0].Message, "login failed")
	require.False(t, sess.page.Filled("input[aria-label='Hours']"))
}

func TestRunEmptyRowsSkipsBrowser(t *testing.T) {
	b, sess := newTestBot(t, fastConfig())
	require.NoError(t, b.Start(context.Background()))
	defer b.Close()

	result, err := b.Run(context.Background(), nil, creds)
	require.NoError(t, err)

	require.True(t, result.OK)
	require.Empty(t, result.Submitted)
	require.Empty(t, result.Errors)
	require.Zero(t, sess.pages)
}

func TestRunBeforeStartIsUsageError(t *testing.T) {
	b, _ := newTestBot(t, fastConfig())

	_, err := b.Run(context.Background(), []timesheet.Row{row("2025-08-11")}, creds)
	require.ErrorIs(t, err, ErrNotStarted)
}

func TestStartTwiceIsUsageError(t *testing.T) {
	b, _ := newTestBot(t, fastConfig())
	require.NoError(t, b.Start(context.Background()))
	defer b.Close()

	require.ErrorIs(t, b.Start(context.Background()), ErrAlreadyStarted)
}

func TestRunPartitionInvariant(t *testing.T) {
	b, _ := newTestBot(t, fastConfig())
	require.NoError(t, b.Start(context.Background()))
	defer b.Close()

	rows := []timesheet.Row{
		row("2025-08-11"),
		row("2030-01-01"),
		row("2025-02-03"),
		row("2025-11-20"),
	}
	result, err := b.Run(context.Background(), rows, creds)
	require.NoError(t, err)

	seen := map[int]int{}
	for _, i := range result.Submitted {
		seen[i]++
	}
	for _, e := range result.Errors {
		seen[e.Index]++
	}
	for i := range rows {
		require.Equal(t, 1, seen[i], "row %d must appear in exactly one partition", i)
	}
	require.False(t, result.OK)
}

func TestRunCancellationAbortsRemainingRows(t *testing.T) {
	b, _ := newTestBot(t, fastConfig())
	require.NoError(t, b.Start(context.Background()))
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b.OnProgress(func(p Progress) {
		if p.Current == 1 {
			cancel()
		}
	})

	rows := []timesheet.Row{row("2025-08-11"), row("2025-08-12"), row("2025-08-13")}
	result, err := b.Run(ctx, rows, creds)
	require.NoError(t, err)

	require.False(t, result.OK)
	require.Equal(t, []int{0}, result.Submitted)
	require.Empty(t, result.Errors)
	require.Equal(t, []int{1, 2}, result.Aborted)
}

func TestRunSessionLossAbortsRemainingRows(t *testing.T) {
	b, sess := newTestBot(t, fastConfig())
	require.NoError(t, b.Start(context.Background()))
	defer b.Close()

	attempted := 0
	b.OnProgress(func(Progress) { attempted++ })
	sess.alive = func() bool { return attempted < 1 }

	rows := []timesheet.Row{row("2025-08-11"), row("2025-08-12"), row("2025-08-13")}
	result, err := b.Run(context.Background(), rows, creds)
	require.NoError(t, err)

	require.Equal(t, []int{0}, result.Submitted)
	require.Equal(t, []int{1, 2}, result.Aborted)
}

func TestRunSessionLossBeforeFirstRowIsRunFatal(t *testing.T) {
	b, sess := newTestBot(t, fastConfig())
	require.NoError(t, b.Start(context.Background()))
	defer b.Close()

	sess.alive = func() bool { return false }

	rows := []timesheet.Row{row("2025-08-11"), row("2025-08-12"), row("2025-08-13")}
	result, err := b.Run(context.Background(), rows, creds)
	require.NoError(t, err)

	require.False(t, result.OK)
	require.Empty(t, result.Submitted)
	require.Equal(t, []int{0, 1, 2}, result.Aborted)
	require.Len(t, result.Errors, 1)
	require.Equal(t, -1, result.Errors[0].Index)
	require.Contains(t, result.Errors[0].Message, "session lost")
}

func TestRunReportsProgress(t *testing.T) {
	b, _ := newTestBot(t, fastConfig())
	require.NoError(t, b.Start(context.Background()))
	defer b.Close()

	var updates []Progress
	b.OnProgress(func(p Progress) { updates = append(updates, p) })

	rows := []timesheet.Row{row("2025-08-11"), row("2025-08-12")}
	_, err := b.Run(context.Background(), rows, creds)
	require.NoError(t, err)

	require.Len(t, updates, 2)
	require.Equal(t, 1, updates[0].Current)
	require.Equal(t, 2, updates[0].Total)
	require.InDelta(t, 50, updates[0].Percent, 0.001)
	require.InDelta(t, 100, updates[1].Percent, 0.001)
	require.Contains(t, updates[1].Message, "row 2 of 2")
}

func TestSubmitClosesSessionOnSuccess(t *testing.T) {
	b, sess := newTestBot(t, fastConfig())

	result := b.Submit(context.Background(), []timesheet.Row{row("2025-08-11")}, creds)
	require.True(t, result.OK)
	require.Equal(t, 1, sess.starts)
	require.Equal(t, 1, sess.closes)
}

func TestSubmitClosesSessionOnLoginFailure(t *testing.T) {
	b, sess := newTestBot(t, fastConfig())
	sess.page.FailSelectors = map[string]error{
		"#i0116": errors.New("element not found"),
	}

	result := b.Submit(context.Background(), []timesheet.Row{row("2025-08-11")}, creds)
	require.False(t, result.OK)
	require.Equal(t, 1, sess.closes)
}

func TestSubmitClosesSessionOnStartFailure(t *testing.T) {
	b, sess := newTestBot(t, fastConfig())
	sess.startErr = errors.New("chrome not found")

	result := b.Submit(context.Background(), []timesheet.Row{row("2025-08-11")}, creds)
	require.False(t, result.OK)
	require.Len(t, result.Errors, 1)
	require.Equal(t, -1, result.Errors[0].Index)
	require.Contains(t, result.Errors[0].Message, "chrome not found")
	require.Equal(t, 1, sess.closes)
}

func TestSubmitEmptyRowsNeverStartsBrowser(t *testing.T) {
	b, sess := newTestBot(t, fastConfig())

	result := b.Submit(context.Background(), nil, creds)
	require.True(t, result.OK)
	require.Zero(t, sess.starts)
}

func TestCloseIsIdempotent(t *testing.T) {
	b, sess := newTestBot(t, fastConfig())
	require.NoError(t, b.Start(context.Background()))

	b.Close()
	b.Close()
	require.Equal(t, 1, sess.closes)
}
