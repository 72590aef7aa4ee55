// Package bot orchestrates a timesheet submission run: one browser session,
// one login, then each row filled and submitted in input order with per-row
// error isolation.
package bot

import (
	"context"
	"errors"
	"fmt"
	"timesheet-backend/internal/assert"
	"timesheet-backend/internal/bot/browser"
	"timesheet-backend/internal/bot/login"
	"timesheet-backend/internal/bot/quarter"
	"timesheet-backend/internal/bot/timesheet"
	"timesheet-backend/internal/bot/webform"
	"timesheet-backend/internal/components/chrono"
	"timesheet-backend/internal/components/telemetry"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("timesheet-backend/internal/bot")

const (
	report_bot_run   = "bot.run"
	report_bot_close = "bot.close"
)

// Usage errors. These are the only errors Run and Start raise to the caller;
// everything else folds into the Result.
var (
	ErrNotStarted     = errors.New("bot: run called before start")
	ErrAlreadyStarted = errors.New("bot: start called twice")
)

// Config aggregates the per-component configuration of one bot instance.
type Config struct {
	Browser browser.Config `json:"browser"`
	Login   login.Config   `json:"login"`
	Webform webform.Config `json:"webform"`
	// SubmitsPerSecond throttles row submissions; 0 means 2.
	SubmitsPerSecond float64 `json:"submits_per_second"`
}

func (c Config) submitsPerSecond() float64 {
	if c.SubmitsPerSecond == 0 {
		return 2
	}
	return c.SubmitsPerSecond
}

// session is the slice of browser.Session the orchestrator drives.
type session interface {
	Start(ctx context.Context) error
	NewPage(ctx context.Context) (browser.Page, error)
	Alive() bool
	Close() error
}

// Bot owns one browser session for the duration of one run. Instances are
// not safe for concurrent use; callers must serialize overlapping runs.
type Bot struct {
	cfg      Config
	quarters quarter.Config
	clock    chrono.API
	tel      telemetry.API
	limiter  *rate.Limiter

	// newSession builds the underlying browser session, replaceable in tests.
	newSession func() session

	sess       session
	started    bool
	closed     bool
	onProgress ProgressFunc
}

func New(cfg Config, quarters quarter.Config, clock chrono.API, tel telemetry.API) *Bot {
	assert.NotNil(clock)
	assert.NotNil(tel)
	assert.That(len(quarters.Definitions()) > 0, "bot needs at least one quarter definition")

	scoped := telemetry.NewScopedAPI("bot", tel)
	return &Bot{
		cfg:      cfg,
		quarters: quarters,
		clock:    clock,
		tel:      scoped,
		limiter:  rate.NewLimiter(rate.Limit(cfg.submitsPerSecond()), 1),
		newSession: func() session {
			return browser.NewSession(cfg.Browser, scoped)
		},
	}
}

// OnProgress registers the run progress observer. Call before Run.
func (b *Bot) OnProgress(fn ProgressFunc) {
	b.onProgress = fn
}

// Start launches the browser session. One Start per Bot instance.
func (b *Bot) Start(ctx context.Context) error {
	if b.started {
		return ErrAlreadyStarted
	}
	b.sess = b.newSession()
	if err := b.sess.Start(ctx); err != nil {
		return fmt.Errorf("start browser session: %w", err)
	}
	b.started = true
	return nil
}

// Close tears down the browser session. Safe to call after a failed Start;
// repeat calls are no-ops. A teardown failure is logged, never raised, so it
// can never mask the automation result.
func (b *Bot) Close() {
	if b.closed || b.sess == nil {
		return
	}
	b.closed = true
	if err := b.sess.Close(); err != nil {
		b.tel.ReportWarning(report_bot_close, err)
	}
}

// Run logs in and submits every row in input order. Row failures are
// collected, not raised: the returned error is non-nil only for usage
// errors. Cancellation is honored between rows; rows not yet attempted are
// reported as aborted and already-recorded outcomes are preserved.
func (b *Bot) Run(ctx context.Context, rows []timesheet.Row, creds timesheet.Credentials) (Result, error) {
	if !b.started || b.closed {
		return Result{}, ErrNotStarted
	}

	if len(rows) == 0 {
		result := emptyResult()
		result.OK = true
		return result, nil
	}

	ctx, span := tracer.Start(ctx, "bot.run")
	defer span.End()
	runID := uuid.NewString()
	span.SetAttributes(
		attribute.String("run.id", runID),
		attribute.Int("run.rows", len(rows)),
	)

	b.tel.ReportDebug("starting run", runID, len(rows))

	page, err := b.sess.NewPage(ctx)
	if err != nil {
		err = fmt.Errorf("open page: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "session failure")
		b.tel.ReportBroken(report_bot_run, err)
		return fatalResult(err.Error()), nil
	}

	lm := login.NewManager(b.loginConfig(), b.tel)
	if err := lm.Run(ctx, page, creds); err != nil {
		err = fmt.Errorf("login failed: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "login failure")
		b.tel.ReportBroken(report_bot_run, err)
		return fatalResult(err.Error()), nil
	}

	// an unconfirmed login is a soft warning; the form itself will reject
	// rows if the session is actually dead
	if state := lm.ValidateState(ctx, page); state != login.StateAuthenticated {
		b.tel.ReportWarning(report_bot_run, "proceeding with unconfirmed login state", state.String())
	}

	filler := webform.NewFiller(b.cfg.Webform, b.tel)
	outcomes := b.processRows(ctx, page, filler, rows)

	result := collect(len(rows), outcomes)
	if !result.OK {
		span.SetStatus(codes.Error, "run completed with errors")
	}
	b.tel.ReportCount("bot.rows-submitted", int64(len(result.Submitted)))
	return result, nil
}

// processRows is a fold over the rows: each produces exactly one outcome,
// and row i's outcome is recorded before row i+1 begins.
func (b *Bot) processRows(ctx context.Context, page browser.Page, filler *webform.Filler, rows []timesheet.Row) []rowOutcome {
	outcomes := make([]rowOutcome, 0, len(rows))

	for i, row := range rows {
		if ctx.Err() != nil {
			b.tel.ReportWarning(report_bot_run, "run cancelled", i, len(rows))
			return abortRemaining(outcomes, i, len(rows))
		}
		if !b.sess.Alive() {
			b.tel.ReportBroken(report_bot_run, "browser session lost mid-run")
			if len(outcomes) == 0 {
				// nothing submitted yet, so the dead session is the
				// run's failure, not any row's
				outcomes = append(outcomes, rowOutcome{index: -1, err: errors.New("browser session lost before any row was submitted")})
			}
			return abortRemaining(outcomes, i, len(rows))
		}
		if err := b.limiter.Wait(ctx); err != nil {
			return abortRemaining(outcomes, i, len(rows))
		}

		outcomes = append(outcomes, b.processRow(ctx, page, filler, i, row))
		b.reportProgress(i, len(rows), outcomes[len(outcomes)-1])
	}
	return outcomes
}

func (b *Bot) processRow(ctx context.Context, page browser.Page, filler *webform.Filler, index int, row timesheet.Row) rowOutcome {
	ctx, span := tracer.Start(ctx, "bot.row")
	defer span.End()
	span.SetAttributes(attribute.Int("row.index", index))

	target, ok := b.quarters.Resolve(row.Date)
	if !ok {
		err := errors.New(b.quarters.ValidateAvailability(row.Date))
		span.RecordError(err)
		span.SetStatus(codes.Error, "routing failure")
		return rowOutcome{index: index, err: err}
	}

	if err := filler.FillRow(ctx, page, row, target); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "webform failure")
		return rowOutcome{index: index, err: err}
	}
	return rowOutcome{index: index}
}

func abortRemaining(outcomes []rowOutcome, from, total int) []rowOutcome {
	for i := from; i < total; i++ {
		outcomes = append(outcomes, rowOutcome{index: i, aborted: true})
	}
	return outcomes
}

func (b *Bot) reportProgress(index, total int, outcome rowOutcome) {
	if b.onProgress == nil {
		return
	}

	message := fmt.Sprintf("row %d of %d submitted", index+1, total)
	if outcome.err != nil {
		message = fmt.Sprintf("row %d of %d failed: %s", index+1, total, outcome.err)
	}
	b.onProgress(Progress{
		Percent: float64(index+1) / float64(total) * 100,
		Current: index + 1,
		Total:   total,
		Message: message,
	})
}

// loginConfig defaults the login landing page to the current quarter's form,
// or the earliest configured quarter when today is outside every window.
func (b *Bot) loginConfig() login.Config {
	cfg := b.cfg.Login
	if cfg.BaseURL == "" {
		if current, ok := b.quarters.Current(b.clock); ok {
			cfg.BaseURL = current.FormURL
		} else {
			cfg.BaseURL = b.quarters.Definitions()[0].FormURL
		}
	}
	return cfg
}
