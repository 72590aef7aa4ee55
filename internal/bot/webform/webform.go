// Package webform fills one timesheet row into the remote form and confirms
// the submission landed. It makes a single attempt per row; retries and
// cross-row error policy belong to the caller.
package webform

import (
	"context"
	"fmt"
	"strings"
	"time"
	"timesheet-backend/internal/assert"
	"timesheet-backend/internal/bot/browser"
	"timesheet-backend/internal/bot/quarter"
	"timesheet-backend/internal/bot/timesheet"
	"timesheet-backend/internal/components/telemetry"
)

const (
	report_webform_fill    = "webform.fill"
	report_webform_submit  = "webform.submit"
	report_webform_confirm = "webform.confirm"
)

// Config controls form layout and timing.
type Config struct {
	// Fields overrides the form layout; empty means DefaultFields.
	Fields []Field `json:"fields"`
	// SubmitSelectors overrides the submit button fallbacks.
	SubmitSelectors []string `json:"submit_selectors"`
	// SuccessURLMarkers, SuccessIndicators and SuccessSelectors confirm a
	// submission; ErrorBannerSelectors reject one.
	SuccessURLMarkers    []string `json:"success_url_markers"`
	SuccessIndicators    []string `json:"success_indicators"`
	SuccessSelectors     []string `json:"success_selectors"`
	ErrorBannerSelectors []string `json:"error_banner_selectors"`
	// ConfirmTimeoutMs bounds the post-submit confirmation wait; 0 means 10s.
	ConfirmTimeoutMs int `json:"confirm_timeout_ms"`
	// ConfirmPollMs is the confirmation poll interval; 0 means 500ms.
	ConfirmPollMs int `json:"confirm_poll_ms"`
	// FieldDelayMs is the pause between field interactions; 0 means 200ms.
	FieldDelayMs int `json:"field_delay_ms"`
	// SettleDelayMs is the pause after navigation and after the submit
	// click; 0 means 3000ms.
	SettleDelayMs int `json:"settle_delay_ms"`
}

func (c Config) fields() []Field {
	if len(c.Fields) == 0 {
		return DefaultFields()
	}
	return c.Fields
}

func (c Config) submitSelectors() []string {
	if len(c.SubmitSelectors) == 0 {
		return DefaultSubmitSelectors()
	}
	return c.SubmitSelectors
}

func (c Config) successURLMarkers() []string {
	if len(c.SuccessURLMarkers) == 0 {
		return DefaultSuccessURLMarkers()
	}
	return c.SuccessURLMarkers
}

func (c Config) successIndicators() []string {
	if len(c.SuccessIndicators) == 0 {
		return DefaultSuccessIndicators()
	}
	return c.SuccessIndicators
}

func (c Config) successSelectors() []string {
	if len(c.SuccessSelectors) == 0 {
		return DefaultSuccessSelectors()
	}
	return c.SuccessSelectors
}

func (c Config) errorBannerSelectors() []string {
	if len(c.ErrorBannerSelectors) == 0 {
		return DefaultErrorBannerSelectors()
	}
	return c.ErrorBannerSelectors
}

func (c Config) confirmTimeout() time.Duration {
	if c.ConfirmTimeoutMs == 0 {
		return 10 * time.Second
	}
	return time.Duration(c.ConfirmTimeoutMs) * time.Millisecond
}

func (c Config) confirmPoll() time.Duration {
	if c.ConfirmPollMs == 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(c.ConfirmPollMs) * time.Millisecond
}

func (c Config) fieldDelay() time.Duration {
	if c.FieldDelayMs == 0 {
		return 200 * time.Millisecond
	}
	return time.Duration(c.FieldDelayMs) * time.Millisecond
}

func (c Config) settleDelay() time.Duration {
	if c.SettleDelayMs == 0 {
		return 3 * time.Second
	}
	return time.Duration(c.SettleDelayMs) * time.Millisecond
}

// Filler drives field population and submission for single rows.
type Filler struct {
	cfg Config
	tel telemetry.API
	// consumed is set once a submit click lands: the page is then a spent
	// form or a confirmation view, and the next row must reload the form
	// even though the URL may still carry the form id.
	consumed bool
}

func NewFiller(cfg Config, tel telemetry.API) *Filler {
	assert.NotNil(tel)
	return &Filler{
		cfg: cfg,
		tel: telemetry.NewScopedAPI("webform", tel),
	}
}

// FillRow populates the form at target.FormURL with one row, submits it, and
// waits for confirmation. Any returned error covers this row only.
func (f *Filler) FillRow(ctx context.Context, page browser.Page, row timesheet.Row, target quarter.Definition) error {
	if err := f.ensureOnForm(ctx, page, target); err != nil {
		return err
	}

	values := fieldValues(row)
	for _, field := range f.cfg.fields() {
		value, ok := values[field.Key]
		if !ok {
			if !field.Optional {
				return fmt.Errorf("required field %q has no value", field.Label)
			}
			continue
		}

		if err := f.fillField(ctx, page, field, value); err != nil {
			if field.Optional {
				f.tel.ReportDebug("optional field skipped", field.Label, err)
				continue
			}
			f.tel.ReportWarning(report_webform_fill, fmt.Errorf("field %q: %w", field.Label, err))
			return fmt.Errorf("field %q: %w", field.Label, err)
		}

		if err := wait(ctx, f.cfg.fieldDelay()); err != nil {
			return err
		}
	}

	if err := f.submit(ctx, page); err != nil {
		f.tel.ReportWarning(report_webform_submit, err)
		return err
	}
	f.consumed = true

	if err := f.confirm(ctx, page); err != nil {
		f.tel.ReportWarning(report_webform_confirm, err)
		return err
	}

	f.tel.ReportCount("webform.submitted", 1)
	return nil
}

// fieldValues maps a row onto field keys, re-checking applicability: a row
// without a tool gets no tool value, and a charge code only applies when the
// tool requires one. Upstream normalization is not assumed.
func fieldValues(row timesheet.Row) map[string]string {
	values := map[string]string{
		FieldProject:         row.Project,
		FieldDate:            row.Date,
		FieldHours:           row.Hours,
		FieldTaskDescription: row.TaskDescription,
	}
	if row.RequiresTool() {
		values[FieldTool] = *row.Tool
		if row.RequiresChargeCode() {
			values[FieldDetailCode] = *row.ChargeCode
		}
	}
	return values
}

func (f *Filler) ensureOnForm(ctx context.Context, page browser.Page, target quarter.Definition) error {
	if !f.consumed {
		url, err := page.URL(ctx)
		if err == nil && strings.Contains(url, target.FormID) && !f.onConfirmationPage(url) {
			return nil
		}
	}

	f.tel.ReportDebug("navigating to form", target.Name, target.FormURL)
	if err := page.Navigate(ctx, target.FormURL); err != nil {
		return fmt.Errorf("navigate to form %s: %w", target.Name, err)
	}
	f.consumed = false
	return wait(ctx, f.cfg.settleDelay())
}

func (f *Filler) onConfirmationPage(url string) bool {
	for _, marker := range f.cfg.successURLMarkers() {
		if strings.Contains(url, marker) {
			return true
		}
	}
	return false
}

func (f *Filler) fillField(ctx context.Context, page browser.Page, field Field, value string) error {
	if err := page.WaitVisible(ctx, field.Selector); err != nil {
		return fmt.Errorf("element not found: %w", err)
	}
	if err := page.Fill(ctx, field.Selector, value); err != nil {
		return fmt.Errorf("fill failed: %w", err)
	}

	if !field.Dropdown {
		return nil
	}

	// let the combo box filter its option list before committing
	if err := wait(ctx, f.cfg.fieldDelay()); err != nil {
		return err
	}
	if err := page.Press(ctx, field.Selector, "ArrowDown", "Enter"); err != nil {
		return fmt.Errorf("dropdown selection failed: %w", err)
	}
	return nil
}

func (f *Filler) submit(ctx context.Context, page browser.Page) error {
	for _, selector := range f.cfg.submitSelectors() {
		found, err := page.Has(ctx, selector)
		if err != nil || !found {
			continue
		}

		f.tel.ReportDebug("submitting form", selector)
		if err := page.Click(ctx, selector); err != nil {
			return fmt.Errorf("click submit: %w", err)
		}
		return wait(ctx, f.cfg.settleDelay())
	}
	return fmt.Errorf("submit button not found")
}

func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
