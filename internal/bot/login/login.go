// Package login drives the authentication step of the browser session and
// reports whether the resulting page state looks logged in.
package login

import (
	"context"
	"fmt"
	"strings"
	"time"
	"timesheet-backend/internal/assert"
	"timesheet-backend/internal/bot/browser"
	"timesheet-backend/internal/bot/timesheet"
	"timesheet-backend/internal/components/telemetry"
)

const (
	report_login_run      = "login.run"
	report_login_validate = "login.validate-state"
)

// State tracks the login state machine:
// NotStarted -> Authenticating -> {Authenticated, Unconfirmed, Failed}.
type State int

const (
	StateNotStarted State = iota
	StateAuthenticating
	// StateAuthenticated means the post-login URL positively matched a
	// configured success pattern.
	StateAuthenticated
	// StateUnconfirmed means the flow completed but the page state could not
	// be positively confirmed: either the URL matched no success pattern or
	// the page could not be inspected at all. Callers must treat this as
	// "cannot confirm success", not "definitely failed".
	StateUnconfirmed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateUnconfirmed:
		return "unconfirmed"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Config controls the login flow.
type Config struct {
	// BaseURL is the page the flow starts from, normally the quarter form URL.
	BaseURL string `json:"base_url"`
	// Steps overrides the scripted flow; empty means DefaultSteps.
	Steps []Step `json:"steps"`
	// SuccessURLPatterns are URL substrings that positively confirm an
	// authenticated session; empty means DefaultSuccessURLPatterns.
	SuccessURLPatterns []string `json:"success_url_patterns"`
	// MaxNavigationRetries bounds attempts to reach the base URL; 0 means 3.
	MaxNavigationRetries int `json:"max_navigation_retries"`
	// StepDelayMs is the pause between steps; 0 means 300ms.
	StepDelayMs int `json:"step_delay_ms"`
	// NavigationDelayMs is the pause after a click that expects a page
	// transition; 0 means 3000ms.
	NavigationDelayMs int `json:"navigation_delay_ms"`
}

func (c Config) steps() []Step {
	if len(c.Steps) == 0 {
		return DefaultSteps()
	}
	return c.Steps
}

func (c Config) successURLPatterns() []string {
	if len(c.SuccessURLPatterns) == 0 {
		return DefaultSuccessURLPatterns()
	}
	return c.SuccessURLPatterns
}

func (c Config) maxNavigationRetries() int {
	if c.MaxNavigationRetries == 0 {
		return 3
	}
	return c.MaxNavigationRetries
}

func (c Config) stepDelay() time.Duration {
	if c.StepDelayMs == 0 {
		return 300 * time.Millisecond
	}
	return time.Duration(c.StepDelayMs) * time.Millisecond
}

func (c Config) navigationDelay() time.Duration {
	if c.NavigationDelayMs == 0 {
		return 3 * time.Second
	}
	return time.Duration(c.NavigationDelayMs) * time.Millisecond
}

// Manager performs the authentication flow for one run. It does not retry a
// failed login; retries, if any, are an orchestrator policy.
type Manager struct {
	cfg   Config
	tel   telemetry.API
	state State
}

func NewManager(cfg Config, tel telemetry.API) *Manager {
	assert.NotNil(tel)
	assert.NotEmptyStr(cfg.BaseURL)
	return &Manager{
		cfg:   cfg,
		tel:   telemetry.NewScopedAPI("login", tel),
		state: StateNotStarted,
	}
}

func (m *Manager) State() State {
	return m.state
}

// Run executes the scripted login flow. A failed required step is fatal to
// the whole run; the caller must not process any rows after an error here.
func (m *Manager) Run(ctx context.Context, page browser.Page, creds timesheet.Credentials) error {
	m.state = StateAuthenticating

	steps := m.cfg.steps()
	m.tel.ReportDebug(
		"starting login",
		timesheet.RedactEmail(creds.Email),
		len(steps),
	)

	if err := m.navigateWithRetries(ctx, page); err != nil {
		m.state = StateFailed
		m.tel.ReportBroken(report_login_run, err)
		return err
	}

	for i, step := range steps {
		m.tel.ReportDebug("login step", i+1, len(steps), step.Name)

		err := m.executeStep(ctx, page, step, creds)
		if err != nil {
			if step.Optional {
				m.tel.ReportDebug("optional login step failed", step.Name, err)
				continue
			}
			m.state = StateFailed
			m.tel.ReportBroken(report_login_run, fmt.Errorf("step %q: %w", step.Name, err))
			return fmt.Errorf("login step %q: %w", step.Name, err)
		}

		if err := wait(ctx, m.cfg.stepDelay()); err != nil {
			m.state = StateFailed
			return err
		}
	}

	return nil
}

func (m *Manager) navigateWithRetries(ctx context.Context, page browser.Page) error {
	retries := m.cfg.maxNavigationRetries()

	var err error
	for attempt := 1; attempt <= retries; attempt++ {
		err = page.Navigate(ctx, m.cfg.BaseURL)
		if err == nil {
			return nil
		}
		m.tel.ReportWarning(report_login_run, fmt.Errorf("navigation attempt %d: %w", attempt, err))
		if attempt < retries {
			if werr := wait(ctx, 2*time.Second); werr != nil {
				return werr
			}
		}
	}
	return fmt.Errorf("navigate to %s: %w", m.cfg.BaseURL, err)
}

func (m *Manager) executeStep(ctx context.Context, page browser.Page, step Step, creds timesheet.Credentials) error {
	switch step.Action {
	case ActionWait:
		return page.WaitVisible(ctx, step.Selector)

	case ActionInput:
		var value string
		switch step.ValueKey {
		case ValueEmail:
			value = creds.Email
		case ValuePassword:
			value = creds.Password
		default:
			return fmt.Errorf("unknown value key %q", step.ValueKey)
		}

		logged := value
		if step.Sensitive {
			logged = "<redacted>"
		}
		m.tel.ReportDebug("filling input", step.Selector, logged)

		return page.Fill(ctx, step.Selector, value)

	case ActionClick:
		if err := page.Click(ctx, step.Selector); err != nil {
			return err
		}
		if step.ExpectsNavigation {
			return wait(ctx, m.cfg.navigationDelay())
		}
		return nil
	}

	return fmt.Errorf("unknown action %q", step.Action)
}

// ValidateState inspects the current page location. Authenticated requires a
// positive match against a success URL pattern; a page that cannot be
// inspected or matches no pattern resolves to Unconfirmed rather than Failed,
// so the caller can decide its own risk tolerance.
func (m *Manager) ValidateState(ctx context.Context, page browser.Page) State {
	if m.state == StateFailed || m.state == StateNotStarted {
		return m.state
	}

	url, err := page.URL(ctx)
	if err != nil {
		m.tel.ReportWarning(report_login_validate, fmt.Errorf("inspect page: %w", err))
		m.state = StateUnconfirmed
		return m.state
	}

	for _, pattern := range m.cfg.successURLPatterns() {
		if strings.Contains(url, pattern) {
			m.state = StateAuthenticated
			return m.state
		}
	}

	m.tel.ReportWarning(report_login_validate, "url matched no success pattern", url)
	m.state = StateUnconfirmed
	return m.state
}

// wait sleeps unless the context is cancelled first.
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
