// Package browser owns the Chrome session used for one automation run and
// exposes the narrow page surface the rest of the bot drives the form
// through. Nothing outside this package touches rod directly.
package browser

import (
	"context"
	"fmt"
	"time"
	"timesheet-backend/internal/assert"
	"timesheet-backend/internal/components/telemetry"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

const (
	report_session_start = "session.start"
	report_session_close = "session.close"
)

// Config holds browser launch configuration. Timeouts are configuration, not
// derived values.
type Config struct {
	Headless bool `json:"headless"`
	// Bin optionally pins the Chrome binary; when empty the launcher resolves
	// one itself.
	Bin                 string `json:"bin"`
	ViewportWidth       int    `json:"viewport_width"`
	ViewportHeight      int    `json:"viewport_height"`
	NavigationTimeoutMs int    `json:"navigation_timeout_ms"`
	ElementTimeoutMs    int    `json:"element_timeout_ms"`
}

func (c Config) viewportWidth() int {
	if c.ViewportWidth == 0 {
		return 1920
	}
	return c.ViewportWidth
}

func (c Config) viewportHeight() int {
	if c.ViewportHeight == 0 {
		return 1080
	}
	return c.ViewportHeight
}

// NavigationTimeout returns the page navigation timeout.
func (c Config) NavigationTimeout() time.Duration {
	if c.NavigationTimeoutMs == 0 {
		return 30 * time.Second
	}
	return time.Duration(c.NavigationTimeoutMs) * time.Millisecond
}

// ElementTimeout returns how long element lookups wait before reporting
// field-not-found.
func (c Config) ElementTimeout() time.Duration {
	if c.ElementTimeoutMs == 0 {
		return 10 * time.Second
	}
	return time.Duration(c.ElementTimeoutMs) * time.Millisecond
}

// Session owns one Chrome instance. It is exclusively held by a single
// orchestration run; concurrent runs must be serialized by the caller.
type Session struct {
	cfg     Config
	tel     telemetry.API
	browser *rod.Browser
}

func NewSession(cfg Config, tel telemetry.API) *Session {
	assert.NotNil(tel)
	return &Session{
		cfg: cfg,
		tel: telemetry.NewScopedAPI("browser", tel),
	}
}

// Start launches Chrome and connects to it. Calling Start on an already
// started session is a no-op when the browser is still reachable.
func (s *Session) Start(ctx context.Context) error {
	if s.browser != nil {
		if _, err := s.browser.Version(); err == nil {
			return nil
		}
		s.tel.ReportWarning(report_session_start, "stale browser connection, relaunching")
		_ = s.browser.Close()
		s.browser = nil
	}

	launch := launcher.New().Headless(s.cfg.Headless)
	if s.cfg.Bin != "" {
		launch = launch.Bin(s.cfg.Bin)
	}
	controlURL, err := launch.Launch()
	if err != nil {
		s.tel.ReportBroken(report_session_start, fmt.Errorf("launch chrome: %w", err))
		return fmt.Errorf("launch chrome: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		s.tel.ReportBroken(report_session_start, fmt.Errorf("connect to chrome: %w", err))
		return fmt.Errorf("connect to chrome: %w", err)
	}

	s.browser = browser
	return nil
}

// NewPage opens a blank page sized to the configured viewport.
func (s *Session) NewPage(ctx context.Context) (Page, error) {
	if s.browser == nil {
		return nil, fmt.Errorf("browser not started")
	}

	page, err := s.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}

	err = (proto.EmulationSetDeviceMetricsOverride{
		Width:             s.cfg.viewportWidth(),
		Height:            s.cfg.viewportHeight(),
		DeviceScaleFactor: 1.0,
		Mobile:            false,
	}).Call(page)
	if err != nil {
		s.tel.ReportWarning(report_session_start, fmt.Errorf("set viewport: %w", err))
	}

	return &rodPage{cfg: s.cfg, page: page}, nil
}

// Alive reports whether the browser process is still reachable.
func (s *Session) Alive() bool {
	if s.browser == nil {
		return false
	}
	_, err := s.browser.Version()
	return err == nil
}

// Close tears the browser down. It is safe to call more than once; failures
// are reported through telemetry and returned so callers can log them, but
// they must never mask an automation result.
func (s *Session) Close() error {
	if s.browser == nil {
		return nil
	}
	err := s.browser.Close()
	s.browser = nil
	if err != nil {
		s.tel.ReportWarning(report_session_close, err)
		return fmt.Errorf("close browser: %w", err)
	}
	return nil
}
