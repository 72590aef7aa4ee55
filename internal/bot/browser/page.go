package browser

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
)

// Page is the surface the login and webform components drive the browser
// through. Every operation is context-bound and subject to the configured
// timeouts, and every failure comes back as an error rather than a panic.
type Page interface {
	// Navigate loads a URL and waits for the page load event.
	Navigate(ctx context.Context, url string) error
	// URL reports the page's current location.
	URL(ctx context.Context) (string, error)
	// HTML serializes the current document.
	HTML(ctx context.Context) (string, error)
	// WaitVisible blocks until the selector matches a visible element.
	WaitVisible(ctx context.Context, selector string) error
	// Fill focuses the element and replaces its content with text.
	Fill(ctx context.Context, selector, text string) error
	// Click clicks the first element matching the selector.
	Click(ctx context.Context, selector string) error
	// Press sends key presses to the element, e.g. "ArrowDown", "Enter".
	Press(ctx context.Context, selector string, keys ...string) error
	// Has reports whether the selector currently matches, without waiting.
	Has(ctx context.Context, selector string) (bool, error)
}

var keyNames = map[string]input.Key{
	"ArrowDown": input.ArrowDown,
	"ArrowUp":   input.ArrowUp,
	"Enter":     input.Enter,
	"Tab":       input.Tab,
	"Escape":    input.Escape,
}

type rodPage struct {
	cfg  Config
	page *rod.Page
}

func (p *rodPage) Navigate(ctx context.Context, url string) error {
	page := p.page.Context(ctx).Timeout(p.cfg.NavigationTimeout())
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait for %s to load: %w", url, err)
	}
	return nil
}

func (p *rodPage) URL(ctx context.Context) (string, error) {
	info, err := p.page.Context(ctx).Info()
	if err != nil {
		return "", fmt.Errorf("page info: %w", err)
	}
	return info.URL, nil
}

func (p *rodPage) HTML(ctx context.Context) (string, error) {
	html, err := p.page.Context(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("serialize page: %w", err)
	}
	return html, nil
}

func (p *rodPage) WaitVisible(ctx context.Context, selector string) error {
	el, err := p.element(ctx, selector)
	if err != nil {
		return err
	}
	if err := el.WaitVisible(); err != nil {
		return fmt.Errorf("element %q not visible: %w", selector, err)
	}
	return nil
}

func (p *rodPage) Fill(ctx context.Context, selector, text string) error {
	el, err := p.element(ctx, selector)
	if err != nil {
		return err
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("focus element %q: %w", selector, err)
	}
	// typing into a non-empty input would append to leftover content
	if err := el.SelectAllText(); err != nil {
		return fmt.Errorf("select text in element %q: %w", selector, err)
	}
	if err := el.Input(text); err != nil {
		return fmt.Errorf("type into element %q: %w", selector, err)
	}
	return nil
}

func (p *rodPage) Click(ctx context.Context, selector string) error {
	el, err := p.element(ctx, selector)
	if err != nil {
		return err
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click element %q: %w", selector, err)
	}
	return nil
}

func (p *rodPage) Press(ctx context.Context, selector string, keys ...string) error {
	el, err := p.element(ctx, selector)
	if err != nil {
		return err
	}
	for _, name := range keys {
		key, ok := keyNames[name]
		if !ok {
			return fmt.Errorf("unknown key %q", name)
		}
		if err := el.Type(key); err != nil {
			return fmt.Errorf("press %s on %q: %w", name, selector, err)
		}
	}
	return nil
}

func (p *rodPage) Has(ctx context.Context, selector string) (bool, error) {
	has, _, err := p.page.Context(ctx).Has(selector)
	if err != nil {
		return false, fmt.Errorf("query %q: %w", selector, err)
	}
	return has, nil
}

func (p *rodPage) element(ctx context.Context, selector string) (*rod.Element, error) {
	el, err := p.page.Context(ctx).Timeout(p.cfg.ElementTimeout()).Element(selector)
	if err != nil {
		return nil, fmt.Errorf("element %q not found: %w", selector, err)
	}
	return el, nil
}
