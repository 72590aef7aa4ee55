package testutil

import (
	"context"
	"fmt"
)

// FakePage is a scriptable implementation of the bot's page surface so the
// login, webform and orchestration logic can be exercised without Chrome.
//
// The zero value behaves like a blank page where every element exists and
// every interaction succeeds; tests make selectors fail or pages unreadable
// through the Fail* and *Err fields.
type FakePage struct {
	// Location is the current URL; Navigate rewrites it.
	Location string
	// Document is returned by HTML.
	Document string
	// OnNavigate, when set, runs after each successful navigation so tests
	// can swap Document per target.
	OnNavigate func(url string)

	NavigateErr error
	URLErr      error
	HTMLErr     error

	// FailSelectors maps a selector to the error any interaction with it
	// returns (WaitVisible, Fill, Click, Press).
	FailSelectors map[string]error
	// Missing marks selectors Has reports as absent.
	Missing map[string]bool

	// Calls records every interaction in order.
	Calls []string
}

func (p *FakePage) record(format string, args ...any) {
	p.Calls = append(p.Calls, fmt.Sprintf(format, args...))
}

func (p *FakePage) selectorErr(selector string) error {
	if err, ok := p.FailSelectors[selector]; ok {
		return err
	}
	return nil
}

func (p *FakePage) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.record("navigate %s", url)
	if p.NavigateErr != nil {
		return p.NavigateErr
	}
	p.Location = url
	if p.OnNavigate != nil {
		p.OnNavigate(url)
	}
	return nil
}

func (p *FakePage) URL(ctx context.Context) (string, error) {
	if p.URLErr != nil {
		return "", p.URLErr
	}
	return p.Location, nil
}

func (p *FakePage) HTML(ctx context.Context) (string, error) {
	if p.HTMLErr != nil {
		return "", p.HTMLErr
	}
	return p.Document, nil
}

func (p *FakePage) WaitVisible(ctx context.Context, selector string) error {
	p.record("wait %s", selector)
	return p.selectorErr(selector)
}

func (p *FakePage) Fill(ctx context.Context, selector, text string) error {
	p.record("fill %s=%s", selector, text)
	return p.selectorErr(selector)
}

func (p *FakePage) Click(ctx context.Context, selector string) error {
	p.record("click %s", selector)
	return p.selectorErr(selector)
}

func (p *FakePage) Press(ctx context.Context, selector string, keys ...string) error {
	p.record("press %s %v", selector, keys)
	return p.selectorErr(selector)
}

func (p *FakePage) Has(ctx context.Context, selector string) (bool, error) {
	if p.Missing[selector] {
		return false, nil
	}
	if err := p.selectorErr(selector); err != nil {
		return false, err
	}
	return true, nil
}

// FilledValue returns the last value typed into a selector, or "".
func (p *FakePage) FilledValue(selector string) string {
	prefix := fmt.Sprintf("fill %s=", selector)
	value := ""
	for _, call := range p.Calls {
		if len(call) >= len(prefix) && call[:len(prefix)] == prefix {
			value = call[len(prefix):]
		}
	}
	return value
}

// Filled reports whether anything was ever typed into the selector.
func (p *FakePage) Filled(selector string) bool {
	prefix := fmt.Sprintf("fill %s=", selector)
	for _, call := range p.Calls {
		if len(call) >= len(prefix) && call[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}
