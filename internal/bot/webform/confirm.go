package webform

import (
	"context"
	"fmt"
	"strings"
	"time"
	"timesheet-backend/internal/bot/browser"

	"github.com/PuerkitoBio/goquery"
)

// confirm polls the page until a success signal appears, an error banner
// appears, or the confirmation timeout elapses. Timing out is a failure;
// an unconfirmed submission must not be reported as submitted.
func (f *Filler) confirm(ctx context.Context, page browser.Page) error {
	deadline := time.Now().Add(f.cfg.confirmTimeout())

	for {
		outcome, err := f.inspect(ctx, page)
		if err != nil {
			f.tel.ReportDebug("confirmation inspect failed", err)
		} else {
			switch outcome.kind {
			case confirmed:
				f.tel.ReportDebug("submission confirmed", outcome.detail)
				return nil
			case rejected:
				return fmt.Errorf("form rejected submission: %s", outcome.detail)
			}
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("submit confirmation timed out after %s", f.cfg.confirmTimeout())
		}
		if err := wait(ctx, f.cfg.confirmPoll()); err != nil {
			return err
		}
	}
}

type outcomeKind int

const (
	pending outcomeKind = iota
	confirmed
	rejected
)

type pageOutcome struct {
	kind   outcomeKind
	detail string
}

// inspect takes one reading of the current page state. An error banner wins
// over a success marker; a rejected form can still sit on the form URL.
func (f *Filler) inspect(ctx context.Context, page browser.Page) (pageOutcome, error) {
	html, err := page.HTML(ctx)
	if err != nil {
		return pageOutcome{}, fmt.Errorf("read page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return pageOutcome{}, fmt.Errorf("parse page: %w", err)
	}

	if banner, found := findErrorBanner(doc, f.cfg.errorBannerSelectors()); found {
		return pageOutcome{kind: rejected, detail: banner}, nil
	}

	url, err := page.URL(ctx)
	if err == nil {
		for _, marker := range f.cfg.successURLMarkers() {
			if strings.Contains(url, marker) {
				return pageOutcome{kind: confirmed, detail: "url marker " + marker}, nil
			}
		}
	}

	if detail, found := findSuccessMarker(doc, f.cfg.successSelectors(), f.cfg.successIndicators()); found {
		return pageOutcome{kind: confirmed, detail: detail}, nil
	}

	return pageOutcome{kind: pending}, nil
}

func findErrorBanner(doc *goquery.Document, selectors []string) (string, bool) {
	for _, selector := range selectors {
		sel := doc.Find(selector)
		if sel.Length() == 0 {
			continue
		}
		text := strings.TrimSpace(sel.First().Text())
		if text == "" {
			continue
		}
		return text, true
	}
	return "", false
}

func findSuccessMarker(doc *goquery.Document, selectors []string, indicators []string) (string, bool) {
	for _, selector := range selectors {
		if doc.Find(selector).Length() > 0 {
			return "element " + selector, true
		}
	}

	body := strings.ToLower(doc.Find("body").Text())
	for _, indicator := range indicators {
		if strings.Contains(body, strings.ToLower(indicator)) {
			return "indicator " + indicator, true
		}
	}
	return "", false
}
