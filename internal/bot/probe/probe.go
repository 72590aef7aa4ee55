// Package probe checks quarter form availability over plain HTTP, without
// spending a browser session: it fetches each form URL and verifies the
// response still serves the expected form.
package probe

import (
	"context"
	"fmt"
	"net/http/cookiejar"
	"strings"
	"time"
	"timesheet-backend/internal/bot/quarter"
	"timesheet-backend/internal/components/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("timesheet-backend/internal/bot/probe")

const report_probe_check = "probe.check-form"

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// Status is the outcome of probing one quarter form.
type Status struct {
	Definition quarter.Definition `json:"definition"`
	// Reachable is false only when the request itself failed.
	Reachable  bool `json:"reachable"`
	StatusCode int  `json:"status_code"`
	// FormFound means the response still references the expected form id.
	FormFound bool   `json:"form_found"`
	Message   string `json:"message"`
}

type Checker struct {
	http *resty.Client
	tel  telemetry.API
}

func NewChecker(tel telemetry.API) (*Checker, error) {
	tel = telemetry.NewScopedAPI("probe", tel)

	client := resty.New()
	client.SetTimeout(time.Second * 30)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetHeader("user-agent", userAgent)

	// 2 requests max per second
	// max burst >= 2 just means that no requests will be dropped
	rateLimiter := rate.NewLimiter(2, 2)
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(client, tel)

	return &Checker{http: client, tel: tel}, nil
}

// CheckForm fetches one quarter's form URL. A login redirect still counts as
// reachable; FormFound is only true when the page references the form id.
func (c *Checker) CheckForm(ctx context.Context, def quarter.Definition) Status {
	ctx, span := tracer.Start(ctx, "probe.CheckForm")
	defer span.End()

	status := Status{Definition: def}

	resp, err := c.http.R().SetContext(ctx).Get(def.FormURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		c.tel.ReportWarning(report_probe_check, def.Name, err)
		status.Message = fmt.Sprintf("request failed: %s", err)
		return status
	}

	status.Reachable = true
	status.StatusCode = resp.StatusCode()
	if resp.IsError() {
		status.Message = fmt.Sprintf("http %d", resp.StatusCode())
		return status
	}

	body := resp.String()
	if strings.Contains(body, def.FormID) {
		status.FormFound = true
		status.Message = "form available"
		return status
	}

	status.Message = describeUnexpectedPage(body)
	return status
}

// CheckAll probes every configured quarter in order.
func (c *Checker) CheckAll(ctx context.Context, quarters quarter.Config) []Status {
	statuses := make([]Status, 0, len(quarters.Definitions()))
	for _, def := range quarters.Definitions() {
		statuses = append(statuses, c.CheckForm(ctx, def))
	}
	return statuses
}

// describeUnexpectedPage distinguishes a login gate from a retired form so
// the operator knows which problem they have.
func describeUnexpectedPage(body string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "form id not found in response"
	}
	if doc.Find("#loginEmail").Length() > 0 {
		return "login required before form is visible"
	}
	if title := strings.TrimSpace(doc.Find("title").Text()); title != "" {
		return fmt.Sprintf("unexpected page: %s", title)
	}
	return "form id not found in response"
}
