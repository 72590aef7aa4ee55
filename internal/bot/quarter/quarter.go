// Package quarter maps timesheet dates to the fiscal-quarter form instance
// they must be submitted to. The quarter table is loaded once at startup and
// treated as immutable; every lookup is a pure function over it.
package quarter

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"timesheet-backend/internal/bot/timesheet"
	"timesheet-backend/internal/components/chrono"
	"timesheet-backend/lib/configutil"
)

const dateLayout = "2006-01-02"

// Definition describes one fiscal-quarter window and the form it routes to.
type Definition struct {
	// Quarter identifier, e.g. "Q3-2025".
	ID string `json:"id"`
	// Human-readable quarter name.
	Name string `json:"name"`
	// Inclusive window bounds in YYYY-MM-DD format.
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	// SmartSheet form URL and the form id embedded in it.
	FormURL string `json:"form_url"`
	FormID  string `json:"form_id"`
}

// Start returns the parsed window start.
func (d Definition) Start() (time.Time, bool) {
	return parseDate(d.StartDate)
}

// End returns the parsed window end.
func (d Definition) End() (time.Time, bool) {
	return parseDate(d.EndDate)
}

// parseDate strictly parses a YYYY-MM-DD date. Invalid month/day values are
// rejected, not clamped.
func parseDate(value string) (time.Time, bool) {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Config is the loaded-once, read-only quarter table.
type Config struct {
	quarters []Definition
}

// New validates a quarter set and wraps it into a Config.
func New(quarters []Definition) (Config, error) {
	cfg := Config{quarters: quarters}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type configFile struct {
	Quarters []Definition `json:"quarters"`
}

// Load reads a quarter table from a json5 file.
func Load(path string) (Config, error) {
	file, err := configutil.ReadConfig[configFile](path)
	if err != nil {
		return Config{}, err
	}
	return New(file.Quarters)
}

// Default returns the built-in quarter table.
//
// To add new quarters append a Definition here (or to the quarters config
// file); routing picks it up with no other changes.
func Default() Config {
	cfg, err := New([]Definition{
		{
			ID:        "Q1-2025",
			Name:      "Q1 2025",
			StartDate: "2025-01-01",
			EndDate:   "2025-03-31",
			FormURL:   "https://app.smartsheet.com/b/form/q1-2025-placeholder",
			FormID:    "q1-2025-placeholder",
		},
		{
			ID:        "Q2-2025",
			Name:      "Q2 2025",
			StartDate: "2025-04-01",
			EndDate:   "2025-06-30",
			FormURL:   "https://app.smartsheet.com/b/form/q2-2025-placeholder",
			FormID:    "q2-2025-placeholder",
		},
		{
			ID:        "Q3-2025",
			Name:      "Q3 2025",
			StartDate: "2025-07-01",
			EndDate:   "2025-09-30",
			FormURL:   "https://app.smartsheet.com/b/form/0197cbae7daf72bdb96b3395b500d414",
			FormID:    "0197cbae7daf72bdb96b3395b500d414",
		},
		{
			ID:        "Q4-2025",
			Name:      "Q4 2025",
			StartDate: "2025-10-01",
			EndDate:   "2025-12-31",
			FormURL:   "https://app.smartsheet.com/b/form/0199fabee6497e60abb6030c48d84585",
			FormID:    "0199fabee6497e60abb6030c48d84585",
		},
	})
	if err != nil {
		panic(err)
	}
	return cfg
}

// validate asserts the invariants routing relies on: parseable bounds,
// start <= end, the form url carrying the form id, and non-overlapping
// windows when sorted by start date.
func (c Config) validate() error {
	if len(c.quarters) == 0 {
		return fmt.Errorf("quarter config: no quarters defined")
	}

	sorted := make([]Definition, len(c.quarters))
	copy(sorted, c.quarters)

	for _, q := range sorted {
		start, ok := parseDate(q.StartDate)
		if !ok {
			return fmt.Errorf("quarter %s: bad start date %q", q.ID, q.StartDate)
		}
		end, ok := parseDate(q.EndDate)
		if !ok {
			return fmt.Errorf("quarter %s: bad end date %q", q.ID, q.EndDate)
		}
		if end.Before(start) {
			return fmt.Errorf("quarter %s: end date precedes start date", q.ID)
		}
		if !strings.Contains(q.FormURL, q.FormID) {
			return fmt.Errorf("quarter %s: form url does not contain form id %q", q.ID, q.FormID)
		}
	}

	sort.Slice(sorted, func(i, j int) bool {
		a, _ := parseDate(sorted[i].StartDate)
		b, _ := parseDate(sorted[j].StartDate)
		return a.Before(b)
	})
	for i := 1; i < len(sorted); i++ {
		prevEnd, _ := parseDate(sorted[i-1].EndDate)
		start, _ := parseDate(sorted[i].StartDate)
		if !start.After(prevEnd) {
			return fmt.Errorf(
				"quarters %s and %s overlap",
				sorted[i-1].ID, sorted[i].ID,
			)
		}
	}
	return nil
}

// Definitions returns a copy of the quarter table.
func (c Config) Definitions() []Definition {
	out := make([]Definition, len(c.quarters))
	copy(out, c.quarters)
	return out
}

// Resolve returns the unique quarter whose closed window contains the date.
// Malformed or empty dates resolve to not-found.
func (c Config) Resolve(date string) (Definition, bool) {
	target, ok := parseDate(date)
	if !ok {
		return Definition{}, false
	}

	for _, q := range c.quarters {
		start, ok := q.Start()
		if !ok {
			continue
		}
		end, ok := q.End()
		if !ok {
			continue
		}
		if !target.Before(start) && !target.After(end) {
			return q, true
		}
	}
	return Definition{}, false
}

// ValidateAvailability returns "" when the date resolves to a quarter and a
// user-actionable message otherwise. The empty-date message is distinct from
// the out-of-range one.
func (c Config) ValidateAvailability(date string) string {
	if date == "" {
		return "Please enter a date"
	}
	if _, ok := c.Resolve(date); ok {
		return ""
	}

	windows := make([]string, 0, len(c.quarters))
	for _, q := range c.quarters {
		startParts := strings.Split(q.StartDate, "-")
		endParts := strings.Split(q.EndDate, "-")
		if len(startParts) != 3 || len(endParts) != 3 {
			continue
		}
		windows = append(windows, fmt.Sprintf(
			"%s (%s/%s-%s/%s)",
			q.Name,
			startParts[1], startParts[2],
			endParts[1], endParts[2],
		))
	}
	return fmt.Sprintf("Date must be in %s", strings.Join(windows, " or "))
}

// GroupByDefinition partitions rows by resolved quarter id, silently skipping
// rows whose dates resolve to no quarter.
func (c Config) GroupByDefinition(rows []timesheet.Row) map[string][]timesheet.Row {
	groups := map[string][]timesheet.Row{}
	for _, row := range rows {
		q, ok := c.Resolve(row.Date)
		if !ok {
			continue
		}
		groups[q.ID] = append(groups[q.ID], row)
	}
	return groups
}

// ByID looks a quarter up by its identifier.
func (c Config) ByID(id string) (Definition, bool) {
	for _, q := range c.quarters {
		if q.ID == id {
			return q, true
		}
	}
	return Definition{}, false
}

// Current resolves the quarter containing today.
func (c Config) Current(clock chrono.API) (Definition, bool) {
	return c.Resolve(clock.Now().Format(dateLayout))
}
