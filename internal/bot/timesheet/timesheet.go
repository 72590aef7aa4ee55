// Package timesheet holds the row and credential types the automation core
// consumes. Rows arrive already validated by the caller; the core treats them
// as read-only and re-checks only applicability rules (a project may not need
// a tool, a tool may not need a charge code).
package timesheet

import "strings"

// Row is one validated timesheet entry.
//
// Hours is kept as the caller-validated decimal string (quarter-hour steps in
// [0.25, 24.0]) so it can be typed into the form unmodified, with no
// reformatting or rounding on this side.
type Row struct {
	Date            string  `json:"date"`
	Hours           string  `json:"hours"`
	Project         string  `json:"project"`
	Tool            *string `json:"tool"`
	ChargeCode      *string `json:"charge_code"`
	TaskDescription string  `json:"task_description"`
}

// RequiresTool reports whether the tool field applies to this row.
func (r Row) RequiresTool() bool {
	return r.Tool != nil && *r.Tool != ""
}

// RequiresChargeCode reports whether the charge code field applies. A charge
// code is only ever submitted for rows whose tool applies, regardless of what
// upstream normalization left in the row.
func (r Row) RequiresChargeCode() bool {
	return r.RequiresTool() && r.ChargeCode != nil && *r.ChargeCode != ""
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RedactEmail hides everything but the first character of the local part so
// credentials never land in logs verbatim.
func RedactEmail(email string) string {
	at := strings.IndexByte(email, '@')
	if at <= 0 {
		return "***"
	}
	return email[:1] + "***" + email[at:]
}
