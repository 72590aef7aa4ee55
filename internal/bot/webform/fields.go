package webform

// Field keys a Row maps onto.
const (
	FieldProject         = "project_code"
	FieldDate            = "date"
	FieldHours           = "hours"
	FieldTool            = "tool"
	FieldTaskDescription = "task_description"
	FieldDetailCode      = "detail_code"
)

// Field binds a row value to a form control.
type Field struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Selector string `json:"selector"`
	// Optional fields may be absent from the form or from the row.
	Optional bool `json:"optional"`
	// Dropdown fields are SmartSheet combo boxes: typing filters the option
	// list, then ArrowDown+Enter commits the first match.
	Dropdown bool `json:"dropdown"`
}

// DefaultFields returns the SmartSheet timesheet form layout in fill order.
// Tool comes before the task description because focusing the description
// textbox closes any open dropdown.
func DefaultFields() []Field {
	return []Field{
		{
			Key:      FieldProject,
			Label:    "Project",
			Selector: "input[aria-label='Project']",
			Dropdown: true,
		},
		{
			Key:      FieldDate,
			Label:    "Date",
			Selector: "input[placeholder='mm/dd/yyyy']",
		},
		{
			Key:      FieldHours,
			Label:    "Hours",
			Selector: "input[aria-label='Hours']",
		},
		{
			Key:      FieldTool,
			Label:    "Tool",
			Selector: "input[aria-label*='Tool']",
			Optional: true,
			Dropdown: true,
		},
		{
			Key:      FieldTaskDescription,
			Label:    "Task Description",
			Selector: "[role='textbox'][aria-label='Task Description']",
		},
		{
			Key:      FieldDetailCode,
			Label:    "Detail Charge Code",
			Selector: "input[aria-label='Detail Charge Code']",
			Optional: true,
			Dropdown: true,
		},
	}
}

// DefaultSubmitSelectors are tried in order until one matches; the form's
// submit button id has shifted across SmartSheet releases.
func DefaultSubmitSelectors() []string {
	return []string{
		"button[data-client-id='form_submit_btn']",
		"input[type='submit']",
		"button[type='submit']",
		"button.submit",
		"button[aria-label*='Submit']",
		"button[aria-label*='Save']",
		"button[title*='Submit']",
		"button[title*='Save']",
	}
}

// DefaultSuccessURLMarkers are URL substrings that confirm a submission
// landed on the confirmation page.
func DefaultSuccessURLMarkers() []string {
	return []string{"success", "complete", "confirmation"}
}

// DefaultSuccessIndicators are text fragments the confirmation page renders.
func DefaultSuccessIndicators() []string {
	return []string{
		"submissionId",
		"success! we've captured your submission",
		"form submitted successfully",
		"thank you for your submission",
	}
}

// DefaultSuccessSelectors are elements only present on a confirmation page.
func DefaultSuccessSelectors() []string {
	return []string{
		".submission-success",
		".form-success",
		"[data-submission-status='success']",
		".confirmation-message",
		".success-message",
		".alert-success",
	}
}

// DefaultErrorBannerSelectors are elements the form renders when it rejects
// a submission, including the quarter-availability validation banner.
func DefaultErrorBannerSelectors() []string {
	return []string{
		"[role='alert']",
		".error-message",
		".alert-danger",
		".form-error",
	}
}
