package login

// Action is the kind of interaction a login step performs.
type Action string

const (
	// ActionWait waits for an element to appear before moving on.
	ActionWait Action = "wait"
	// ActionInput types a credential value into a field.
	ActionInput Action = "input"
	// ActionClick clicks an element, optionally waiting out a navigation.
	ActionClick Action = "click"
)

// Credential value keys an input step may reference.
const (
	ValueEmail    = "email"
	ValuePassword = "password"
)

// Step is one entry in the scripted login flow.
type Step struct {
	Name     string `json:"name"`
	Action   Action `json:"action"`
	Selector string `json:"selector"`
	// ValueKey names which credential an input step types ("email" or
	// "password").
	ValueKey string `json:"value_key"`
	// ExpectsNavigation pauses after a click to let the page transition.
	ExpectsNavigation bool `json:"expects_navigation"`
	// Optional steps may fail without failing the login; SSO intermediate
	// screens come and go depending on cached browser state.
	Optional bool `json:"optional"`
	// Sensitive values are redacted from logs.
	Sensitive bool `json:"sensitive"`
}

// DefaultSteps returns the scripted SmartSheet login flow: the SmartSheet
// email gate, the company-account SSO choice, then the AAD email/password
// exchange, ending once the form page is ready.
func DefaultSteps() []Step {
	return []Step{
		{
			Name:     "Wait for Login Form",
			Action:   ActionWait,
			Selector: "#loginEmail",
			Optional: true,
		},
		{
			Name:      "Email Input",
			Action:    ActionInput,
			Selector:  "#loginEmail",
			ValueKey:  ValueEmail,
			Sensitive: true,
		},
		{
			Name:              "Continue",
			Action:            ActionClick,
			Selector:          "#formControl",
			ExpectsNavigation: true,
			Optional:          true,
		},
		{
			Name:     "Wait for SSO Choice",
			Action:   ActionWait,
			Selector: "a.clsJspButtonWide",
			Optional: true,
		},
		{
			Name:              "Login with company account",
			Action:            ActionClick,
			Selector:          "a.clsJspButtonWide",
			ExpectsNavigation: true,
			Optional:          true,
		},
		{
			Name:     "Wait for AAD Email",
			Action:   ActionWait,
			Selector: "#i0116",
		},
		{
			Name:      "AAD Email",
			Action:    ActionInput,
			Selector:  "#i0116",
			ValueKey:  ValueEmail,
			Sensitive: true,
		},
		{
			Name:              "AAD Next",
			Action:            ActionClick,
			Selector:          "#idSIButton9",
			ExpectsNavigation: true,
			Optional:          true,
		},
		{
			Name:     "Wait for Password",
			Action:   ActionWait,
			Selector: "#passwordInput",
		},
		{
			Name:      "Password Input",
			Action:    ActionInput,
			Selector:  "#passwordInput",
			ValueKey:  ValuePassword,
			Sensitive: true,
		},
		{
			Name:              "Password Submit",
			Action:            ActionClick,
			Selector:          "#submitButton",
			ExpectsNavigation: true,
			Optional:          true,
		},
		{
			Name:     "Stay Signed In Prompt",
			Action:   ActionWait,
			Selector: "#idBtn_Back",
			Optional: true,
		},
		{
			Name:              "Stay Signed In - No",
			Action:            ActionClick,
			Selector:          "#idBtn_Back",
			ExpectsNavigation: true,
			Optional:          true,
		},
		{
			Name:     "Wait for Form Page Ready",
			Action:   ActionWait,
			Selector: "input[aria-label='Project']",
		},
	}
}

// DefaultSuccessURLPatterns are substrings of post-login URLs that positively
// confirm an authenticated session.
func DefaultSuccessURLPatterns() []string {
	return []string{
		"app.smartsheet.com/b/form",
		"app.smartsheet.com/dashboards",
		"app.smartsheet.com/home",
	}
}
