package bot

// RowError ties a failure message to the input index of the row that caused
// it. Index -1 marks a run-level failure that happened before any row was
// attempted.
type RowError struct {
	Index   int    `json:"index"`
	Message string `json:"message"`
}

// Result is the aggregate outcome of one automation run. OK is true only
// when every input row was submitted; a mixed run keeps the full
// submitted/errors partition so partial success is never discarded.
type Result struct {
	OK        bool       `json:"ok"`
	Submitted []int      `json:"submitted"`
	Errors    []RowError `json:"errors"`
	// Aborted lists rows never attempted because the run was cancelled or
	// the browser session was lost part way through.
	Aborted []int `json:"aborted,omitempty"`
}

func emptyResult() Result {
	return Result{Submitted: []int{}, Errors: []RowError{}}
}

func fatalResult(message string) Result {
	return Result{
		Submitted: []int{},
		Errors:    []RowError{{Index: -1, Message: message}},
	}
}

// Progress is a one-way notification emitted after each row attempt.
type Progress struct {
	Percent float64 `json:"percent"`
	Current int     `json:"current"`
	Total   int     `json:"total"`
	Message string  `json:"message"`
}

// ProgressFunc observes run progress. It is called synchronously between
// rows and must not block.
type ProgressFunc func(Progress)

// rowOutcome is one step of the fold Run performs over the input rows.
type rowOutcome struct {
	index   int
	err     error
	aborted bool
}

// collect folds per-row outcomes into a Result, preserving input order.
func collect(total int, outcomes []rowOutcome) Result {
	result := emptyResult()
	for _, o := range outcomes {
		switch {
		case o.aborted:
			result.Aborted = append(result.Aborted, o.index)
		case o.err != nil:
			result.Errors = append(result.Errors, RowError{Index: o.index, Message: o.err.Error()})
		default:
			result.Submitted = append(result.Submitted, o.index)
		}
	}
	result.OK = len(result.Submitted) == total
	return result
}
