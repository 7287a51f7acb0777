package harness

import "github.com/roach88/rematch/internal/ir"

// MatchRow is a persisted match with instances named by fixture key.
type MatchRow struct {
	From  string  `json:"from"`
	To    string  `json:"to"`
	Type  string  `json:"type"`
	Score float64 `json:"score"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall scenario success.
	// True if every assertion holds.
	Pass bool `json:"pass"`

	Status      ir.TaskStatus `json:"status"`
	Progress    int           `json:"progress"`
	ProgressMax int           `json:"progress_max"` // -1 when the task was never claimed

	// Matches are sorted by from, to, type.
	Matches []MatchRow `json:"matches"`

	// RunError is the error RunMatch returned, empty on success.
	RunError string `json:"run_error,omitempty"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Matches: []MatchRow{},
		Errors:  []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
