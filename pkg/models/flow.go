package models

import (
	"time"
)

// Flow is a named snapshot of a full graph. It is never mutated after it is
// saved.
type Flow struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Graph     Graph     `json:"graph"`
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Clone returns a deep copy of the flow.
func (f *Flow) Clone() *Flow {
	out := *f
	out.Graph = f.Graph.Clone()
	return &out
}

// Status is the outcome of a run or of a single step.
type Status string

const (
	StatusPassed  Status = "Passed"
	StatusFailed  Status = "Failed"
	StatusSkipped Status = "Skipped"
)

// StepResult is the per-step breakdown of a run.
type StepResult struct {
	Name     string `json:"name"`
	Status   Status `json:"status"`
	Duration string `json:"duration"`
}

// ErrorDetail describes one failure found in a run.
type ErrorDetail struct {
	Keyword string `json:"keyword"`
	Message string `json:"message"`
	Line    *int   `json:"line,omitempty"`
}

// Analysis summarizes a run's step outcomes.
type Analysis struct {
	Passed   int           `json:"passed"`
	Failed   int           `json:"failed"`
	Skipped  int           `json:"skipped"`
	PassRate float64       `json:"pass_rate"`
	Errors   []ErrorDetail `json:"errors,omitempty"`
}

// Result is the recorded outcome of one execution attempt. Immutable once
// recorded.
type Result struct {
	ID        string       `json:"id"`
	TestName  string       `json:"test_name"`
	Status    Status       `json:"status"`
	Timestamp time.Time    `json:"timestamp"`
	Duration  string       `json:"duration"`
	Steps     []StepResult `json:"steps"`
	Log       string       `json:"log,omitempty"`
	Analysis  *Analysis    `json:"analysis,omitempty"`
	TestFile  string       `json:"test_file,omitempty"`
}

// Clone returns a deep copy of the result.
func (r *Result) Clone() *Result {
	out := *r
	out.Steps = append([]StepResult(nil), r.Steps...)
	if r.Analysis != nil {
		a := *r.Analysis
		a.Errors = nil
		for _, e := range r.Analysis.Errors {
			if e.Line != nil {
				line := *e.Line
				e.Line = &line
			}
			a.Errors = append(a.Errors, e)
		}
		out.Analysis = &a
	}
	return &out
}

// ResultStats aggregates the result history for the reports dashboard.
type ResultStats struct {
	Total           int     `json:"total"`
	Passed          int     `json:"passed"`
	Failed          int     `json:"failed"`
	Skipped         int     `json:"skipped"`
	SuccessRate     float64 `json:"success_rate"`
	AverageDuration float64 `json:"average_duration_seconds"`
}
