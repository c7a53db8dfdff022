package domain

import "fmt"

// Report collects per-item outcomes of a stage. Stages never abort on a single
// bad item; they record the failure here and keep iterating. The orchestrator
// aggregates reports and decides overall severity.
type Report struct {
	Stage    StageKind
	Total    int
	Warnings []string
	Failures []*ItemError
}

// NewReport creates an empty report for a stage
func NewReport(stage StageKind) *Report {
	return &Report{Stage: stage}
}

// Item counts one processed item
func (r *Report) Item() {
	r.Total++
}

// Warn records a non-fatal warning
func (r *Report) Warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Fail records a per-item failure
func (r *Report) Fail(item string, err error) {
	r.Failures = append(r.Failures, &ItemError{Item: item, Err: err})
}

// FailureCount returns the number of failed items
func (r *Report) FailureCount() int {
	return len(r.Failures)
}

// OK reports whether the stage finished without any item failures
func (r *Report) OK() bool {
	return len(r.Failures) == 0
}
