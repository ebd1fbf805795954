package lifecycle

import "issueflow/internal/workflow"

// Aggregate is the merged outcome of every test in a suite that references
// one issue.
type Aggregate struct {
	IssueKey string
	Outcome  workflow.Outcome

	// Tests is the number of (test, issue) records merged into Outcome.
	Tests int
}

// Aggregator accumulates per-issue outcomes for a single suite.
//
// Failure dominates: once any test referencing an issue fails, the issue's
// aggregate stays Failure for the rest of the suite. An Aggregator is not
// safe for concurrent use.
type Aggregator struct {
	records map[string]*Aggregate
	order   []string
}

// NewAggregator returns an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{records: make(map[string]*Aggregate)}
}

// Reset discards every record.
func (a *Aggregator) Reset() {
	a.records = make(map[string]*Aggregate)
	a.order = nil
}

// Record merges one test outcome into the aggregate for issueKey.
func (a *Aggregator) Record(issueKey string, outcome workflow.Outcome) {
	rec, ok := a.records[issueKey]
	if !ok {
		a.records[issueKey] = &Aggregate{IssueKey: issueKey, Outcome: outcome, Tests: 1}
		a.order = append(a.order, issueKey)
		return
	}
	rec.Outcome = rec.Outcome.Merge(outcome)
	rec.Tests++
}

// Len returns the number of distinct issues recorded.
func (a *Aggregator) Len() int {
	return len(a.order)
}

// Drain returns every aggregate in first-recorded order and empties the
// aggregator. Call it once per suite, after the last test has finished.
func (a *Aggregator) Drain() []Aggregate {
	out := make([]Aggregate, 0, len(a.order))
	for _, key := range a.order {
		out = append(out, *a.records[key])
	}
	a.Reset()
	return out
}
