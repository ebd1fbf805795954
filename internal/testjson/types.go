// Package testjson adapts go test -json output to suite lifecycle events.
//
// Each Go package in the stream is one suite. Events are buffered per package
// because go test interleaves packages that run in parallel; when a package's
// terminal event arrives its events are replayed in order:
//
//	package first seen      SuiteStarted(package, annotations)
//	run   (Test set)        TestStarted(test)
//	output with @issue      Annotate(test, keys...)
//	pass  (Test set)        TestFinished(test, success)
//	fail/skip (Test set)    TestFinished(test, failure)
//	pass/fail/skip (no Test) SuiteFinished
//
// Subtests keep their full path ("TestX/case") as the test ID.
package testjson

import "time"

// Action values emitted by go test -json.
const (
	ActionStart  = "start"
	ActionRun    = "run"
	ActionPass   = "pass"
	ActionFail   = "fail"
	ActionSkip   = "skip"
	ActionOutput = "output"
)

// TestEvent represents a single event from go test -json output.
type TestEvent struct {
	Time    time.Time `json:"Time"`
	Action  string    `json:"Action"` // start, run, pass, fail, skip, output, bench, pause, cont
	Package string    `json:"Package"`
	Test    string    `json:"Test"`
	Elapsed float64   `json:"Elapsed"`
	Output  string    `json:"Output"`
}

// IsTerminal reports whether the event ends a test or, with no Test, a package.
func (e TestEvent) IsTerminal() bool {
	switch e.Action {
	case ActionPass, ActionFail, ActionSkip:
		return true
	default:
		return false
	}
}

// ProcessFunc is called for each parsed event.
type ProcessFunc func(TestEvent)
