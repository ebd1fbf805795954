package lifecycle

import (
	"errors"
	"fmt"

	"issueflow/internal/workflow"
)

// Phase names the step of issue processing where an error occurred.
type Phase string

const (
	PhaseStatus     Phase = "status"
	PhaseTransition Phase = "transition"
	PhaseComment    Phase = "comment"
)

// IssueError records a tracker failure for one issue.
type IssueError struct {
	IssueKey   string
	Phase      Phase
	Transition string
	Err        error
}

func (e *IssueError) Error() string {
	if e.Transition != "" {
		return fmt.Sprintf("%s: %s %q: %v", e.IssueKey, e.Phase, e.Transition, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.IssueKey, e.Phase, e.Err)
}

func (e *IssueError) Unwrap() error {
	return e.Err
}

// IssueResult describes what happened to one issue at suite finish.
type IssueResult struct {
	IssueKey string
	Outcome  workflow.Outcome
	Tests    int

	// Status is the tracker status read before any transition. Empty when the
	// read failed.
	Status string

	// Planned is the resolved transition sequence; Applied is the prefix of it
	// that the tracker accepted.
	Planned []string
	Applied []string

	Err *IssueError
}

// Report summarizes one finished suite.
type Report struct {
	Suite  string
	RunID  string
	Active bool
	Issues []IssueResult

	// CommentErrors holds comment failures, which never affect Issues[i].Err.
	CommentErrors []*IssueError
}

// Errors returns every recorded issue error, transition and status failures
// first, then comment failures.
func (r *Report) Errors() []*IssueError {
	var errs []*IssueError
	for _, res := range r.Issues {
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	return append(errs, r.CommentErrors...)
}

// Err joins every recorded issue error, or returns nil.
func (r *Report) Err() error {
	errs := r.Errors()
	if len(errs) == 0 {
		return nil
	}
	joined := make([]error, len(errs))
	for i, e := range errs {
		joined[i] = e
	}
	return errors.Join(joined...)
}

// Transitioned returns the number of issues with at least one applied transition.
func (r *Report) Transitioned() int {
	n := 0
	for _, res := range r.Issues {
		if len(res.Applied) > 0 {
			n++
		}
	}
	return n
}
