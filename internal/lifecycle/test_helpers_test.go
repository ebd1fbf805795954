package lifecycle

import (
	"context"
	"fmt"
)

// TrackerCall records one call made to a MockTracker.
type TrackerCall struct {
	Method     string
	IssueKey   string
	Transition string
}

// MockTracker is an in-memory tracker for coordinator tests.
type MockTracker struct {
	// Statuses maps issue keys to the status returned by GetStatus.
	Statuses map[string]string
	// StatusErrs makes GetStatus fail for the given issue keys.
	StatusErrs map[string]error
	// TransitionErrs makes ApplyTransition fail for "issue/transition" pairs.
	TransitionErrs map[string]error

	// Calls records every call in order.
	Calls []TrackerCall
}

func (m *MockTracker) GetStatus(ctx context.Context, issueKey string) (string, error) {
	m.Calls = append(m.Calls, TrackerCall{Method: "GetStatus", IssueKey: issueKey})
	if err := m.StatusErrs[issueKey]; err != nil {
		return "", err
	}
	s, ok := m.Statuses[issueKey]
	if !ok {
		return "", fmt.Errorf("no status configured for %s", issueKey)
	}
	return s, nil
}

func (m *MockTracker) ApplyTransition(ctx context.Context, issueKey, transition string) error {
	m.Calls = append(m.Calls, TrackerCall{Method: "ApplyTransition", IssueKey: issueKey, Transition: transition})
	return m.TransitionErrs[issueKey+"/"+transition]
}

// Transitions returns the "issue/transition" pairs applied, in order.
func (m *MockTracker) Transitions() []string {
	var out []string
	for _, c := range m.Calls {
		if c.Method == "ApplyTransition" {
			out = append(out, c.IssueKey+"/"+c.Transition)
		}
	}
	return out
}

// MockCommentingTracker adds comment support to MockTracker.
type MockCommentingTracker struct {
	MockTracker
	Comments   map[string][]string
	CommentErr error
}

func (m *MockCommentingTracker) AddComment(ctx context.Context, issueKey, body string) error {
	m.Calls = append(m.Calls, TrackerCall{Method: "AddComment", IssueKey: issueKey})
	if m.CommentErr != nil {
		return m.CommentErr
	}
	if m.Comments == nil {
		m.Comments = make(map[string][]string)
	}
	m.Comments[issueKey] = append(m.Comments[issueKey], body)
	return nil
}
