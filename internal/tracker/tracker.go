// Package tracker defines the error contract shared by issue tracker backends.
//
// Backends ([jira.Client], [filetracker.Store]) wrap these sentinels so callers
// can classify failures with [errors.Is] without depending on a concrete
// backend. The package also provides [DryRun], a wrapper that passes status
// reads through and turns every mutation into a logged no-op.
package tracker

import (
	"context"
	"errors"
	"log/slog"
)

// Sentinel errors for tracker operations.
var (
	// ErrTrackerUnavailable indicates the tracker could not be reached or
	// answered with a server-side failure.
	ErrTrackerUnavailable = errors.New("tracker unavailable")

	// ErrIssueNotFound indicates the issue key is unknown to the tracker.
	ErrIssueNotFound = errors.New("issue not found")

	// ErrTransitionNotPermitted indicates the named transition is not valid
	// for the issue in its current status.
	ErrTransitionNotPermitted = errors.New("transition not permitted")
)

// Tracker is the issue tracker capability the workflow coordinator consumes.
//
// GetStatus returns the issue's current status name. ApplyTransition performs
// the named transition. Implementations own retries, timeouts and auth.
type Tracker interface {
	GetStatus(ctx context.Context, issueKey string) (string, error)
	ApplyTransition(ctx context.Context, issueKey, transition string) error
}

// Commenter is optionally implemented by a [Tracker] that supports comments.
type Commenter interface {
	AddComment(ctx context.Context, issueKey, body string) error
}

// DryRunTracker reads through to an underlying tracker and records, but never
// performs, transitions and comments.
type DryRunTracker struct {
	inner  Tracker
	logger *slog.Logger

	// Transitions records the (issue, transition) pairs that would have been applied.
	Transitions [][2]string
}

// DryRun wraps t so that no tracker-mutating call reaches it.
func DryRun(t Tracker, logger *slog.Logger) *DryRunTracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &DryRunTracker{inner: t, logger: logger}
}

// GetStatus delegates to the wrapped tracker.
func (d *DryRunTracker) GetStatus(ctx context.Context, issueKey string) (string, error) {
	return d.inner.GetStatus(ctx, issueKey)
}

// ApplyTransition logs the transition and records it without applying it.
func (d *DryRunTracker) ApplyTransition(_ context.Context, issueKey, transition string) error {
	d.logger.Info("dry run: skipping transition", "issue", issueKey, "transition", transition)
	d.Transitions = append(d.Transitions, [2]string{issueKey, transition})
	return nil
}

// AddComment logs the comment without posting it.
func (d *DryRunTracker) AddComment(_ context.Context, issueKey, body string) error {
	d.logger.Info("dry run: skipping comment", "issue", issueKey, "length", len(body))
	return nil
}
