package tracker

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTracker struct {
	status      string
	transitions []string
}

func (r *recordingTracker) GetStatus(ctx context.Context, issueKey string) (string, error) {
	if r.status == "" {
		return "", ErrIssueNotFound
	}
	return r.status, nil
}

func (r *recordingTracker) ApplyTransition(ctx context.Context, issueKey, transition string) error {
	r.transitions = append(r.transitions, transition)
	return nil
}

func TestDryRun_ReadsThrough(t *testing.T) {
	inner := &recordingTracker{status: "Open"}
	d := DryRun(inner, nil)

	status, err := d.GetStatus(context.Background(), "PROJ-1")

	require.NoError(t, err)
	assert.Equal(t, "Open", status)
}

func TestDryRun_ReadErrorsPropagate(t *testing.T) {
	d := DryRun(&recordingTracker{}, nil)

	_, err := d.GetStatus(context.Background(), "PROJ-1")

	assert.True(t, errors.Is(err, ErrIssueNotFound))
}

func TestDryRun_NeverMutates(t *testing.T) {
	var buf bytes.Buffer
	inner := &recordingTracker{status: "In Progress"}
	d := DryRun(inner, slog.New(slog.NewTextHandler(&buf, nil)))
	ctx := context.Background()

	require.NoError(t, d.ApplyTransition(ctx, "PROJ-1", "Stop Progress"))
	require.NoError(t, d.ApplyTransition(ctx, "PROJ-1", "Resolve Issue"))
	require.NoError(t, d.AddComment(ctx, "PROJ-1", "hello"))

	assert.Empty(t, inner.transitions)
	assert.Equal(t, [][2]string{{"PROJ-1", "Stop Progress"}, {"PROJ-1", "Resolve Issue"}}, d.Transitions)
	assert.Contains(t, buf.String(), "dry run: skipping transition")
	assert.Contains(t, buf.String(), "dry run: skipping comment")
}
