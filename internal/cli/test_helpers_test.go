package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"issueflow/internal/config"
	"issueflow/internal/output"
	"issueflow/internal/tracker"
)

// MockTracker is an in-memory tracker for command tests.
type MockTracker struct {
	// Statuses maps issue keys to their status. Missing keys are not found.
	Statuses map[string]string
	// Applied records "issue/transition" pairs in order.
	Applied []string
	// Comments records "issue: body" entries in order.
	Comments []string
	// Reads counts GetStatus calls.
	Reads int
	// FailTransitions rejects every transition when set.
	FailTransitions bool
}

func (m *MockTracker) GetStatus(ctx context.Context, issueKey string) (string, error) {
	m.Reads++
	s, ok := m.Statuses[issueKey]
	if !ok {
		return "", tracker.ErrIssueNotFound
	}
	return s, nil
}

func (m *MockTracker) ApplyTransition(ctx context.Context, issueKey, transition string) error {
	if m.FailTransitions {
		return tracker.ErrTransitionNotPermitted
	}
	m.Applied = append(m.Applied, issueKey+"/"+transition)
	return nil
}

func (m *MockTracker) AddComment(ctx context.Context, issueKey, body string) error {
	m.Comments = append(m.Comments, issueKey+": "+body)
	return nil
}

// newTestApp builds an App with a plain printer writing to the returned buffer.
func newTestApp(cfg *config.Config, tr *MockTracker) (*App, *bytes.Buffer) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	buf := &bytes.Buffer{}
	return &App{
		Config:  cfg,
		Printer: output.NewPlainPrinter(buf),
		Tracker: tr,
	}, buf
}

// execute runs the root command with args and stdin.
func execute(app *App, stdin string, args ...string) error {
	rootCmd := NewRootCommand(app)
	outBuf := &bytes.Buffer{}
	rootCmd.SetOut(outBuf)
	rootCmd.SetErr(outBuf)
	rootCmd.SetIn(bytes.NewBufferString(stdin))
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

// findCommand returns the named subcommand of the root command.
func findCommand(app *App, name string) *cobra.Command {
	for _, c := range NewRootCommand(app).Commands() {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

// writeTestFile writes content to name inside a temporary directory.
func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}
