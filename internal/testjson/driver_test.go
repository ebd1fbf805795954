package testjson

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"issueflow/internal/lifecycle"
	"issueflow/internal/workflow"
)

// recordingLifecycle records lifecycle calls as strings.
type recordingLifecycle struct {
	calls       []string
	annotations map[string]map[string][]string
}

func (r *recordingLifecycle) SuiteStarted(suite string, annotations map[string][]string) error {
	r.calls = append(r.calls, "suite-start "+suite)
	if r.annotations == nil {
		r.annotations = make(map[string]map[string][]string)
	}
	r.annotations[suite] = annotations
	return nil
}

func (r *recordingLifecycle) TestStarted(testID string) error {
	r.calls = append(r.calls, "test-start "+testID)
	return nil
}

func (r *recordingLifecycle) Annotate(testID string, keys ...string) error {
	r.calls = append(r.calls, fmt.Sprintf("annotate %s %v", testID, keys))
	return nil
}

func (r *recordingLifecycle) TestFinished(testID string, outcome workflow.Outcome) error {
	r.calls = append(r.calls, fmt.Sprintf("test-finish %s %s", testID, outcome))
	return nil
}

func (r *recordingLifecycle) SuiteFinished(ctx context.Context) (*lifecycle.Report, error) {
	r.calls = append(r.calls, "suite-finish")
	return &lifecycle.Report{}, nil
}

type staticAnnotations map[string][]string

func (s staticAnnotations) ForSuite(string) map[string][]string {
	return s
}

func events(lines ...string) *strings.Reader {
	return strings.NewReader(strings.Join(lines, "\n") + "\n")
}

func TestDriver_SinglePackage(t *testing.T) {
	rec := &recordingLifecycle{}
	d := NewDriver(rec, staticAnnotations{"TestA": {"P-1"}})

	res, err := d.Run(context.Background(), events(
		`{"Action":"start","Package":"pkg/a"}`,
		`{"Action":"run","Package":"pkg/a","Test":"TestA"}`,
		`{"Action":"output","Package":"pkg/a","Test":"TestA","Output":"    a_test.go:9: @issue P-2\n"}`,
		`{"Action":"pass","Package":"pkg/a","Test":"TestA"}`,
		`{"Action":"run","Package":"pkg/a","Test":"TestB"}`,
		`{"Action":"skip","Package":"pkg/a","Test":"TestB"}`,
		`{"Action":"output","Package":"pkg/a","Output":"ok  \tpkg/a\t0.01s\n"}`,
		`{"Action":"pass","Package":"pkg/a"}`,
	))

	require.NoError(t, err)
	assert.Len(t, res.Reports, 1)
	assert.Empty(t, res.Incomplete)
	assert.Equal(t, []string{
		"suite-start pkg/a",
		"test-start TestA",
		"annotate TestA [P-2]",
		"test-finish TestA success",
		"test-start TestB",
		"test-finish TestB failure",
		"suite-finish",
	}, rec.calls)
	assert.Equal(t, map[string][]string{"TestA": {"P-1"}}, rec.annotations["pkg/a"])
}

func TestDriver_InterleavedPackagesReplayedPerPackage(t *testing.T) {
	rec := &recordingLifecycle{}
	d := NewDriver(rec, nil)

	res, err := d.Run(context.Background(), events(
		`{"Action":"run","Package":"pkg/a","Test":"TestA"}`,
		`{"Action":"run","Package":"pkg/b","Test":"TestB"}`,
		`{"Action":"fail","Package":"pkg/b","Test":"TestB"}`,
		`{"Action":"fail","Package":"pkg/b"}`,
		`{"Action":"pass","Package":"pkg/a","Test":"TestA"}`,
		`{"Action":"pass","Package":"pkg/a"}`,
	))

	require.NoError(t, err)
	assert.Len(t, res.Reports, 2)
	assert.Equal(t, []string{
		"suite-start pkg/b",
		"test-start TestB",
		"test-finish TestB failure",
		"suite-finish",
		"suite-start pkg/a",
		"test-start TestA",
		"test-finish TestA success",
		"suite-finish",
	}, rec.calls)
}

func TestDriver_IncompletePackageDiscarded(t *testing.T) {
	rec := &recordingLifecycle{}
	d := NewDriver(rec, nil)

	res, err := d.Run(context.Background(), events(
		`{"Action":"run","Package":"pkg/a","Test":"TestA"}`,
		`{"Action":"pass","Package":"pkg/a","Test":"TestA"}`,
		`not json`,
	))

	require.NoError(t, err)
	assert.Empty(t, rec.calls)
	assert.Equal(t, []string{"pkg/a"}, res.Incomplete)
	assert.Equal(t, 1, res.Malformed)
}

func TestDriver_SuiteCallback(t *testing.T) {
	d := NewDriver(&recordingLifecycle{}, nil)
	var n int
	d.SetSuiteCallback(func(*lifecycle.Report) { n++ })

	_, err := d.Run(context.Background(), events(
		`{"Action":"skip","Package":"pkg/a"}`,
		`{"Action":"pass","Package":"pkg/b"}`,
	))

	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

// fakeTracker is an in-memory tracker with fixed statuses.
type fakeTracker struct {
	statuses map[string]string
	applied  []string
}

func (f *fakeTracker) GetStatus(ctx context.Context, issueKey string) (string, error) {
	s, ok := f.statuses[issueKey]
	if !ok {
		return "", fmt.Errorf("unknown issue %s", issueKey)
	}
	return s, nil
}

func (f *fakeTracker) ApplyTransition(ctx context.Context, issueKey, transition string) error {
	f.applied = append(f.applied, issueKey+"/"+transition)
	return nil
}

func TestDriver_EndToEndWithCoordinator(t *testing.T) {
	engine, err := workflow.Load(workflow.BundledSource, "true")
	require.NoError(t, err)
	tr := &fakeTracker{statuses: map[string]string{
		"MYPROJECT-123": "Resolved",
		"MYPROJECT-456": "In Progress",
	}}
	coord := lifecycle.NewCoordinator(engine, tr)

	d := NewDriver(coord, staticAnnotations{
		"TestInvoiceTax":      {"MYPROJECT-123", "MYPROJECT-456"},
		"TestInvoiceRounding": {"MYPROJECT-123"},
	})

	res, err := d.Run(context.Background(), events(
		`{"Action":"run","Package":"billing","Test":"TestInvoiceTax"}`,
		`{"Action":"pass","Package":"billing","Test":"TestInvoiceTax"}`,
		`{"Action":"run","Package":"billing","Test":"TestInvoiceRounding"}`,
		`{"Action":"fail","Package":"billing","Test":"TestInvoiceRounding"}`,
		`{"Action":"fail","Package":"billing"}`,
	))

	require.NoError(t, err)
	require.Len(t, res.Reports, 1)
	assert.Equal(t, []string{
		"MYPROJECT-123/Reopen Issue",
		"MYPROJECT-456/Stop Progress",
		"MYPROJECT-456/Resolve Issue",
	}, tr.applied)
	assert.Equal(t, "billing", res.Reports[0].Suite)
}

func TestDriver_InactiveEngineEndToEnd(t *testing.T) {
	engine, err := workflow.Load(workflow.BundledSource, "")
	require.NoError(t, err)
	tr := &fakeTracker{statuses: map[string]string{"MYPROJECT-123": "Open"}}
	d := NewDriver(lifecycle.NewCoordinator(engine, tr), staticAnnotations{"TestA": {"MYPROJECT-123"}})

	_, err = d.Run(context.Background(), events(
		`{"Action":"pass","Package":"p","Test":"TestA"}`,
		`{"Action":"pass","Package":"p"}`,
	))

	require.NoError(t, err)
	assert.Empty(t, tr.applied)
}

func TestDriver_MarkerWithoutValidKeysIsLogged(t *testing.T) {
	var logs bytes.Buffer
	rec := &recordingLifecycle{}
	d := NewDriver(rec, nil)
	d.SetLogger(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})))

	_, err := d.Run(context.Background(), events(
		`{"Action":"run","Package":"pkg/a","Test":"TestA"}`,
		`{"Action":"output","Package":"pkg/a","Test":"TestA","Output":"    a_test.go:9: @issue proj-2\n"}`,
		`{"Action":"pass","Package":"pkg/a","Test":"TestA"}`,
		`{"Action":"pass","Package":"pkg/a"}`,
	))

	require.NoError(t, err)
	assert.NotContains(t, strings.Join(rec.calls, "\n"), "annotate")
	assert.Contains(t, logs.String(), "issue marker without valid issue keys")
	assert.Contains(t, logs.String(), "test=TestA")
}
