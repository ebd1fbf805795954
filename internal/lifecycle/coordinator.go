// Package lifecycle drives issue transitions from test-suite lifecycle events.
//
// The [Coordinator] is a small state machine fed by the test runner adapter:
//
//	AwaitingSuite --SuiteStarted--> Collecting --SuiteFinished--> Finished
//	                                   |  ^                          |
//	                                   +--+ TestStarted/Annotate/    |
//	                                        TestFinished             |
//	Finished --SuiteStarted--> Collecting <--------------------------+
//
// While collecting, every finished test contributes its outcome to each issue
// it references via the [Aggregator]. At suite finish the coordinator reads
// each issue's tracker status, resolves the transition sequence with the
// [workflow.Engine], and applies it in order.
//
// Calls out of order return [ErrInvalidState]. Tracker failures never abort a
// suite: they are recorded per issue in the [Report].
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"issueflow/internal/telemetry"
	"issueflow/internal/tracker"
	"issueflow/internal/workflow"
)

// ErrInvalidState is returned when a lifecycle signal arrives out of order.
var ErrInvalidState = errors.New("invalid lifecycle state")

// State is the coordinator's position in the suite lifecycle.
type State int

const (
	StateAwaitingSuite State = iota
	StateCollecting
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateAwaitingSuite:
		return "awaiting-suite"
	case StateCollecting:
		return "collecting"
	case StateFinished:
		return "finished"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ProgressCallback is invoked before each issue is processed at suite finish.
// issueIndex is 1-based.
type ProgressCallback func(issueIndex, totalIssues int, issueKey string)

// CommentOptions controls result comments posted after an issue is processed.
type CommentOptions struct {
	Enabled bool

	// PublicURL, when set, is linked from each comment.
	PublicURL string
}

// Coordinator turns suite lifecycle events into tracker transitions.
//
// A Coordinator owns its aggregation state and is not safe for concurrent use;
// events must arrive sequentially. Use [NewCoordinator] to create one.
type Coordinator struct {
	engine   *workflow.Engine
	tracker  tracker.Tracker
	logger   *slog.Logger
	progress ProgressCallback
	comments CommentOptions

	tracer  trace.Tracer
	applied metric.Int64Counter
	failed  metric.Int64Counter

	state       State
	suite       string
	runID       string
	annotations map[string][]string
	agg         *Aggregator
}

// NewCoordinator creates a coordinator that applies engine's transitions through t.
//
// Telemetry instruments come from the global OTel providers, which are no-ops
// unless [telemetry.Init] enabled them.
func NewCoordinator(engine *workflow.Engine, t tracker.Tracker) *Coordinator {
	meter := telemetry.Meter("issueflow/lifecycle")
	applied, err := meter.Int64Counter("issueflow.transitions.applied",
		metric.WithDescription("Tracker transitions applied"))
	if err != nil {
		applied = metricnoop.Int64Counter{}
	}
	failed, err := meter.Int64Counter("issueflow.transitions.failed",
		metric.WithDescription("Tracker transitions that failed"))
	if err != nil {
		failed = metricnoop.Int64Counter{}
	}

	return &Coordinator{
		engine:      engine,
		tracker:     t,
		logger:      slog.Default(),
		tracer:      telemetry.Tracer("issueflow/lifecycle"),
		applied:     applied,
		failed:      failed,
		state:       StateAwaitingSuite,
		annotations: make(map[string][]string),
		agg:         NewAggregator(),
	}
}

// SetLogger replaces the default logger.
func (c *Coordinator) SetLogger(l *slog.Logger) {
	if l != nil {
		c.logger = l
	}
}

// SetProgressCallback configures an optional per-issue progress callback.
func (c *Coordinator) SetProgressCallback(cb ProgressCallback) {
	c.progress = cb
}

// SetComments configures result comments. Comments are only posted by an
// active engine and only when the tracker implements [tracker.Commenter].
func (c *Coordinator) SetComments(opts CommentOptions) {
	c.comments = opts
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	return c.state
}

// Suite returns the name of the current (or last) suite.
func (c *Coordinator) Suite() string {
	return c.suite
}

func (c *Coordinator) requireCollecting(signal string) error {
	if c.state != StateCollecting {
		return fmt.Errorf("%w: %s while %s", ErrInvalidState, signal, c.state)
	}
	return nil
}

// SuiteStarted begins a new suite. annotations maps test IDs to the issue keys
// they reference; it is copied. Any aggregation left from a previous suite is
// discarded.
func (c *Coordinator) SuiteStarted(suite string, annotations map[string][]string) error {
	if c.state == StateCollecting {
		return fmt.Errorf("%w: suite %q started while suite %q is collecting", ErrInvalidState, suite, c.suite)
	}

	c.agg.Reset()
	c.annotations = make(map[string][]string, len(annotations))
	for testID, keys := range annotations {
		c.annotations[testID] = appendUnique(nil, keys...)
	}
	c.suite = suite
	c.runID = uuid.NewString()
	c.state = StateCollecting

	c.logger.Debug("suite started", "suite", suite, "run_id", c.runID, "annotated_tests", len(c.annotations))
	return nil
}

// TestStarted marks the start of a test.
func (c *Coordinator) TestStarted(testID string) error {
	if err := c.requireCollecting("test started"); err != nil {
		return err
	}
	c.logger.Debug("test started", "suite", c.suite, "test", testID)
	return nil
}

// Annotate adds issue keys to a test discovered while it runs. Keys must be
// attached before the test finishes to count toward aggregation.
func (c *Coordinator) Annotate(testID string, issueKeys ...string) error {
	if err := c.requireCollecting("annotate"); err != nil {
		return err
	}
	c.annotations[testID] = appendUnique(c.annotations[testID], issueKeys...)
	return nil
}

// TestFinished records the test's outcome against every issue it references.
// Tests without issue references are ignored.
func (c *Coordinator) TestFinished(testID string, outcome workflow.Outcome) error {
	if err := c.requireCollecting("test finished"); err != nil {
		return err
	}
	if !outcome.IsValid() {
		return fmt.Errorf("test %s: invalid outcome %q", testID, outcome)
	}

	keys := c.annotations[testID]
	for _, key := range keys {
		c.agg.Record(key, outcome)
	}
	if len(keys) > 0 {
		c.logger.Debug("test finished", "suite", c.suite, "test", testID, "outcome", outcome, "issues", keys)
	}
	return nil
}

// SuiteFinished ends the suite and updates the tracker.
//
// With an inactive engine no tracker call is made and the report lists the
// aggregated outcomes only. Otherwise, issue by issue in first-seen order, the
// status is read once, the transition sequence resolved, and each transition
// applied in order. A failed read skips the issue; a failed transition stops
// that issue's remaining transitions. Both are recorded in the report and
// processing continues with the next issue.
//
// The returned error is non-nil only for [ErrInvalidState].
func (c *Coordinator) SuiteFinished(ctx context.Context) (*Report, error) {
	if err := c.requireCollecting("suite finished"); err != nil {
		return nil, err
	}
	c.state = StateFinished

	aggregates := c.agg.Drain()
	report := &Report{
		Suite:  c.suite,
		RunID:  c.runID,
		Active: c.engine.Active(),
		Issues: make([]IssueResult, 0, len(aggregates)),
	}

	if !c.engine.Active() {
		for _, a := range aggregates {
			report.Issues = append(report.Issues, IssueResult{IssueKey: a.IssueKey, Outcome: a.Outcome, Tests: a.Tests})
		}
		c.logger.Debug("issue workflow inactive, skipping tracker updates", "suite", c.suite, "issues", len(aggregates))
		return report, nil
	}

	ctx, span := c.tracer.Start(ctx, "issueflow.suite_finished", trace.WithAttributes(
		attribute.String("suite", c.suite),
		attribute.String("run_id", c.runID),
		attribute.Int("issues", len(aggregates)),
	))
	defer span.End()

	for i, a := range aggregates {
		if c.progress != nil {
			c.progress(i+1, len(aggregates), a.IssueKey)
		}
		res := c.processIssue(ctx, a)
		report.Issues = append(report.Issues, res)

		if c.comments.Enabled && (res.Err == nil || res.Err.Phase != PhaseStatus) {
			if cerr := c.comment(ctx, res); cerr != nil {
				report.CommentErrors = append(report.CommentErrors, cerr)
			}
		}
	}

	c.logger.Info("suite finished",
		"suite", c.suite,
		"run_id", c.runID,
		"issues", len(report.Issues),
		"transitioned", report.Transitioned(),
		"errors", len(report.Errors()),
	)
	return report, nil
}

func (c *Coordinator) processIssue(ctx context.Context, a Aggregate) IssueResult {
	res := IssueResult{IssueKey: a.IssueKey, Outcome: a.Outcome, Tests: a.Tests}
	log := c.logger.With("suite", c.suite, "issue", a.IssueKey, "outcome", a.Outcome)

	ctx, span := c.tracer.Start(ctx, "issueflow.issue", trace.WithAttributes(
		attribute.String("issue.key", a.IssueKey),
		attribute.String("outcome", string(a.Outcome)),
	))
	defer span.End()

	status, err := c.tracker.GetStatus(ctx, a.IssueKey)
	if err != nil {
		res.Err = &IssueError{IssueKey: a.IssueKey, Phase: PhaseStatus, Err: err}
		span.RecordError(err)
		log.Warn("failed to read issue status", "error", err)
		return res
	}
	res.Status = status
	res.Planned = c.engine.Resolve(status, a.Outcome)
	span.SetAttributes(attribute.String("issue.status", status))

	if len(res.Planned) == 0 {
		log.Debug("no transition for status", "status", status)
		return res
	}

	for _, name := range res.Planned {
		if err := c.tracker.ApplyTransition(ctx, a.IssueKey, name); err != nil {
			res.Err = &IssueError{IssueKey: a.IssueKey, Phase: PhaseTransition, Transition: name, Err: err}
			c.failed.Add(ctx, 1)
			span.RecordError(err)
			log.Warn("transition failed, skipping remaining transitions",
				"status", status, "transition", name, "remaining", len(res.Planned)-len(res.Applied)-1, "error", err)
			return res
		}
		c.applied.Add(ctx, 1)
		res.Applied = append(res.Applied, name)
		log.Info("applied transition", "status", status, "transition", name)
	}
	return res
}

func (c *Coordinator) comment(ctx context.Context, res IssueResult) *IssueError {
	commenter, ok := c.tracker.(tracker.Commenter)
	if !ok {
		return nil
	}
	if err := commenter.AddComment(ctx, res.IssueKey, c.commentBody(res)); err != nil {
		c.logger.Warn("failed to post result comment", "issue", res.IssueKey, "error", err)
		return &IssueError{IssueKey: res.IssueKey, Phase: PhaseComment, Err: err}
	}
	return nil
}

func (c *Coordinator) commentBody(res IssueResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Automated tests for %s in suite %s finished with outcome: %s (%d test result(s)).\n",
		res.IssueKey, c.suite, res.Outcome, res.Tests)
	if len(res.Applied) > 0 {
		fmt.Fprintf(&b, "Transitions applied: %s.\n", strings.Join(res.Applied, " -> "))
	}
	if c.comments.PublicURL != "" {
		fmt.Fprintf(&b, "Report: %s\n", c.comments.PublicURL)
	}
	fmt.Fprintf(&b, "Run: %s", c.runID)
	return b.String()
}

func appendUnique(dst []string, keys ...string) []string {
	for _, k := range keys {
		if k == "" {
			continue
		}
		dup := false
		for _, existing := range dst {
			if existing == k {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, k)
		}
	}
	return dst
}
