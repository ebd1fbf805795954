package testjson

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"issueflow/internal/lifecycle"
	"issueflow/internal/workflow"
)

// Lifecycle receives suite lifecycle events. It is implemented by
// [lifecycle.Coordinator].
type Lifecycle interface {
	SuiteStarted(suite string, annotations map[string][]string) error
	TestStarted(testID string) error
	Annotate(testID string, issueKeys ...string) error
	TestFinished(testID string, outcome workflow.Outcome) error
	SuiteFinished(ctx context.Context) (*lifecycle.Report, error)
}

// Annotations supplies the static test-to-issue mapping for a suite.
type Annotations interface {
	ForSuite(suite string) map[string][]string
}

// SuiteCallback is invoked after each suite finishes.
type SuiteCallback func(report *lifecycle.Report)

// Result summarizes a driven stream.
type Result struct {
	Reports []*lifecycle.Report

	// Malformed counts lines that were not valid test events.
	Malformed int

	// Incomplete lists packages whose terminal event never arrived. Their
	// events are discarded without touching the tracker.
	Incomplete []string
}

// Driver feeds a go test -json stream to a [Lifecycle].
type Driver struct {
	parser      *Parser
	lc          Lifecycle
	annotations Annotations
	issuePrefix string
	logger      *slog.Logger
	onSuite     SuiteCallback

	pending map[string][]TestEvent
	order   []string
	reports []*lifecycle.Report
	err     error
}

// NewDriver creates a driver for lc. annotations may be nil.
func NewDriver(lc Lifecycle, annotations Annotations) *Driver {
	return &Driver{
		parser:      NewParser(),
		lc:          lc,
		annotations: annotations,
		logger:      slog.Default(),
	}
}

// SetLogger replaces the default logger.
func (d *Driver) SetLogger(l *slog.Logger) {
	if l != nil {
		d.logger = l
	}
}

// SetIssuePrefix sets the prefix used to qualify bare #123 references in
// test output.
func (d *Driver) SetIssuePrefix(prefix string) {
	d.issuePrefix = prefix
}

// SetSuiteCallback configures a callback invoked after each suite finishes.
func (d *Driver) SetSuiteCallback(cb SuiteCallback) {
	d.onSuite = cb
}

// Run reads the stream to completion, finishing each suite as its package
// completes. Tracker failures are reported per issue in each report; Run only
// fails on read errors, cancellation or lifecycle misuse.
func (d *Driver) Run(ctx context.Context, r io.Reader) (*Result, error) {
	d.pending = make(map[string][]TestEvent)
	d.order = nil
	d.reports = nil
	d.err = nil

	malformed, err := d.parser.Stream(ctx, r, func(e TestEvent) {
		if d.err != nil {
			return
		}
		d.handle(ctx, e)
	})

	res := &Result{Reports: d.reports, Malformed: malformed}
	if malformed > 0 {
		d.logger.Warn("skipped malformed test output lines", "count", malformed)
	}
	if err != nil {
		return res, err
	}
	if d.err != nil {
		return res, d.err
	}

	for _, pkg := range d.order {
		if _, ok := d.pending[pkg]; ok {
			res.Incomplete = append(res.Incomplete, pkg)
			d.logger.Warn("package did not finish, discarding its results", "package", pkg)
		}
	}
	return res, nil
}

func (d *Driver) handle(ctx context.Context, e TestEvent) {
	if e.Package == "" {
		return
	}
	if _, ok := d.pending[e.Package]; !ok {
		d.order = append(d.order, e.Package)
	}
	d.pending[e.Package] = append(d.pending[e.Package], e)

	if e.Test == "" && e.IsTerminal() {
		events := d.pending[e.Package]
		delete(d.pending, e.Package)
		if err := d.replay(ctx, e.Package, events); err != nil {
			d.err = fmt.Errorf("package %s: %w", e.Package, err)
		}
	}
}

// replay drives one complete package through the lifecycle.
func (d *Driver) replay(ctx context.Context, pkg string, events []TestEvent) error {
	var annotations map[string][]string
	if d.annotations != nil {
		annotations = d.annotations.ForSuite(pkg)
	}
	if err := d.lc.SuiteStarted(pkg, annotations); err != nil {
		return err
	}

	for _, e := range events {
		if e.Test == "" {
			continue
		}
		switch e.Action {
		case ActionRun:
			if err := d.lc.TestStarted(e.Test); err != nil {
				return err
			}
		case ActionOutput:
			keys := ExtractIssueKeys(e.Output, d.issuePrefix)
			if len(keys) == 0 {
				if HasIssueMarker(e.Output) {
					d.logger.Debug("issue marker without valid issue keys",
						"package", pkg, "test", e.Test, "output", strings.TrimSpace(e.Output))
				}
				continue
			}
			if err := d.lc.Annotate(e.Test, keys...); err != nil {
				return err
			}
		case ActionPass, ActionFail, ActionSkip:
			if err := d.lc.TestFinished(e.Test, workflow.OutcomeFromResult(e.Action)); err != nil {
				return err
			}
		}
	}

	report, err := d.lc.SuiteFinished(ctx)
	if err != nil {
		return err
	}
	d.reports = append(d.reports, report)
	if d.onSuite != nil {
		d.onSuite(report)
	}
	return nil
}
