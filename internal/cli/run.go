package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"issueflow/internal/lifecycle"
	"issueflow/internal/output"
	"issueflow/internal/testjson"
	"issueflow/internal/tracker"
)

func newRunCommand(app *App) *cobra.Command {
	var (
		dryRun bool
		active string
		strict bool
	)

	cmd := &cobra.Command{
		Use:   "run [file]",
		Short: "Apply issue transitions from go test -json output",
		Long: `Read go test -json output from a file (or stdin), aggregate test outcomes
per referenced issue, and apply the configured transitions to each issue.

Each Go package is treated as one suite and processed as soon as it finishes.
Tests reference issues through the annotations file (annotations.path) or by
logging a marker such as t.Log("@issue MYPROJECT-123").

Example:
  go test -json ./... | issueflow run
  ISSUEFLOW_WORKFLOW_ACTIVE=true issueflow run results.json
  issueflow run --active=true --dry-run results.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			ctx := cmd.Context()
			cfg := app.Config
			logger := app.logger()

			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					app.Printer.Error("cannot open test results: %v", err)
					return NewExitError(exitFailure)
				}
				defer f.Close()
				in = f
			}

			activation := cfg.Workflow.Active
			if cmd.Flags().Changed("active") {
				activation = active
			}

			engine, err := app.rulesLoader().Load(cfg.Workflow.RulesPath, activation)
			if err != nil {
				app.Printer.Error("%v", err)
				return NewExitError(exitFailure)
			}

			manifest, err := app.loadAnnotations()
			if err != nil {
				app.Printer.Error("%v", err)
				return NewExitError(exitFailure)
			}

			var t tracker.Tracker = app.Tracker
			var dry *tracker.DryRunTracker
			if dryRun {
				dry = tracker.DryRun(app.Tracker, logger)
				t = dry
				if manifest != nil {
					app.Printer.Info("annotated issues: %s", strings.Join(manifest.Issues(), ", "))
				}
			}

			coord := lifecycle.NewCoordinator(engine, t)
			coord.SetLogger(logger)
			coord.SetComments(lifecycle.CommentOptions{
				Enabled:   cfg.Report.Comments,
				PublicURL: cfg.Report.PublicURL,
			})

			driver := testjson.NewDriver(coord, manifest)
			driver.SetLogger(logger)
			driver.SetIssuePrefix(cfg.Annotations.IssuePrefix)
			driver.SetSuiteCallback(app.Printer.Report)

			if !engine.Active() {
				logger.Info("issue workflow inactive; set workflow.active to \"true\" to update the tracker")
			}

			logger.Debug("reading test results", "source", readerName(in), "rules", app.rulesSourceName())
			res, err := driver.Run(ctx, in)
			if dry != nil {
				for _, tr := range dry.Transitions {
					app.Printer.Info("would apply %q to %s", tr[1], tr[0])
				}
			}
			if res != nil {
				app.Printer.Summary(summarize(res, dryRun))
			}
			if err != nil {
				app.Printer.Error("%v", err)
				return NewExitError(exitFailure)
			}

			if strict && hasIssueErrors(res) {
				return NewExitError(exitIssueErrors)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Read issue statuses and resolve transitions without applying them")
	cmd.Flags().StringVar(&active, "active", "", `Override workflow.active; only "true" enables tracker updates`)
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit with status 2 when any tracker update fails")
	return cmd
}

func summarize(res *testjson.Result, dryRun bool) output.Summary {
	s := output.Summary{
		Suites:     len(res.Reports),
		Malformed:  res.Malformed,
		Incomplete: res.Incomplete,
		DryRun:     dryRun,
	}
	for _, r := range res.Reports {
		s.Issues += len(r.Issues)
		s.Transitioned += r.Transitioned()
		s.Errors += len(r.Errors())
	}
	return s
}

func hasIssueErrors(res *testjson.Result) bool {
	for _, r := range res.Reports {
		if r.Err() != nil {
			return true
		}
	}
	return false
}

// readerName is used in log lines for the input source.
func readerName(r io.Reader) string {
	if f, ok := r.(*os.File); ok {
		return f.Name()
	}
	return fmt.Sprintf("%T", r)
}
