// Package cli implements the issueflow command-line interface.
//
// Commands are built with cobra around an [App] dependency container so tests
// can execute them against mock trackers and buffered printers. Failures are
// signalled with [ExitError] rather than os.Exit, and only [Execute] exits the
// process.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"issueflow/internal/config"
	"issueflow/internal/logging"
	"issueflow/internal/telemetry"
)

// Version is set at build time with -ldflags "-X issueflow/internal/cli.Version=...".
var Version = "dev"

// NewRootCommand creates the root command with all subcommands attached.
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "issueflow",
		Short: "Move tracker issues through their workflow from test results",
		Long: `issueflow reads test results, aggregates them per referenced issue,
and applies the tracker transitions configured for each issue's status.

Tracker updates only happen when workflow.active is "true"
(ISSUEFLOW_WORKFLOW_ACTIVE=true).`,
		Version:       Version,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newRunCommand(app),
		newResolveCommand(app),
		newRulesCommand(app),
		newStatusCommand(app),
	)
	return rootCmd
}

// ExecuteResult is the outcome of running the CLI.
type ExecuteResult struct {
	ExitCode int
	Err      error
}

// RunWithConfig runs the CLI with cfg and the process arguments and returns
// the exit code instead of exiting.
func RunWithConfig(cfg *config.Config) ExecuteResult {
	ctx := context.Background()

	logger, err := logging.Setup(os.Stderr, cfg.Log)
	if err != nil {
		return ExecuteResult{ExitCode: 1, Err: err}
	}

	if err := telemetry.Init(ctx, telemetry.Options{
		Enabled:     cfg.Telemetry.Enabled,
		Writer:      os.Stderr,
		ServiceName: "issueflow",
		Version:     Version,
	}); err != nil {
		return ExecuteResult{ExitCode: 1, Err: err}
	}
	defer telemetry.Shutdown(ctx)

	app, err := NewApp(cfg, logger)
	if err != nil {
		return ExecuteResult{ExitCode: 1, Err: err}
	}

	rootCmd := NewRootCommand(app)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if code, ok := IsExitError(err); ok {
			return ExecuteResult{ExitCode: code, Err: err}
		}
		return ExecuteResult{ExitCode: 1, Err: err}
	}
	return ExecuteResult{ExitCode: 0}
}

// Execute loads configuration, runs the CLI, and exits the process.
func Execute() {
	cfg, err := config.NewLoader().Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	result := RunWithConfig(cfg)
	if result.Err != nil {
		if _, ok := IsExitError(result.Err); !ok {
			fmt.Fprintf(os.Stderr, "Error: %v\n", result.Err)
		}
	}
	os.Exit(result.ExitCode)
}
