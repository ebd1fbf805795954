package cli

import (
	"github.com/spf13/cobra"
)

func newStatusCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status <issue-key> [issue-key...]",
		Short: "Show the tracker status of issues",
		Long: `Read and print the current tracker status of each issue. Exits non-zero
if any status cannot be read.

Example:
  issueflow status MYPROJECT-123 MYPROJECT-456`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			ctx := cmd.Context()

			failed := false
			for _, key := range args {
				status, err := app.Tracker.GetStatus(ctx, key)
				if err != nil {
					failed = true
				}
				app.Printer.IssueStatus(key, status, err)
			}

			if failed {
				return NewExitError(exitFailure)
			}
			return nil
		},
	}
}
