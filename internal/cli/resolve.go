package cli

import (
	"github.com/spf13/cobra"

	"issueflow/internal/workflow"
)

func newResolveCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <status> <success|failure>",
		Short: "Show the transitions for a status and outcome",
		Long: `Show the transition sequence the loaded rules resolve for an issue status
and an aggregated test outcome. The tracker is not contacted, and the result is
shown whether or not the workflow is active.

Example:
  issueflow resolve "In Progress" success`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			outcome, err := workflow.ParseOutcome(args[1])
			if err != nil {
				app.Printer.Error("%v", err)
				return NewExitError(exitFailure)
			}

			table, err := app.rulesLoader().LoadTable(app.Config.Workflow.RulesPath)
			if err != nil {
				app.Printer.Error("%v", err)
				return NewExitError(exitFailure)
			}

			status := args[0]
			app.Printer.Sequence(status, outcome, workflow.NewEngine(table).Resolve(status, outcome))
			return nil
		},
	}
}
