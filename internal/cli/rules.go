package cli

import (
	"github.com/spf13/cobra"
)

func newRulesCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "Print the loaded transition rules",
		Long: `Print every (status, outcome) rule in definition order, from the bundled
table or from workflow.rules_path when set. A malformed rule file is reported
with its path and exits non-zero.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			table, err := app.rulesLoader().LoadTable(app.Config.Workflow.RulesPath)
			if err != nil {
				app.Printer.Error("%v", err)
				return NewExitError(exitFailure)
			}

			app.Printer.Rules(app.rulesSourceName(), table.Rules())
			return nil
		},
	}
}
