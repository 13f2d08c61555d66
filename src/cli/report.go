package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var reportJSON bool

var reportCmd = &cobra.Command{
	Use:   "report <statement>",
	Short: "Compute the PIT-38 figures of a statement",
	Long: `Reads a statement, reconciles positions with the activity log, converts every
leg with the NBP rate of the previous business day and prints the per-country
totals, the dividend tax and any financial summary mismatches.

The statement is an .xlsx file or a directory holding one CSV per sheet
("Account Activity.csv", "Closed Positions.csv", ...).`,
	Example: `  pitfolio report statement.xlsx --year 2021
  pitfolio report exports/ --json`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "print the report as JSON")
}

func runReport(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
		svc, err := a.reportService()
		if err != nil {
			return err
		}
		report, err := svc.Generate(ctx, args[0])
		if err != nil {
			return err
		}
		if reportJSON {
			return WriteJSON(cmd.OutOrStdout(), report)
		}
		return WriteText(cmd.OutOrStdout(), report)
	})
}
