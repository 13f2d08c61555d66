package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/username/pitfolio/src/models"
	"github.com/username/pitfolio/src/utils"
)

var resolveQuery models.InstrumentQuery

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Show the tax country of an instrument",
	Example: `  pitfolio resolve --symbol BP.L/GBX
  pitfolio resolve --isin US0378331005
  pitfolio resolve --name "Buy Bitcoin"`,
	Args: cobra.NoArgs,
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
	resolveCmd.Flags().StringVar(&resolveQuery.Symbol, "symbol", "", "ticker as reported by the broker, e.g. AAPL/USD")
	resolveCmd.Flags().StringVar(&resolveQuery.ISIN, "isin", "", "ISIN")
	resolveCmd.Flags().StringVar(&resolveQuery.DisplayName, "name", "", "instrument display name")
}

func runResolve(cmd *cobra.Command, args []string) error {
	if resolveQuery == (models.InstrumentQuery{}) {
		return fmt.Errorf("give at least one of --symbol, --isin or --name")
	}
	return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
		country, err := a.resolver.Resolve(ctx, resolveQuery, a.cfg.TradeResolveMode)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", country, utils.CountryName(country))
		return nil
	})
}
