package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/username/pitfolio/src/utils"
)

var ratesAmount string

var ratesCmd = &cobra.Command{
	Use:   "rates <currency> <YYYY-MM-DD>",
	Short: "Show the exchange rate applied to a transaction date",
	Example: `  pitfolio rates USD 2021-05-15
  pitfolio rates EUR 2022-01-03 --amount 125.50`,
	Args: cobra.ExactArgs(2),
	RunE: runRates,
}

func init() {
	rootCmd.AddCommand(ratesCmd)
	ratesCmd.Flags().StringVar(&ratesAmount, "amount", "", "also convert this amount")
}

func runRates(cmd *cobra.Command, args []string) error {
	currency := strings.ToUpper(args[0])
	date, err := utils.ParseDate(args[1])
	if err != nil {
		return fmt.Errorf("bad date %q: %w", args[1], err)
	}

	return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
		rate, err := a.rates.Rate(ctx, currency, date)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %s: %s %s\n", currency, utils.FormatDate(date), rate.StringFixed(4), a.cfg.LocalCurrency)

		if ratesAmount == "" {
			return nil
		}
		amount, err := decimal.NewFromString(ratesAmount)
		if err != nil {
			return fmt.Errorf("bad amount %q: %w", ratesAmount, err)
		}
		local, err := a.rates.Convert(ctx, date, amount, currency)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %s = %s %s\n", amount.String(), currency, utils.RoundMoney(local).StringFixed(2), a.cfg.LocalCurrency)
		return nil
	})
}
