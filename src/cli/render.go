package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/username/pitfolio/src/models"
	"github.com/username/pitfolio/src/services"
	"github.com/username/pitfolio/src/utils"
)

// WriteJSON prints the report as indented JSON.
func WriteJSON(w io.Writer, r *services.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteText prints the report as aligned tables.
func WriteText(w io.Writer, r *services.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	year := "all years"
	if r.TaxYear != 0 {
		year = fmt.Sprintf("tax year %d", r.TaxYear)
	}
	fmt.Fprintf(tw, "PIT-38, %s (run %s)\t\n\n", year, r.RunID)

	writeKind(tw, "Stocks and derivatives", r.Stock)
	writeKind(tw, "Cryptocurrencies", r.Crypto)
	writeDividends(tw, r.Dividends)

	if len(r.Warnings) > 0 {
		fmt.Fprintln(tw, "Financial summary mismatches\t\t\t")
		fmt.Fprintln(tw, "Line\tStatement\tComputed\t")
		for _, warn := range r.Warnings {
			fmt.Fprintf(tw, "%s\t%s\t%s\t\n", warn.Label, warn.Expected.StringFixed(2), warn.Actual.StringFixed(2))
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

func writeKind(tw io.Writer, title string, t models.KindTotals) {
	fmt.Fprintf(tw, "%s\t\t\t\t\t\n", title)
	if len(t.ByCountry) == 0 {
		fmt.Fprint(tw, "no transactions\t\t\t\t\t\n\n")
		return
	}
	fmt.Fprintln(tw, "Country\tIncome (USD)\tRevenue (PLN)\tCost (PLN)\tNet (PLN)\t")
	for _, c := range sortedCountries(t.ByCountry) {
		row := t.ByCountry[c]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n", utils.CountryName(c),
			money(row.Income), money(row.Revenue), money(row.Cost), money(row.Net))
	}
	fmt.Fprintf(tw, "Total\t%s\t%s\t%s\t%s\t\n",
		money(t.Total.Income), money(t.Total.Revenue), money(t.Total.Cost), money(t.Total.Net))

	if len(t.PositiveNet) > 0 {
		fmt.Fprintln(tw, "Income per country (PIT/ZG)\t\t\t\t\t")
		for _, c := range sortedCountries(t.PositiveNet) {
			fmt.Fprintf(tw, "%s\t\t\t\t%s\t\n", utils.CountryName(c), money(t.PositiveNet[c]))
		}
	}
	fmt.Fprintln(tw)
}

func writeDividends(tw io.Writer, d models.DividendTax) {
	fmt.Fprintln(tw, "Foreign dividends\t\t\t\t\t")
	if len(d.ByCountry) == 0 {
		fmt.Fprint(tw, "no dividends\t\t\t\t\t\n\n")
		return
	}
	fmt.Fprintln(tw, "Source country\tNet (USD)\tGross (USD)\tRevenue (PLN)\tTax due\tPaid abroad\t")
	for _, c := range sortedCountries(d.ByCountry) {
		row := d.ByCountry[c]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t\n", utils.CountryName(c),
			money(row.NetUSD), money(row.GrossUSD), money(row.RevenuePLN), money(row.TaxDue), money(row.TaxPaidAbroad))
	}
	fmt.Fprintf(tw, "Tax base\t%s\t\n", d.BasePLN.StringFixed(0))
	fmt.Fprintf(tw, "Tax due\t%s\t\n", d.TaxDue.StringFixed(0))
	fmt.Fprintf(tw, "Tax paid abroad\t%s\t\n", d.TaxPaidAbroad.StringFixed(0))
	fmt.Fprintf(tw, "Tax payable\t%s\t\n", d.TaxPayable.StringFixed(0))
	fmt.Fprintln(tw)
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func sortedCountries[V any](m map[models.Country]V) []models.Country {
	out := make([]models.Country, 0, len(m))
	for c := range m {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
