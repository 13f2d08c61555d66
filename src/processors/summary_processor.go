package processors

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/username/pitfolio/src/logger"
	"github.com/username/pitfolio/src/models"
	"github.com/username/pitfolio/src/utils"
)

// summaryCheck recomputes one line of the broker's financial summary.
type summaryCheck struct {
	matches func(label string) bool
	total   func(entries []models.ClassifiedEntry) decimal.Decimal
}

type summaryProcessorImpl struct {
	tolerance decimal.Decimal
	checks    []summaryCheck
}

// NewSummaryProcessor creates a checker accepting differences up to tolerance.
func NewSummaryProcessor(tolerance decimal.Decimal) SummaryProcessor {
	return &summaryProcessorImpl{
		tolerance: tolerance,
		checks: []summaryCheck{
			{
				matches: prefix("cfd"),
				total: sumProfit(func(e models.ClassifiedEntry) bool {
					return e.IsCfd && !e.Kind.IsCashEvent() && e.Status == models.StatusClosed
				}),
			},
			{
				matches: prefix("crypto"),
				total: sumProfit(func(e models.ClassifiedEntry) bool {
					return e.Kind == models.KindCrypto && e.Status == models.StatusClosed
				}),
			},
			{
				matches: prefix("stocks"),
				total: sumProfit(func(e models.ClassifiedEntry) bool {
					return e.Kind == models.KindStock && !e.IsCfd && e.Status == models.StatusClosed
				}),
			},
			{
				matches: prefix("dividend"),
				total:   sumProfit(func(e models.ClassifiedEntry) bool { return e.Kind == models.KindDividend }),
			},
			{
				matches: func(label string) bool { return strings.Contains(label, "fee") },
				total:   sumProfit(func(e models.ClassifiedEntry) bool { return e.Kind == models.KindFee }),
			},
			{
				matches: prefix("interest"),
				total:   sumProfit(func(e models.ClassifiedEntry) bool { return e.Kind == models.KindInterest }),
			},
		},
	}
}

func prefix(p string) func(string) bool {
	return func(label string) bool { return strings.HasPrefix(label, p) }
}

func sumProfit(keep func(models.ClassifiedEntry) bool) func([]models.ClassifiedEntry) decimal.Decimal {
	return func(entries []models.ClassifiedEntry) decimal.Decimal {
		sum := decimal.Zero
		for _, e := range entries {
			if keep(e) {
				sum = sum.Add(e.Profit())
			}
		}
		return sum
	}
}

// Check compares native-currency totals with the summary lines it recognizes.
// Mismatches are logged and returned; they never stop the run.
func (p *summaryProcessorImpl) Check(entries []models.ClassifiedEntry, summary []models.SummaryRow) []models.Warning {
	var warnings []models.Warning
	for _, row := range summary {
		label := strings.ToLower(strings.TrimSpace(row.Label))
		for _, check := range p.checks {
			if !check.matches(label) {
				continue
			}
			actual := utils.RoundMoney(check.total(entries))
			if actual.Sub(row.Amount).Abs().GreaterThan(p.tolerance) {
				logger.L.Warn("Financial summary mismatch", "label", row.Label, "expected", row.Amount.String(), "actual", actual.String())
				warnings = append(warnings, models.Warning{Label: row.Label, Expected: row.Amount, Actual: actual})
			}
			break
		}
	}
	return warnings
}
