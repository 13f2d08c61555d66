package processors

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/pitfolio/src/models"
)

// RateSource fetches a whole year of mid rates for a currency. A year with no
// published data yields an empty map and no error.
type RateSource interface {
	YearRates(ctx context.Context, currency string, year int) (map[string]decimal.Decimal, error)
}

// RateConverter converts foreign amounts to the local currency.
type RateConverter interface {
	Convert(ctx context.Context, date time.Time, amount decimal.Decimal, currency string) (decimal.Decimal, error)
}

// CountryResolver maps an instrument to the country whose tax rules apply to it.
type CountryResolver interface {
	Resolve(ctx context.Context, query models.InstrumentQuery, mode models.ResolveMode) (models.Country, error)
}

// PositionProcessor classifies a statement into entries.
type PositionProcessor interface {
	Process(ctx context.Context, stmt *models.Statement) ([]models.ClassifiedEntry, error)
}

// AggregateProcessor sums entries of one tax bucket per country.
type AggregateProcessor interface {
	Aggregate(ctx context.Context, entries []models.ClassifiedEntry, kind models.Kind) (models.KindTotals, error)
}

// DividendProcessor computes the dividend tax from dividend entries and the
// broker's withholding records.
type DividendProcessor interface {
	Calculate(ctx context.Context, entries []models.ClassifiedEntry, records []models.DividendTaxRecord) (models.DividendTax, error)
}

// SummaryProcessor cross-checks entries against the broker's own totals.
type SummaryProcessor interface {
	Check(entries []models.ClassifiedEntry, summary []models.SummaryRow) []models.Warning
}
