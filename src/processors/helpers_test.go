package processors

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/pitfolio/src/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// fakeRateSource serves fixed tables keyed by "CUR/YYYY" and counts fetches.
type fakeRateSource struct {
	mu     sync.Mutex
	tables map[string]map[string]decimal.Decimal
	calls  map[string]int
	err    error
}

func newFakeRateSource(tables map[string]map[string]string) *fakeRateSource {
	src := &fakeRateSource{tables: make(map[string]map[string]decimal.Decimal), calls: make(map[string]int)}
	for key, table := range tables {
		src.tables[key] = make(map[string]decimal.Decimal, len(table))
		for date, rate := range table {
			src.tables[key][date] = dec(rate)
		}
	}
	return src
}

func (f *fakeRateSource) YearRates(ctx context.Context, currency string, year int) (map[string]decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := currency + "/" + time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC).Format("2006")
	f.calls[key]++
	if f.err != nil {
		return nil, f.err
	}
	return f.tables[key], nil
}

func (f *fakeRateSource) callCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

// fakeResolver answers by symbol first, then by display name.
type fakeResolver struct {
	bySymbol map[string]models.Country
	byName   map[string]models.Country
	err      error
	queries  []models.InstrumentQuery
}

var errUnresolved = errors.New("unresolved")

func (f *fakeResolver) Resolve(ctx context.Context, q models.InstrumentQuery, mode models.ResolveMode) (models.Country, error) {
	f.queries = append(f.queries, q)
	if f.err != nil {
		return models.UnknownCountry, f.err
	}
	if c, ok := f.bySymbol[q.Symbol]; ok {
		return c, nil
	}
	if c, ok := f.byName[q.DisplayName]; ok {
		return c, nil
	}
	if mode == models.ResolveTolerant {
		return models.UnknownCountry, nil
	}
	return models.UnknownCountry, &models.UnresolvedInstrumentError{Query: q}
}
