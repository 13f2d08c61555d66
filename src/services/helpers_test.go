package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/pitfolio/src/models"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func staticCatalog(records ...models.InstrumentRecord) (CatalogLoader, *int) {
	calls := 0
	return func(ctx context.Context) ([]models.InstrumentRecord, error) {
		calls++
		return records, nil
	}, &calls
}

// fakeSearch answers from a fixed table and records the queries it got.
type fakeSearch struct {
	mu      sync.Mutex
	results map[string][]SearchResult
	err     error
	queries []string
}

func (f *fakeSearch) Search(ctx context.Context, query string) ([]SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return f.results[query], nil
}

// fakeRates serves fixed tables keyed by "CUR/YYYY".
type fakeRates struct {
	mu     sync.Mutex
	tables map[string]map[string]string
	calls  []string
}

func (f *fakeRates) YearRates(ctx context.Context, currency string, year int) (map[string]decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := fmt.Sprintf("%s/%d", currency, year)
	f.calls = append(f.calls, key)
	out := make(map[string]decimal.Decimal)
	for date, rate := range f.tables[key] {
		out[date] = dec(rate)
	}
	return out, nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
