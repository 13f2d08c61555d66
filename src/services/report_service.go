package services

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/pitfolio/src/logger"
	"github.com/username/pitfolio/src/models"
	"github.com/username/pitfolio/src/parsers"
	"github.com/username/pitfolio/src/processors"
)

const (
	ckReport = "report_%s_%d_%d" // path, size, mtime

	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute
)

// Report holds everything a run computes.
type Report struct {
	RunID       string                   `json:"run_id"`
	TaxYear     int                      `json:"tax_year,omitempty"`
	Currency    string                   `json:"currency"`
	Stock       models.KindTotals        `json:"stock"`
	Crypto      models.KindTotals        `json:"crypto"`
	Dividends   models.DividendTax       `json:"dividends"`
	Warnings    []models.Warning         `json:"warnings,omitempty"`
	Entries     []models.ClassifiedEntry `json:"-"`
	GeneratedAt time.Time                `json:"generated_at"`
}

// ReportDeps are the collaborators of the report pipeline.
type ReportDeps struct {
	Parser     parsers.StatementParser
	Positions  processors.PositionProcessor
	Aggregate  processors.AggregateProcessor
	Dividends  processors.DividendProcessor
	Summary    processors.SummaryProcessor
	Prefetcher RatePrefetcher // optional
	Currency   string         // currency of the statement
	TaxYear    int
	RunID      string
}

type reportServiceImpl struct {
	deps        ReportDeps
	reportCache *cache.Cache
}

func NewReportService(deps ReportDeps, reportCache *cache.Cache) ReportService {
	if deps.Currency == "" {
		deps.Currency = "USD"
	}
	if reportCache == nil {
		reportCache = cache.New(DefaultCacheExpiration, CacheCleanupInterval)
	}
	return &reportServiceImpl{deps: deps, reportCache: reportCache}
}

// Generate runs ingestion, reconciliation, aggregation and the cross-checks.
// Any fatal error aborts the run; no partial report is returned.
func (s *reportServiceImpl) Generate(ctx context.Context, path string) (*Report, error) {
	overallStartTime := time.Now()
	log := logger.FromContext(ctx).With("path", path)
	ctx = logger.WithContext(ctx, log)
	log.Info("Generate START", "taxYear", s.deps.TaxYear)

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}
	cacheKey := fmt.Sprintf(ckReport, path, info.Size(), info.ModTime().UnixNano())
	if cached, found := s.reportCache.Get(cacheKey); found {
		log.Info("Cache hit for report")
		return cached.(*Report), nil
	}

	stmt, err := s.parse(path)
	if err != nil {
		return nil, err
	}

	entries, err := s.deps.Positions.Process(ctx, stmt)
	if err != nil {
		return nil, err
	}

	if s.deps.Prefetcher != nil {
		if err := s.deps.Prefetcher.Prefetch(ctx, s.deps.Currency, rateYears(entries)...); err != nil {
			return nil, err
		}
	}

	report := &Report{
		RunID:    s.deps.RunID,
		TaxYear:  s.deps.TaxYear,
		Currency: s.deps.Currency,
		Entries:  entries,
	}
	if report.Stock, err = s.deps.Aggregate.Aggregate(ctx, entries, models.KindStock); err != nil {
		return nil, err
	}
	if report.Crypto, err = s.deps.Aggregate.Aggregate(ctx, entries, models.KindCrypto); err != nil {
		return nil, err
	}

	records := stmt.Dividends
	if s.deps.TaxYear != 0 {
		records = make([]models.DividendTaxRecord, 0, len(stmt.Dividends))
		for _, rec := range stmt.Dividends {
			if rec.PaymentDate.Year() == s.deps.TaxYear {
				records = append(records, rec)
			}
		}
	}
	if report.Dividends, err = s.deps.Dividends.Calculate(ctx, entries, records); err != nil {
		return nil, err
	}

	report.Warnings = s.deps.Summary.Check(entries, stmt.Summary)
	report.GeneratedAt = time.Now().UTC()

	s.reportCache.Set(cacheKey, report, DefaultCacheExpiration)
	log.Info("Generate END", "entries", len(entries), "warnings", len(report.Warnings), "duration", time.Since(overallStartTime))
	return report, nil
}

func (s *reportServiceImpl) parse(path string) (*models.Statement, error) {
	wb, err := parsers.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}
	defer wb.Close()

	stmt, err := s.deps.Parser.Parse(wb)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParsingFailed, err)
	}
	return stmt, nil
}

// rateYears lists the years whose rate tables the entries need, including the
// previous year for dates in the first week of January.
func rateYears(entries []models.ClassifiedEntry) []int {
	seen := make(map[int]bool)
	add := func(t time.Time) {
		if t.IsZero() {
			return
		}
		seen[t.Year()] = true
		if t.Month() == time.January && t.Day() <= 7 {
			seen[t.Year()-1] = true
		}
	}
	for _, e := range entries {
		add(e.OpenDate)
		add(e.CloseDate)
	}
	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}
