package services

import (
	"context"
	"errors"

	"github.com/username/pitfolio/src/models"
)

var (
	// ErrParsingFailed wraps every error raised while reading a statement.
	ErrParsingFailed = errors.New("failed to parse statement")
	// ErrCatalogUnavailable wraps errors loading the instrument catalog.
	ErrCatalogUnavailable = errors.New("instrument catalog unavailable")
)

// SearchResult is one quote returned by the instrument search feed.
type SearchResult struct {
	Symbol    string `json:"symbol"`
	Exchange  string `json:"exchange"`
	Name      string `json:"shortname"`
	QuoteType string `json:"quoteType"`
}

// InstrumentSearchService looks instruments up by free text.
type InstrumentSearchService interface {
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

// CatalogLoader returns the broker's instrument reference table.
type CatalogLoader func(ctx context.Context) ([]models.InstrumentRecord, error)

// RatePrefetcher warms exchange rate tables before a run.
type RatePrefetcher interface {
	Prefetch(ctx context.Context, currency string, years ...int) error
}

// ReportService turns a statement file into the figures of the return.
type ReportService interface {
	Generate(ctx context.Context, path string) (*Report, error)
}
