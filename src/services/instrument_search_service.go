package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/pitfolio/src/logger"
	"github.com/username/pitfolio/src/models"
	"github.com/username/pitfolio/src/utils"
	"golang.org/x/time/rate"
)

// Structs for Yahoo Finance API responses
type yahooSearchResponse struct {
	Quotes []SearchResult `json:"quotes"`
}

// instrumentSearchServiceImpl implements InstrumentSearchService against a
// Yahoo-style search endpoint. Answers are memoized per query for the run.
type instrumentSearchServiceImpl struct {
	searchURL string
	client    *http.Client
	limiter   *rate.Limiter
	results   *cache.Cache
}

// NewInstrumentSearchService creates the search client.
func NewInstrumentSearchService(searchURL string, client *http.Client, limiter *rate.Limiter) InstrumentSearchService {
	return &instrumentSearchServiceImpl{
		searchURL: searchURL,
		client:    client,
		limiter:   limiter,
		results:   cache.New(cache.NoExpiration, 10*time.Minute),
	}
}

func (s *instrumentSearchServiceImpl) Search(ctx context.Context, query string) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	key := strings.ToLower(query)
	if cached, found := s.results.Get(key); found {
		return cached.([]SearchResult), nil
	}

	sep := "?"
	if strings.Contains(s.searchURL, "?") {
		sep = "&"
	}
	searchURL := s.searchURL + sep + "q=" + url.QueryEscape(query)

	var resp yahooSearchResponse
	if err := utils.GetJSON(ctx, s.client, s.limiter, searchURL, &resp); err != nil {
		return nil, fmt.Errorf("instrument search for %q: %w", query, err)
	}

	logger.L.Info("Instrument search", "query", query, "quotes", len(resp.Quotes))
	s.results.Set(key, resp.Quotes, cache.NoExpiration)
	return resp.Quotes, nil
}

// SearchResultCountry maps a search quote to a tax country.
func SearchResultCountry(r SearchResult) (models.Country, bool) {
	switch strings.ToUpper(strings.TrimSpace(r.QuoteType)) {
	case "CRYPTOCURRENCY":
		return models.CryptoCountry, true
	case "CURRENCY", "INDEX", "FUTURE", "ETF":
		return models.CfdCountry, true
	case "EQUITY":
		return utils.CountryForSearchExchange(r.Exchange)
	}
	return models.UnknownCountry, false
}
