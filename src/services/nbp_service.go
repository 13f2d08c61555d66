package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/pitfolio/src/logger"
	"github.com/username/pitfolio/src/models"
	"github.com/username/pitfolio/src/utils"
	"golang.org/x/time/rate"
)

// NBPService reads table A mid rates from the National Bank of Poland API.
type NBPService struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	now     func() time.Time
}

// NewNBPService creates a client for the API rooted at baseURL
// (https://api.nbp.pl/api).
func NewNBPService(baseURL string, client *http.Client, limiter *rate.Limiter) *NBPService {
	return &NBPService{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		limiter: limiter,
		now:     time.Now,
	}
}

// YearRates fetches every published rate of a year, keyed by effective date.
// The API answers 404 when the range holds no table.
func (s *NBPService) YearRates(ctx context.Context, currency string, year int) (map[string]decimal.Decimal, error) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	today := utils.Day(s.now())
	if start.After(today) {
		return map[string]decimal.Decimal{}, nil
	}
	if end.After(today) {
		end = today
	}

	url := fmt.Sprintf("%s/exchangerates/rates/A/%s/%s/%s/?format=json",
		s.baseURL, strings.ToUpper(currency), utils.FormatDate(start), utils.FormatDate(end))

	var resp models.NBPRatesResponse
	if err := utils.GetJSON(ctx, s.client, s.limiter, url, &resp); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			logger.L.Warn("No NBP rates published for range", "currency", currency, "year", year)
			return map[string]decimal.Decimal{}, nil
		}
		return nil, fmt.Errorf("fetching NBP rates: %w", err)
	}

	rates := make(map[string]decimal.Decimal, len(resp.Rates))
	for _, r := range resp.Rates {
		rates[r.EffectiveDate] = r.Mid
	}
	logger.L.Debug("NBP rates fetched", "currency", currency, "year", year, "count", len(rates))
	return rates, nil
}
