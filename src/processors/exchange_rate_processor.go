package processors

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/username/pitfolio/src/logger"
	"github.com/username/pitfolio/src/models"
	"github.com/username/pitfolio/src/utils"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// lookbackDays is how far before a transaction date a published rate is searched.
const lookbackDays = 6

// ExchangeRateService answers "rate of CUR for a transaction on day D" with the
// last mid rate published before D. Rate tables are loaded once per currency and
// year.
type ExchangeRateService struct {
	source        RateSource
	localCurrency string
	tables        *cache.Cache
	group         singleflight.Group
}

// NewExchangeRateService creates a service converting into localCurrency.
func NewExchangeRateService(source RateSource, localCurrency string) *ExchangeRateService {
	if localCurrency == "" {
		localCurrency = "PLN"
	}
	return &ExchangeRateService{
		source:        source,
		localCurrency: strings.ToUpper(localCurrency),
		tables:        cache.New(cache.NoExpiration, 0),
	}
}

// Rate returns the exchange rate applicable to a transaction on date.
func (s *ExchangeRateService) Rate(ctx context.Context, currency string, date time.Time) (decimal.Decimal, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == s.localCurrency {
		return decimal.NewFromInt(1), nil
	}
	day := utils.Day(date)

	table, err := s.table(ctx, currency, day.Year())
	if err != nil {
		return decimal.Zero, err
	}
	for i := 1; i <= lookbackDays; i++ {
		candidate := day.AddDate(0, 0, -i)
		if candidate.Year() != day.Year() {
			break
		}
		if rate, ok := table[utils.FormatDate(candidate)]; ok {
			return rate, nil
		}
	}

	// the first days of January fall back on the end of the previous year
	if day.Month() == time.January && day.Day() <= 7 {
		prev, err := s.table(ctx, currency, day.Year()-1)
		if err != nil {
			return decimal.Zero, err
		}
		dec31 := time.Date(day.Year()-1, time.December, 31, 0, 0, 0, 0, time.UTC)
		for i := 0; i < lookbackDays; i++ {
			if rate, ok := prev[utils.FormatDate(dec31.AddDate(0, 0, -i))]; ok {
				return rate, nil
			}
		}
	}

	logger.FromContext(ctx).Warn("Exchange rate not found", "currency", currency, "date", utils.FormatDate(day))
	return decimal.Zero, &models.RateNotFoundError{Currency: currency, Date: day}
}

// Convert returns amount expressed in the local currency.
func (s *ExchangeRateService) Convert(ctx context.Context, date time.Time, amount decimal.Decimal, currency string) (decimal.Decimal, error) {
	rate, err := s.Rate(ctx, currency, date)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(rate), nil
}

// Prefetch loads the tables of several years concurrently.
func (s *ExchangeRateService) Prefetch(ctx context.Context, currency string, years ...int) error {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == s.localCurrency {
		return nil
	}
	g, ctx := errgroup.WithContext(ctx)
	for _, year := range years {
		g.Go(func() error {
			_, err := s.table(ctx, currency, year)
			return err
		})
	}
	return g.Wait()
}

func (s *ExchangeRateService) table(ctx context.Context, currency string, year int) (map[string]decimal.Decimal, error) {
	key := fmt.Sprintf("%s/%d", currency, year)
	if cached, ok := s.tables.Get(key); ok {
		return cached.(map[string]decimal.Decimal), nil
	}

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		if cached, ok := s.tables.Get(key); ok {
			return cached, nil
		}
		rates, err := s.source.YearRates(ctx, currency, year)
		if err != nil {
			return nil, fmt.Errorf("loading %s rates for %d: %w", currency, year, err)
		}
		if rates == nil {
			rates = map[string]decimal.Decimal{}
		}
		s.tables.Set(key, rates, cache.NoExpiration)
		logger.L.Info("Exchange rate table loaded", "currency", currency, "year", year, "observationCount", len(rates))
		return rates, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]decimal.Decimal), nil
}
