package processors

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/pitfolio/src/models"
)

func TestRateUsesLastRateBeforeTransactionDay(t *testing.T) {
	src := newFakeRateSource(map[string]map[string]string{
		"USD/2021": {"2021-03-04": "4.00", "2021-03-05": "4.50"},
	})
	svc := NewExchangeRateService(src, "PLN")

	rate, err := svc.Rate(context.Background(), "usd", time.Date(2021, 3, 5, 15, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, rate.Equal(dec("4.00")), "rate of the transaction day itself is not used")

	// Monday falls back on Friday
	rate, err = svc.Rate(context.Background(), "USD", day(2021, 3, 8))
	require.NoError(t, err)
	assert.True(t, rate.Equal(dec("4.50")))

	assert.Equal(t, 1, src.callCount("USD/2021"), "one fetch per currency and year")
}

func TestRateYearBoundaryFallback(t *testing.T) {
	src := newFakeRateSource(map[string]map[string]string{
		"USD/2021": {"2021-01-04": "3.70"},
		"USD/2020": {"2020-12-30": "3.75", "2020-12-31": "3.76"},
	})
	svc := NewExchangeRateService(src, "PLN")

	rate, err := svc.Rate(context.Background(), "USD", day(2021, 1, 4))
	require.NoError(t, err)
	assert.True(t, rate.Equal(dec("3.76")))

	rate, err = svc.Rate(context.Background(), "USD", day(2021, 1, 5))
	require.NoError(t, err)
	assert.True(t, rate.Equal(dec("3.70")))
}

func TestRateNotFound(t *testing.T) {
	src := newFakeRateSource(map[string]map[string]string{
		"USD/2021": {"2021-03-01": "4.00"},
		"USD/2020": {"2020-12-31": "3.76"},
	})
	svc := NewExchangeRateService(src, "PLN")

	_, err := svc.Rate(context.Background(), "USD", day(2021, 3, 20))
	var notFound *models.RateNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "USD", notFound.Currency)
	assert.Equal(t, day(2021, 3, 20), notFound.Date)
	assert.True(t, models.IsFatal(err))

	// outside the first week of January the previous year is not consulted
	_, err = svc.Rate(context.Background(), "USD", day(2021, 1, 9))
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, 0, src.callCount("USD/2020"))
}

func TestRateLocalCurrencyIsIdentity(t *testing.T) {
	src := newFakeRateSource(nil)
	svc := NewExchangeRateService(src, "")

	converted, err := svc.Convert(context.Background(), day(2021, 5, 1), dec("123.45"), "PLN")
	require.NoError(t, err)
	assert.True(t, converted.Equal(dec("123.45")))
	assert.Empty(t, src.calls)
}

func TestConvert(t *testing.T) {
	src := newFakeRateSource(map[string]map[string]string{
		"EUR/2021": {"2021-06-01": "4.4742"},
	})
	svc := NewExchangeRateService(src, "PLN")

	converted, err := svc.Convert(context.Background(), day(2021, 6, 2), dec("100"), "EUR")
	require.NoError(t, err)
	assert.True(t, converted.Equal(dec("447.42")))
}

func TestPrefetch(t *testing.T) {
	src := newFakeRateSource(map[string]map[string]string{
		"USD/2020": {"2020-06-01": "3.9"},
		"USD/2021": {"2021-06-01": "3.7"},
	})
	svc := NewExchangeRateService(src, "PLN")

	require.NoError(t, svc.Prefetch(context.Background(), "USD", 2020, 2021, 2021))
	_, err := svc.Rate(context.Background(), "USD", day(2021, 6, 2))
	require.NoError(t, err)
	assert.Equal(t, 1, src.callCount("USD/2020"))
	assert.Equal(t, 1, src.callCount("USD/2021"))

	require.NoError(t, svc.Prefetch(context.Background(), "PLN", 2021))
}

func TestRateSourceErrorIsReturned(t *testing.T) {
	feedErr := errors.New("connection refused")
	src := newFakeRateSource(nil)
	src.err = feedErr
	svc := NewExchangeRateService(src, "PLN")

	_, err := svc.Rate(context.Background(), "USD", day(2021, 3, 5))
	assert.ErrorIs(t, err, feedErr)
	assert.Contains(t, err.Error(), "USD rates for 2021")
}
