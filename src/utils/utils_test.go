package utils

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/pitfolio/src/models"
)

func TestCountryFromISIN(t *testing.T) {
	tests := []struct {
		isin string
		want models.Country
		ok   bool
	}{
		{"US0378331005", models.RealCountry("US"), true},
		{"gb0002875804", models.RealCountry("GB"), true},
		{"XS1234567890", models.UnknownCountry, false},
		{"U", models.UnknownCountry, false},
		{"", models.UnknownCountry, false},
	}
	for _, tt := range tests {
		got, ok := CountryFromISIN(tt.isin)
		assert.Equal(t, tt.ok, ok, tt.isin)
		assert.Equal(t, tt.want, got, tt.isin)
	}
}

func TestCountryName(t *testing.T) {
	assert.Equal(t, "840 - Stany Zjednoczone Ameryki", CountryName(models.RealCountry("US")))
	assert.Equal(t, "CFD (Cypr)", CountryName(models.CfdCountry))
	assert.Equal(t, "Unknown Code: ZZ", CountryName(models.RealCountry("ZZ")))
}

func TestExchangeTables(t *testing.T) {
	c, ok := CountryForExchange(" NASDAQ ")
	require.True(t, ok)
	assert.Equal(t, models.RealCountry("US"), c)

	c, ok = CountryForExchange("Digital Currency")
	require.True(t, ok)
	assert.True(t, c.IsCrypto())

	c, ok = CountryForSearchExchange("lse")
	require.True(t, ok)
	assert.Equal(t, models.RealCountry("GB"), c)

	suffix, ok := SuffixForQuoteCurrency("GBX")
	require.True(t, ok)
	assert.Equal(t, ".l", suffix)
	_, ok = SuffixForQuoteCurrency("USD")
	assert.False(t, ok)
}

func TestDecimalHelpers(t *testing.T) {
	d := decimal.RequireFromString("919.5")
	assert.Equal(t, "920", RoundWhole(d).String())
	assert.Equal(t, "1.24", RoundMoney(decimal.RequireFromString("1.235")).String())
	assert.Equal(t, "2", MaxDecimal(decimal.NewFromInt(1), decimal.NewFromInt(2)).String())
	assert.Equal(t, "1", MinDecimal(decimal.NewFromInt(1), decimal.NewFromInt(2)).String())
}

func TestSameDay(t *testing.T) {
	a := time.Date(2021, 3, 4, 23, 59, 0, 0, time.UTC)
	b := time.Date(2021, 3, 4, 0, 1, 0, 0, time.UTC)
	assert.True(t, SameDay(a, b))
	assert.False(t, SameDay(a, b.AddDate(0, 0, 1)))
}

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.Write([]byte(`{"value": 3}`))
		case "/missing":
			http.NotFound(w, r)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	client := NewHTTPClient(time.Second)
	limiter := NewLimiter(0)

	var out struct{ Value int }
	require.NoError(t, GetJSON(context.Background(), client, limiter, srv.URL+"/ok", &out))
	assert.Equal(t, 3, out.Value)

	err := GetJSON(context.Background(), client, limiter, srv.URL+"/missing", &out)
	assert.True(t, errors.Is(err, ErrNotFound))

	err = GetJSON(context.Background(), client, limiter, srv.URL+"/boom", &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}
