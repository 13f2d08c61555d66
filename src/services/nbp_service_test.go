package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/pitfolio/src/utils"
)

func TestNBPYearRates(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"table":"A","currency":"dolar amerykanski","code":"USD","rates":[
			{"no":"001/A/NBP/2021","effectiveDate":"2021-01-04","mid":3.7247},
			{"no":"002/A/NBP/2021","effectiveDate":"2021-01-05","mid":3.6998}]}`))
	}))
	defer server.Close()

	svc := NewNBPService(server.URL+"/api/", server.Client(), utils.NewLimiter(0))
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	rates, err := svc.YearRates(context.Background(), "usd", 2021)
	require.NoError(t, err)
	assert.Equal(t, "/api/exchangerates/rates/A/USD/2021-01-01/2021-12-31/", gotPath)
	require.Len(t, rates, 2)
	assert.True(t, rates["2021-01-05"].Equal(dec("3.6998")))
}

func TestNBPYearRatesCapsAtToday(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"rates":[]}`))
	}))
	defer server.Close()

	svc := NewNBPService(server.URL, server.Client(), nil)
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	_, err := svc.YearRates(context.Background(), "EUR", 2024)
	require.NoError(t, err)
	assert.Equal(t, "/exchangerates/rates/A/EUR/2024-01-01/2024-05-01/", gotPath)

	gotPath = ""
	rates, err := svc.YearRates(context.Background(), "EUR", 2025)
	require.NoError(t, err)
	assert.Empty(t, rates)
	assert.Empty(t, gotPath, "future years are never requested")
}

func TestNBPYearRatesNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "404 NotFound - Not Found - Brak danych", http.StatusNotFound)
	}))
	defer server.Close()

	svc := NewNBPService(server.URL, server.Client(), nil)
	rates, err := svc.YearRates(context.Background(), "USD", 2021)
	require.NoError(t, err)
	assert.Empty(t, rates)
}

func TestNBPYearRatesServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	svc := NewNBPService(server.URL, server.Client(), nil)
	_, err := svc.YearRates(context.Background(), "USD", 2021)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}
