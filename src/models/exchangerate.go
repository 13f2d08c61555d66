package models

import "github.com/shopspring/decimal"

// NBPRatesResponse is the JSON body of the NBP table A rate series endpoint,
// e.g. /api/exchangerates/rates/A/USD/2021-01-01/2021-12-31/?format=json
type NBPRatesResponse struct {
	Table    string `json:"table"`
	Currency string `json:"currency"`
	Code     string `json:"code"`
	Rates    []struct {
		No            string          `json:"no"`
		EffectiveDate string          `json:"effectiveDate"`
		Mid           decimal.Decimal `json:"mid"`
	} `json:"rates"`
}
