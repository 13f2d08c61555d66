package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DividendTaxRecord is one row of the broker's dividend withholding disclosure.
type DividendTaxRecord struct {
	PositionID        PositionID
	PaymentDate       time.Time
	InstrumentName    string
	ISIN              string
	NetAmount         decimal.Decimal // Net dividend received, USD
	WithholdingRate   decimal.Decimal // Fraction, 0.15 for 15%
	WithholdingAmount decimal.Decimal // Tax withheld, USD

	HasWithholdingAmount bool
}

// DividendCountrySummary holds the dividend figures of one source country.
type DividendCountrySummary struct {
	NetUSD        decimal.Decimal `json:"net_usd"`
	GrossUSD      decimal.Decimal `json:"gross_usd"`
	RevenuePLN    decimal.Decimal `json:"revenue_pln"`
	TaxDue        decimal.Decimal `json:"tax_due"`
	TaxPaidAbroad decimal.Decimal `json:"tax_paid_abroad"`
}

// DividendTax is the dividend section of the return.
type DividendTax struct {
	NetUSD        decimal.Decimal `json:"net_usd"`
	GrossUSD      decimal.Decimal `json:"gross_usd"`
	RevenuePLN    decimal.Decimal `json:"revenue_pln"`
	BasePLN       decimal.Decimal `json:"base_pln"`
	TaxDue        decimal.Decimal `json:"tax_due"`
	TaxPaidAbroad decimal.Decimal `json:"tax_paid_abroad"`
	TaxPayable    decimal.Decimal `json:"tax_payable"`

	ByCountry map[Country]DividendCountrySummary `json:"by_country"`
}
