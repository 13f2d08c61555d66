package models

import "github.com/shopspring/decimal"

// InstrumentRecord is one row of the broker's instrument reference table.
type InstrumentRecord struct {
	Symbol          string `json:"symbol"`
	FullSymbol      string `json:"full_symbol"`
	DisplayName     string `json:"display_name"`
	ISIN            string `json:"isin"`
	Exchange        string `json:"exchange"`
	InstrumentType  string `json:"instrument_type"`
	ISINCountryCode string `json:"isin_country_code"`
}

// InstrumentQuery carries whatever identifies an instrument at a call site.
// Any field may be empty.
type InstrumentQuery struct {
	DisplayName string
	Symbol      string
	ISIN        string
}

// ResolveMode selects how a call site reacts to an instrument nobody knows.
type ResolveMode int

const (
	// ResolveStrict fails with UnresolvedInstrumentError.
	ResolveStrict ResolveMode = iota
	// ResolveTolerant tags the instrument UnknownCountry and carries on.
	ResolveTolerant
)

func (m ResolveMode) String() string {
	if m == ResolveTolerant {
		return "tolerant"
	}
	return "strict"
}

// CountryTotals are the per-country figures of one tax bucket. Income is in the
// native currency, the rest in local currency.
type CountryTotals struct {
	Income  decimal.Decimal `json:"income"`
	Revenue decimal.Decimal `json:"revenue"`
	Cost    decimal.Decimal `json:"cost"`
	Net     decimal.Decimal `json:"net"`
}

// Add returns the field-wise sum.
func (t CountryTotals) Add(o CountryTotals) CountryTotals {
	return CountryTotals{
		Income:  t.Income.Add(o.Income),
		Revenue: t.Revenue.Add(o.Revenue),
		Cost:    t.Cost.Add(o.Cost),
		Net:     t.Net.Add(o.Net),
	}
}

// KindTotals is the aggregation result for one bucket.
type KindTotals struct {
	Kind      Kind                      `json:"-"`
	ByCountry map[Country]CountryTotals `json:"by_country"`
	Total     CountryTotals             `json:"total"`

	// PositiveNet lists only the countries whose net is above zero, which is what
	// goes on the per-country attachment of the return.
	PositiveNet map[Country]decimal.Decimal `json:"positive_net"`
}

// Warning is a soft cross-check mismatch that does not stop the run.
type Warning struct {
	Label    string          `json:"label"`
	Expected decimal.Decimal `json:"expected"`
	Actual   decimal.Decimal `json:"actual"`
}
