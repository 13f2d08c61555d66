package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ActivityRow is a validated row of the account activity log.
type ActivityRow struct {
	Row        int
	Date       time.Time
	Type       string
	Details    string
	Amount     decimal.Decimal
	PositionID PositionID
	AssetType  string

	RealizedEquityChange decimal.Decimal
	HasEquityChange      bool
}

// ClosedPositionRow is a validated row of the closed positions log.
type ClosedPositionRow struct {
	Row        int
	PositionID PositionID
	Action     string // "Buy Apple", "Sell Bitcoin", ...
	Amount     decimal.Decimal
	Profit     decimal.Decimal
	OpenDate   time.Time
	CloseDate  time.Time
	Type       string // "CFD", "Stocks", "Crypto", "Real"
	ISIN       string
}

// IsCfd reports whether the broker flagged the position as a contract for difference.
func (r ClosedPositionRow) IsCfd() bool {
	return strings.EqualFold(strings.TrimSpace(r.Type), "CFD")
}

// IsSell reports whether the position was opened short.
func (r ClosedPositionRow) IsSell() bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(r.Action)), "sell")
}

// InstrumentName returns the action without its Buy/Sell verb.
func (r ClosedPositionRow) InstrumentName() string {
	name := strings.TrimSpace(r.Action)
	lower := strings.ToLower(name)
	for _, verb := range []string{"buy ", "sell "} {
		if strings.HasPrefix(lower, verb) {
			return strings.TrimSpace(name[len(verb):])
		}
	}
	return name
}

// SummaryRow is one labelled total of the broker's financial summary.
type SummaryRow struct {
	Label  string
	Amount decimal.Decimal
}

// Statement is a broker account statement after ingestion.
type Statement struct {
	Activity  []ActivityRow
	Closed    []ClosedPositionRow
	Dividends []DividendTaxRecord
	Summary   []SummaryRow
}
