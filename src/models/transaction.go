// src/models/transaction.go
package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PositionID is the broker-assigned identifier of a position.
type PositionID string

// NormalizePositionID turns the spellings produced by spreadsheets ("123", "123.0",
// " 123 ") into a single canonical id.
func NormalizePositionID(s string) PositionID {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "."); i > 0 && strings.Trim(s[i+1:], "0") == "" {
		s = s[:i]
	}
	return PositionID(s)
}

// Kind is the tax category of a classified entry.
type Kind int

const (
	KindStock Kind = iota + 1
	KindCrypto
	KindDividend
	KindFee
	KindInterest
	KindAdjustment
	KindRefund
	KindIndexAdjustment
)

var kindNames = map[Kind]string{
	KindStock:           "stock",
	KindCrypto:          "crypto",
	KindDividend:        "dividend",
	KindFee:             "fee",
	KindInterest:        "interest",
	KindAdjustment:      "adjustment",
	KindRefund:          "refund",
	KindIndexAdjustment: "index_adjustment",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "undefined"
}

// IsCashEvent reports whether entries of this kind carry a single Amount
// rather than an open and a close leg.
func (k Kind) IsCashEvent() bool {
	return k != KindStock && k != KindCrypto
}

// PositionStatus is the lifecycle state of a position at the end of the statement.
type PositionStatus int

const (
	StatusClosed PositionStatus = iota
	StatusOpen
)

func (s PositionStatus) String() string {
	if s == StatusOpen {
		return "open"
	}
	return "closed"
}

// ClassifiedEntry is the unit consumed by aggregation.
type ClassifiedEntry struct {
	ID        PositionID
	Kind      Kind
	Country   Country
	Status    PositionStatus
	Symbol    string // Underlying ticker as reported by the broker, e.g. "AAPL/USD"
	OpenDate  time.Time
	CloseDate time.Time

	OpenAmount  decimal.Decimal // Cost leg, native currency
	CloseAmount decimal.Decimal // Revenue leg, native currency
	Amount      decimal.Decimal // Signed amount of a cash event (fee, dividend, interest, ...)
	Currency    string

	IsCfd        bool
	EquityChange decimal.Decimal // Profit as reported by the broker
	Synthesized  bool            // Built without the broker's opening record
}

// RealizedAt is the date that places the entry in a tax year.
func (e ClassifiedEntry) RealizedAt() time.Time {
	if e.OpenDate.After(e.CloseDate) {
		return e.OpenDate
	}
	return e.CloseDate
}

// Profit is close minus open for positions and the signed amount for cash events.
func (e ClassifiedEntry) Profit() decimal.Decimal {
	if e.Kind.IsCashEvent() {
		return e.Amount
	}
	return e.CloseAmount.Sub(e.OpenAmount)
}
