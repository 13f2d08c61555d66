package models

import (
	"errors"
	"fmt"
	"time"
)

// Ingestion sentinels.
var (
	ErrMissingColumn = errors.New("missing column")
	ErrSheetNotFound = errors.New("sheet not found")
	ErrEmptyValue    = errors.New("empty value")

	// ErrAmbiguousNumber is returned for "1,000": a thousands group or a decimal comma.
	ErrAmbiguousNumber = errors.New("ambiguous decimal separator")
)

// DataInconsistencyError reports two parts of the statement that disagree.
type DataInconsistencyError struct {
	PositionID PositionID
	Reason     string
}

func (e *DataInconsistencyError) Error() string {
	if e.PositionID == "" {
		return "data inconsistency: " + e.Reason
	}
	return fmt.Sprintf("data inconsistency on position %s: %s", e.PositionID, e.Reason)
}

// UnknownTransactionTypeError is raised for an activity type that is neither
// handled nor explicitly ignored.
type UnknownTransactionTypeError struct {
	PositionID PositionID
	Type       string
	Details    string
}

func (e *UnknownTransactionTypeError) Error() string {
	return fmt.Sprintf("unknown transaction type %q (details %q) for position %s", e.Type, e.Details, e.PositionID)
}

// MissingOpenPositionError is raised for a closed position whose opening record
// is absent from the activity log.
type MissingOpenPositionError struct {
	PositionID PositionID
	Symbol     string
}

func (e *MissingOpenPositionError) Error() string {
	return fmt.Sprintf("closed position %s (%s) has no opening record in the activity log", e.PositionID, e.Symbol)
}

// AmbiguousInstrumentError is raised when an instrument maps to more than one country.
type AmbiguousInstrumentError struct {
	Query     InstrumentQuery
	Countries []Country
}

func (e *AmbiguousInstrumentError) Error() string {
	return fmt.Sprintf("instrument name=%q symbol=%q isin=%q maps to more than one country: %v",
		e.Query.DisplayName, e.Query.Symbol, e.Query.ISIN, e.Countries)
}

// UnresolvedInstrumentError is raised when no reference data and no search result
// identify the instrument.
type UnresolvedInstrumentError struct {
	Query InstrumentQuery
}

func (e *UnresolvedInstrumentError) Error() string {
	return fmt.Sprintf("unknown country for instrument name=%q symbol=%q isin=%q",
		e.Query.DisplayName, e.Query.Symbol, e.Query.ISIN)
}

// RateNotFoundError is raised when no exchange rate is published in the search window.
type RateNotFoundError struct {
	Currency string
	Date     time.Time
}

func (e *RateNotFoundError) Error() string {
	return fmt.Sprintf("no %s exchange rate published in the days before %s", e.Currency, e.Date.Format("2006-01-02"))
}

// ReconciliationError is raised when dividend withholding records and dividend
// payments do not pair up one to one.
type ReconciliationError struct {
	PositionID PositionID
	Reason     string
}

func (e *ReconciliationError) Error() string {
	if e.PositionID == "" {
		return "dividend reconciliation failed: " + e.Reason
	}
	return fmt.Sprintf("dividend reconciliation failed for position %s: %s", e.PositionID, e.Reason)
}

// IsFatal reports whether err belongs to the taxonomy of errors that must abort a run.
func IsFatal(err error) bool {
	var (
		dataErr      *DataInconsistencyError
		unknownErr   *UnknownTransactionTypeError
		missingErr   *MissingOpenPositionError
		ambiguousErr *AmbiguousInstrumentError
		unresolved   *UnresolvedInstrumentError
		rateErr      *RateNotFoundError
		reconcileErr *ReconciliationError
	)
	return errors.As(err, &dataErr) || errors.As(err, &unknownErr) || errors.As(err, &missingErr) ||
		errors.As(err, &ambiguousErr) || errors.As(err, &unresolved) || errors.As(err, &rateErr) ||
		errors.As(err, &reconcileErr)
}
