package processors

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/pitfolio/src/config"
	"github.com/username/pitfolio/src/logger"
	"github.com/username/pitfolio/src/models"
)

func activity(id, typ, details, amount string, date time.Time) models.ActivityRow {
	return models.ActivityRow{Date: date, Type: typ, Details: details, Amount: dec(amount), PositionID: models.PositionID(id)}
}

func closedRow(id, action, typ, amount, profit string, open, close time.Time) models.ClosedPositionRow {
	return models.ClosedPositionRow{
		PositionID: models.PositionID(id),
		Action:     action,
		Type:       typ,
		Amount:     dec(amount),
		Profit:     dec(profit),
		OpenDate:   open,
		CloseDate:  close,
	}
}

func newTestPositionProcessor(resolver *fakeResolver, year int) PositionProcessor {
	return NewPositionProcessor(resolver, PositionOptions{
		TaxYear:       year,
		CryptoSymbols: config.DefaultPolicy().CryptoSymbols,
		IgnoredTypes:  []string{"Quarterly Bonus"},
	})
}

func usResolver() *fakeResolver {
	return &fakeResolver{
		bySymbol: map[string]models.Country{
			"AAPL/USD": models.RealCountry("US"),
			"BP.L":     models.RealCountry("GB"),
			"Bitcoin":  models.CryptoCountry,
		},
		byName: map[string]models.Country{},
	}
}

func appleStatement() *models.Statement {
	return &models.Statement{
		Activity: []models.ActivityRow{
			activity("1", "Open Position", "AAPL/USD", "1000", day(2021, 3, 2)),
			activity("1", "Profit/Loss of Trade", "AAPL/USD", "200", day(2021, 6, 2)),
		},
		Closed: []models.ClosedPositionRow{
			closedRow("1", "Buy Apple", "Stocks", "1000", "200", day(2021, 3, 2), day(2021, 6, 2)),
		},
	}
}

func TestProcessStockPosition(t *testing.T) {
	resolver := usResolver()
	entries, err := newTestPositionProcessor(resolver, 0).Process(context.Background(), appleStatement())
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	assert.Equal(t, models.KindStock, e.Kind)
	assert.Equal(t, models.RealCountry("US"), e.Country)
	assert.Equal(t, models.StatusClosed, e.Status)
	assert.True(t, e.OpenAmount.Equal(dec("1000")))
	assert.True(t, e.CloseAmount.Equal(dec("1200")))
	assert.True(t, e.Profit().Equal(e.EquityChange))
	assert.Equal(t, "USD", e.Currency)
	assert.False(t, e.IsCfd)

	require.Len(t, resolver.queries, 1)
	assert.Equal(t, models.InstrumentQuery{DisplayName: "Buy Apple", Symbol: "AAPL/USD"}, resolver.queries[0])
}

func TestProcessCfdPositions(t *testing.T) {
	stmt := &models.Statement{
		Activity: []models.ActivityRow{
			activity("10", "Open Position", "GOLD", "500", day(2021, 2, 1)),
			activity("11", "Open Position", "OIL", "300", day(2021, 4, 1)),
		},
		Closed: []models.ClosedPositionRow{
			closedRow("10", "Buy Gold", "CFD", "500", "30", day(2021, 2, 1), day(2021, 2, 10)),
			closedRow("11", "Sell Oil", "CFD", "300", "-50", day(2021, 4, 1), day(2021, 5, 1)),
		},
	}
	resolver := usResolver()
	entries, err := newTestPositionProcessor(resolver, 0).Process(context.Background(), stmt)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	gain := entries[0]
	assert.Equal(t, models.CfdCountry, gain.Country)
	assert.True(t, gain.OpenAmount.IsZero())
	assert.True(t, gain.CloseAmount.Equal(dec("30")))
	assert.Equal(t, day(2021, 2, 1), gain.OpenDate)

	loss := entries[1]
	assert.True(t, loss.OpenAmount.Equal(dec("50")))
	assert.True(t, loss.CloseAmount.IsZero())
	assert.Equal(t, day(2021, 5, 1), loss.OpenDate, "dates swapped")
	assert.Equal(t, day(2021, 4, 1), loss.CloseDate)
	assert.True(t, loss.Profit().Equal(dec("-50")))

	assert.Empty(t, resolver.queries, "CFDs never consult the resolver")
}

func TestProcessSellOnNonCfd(t *testing.T) {
	stmt := appleStatement()
	stmt.Closed[0].Action = "Sell Apple"

	_, err := newTestPositionProcessor(usResolver(), 0).Process(context.Background(), stmt)
	var inconsistent *models.DataInconsistencyError
	require.ErrorAs(t, err, &inconsistent)
	assert.Equal(t, models.PositionID("1"), inconsistent.PositionID)
}

func TestProcessUnknownTransactionType(t *testing.T) {
	stmt := appleStatement()
	stmt.Activity = append(stmt.Activity, activity("", "Quantum Rebate", "", "5", day(2021, 7, 1)))

	_, err := newTestPositionProcessor(usResolver(), 0).Process(context.Background(), stmt)
	var unknown *models.UnknownTransactionTypeError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "Quantum Rebate", unknown.Type)
}

func TestProcessIgnoredTypes(t *testing.T) {
	stmt := appleStatement()
	stmt.Activity = append(stmt.Activity,
		activity("", "Deposit", "", "5000", day(2021, 1, 5)),
		activity("", "Edit Stop Loss", "AAPL/USD", "0", day(2021, 3, 3)),
		activity("", "Quarterly Bonus", "", "10", day(2021, 3, 31)),
	)
	entries, err := newTestPositionProcessor(usResolver(), 0).Process(context.Background(), stmt)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestProcessFees(t *testing.T) {
	stmt := appleStatement()
	fee := activity("1", "Rollover Fee", "Weekend fee", "-0.35", day(2021, 3, 6))
	fee.RealizedEquityChange, fee.HasEquityChange = dec("-0.35"), true
	refund := activity("1", "Rollover Fee", "Over night fee", "0.10", day(2021, 3, 7))
	stmt.Activity = append(stmt.Activity, fee, refund, activity("1", "SDRT", "AAPL/USD", "-1.50", day(2021, 3, 2)))

	entries, err := newTestPositionProcessor(usResolver(), 0).Process(context.Background(), stmt)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	for _, e := range entries[1:] {
		assert.Equal(t, models.KindFee, e.Kind)
		assert.Equal(t, models.RealCountry("US"), e.Country)
		assert.Equal(t, "AAPL/USD", e.Symbol)
		assert.Equal(t, e.OpenDate, e.CloseDate)
	}
	assert.True(t, entries[2].Amount.Equal(dec("0.10")), "positive fee kept as a refund")
}

func TestProcessFeeEquityMismatch(t *testing.T) {
	stmt := appleStatement()
	fee := activity("1", "Rollover Fee", "Weekend fee", "-0.35", day(2021, 3, 6))
	fee.RealizedEquityChange, fee.HasEquityChange = dec("-0.30"), true
	stmt.Activity = append(stmt.Activity, fee)

	_, err := newTestPositionProcessor(usResolver(), 0).Process(context.Background(), stmt)
	var inconsistent *models.DataInconsistencyError
	assert.ErrorAs(t, err, &inconsistent)
}

func TestProcessFeeOnCryptoIsFatal(t *testing.T) {
	stmt := &models.Statement{
		Activity: []models.ActivityRow{
			activity("5", "Open Position", "BTC/USD", "100", day(2021, 1, 10)),
			activity("5", "Profit/Loss of Trade", "BTC/USD", "40", day(2021, 2, 10)),
			activity("5", "Overnight fee", "BTC/USD", "-0.20", day(2021, 1, 11)),
		},
		Closed: []models.ClosedPositionRow{
			closedRow("5", "Buy Bitcoin", "Crypto", "100", "40", day(2021, 1, 10), day(2021, 2, 10)),
		},
	}
	_, err := newTestPositionProcessor(usResolver(), 0).Process(context.Background(), stmt)
	var inconsistent *models.DataInconsistencyError
	require.ErrorAs(t, err, &inconsistent)
	assert.Contains(t, inconsistent.Reason, "crypto")
}

func TestProcessDividendsAndCashEvents(t *testing.T) {
	stmt := appleStatement()
	stmt.Activity = append(stmt.Activity,
		activity("1", "Rollover Fee", "Payment caused by dividend", "0.85", day(2021, 5, 15)),
		activity("1", "Dividend", "AAPL/USD", "-0.20", day(2021, 5, 16)),
		activity("", "Interest Payment", "", "1.25", day(2021, 5, 31)),
		activity("1", "Adjustment", "AAPL/USD", "2.00", day(2021, 4, 1)),
		activity("1", "Index price adjustment", "AAPL/USD", "-0.50", day(2021, 4, 2)),
		activity("", "Refund", "", "3.00", day(2021, 4, 3)),
	)

	entries, err := newTestPositionProcessor(usResolver(), 0).Process(context.Background(), stmt)
	require.NoError(t, err)
	require.Len(t, entries, 7)

	assert.Equal(t, models.KindDividend, entries[1].Kind)
	assert.Equal(t, models.DividendCountry, entries[1].Country)

	assert.Equal(t, models.KindFee, entries[2].Kind, "negative dividend folded into fee")
	assert.Equal(t, models.RealCountry("US"), entries[2].Country)

	assert.Equal(t, models.KindInterest, entries[3].Kind)
	assert.Equal(t, models.CfdCountry, entries[3].Country)

	assert.Equal(t, models.KindAdjustment, entries[4].Kind)
	assert.Equal(t, models.RealCountry("US"), entries[4].Country)
	assert.Equal(t, models.KindIndexAdjustment, entries[5].Kind)

	assert.Equal(t, models.KindRefund, entries[6].Kind)
	assert.Equal(t, models.UnknownCountry, entries[6].Country)
}

func TestProcessOpenOnlyPositions(t *testing.T) {
	stmt := appleStatement()
	stmt.Activity = append(stmt.Activity,
		activity("20", "Open Position", "ETH/USD", "250", day(2021, 11, 1)),
		activity("21", "Open Position", "TSLA/USD", "700", day(2021, 11, 2)),
	)

	entries, err := newTestPositionProcessor(usResolver(), 0).Process(context.Background(), stmt)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	held := entries[1]
	assert.Equal(t, models.KindCrypto, held.Kind)
	assert.Equal(t, models.CryptoCountry, held.Country)
	assert.Equal(t, models.StatusOpen, held.Status)
	assert.True(t, held.OpenAmount.Equal(dec("250")))
	assert.True(t, held.CloseAmount.IsZero())
}

func TestProcessOpenCryptoCfd(t *testing.T) {
	open := activity("7", "Open Position", "BTC/USD", "500", day(2021, 9, 1))
	open.AssetType = "CFD"
	fee := activity("7", "Rollover Fee", "Over night fee", "-1", day(2021, 9, 2))
	fee.AssetType = "CFD"
	stmt := &models.Statement{Activity: []models.ActivityRow{open, fee}}

	entries, err := newTestPositionProcessor(usResolver(), 0).Process(context.Background(), stmt)
	require.NoError(t, err)
	require.Len(t, entries, 1, "an open CFD is not a crypto purchase")

	assert.Equal(t, models.KindFee, entries[0].Kind)
	assert.Equal(t, models.CfdCountry, entries[0].Country)
	assert.True(t, entries[0].IsCfd)
	assert.True(t, entries[0].Amount.Equal(dec("-1")))
}

func TestProcessLogsThroughContextLogger(t *testing.T) {
	var buf bytes.Buffer
	ctx := logger.WithContext(context.Background(), slog.New(slog.NewTextHandler(&buf, nil)).With("path", "statement.xlsx"))

	_, err := newTestPositionProcessor(usResolver(), 0).Process(ctx, appleStatement())
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Positions reconciled")
	assert.Contains(t, buf.String(), "path=statement.xlsx")
}

func TestProcessProfitLossWithoutClosedRow(t *testing.T) {
	stmt := appleStatement()
	stmt.Activity = append(stmt.Activity, activity("99", "Profit/Loss of Trade", "TSLA/USD", "12", day(2021, 8, 1)))

	_, err := newTestPositionProcessor(usResolver(), 0).Process(context.Background(), stmt)
	var inconsistent *models.DataInconsistencyError
	require.ErrorAs(t, err, &inconsistent)
	assert.Equal(t, models.PositionID("99"), inconsistent.PositionID)
}

func TestProcessMissingOpeningRecord(t *testing.T) {
	stmt := &models.Statement{
		Closed: []models.ClosedPositionRow{
			closedRow("30", "Buy Bitcoin", "Crypto", "100", "25", day(2021, 1, 10), day(2021, 2, 10)),
		},
	}
	entries, err := newTestPositionProcessor(usResolver(), 0).Process(context.Background(), stmt)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Synthesized)
	assert.Equal(t, models.KindCrypto, entries[0].Kind)
	assert.True(t, entries[0].CloseAmount.Equal(dec("125")))

	stmt.Closed = append(stmt.Closed, closedRow("31", "Buy BP", "Stocks", "100", "5", day(2021, 1, 10), day(2021, 2, 10)))
	resolver := usResolver()
	resolver.byName["Buy BP"] = models.RealCountry("GB")
	_, err = newTestPositionProcessor(resolver, 0).Process(context.Background(), stmt)
	var missing *models.MissingOpenPositionError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, models.PositionID("31"), missing.PositionID)
}

func TestProcessCrossCheck(t *testing.T) {
	stmt := appleStatement()
	stmt.Activity[1].Amount = dec("150")

	_, err := newTestPositionProcessor(usResolver(), 0).Process(context.Background(), stmt)
	var inconsistent *models.DataInconsistencyError
	require.ErrorAs(t, err, &inconsistent)
	assert.Contains(t, inconsistent.Reason, "Profit/Loss of Trade")

	stmt = appleStatement()
	stmt.Activity = stmt.Activity[:1]
	_, err = newTestPositionProcessor(usResolver(), 0).Process(context.Background(), stmt)
	require.ErrorAs(t, err, &inconsistent)
}

func TestProcessDuplicateClosedRow(t *testing.T) {
	stmt := appleStatement()
	stmt.Closed = append(stmt.Closed, stmt.Closed[0])

	_, err := newTestPositionProcessor(usResolver(), 0).Process(context.Background(), stmt)
	var inconsistent *models.DataInconsistencyError
	assert.ErrorAs(t, err, &inconsistent)
}

func TestProcessTaxYearFilter(t *testing.T) {
	stmt := appleStatement()
	stmt.Activity = append(stmt.Activity,
		activity("2", "Open Position", "AAPL/USD", "100", day(2020, 12, 1)),
		activity("2", "Profit/Loss of Trade", "AAPL/USD", "10", day(2021, 1, 4)),
		activity("", "Interest Payment", "", "1", day(2020, 12, 31)),
	)
	stmt.Closed = append(stmt.Closed, closedRow("2", "Buy Apple", "Stocks", "100", "10", day(2020, 12, 1), day(2021, 1, 4)))

	entries, err := newTestPositionProcessor(usResolver(), 2021).Process(context.Background(), stmt)
	require.NoError(t, err)
	require.Len(t, entries, 2, "interest of 2020 dropped, position closed in 2021 kept")
	for _, e := range entries {
		assert.Equal(t, 2021, e.RealizedAt().Year())
	}
}

func TestProcessResolverErrorIsFatal(t *testing.T) {
	resolver := &fakeResolver{err: &models.AmbiguousInstrumentError{
		Query:     models.InstrumentQuery{Symbol: "AAPL/USD"},
		Countries: []models.Country{models.RealCountry("US"), models.RealCountry("DE")},
	}}
	_, err := newTestPositionProcessor(resolver, 0).Process(context.Background(), appleStatement())
	var ambiguous *models.AmbiguousInstrumentError
	require.ErrorAs(t, err, &ambiguous)
	assert.True(t, models.IsFatal(err))
}
