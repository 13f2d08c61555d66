package processors

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/username/pitfolio/src/logger"
	"github.com/username/pitfolio/src/models"
	"github.com/username/pitfolio/src/utils"
)

// Activity log types handled by the engine, lower-cased.
const (
	typeOpenPosition   = "open position"
	typeProfitLoss     = "profit/loss of trade"
	typePositionClosed = "position closed"
	typeRolloverFee    = "rollover fee"
	typeOvernightFee   = "overnight fee"
	typeWeekendFee     = "weekend fee"
	typeSDRT           = "sdrt"
	typeDividend       = "dividend"
	typeInterest       = "interest payment"
	typeAdjustment     = "adjustment"
	typeIndexAdjust    = "index price adjustment"
	typeRefund         = "refund"
)

// Details of a "Rollover Fee" row, lower-cased.
var (
	rolloverFeeDetails      = []string{"weekend fee", "over night fee", "overnight fee"}
	rolloverDividendDetails = "payment caused by dividend"
)

// DefaultIgnoredTypes are activity types that never carry taxable value.
var DefaultIgnoredTypes = []string{
	"Deposit",
	"Withdraw Request",
	"Withdraw Request Cancelled",
	"Withdraw Fee",
	"Start Copy",
	"Stop Copy",
	"Account balance to mirror",
	"Mirror balance to account",
	"Edit Stop Loss",
	"Edit Take Profit",
}

// PositionOptions parameterize the reconciliation engine.
type PositionOptions struct {
	TaxYear       int // 0 keeps every year
	ResolveMode   models.ResolveMode
	CryptoSymbols []string
	IgnoredTypes  []string // added to DefaultIgnoredTypes
	Currency      string
}

type positionProcessorImpl struct {
	resolver CountryResolver
	opts     PositionOptions
	crypto   map[string]bool
	ignored  map[string]bool
}

// NewPositionProcessor creates the engine. Countries of non-CFD, non-crypto
// positions come from resolver.
func NewPositionProcessor(resolver CountryResolver, opts PositionOptions) PositionProcessor {
	if opts.Currency == "" {
		opts.Currency = "USD"
	}
	p := &positionProcessorImpl{
		resolver: resolver,
		opts:     opts,
		crypto:   make(map[string]bool, len(opts.CryptoSymbols)),
		ignored:  make(map[string]bool, len(DefaultIgnoredTypes)+len(opts.IgnoredTypes)),
	}
	for _, s := range opts.CryptoSymbols {
		p.crypto[normalizeSymbol(s)] = true
	}
	for _, t := range append(append([]string{}, DefaultIgnoredTypes...), opts.IgnoredTypes...) {
		p.ignored[strings.ToLower(strings.TrimSpace(t))] = true
	}
	return p
}

func normalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// position is what the engine knows about one position id.
type position struct {
	id       models.PositionID
	symbol   string
	isCfd    bool
	kind     models.Kind
	country  models.Country
	closed   *models.ClosedPositionRow
	activity []models.ActivityRow
}

// run holds the state of a single Process call.
type run struct {
	*positionProcessorImpl
	activity  map[models.PositionID][]models.ActivityRow
	closed    map[models.PositionID]*models.ClosedPositionRow
	positions map[models.PositionID]*position
}

// Process joins the activity log and the closed positions log by position id and
// classifies every closed position and every cash event into entries.
func (p *positionProcessorImpl) Process(ctx context.Context, stmt *models.Statement) ([]models.ClassifiedEntry, error) {
	r := &run{
		positionProcessorImpl: p,
		activity:              make(map[models.PositionID][]models.ActivityRow),
		closed:                make(map[models.PositionID]*models.ClosedPositionRow, len(stmt.Closed)),
		positions:             make(map[models.PositionID]*position),
	}
	for _, row := range stmt.Activity {
		if row.PositionID != "" {
			r.activity[row.PositionID] = append(r.activity[row.PositionID], row)
		}
	}
	for i := range stmt.Closed {
		row := &stmt.Closed[i]
		if _, dup := r.closed[row.PositionID]; dup {
			return nil, &models.DataInconsistencyError{PositionID: row.PositionID, Reason: "position closed twice in the closed positions log"}
		}
		r.closed[row.PositionID] = row
	}

	var entries []models.ClassifiedEntry
	for i := range stmt.Closed {
		entry, err := r.closedEntry(ctx, &stmt.Closed[i])
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	for _, row := range stmt.Activity {
		entry, ok, err := r.activityEntry(ctx, row)
		if err != nil {
			return nil, err
		}
		if ok {
			entries = append(entries, entry)
		}
	}

	if err := r.crossCheck(entries); err != nil {
		return nil, err
	}

	if p.opts.TaxYear != 0 {
		kept := entries[:0]
		for _, e := range entries {
			if e.RealizedAt().Year() == p.opts.TaxYear {
				kept = append(kept, e)
			}
		}
		logger.FromContext(ctx).Info("Entries filtered by tax year", "taxYear", p.opts.TaxYear, "kept", len(kept), "total", len(entries))
		entries = kept
	}

	logger.FromContext(ctx).Info("Positions reconciled", "closed", len(stmt.Closed), "activity", len(stmt.Activity), "entries", len(entries))
	return entries, nil
}

// closedEntry splits a closed position into its cost and revenue legs.
func (r *run) closedEntry(ctx context.Context, row *models.ClosedPositionRow) (models.ClassifiedEntry, error) {
	pos, err := r.position(ctx, row.PositionID)
	if err != nil {
		return models.ClassifiedEntry{}, err
	}
	if row.IsSell() && !pos.isCfd {
		return models.ClassifiedEntry{}, &models.DataInconsistencyError{PositionID: row.PositionID, Reason: "sell action on a position that is not a CFD"}
	}

	entry := models.ClassifiedEntry{
		ID:           row.PositionID,
		Kind:         pos.kind,
		Country:      pos.country,
		Status:       models.StatusClosed,
		Symbol:       pos.symbol,
		OpenDate:     row.OpenDate,
		CloseDate:    row.CloseDate,
		Currency:     r.opts.Currency,
		IsCfd:        pos.isCfd,
		EquityChange: row.Profit,
	}

	if len(pos.activity) == 0 {
		if pos.kind != models.KindCrypto {
			return models.ClassifiedEntry{}, &models.MissingOpenPositionError{PositionID: row.PositionID, Symbol: pos.symbol}
		}
		logger.FromContext(ctx).Warn("Closed crypto position has no activity rows, building it from the closed positions log",
			"positionID", row.PositionID, "symbol", pos.symbol)
		entry.Synthesized = true
	}

	switch {
	case !pos.isCfd:
		entry.OpenAmount = row.Amount
		entry.CloseAmount = row.Amount.Add(row.Profit)
	case row.Profit.IsPositive():
		entry.OpenAmount = decimal.Zero
		entry.CloseAmount = row.Profit
	default:
		// a loss is a cost realized when the contract was closed
		entry.OpenAmount = row.Profit.Neg()
		entry.CloseAmount = decimal.Zero
		entry.OpenDate, entry.CloseDate = row.CloseDate, row.OpenDate
	}
	return entry, nil
}

// activityEntry classifies one row of the activity log. Rows belonging to closed
// positions and ignorable rows yield no entry.
func (r *run) activityEntry(ctx context.Context, row models.ActivityRow) (models.ClassifiedEntry, bool, error) {
	typ := strings.ToLower(strings.TrimSpace(row.Type))
	details := strings.ToLower(strings.TrimSpace(row.Details))
	_, hasClosed := r.closed[row.PositionID]

	switch {
	case typ == typeOpenPosition:
		if hasClosed {
			return models.ClassifiedEntry{}, false, nil
		}
		return r.openOnlyEntry(ctx, row)

	case typ == typeProfitLoss || typ == typePositionClosed:
		if !hasClosed {
			return models.ClassifiedEntry{}, false, &models.DataInconsistencyError{PositionID: row.PositionID, Reason: fmt.Sprintf("%q row without a closed position", row.Type)}
		}
		return models.ClassifiedEntry{}, false, nil

	case typ == typeRolloverFee && details == rolloverDividendDetails, typ == typeDividend:
		return r.dividendEntry(ctx, row)

	case typ == typeRolloverFee && slices.Contains(rolloverFeeDetails, details),
		typ == typeOvernightFee, typ == typeWeekendFee, typ == typeSDRT:
		entry, err := r.feeEntry(ctx, row)
		return entry, err == nil, err

	case typ == typeInterest:
		return r.cashEntry(row, models.KindInterest, models.CfdCountry, false), true, nil

	case typ == typeAdjustment, typ == typeIndexAdjust, typ == typeRefund:
		kind := map[string]models.Kind{
			typeAdjustment:  models.KindAdjustment,
			typeIndexAdjust: models.KindIndexAdjustment,
			typeRefund:      models.KindRefund,
		}[typ]
		country, isCfd, err := r.cashCountry(ctx, row)
		if err != nil {
			return models.ClassifiedEntry{}, false, err
		}
		return r.cashEntry(row, kind, country, isCfd), true, nil

	case r.ignored[typ]:
		return models.ClassifiedEntry{}, false, nil
	}

	return models.ClassifiedEntry{}, false, &models.UnknownTransactionTypeError{PositionID: row.PositionID, Type: row.Type, Details: row.Details}
}

// openOnlyEntry keeps a crypto purchase that has not been sold yet. Other still
// open positions, crypto CFDs included, are not taxable.
func (r *run) openOnlyEntry(ctx context.Context, row models.ActivityRow) (models.ClassifiedEntry, bool, error) {
	if !r.crypto[normalizeSymbol(row.Details)] || strings.EqualFold(strings.TrimSpace(row.AssetType), "CFD") {
		return models.ClassifiedEntry{}, false, nil
	}
	if row.PositionID != "" {
		pos, err := r.position(ctx, row.PositionID)
		if err != nil {
			return models.ClassifiedEntry{}, false, err
		}
		if pos.isCfd || pos.kind != models.KindCrypto {
			return models.ClassifiedEntry{}, false, nil
		}
	}
	logger.FromContext(ctx).Warn("Crypto bought but not sold, assuming it is not a CFD", "positionID", row.PositionID, "symbol", row.Details)
	return models.ClassifiedEntry{
		ID:          row.PositionID,
		Kind:        models.KindCrypto,
		Country:     models.CryptoCountry,
		Status:      models.StatusOpen,
		Symbol:      row.Details,
		OpenDate:    row.Date,
		CloseDate:   row.Date,
		OpenAmount:  row.Amount,
		CloseAmount: decimal.Zero,
		Currency:    r.opts.Currency,
	}, true, nil
}

func (r *run) feeEntry(ctx context.Context, row models.ActivityRow) (models.ClassifiedEntry, error) {
	if row.HasEquityChange && !row.Amount.Equal(row.RealizedEquityChange) {
		return models.ClassifiedEntry{}, &models.DataInconsistencyError{
			PositionID: row.PositionID,
			Reason:     fmt.Sprintf("fee amount %s differs from realized equity change %s", row.Amount, row.RealizedEquityChange),
		}
	}
	country, isCfd, err := r.cashCountry(ctx, row)
	if err != nil {
		return models.ClassifiedEntry{}, err
	}
	if country.IsCrypto() {
		return models.ClassifiedEntry{}, &models.DataInconsistencyError{PositionID: row.PositionID, Reason: "fee charged on a crypto position, it should be marked as CFD"}
	}
	return r.cashEntry(row, models.KindFee, country, isCfd), nil
}

// dividendEntry books a positive payment as a dividend and a clawback as a fee.
func (r *run) dividendEntry(ctx context.Context, row models.ActivityRow) (models.ClassifiedEntry, bool, error) {
	if row.Amount.IsPositive() {
		return r.cashEntry(row, models.KindDividend, models.DividendCountry, false), true, nil
	}
	entry, err := r.feeEntry(ctx, row)
	return entry, err == nil, err
}

func (r *run) cashEntry(row models.ActivityRow, kind models.Kind, country models.Country, isCfd bool) models.ClassifiedEntry {
	symbol := row.Details
	if pos, ok := r.positions[row.PositionID]; ok {
		symbol = pos.symbol
	}
	return models.ClassifiedEntry{
		ID:           row.PositionID,
		Kind:         kind,
		Country:      country,
		Status:       models.StatusClosed,
		Symbol:       symbol,
		OpenDate:     row.Date,
		CloseDate:    row.Date,
		Amount:       row.Amount,
		Currency:     r.opts.Currency,
		IsCfd:        isCfd,
		EquityChange: row.Amount,
	}
}

// cashCountry is the country of the position a cash event belongs to. Events
// without a position are left Unknown.
func (r *run) cashCountry(ctx context.Context, row models.ActivityRow) (models.Country, bool, error) {
	if row.PositionID == "" {
		return models.UnknownCountry, false, nil
	}
	pos, err := r.position(ctx, row.PositionID)
	if err != nil {
		return models.UnknownCountry, false, err
	}
	return pos.country, pos.isCfd, nil
}

// position determines symbol, CFD flag, kind and country of a position once.
func (r *run) position(ctx context.Context, id models.PositionID) (*position, error) {
	if pos, ok := r.positions[id]; ok {
		return pos, nil
	}
	pos := &position{id: id, closed: r.closed[id], activity: r.activity[id]}
	pos.symbol = underlyingSymbol(pos)

	query := models.InstrumentQuery{Symbol: pos.symbol}
	if pos.closed != nil {
		pos.isCfd = pos.closed.IsCfd()
		query.DisplayName = pos.closed.Action
		query.ISIN = pos.closed.ISIN
	} else {
		for _, row := range pos.activity {
			if strings.EqualFold(strings.TrimSpace(row.AssetType), "CFD") {
				pos.isCfd = true
			}
		}
	}

	switch {
	case pos.isCfd:
		pos.kind, pos.country = models.KindStock, models.CfdCountry
	case r.crypto[normalizeSymbol(pos.symbol)]:
		pos.kind, pos.country = models.KindCrypto, models.CryptoCountry
	default:
		country, err := r.resolver.Resolve(ctx, query, r.opts.ResolveMode)
		if err != nil {
			return nil, fmt.Errorf("position %s: %w", id, err)
		}
		pos.kind, pos.country = models.KindStock, country
		if country.IsCrypto() {
			pos.kind = models.KindCrypto
		}
	}

	r.positions[id] = pos
	logger.FromContext(ctx).Debug("Position classified", "positionID", id, "symbol", pos.symbol, "kind", pos.kind, "country", pos.country, "cfd", pos.isCfd)
	return pos, nil
}

// underlyingSymbol prefers the ticker of the opening row, then of the closing
// row, then the instrument name of the closed positions log.
func underlyingSymbol(pos *position) string {
	for _, want := range []string{typeOpenPosition, typeProfitLoss, typePositionClosed} {
		for _, row := range pos.activity {
			if strings.EqualFold(strings.TrimSpace(row.Type), want) && row.Details != "" {
				return row.Details
			}
		}
	}
	if pos.closed != nil {
		return pos.closed.InstrumentName()
	}
	if len(pos.activity) > 0 {
		return pos.activity[0].Details
	}
	return ""
}

// crossCheck verifies that every closed stock or crypto position agrees with the
// profit booked in the activity log.
func (r *run) crossCheck(entries []models.ClassifiedEntry) error {
	for _, e := range entries {
		if e.Status != models.StatusClosed || e.Kind.IsCashEvent() || e.IsCfd || e.Synthesized {
			continue
		}
		if !e.Profit().Equal(e.EquityChange) {
			return &models.DataInconsistencyError{
				PositionID: e.ID,
				Reason:     fmt.Sprintf("close minus open %s differs from reported profit %s", e.Profit(), e.EquityChange),
			}
		}
		booked, found := decimal.Zero, false
		for _, row := range r.activity[e.ID] {
			if strings.EqualFold(strings.TrimSpace(row.Type), typeProfitLoss) {
				booked = booked.Add(row.Amount)
				found = true
			}
		}
		if !found {
			return &models.DataInconsistencyError{PositionID: e.ID, Reason: "closed position has no Profit/Loss of Trade row"}
		}
		if !utils.RoundMoney(booked).Equal(utils.RoundMoney(e.EquityChange)) {
			return &models.DataInconsistencyError{
				PositionID: e.ID,
				Reason:     fmt.Sprintf("Profit/Loss of Trade %s differs from closed position profit %s", booked, e.EquityChange),
			}
		}
	}
	return nil
}
