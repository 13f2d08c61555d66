// Package etoro reads eToro account statements into validated statement rows.
package etoro

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/username/pitfolio/src/logger"
	"github.com/username/pitfolio/src/models"
)

// Sheet names as exported by the broker, newest spelling first.
var (
	ActivitySheets  = []string{"Account Activity", "Transactions Report"}
	ClosedSheets    = []string{"Closed Positions"}
	DividendSheets  = []string{"Dividends"}
	SummarySheets   = []string{"Financial Summary", "Account Summary"}
	CatalogSheets   = []string{"Instruments Offered", "Instruments"}
	activityLayouts = []string{"2006-01-02 15:04:05", "02/01/2006 15:04:05", "02/01/2006 15:04", "2006-01-02"}
	closedLayouts   = []string{"02/01/2006 15:04:05", "02-01-2006 15:04", "02/01/2006 15:04", "2006-01-02 15:04:05"}
	dividendLayouts = []string{"02/01/2006", "02/01/2006 15:04:05", "2006-01-02", "2006-01-02 15:04:05"}
)

// Parser implements the eToro statement layout.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Parse loads every sheet of the statement. Account activity and closed positions
// are mandatory, dividends and the financial summary are optional.
func (p *Parser) Parse(src models.TableSource) (*models.Statement, error) {
	activitySheet, err := requireSheet(src, ActivitySheets)
	if err != nil {
		return nil, err
	}
	closedSheet, err := requireSheet(src, ClosedSheets)
	if err != nil {
		return nil, err
	}

	stmt := &models.Statement{}
	if stmt.Activity, err = p.parseActivity(src, activitySheet); err != nil {
		return nil, err
	}
	if stmt.Closed, err = p.parseClosed(src, closedSheet); err != nil {
		return nil, err
	}
	if name, ok := models.FindSheet(src, DividendSheets...); ok {
		if stmt.Dividends, err = p.parseDividends(src, name); err != nil {
			return nil, err
		}
	}
	if name, ok := models.FindSheet(src, SummarySheets...); ok {
		if stmt.Summary, err = p.parseSummary(src, name); err != nil {
			return nil, err
		}
	}

	logger.L.Info("Statement parsed",
		"activity", len(stmt.Activity),
		"closed", len(stmt.Closed),
		"dividends", len(stmt.Dividends),
		"summary", len(stmt.Summary))
	return stmt, nil
}

func (p *Parser) parseActivity(src models.TableSource, sheet string) ([]models.ActivityRow, error) {
	records, err := src.Table(sheet)
	if err != nil {
		return nil, err
	}
	rows := make([]models.ActivityRow, 0, len(records))
	for _, rec := range records {
		row := models.ActivityRow{
			Row:        rec.Row,
			Type:       rec.String("Type"),
			Details:    rec.String("Details"),
			PositionID: models.NormalizePositionID(rec.String("Position ID")),
			AssetType:  rec.String("Asset type"),
		}
		if row.Date, err = rec.Time("Date", activityLayouts...); err != nil {
			return nil, fmt.Errorf("%s: %w", sheet, err)
		}
		if row.Amount, err = rec.Decimal("Amount"); err != nil {
			return nil, fmt.Errorf("%s: %w", sheet, err)
		}
		if rec.Has("Realized Equity Change") {
			change, err := rec.Decimal("Realized Equity Change")
			switch {
			case err == nil:
				row.RealizedEquityChange = change
				row.HasEquityChange = true
			case !errors.Is(err, models.ErrEmptyValue):
				return nil, fmt.Errorf("%s: %w", sheet, err)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (p *Parser) parseClosed(src models.TableSource, sheet string) ([]models.ClosedPositionRow, error) {
	records, err := src.Table(sheet)
	if err != nil {
		return nil, err
	}
	rows := make([]models.ClosedPositionRow, 0, len(records))
	for _, rec := range records {
		id := models.NormalizePositionID(rec.String("Position ID"))
		if id == "" {
			// totals line at the bottom of the sheet
			continue
		}
		row := models.ClosedPositionRow{
			Row:        rec.Row,
			PositionID: id,
			Action:     rec.String("Action"),
			ISIN:       rec.String("ISIN"),
		}
		switch {
		case rec.Has("Type"):
			row.Type = rec.String("Type")
		case rec.Has("Is Real"):
			row.Type = rec.String("Is Real")
		default:
			return nil, fmt.Errorf("%s: column %q: %w", sheet, "Type", models.ErrMissingColumn)
		}
		if row.Amount, err = rec.Decimal("Amount"); err != nil {
			return nil, fmt.Errorf("%s: %w", sheet, err)
		}
		if row.Profit, err = rec.Decimal(firstColumn(rec, "Profit", "Profit(USD)", "Profit (USD)")); err != nil {
			return nil, fmt.Errorf("%s: %w", sheet, err)
		}
		if row.OpenDate, err = rec.Time("Open Date", closedLayouts...); err != nil {
			return nil, fmt.Errorf("%s: %w", sheet, err)
		}
		if row.CloseDate, err = rec.Time("Close Date", closedLayouts...); err != nil {
			return nil, fmt.Errorf("%s: %w", sheet, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (p *Parser) parseDividends(src models.TableSource, sheet string) ([]models.DividendTaxRecord, error) {
	records, err := src.Table(sheet)
	if err != nil {
		return nil, err
	}
	rows := make([]models.DividendTaxRecord, 0, len(records))
	for _, rec := range records {
		row := models.DividendTaxRecord{
			PositionID:     models.NormalizePositionID(rec.String("Position ID")),
			InstrumentName: rec.String("Instrument Name"),
			ISIN:           rec.String("ISIN"),
		}
		if row.PaymentDate, err = rec.Time("Date of Payment", dividendLayouts...); err != nil {
			return nil, fmt.Errorf("%s: %w", sheet, err)
		}
		if row.NetAmount, err = rec.Decimal(firstColumn(rec, "Net Dividend Received (USD)", "Net Dividend Received")); err != nil {
			return nil, fmt.Errorf("%s: %w", sheet, err)
		}
		if row.WithholdingRate, err = withholdingRate(rec); err != nil {
			return nil, fmt.Errorf("%s: %w", sheet, err)
		}
		amountCol := firstColumn(rec, "Withholding Tax Amount (USD)", "Withholding Tax Amount")
		if row.WithholdingAmount, err = optionalDecimal(rec, amountCol); err != nil {
			return nil, fmt.Errorf("%s: %w", sheet, err)
		}
		if cell, ok := rec.Cell(amountCol); ok && !cell.IsEmpty() {
			row.HasWithholdingAmount = true
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// parseSummary reads label/amount pairs. Section headers without an amount are
// skipped.
func (p *Parser) parseSummary(src models.TableSource, sheet string) ([]models.SummaryRow, error) {
	records, err := src.Table(sheet)
	if err != nil {
		return nil, err
	}
	rows := make([]models.SummaryRow, 0, len(records))
	for _, rec := range records {
		cols := rec.Columns()
		if len(cols) < 2 {
			continue
		}
		label := rec.String(firstColumn(rec, "Name", "Description", cols[0]))
		amountCol := firstColumn(rec, "Amount", "Amount in USD", "Amount (USD)", cols[1])
		amount, err := rec.Decimal(amountCol)
		if err != nil || label == "" {
			continue
		}
		rows = append(rows, models.SummaryRow{Label: label, Amount: amount})
	}
	return rows, nil
}

// ParseCatalog reads the broker's instrument catalog sheet.
func ParseCatalog(src models.TableSource) ([]models.InstrumentRecord, error) {
	sheet, err := requireSheet(src, CatalogSheets)
	if err != nil {
		return nil, err
	}
	records, err := src.Table(sheet)
	if err != nil {
		return nil, err
	}
	out := make([]models.InstrumentRecord, 0, len(records))
	for _, rec := range records {
		inst := models.InstrumentRecord{
			Symbol:          rec.String("Symbol"),
			FullSymbol:      rec.String("SymbolFull"),
			DisplayName:     rec.String("InstrumentDisplayName"),
			ISIN:            rec.String("ISINCode"),
			Exchange:        rec.String("Exchange"),
			InstrumentType:  rec.String(firstColumn(rec, "InstrumentType", "Type", "type")),
			ISINCountryCode: rec.String("ISINCountryCode"),
		}
		if inst.Symbol == "" && inst.FullSymbol == "" && inst.DisplayName == "" && inst.ISIN == "" {
			continue
		}
		out = append(out, inst)
	}
	logger.L.Info("Instrument catalog parsed", "sheet", sheet, "instruments", len(out))
	return out, nil
}

// withholdingRate returns the rate as a fraction. The sheet carries "15%" text;
// percent-formatted numeric cells already hold the fraction.
func withholdingRate(rec models.RawRecord) (decimal.Decimal, error) {
	col := firstColumn(rec, "Withholding Tax Rate (%)", "Withholding Tax Rate")
	rate, err := optionalDecimal(rec, col)
	if err != nil {
		return decimal.Zero, err
	}
	if strings.Contains(rec.String(col), "%") || rate.GreaterThan(decimal.NewFromInt(1)) {
		rate = rate.Div(decimal.NewFromInt(100))
	}
	return rate, nil
}

func optionalDecimal(rec models.RawRecord, col string) (decimal.Decimal, error) {
	if !rec.Has(col) {
		return decimal.Zero, nil
	}
	d, err := rec.Decimal(col)
	if errors.Is(err, models.ErrEmptyValue) {
		return decimal.Zero, nil
	}
	return d, err
}

func firstColumn(rec models.RawRecord, candidates ...string) string {
	for _, c := range candidates {
		if rec.Has(c) {
			return c
		}
	}
	return candidates[0]
}

func requireSheet(src models.TableSource, candidates []string) (string, error) {
	if name, ok := models.FindSheet(src, candidates...); ok {
		return name, nil
	}
	return "", fmt.Errorf("%w: %s", models.ErrSheetNotFound, strings.Join(candidates, " / "))
}
