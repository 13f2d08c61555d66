package processors

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/username/pitfolio/src/config"
	"github.com/username/pitfolio/src/logger"
	"github.com/username/pitfolio/src/models"
	"github.com/username/pitfolio/src/utils"
)

// DividendOptions parameterize the dividend tax computation.
type DividendOptions struct {
	Policy      *config.TaxPolicy
	ResolveMode models.ResolveMode
}

// dividendProcessorImpl implements the DividendProcessor interface.
type dividendProcessorImpl struct {
	rates    RateConverter
	resolver CountryResolver
	opts     DividendOptions
}

// NewDividendProcessor creates a new instance of DividendProcessor.
func NewDividendProcessor(rates RateConverter, resolver CountryResolver, opts DividendOptions) DividendProcessor {
	if opts.Policy == nil {
		opts.Policy = config.DefaultPolicy()
	}
	return &dividendProcessorImpl{rates: rates, resolver: resolver, opts: opts}
}

// withholdingTolerance absorbs the cent rounding of the broker's withholding column.
var withholdingTolerance = decimal.RequireFromString("0.02")

func tokenKey(id models.PositionID, net decimal.Decimal, day string) string {
	return fmt.Sprintf("%s|%s|%s", id, net.StringFixed(2), day)
}

// Calculate pairs every dividend payment with exactly one withholding record,
// grosses the payment up and computes the tax due, the credit for tax paid abroad
// and the residual.
func (p *dividendProcessorImpl) Calculate(ctx context.Context, entries []models.ClassifiedEntry, records []models.DividendTaxRecord) (models.DividendTax, error) {
	available := make(map[string][]int, len(records))
	for i, rec := range records {
		key := tokenKey(rec.PositionID, rec.NetAmount, utils.FormatDate(rec.PaymentDate))
		available[key] = append(available[key], i)
	}
	consumed := make(map[string]int)

	result := models.DividendTax{ByCountry: make(map[models.Country]models.DividendCountrySummary)}
	taxRate := p.opts.Policy.Rate()
	paidSum := decimal.Zero
	recordSum := decimal.Zero
	for _, rec := range records {
		recordSum = recordSum.Add(rec.NetAmount)
	}

	for _, e := range entries {
		if e.Kind != models.KindDividend {
			continue
		}
		key := tokenKey(e.ID, e.Amount, utils.FormatDate(e.CloseDate))
		tokens := available[key]
		if len(tokens) == 0 {
			if consumed[key] > 0 {
				return models.DividendTax{}, &models.ReconciliationError{PositionID: e.ID, Reason: fmt.Sprintf("withholding record for %s on %s already used by another payment", e.Amount, utils.FormatDate(e.CloseDate))}
			}
			return models.DividendTax{}, &models.ReconciliationError{PositionID: e.ID, Reason: fmt.Sprintf("no withholding record for %s paid on %s", e.Amount, utils.FormatDate(e.CloseDate))}
		}
		rec := records[tokens[0]]
		available[key] = tokens[1:]
		consumed[key]++

		country, err := p.sourceCountry(ctx, rec)
		if err != nil {
			return models.DividendTax{}, err
		}
		one := decimal.NewFromInt(1)
		if rec.WithholdingRate.GreaterThanOrEqual(one) || rec.WithholdingRate.IsNegative() {
			return models.DividendTax{}, &models.DataInconsistencyError{PositionID: e.ID, Reason: fmt.Sprintf("withholding rate %s out of range", rec.WithholdingRate)}
		}
		gross := e.Amount.Div(one.Sub(rec.WithholdingRate))
		if rec.HasWithholdingAmount {
			withheld := gross.Mul(rec.WithholdingRate)
			if withheld.Sub(rec.WithholdingAmount.Abs()).Abs().GreaterThan(withholdingTolerance) {
				return models.DividendTax{}, &models.ReconciliationError{
					PositionID: e.ID,
					Reason:     fmt.Sprintf("withholding amount %s differs from %s implied by rate %s", rec.WithholdingAmount, withheld.StringFixed(2), rec.WithholdingRate),
				}
			}
		}
		revenue, err := p.rates.Convert(ctx, e.CloseDate, gross, e.Currency)
		if err != nil {
			return models.DividendTax{}, fmt.Errorf("converting dividend of position %s: %w", e.ID, err)
		}
		creditRate, err := p.creditRate(country, rec)
		if err != nil {
			return models.DividendTax{}, fmt.Errorf("dividend of position %s: %w", e.ID, err)
		}
		due := revenue.Mul(taxRate)
		paid := revenue.Mul(creditRate)
		if p.opts.Policy.CapCreditAtDue {
			paid = utils.MinDecimal(paid, due)
		}

		s := result.ByCountry[country]
		s.NetUSD = s.NetUSD.Add(e.Amount)
		s.GrossUSD = s.GrossUSD.Add(gross)
		s.RevenuePLN = s.RevenuePLN.Add(revenue)
		s.TaxDue = s.TaxDue.Add(due)
		s.TaxPaidAbroad = s.TaxPaidAbroad.Add(paid)
		result.ByCountry[country] = s

		result.NetUSD = result.NetUSD.Add(e.Amount)
		result.GrossUSD = result.GrossUSD.Add(gross)
		result.RevenuePLN = result.RevenuePLN.Add(revenue)
		paidSum = paidSum.Add(paid)
	}

	for key, left := range available {
		if len(left) > 0 {
			rec := records[left[0]]
			return models.DividendTax{}, &models.ReconciliationError{PositionID: rec.PositionID, Reason: fmt.Sprintf("withholding record %s not matched to any dividend payment", key)}
		}
	}
	if !utils.RoundMoney(recordSum).Equal(utils.RoundMoney(result.NetUSD)) {
		return models.DividendTax{}, &models.ReconciliationError{Reason: fmt.Sprintf("dividend payments sum to %s, withholding records to %s", result.NetUSD, recordSum)}
	}

	result.NetUSD = utils.RoundMoney(result.NetUSD)
	result.GrossUSD = result.GrossUSD.Round(4)
	result.RevenuePLN = result.RevenuePLN.Round(4)
	result.BasePLN = utils.RoundWhole(result.RevenuePLN)
	result.TaxDue = utils.RoundWhole(result.BasePLN.Mul(taxRate))
	result.TaxPaidAbroad = utils.RoundWhole(paidSum)
	if p.opts.Policy.CapCreditAtDue {
		result.TaxPaidAbroad = utils.MinDecimal(result.TaxPaidAbroad, result.TaxDue)
	}
	result.TaxPayable = result.TaxDue.Sub(result.TaxPaidAbroad)
	for country, s := range result.ByCountry {
		s.NetUSD = utils.RoundMoney(s.NetUSD)
		s.GrossUSD = s.GrossUSD.Round(4)
		s.RevenuePLN = s.RevenuePLN.Round(4)
		s.TaxDue = utils.RoundMoney(s.TaxDue)
		s.TaxPaidAbroad = utils.RoundMoney(s.TaxPaidAbroad)
		result.ByCountry[country] = s
	}

	logger.FromContext(ctx).Info("Dividend tax calculated",
		"records", len(records),
		"revenuePLN", result.RevenuePLN.String(),
		"taxDue", result.TaxDue.String(),
		"taxPaidAbroad", result.TaxPaidAbroad.String(),
		"policy", p.opts.Policy.DividendCreditPolicy)
	return result, nil
}

// sourceCountry is the country that withheld the tax: the ISIN prefix when it
// names a country, the resolver otherwise.
func (p *dividendProcessorImpl) sourceCountry(ctx context.Context, rec models.DividendTaxRecord) (models.Country, error) {
	if country, ok := utils.CountryFromISIN(rec.ISIN); ok {
		return country, nil
	}
	query := models.InstrumentQuery{DisplayName: rec.InstrumentName, ISIN: rec.ISIN}
	country, err := p.resolver.Resolve(ctx, query, p.opts.ResolveMode)
	if err != nil {
		return models.UnknownCountry, fmt.Errorf("dividend of position %s: %w", rec.PositionID, err)
	}
	return country, nil
}

func (p *dividendProcessorImpl) creditRate(country models.Country, rec models.DividendTaxRecord) (decimal.Decimal, error) {
	switch p.opts.Policy.DividendCreditPolicy {
	case config.CreditWithheld:
		return rec.WithholdingRate, nil
	case config.CreditTreaty, config.CreditMax:
		treaty, ok := p.opts.Policy.TreatyRate(country.Code())
		if !ok {
			return decimal.Zero, fmt.Errorf("no treaty withholding rate for source country %s", country)
		}
		if p.opts.Policy.DividendCreditPolicy == config.CreditMax {
			return utils.MaxDecimal(treaty, rec.WithholdingRate), nil
		}
		return treaty, nil
	}
	return decimal.Zero, &config.InvalidValueError{Field: "dividend_credit_policy", Value: p.opts.Policy.DividendCreditPolicy}
}
