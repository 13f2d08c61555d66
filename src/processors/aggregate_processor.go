package processors

import (
	"context"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
	"github.com/username/pitfolio/src/logger"
	"github.com/username/pitfolio/src/models"
)

// stockBucket lists the kinds reported together with stocks: costs and
// corrections of stock and CFD trading belong to the same PIT-38 section.
var stockBucket = []models.Kind{
	models.KindStock,
	models.KindFee,
	models.KindAdjustment,
	models.KindIndexAdjustment,
	models.KindRefund,
	models.KindInterest,
}

type aggregateProcessorImpl struct {
	rates RateConverter
}

// NewAggregateProcessor creates an aggregator converting legs with rates.
func NewAggregateProcessor(rates RateConverter) AggregateProcessor {
	return &aggregateProcessorImpl{rates: rates}
}

// BucketKinds returns the entry kinds summed into the bucket of kind.
func BucketKinds(kind models.Kind) []models.Kind {
	if kind == models.KindStock {
		return stockBucket
	}
	return []models.Kind{kind}
}

// Aggregate converts every leg at its own date and sums the bucket per country.
func (p *aggregateProcessorImpl) Aggregate(ctx context.Context, entries []models.ClassifiedEntry, kind models.Kind) (models.KindTotals, error) {
	bucket := BucketKinds(kind)
	totals := models.KindTotals{
		Kind:        kind,
		ByCountry:   make(map[models.Country]models.CountryTotals),
		PositiveNet: make(map[models.Country]decimal.Decimal),
	}

	count := 0
	for _, e := range entries {
		if !slices.Contains(bucket, e.Kind) {
			continue
		}
		t, err := p.entryTotals(ctx, e)
		if err != nil {
			return models.KindTotals{}, fmt.Errorf("aggregating %s entry %s: %w", e.Kind, e.ID, err)
		}
		totals.ByCountry[e.Country] = totals.ByCountry[e.Country].Add(t)
		count++
	}

	for country, t := range totals.ByCountry {
		totals.Total = totals.Total.Add(t)
		if t.Net.IsPositive() {
			totals.PositiveNet[country] = t.Net
		}
	}

	logger.FromContext(ctx).Info("Bucket aggregated", "kind", kind, "entries", count, "countries", len(totals.ByCountry), "net", totals.Total.Net.StringFixed(2))
	return totals, nil
}

func (p *aggregateProcessorImpl) entryTotals(ctx context.Context, e models.ClassifiedEntry) (models.CountryTotals, error) {
	var t models.CountryTotals
	if e.Kind.IsCashEvent() {
		local, err := p.rates.Convert(ctx, e.CloseDate, e.Amount.Abs(), e.Currency)
		if err != nil {
			return t, err
		}
		if e.Amount.IsPositive() {
			t.Revenue = local
		} else {
			t.Cost = local
		}
		t.Income = e.Amount
	} else {
		cost, err := p.rates.Convert(ctx, e.OpenDate, e.OpenAmount, e.Currency)
		if err != nil {
			return t, err
		}
		revenue, err := p.rates.Convert(ctx, e.CloseDate, e.CloseAmount, e.Currency)
		if err != nil {
			return t, err
		}
		t.Cost, t.Revenue = cost, revenue
		if e.Status == models.StatusClosed {
			t.Income = e.CloseAmount.Sub(e.OpenAmount)
		}
	}
	t.Net = t.Revenue.Sub(t.Cost)
	return t, nil
}
