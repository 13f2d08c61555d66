package processors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/pitfolio/src/models"
)

func TestSummaryCheck(t *testing.T) {
	us := models.RealCountry("US")
	cfd := stockEntry("2", models.CfdCountry, "50", "0")
	cfd.IsCfd = true
	entries := []models.ClassifiedEntry{
		stockEntry("1", us, "1000", "1200"),
		cfd,
		cashEntry(models.KindDividend, models.DividendCountry, "0.85"),
		cashEntry(models.KindFee, us, "-0.35"),
	}
	summary := []models.SummaryRow{
		{Label: "Stocks (Profit or Loss)", Amount: dec("200")},
		{Label: "CFDs (Profit or Loss)", Amount: dec("-40")},
		{Label: "Dividends", Amount: dec("0.85")},
		{Label: "Overnight Fees", Amount: dec("-0.355")},
		{Label: "ETFs (Profit or Loss)", Amount: dec("999")},
	}

	warnings := NewSummaryProcessor(dec("0.01")).Check(entries, summary)
	require.Len(t, warnings, 1)
	assert.Equal(t, "CFDs (Profit or Loss)", warnings[0].Label)
	assert.True(t, warnings[0].Actual.Equal(dec("-50")))
	assert.True(t, warnings[0].Expected.Equal(dec("-40")))
}

func TestSummaryCheckEmpty(t *testing.T) {
	assert.Empty(t, NewSummaryProcessor(dec("0.01")).Check(nil, nil))
}
