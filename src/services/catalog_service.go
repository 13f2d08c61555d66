package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/username/pitfolio/src/logger"
	"github.com/username/pitfolio/src/models"
	"github.com/username/pitfolio/src/parsers"
	"github.com/username/pitfolio/src/parsers/etoro"
	"github.com/username/pitfolio/src/utils"
	"golang.org/x/time/rate"
)

// FileCatalog loads the catalog from an xlsx file or CSV export holding the
// "Instruments Offered" sheet.
func FileCatalog(path string) CatalogLoader {
	return func(ctx context.Context) ([]models.InstrumentRecord, error) {
		wb, err := parsers.Open(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
		}
		defer wb.Close()

		records, err := etoro.ParseCatalog(wb)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
		}
		return records, nil
	}
}

// RemoteCatalog loads the catalog from a JSON array of instrument records.
func RemoteCatalog(catalogURL string, client *http.Client, limiter *rate.Limiter) CatalogLoader {
	return func(ctx context.Context) ([]models.InstrumentRecord, error) {
		var records []models.InstrumentRecord
		if err := utils.GetJSON(ctx, client, limiter, catalogURL, &records); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
		}
		logger.L.Info("Instrument catalog downloaded", "url", catalogURL, "instruments", len(records))
		return records, nil
	}
}
