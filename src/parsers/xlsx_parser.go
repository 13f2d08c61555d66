package parsers

import (
	"fmt"

	"github.com/username/pitfolio/src/models"
	"github.com/xuri/excelize/v2"
)

type xlsxWorkbook struct {
	file *excelize.File
}

func openXLSX(path string) (*xlsxWorkbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening xlsx %s: %w", path, err)
	}
	return &xlsxWorkbook{file: f}, nil
}

func (w *xlsxWorkbook) Sheets() []string {
	return w.file.GetSheetList()
}

// Table reads raw cell values so that numbers keep their full precision and
// dates arrive as serial numbers rather than locale-formatted text.
func (w *xlsxWorkbook) Table(sheet string) ([]models.RawRecord, error) {
	name, ok := models.FindSheet(w, sheet)
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrSheetNotFound, sheet)
	}
	rows, err := w.file.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", name, err)
	}
	return buildRecords(name, rows, typedCell), nil
}

func (w *xlsxWorkbook) Close() error {
	return w.file.Close()
}
