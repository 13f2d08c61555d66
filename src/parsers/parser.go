package parsers

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/username/pitfolio/src/logger"
	"github.com/username/pitfolio/src/models"
)

// Open picks a workbook loader by path: .xlsx files are read with excelize,
// .csv files and directories of .csv files (one file per sheet) with encoding/csv.
func Open(path string) (Workbook, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	if info.IsDir() {
		return openCSVDir(path)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return openXLSX(path)
	case ".csv":
		return openCSVFile(path)
	default:
		return nil, fmt.Errorf("unsupported workbook format %q", filepath.Ext(path))
	}
}

// LoadTable opens a workbook and loads a single sheet.
func LoadTable(path, sheet string) ([]models.RawRecord, error) {
	wb, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer wb.Close()
	return wb.Table(sheet)
}

var plainNumber = regexp.MustCompile(`^-?\d+(\.\d+)?([eE][-+]?\d+)?$`)

// typedCell classifies a raw spreadsheet value. Only plain machine-formatted
// numbers become numeric cells; everything else stays text and is parsed by the
// typed accessors of RawRecord.
func typedCell(raw string) models.Cell {
	text := strings.TrimSpace(raw)
	if text == "" {
		return models.Cell{Kind: models.CellEmpty}
	}
	if plainNumber.MatchString(text) {
		if d, err := decimal.NewFromString(text); err == nil {
			return models.Cell{Kind: models.CellNumber, Text: text, Number: d}
		}
	}
	return models.Cell{Kind: models.CellString, Text: text}
}

func textCell(raw string) models.Cell {
	text := strings.TrimSpace(raw)
	if text == "" {
		return models.Cell{Kind: models.CellEmpty}
	}
	return models.Cell{Kind: models.CellString, Text: text}
}

// buildRecords converts a header row plus data rows into records, skipping rows
// that are entirely empty.
func buildRecords(sheet string, rows [][]string, cell func(string) models.Cell) []models.RawRecord {
	if len(rows) == 0 {
		return nil
	}
	header := rows[0]
	records := make([]models.RawRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		empty := true
		cells := make([]models.Cell, len(row))
		for j, v := range row {
			cells[j] = cell(v)
			if !cells[j].IsEmpty() {
				empty = false
			}
		}
		if empty {
			continue
		}
		records = append(records, models.NewRawRecord(i+1, header, cells))
	}
	logger.L.Debug("Sheet loaded", "sheet", sheet, "rows", len(records))
	return records
}
