package parsers

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/username/pitfolio/src/models"
)

// csvWorkbook maps sheet names to CSV files: "Closed Positions" is read from
// "Closed Positions.csv".
type csvWorkbook struct {
	files map[string]string // sheet name -> path
}

func openCSVDir(dir string) (*csvWorkbook, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("listing csv files in %s: %w", dir, err)
	}
	wb := &csvWorkbook{files: make(map[string]string, len(matches))}
	for _, m := range matches {
		wb.files[strings.TrimSuffix(filepath.Base(m), filepath.Ext(m))] = m
	}
	return wb, nil
}

func openCSVFile(path string) (*csvWorkbook, error) {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return &csvWorkbook{files: map[string]string{name: path}}, nil
}

func (w *csvWorkbook) Sheets() []string {
	names := make([]string, 0, len(w.files))
	for name := range w.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (w *csvWorkbook) Table(sheet string) ([]models.RawRecord, error) {
	name, ok := models.FindSheet(w, sheet)
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrSheetNotFound, sheet)
	}
	f, err := os.Open(w.files[name])
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", w.files[name], err)
	}
	defer f.Close()

	rows, err := readCSV(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", w.files[name], err)
	}
	return buildRecords(name, rows, textCell), nil
}

func (w *csvWorkbook) Close() error { return nil }

// readCSV reads a comma or semicolon separated file, sniffing the delimiter from
// the header line and dropping a UTF-8 byte order mark.
func readCSV(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	text := strings.TrimPrefix(string(data), "\uFEFF")

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	firstLine, _, _ := strings.Cut(text, "\n")
	if strings.Count(firstLine, ";") > strings.Count(firstLine, ",") {
		reader.Comma = ';'
	}
	return reader.ReadAll()
}
