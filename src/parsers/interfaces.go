package parsers

import "github.com/username/pitfolio/src/models"

// Workbook is a tabular export with named sheets.
type Workbook interface {
	models.TableSource
	Close() error
}

// StatementParser turns a broker workbook into validated statement rows.
type StatementParser interface {
	Parse(src models.TableSource) (*models.Statement, error)
}
