// Package database keeps the broker's instrument catalog in an in-memory SQLite
// database indexed for the resolver's lookup tiers.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/username/pitfolio/src/logger"
	"github.com/username/pitfolio/src/models"
	_ "modernc.org/sqlite"
)

// Field names a lookup key of the catalog.
type Field int

const (
	FieldISIN Field = iota
	FieldFullSymbol
	FieldSymbol
	FieldDisplayName
)

func (f Field) String() string {
	switch f {
	case FieldISIN:
		return "isin"
	case FieldFullSymbol:
		return "full symbol"
	case FieldSymbol:
		return "symbol"
	case FieldDisplayName:
		return "display name"
	}
	return fmt.Sprintf("Field(%d)", int(f))
}

func (f Field) column() (string, error) {
	switch f {
	case FieldISIN:
		return "isin_key", nil
	case FieldFullSymbol:
		return "full_symbol_key", nil
	case FieldSymbol:
		return "symbol_key", nil
	case FieldDisplayName:
		return "name_key", nil
	}
	return "", fmt.Errorf("unknown catalog field %d", int(f))
}

const schema = `
	CREATE TABLE IF NOT EXISTS instruments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL DEFAULT '',
		full_symbol TEXT NOT NULL DEFAULT '',
		display_name TEXT NOT NULL DEFAULT '',
		isin TEXT NOT NULL DEFAULT '',
		exchange TEXT NOT NULL DEFAULT '',
		instrument_type TEXT NOT NULL DEFAULT '',
		isin_country_code TEXT NOT NULL DEFAULT '',
		symbol_key TEXT NOT NULL DEFAULT '',
		full_symbol_key TEXT NOT NULL DEFAULT '',
		name_key TEXT NOT NULL DEFAULT '',
		isin_key TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_instruments_symbol ON instruments(symbol_key);
	CREATE INDEX IF NOT EXISTS idx_instruments_full_symbol ON instruments(full_symbol_key);
	CREATE INDEX IF NOT EXISTS idx_instruments_name ON instruments(name_key);
	CREATE INDEX IF NOT EXISTS idx_instruments_isin ON instruments(isin_key);
	`

// InstrumentStore is the catalog table. Lookups compare lower-cased keys.
type InstrumentStore struct {
	db *sql.DB
}

// Open creates the store. An empty path means a private in-memory database.
func Open(path string) (*InstrumentStore, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", path, err)
	}
	// every connection to ":memory:" is a separate database
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create instruments table: %w", err)
	}
	logger.L.Debug("Instrument catalog table ensured/created", "databasePath", path)
	return &InstrumentStore{db: db}, nil
}

// Key normalizes a lookup value the way stored keys are normalized.
func Key(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Insert adds the records in a single transaction.
func (s *InstrumentStore) Insert(ctx context.Context, records []models.InstrumentRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin catalog insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO instruments (
			symbol, full_symbol, display_name, isin, exchange, instrument_type, isin_country_code,
			symbol_key, full_symbol_key, name_key, isin_key
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare catalog insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx,
			r.Symbol, r.FullSymbol, r.DisplayName, r.ISIN, r.Exchange, r.InstrumentType, r.ISINCountryCode,
			Key(r.Symbol), Key(r.FullSymbol), Key(r.DisplayName), Key(r.ISIN),
		); err != nil {
			return fmt.Errorf("insert instrument %q: %w", r.Symbol, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit catalog insert: %w", err)
	}
	logger.L.Info("Instrument catalog stored", "instruments", len(records))
	return nil
}

// Find returns every instrument whose field equals key. An empty key matches nothing.
func (s *InstrumentStore) Find(ctx context.Context, field Field, key string) ([]models.InstrumentRecord, error) {
	key = Key(key)
	if key == "" {
		return nil, nil
	}
	col, err := field.column()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, full_symbol, display_name, isin, exchange, instrument_type, isin_country_code
		FROM instruments WHERE `+col+` = ? ORDER BY id`, key)
	if err != nil {
		return nil, fmt.Errorf("query instruments by %s: %w", field, err)
	}
	defer rows.Close()

	var out []models.InstrumentRecord
	for rows.Next() {
		var r models.InstrumentRecord
		if err := rows.Scan(&r.Symbol, &r.FullSymbol, &r.DisplayName, &r.ISIN, &r.Exchange, &r.InstrumentType, &r.ISINCountryCode); err != nil {
			return nil, fmt.Errorf("scan instrument: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate instruments: %w", err)
	}
	return out, nil
}

// Count returns the number of stored instruments.
func (s *InstrumentStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM instruments").Scan(&n); err != nil {
		return 0, fmt.Errorf("count instruments: %w", err)
	}
	return n, nil
}

func (s *InstrumentStore) Close() error {
	return s.db.Close()
}
