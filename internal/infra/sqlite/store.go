// Package sqlite is a local, single-file store backend built on the pure-Go
// modernc SQLite driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/dvloznov/reckless-spender/internal/domain"
	"github.com/dvloznov/reckless-spender/internal/store"
)

// Store is the SQLite implementation of store.Store.
type Store struct {
	db *sql.DB
}

// NewStore opens (creating if needed) the database at path and ensures the
// schema exists. Use ":memory:" for a throwaway database.
func NewStore(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("NewStore: opening %s: %w", path, err)
	}
	// One connection keeps ":memory:" databases and pragmas consistent.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("NewStore: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

var schema = []string{
	`PRAGMA foreign_keys = ON`,
	`CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		type TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS categories (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		is_custom INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL REFERENCES accounts(id),
		date TEXT NOT NULL,
		description TEXT NOT NULL,
		amount TEXT NOT NULL,
		transaction_type TEXT,
		fitid TEXT,
		category_id TEXT,
		reconciled INTEGER NOT NULL DEFAULT 0,
		tags TEXT,
		notes TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_account_fitid
		ON transactions(account_id, fitid) WHERE fitid IS NOT NULL AND fitid <> ''`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(date DESC, id DESC)`,
}

func (s *Store) initSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("initSchema: %w", err)
		}
	}
	return nil
}

// SeedCategories inserts categories that are not stored yet.
func (s *Store) SeedCategories(ctx context.Context, categories []domain.Category) error {
	for _, c := range categories {
		_, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO categories (id, name, is_custom) VALUES (?, ?, ?)`,
			c.ID, c.Name, c.IsCustom)
		if err != nil {
			return fmt.Errorf("SeedCategories: inserting %q: %w", c.Name, err)
		}
	}
	return nil
}

// ListCategories returns all categories ordered by name.
func (s *Store) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, is_custom FROM categories ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("ListCategories: querying: %w", err)
	}
	defer rows.Close()

	categories := []*domain.Category{}
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.IsCustom); err != nil {
			return nil, fmt.Errorf("ListCategories: scanning: %w", err)
		}
		categories = append(categories, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListCategories: %w", err)
	}
	return categories, nil
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

// encodeTags stores nil as NULL and anything else as a JSON array.
func encodeTags(tags []string) (sql.NullString, error) {
	if tags == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func decodeTags(ns sql.NullString) ([]string, error) {
	if !ns.Valid {
		return nil, nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(ns.String), &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

type scanner interface {
	Scan(dest ...any) error
}

const transactionColumns = `id, account_id, date, description, amount, transaction_type, fitid, category_id, reconciled, tags, notes`

func scanTransaction(row scanner) (*domain.Transaction, error) {
	var (
		tx                                  domain.Transaction
		date, amount                        string
		txType, fitID, categoryID, tags, nt sql.NullString
	)
	if err := row.Scan(&tx.ID, &tx.AccountID, &date, &tx.Description, &amount,
		&txType, &fitID, &categoryID, &tx.Reconciled, &tags, &nt); err != nil {
		return nil, err
	}

	var err error
	if tx.Date, err = civil.ParseDate(date); err != nil {
		return nil, fmt.Errorf("transaction %s: parsing date %q: %w", tx.ID, date, err)
	}
	if tx.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("transaction %s: parsing amount %q: %w", tx.ID, amount, err)
	}
	if tx.Tags, err = decodeTags(tags); err != nil {
		return nil, fmt.Errorf("transaction %s: decoding tags: %w", tx.ID, err)
	}
	tx.TransactionType = stringPtr(txType)
	tx.FitID = stringPtr(fitID)
	tx.CategoryID = stringPtr(categoryID)
	tx.Notes = stringPtr(nt)
	return &tx, nil
}

// Ensure Store implements the store.Store interface.
var _ store.Store = (*Store)(nil)
