package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/reckless-spender/internal/domain"
	"github.com/dvloznov/reckless-spender/internal/store"
)

// ExistingFitIDs returns the stored (account id, fitid) pairs of accountIDs.
func (s *Store) ExistingFitIDs(ctx context.Context, accountIDs []string) ([]domain.FitIDKey, error) {
	if len(accountIDs) == 0 {
		return nil, nil
	}

	args := make([]any, len(accountIDs))
	for i, id := range accountIDs {
		args[i] = id
	}
	query := `SELECT account_id, fitid FROM transactions
		WHERE fitid IS NOT NULL AND fitid <> '' AND account_id IN (` + placeholders(len(accountIDs)) + `)`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ExistingFitIDs: querying: %w", err)
	}
	defer rows.Close()

	var keys []domain.FitIDKey
	for rows.Next() {
		var k domain.FitIDKey
		if err := rows.Scan(&k.AccountID, &k.FitID); err != nil {
			return nil, fmt.Errorf("ExistingFitIDs: scanning: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ExistingFitIDs: %w", err)
	}
	return keys, nil
}

// InsertTransactions stores txs in one database transaction. Either every
// row is written or none is.
func (s *Store) InsertTransactions(ctx context.Context, txs []*domain.TransactionCreate) ([]*domain.Transaction, error) {
	if len(txs) == 0 {
		return nil, nil
	}

	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("InsertTransactions: beginning: %w", err)
	}
	defer dbtx.Rollback()

	stmt, err := dbtx.PrepareContext(ctx, `INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("InsertTransactions: preparing: %w", err)
	}
	defer stmt.Close()

	written := make([]*domain.Transaction, 0, len(txs))
	for _, tx := range txs {
		tags, err := encodeTags(tx.Tags)
		if err != nil {
			return nil, fmt.Errorf("InsertTransactions: encoding tags: %w", err)
		}

		id := uuid.NewString()
		_, err = stmt.ExecContext(ctx,
			id, tx.AccountID, tx.Date.String(), tx.Description, tx.Amount.String(),
			nullString(tx.TransactionType), nullString(tx.FitID), nullString(tx.CategoryID),
			tx.Reconciled, tags, nullString(tx.Notes))
		if err != nil {
			return nil, fmt.Errorf("InsertTransactions: inserting row %d: %w", len(written), err)
		}

		written = append(written, &domain.Transaction{
			ID:              id,
			AccountID:       tx.AccountID,
			Date:            tx.Date,
			Description:     tx.Description,
			Amount:          tx.Amount,
			TransactionType: tx.TransactionType,
			FitID:           tx.FitID,
			CategoryID:      tx.CategoryID,
			Reconciled:      tx.Reconciled,
			Tags:            tx.Tags,
			Notes:           tx.Notes,
		})
	}

	if err := dbtx.Commit(); err != nil {
		return nil, fmt.Errorf("InsertTransactions: committing: %w", err)
	}
	return written, nil
}

// ListTransactions returns the page of transactions selected by filter.
func (s *Store) ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	var (
		where []string
		args  []any
	)
	if filter.StartDate != nil {
		where = append(where, "date >= ?")
		args = append(args, filter.StartDate.String())
	}
	if filter.EndDate != nil {
		where = append(where, "date <= ?")
		args = append(args, filter.EndDate.String())
	}
	if filter.AccountID != nil {
		where = append(where, "account_id = ?")
		args = append(args, *filter.AccountID)
	}
	if filter.CategoryID != nil {
		where = append(where, "category_id = ?")
		args = append(args, *filter.CategoryID)
	}
	if filter.Reconciled != nil {
		where = append(where, "reconciled = ?")
		args = append(args, *filter.Reconciled)
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: querying: %w", err)
	}
	defer rows.Close()

	txs := []*domain.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("ListTransactions: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListTransactions: %w", err)
	}
	return txs, nil
}

// UpdateTransaction applies upd and returns the updated row.
func (s *Store) UpdateTransaction(ctx context.Context, id string, upd *domain.TransactionUpdate) (*domain.Transaction, error) {
	if err := upd.Validate(); err != nil {
		return nil, fmt.Errorf("UpdateTransaction: %w", err)
	}

	var (
		sets []string
		args []any
	)
	if upd.CategoryID.Set {
		sets = append(sets, "category_id = ?")
		args = append(args, nullString(upd.CategoryID.Ptr()))
	}
	if upd.Reconciled.Set {
		sets = append(sets, "reconciled = ?")
		args = append(args, upd.Reconciled.Value)
	}
	if upd.Tags.Set {
		var tags []string
		if !upd.Tags.Null {
			tags = append([]string{}, upd.Tags.Value...)
		}
		encoded, err := encodeTags(tags)
		if err != nil {
			return nil, fmt.Errorf("UpdateTransaction: encoding tags: %w", err)
		}
		sets = append(sets, "tags = ?")
		args = append(args, encoded)
	}
	if upd.Notes.Set {
		sets = append(sets, "notes = ?")
		args = append(args, nullString(upd.Notes.Ptr()))
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), id)

	res, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("UpdateTransaction: updating %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("UpdateTransaction: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("UpdateTransaction: transaction %s: %w", id, store.ErrNotFound)
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("UpdateTransaction: transaction %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("UpdateTransaction: reading %s: %w", id, err)
	}
	return tx, nil
}
