package bigquery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/reckless-spender/internal/domain"
	"github.com/dvloznov/reckless-spender/internal/store"
)

const transactionColumns = `id, account_id, date, description, amount,
			transaction_type, fitid, category_id, reconciled, tags, notes,
			created_ts, updated_ts`

// ExistingFitIDsWithClient returns the stored (account_id, fitid) pairs of
// the given accounts in one query.
func ExistingFitIDsWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, accountIDs []string) ([]domain.FitIDKey, error) {
	if len(accountIDs) == 0 {
		return nil, nil
	}

	q := client.Query(`
		SELECT account_id, fitid
		FROM ` + ds.Table(transactionsTable) + `
		WHERE account_id IN UNNEST(@account_ids)
		  AND fitid IS NOT NULL
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "account_ids", Value: accountIDs},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ExistingFitIDsWithClient: query read: %w", err)
	}

	var keys []domain.FitIDKey
	for {
		var r FitIDRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ExistingFitIDsWithClient: iter next: %w", err)
		}
		keys = append(keys, domain.FitIDKey{AccountID: r.AccountID, FitID: r.FitID})
	}

	return keys, nil
}

// InsertTransactionsWithClient stores txs with multi-row DML inserts of at
// most insertChunkSize rows. DML is used instead of the streaming inserter
// so rows can be updated right away. On failure the rows of the chunks that
// succeeded are returned together with the error.
func InsertTransactionsWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, txs []*domain.TransactionCreate) ([]*domain.Transaction, error) {
	stored := make([]*domain.Transaction, 0, len(txs))
	now := time.Now().UTC()

	for start := 0; start < len(txs); start += insertChunkSize {
		end := min(start+insertChunkSize, len(txs))
		chunk := txs[start:end]

		rows := make([]*TransactionRow, len(chunk))
		values := make([]string, len(chunk))
		var params []bigquery.QueryParameter
		for i, tx := range chunk {
			rows[i] = &TransactionRow{
				ID:              uuid.NewString(),
				AccountID:       tx.AccountID,
				Date:            tx.Date,
				Description:     tx.Description,
				Amount:          tx.Amount.Rat(),
				TransactionType: nullString(tx.TransactionType),
				FitID:           nullString(tx.FitID),
				CategoryID:      nullString(tx.CategoryID),
				Reconciled:      tx.Reconciled,
				Tags:            tagsParam(tx.Tags),
				Notes:           nullString(tx.Notes),
				CreatedTS:       now,
			}
			values[i], params = appendRowParams(params, i, rows[i])
		}

		q := client.Query(`
			INSERT INTO ` + ds.Table(transactionsTable) + ` (
				id, account_id, date, description, amount,
				transaction_type, fitid, category_id, reconciled, tags, notes,
				created_ts
			)
			VALUES ` + strings.Join(values, ",\n\t\t\t\t"))
		q.Parameters = params

		affected, err := runDML(ctx, q)
		if err != nil {
			return stored, fmt.Errorf("InsertTransactionsWithClient: rows %d-%d: %w", start, end-1, err)
		}
		if affected != int64(len(chunk)) {
			return stored, fmt.Errorf("InsertTransactionsWithClient: rows %d-%d: inserted %d of %d", start, end-1, affected, len(chunk))
		}

		for _, r := range rows {
			stored = append(stored, r.toDomain())
		}
	}

	return stored, nil
}

func appendRowParams(params []bigquery.QueryParameter, i int, r *TransactionRow) (string, []bigquery.QueryParameter) {
	names := []string{"id", "account_id", "date", "description", "amount",
		"transaction_type", "fitid", "category_id", "reconciled", "tags", "notes", "created_ts"}
	values := []interface{}{r.ID, r.AccountID, r.Date, r.Description, r.Amount,
		r.TransactionType, r.FitID, r.CategoryID, r.Reconciled, r.Tags, r.Notes, r.CreatedTS}

	placeholders := make([]string, len(names))
	for j, name := range names {
		p := fmt.Sprintf("%s_%d", name, i)
		placeholders[j] = "@" + p
		params = append(params, bigquery.QueryParameter{Name: p, Value: values[j]})
	}
	return "(" + strings.Join(placeholders, ", ") + ")", params
}

// ListTransactionsWithClient returns a page of matching transactions ordered
// by date and id, newest first.
func ListTransactionsWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	var (
		where  []string
		params []bigquery.QueryParameter
	)
	if filter.StartDate != nil {
		where = append(where, "date >= @start_date")
		params = append(params, bigquery.QueryParameter{Name: "start_date", Value: *filter.StartDate})
	}
	if filter.EndDate != nil {
		where = append(where, "date <= @end_date")
		params = append(params, bigquery.QueryParameter{Name: "end_date", Value: *filter.EndDate})
	}
	if filter.AccountID != nil {
		where = append(where, "account_id = @account_id")
		params = append(params, bigquery.QueryParameter{Name: "account_id", Value: *filter.AccountID})
	}
	if filter.CategoryID != nil {
		where = append(where, "category_id = @category_id")
		params = append(params, bigquery.QueryParameter{Name: "category_id", Value: *filter.CategoryID})
	}
	if filter.Reconciled != nil {
		where = append(where, "reconciled = @reconciled")
		params = append(params, bigquery.QueryParameter{Name: "reconciled", Value: *filter.Reconciled})
	}
	params = append(params,
		bigquery.QueryParameter{Name: "limit", Value: int64(filter.Limit)},
		bigquery.QueryParameter{Name: "offset", Value: int64(filter.Offset)},
	)

	query := `SELECT ` + transactionColumns + ` FROM ` + ds.Table(transactionsTable)
	if len(where) > 0 {
		query += "\nWHERE " + strings.Join(where, "\n  AND ")
	}
	query += "\nORDER BY date DESC, id DESC\nLIMIT @limit OFFSET @offset"

	q := client.Query(query)
	q.Parameters = params

	return readTransactions(ctx, q, "ListTransactionsWithClient")
}

// UpdateTransactionWithClient applies upd with one UPDATE statement and
// reads the row back.
func UpdateTransactionWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, id string, upd *domain.TransactionUpdate) (*domain.Transaction, error) {
	if err := upd.Validate(); err != nil {
		return nil, fmt.Errorf("UpdateTransactionWithClient: %w", err)
	}

	set := []string{"updated_ts = CURRENT_TIMESTAMP()"}
	params := []bigquery.QueryParameter{{Name: "id", Value: id}}

	if upd.CategoryID.Set {
		set = append(set, "category_id = @category_id")
		params = append(params, bigquery.QueryParameter{Name: "category_id", Value: nullString(upd.CategoryID.Ptr())})
	}
	if upd.Reconciled.Set && !upd.Reconciled.Null {
		set = append(set, "reconciled = @reconciled")
		params = append(params, bigquery.QueryParameter{Name: "reconciled", Value: upd.Reconciled.Value})
	}
	if upd.Tags.Set {
		set = append(set, "tags = @tags")
		params = append(params, bigquery.QueryParameter{Name: "tags", Value: tagsParam(upd.Tags.Value)})
	}
	if upd.Notes.Set {
		set = append(set, "notes = @notes")
		params = append(params, bigquery.QueryParameter{Name: "notes", Value: nullString(upd.Notes.Ptr())})
	}

	q := client.Query(`
		UPDATE ` + ds.Table(transactionsTable) + `
		SET ` + strings.Join(set, ", ") + `
		WHERE id = @id
	`)
	q.Parameters = params

	affected, err := runDML(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("UpdateTransactionWithClient: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("UpdateTransactionWithClient: %s: %w", id, store.ErrNotFound)
	}

	sel := client.Query(`SELECT ` + transactionColumns + ` FROM ` + ds.Table(transactionsTable) + ` WHERE id = @id`)
	sel.Parameters = []bigquery.QueryParameter{{Name: "id", Value: id}}

	rows, err := readTransactions(ctx, sel, "UpdateTransactionWithClient")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("UpdateTransactionWithClient: %s: %w", id, store.ErrNotFound)
	}
	return rows[0], nil
}

func readTransactions(ctx context.Context, q *bigquery.Query, caller string) ([]*domain.Transaction, error) {
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: query read: %w", caller, err)
	}

	txs := []*domain.Transaction{}
	for {
		var r TransactionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: iter next: %w", caller, err)
		}
		txs = append(txs, r.toDomain())
	}

	return txs, nil
}
