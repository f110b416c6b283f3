package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"

	"github.com/dvloznov/reckless-spender/internal/domain"
	"github.com/dvloznov/reckless-spender/internal/store"
)

const (
	accountsTable     = "accounts"
	transactionsTable = "transactions"
	categoriesTable   = "categories"

	// numericScale is the fixed scale of the NUMERIC amount column.
	numericScale = 9
	// insertChunkSize bounds the rows sent in one DML statement.
	insertChunkSize = 500
)

// Dataset locates the tables of one deployment.
type Dataset struct {
	Project string
	Name    string
}

// Table returns the quoted, fully qualified name of a table.
func (d Dataset) Table(name string) string {
	return "`" + d.Project + "." + d.Name + "." + name + "`"
}

// Store is the BigQuery implementation of store.Store. It holds a shared
// BigQuery client to avoid creating a new connection for each operation.
type Store struct {
	client *bigquery.Client
	ds     Dataset
}

// NewStore creates a Store with its own client.
func NewStore(ctx context.Context, projectID, datasetID string) (*Store, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewStore: creating client: %w", err)
	}
	return NewStoreWithClient(client, Dataset{Project: projectID, Name: datasetID}), nil
}

// NewStoreWithClient creates a Store around an existing client.
func NewStoreWithClient(client *bigquery.Client, ds Dataset) *Store {
	return &Store{client: client, ds: ds}
}

// Close closes the BigQuery client connection.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// FindAccountsByName delegates to FindAccountsByNameWithClient with the shared client.
func (s *Store) FindAccountsByName(ctx context.Context, names []string) (map[string]*domain.Account, error) {
	return FindAccountsByNameWithClient(ctx, s.client, s.ds, names)
}

// InsertAccount delegates to InsertAccountWithClient with the shared client.
func (s *Store) InsertAccount(ctx context.Context, acc *domain.AccountCreate) (*domain.Account, error) {
	return InsertAccountWithClient(ctx, s.client, s.ds, acc)
}

// ListAccounts delegates to ListAccountsWithClient with the shared client.
func (s *Store) ListAccounts(ctx context.Context) ([]*domain.Account, error) {
	return ListAccountsWithClient(ctx, s.client, s.ds)
}

// ExistingFitIDs delegates to ExistingFitIDsWithClient with the shared client.
func (s *Store) ExistingFitIDs(ctx context.Context, accountIDs []string) ([]domain.FitIDKey, error) {
	return ExistingFitIDsWithClient(ctx, s.client, s.ds, accountIDs)
}

// InsertTransactions delegates to InsertTransactionsWithClient with the shared client.
func (s *Store) InsertTransactions(ctx context.Context, txs []*domain.TransactionCreate) ([]*domain.Transaction, error) {
	return InsertTransactionsWithClient(ctx, s.client, s.ds, txs)
}

// ListTransactions delegates to ListTransactionsWithClient with the shared client.
func (s *Store) ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	return ListTransactionsWithClient(ctx, s.client, s.ds, filter)
}

// UpdateTransaction delegates to UpdateTransactionWithClient with the shared client.
func (s *Store) UpdateTransaction(ctx context.Context, id string, upd *domain.TransactionUpdate) (*domain.Transaction, error) {
	return UpdateTransactionWithClient(ctx, s.client, s.ds, id, upd)
}

// ListCategories delegates to ListCategoriesWithClient with the shared client.
func (s *Store) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	return ListCategoriesWithClient(ctx, s.client, s.ds)
}

// runDML runs a DML statement to completion and returns the affected row
// count.
func runDML(ctx context.Context, q *bigquery.Query) (int64, error) {
	job, err := q.Run(ctx)
	if err != nil {
		return 0, fmt.Errorf("running query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return 0, fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return 0, fmt.Errorf("job error: %w", err)
	}

	if status.Statistics != nil {
		if qs, ok := status.Statistics.Details.(*bigquery.QueryStatistics); ok {
			return qs.NumDMLAffectedRows, nil
		}
	}
	return 0, nil
}

// Ensure Store implements the store.Store interface.
var _ store.Store = (*Store)(nil)
