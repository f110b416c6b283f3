// Package store defines the persistence contract shared by the storage
// backends.
package store

import (
	"context"
	"errors"

	"github.com/dvloznov/reckless-spender/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// AccountRepository persists accounts.
type AccountRepository interface {
	// FindAccountsByName returns the accounts whose name is one of names,
	// keyed by name. Names without a match are absent from the map.
	FindAccountsByName(ctx context.Context, names []string) (map[string]*domain.Account, error)
	InsertAccount(ctx context.Context, acc *domain.AccountCreate) (*domain.Account, error)
	ListAccounts(ctx context.Context) ([]*domain.Account, error)
}

// TransactionRepository persists transactions.
type TransactionRepository interface {
	// ExistingFitIDs returns the (account id, fitid) pairs already stored for
	// the given accounts. Transactions without a fitid are not returned.
	ExistingFitIDs(ctx context.Context, accountIDs []string) ([]domain.FitIDKey, error)
	// InsertTransactions stores txs as one batch and returns the rows that
	// were written. A short result together with an error means the batch
	// was only partly stored.
	InsertTransactions(ctx context.Context, txs []*domain.TransactionCreate) ([]*domain.Transaction, error)
	// ListTransactions returns matching transactions ordered by date then id,
	// both descending.
	ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error)
	// UpdateTransaction applies upd and returns the updated record, or
	// ErrNotFound.
	UpdateTransaction(ctx context.Context, id string, upd *domain.TransactionUpdate) (*domain.Transaction, error)
}

// CategoryRepository reads categories.
type CategoryRepository interface {
	// ListCategories returns all categories ordered by name.
	ListCategories(ctx context.Context) ([]*domain.Category, error)
}

// Store bundles the repositories of one backend.
type Store interface {
	AccountRepository
	TransactionRepository
	CategoryRepository
	Close() error
}
