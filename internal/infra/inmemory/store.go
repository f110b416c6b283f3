// Package inmemory is a process-local store backend. It is used for local
// runs without cloud credentials and in tests. Data is lost on restart.
package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/dvloznov/reckless-spender/internal/domain"
	"github.com/dvloznov/reckless-spender/internal/store"
)

// Store is an in-memory implementation of store.Store.
// It is safe for concurrent use and hands out copies only.
type Store struct {
	mu           sync.RWMutex
	accounts     map[string]*domain.Account
	accountNames map[string]string
	transactions map[string]*domain.Transaction
	fitIDs       map[domain.FitIDKey]string
	categories   []*domain.Category
}

// NewStore creates an empty store holding the given categories.
func NewStore(categories ...domain.Category) *Store {
	s := &Store{
		accounts:     make(map[string]*domain.Account),
		accountNames: make(map[string]string),
		transactions: make(map[string]*domain.Transaction),
		fitIDs:       make(map[domain.FitIDKey]string),
	}
	for _, c := range categories {
		c := c
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		s.categories = append(s.categories, &c)
	}
	return s
}

// FindAccountsByName implements store.AccountRepository.
func (s *Store) FindAccountsByName(ctx context.Context, names []string) (map[string]*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*domain.Account, len(names))
	for _, name := range names {
		if id, ok := s.accountNames[name]; ok {
			out[name] = copyAccount(s.accounts[id])
		}
	}
	return out, nil
}

// InsertAccount implements store.AccountRepository. Names are unique.
func (s *Store) InsertAccount(ctx context.Context, acc *domain.AccountCreate) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accountNames[acc.Name]; exists {
		return nil, fmt.Errorf("account %q already exists", acc.Name)
	}

	row := &domain.Account{ID: uuid.NewString(), Name: acc.Name}
	if acc.Type != nil {
		t := *acc.Type
		row.Type = &t
	}
	s.accounts[row.ID] = row
	s.accountNames[row.Name] = row.ID
	return copyAccount(row), nil
}

// ListAccounts implements store.AccountRepository.
func (s *Store) ListAccounts(ctx context.Context) ([]*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Account, 0, len(s.accounts))
	for _, acc := range s.accounts {
		out = append(out, copyAccount(acc))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ExistingFitIDs implements store.TransactionRepository.
func (s *Store) ExistingFitIDs(ctx context.Context, accountIDs []string) ([]domain.FitIDKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]bool, len(accountIDs))
	for _, id := range accountIDs {
		wanted[id] = true
	}

	var out []domain.FitIDKey
	for key := range s.fitIDs {
		if wanted[key.AccountID] {
			out = append(out, key)
		}
	}
	return out, nil
}

// InsertTransactions implements store.TransactionRepository. The batch is
// rejected as a whole when it would break (account id, fitid) uniqueness.
func (s *Store) InsertTransactions(ctx context.Context, txs []*domain.TransactionCreate) ([]*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make(map[domain.FitIDKey]bool, len(txs))
	for _, tx := range txs {
		if _, ok := s.accounts[tx.AccountID]; !ok {
			return nil, fmt.Errorf("account %s does not exist", tx.AccountID)
		}
		key, ok := tx.Key()
		if !ok {
			continue
		}
		if _, dup := s.fitIDs[key]; dup || batch[key] {
			return nil, fmt.Errorf("duplicate fitid %s for account %s", key.FitID, key.AccountID)
		}
		batch[key] = true
	}

	out := make([]*domain.Transaction, 0, len(txs))
	for _, tx := range txs {
		row := &domain.Transaction{
			ID:              uuid.NewString(),
			AccountID:       tx.AccountID,
			Date:            tx.Date,
			Description:     tx.Description,
			Amount:          tx.Amount,
			TransactionType: copyString(tx.TransactionType),
			FitID:           copyString(tx.FitID),
			CategoryID:      copyString(tx.CategoryID),
			Reconciled:      tx.Reconciled,
			Tags:            copyTags(tx.Tags),
			Notes:           copyString(tx.Notes),
		}
		s.transactions[row.ID] = row
		if key, ok := tx.Key(); ok {
			s.fitIDs[key] = row.ID
		}
		out = append(out, copyTransaction(row))
	}
	return out, nil
}

// ListTransactions implements store.TransactionRepository.
func (s *Store) ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*domain.Transaction
	for _, tx := range s.transactions {
		if filter.Matches(tx) {
			matched = append(matched, tx)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Date != matched[j].Date {
			return matched[i].Date.After(matched[j].Date)
		}
		return matched[i].ID > matched[j].ID
	})

	if filter.Offset >= len(matched) {
		return []*domain.Transaction{}, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}

	out := make([]*domain.Transaction, len(matched))
	for i, tx := range matched {
		out[i] = copyTransaction(tx)
	}
	return out, nil
}

// UpdateTransaction implements store.TransactionRepository.
func (s *Store) UpdateTransaction(ctx context.Context, id string, upd *domain.TransactionUpdate) (*domain.Transaction, error) {
	if err := upd.Validate(); err != nil {
		return nil, fmt.Errorf("UpdateTransaction: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[id]
	if !ok {
		return nil, fmt.Errorf("UpdateTransaction: %s: %w", id, store.ErrNotFound)
	}
	upd.Apply(tx)
	return copyTransaction(tx), nil
}

// ListCategories implements store.CategoryRepository.
func (s *Store) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Category, len(s.categories))
	for i, c := range s.categories {
		cp := *c
		out[i] = &cp
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Close implements store.Store.
func (s *Store) Close() error {
	return nil
}

func copyAccount(a *domain.Account) *domain.Account {
	cp := *a
	if a.Type != nil {
		t := *a.Type
		cp.Type = &t
	}
	return &cp
}

func copyTransaction(tx *domain.Transaction) *domain.Transaction {
	cp := *tx
	cp.TransactionType = copyString(tx.TransactionType)
	cp.FitID = copyString(tx.FitID)
	cp.CategoryID = copyString(tx.CategoryID)
	cp.Notes = copyString(tx.Notes)
	cp.Tags = copyTags(tx.Tags)
	return &cp
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func copyTags(tags []string) []string {
	if tags == nil {
		return nil
	}
	return append([]string{}, tags...)
}

// Ensure Store implements the store.Store interface.
var _ store.Store = (*Store)(nil)
