package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/reckless-spender/internal/domain"
	"github.com/dvloznov/reckless-spender/internal/store"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err, "Failed to create test store")
	t.Cleanup(func() { s.Close() })
	return s
}

func strPtr(s string) *string { return &s }

func day(y int, m time.Month, d int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: d}
}

func pending(accountID, fitID string, d civil.Date, amount string) *domain.TransactionCreate {
	tx := &domain.TransactionCreate{
		AccountID:   accountID,
		Date:        d,
		Description: "desc " + fitID,
		Amount:      decimal.RequireFromString(amount),
	}
	if fitID != "" {
		tx.FitID = strPtr(fitID)
	}
	return tx
}

func TestNewStoreCreatesSchema(t *testing.T) {
	s := setupTestStore(t)

	for _, table := range []string{"accounts", "transactions", "categories"} {
		var count int
		err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count, "%s table should exist", table)
	}
}

func TestAccounts(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	checking := domain.AccountTypeChecking
	a, err := s.InsertAccount(ctx, &domain.AccountCreate{Name: "Bank - 1 (CHECKING)", Type: &checking})
	require.NoError(t, err)
	b, err := s.InsertAccount(ctx, &domain.AccountCreate{Name: "Another - 2 (SAVINGS)"})
	require.NoError(t, err)

	_, err = s.InsertAccount(ctx, &domain.AccountCreate{Name: "Bank - 1 (CHECKING)"})
	assert.Error(t, err, "names are unique")

	found, err := s.FindAccountsByName(ctx, []string{"Bank - 1 (CHECKING)", "bank - 1 (checking)", "missing"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, a.ID, found["Bank - 1 (CHECKING)"].ID)
	require.NotNil(t, found["Bank - 1 (CHECKING)"].Type)
	assert.Equal(t, domain.AccountTypeChecking, *found["Bank - 1 (CHECKING)"].Type)

	accounts, err := s.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, b.ID, accounts[0].ID)
	assert.Nil(t, accounts[0].Type)
}

func TestTransactionsInsertAndDedupKeys(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	acc, err := s.InsertAccount(ctx, &domain.AccountCreate{Name: "acc"})
	require.NoError(t, err)

	written, err := s.InsertTransactions(ctx, []*domain.TransactionCreate{
		pending(acc.ID, "T1", day(2024, 1, 2), "-42.50"),
		pending(acc.ID, "", day(2024, 1, 3), "10"),
		pending(acc.ID, "", day(2024, 1, 3), "10"),
	})
	require.NoError(t, err)
	require.Len(t, written, 3)

	keys, err := s.ExistingFitIDs(ctx, []string{acc.ID})
	require.NoError(t, err)
	assert.Equal(t, []domain.FitIDKey{{AccountID: acc.ID, FitID: "T1"}}, keys)

	// A repeated (account, fitid) pair rolls the whole batch back.
	_, err = s.InsertTransactions(ctx, []*domain.TransactionCreate{
		pending(acc.ID, "T2", day(2024, 1, 4), "1"),
		pending(acc.ID, "T1", day(2024, 1, 4), "1"),
	})
	require.Error(t, err)

	all, err := s.ListTransactions(ctx, domain.NewTransactionFilter())
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestListTransactionsFilters(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	a, err := s.InsertAccount(ctx, &domain.AccountCreate{Name: "a"})
	require.NoError(t, err)
	b, err := s.InsertAccount(ctx, &domain.AccountCreate{Name: "b"})
	require.NoError(t, err)

	_, err = s.InsertTransactions(ctx, []*domain.TransactionCreate{
		pending(a.ID, "1", day(2024, 1, 1), "-1.10"),
		pending(a.ID, "2", day(2024, 1, 5), "-2.20"),
		pending(b.ID, "3", day(2024, 1, 10), "3.30"),
	})
	require.NoError(t, err)

	t.Run("ordered by date descending", func(t *testing.T) {
		txs, err := s.ListTransactions(ctx, domain.NewTransactionFilter())
		require.NoError(t, err)
		require.Len(t, txs, 3)
		assert.Equal(t, day(2024, 1, 10), txs[0].Date)
		assert.Equal(t, day(2024, 1, 1), txs[2].Date)
		assert.Equal(t, "-1.1", txs[2].Amount.String())
	})

	t.Run("inclusive date range", func(t *testing.T) {
		f := domain.NewTransactionFilter()
		start, end := day(2024, 1, 1), day(2024, 1, 5)
		f.StartDate, f.EndDate = &start, &end
		txs, err := s.ListTransactions(ctx, f)
		require.NoError(t, err)
		assert.Len(t, txs, 2)
	})

	t.Run("account filter", func(t *testing.T) {
		f := domain.NewTransactionFilter()
		f.AccountID = &b.ID
		txs, err := s.ListTransactions(ctx, f)
		require.NoError(t, err)
		require.Len(t, txs, 1)
		assert.Equal(t, "3", *txs[0].FitID)
	})

	t.Run("paging", func(t *testing.T) {
		f := domain.NewTransactionFilter()
		f.Limit, f.Offset = 1, 1
		txs, err := s.ListTransactions(ctx, f)
		require.NoError(t, err)
		require.Len(t, txs, 1)
		assert.Equal(t, day(2024, 1, 5), txs[0].Date)
	})
}

func TestUpdateTransaction(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	acc, err := s.InsertAccount(ctx, &domain.AccountCreate{Name: "acc"})
	require.NoError(t, err)
	written, err := s.InsertTransactions(ctx, []*domain.TransactionCreate{
		pending(acc.ID, "T1", day(2024, 1, 2), "-5"),
	})
	require.NoError(t, err)
	id := written[0].ID

	updated, err := s.UpdateTransaction(ctx, id, &domain.TransactionUpdate{
		CategoryID: domain.Some("groceries"),
		Reconciled: domain.Some(true),
		Tags:       domain.Some([]string{"food", "weekly"}),
	})
	require.NoError(t, err)
	assert.Equal(t, "groceries", *updated.CategoryID)
	assert.True(t, updated.Reconciled)
	assert.Equal(t, []string{"food", "weekly"}, updated.Tags)
	assert.Nil(t, updated.Notes)

	f := domain.NewTransactionFilter()
	f.CategoryID = strPtr("groceries")
	reconciled := true
	f.Reconciled = &reconciled
	txs, err := s.ListTransactions(ctx, f)
	require.NoError(t, err)
	assert.Len(t, txs, 1)

	cleared, err := s.UpdateTransaction(ctx, id, &domain.TransactionUpdate{
		CategoryID: domain.Null[string](),
		Tags:       domain.Null[[]string](),
	})
	require.NoError(t, err)
	assert.Nil(t, cleared.CategoryID)
	assert.Nil(t, cleared.Tags)
	assert.True(t, cleared.Reconciled, "omitted fields are unchanged")

	_, err = s.UpdateTransaction(ctx, "missing", &domain.TransactionUpdate{Notes: domain.Some("x")})
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.UpdateTransaction(ctx, id, &domain.TransactionUpdate{})
	assert.ErrorIs(t, err, domain.ErrEmptyUpdate)
}

func TestCategories(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	require.NoError(t, s.SeedCategories(ctx, []domain.Category{
		{ID: "2", Name: "Transport"},
		{ID: "1", Name: "Groceries", IsCustom: true},
	}))
	require.NoError(t, s.SeedCategories(ctx, []domain.Category{{ID: "1", Name: "Groceries"}}))

	categories, err := s.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "Groceries", categories[0].Name)
	assert.True(t, categories[0].IsCustom)
	assert.Equal(t, "Transport", categories[1].Name)
}
