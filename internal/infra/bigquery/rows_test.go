package bigquery

import (
	"context"
	"math/big"
	"strings"
	"testing"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/reckless-spender/internal/domain"
)

func TestDatasetTable(t *testing.T) {
	ds := Dataset{Project: "my-project", Name: "finance"}
	assert.Equal(t, "`my-project.finance.transactions`", ds.Table(transactionsTable))
}

func TestTransactionRowToDomain(t *testing.T) {
	amount, ok := new(big.Rat).SetString("-42.50")
	require.True(t, ok)

	row := &TransactionRow{
		ID:          "tx-1",
		AccountID:   "acc-1",
		Date:        civil.Date{Year: 2024, Month: 1, Day: 5},
		Description: "Coffee",
		Amount:      amount,
		FitID:       bigquery.NullString{StringVal: "X1", Valid: true},
		Tags:        []string{},
	}

	tx := row.toDomain()
	assert.True(t, tx.Amount.Equal(decimal.RequireFromString("-42.5")))
	require.NotNil(t, tx.FitID)
	assert.Equal(t, "X1", *tx.FitID)
	assert.Nil(t, tx.CategoryID)
	assert.Nil(t, tx.TransactionType)
	assert.Nil(t, tx.Tags, "empty repeated column reads as no tags")
}

func TestAccountRowToDomain(t *testing.T) {
	acc := (&AccountRow{ID: "a", Name: "n"}).toDomain()
	assert.Nil(t, acc.Type)

	acc = (&AccountRow{ID: "a", Name: "n", Type: bigquery.NullString{StringVal: "savings", Valid: true}}).toDomain()
	require.NotNil(t, acc.Type)
	assert.Equal(t, "savings", string(*acc.Type))
}

func TestAppendRowParams(t *testing.T) {
	row := &TransactionRow{ID: "tx-1", AccountID: "acc-1", Amount: big.NewRat(5, 1)}

	placeholders, params := appendRowParams(nil, 3, row)

	assert.True(t, strings.HasPrefix(placeholders, "(@id_3, @account_id_3, @date_3"))
	require.Len(t, params, 12)
	assert.Equal(t, "id_3", params[0].Name)
	assert.Equal(t, "tx-1", params[0].Value)
	assert.Equal(t, "created_ts_3", params[11].Name)
}

func TestTagsParamNeverNil(t *testing.T) {
	assert.NotNil(t, tagsParam(nil))
	assert.Equal(t, []string{"a"}, tagsParam([]string{"a"}))
}

func TestUpdateTransactionValidatesBeforeQuery(t *testing.T) {
	ds := Dataset{Project: "p", Name: "d"}

	// A nil client is never reached when the update is rejected.
	_, err := UpdateTransactionWithClient(context.Background(), nil, ds, "id", &domain.TransactionUpdate{})
	assert.ErrorIs(t, err, domain.ErrEmptyUpdate)

	_, err = UpdateTransactionWithClient(context.Background(), nil, ds, "id", &domain.TransactionUpdate{Reconciled: domain.Null[bool]()})
	assert.ErrorIs(t, err, domain.ErrNullReconciled)
}
