package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/reckless-spender/internal/domain"
)

type AccountRow struct {
	ID        string              `bigquery:"id"`         // REQUIRED
	Name      string              `bigquery:"name"`       // REQUIRED
	Type      bigquery.NullString `bigquery:"type"`       // NULLABLE
	CreatedTS time.Time           `bigquery:"created_ts"` // REQUIRED
}

type TransactionRow struct {
	ID        string `bigquery:"id"`         // REQUIRED
	AccountID string `bigquery:"account_id"` // REQUIRED

	Date        civil.Date `bigquery:"date"`        // REQUIRED DATE
	Description string     `bigquery:"description"` // REQUIRED
	Amount      *big.Rat   `bigquery:"amount"`      // REQUIRED NUMERIC

	TransactionType bigquery.NullString `bigquery:"transaction_type"` // NULLABLE
	FitID           bigquery.NullString `bigquery:"fitid"`            // NULLABLE
	CategoryID      bigquery.NullString `bigquery:"category_id"`      // NULLABLE
	Reconciled      bool                `bigquery:"reconciled"`       // REQUIRED, default FALSE
	Tags            []string            `bigquery:"tags"`             // REPEATED STRING
	Notes           bigquery.NullString `bigquery:"notes"`            // NULLABLE

	CreatedTS time.Time              `bigquery:"created_ts"` // REQUIRED
	UpdatedTS bigquery.NullTimestamp `bigquery:"updated_ts"` // NULLABLE
}

type FitIDRow struct {
	AccountID string `bigquery:"account_id"`
	FitID     string `bigquery:"fitid"`
}

type CategoryRow struct {
	ID       string `bigquery:"id"`        // REQUIRED
	Name     string `bigquery:"name"`      // REQUIRED
	IsCustom bool   `bigquery:"is_custom"` // REQUIRED
}

func (r *AccountRow) toDomain() *domain.Account {
	acc := &domain.Account{ID: r.ID, Name: r.Name}
	if r.Type.Valid {
		t := domain.AccountType(r.Type.StringVal)
		acc.Type = &t
	}
	return acc
}

func (r *TransactionRow) toDomain() *domain.Transaction {
	tx := &domain.Transaction{
		ID:              r.ID,
		AccountID:       r.AccountID,
		Date:            r.Date,
		Description:     r.Description,
		TransactionType: nullStringPtr(r.TransactionType),
		FitID:           nullStringPtr(r.FitID),
		CategoryID:      nullStringPtr(r.CategoryID),
		Reconciled:      r.Reconciled,
		Notes:           nullStringPtr(r.Notes),
	}
	if r.Amount != nil {
		tx.Amount = ratToDecimal(r.Amount)
	}
	if len(r.Tags) > 0 {
		tx.Tags = r.Tags
	}
	return tx
}

func (r *CategoryRow) toDomain() *domain.Category {
	return &domain.Category{ID: r.ID, Name: r.Name, IsCustom: r.IsCustom}
}

// ratToDecimal is exact for NUMERIC values, whose scale never exceeds
// numericScale.
func ratToDecimal(r *big.Rat) decimal.Decimal {
	d, err := decimal.NewFromString(r.FloatString(numericScale))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func nullString(s *string) bigquery.NullString {
	if s == nil {
		return bigquery.NullString{}
	}
	return bigquery.NullString{StringVal: *s, Valid: true}
}

func nullStringPtr(ns bigquery.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.StringVal
	return &v
}

// tagsParam never returns nil: REPEATED columns cannot hold NULL.
func tagsParam(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
