package domain

import (
	"encoding/json"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Transaction is a persisted account transaction. Only CategoryID,
// Reconciled, Tags and Notes change after insert.
type Transaction struct {
	ID              string          `json:"id"`
	AccountID       string          `json:"account_id"`
	Date            civil.Date      `json:"date"`
	Description     string          `json:"description"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionType *string         `json:"transaction_type"`
	FitID           *string         `json:"fitid"`
	CategoryID      *string         `json:"category_id"`
	Reconciled      bool            `json:"reconciled"`
	Tags            []string        `json:"tags"`
	Notes           *string         `json:"notes"`
}

// MarshalJSON writes the amount with at least two decimal places, so -42.50
// stays "-42.50" instead of the trimmed "-42.5".
func (t Transaction) MarshalJSON() ([]byte, error) {
	type plain Transaction
	return json.Marshal(struct {
		plain
		Amount string `json:"amount"`
	}{plain: plain(t), Amount: FormatAmount(t.Amount)})
}

// FormatAmount renders d exactly, padded to at least two decimal places.
func FormatAmount(d decimal.Decimal) string {
	s := d.String()
	places := 0
	if i := strings.IndexByte(s, '.'); i >= 0 {
		places = len(s) - i - 1
	}
	if places < 2 {
		places = 2
	}
	return d.StringFixed(int32(places))
}

// TransactionCreate is a normalized transaction waiting to be persisted.
type TransactionCreate struct {
	AccountID       string          `json:"account_id"`
	Date            civil.Date      `json:"date"`
	Description     string          `json:"description"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionType *string         `json:"transaction_type"`
	FitID           *string         `json:"fitid"`
	CategoryID      *string         `json:"category_id"`
	Reconciled      bool            `json:"reconciled"`
	Tags            []string        `json:"tags"`
	Notes           *string         `json:"notes"`
}

// Key returns the deduplication key of the record and whether it has one.
// Records without a fitid are never deduplicated.
func (t *TransactionCreate) Key() (FitIDKey, bool) {
	if t.FitID == nil || *t.FitID == "" {
		return FitIDKey{}, false
	}
	return FitIDKey{AccountID: t.AccountID, FitID: *t.FitID}, true
}

// FitIDKey is the natural key of a transaction within the store.
type FitIDKey struct {
	AccountID string
	FitID     string
}
