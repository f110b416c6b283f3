package domain

import (
	"fmt"

	"cloud.google.com/go/civil"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

// TransactionFilter narrows a transaction listing. Nil fields are not
// filtered on. Date bounds are inclusive.
type TransactionFilter struct {
	StartDate  *civil.Date
	EndDate    *civil.Date
	AccountID  *string
	CategoryID *string
	Reconciled *bool
	Limit      int
	Offset     int
}

// NewTransactionFilter returns a filter with the default page.
func NewTransactionFilter() TransactionFilter {
	return TransactionFilter{Limit: DefaultListLimit}
}

// Validate checks paging bounds.
func (f TransactionFilter) Validate() error {
	if f.Limit < 1 || f.Limit > MaxListLimit {
		return fmt.Errorf("limit must be between 1 and %d", MaxListLimit)
	}
	if f.Offset < 0 {
		return fmt.Errorf("offset must be non-negative")
	}
	return nil
}

// Matches reports whether tx passes the equality and range filters.
// Paging is not considered.
func (f TransactionFilter) Matches(tx *Transaction) bool {
	if f.StartDate != nil && tx.Date.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && tx.Date.After(*f.EndDate) {
		return false
	}
	if f.AccountID != nil && tx.AccountID != *f.AccountID {
		return false
	}
	if f.CategoryID != nil && (tx.CategoryID == nil || *tx.CategoryID != *f.CategoryID) {
		return false
	}
	if f.Reconciled != nil && tx.Reconciled != *f.Reconciled {
		return false
	}
	return true
}
