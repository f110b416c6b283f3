package pipeline

import (
	"cloud.google.com/go/civil"

	"github.com/dvloznov/reckless-spender/internal/domain"
)

const missingDescription = "N/A"

// NormalizeTransaction maps a parsed transaction onto a pending record for
// the given account. The posted time is converted to UTC and the time of
// day is dropped.
func NormalizeTransaction(accountID string, tx *domain.ParsedTransaction) *domain.TransactionCreate {
	desc := tx.Payee
	if desc == "" {
		desc = tx.Memo
	}
	if desc == "" {
		desc = missingDescription
	}

	rec := &domain.TransactionCreate{
		AccountID:   accountID,
		Date:        civil.DateOf(tx.Timestamp.UTC()),
		Description: desc,
		Amount:      tx.Amount,
	}
	if tx.Type != "" {
		typ := tx.Type
		rec.TransactionType = &typ
	}
	if tx.FitID != "" {
		fitID := tx.FitID
		rec.FitID = &fitID
	}
	return rec
}
