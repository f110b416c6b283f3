package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Institution identifies the financial institution that issued a statement.
// Either field may be empty.
type Institution struct {
	Org string
	FID string
}

// ParsedTransaction is a single statement line as read from the document.
type ParsedTransaction struct {
	Timestamp time.Time
	Payee     string
	Memo      string
	Amount    decimal.Decimal
	Type      string // lower-case OFX TRNTYPE, e.g. "debit"
	FitID     string // empty when the statement carries none
}

// ParsedAccount is one account section of a statement together with its
// transactions in document order.
type ParsedAccount struct {
	AccountID    string
	AccountType  string
	Institution  Institution
	Transactions []ParsedTransaction
}

// ParsedDocument is the parser output for one uploaded file.
type ParsedDocument struct {
	Accounts []ParsedAccount
}

// TransactionCount returns the number of transactions across all accounts.
func (d *ParsedDocument) TransactionCount() int {
	n := 0
	for _, acc := range d.Accounts {
		n += len(acc.Transactions)
	}
	return n
}
