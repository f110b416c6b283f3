package domain

import "strings"

// AccountType is the persisted account classification.
type AccountType string

const (
	AccountTypeChecking AccountType = "checking"
	AccountTypeSavings  AccountType = "savings"
	AccountTypeCredit   AccountType = "credit"
)

// ParseAccountType maps a raw type string onto AccountType. Surrounding
// whitespace is ignored, the comparison itself is case-sensitive.
func ParseAccountType(raw string) (AccountType, bool) {
	switch t := AccountType(strings.TrimSpace(raw)); t {
	case AccountTypeChecking, AccountTypeSavings, AccountTypeCredit:
		return t, true
	}
	return "", false
}

// Account is a persisted bank account. Name is the natural key used to
// match accounts across imports.
type Account struct {
	ID   string       `json:"id"`
	Name string       `json:"name"`
	Type *AccountType `json:"type"`
}

// AccountCreate holds the fields needed to insert a new account.
type AccountCreate struct {
	Name string
	Type *AccountType
}
