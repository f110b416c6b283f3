// Package firestore is the Firestore store backend.
package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"github.com/shopspring/decimal"
	"google.golang.org/api/option"

	"github.com/dvloznov/reckless-spender/internal/domain"
	"github.com/dvloznov/reckless-spender/internal/store"
)

const (
	accountsCollection     = "accounts"
	transactionsCollection = "transactions"
	categoriesCollection   = "categories"

	// maxInValues is the Firestore limit on values in an "in" filter.
	maxInValues = 30
)

// Store is the Firestore implementation of store.Store.
type Store struct {
	client *firestore.Client
}

// NewStore initializes a Firebase app for projectID and opens its Firestore
// database. credentialsFile is optional; Application Default Credentials are
// used when it is empty.
func NewStore(ctx context.Context, projectID, credentialsFile string) (*Store, error) {
	conf := &firebase.Config{ProjectID: projectID}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewStore: initializing firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewStore: creating firestore client: %w", err)
	}

	return NewStoreWithClient(client), nil
}

// NewStoreWithClient creates a Store around an existing client.
func NewStoreWithClient(client *firestore.Client) *Store {
	return &Store{client: client}
}

// Close closes the Firestore client.
func (s *Store) Close() error {
	return s.client.Close()
}

// accountDoc is the stored form of an account.
type accountDoc struct {
	ID        string    `firestore:"id"`
	Name      string    `firestore:"name"`
	Type      *string   `firestore:"type"`
	CreatedAt time.Time `firestore:"createdAt"`
}

// transactionDoc is the stored form of a transaction. Dates are kept as
// YYYY-MM-DD strings so they sort and compare as calendar dates, amounts as
// decimal strings so they stay exact.
type transactionDoc struct {
	ID              string     `firestore:"id"`
	AccountID       string     `firestore:"accountId"`
	Date            string     `firestore:"date"`
	Description     string     `firestore:"description"`
	Amount          string     `firestore:"amount"`
	TransactionType *string    `firestore:"transactionType"`
	FitID           *string    `firestore:"fitid"`
	CategoryID      *string    `firestore:"categoryId"`
	Reconciled      bool       `firestore:"reconciled"`
	Tags            []string   `firestore:"tags"`
	Notes           *string    `firestore:"notes"`
	CreatedAt       time.Time  `firestore:"createdAt"`
	UpdatedAt       *time.Time `firestore:"updatedAt"`
}

type categoryDoc struct {
	ID       string `firestore:"id"`
	Name     string `firestore:"name"`
	IsCustom bool   `firestore:"isCustom"`
}

func (d *accountDoc) toDomain() *domain.Account {
	acc := &domain.Account{ID: d.ID, Name: d.Name}
	if d.Type != nil {
		t := domain.AccountType(*d.Type)
		acc.Type = &t
	}
	return acc
}

func (d *transactionDoc) toDomain() (*domain.Transaction, error) {
	date, err := civil.ParseDate(d.Date)
	if err != nil {
		return nil, fmt.Errorf("transaction %s: parsing date %q: %w", d.ID, d.Date, err)
	}
	amount, err := decimal.NewFromString(d.Amount)
	if err != nil {
		return nil, fmt.Errorf("transaction %s: parsing amount %q: %w", d.ID, d.Amount, err)
	}
	return &domain.Transaction{
		ID:              d.ID,
		AccountID:       d.AccountID,
		Date:            date,
		Description:     d.Description,
		Amount:          amount,
		TransactionType: d.TransactionType,
		FitID:           d.FitID,
		CategoryID:      d.CategoryID,
		Reconciled:      d.Reconciled,
		Tags:            d.Tags,
		Notes:           d.Notes,
	}, nil
}

func newTransactionDoc(id string, tx *domain.TransactionCreate, now time.Time) *transactionDoc {
	return &transactionDoc{
		ID:              id,
		AccountID:       tx.AccountID,
		Date:            tx.Date.String(),
		Description:     tx.Description,
		Amount:          tx.Amount.String(),
		TransactionType: tx.TransactionType,
		FitID:           tx.FitID,
		CategoryID:      tx.CategoryID,
		Reconciled:      tx.Reconciled,
		Tags:            tx.Tags,
		Notes:           tx.Notes,
		CreatedAt:       now,
	}
}

// chunk splits values into slices of at most size elements.
func chunk(values []string, size int) [][]string {
	var out [][]string
	for start := 0; start < len(values); start += size {
		out = append(out, values[start:min(start+size, len(values))])
	}
	return out
}

// Ensure Store implements the store.Store interface.
var _ store.Store = (*Store)(nil)
