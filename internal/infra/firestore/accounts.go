package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/reckless-spender/internal/domain"
)

// FindAccountsByName looks names up with "in" queries of at most
// maxInValues names each.
func (s *Store) FindAccountsByName(ctx context.Context, names []string) (map[string]*domain.Account, error) {
	found := make(map[string]*domain.Account, len(names))

	for _, batch := range chunk(names, maxInValues) {
		iter := s.client.Collection(accountsCollection).
			Where("name", "in", batch).
			Documents(ctx)

		for {
			doc, err := iter.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				iter.Stop()
				return nil, fmt.Errorf("FindAccountsByName: iterating accounts: %w", err)
			}

			var acc accountDoc
			if err := doc.DataTo(&acc); err != nil {
				iter.Stop()
				return nil, fmt.Errorf("FindAccountsByName: decoding %s: %w", doc.Ref.ID, err)
			}
			if _, ok := found[acc.Name]; !ok {
				found[acc.Name] = acc.toDomain()
			}
		}
	}

	return found, nil
}

// InsertAccount creates the account document with a new id.
func (s *Store) InsertAccount(ctx context.Context, acc *domain.AccountCreate) (*domain.Account, error) {
	doc := &accountDoc{
		ID:        uuid.NewString(),
		Name:      acc.Name,
		CreatedAt: time.Now().UTC(),
	}
	if acc.Type != nil {
		t := string(*acc.Type)
		doc.Type = &t
	}

	if _, err := s.client.Collection(accountsCollection).Doc(doc.ID).Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("InsertAccount: creating %q: %w", acc.Name, err)
	}
	return doc.toDomain(), nil
}

// ListAccounts returns every account ordered by name.
func (s *Store) ListAccounts(ctx context.Context) ([]*domain.Account, error) {
	iter := s.client.Collection(accountsCollection).
		OrderBy("name", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	accounts := []*domain.Account{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListAccounts: iterating accounts: %w", err)
		}

		var acc accountDoc
		if err := doc.DataTo(&acc); err != nil {
			return nil, fmt.Errorf("ListAccounts: decoding %s: %w", doc.Ref.ID, err)
		}
		accounts = append(accounts, acc.toDomain())
	}

	return accounts, nil
}

// ListCategories returns all categories ordered by name.
func (s *Store) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	iter := s.client.Collection(categoriesCollection).
		OrderBy("name", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	categories := []*domain.Category{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListCategories: iterating categories: %w", err)
		}

		var c categoryDoc
		if err := doc.DataTo(&c); err != nil {
			return nil, fmt.Errorf("ListCategories: decoding %s: %w", doc.Ref.ID, err)
		}
		if c.ID == "" {
			c.ID = doc.Ref.ID
		}
		categories = append(categories, &domain.Category{ID: c.ID, Name: c.Name, IsCustom: c.IsCustom})
	}

	return categories, nil
}
