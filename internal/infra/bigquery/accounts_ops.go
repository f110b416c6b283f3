package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/reckless-spender/internal/domain"
)

// FindAccountsByNameWithClient looks up all names in one query. The match
// is exact and case-sensitive.
func FindAccountsByNameWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, names []string) (map[string]*domain.Account, error) {
	found := make(map[string]*domain.Account, len(names))
	if len(names) == 0 {
		return found, nil
	}

	q := client.Query(`
		SELECT id, name, type, created_ts
		FROM ` + ds.Table(accountsTable) + `
		WHERE name IN UNNEST(@names)
		ORDER BY created_ts
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "names", Value: names},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("FindAccountsByNameWithClient: reading query: %w", err)
	}

	for {
		var row AccountRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("FindAccountsByNameWithClient: iterating: %w", err)
		}
		// Keep the oldest row if a name was ever inserted twice.
		if _, ok := found[row.Name]; !ok {
			found[row.Name] = row.toDomain()
		}
	}

	return found, nil
}

// InsertAccountWithClient creates an account and returns it with its new id.
func InsertAccountWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, acc *domain.AccountCreate) (*domain.Account, error) {
	row := &AccountRow{
		ID:        uuid.NewString(),
		Name:      acc.Name,
		CreatedTS: time.Now().UTC(),
	}
	if acc.Type != nil {
		row.Type = bigquery.NullString{StringVal: string(*acc.Type), Valid: true}
	}

	q := client.Query(`
		INSERT INTO ` + ds.Table(accountsTable) + ` (id, name, type, created_ts)
		VALUES (@id, @name, @type, @created_ts)
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "id", Value: row.ID},
		{Name: "name", Value: row.Name},
		{Name: "type", Value: row.Type},
		{Name: "created_ts", Value: row.CreatedTS},
	}

	if _, err := runDML(ctx, q); err != nil {
		return nil, fmt.Errorf("InsertAccountWithClient: %w", err)
	}

	return row.toDomain(), nil
}

// ListAccountsWithClient returns every account ordered by name.
func ListAccountsWithClient(ctx context.Context, client *bigquery.Client, ds Dataset) ([]*domain.Account, error) {
	q := client.Query(`
		SELECT id, name, type, created_ts
		FROM ` + ds.Table(accountsTable) + `
		ORDER BY name
	`)

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListAccountsWithClient: reading query: %w", err)
	}

	accounts := []*domain.Account{}
	for {
		var row AccountRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListAccountsWithClient: iterating: %w", err)
		}
		accounts = append(accounts, row.toDomain())
	}

	return accounts, nil
}
