package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/reckless-spender/internal/domain"
)

// ListCategoriesWithClient returns all categories ordered by name.
func ListCategoriesWithClient(ctx context.Context, client *bigquery.Client, ds Dataset) ([]*domain.Category, error) {
	q := client.Query(`
		SELECT id, name, is_custom
		FROM ` + ds.Table(categoriesTable) + `
		ORDER BY name
	`)

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListCategoriesWithClient: query read: %w", err)
	}

	categories := []*domain.Category{}
	for {
		var r CategoryRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListCategoriesWithClient: iter next: %w", err)
		}
		categories = append(categories, r.toDomain())
	}

	return categories, nil
}
