// Package infra constructs the configured store backend.
package infra

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dvloznov/reckless-spender/internal/config"
	"github.com/dvloznov/reckless-spender/internal/domain"
	"github.com/dvloznov/reckless-spender/internal/infra/bigquery"
	"github.com/dvloznov/reckless-spender/internal/infra/firestore"
	"github.com/dvloznov/reckless-spender/internal/infra/inmemory"
	"github.com/dvloznov/reckless-spender/internal/infra/sqlite"
	"github.com/dvloznov/reckless-spender/internal/store"
)

// OpenStore returns the backend selected by cfg.Backend. The caller closes it.
// Local backends get cfg.Categories seeded; remote ones manage their own.
func OpenStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Backend {
	case config.BackendBigQuery:
		s, err := bigquery.NewStore(ctx, cfg.BigQuery.Project, cfg.BigQuery.Dataset)
		if err != nil {
			return nil, fmt.Errorf("OpenStore: %w", err)
		}
		return s, nil
	case config.BackendFirestore:
		s, err := firestore.NewStore(ctx, cfg.Firestore.Project, cfg.Firestore.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("OpenStore: %w", err)
		}
		return s, nil
	case config.BackendSQLite:
		s, err := sqlite.NewStore(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("OpenStore: %w", err)
		}
		if err := s.SeedCategories(ctx, seedCategories(cfg.Categories)); err != nil {
			s.Close()
			return nil, fmt.Errorf("OpenStore: %w", err)
		}
		return s, nil
	case config.BackendMemory:
		return inmemory.NewStore(seedCategories(cfg.Categories)...), nil
	default:
		return nil, fmt.Errorf("OpenStore: unknown backend %q", cfg.Backend)
	}
}

// seedCategories gives each name a stable id so reopening a store does not
// duplicate its categories.
func seedCategories(names []string) []domain.Category {
	cats := make([]domain.Category, 0, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		cats = append(cats, domain.Category{
			ID:   uuid.NewSHA1(uuid.NameSpaceOID, []byte("category:"+name)).String(),
			Name: name,
		})
	}
	return cats
}
