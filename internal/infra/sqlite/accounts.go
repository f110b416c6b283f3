package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dvloznov/reckless-spender/internal/domain"
)

// FindAccountsByName looks all names up in one query.
func (s *Store) FindAccountsByName(ctx context.Context, names []string) (map[string]*domain.Account, error) {
	found := make(map[string]*domain.Account, len(names))
	if len(names) == 0 {
		return found, nil
	}

	args := make([]any, len(names))
	for i, n := range names {
		args[i] = n
	}
	query := `SELECT id, name, type FROM accounts WHERE name IN (` + placeholders(len(names)) + `)`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("FindAccountsByName: querying: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("FindAccountsByName: scanning: %w", err)
		}
		found[acc.Name] = acc
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("FindAccountsByName: %w", err)
	}
	return found, nil
}

// InsertAccount stores a new account. The unique name constraint rejects a
// second account with the same name.
func (s *Store) InsertAccount(ctx context.Context, acc *domain.AccountCreate) (*domain.Account, error) {
	out := &domain.Account{ID: uuid.NewString(), Name: acc.Name, Type: acc.Type}

	var typ sql.NullString
	if acc.Type != nil {
		typ = sql.NullString{String: string(*acc.Type), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (id, name, type) VALUES (?, ?, ?)`,
		out.ID, out.Name, typ)
	if err != nil {
		return nil, fmt.Errorf("InsertAccount: inserting %q: %w", acc.Name, err)
	}
	return out, nil
}

// ListAccounts returns every account ordered by name.
func (s *Store) ListAccounts(ctx context.Context) ([]*domain.Account, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, type FROM accounts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("ListAccounts: querying: %w", err)
	}
	defer rows.Close()

	accounts := []*domain.Account{}
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("ListAccounts: scanning: %w", err)
		}
		accounts = append(accounts, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListAccounts: %w", err)
	}
	return accounts, nil
}

func scanAccount(row scanner) (*domain.Account, error) {
	var (
		acc domain.Account
		typ sql.NullString
	)
	if err := row.Scan(&acc.ID, &acc.Name, &typ); err != nil {
		return nil, err
	}
	if typ.Valid {
		t := domain.AccountType(typ.String)
		acc.Type = &t
	}
	return &acc, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
