package pipeline

import (
	"context"
	"fmt"

	"github.com/dvloznov/reckless-spender/internal/domain"
	"github.com/dvloznov/reckless-spender/internal/logger"
	"github.com/dvloznov/reckless-spender/internal/store"
)

// reconcileAccounts resolves every parsed account to a persisted one. All
// names are looked up with one query; missing accounts are created one by
// one. An account that cannot be created is skipped together with its
// transactions.
func reconcileAccounts(ctx context.Context, repo store.AccountRepository, state *PipelineState) error {
	log := logger.FromContext(ctx)
	parsed := state.Document.Accounts
	if len(parsed) == 0 {
		return nil
	}

	names := make([]string, len(parsed))
	unique := make([]string, 0, len(parsed))
	seen := make(map[string]bool, len(parsed))
	for i := range parsed {
		names[i] = ResolveAccountName(&parsed[i])
		if !seen[names[i]] {
			seen[names[i]] = true
			unique = append(unique, names[i])
		}
	}

	found, err := repo.FindAccountsByName(ctx, unique)
	if err != nil {
		return fmt.Errorf("reconcileAccounts: looking up accounts: %w", err)
	}

	byName := make(map[string]*domain.Account, len(unique))
	matched := make(map[string]bool, len(found))
	for name, acc := range found {
		if acc != nil {
			byName[name] = acc
		}
	}
	skipped := make(map[string]bool)

	for i := range parsed {
		name := names[i]
		if skipped[name] {
			continue
		}

		acc, ok := byName[name]
		switch {
		case ok && found[name] != nil && !matched[name]:
			matched[name] = true
			state.Result.MatchedAccounts = append(state.Result.MatchedAccounts, acc)
			log.Debug().Str("account_name", name).Str("account_id", acc.ID).Msg("Account already exists")
		case !ok:
			acc, err = repo.InsertAccount(ctx, &domain.AccountCreate{
				Name: name,
				Type: accountType(parsed[i].AccountType),
			})
			if err != nil {
				skipped[name] = true
				state.Result.SkippedAccounts = append(state.Result.SkippedAccounts, name)
				log.Error().Err(err).Str("account_name", name).Msg("Failed to create account, skipping its transactions")
				continue
			}
			if acc == nil {
				skipped[name] = true
				state.Result.SkippedAccounts = append(state.Result.SkippedAccounts, name)
				log.Error().Str("account_name", name).Msg("Account insert returned no row, skipping its transactions")
				continue
			}
			byName[name] = acc
			state.Result.CreatedAccounts = append(state.Result.CreatedAccounts, acc)
			log.Info().Str("account_name", name).Str("account_id", acc.ID).Msg("Created account")
		}

		state.Accounts = append(state.Accounts, ReconciledAccount{Parsed: &parsed[i], Account: acc})
	}

	return nil
}

// accountType returns nil for anything outside the persisted enum.
func accountType(raw string) *domain.AccountType {
	t, ok := domain.ParseAccountType(raw)
	if !ok {
		return nil
	}
	return &t
}
