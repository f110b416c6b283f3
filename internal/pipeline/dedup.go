package pipeline

import (
	"context"
	"fmt"

	"github.com/dvloznov/reckless-spender/internal/domain"
	"github.com/dvloznov/reckless-spender/internal/logger"
	"github.com/dvloznov/reckless-spender/internal/store"
)

func dedupPending(ctx context.Context, repo store.TransactionRepository, state *PipelineState) error {
	if len(state.Pending) == 0 {
		return nil
	}

	existing, err := repo.ExistingFitIDs(ctx, state.accountIDs())
	if err != nil {
		return fmt.Errorf("dedupPending: loading existing fitids: %w", err)
	}

	state.New = FilterNew(state.Pending, existing)
	state.Result.DuplicatesSkipped = len(state.Pending) - len(state.New)

	log := logger.FromContext(ctx)
	log.Info().
		Int("existing_fitids", len(existing)).
		Int("collected", len(state.Pending)).
		Int("new", len(state.New)).
		Msg("Filtered duplicate transactions")
	return nil
}

// FilterNew returns the pending records whose (account id, fitid) pair is
// neither in existing nor seen earlier in pending. Records without a fitid
// are always kept. Order is preserved.
func FilterNew(pending []*domain.TransactionCreate, existing []domain.FitIDKey) []*domain.TransactionCreate {
	seen := make(map[domain.FitIDKey]struct{}, len(existing)+len(pending))
	for _, k := range existing {
		seen[k] = struct{}{}
	}

	out := make([]*domain.TransactionCreate, 0, len(pending))
	for _, rec := range pending {
		key, ok := rec.Key()
		if ok {
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
		}
		out = append(out, rec)
	}
	return out
}
