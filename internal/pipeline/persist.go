package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/reckless-spender/internal/logger"
	"github.com/dvloznov/reckless-spender/internal/store"
)

// ErrShortInsert reports that the store accepted fewer rows than were sent.
var ErrShortInsert = errors.New("transaction batch only partly stored")

// persistNew writes the filtered batch. Failures are recorded on the result
// and do not abort the import.
func persistNew(ctx context.Context, repo store.TransactionRepository, state *PipelineState) {
	log := logger.FromContext(ctx)
	if len(state.New) == 0 {
		log.Info().Msg("No new transactions to insert")
		return
	}

	stored, err := repo.InsertTransactions(ctx, state.New)
	state.Result.Persisted = stored

	switch {
	case err != nil:
		state.Result.PersistErr = fmt.Errorf("persistNew: inserting %d transactions: %w", len(state.New), err)
	case len(stored) < len(state.New):
		state.Result.PersistErr = fmt.Errorf("persistNew: %w: %d of %d", ErrShortInsert, len(stored), len(state.New))
	}

	if state.Result.PersistErr != nil {
		log.Error().Err(state.Result.PersistErr).
			Int("attempted", len(state.New)).
			Int("stored", len(stored)).
			Msg("Transaction batch insert incomplete")
		return
	}
	log.Info().Int("stored", len(stored)).Msg("Inserted transactions")
}
