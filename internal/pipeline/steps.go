package pipeline

import (
	"bytes"
	"context"
	"fmt"

	"github.com/dvloznov/reckless-spender/internal/domain"
	"github.com/dvloznov/reckless-spender/internal/logger"
	"github.com/dvloznov/reckless-spender/internal/ofx"
	"github.com/dvloznov/reckless-spender/internal/store"
)

// PipelineStep represents a single step in the import pipeline.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	Filename string
	Content  []byte

	Document *domain.ParsedDocument
	Accounts []ReconciledAccount
	Pending  []*domain.TransactionCreate
	New      []*domain.TransactionCreate

	Result *Result
}

// ReconciledAccount pairs a parsed account with its persisted counterpart.
type ReconciledAccount struct {
	Parsed  *domain.ParsedAccount
	Account *domain.Account
}

// accountIDs returns the distinct persisted ids touched by this import.
func (s *PipelineState) accountIDs() []string {
	seen := make(map[string]bool, len(s.Accounts))
	ids := make([]string, 0, len(s.Accounts))
	for _, ra := range s.Accounts {
		if seen[ra.Account.ID] {
			continue
		}
		seen[ra.Account.ID] = true
		ids = append(ids, ra.Account.ID)
	}
	return ids
}

// Step 1: ParseStep decodes the uploaded document.
type ParseStep struct{}

func (s *ParseStep) Execute(ctx context.Context, state *PipelineState) error {
	doc, err := ofx.Parse(bytes.NewReader(state.Content))
	if err != nil {
		return err
	}
	state.Document = doc

	log := logger.FromContext(ctx)
	log.Info().
		Int("accounts", len(doc.Accounts)).
		Int("transactions", doc.TransactionCount()).
		Msg("Parsed OFX document")
	return nil
}

// Step 2: ReconcileAccountsStep looks up or creates every parsed account.
type ReconcileAccountsStep struct {
	Accounts store.AccountRepository
}

func (s *ReconcileAccountsStep) Execute(ctx context.Context, state *PipelineState) error {
	return reconcileAccounts(ctx, s.Accounts, state)
}

// Step 3: NormalizeStep turns parsed transactions into pending records.
type NormalizeStep struct{}

func (s *NormalizeStep) Execute(ctx context.Context, state *PipelineState) error {
	for _, ra := range state.Accounts {
		for i := range ra.Parsed.Transactions {
			state.Pending = append(state.Pending, NormalizeTransaction(ra.Account.ID, &ra.Parsed.Transactions[i]))
		}
	}
	return nil
}

// Step 4: DedupStep drops records whose fitid is already stored.
type DedupStep struct {
	Transactions store.TransactionRepository
}

func (s *DedupStep) Execute(ctx context.Context, state *PipelineState) error {
	return dedupPending(ctx, s.Transactions, state)
}

// Step 5: PersistStep stores the remaining records in one batch.
type PersistStep struct {
	Transactions store.TransactionRepository
}

func (s *PersistStep) Execute(ctx context.Context, state *PipelineState) error {
	persistNew(ctx, s.Transactions, state)
	return nil
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// NewImportPipeline creates the standard 5-step pipeline for importing an
// OFX statement.
func NewImportPipeline(accounts store.AccountRepository, transactions store.TransactionRepository) *Pipeline {
	return NewPipeline(
		&ParseStep{},
		&ReconcileAccountsStep{Accounts: accounts},
		&NormalizeStep{},
		&DedupStep{Transactions: transactions},
		&PersistStep{Transactions: transactions},
	)
}
