package pipeline

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/dvloznov/reckless-spender/internal/domain"
	"github.com/dvloznov/reckless-spender/internal/logger"
	"github.com/dvloznov/reckless-spender/internal/ofx"
	"github.com/dvloznov/reckless-spender/internal/store"
)

const (
	messageSuccess = "OFX file processed successfully."
	messagePartial = "OFX file processed, but some transactions could not be saved."
	persistFailure = "transaction batch was not fully stored"
)

// Result describes what one import did.
type Result struct {
	Filename string

	CreatedAccounts []*domain.Account
	MatchedAccounts []*domain.Account
	SkippedAccounts []string

	// Collected holds every normalized record, including duplicates.
	Collected []*domain.TransactionCreate
	// New holds the records that survived deduplication.
	New               []*domain.TransactionCreate
	Persisted         []*domain.Transaction
	DuplicatesSkipped int

	// PersistErr is set when the batch insert failed or stored fewer rows
	// than New.
	PersistErr error
}

// Partial reports whether some new transactions were not stored.
func (r *Result) Partial() bool {
	return r.PersistErr != nil
}

// Summary is the client-facing view of a Result.
type Summary struct {
	Filename              string `json:"filename"`
	Message               string `json:"message"`
	AccountsProcessed     int    `json:"accounts_processed"`
	AccountsMatched       int    `json:"accounts_matched"`
	AccountsSkipped       int    `json:"accounts_skipped"`
	TransactionsCollected int    `json:"transactions_collected"`
	TransactionsNew       int    `json:"transactions_new"`
	TransactionsPersisted int    `json:"transactions_persisted"`
	DuplicatesSkipped     int    `json:"duplicates_skipped"`
	PersistError          string `json:"persist_error,omitempty"`
	ArchiveURI            string `json:"archive_uri,omitempty"`
}

// Summary builds the client-facing counts. accounts_processed counts newly
// created accounts only.
func (r *Result) Summary() Summary {
	s := Summary{
		Filename:              r.Filename,
		Message:               messageSuccess,
		AccountsProcessed:     len(r.CreatedAccounts),
		AccountsMatched:       len(r.MatchedAccounts),
		AccountsSkipped:       len(r.SkippedAccounts),
		TransactionsCollected: len(r.Collected),
		TransactionsNew:       len(r.New),
		TransactionsPersisted: len(r.Persisted),
		DuplicatesSkipped:     r.DuplicatesSkipped,
	}
	if r.Partial() {
		s.Message = messagePartial
		s.PersistError = persistFailure
	}
	return s
}

// Importer runs OFX imports against a store.
type Importer struct {
	accounts     store.AccountRepository
	transactions store.TransactionRepository
	log          zerolog.Logger
}

// NewImporter creates an Importer.
func NewImporter(accounts store.AccountRepository, transactions store.TransactionRepository, log zerolog.Logger) *Importer {
	return &Importer{
		accounts:     accounts,
		transactions: transactions,
		log:          log,
	}
}

// Import parses content and stores its accounts and new transactions. The
// returned error covers parse and lookup failures; a failed batch insert is
// reported through Result.PersistErr.
func (im *Importer) Import(ctx context.Context, filename string, content []byte) (*Result, error) {
	log := im.log.With().Str("filename", filename).Logger()
	ctx = logger.WithContext(ctx, log)

	state := &PipelineState{
		Filename: filename,
		Content:  content,
		Result:   &Result{Filename: filename},
	}

	if err := NewImportPipeline(im.accounts, im.transactions).Execute(ctx, state); err != nil {
		log.Error().Err(err).Msg("Import failed")
		return nil, err
	}

	res := state.Result
	res.Collected = state.Pending
	res.New = state.New

	log.Info().
		Int("accounts_created", len(res.CreatedAccounts)).
		Int("accounts_matched", len(res.MatchedAccounts)).
		Int("accounts_skipped", len(res.SkippedAccounts)).
		Int("collected", len(res.Collected)).
		Int("persisted", len(res.Persisted)).
		Bool("partial", res.Partial()).
		Msg("Import finished")

	return res, nil
}

// ParseFailure returns the parser's message when err came from decoding the
// statement, without the pipeline step prefix.
func ParseFailure(err error) (string, bool) {
	if !errors.Is(err, ofx.ErrInvalidDocument) {
		return "", false
	}
	if inner := errors.Unwrap(err); inner != nil {
		return inner.Error(), true
	}
	return err.Error(), true
}
