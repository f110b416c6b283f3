package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dvloznov/reckless-spender/internal/domain"
	"github.com/dvloznov/reckless-spender/internal/store"
)

// ExistingFitIDs returns the stored (account id, fitid) pairs of accountIDs.
func (s *Store) ExistingFitIDs(ctx context.Context, accountIDs []string) ([]domain.FitIDKey, error) {
	var keys []domain.FitIDKey

	for _, batch := range chunk(accountIDs, maxInValues) {
		iter := s.client.Collection(transactionsCollection).
			Where("accountId", "in", batch).
			Select("accountId", "fitid").
			Documents(ctx)

		for {
			doc, err := iter.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				iter.Stop()
				return nil, fmt.Errorf("ExistingFitIDs: iterating transactions: %w", err)
			}

			var row struct {
				AccountID string  `firestore:"accountId"`
				FitID     *string `firestore:"fitid"`
			}
			if err := doc.DataTo(&row); err != nil {
				iter.Stop()
				return nil, fmt.Errorf("ExistingFitIDs: decoding %s: %w", doc.Ref.ID, err)
			}
			if row.FitID == nil || *row.FitID == "" {
				continue
			}
			keys = append(keys, domain.FitIDKey{AccountID: row.AccountID, FitID: *row.FitID})
		}
	}

	return keys, nil
}

// InsertTransactions writes txs through a BulkWriter. Documents whose write
// failed are left out of the result and reported in the returned error.
func (s *Store) InsertTransactions(ctx context.Context, txs []*domain.TransactionCreate) ([]*domain.Transaction, error) {
	if len(txs) == 0 {
		return nil, nil
	}

	now := time.Now().UTC()
	bw := s.client.BulkWriter(ctx)

	docs := make([]*transactionDoc, 0, len(txs))
	jobs := make([]*firestore.BulkWriterJob, 0, len(txs))
	for _, tx := range txs {
		doc := newTransactionDoc(uuid.NewString(), tx, now)
		job, err := bw.Create(s.client.Collection(transactionsCollection).Doc(doc.ID), doc)
		if err != nil {
			bw.End()
			return collectWritten(docs, jobs), fmt.Errorf("InsertTransactions: enqueueing %s: %w", doc.ID, err)
		}
		docs = append(docs, doc)
		jobs = append(jobs, job)
	}
	bw.End()

	written := collectWritten(docs, jobs)
	if len(written) != len(docs) {
		var firstErr error
		for _, job := range jobs {
			if _, err := job.Results(); err != nil {
				firstErr = err
				break
			}
		}
		return written, fmt.Errorf("InsertTransactions: %d of %d writes failed: %w", len(docs)-len(written), len(docs), firstErr)
	}
	return written, nil
}

// collectWritten returns the documents whose bulk write succeeded.
func collectWritten(docs []*transactionDoc, jobs []*firestore.BulkWriterJob) []*domain.Transaction {
	out := make([]*domain.Transaction, 0, len(docs))
	for i, job := range jobs {
		if _, err := job.Results(); err != nil {
			continue
		}
		tx, err := docs[i].toDomain()
		if err != nil {
			continue
		}
		out = append(out, tx)
	}
	return out
}

// transactionsQuery translates filter into a Firestore query. Combined
// filters need the matching composite indexes on the transactions
// collection.
func (s *Store) transactionsQuery(filter domain.TransactionFilter) firestore.Query {
	q := s.client.Collection(transactionsCollection).Query

	if filter.AccountID != nil {
		q = q.Where("accountId", "==", *filter.AccountID)
	}
	if filter.CategoryID != nil {
		q = q.Where("categoryId", "==", *filter.CategoryID)
	}
	if filter.Reconciled != nil {
		q = q.Where("reconciled", "==", *filter.Reconciled)
	}
	if filter.StartDate != nil {
		q = q.Where("date", ">=", filter.StartDate.String())
	}
	if filter.EndDate != nil {
		q = q.Where("date", "<=", filter.EndDate.String())
	}

	return q.OrderBy("date", firestore.Desc).
		OrderBy(firestore.DocumentID, firestore.Desc).
		Offset(filter.Offset).
		Limit(filter.Limit)
}

// ListTransactions returns the page of transactions selected by filter.
func (s *Store) ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	iter := s.transactionsQuery(filter).Documents(ctx)
	defer iter.Stop()

	txs := []*domain.Transaction{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListTransactions: iterating transactions: %w", err)
		}

		tx, err := decodeTransaction(doc)
		if err != nil {
			return nil, fmt.Errorf("ListTransactions: %w", err)
		}
		txs = append(txs, tx)
	}

	return txs, nil
}

// UpdateTransaction applies upd to the document with the given id.
func (s *Store) UpdateTransaction(ctx context.Context, id string, upd *domain.TransactionUpdate) (*domain.Transaction, error) {
	if err := upd.Validate(); err != nil {
		return nil, fmt.Errorf("UpdateTransaction: %w", err)
	}

	ref := s.client.Collection(transactionsCollection).Doc(id)
	if _, err := ref.Update(ctx, updatesFor(upd, time.Now().UTC())); err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("UpdateTransaction: transaction %s: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("UpdateTransaction: updating %s: %w", id, err)
	}

	doc, err := ref.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("UpdateTransaction: reading %s: %w", id, err)
	}
	tx, err := decodeTransaction(doc)
	if err != nil {
		return nil, fmt.Errorf("UpdateTransaction: %w", err)
	}
	return tx, nil
}

// updatesFor lists the field paths written by upd. A nil value stores null.
func updatesFor(upd *domain.TransactionUpdate, now time.Time) []firestore.Update {
	var updates []firestore.Update
	if upd.CategoryID.Set {
		updates = append(updates, firestore.Update{Path: "categoryId", Value: upd.CategoryID.Ptr()})
	}
	if upd.Reconciled.Set {
		updates = append(updates, firestore.Update{Path: "reconciled", Value: upd.Reconciled.Value})
	}
	if upd.Tags.Set {
		var tags []string
		if !upd.Tags.Null {
			tags = append([]string{}, upd.Tags.Value...)
		}
		updates = append(updates, firestore.Update{Path: "tags", Value: tags})
	}
	if upd.Notes.Set {
		updates = append(updates, firestore.Update{Path: "notes", Value: upd.Notes.Ptr()})
	}
	return append(updates, firestore.Update{Path: "updatedAt", Value: now})
}

func decodeTransaction(doc *firestore.DocumentSnapshot) (*domain.Transaction, error) {
	var row transactionDoc
	if err := doc.DataTo(&row); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", doc.Ref.ID, err)
	}
	if row.ID == "" {
		row.ID = doc.Ref.ID
	}
	return row.toDomain()
}
