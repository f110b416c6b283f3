package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/reckless-spender/internal/pipeline"
)

// Importer runs one statement import.
type Importer interface {
	Import(ctx context.Context, filename string, content []byte) (*pipeline.Result, error)
}

// Fetcher reads an archived statement back.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

const importFailure = "Failed to import statement"

// NewImportHandler returns a JobHandler that imports job.Content, or the
// archived copy at job.GCSURI when the content was not kept. fetcher may be
// nil when no archive is configured.
func NewImportHandler(importer Importer, fetcher Fetcher) JobHandler {
	return func(ctx context.Context, job *ImportStatementJob) error {
		content := job.Content
		if len(content) == 0 {
			if job.GCSURI == "" || fetcher == nil {
				job.Error = "statement content is missing"
				return errors.New("import job has neither content nor an archived copy")
			}
			data, err := fetcher.Fetch(ctx, job.GCSURI)
			if err != nil {
				job.Error = importFailure
				return fmt.Errorf("fetching %s: %w", job.GCSURI, err)
			}
			content = data
		}

		res, err := importer.Import(ctx, job.Filename, content)
		if err != nil {
			if msg, ok := pipeline.ParseFailure(err); ok {
				job.Error = msg
			} else {
				job.Error = importFailure
			}
			return err
		}

		summary := res.Summary()
		summary.ArchiveURI = job.GCSURI
		job.Summary = &summary
		return nil
	}
}
