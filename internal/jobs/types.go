package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/dvloznov/reckless-spender/internal/pipeline"
)

// ErrJobNotFound is returned when a job id is unknown.
var ErrJobNotFound = errors.New("job not found")

// ErrQueueClosed is returned when publishing to a stopped queue.
var ErrQueueClosed = errors.New("queue is closed")

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the import finished, possibly with a
	// partial persist reported in the summary.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the import aborted.
	JobStatusFailed JobStatus = "failed"
)

// ImportStatementJob is an OFX import queued for background processing.
type ImportStatementJob struct {
	JobID    string `json:"job_id"`
	Filename string `json:"filename"`

	// GCSURI is set when the statement was archived.
	GCSURI string `json:"gcs_uri,omitempty"`

	// Content is the raw statement. It is released once the job has run.
	Content []byte `json:"-"`

	Status      JobStatus  `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error is the client-facing failure message.
	Error string `json:"error,omitempty"`

	// Summary is set when the import completed.
	Summary *pipeline.Summary `json:"summary,omitempty"`
}

// Publisher enqueues import jobs.
type Publisher interface {
	PublishImport(ctx context.Context, job *ImportStatementJob) error
	Close() error
}

// Consumer runs queued jobs.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for the running job to finish.
	Stop(ctx context.Context) error
}

// JobHandler processes one job. It fills in job.Summary on success; a
// returned error marks the job failed. Jobs are not retried.
type JobHandler func(ctx context.Context, job *ImportStatementJob) error

// JobStore tracks job state for status lookups.
type JobStore interface {
	SaveJob(ctx context.Context, job *ImportStatementJob) error

	// GetJob returns ErrJobNotFound for an unknown id.
	GetJob(ctx context.Context, jobID string) (*ImportStatementJob, error)

	// ListJobs returns jobs newest first.
	ListJobs(ctx context.Context, filter JobFilter) ([]*ImportStatementJob, error)
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	Status JobStatus
	Limit  int
	Offset int
}
