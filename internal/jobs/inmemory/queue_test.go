package inmemory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/reckless-spender/internal/jobs"
	"github.com/dvloznov/reckless-spender/internal/pipeline"
)

func waitForStatus(t *testing.T, store *Store, jobID string, status jobs.JobStatus) *jobs.ImportStatementJob {
	t.Helper()
	var job *jobs.ImportStatementJob
	require.Eventually(t, func() bool {
		var err error
		job, err = store.GetJob(context.Background(), jobID)
		return err == nil && job.Status == status
	}, 2*time.Second, 10*time.Millisecond)
	return job
}

func TestQueueRunsJob(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	q := NewQueue(4, store)
	defer q.Close()

	require.NoError(t, q.Start(ctx, func(ctx context.Context, job *jobs.ImportStatementJob) error {
		assert.Equal(t, []byte("OFXHEADER"), job.Content)
		job.Summary = &pipeline.Summary{Filename: job.Filename, TransactionsPersisted: 2}
		return nil
	}))

	job := &jobs.ImportStatementJob{Filename: "a.ofx", Content: []byte("OFXHEADER")}
	require.NoError(t, q.PublishImport(ctx, job))
	require.NotEmpty(t, job.JobID)

	done := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	require.NotNil(t, done.Summary)
	assert.Equal(t, 2, done.Summary.TransactionsPersisted)
	assert.NotNil(t, done.StartedAt)
	assert.NotNil(t, done.CompletedAt)
	assert.Nil(t, done.Content, "content is not kept in the store")
}

func TestQueueFailedJobIsNotRetried(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	q := NewQueue(4, store)
	defer q.Close()

	var calls atomic.Int32
	require.NoError(t, q.Start(ctx, func(ctx context.Context, job *jobs.ImportStatementJob) error {
		calls.Add(1)
		return errors.New("boom")
	}))

	job := &jobs.ImportStatementJob{Filename: "bad.ofx"}
	require.NoError(t, q.PublishImport(ctx, job))

	failed := waitForStatus(t, store, job.JobID, jobs.JobStatusFailed)
	assert.Equal(t, "boom", failed.Error)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestQueueRunsJobsOneAtATime(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	q := NewQueue(8, store)
	defer q.Close()

	var running, maxRunning atomic.Int32
	require.NoError(t, q.Start(ctx, func(ctx context.Context, job *jobs.ImportStatementJob) error {
		n := running.Add(1)
		if n > maxRunning.Load() {
			maxRunning.Store(n)
		}
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)
		return nil
	}))

	var ids []string
	for i := 0; i < 5; i++ {
		job := &jobs.ImportStatementJob{Filename: "x.ofx"}
		require.NoError(t, q.PublishImport(ctx, job))
		ids = append(ids, job.JobID)
	}
	for _, id := range ids {
		waitForStatus(t, store, id, jobs.JobStatusCompleted)
	}
	assert.Equal(t, int32(1), maxRunning.Load())
}

func TestQueueClosed(t *testing.T) {
	q := NewQueue(1, NewStore())
	require.NoError(t, q.Close())

	err := q.PublishImport(context.Background(), &jobs.ImportStatementJob{Filename: "a.ofx"})
	assert.ErrorIs(t, err, jobs.ErrQueueClosed)
	assert.ErrorIs(t, q.Start(context.Background(), nil), jobs.ErrQueueClosed)
}

func TestQueueStartTwice(t *testing.T) {
	q := NewQueue(1, nil)
	defer q.Close()

	handler := func(ctx context.Context, job *jobs.ImportStatementJob) error { return nil }
	require.NoError(t, q.Start(context.Background(), handler))
	assert.Error(t, q.Start(context.Background(), handler))
}
