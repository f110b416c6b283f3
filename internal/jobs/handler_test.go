package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/reckless-spender/internal/pipeline"
)

type fakeImporter struct {
	content []byte
	res     *pipeline.Result
	err     error
}

func (f *fakeImporter) Import(ctx context.Context, filename string, content []byte) (*pipeline.Result, error) {
	f.content = content
	return f.res, f.err
}

type fakeFetcher struct {
	data []byte
	err  error
	uri  string
}

func (f *fakeFetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	f.uri = uri
	return f.data, f.err
}

func TestImportHandlerUsesContent(t *testing.T) {
	imp := &fakeImporter{res: &pipeline.Result{Filename: "a.ofx"}}
	h := NewImportHandler(imp, nil)

	job := &ImportStatementJob{Filename: "a.ofx", Content: []byte("data"), GCSURI: "gs://b/o"}
	require.NoError(t, h(context.Background(), job))

	assert.Equal(t, []byte("data"), imp.content)
	require.NotNil(t, job.Summary)
	assert.Equal(t, "a.ofx", job.Summary.Filename)
	assert.Equal(t, "gs://b/o", job.Summary.ArchiveURI)
}

func TestImportHandlerFetchesArchivedCopy(t *testing.T) {
	imp := &fakeImporter{res: &pipeline.Result{}}
	f := &fakeFetcher{data: []byte("archived")}
	h := NewImportHandler(imp, f)

	job := &ImportStatementJob{Filename: "a.ofx", GCSURI: "gs://b/o"}
	require.NoError(t, h(context.Background(), job))

	assert.Equal(t, "gs://b/o", f.uri)
	assert.Equal(t, []byte("archived"), imp.content)
}

func TestImportHandlerFailures(t *testing.T) {
	t.Run("no content", func(t *testing.T) {
		job := &ImportStatementJob{Filename: "a.ofx"}
		err := NewImportHandler(&fakeImporter{}, nil)(context.Background(), job)
		assert.Error(t, err)
		assert.NotEmpty(t, job.Error)
	})

	t.Run("fetch error", func(t *testing.T) {
		job := &ImportStatementJob{Filename: "a.ofx", GCSURI: "gs://b/o"}
		err := NewImportHandler(&fakeImporter{}, &fakeFetcher{err: errors.New("denied")})(context.Background(), job)
		assert.Error(t, err)
		assert.Equal(t, importFailure, job.Error)
	})

	t.Run("store error is not leaked", func(t *testing.T) {
		job := &ImportStatementJob{Filename: "a.ofx", Content: []byte("x")}
		err := NewImportHandler(&fakeImporter{err: errors.New("dial tcp: secret-host")}, nil)(context.Background(), job)
		assert.Error(t, err)
		assert.Equal(t, importFailure, job.Error)
		assert.Nil(t, job.Summary)
	})
}
