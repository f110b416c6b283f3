// Package archive keeps copies of uploaded statements in Google Cloud Storage.
package archive

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
)

const uploadTimeout = 2 * time.Minute

// Archive stores statement files and reads them back by URI.
type Archive interface {
	Store(ctx context.Context, filename string, content []byte) (string, error)
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// GCSArchive is the Cloud Storage implementation of Archive.
type GCSArchive struct {
	client *storage.Client
	bucket string
}

// NewGCSArchive creates a storage client using Application Default
// Credentials. bucket is where Store writes; Fetch accepts any bucket.
func NewGCSArchive(ctx context.Context, bucket string) (*GCSArchive, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewGCSArchive: creating storage client: %w", err)
	}
	return &GCSArchive{client: client, bucket: bucket}, nil
}

// Close releases the storage client.
func (a *GCSArchive) Close() error {
	return a.client.Close()
}

// Store uploads content and returns its gs:// URI.
func (a *GCSArchive) Store(ctx context.Context, filename string, content []byte) (string, error) {
	object := ObjectName(time.Now().UTC(), uuid.NewString(), filename)

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := a.client.Bucket(a.bucket).Object(object).NewWriter(ctx)
	w.ContentType = "application/x-ofx"

	if _, err := w.Write(content); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("Store: writing %s: %w", object, err)
	}
	// Close finalizes the upload.
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("Store: finalizing %s: %w", object, err)
	}

	return fmt.Sprintf("gs://%s/%s", a.bucket, object), nil
}

// Fetch downloads the object behind a gs:// URI.
func (a *GCSArchive) Fetch(ctx context.Context, uri string) ([]byte, error) {
	bucket, object, err := ParseGCSURI(uri)
	if err != nil {
		return nil, fmt.Errorf("Fetch: %w", err)
	}

	r, err := a.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("Fetch: opening %s: %w", uri, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading %s: %w", uri, err)
	}
	return data, nil
}

// ObjectName lays uploads out by day: uploads/YYYY/MM/DD/<id>-<base name>.
func ObjectName(now time.Time, id, filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" {
		base = "statement.ofx"
	}
	return fmt.Sprintf("uploads/%s/%s-%s", now.Format("2006/01/02"), id, base)
}

// ParseGCSURI splits gs://bucket/object into its parts.
func ParseGCSURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}

// FilenameFromURI returns the last path segment of a gs:// URI, or the URI
// itself when it has no slash.
func FilenameFromURI(uri string) string {
	if i := strings.LastIndex(uri, "/"); i >= 0 && i < len(uri)-1 {
		return uri[i+1:]
	}
	return uri
}
