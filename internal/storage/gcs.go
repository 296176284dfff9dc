package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"

	"github.com/mind-engage/aiquiz/internal/apierr"
)

// GCSStore keeps blobs in one Google Cloud Storage bucket, authenticated
// with application default credentials.
type GCSStore struct {
	client *gcs.Client
	bucket string
}

func NewGCSStore(ctx context.Context, bucket string) (*GCSStore, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, fmt.Errorf("missing GCS_BUCKET")
	}
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket}, nil
}

func (s *GCSStore) Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	open := func(ctx context.Context) io.WriteCloser {
		w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
		if contentType != "" {
			w.ContentType = contentType
		}
		return w
	}
	if err := upload(ctx, open, r); err != nil {
		return "", err
	}
	return key, nil
}

// upload copies r into the writer returned by open. Close on a GCS writer
// commits the object, so a failed copy cancels the writer's context first
// and the partial object is discarded.
func upload(ctx context.Context, open func(context.Context) io.WriteCloser, r io.Reader) error {
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := open(wctx)
	if _, err := io.Copy(w, r); err != nil {
		cancel()
		_ = w.Close()
		return fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return nil
}

// Get streams the object; ctx must outlive the returned reader.
func (s *GCSStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	rc, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, fmt.Errorf("blob %s: %w", key, apierr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open GCS object %q: %w", key, err)
	}
	return rc, nil
}

func (s *GCSStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	err := s.client.Bucket(s.bucket).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete GCS object %q in bucket %q: %w", key, s.bucket, err)
	}
	return nil
}

func (s *GCSStore) Close() error { return s.client.Close() }
