package storage

import (
	"context"
	"io"
)

// BlobStore holds uploaded document bytes. Missing keys surface as apierr.ErrNotFound.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error) // returns canonical key
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}
