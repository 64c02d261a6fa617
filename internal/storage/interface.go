package storage

import (
	"context"
	"io"
)

// ObjectStorage is the surface the publish pipeline needs from an
// object store: bucket setup, existence probes for skip logic, object
// transfer, and public URLs for the uploaded manifest.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	GetURL(key string) string
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}
