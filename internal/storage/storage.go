// Package storage holds avatar images in object storage. MinIO and
// Google Cloud Storage backends are available, selected by
// configuration.
package storage

import (
	"context"
	"io"
)

// ObjectStorage is the slice of object operations the avatar flow
// needs: ensure the bucket at startup, upload a new avatar, remove a
// superseded one, and derive the public URL stored on the user.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	ObjectURL(key string) string
}
