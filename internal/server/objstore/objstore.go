// Package objstore is the object-store client surface consumed by the core:
// owner-scoped binary blobs with byte-level progress, cancellation via
// context, prefix listing, and short-lived view URLs.
package objstore

import (
	"context"
	"io"
)

// ObjectInfo describes one stored object, as returned by List.
type ObjectInfo struct {
	Key       string
	SizeBytes int64
}

// ProgressFunc receives byte-level progress while a Put streams.
// written is cumulative and never decreases.
type ProgressFunc func(written, total int64)

// Store is implemented by S3Store and by test fakes.
type Store interface {
	// Put streams r to key, reporting progress, and returns the stable
	// object locator. Cancellation rides ctx; a partial object may remain
	// and is the caller's to clean up.
	Put(ctx context.Context, key string, r io.Reader, size int64, onProgress ProgressFunc) (string, error)

	// Delete removes the object at key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// List enumerates objects under prefix.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)

	// Exists reports whether an object is present at key.
	Exists(ctx context.Context, key string) (bool, error)

	// PresignGet issues a short-lived URL for viewing the object at key.
	PresignGet(ctx context.Context, key string) (string, error)
}
