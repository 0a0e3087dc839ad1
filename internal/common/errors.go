// Package common defines shared constants and sentinel errors used across
// the layers of the vault. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrInternal = errors.New("internal error")

	// Upload validation errors. All are detected before any network call.
	ErrSizeLimitExceeded   = errors.New("size limit exceeded")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrDuplicateName       = errors.New("duplicate name")

	// Transfer lifecycle errors.
	ErrTransferFailed    = errors.New("transfer failed")
	ErrTransferCancelled = errors.New("transfer cancelled")

	// ErrCommitFailed means the object was written but the catalog record
	// was not. The object stays behind as an orphan; see the resolve package.
	ErrCommitFailed = errors.New("commit failed")

	// ErrDeleteFailed means the catalog delete failed; the document remains
	// visible and its object is untouched.
	ErrDeleteFailed = errors.New("delete failed")

	// ErrFetchFailed is retryable; the previous document list is retained.
	ErrFetchFailed = errors.New("fetch failed")

	// ErrObjectMissing is the lazily-detected catalog/object divergence:
	// a catalog record whose object-store locator resolves to nothing.
	ErrObjectMissing = errors.New("object missing")

	// Auth errors (no active session or invalid/malformed token).
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrInvalidToken    = errors.New("invalid token")
)
