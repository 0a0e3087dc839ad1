// Package models defines server-side data models persisted in the database.
package models

import (
	"fmt"
	"io"
	"time"
)

// Document describes the catalog record for a stored PDF. The bytes
// themselves live in object storage under ObjectKey; a document is
// user-visible only while both the object and this record exist.
type Document struct {
	// ID is the catalog-assigned identifier; empty until the create commits.
	ID string
	// OwnerID is the authenticated owner. Immutable, set at creation.
	OwnerID string
	// Name is the display filename, unique per owner. Uniqueness is enforced
	// by the transfer controller, not by the catalog schema.
	Name string
	// ObjectKey is the object-store path, deterministic from owner and name.
	ObjectKey string
	// URL is the stable object-store locator, set once the transfer commits.
	URL string
	// SizeBytes is the size at upload time.
	SizeBytes int64
	// CreatedAt is assigned at commit time, not at request time.
	CreatedAt time.Time
}

// ObjectKeyFor returns the object-store key for an owner's document:
// documents/{ownerID}/{name}. One object per distinct name per owner.
func ObjectKeyFor(ownerID, name string) string {
	return fmt.Sprintf("documents/%s/%s", ownerID, name)
}

// ObjectPrefixFor returns the list prefix covering all of an owner's objects.
func ObjectPrefixFor(ownerID string) string {
	return fmt.Sprintf("documents/%s/", ownerID)
}

// FileHandle is the opaque input the file picker hands to the core:
// a display name, a declared size, and a readable byte source.
type FileHandle struct {
	Name      string
	SizeBytes int64
	Reader    io.Reader
}
