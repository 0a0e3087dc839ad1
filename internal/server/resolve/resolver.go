// Package resolve repairs catalog/object divergence lazily, at the moment a
// consumer touches the affected document, instead of running a background
// reconciliation loop. A record whose object is gone surfaces ErrObjectMissing
// together with an offer to purge the stale record; the reverse divergence
// (an orphaned object) is invisible to readers and reclaimed on the next
// delete-by-name.
package resolve

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pdfvault/pdfvault/internal/common"
	"github.com/pdfvault/pdfvault/internal/logging"
	"github.com/pdfvault/pdfvault/internal/server/models"
	"github.com/pdfvault/pdfvault/internal/server/objstore"
	"github.com/pdfvault/pdfvault/internal/server/repositories/repomanager"
)

type Resolver struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	store  objstore.Store
	logger logging.Logger
}

func NewResolver(db *sql.DB, repos repomanager.RepositoryManager, store objstore.Store, logger logging.Logger) *Resolver {
	return &Resolver{
		db:     db,
		repos:  repos,
		store:  store,
		logger: logger.With("module", "resolve"),
	}
}

// ResolveView checks the document's object at point of use and, when present,
// issues the short-lived view URL. A missing object is tolerated (never a
// crash) and reported as ErrObjectMissing so the caller can offer the
// stale-record purge.
func (r *Resolver) ResolveView(ctx context.Context, doc *models.Document) (string, error) {
	ok, err := r.store.Exists(ctx, doc.ObjectKey)
	if err != nil {
		return "", fmt.Errorf("probe %q: %v: %w", doc.ObjectKey, err, common.ErrFetchFailed)
	}
	if !ok {
		r.logger.Warn(ctx, "catalog record without backing object",
			"owner_id", doc.OwnerID, "document_id", doc.ID, "object_key", doc.ObjectKey)
		return "", fmt.Errorf("document %q: %w", doc.Name, common.ErrObjectMissing)
	}

	url, err := r.store.PresignGet(ctx, doc.ObjectKey)
	if err != nil {
		return "", fmt.Errorf("presign %q: %v: %w", doc.ObjectKey, err, common.ErrFetchFailed)
	}
	return url, nil
}

// PurgeStaleRecord is the accepted repair for ErrObjectMissing: it deletes
// only the catalog record, since the object is already gone.
func (r *Resolver) PurgeStaleRecord(ctx context.Context, ownerID, id string) error {
	if err := r.repos.Documents(r.db).Delete(ctx, ownerID, id); err != nil {
		return fmt.Errorf("purge stale record %s: %v: %w", id, err, common.ErrDeleteFailed)
	}
	r.logger.Info(ctx, "stale catalog record purged", "owner_id", ownerID, "document_id", id)
	return nil
}
