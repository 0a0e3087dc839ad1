// Package docview is the read model: the per-owner document list recovered
// from the catalog, kept current by local incremental updates after each
// mutation, plus the object-store-derived storage usage figure.
package docview

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"

	"github.com/pdfvault/pdfvault/internal/common"
	"github.com/pdfvault/pdfvault/internal/logging"
	"github.com/pdfvault/pdfvault/internal/server/models"
	"github.com/pdfvault/pdfvault/internal/server/objstore"
	"github.com/pdfvault/pdfvault/internal/server/repositories/repomanager"
)

// Snapshot is the observable list state handed to the presentation layer.
// Documents are ordered newest-first by CreatedAt.
type Snapshot struct {
	Documents []models.Document
	Loading   bool
	Err       error
}

type ownerState struct {
	docs    []*models.Document // newest first
	err     error
	loading bool
}

type View struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	store  objstore.Store
	logger logging.Logger

	mu     sync.RWMutex
	owners map[string]*ownerState
}

func NewView(db *sql.DB, repos repomanager.RepositoryManager, store objstore.Store, logger logging.Logger) *View {
	return &View{
		db:     db,
		repos:  repos,
		store:  store,
		logger: logger.With("module", "docview"),
		owners: make(map[string]*ownerState),
	}
}

func (v *View) state(ownerID string) *ownerState {
	v.mu.Lock()
	defer v.mu.Unlock()
	st, ok := v.owners[ownerID]
	if !ok {
		st = &ownerState{}
		v.owners[ownerID] = st
	}
	return st
}

// Refresh fetches all of the owner's catalog records. On transport failure it
// returns ErrFetchFailed and RETAINS the previous list, so a transient error
// never flashes an empty screen; the error is cleared by the next success.
func (v *View) Refresh(ctx context.Context, ownerID string) (Snapshot, error) {
	if ownerID == "" {
		return Snapshot{}, common.ErrUnauthenticated
	}

	st := v.state(ownerID)

	v.mu.Lock()
	st.loading = true
	v.mu.Unlock()

	docs, err := v.repos.Documents(v.db).ListByOwner(ctx, ownerID)

	v.mu.Lock()
	defer v.mu.Unlock()
	st.loading = false
	if err != nil {
		st.err = fmt.Errorf("refresh: %v: %w", err, common.ErrFetchFailed)
		v.logger.Warn(ctx, "refresh failed, previous list retained", "owner_id", ownerID, "err", err)
		return snapshotLocked(st), st.err
	}

	// The catalog query already orders by created_at, but newest-first is a
	// correctness requirement, not cosmetics. Sort regardless.
	sortNewestFirst(docs)
	st.docs = docs
	st.err = nil
	return snapshotLocked(st), nil
}

// Append inserts a freshly committed document without a refetch.
func (v *View) Append(ownerID string, doc *models.Document) {
	st := v.state(ownerID)
	v.mu.Lock()
	defer v.mu.Unlock()
	st.docs = append(st.docs, doc)
	sortNewestFirst(st.docs)
}

// Remove drops a deleted document without a refetch.
func (v *View) Remove(ownerID, id string) {
	st := v.state(ownerID)
	v.mu.Lock()
	defer v.mu.Unlock()
	for i, d := range st.docs {
		if d.ID == id {
			st.docs = append(st.docs[:i], st.docs[i+1:]...)
			return
		}
	}
}

// Get returns the owner's document with the given id from the current view.
func (v *View) Get(ownerID, id string) (*models.Document, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	st, ok := v.owners[ownerID]
	if !ok {
		return nil, false
	}
	for _, d := range st.docs {
		if d.ID == id {
			doc := *d
			return &doc, true
		}
	}
	return nil, false
}

// Snapshot returns a copy of the owner's current list state.
func (v *View) Snapshot(ownerID string) Snapshot {
	v.mu.RLock()
	defer v.mu.RUnlock()
	st, ok := v.owners[ownerID]
	if !ok {
		return Snapshot{}
	}
	return snapshotLocked(st)
}

// StorageUsage sums the owner's object sizes straight from the object store.
// Deliberately object-store-derived rather than catalog-derived, so the
// figure reflects true consumed capacity even when the stores diverge.
func (v *View) StorageUsage(ctx context.Context, ownerID string) (int64, error) {
	if ownerID == "" {
		return 0, common.ErrUnauthenticated
	}

	objects, err := v.store.List(ctx, models.ObjectPrefixFor(ownerID))
	if err != nil {
		return 0, fmt.Errorf("storage usage: %v: %w", err, common.ErrFetchFailed)
	}

	var total int64
	for _, o := range objects {
		total += o.SizeBytes
	}
	return total, nil
}

// DropOwner forgets the owner's cached list. Called on sign-out.
func (v *View) DropOwner(ownerID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.owners, ownerID)
}

func snapshotLocked(st *ownerState) Snapshot {
	out := Snapshot{Loading: st.loading, Err: st.err, Documents: make([]models.Document, 0, len(st.docs))}
	for _, d := range st.docs {
		out.Documents = append(out.Documents, *d)
	}
	return out
}

func sortNewestFirst(docs []*models.Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})
}
