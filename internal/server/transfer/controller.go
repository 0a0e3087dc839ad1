// Package transfer owns the lifecycle of document uploads and deletes:
// validation, duplicate check, the streaming transfer, cancellation, and
// the ordered two-step writes across the object store and the catalog.
//
// Write ordering is the consistency mechanism (there is no distributed
// transaction): object before catalog on create, catalog before object on
// delete. A missing catalog record always wins; an orphaned object is
// acceptable garbage reclaimed lazily.
package transfer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pdfvault/pdfvault/internal/common"
	"github.com/pdfvault/pdfvault/internal/dbx"
	"github.com/pdfvault/pdfvault/internal/logging"
	"github.com/pdfvault/pdfvault/internal/server/models"
	"github.com/pdfvault/pdfvault/internal/server/objstore"
	"github.com/pdfvault/pdfvault/internal/server/repositories/repomanager"
)

// timeNow is a seam for tests.
var timeNow = time.Now

type Controller struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	store  objstore.Store
	logger logging.Logger

	maxUploadBytes int64

	mu     sync.Mutex
	active map[string]*state // keyed ownerID + "\x00" + name
	last   map[string]Snapshot
}

func NewController(db *sql.DB, repos repomanager.RepositoryManager, store objstore.Store, logger logging.Logger, maxUploadBytes int64) *Controller {
	return &Controller{
		db:             db,
		repos:          repos,
		store:          store,
		logger:         logger.With("module", "transfer"),
		maxUploadBytes: maxUploadBytes,
		active:         make(map[string]*state),
		last:           make(map[string]Snapshot),
	}
}

func transferKey(ownerID, name string) string {
	return ownerID + "\x00" + name
}

// BeginUpload validates and streams file into the object store, then commits
// exactly one catalog record. It returns the committed document, or an error
// matching one of the common sentinel kinds. The 20 MiB cap and the
// duplicate-name check both run before any network call.
func (c *Controller) BeginUpload(ctx context.Context, ownerID string, file models.FileHandle) (*models.Document, error) {
	if ownerID == "" {
		return nil, common.ErrUnauthenticated
	}

	st := newState(ownerID, file.Name)

	if err := validate(file, c.maxUploadBytes); err != nil {
		st.fail(PhaseFailed, err)
		c.remember(st)
		return nil, err
	}

	// Registration makes (ownerID, name) exclusive: a second upload of the
	// same name while one is in flight fails at validation time.
	if !c.register(st) {
		err := fmt.Errorf("upload already in progress for %q: %w", file.Name, common.ErrDuplicateName)
		return nil, err
	}
	defer c.unregister(st)

	st.setPhase(PhaseCheckingDuplicate)
	repo := c.repos.Documents(c.db)
	_, err := repo.FindByName(ctx, ownerID, file.Name)
	switch {
	case err == nil:
		err = fmt.Errorf("document %q exists: %w", file.Name, common.ErrDuplicateName)
		st.fail(PhaseFailed, err)
		return nil, err
	case !errors.Is(err, common.ErrNotFound):
		err = fmt.Errorf("duplicate check: %v: %w", err, common.ErrTransferFailed)
		st.fail(PhaseFailed, err)
		return nil, err
	}

	key := models.ObjectKeyFor(ownerID, file.Name)

	tctx, cancel := context.WithCancel(ctx)
	defer cancel()
	st.mu.Lock()
	st.cancel = cancel
	st.snap.Phase = PhaseTransferring
	st.mu.Unlock()

	url, err := c.store.Put(tctx, key, file.Reader, file.SizeBytes, st.setProgress)
	if err != nil {
		if st.wasCancelled() {
			c.releasePartial(ownerID, key)
			st.fail(PhaseCancelled, common.ErrTransferCancelled)
			return nil, common.ErrTransferCancelled
		}
		err = fmt.Errorf("upload %q: %v: %w", file.Name, err, common.ErrTransferFailed)
		st.fail(PhaseFailed, err)
		return nil, err
	}

	// A cancel observed after the stream finished but before the commit
	// phase begins still wins: commit must never start after cancellation.
	// The check and the phase transition share one lock acquisition.
	if !st.beginCommit() {
		c.releasePartial(ownerID, key)
		st.fail(PhaseCancelled, common.ErrTransferCancelled)
		return nil, common.ErrTransferCancelled
	}

	doc := &models.Document{
		OwnerID:   ownerID,
		Name:      file.Name,
		ObjectKey: key,
		URL:       url,
		SizeBytes: file.SizeBytes,
		CreatedAt: timeNow(),
	}
	if err := repo.Create(ctx, doc); err != nil {
		// The object stays behind as a deliberate orphan; rolling it back
		// inline would itself be fallible. The resolver reclaims it later.
		c.logger.Warn(ctx, "catalog commit failed, object orphaned",
			"owner_id", ownerID, "object_key", key, "err", err)
		err = fmt.Errorf("commit %q: %v: %w", file.Name, err, common.ErrCommitFailed)
		st.fail(PhaseFailed, err)
		return nil, err
	}

	st.mu.Lock()
	st.snap.Phase = PhaseSucceeded
	st.snap.Progress = 1
	st.mu.Unlock()

	c.logger.Info(ctx, "document uploaded",
		"owner_id", ownerID, "name", file.Name, "size_bytes", file.SizeBytes)

	return doc, nil
}

// Cancel requests cancellation of the owner's in-flight upload of name.
// It is a no-op unless that transfer is currently transferring. Idempotent.
func (c *Controller) Cancel(ownerID, name string) bool {
	c.mu.Lock()
	st, ok := c.active[transferKey(ownerID, name)]
	c.mu.Unlock()
	if !ok {
		return false
	}
	return st.requestCancel()
}

// CancelActive cancels whichever upload the owner has in flight, if any.
func (c *Controller) CancelActive(ownerID string) bool {
	c.mu.Lock()
	var st *state
	for _, s := range c.active {
		if s.snapshot().OwnerID == ownerID {
			st = s
			break
		}
	}
	c.mu.Unlock()
	if st == nil {
		return false
	}
	return st.requestCancel()
}

// Snapshot returns the owner's current upload state: the in-flight transfer
// when one exists, otherwise the last terminal one.
func (c *Controller) Snapshot(ownerID string) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.active {
		snap := s.snapshot()
		if snap.OwnerID == ownerID {
			return snap, true
		}
	}
	snap, ok := c.last[ownerID]
	return snap, ok
}

// DeleteDocument removes the catalog record first, then the object. The
// lookup and the record delete run in one transaction, so the record cannot
// change between them. A failed catalog delete fails the operation and
// leaves everything untouched; a failed object delete is swallowed (the
// catalog is the source of truth for visibility) and the object becomes an
// orphan.
func (c *Controller) DeleteDocument(ctx context.Context, ownerID, id string) (*models.Document, error) {
	if ownerID == "" {
		return nil, common.ErrUnauthenticated
	}

	var doc *models.Document
	err := dbx.WithTx(ctx, c.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := c.repos.Documents(tx)

		d, err := repo.GetByID(ctx, ownerID, id)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return common.ErrNotFound
			}
			return fmt.Errorf("lookup document: %v: %w", err, common.ErrDeleteFailed)
		}

		if err := repo.Delete(ctx, ownerID, id); err != nil {
			return fmt.Errorf("delete record %q: %v: %w", d.Name, err, common.ErrDeleteFailed)
		}

		doc = d
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrNotFound) || errors.Is(err, common.ErrDeleteFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("delete transaction: %v: %w", err, common.ErrDeleteFailed)
	}

	if err := c.store.Delete(ctx, doc.ObjectKey); err != nil {
		c.logger.Warn(ctx, "object delete failed, object orphaned",
			"owner_id", ownerID, "object_key", doc.ObjectKey, "err", err)
	}

	c.logger.Info(ctx, "document deleted", "owner_id", ownerID, "name", doc.Name)

	return doc, nil
}

func validate(file models.FileHandle, maxBytes int64) error {
	if strings.ToLower(filepath.Ext(file.Name)) != ".pdf" {
		return fmt.Errorf("%q: %w", file.Name, common.ErrUnsupportedFileType)
	}
	if file.SizeBytes > maxBytes {
		return fmt.Errorf("%d bytes over %d: %w", file.SizeBytes, maxBytes, common.ErrSizeLimitExceeded)
	}
	return nil
}

func (c *Controller) register(st *state) bool {
	snap := st.snapshot()
	key := transferKey(snap.OwnerID, snap.Name)
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.active[key]; exists {
		return false
	}
	c.active[key] = st
	return true
}

func (c *Controller) unregister(st *state) {
	snap := st.snapshot()
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.active, transferKey(snap.OwnerID, snap.Name))
	c.last[snap.OwnerID] = snap
}

func (c *Controller) remember(st *state) {
	snap := st.snapshot()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last[snap.OwnerID] = snap
}

// releasePartial drops whatever bytes made it to key before cancellation.
// Best effort: a leftover partial object is acceptable garbage, cleaned up
// on the next delete-by-name or resolver pass.
func (c *Controller) releasePartial(ownerID, key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.store.Delete(ctx, key); err != nil {
		c.logger.Warn(ctx, "partial object cleanup failed",
			"owner_id", ownerID, "object_key", key, "err", err)
	}
}

// DropOwner forgets the owner's last terminal snapshot. Called on sign-out.
func (c *Controller) DropOwner(ownerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.last, ownerID)
}
