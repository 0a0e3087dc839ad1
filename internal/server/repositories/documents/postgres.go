package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/pdfvault/pdfvault/internal/common"
	"github.com/pdfvault/pdfvault/internal/dbx"
	"github.com/pdfvault/pdfvault/internal/server/models"
)

// PostgresRepository implements document storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new document record. The ID is assigned here (uuid)
// when the caller has not set one. Exactly one row must be inserted.
func (r *PostgresRepository) Create(ctx context.Context, doc *models.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}

	query := `
		INSERT INTO documents (id, owner_id, name, object_key, url, size_bytes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	res, err := r.db.ExecContext(ctx, query,
		doc.ID, doc.OwnerID, doc.Name, doc.ObjectKey, doc.URL, doc.SizeBytes, doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
	return nil
}

// GetByID returns the owner's document with the given id, or ErrNotFound.
func (r *PostgresRepository) GetByID(ctx context.Context, ownerID, id string) (*models.Document, error) {
	query := `
		SELECT id, owner_id, name, object_key, url, size_bytes, created_at FROM documents
		WHERE owner_id=$1 AND id=$2
	`
	result := &models.Document{}
	err := r.db.QueryRowContext(ctx, query, ownerID, id).Scan(
		&result.ID, &result.OwnerID, &result.Name, &result.ObjectKey, &result.URL, &result.SizeBytes, &result.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

// FindByName returns the owner's document with the given name, or ErrNotFound.
// Used by the duplicate check before an upload starts.
func (r *PostgresRepository) FindByName(ctx context.Context, ownerID, name string) (*models.Document, error) {
	query := `
		SELECT id, owner_id, name, object_key, url, size_bytes, created_at FROM documents
		WHERE owner_id=$1 AND name=$2
		LIMIT 1
	`
	result := &models.Document{}
	err := r.db.QueryRowContext(ctx, query, ownerID, name).Scan(
		&result.ID, &result.OwnerID, &result.Name, &result.ObjectKey, &result.URL, &result.SizeBytes, &result.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

// ListByOwner returns all of the owner's documents, newest first.
func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.Document, error) {
	query := `
		SELECT id, owner_id, name, object_key, url, size_bytes, created_at FROM documents
		WHERE owner_id=$1
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to select documents: %w", err)
	}
	defer rows.Close()

	var result []*models.Document
	for rows.Next() {
		var item models.Document
		if err := rows.Scan(&item.ID, &item.OwnerID, &item.Name, &item.ObjectKey, &item.URL, &item.SizeBytes, &item.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes the owner's document record. Returns ErrNotFound when no
// row was deleted, so callers can distinguish a stale id from success.
func (r *PostgresRepository) Delete(ctx context.Context, ownerID, id string) error {
	query := `DELETE FROM documents WHERE owner_id=$1 AND id=$2`
	res, err := r.db.ExecContext(ctx, query, ownerID, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}
