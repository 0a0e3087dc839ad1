package documents

import (
	"context"

	"github.com/pdfvault/pdfvault/internal/server/models"
)

// Repository is the catalog client surface consumed by the core: create,
// owner-scoped queries, and delete of document records.
type Repository interface {
	Create(ctx context.Context, doc *models.Document) error
	GetByID(ctx context.Context, ownerID, id string) (*models.Document, error)
	FindByName(ctx context.Context, ownerID, name string) (*models.Document, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*models.Document, error)
	Delete(ctx context.Context, ownerID, id string) error
}
