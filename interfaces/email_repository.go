package interfaces

import (
	"context"

	"github.com/mailvault/mailvault/internal/models"
)

// EmailRepository is the document store consumed by the storage
// breakdown and cleanup services. Both tolerate a nil repository and
// degrade to empty output.
type EmailRepository interface {
	Create(ctx context.Context, email *models.Email) (string, error)
	GetByID(ctx context.Context, id string) (*models.Email, error)
	FindBySelector(ctx context.Context, selector models.EmailSelector) ([]*models.Email, error)
	// Remove deletes one email with its attachment rows and blobs.
	Remove(ctx context.Context, email *models.Email) error
}
