package interfaces

import (
	"context"

	"github.com/mailvault/mailvault/internal/models"
)

// StorageEstimateProvider is an optional platform capability reporting
// current storage usage and total quota. Consumers must treat a nil
// provider as "capability absent", not as an error.
type StorageEstimateProvider interface {
	Estimate(ctx context.Context) (*models.StorageEstimate, error)
}
