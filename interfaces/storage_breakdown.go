package interfaces

import (
	"context"

	"github.com/mailvault/mailvault/internal/models"
)

type StorageBreakdownService interface {
	GetStorageBreakdownByAccount(ctx context.Context) ([]models.AccountBreakdown, error)
	GetStorageBreakdownByAge(ctx context.Context) ([]models.AgeBucketBreakdown, error)
	GetStorageBreakdownBySize(ctx context.Context) ([]models.SizeBucketBreakdown, error)
	// EstimateStorageReduction previews what a cleanup with the given
	// criteria would remove, without removing anything.
	EstimateStorageReduction(ctx context.Context, criteria models.CleanupCriteria) (*models.ReductionEstimate, error)
	// GetStorageBreakdown runs the three aggregations concurrently and
	// adds grand totals.
	GetStorageBreakdown(ctx context.Context) (*models.StorageBreakdown, error)
}
