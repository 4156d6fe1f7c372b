package interfaces

import (
	"context"

	"github.com/mailvault/mailvault/internal/models"
)

// CleanupProgressFunc is invoked synchronously on the caller's
// goroutine: once with phase "counting", once per removal with phase
// "deleting", and once with phase "complete". A panicking callback
// aborts the run.
type CleanupProgressFunc func(progress models.CleanupProgress)

type CleanupService interface {
	CleanupByAge(ctx context.Context, olderThanDays int, accountID *string, onProgress CleanupProgressFunc) (*models.CleanupResult, error)
	CleanupBySize(ctx context.Context, minSizeBytes int64, accountID *string, onProgress CleanupProgressFunc) (*models.CleanupResult, error)
	CleanupByAccount(ctx context.Context, accountID string, onProgress CleanupProgressFunc) (*models.CleanupResult, error)
	ExecuteCleanup(ctx context.Context, criteria models.CleanupCriteria, onProgress CleanupProgressFunc) (*models.CleanupResult, error)
}
