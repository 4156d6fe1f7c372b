package cleanup

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/mailvault/mailvault/interfaces"
	"github.com/mailvault/mailvault/internal/enum"
	"github.com/mailvault/mailvault/internal/logger"
	"github.com/mailvault/mailvault/internal/models"
	"github.com/mailvault/mailvault/internal/tracing"
	"github.com/mailvault/mailvault/internal/utils"
)

type cleanupService struct {
	log  logger.Logger
	repo interfaces.EmailRepository
}

// NewCleanupService builds the executor. A nil repository is allowed;
// every run then returns a zero result without emitting progress.
func NewCleanupService(repo interfaces.EmailRepository, log logger.Logger) interfaces.CleanupService {
	return &cleanupService{
		log:  log,
		repo: repo,
	}
}

// runSpec is one cleanup run: store-level predicates, the client-side
// minimum raw size, and whether freed bytes are accounted raw instead
// of floored.
type runSpec struct {
	selector      models.EmailSelector
	minSizeBytes  *int64
	rawAccounting bool
}

func (s *cleanupService) CleanupByAge(ctx context.Context, olderThanDays int, accountID *string, onProgress interfaces.CleanupProgressFunc) (*models.CleanupResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "cleanupService.CleanupByAge")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("olderThanDays", olderThanDays)

	cutoff := utils.NowUnixMilli() - utils.DaysToMillis(olderThanDays)
	return s.run(ctx, span, runSpec{
		selector: models.EmailSelector{
			AccountID:       accountID,
			TimestampBefore: &cutoff,
		},
	}, onProgress)
}

func (s *cleanupService) CleanupBySize(ctx context.Context, minSizeBytes int64, accountID *string, onProgress interfaces.CleanupProgressFunc) (*models.CleanupResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "cleanupService.CleanupBySize")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("minSizeBytes", minSizeBytes)

	// This path filters and accounts on the raw size: a floored
	// estimate would claim 50KB freed for every tiny message kept
	// only because of the floor.
	return s.run(ctx, span, runSpec{
		selector:      models.EmailSelector{AccountID: accountID},
		minSizeBytes:  &minSizeBytes,
		rawAccounting: true,
	}, onProgress)
}

func (s *cleanupService) CleanupByAccount(ctx context.Context, accountID string, onProgress interfaces.CleanupProgressFunc) (*models.CleanupResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "cleanupService.CleanupByAccount")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagAccount(span, accountID)

	return s.run(ctx, span, runSpec{
		selector: models.EmailSelector{AccountID: &accountID},
	}, onProgress)
}

func (s *cleanupService) ExecuteCleanup(ctx context.Context, criteria models.CleanupCriteria, onProgress interfaces.CleanupProgressFunc) (*models.CleanupResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "cleanupService.ExecuteCleanup")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.LogObjectAsJson(span, "criteria", criteria)

	return s.run(ctx, span, runSpec{
		selector:     criteria.Selector(utils.NowUnixMilli()),
		minSizeBytes: criteria.MinSizeBytes,
	}, onProgress)
}

// run executes the shared protocol: one counting event, the target set
// resolved by a single query, strictly sequential removals each
// followed by a deleting event, and one terminal complete event.
func (s *cleanupService) run(ctx context.Context, span opentracing.Span, spec runSpec, onProgress interfaces.CleanupProgressFunc) (*models.CleanupResult, error) {
	if s.repo == nil {
		// Store absent: zero result, and deliberately no progress
		// events, unlike the store-present zero-match case below.
		span.SetTag("store.absent", true)
		return &models.CleanupResult{AccountsAffected: []string{}}, nil
	}

	start := time.Now()

	emit(onProgress, models.CleanupProgress{Phase: enum.CleanupPhaseCounting})

	emails, err := s.repo.FindBySelector(ctx, spec.selector)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	targets := emails
	if spec.minSizeBytes != nil {
		targets = targets[:0:0]
		for _, email := range emails {
			if email.RawSize() >= *spec.minSizeBytes {
				targets = append(targets, email)
			}
		}
	}

	// The working set is fixed from here on.
	total := int64(len(targets))
	span.SetTag("targets.count", total)

	result := &models.CleanupResult{AccountsAffected: []string{}}
	accounts := make([]string, 0, len(targets))

	for i, email := range targets {
		size := email.EstimatedSize()
		if spec.rawAccounting {
			size = email.RawSize()
		}

		if err := s.repo.Remove(ctx, email); err != nil {
			// No retry and no skip: a failed removal aborts the run
			// with the counters reflecting completed removals only.
			tracing.TraceErr(span, err)
			s.log.Errorf("Cleanup aborted after %d of %d removals: %v", result.DeletedCount, total, err)
			return nil, errors.Wrapf(err, "removing email %s", email.ID)
		}

		result.DeletedCount++
		result.FreedBytes += size
		accounts = append(accounts, email.AccountID)

		emit(onProgress, models.CleanupProgress{
			Phase:        enum.CleanupPhaseDeleting,
			Current:      int64(i + 1),
			Total:        total,
			DeletedCount: result.DeletedCount,
			FreedBytes:   result.FreedBytes,
		})
	}

	result.AccountsAffected = utils.UniqueStrings(accounts)
	result.DurationMs = time.Since(start).Milliseconds()

	emit(onProgress, models.CleanupProgress{
		Phase:        enum.CleanupPhaseComplete,
		Current:      total,
		Total:        total,
		DeletedCount: result.DeletedCount,
		FreedBytes:   result.FreedBytes,
	})

	span.SetTag("result.deleted", result.DeletedCount)
	span.SetTag("result.freedBytes", result.FreedBytes)
	return result, nil
}

func emit(onProgress interfaces.CleanupProgressFunc, progress models.CleanupProgress) {
	if onProgress != nil {
		onProgress(progress)
	}
}
