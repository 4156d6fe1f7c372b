package breakdown

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"sync"

	"github.com/opentracing/opentracing-go"

	"github.com/mailvault/mailvault/interfaces"
	"github.com/mailvault/mailvault/internal/enum"
	"github.com/mailvault/mailvault/internal/logger"
	"github.com/mailvault/mailvault/internal/models"
	"github.com/mailvault/mailvault/internal/tracing"
	"github.com/mailvault/mailvault/internal/utils"
)

const (
	megabyte = 1024 * 1024

	yearMillis = 365 * 24 * 60 * 60 * 1000
)

type breakdownService struct {
	log  logger.Logger
	repo interfaces.EmailRepository
}

// NewStorageBreakdownService builds the aggregator. A nil repository
// is allowed; every aggregation then returns empty output.
func NewStorageBreakdownService(repo interfaces.EmailRepository, log logger.Logger) interfaces.StorageBreakdownService {
	return &breakdownService{
		log:  log,
		repo: repo,
	}
}

func (s *breakdownService) GetStorageBreakdownByAccount(ctx context.Context) ([]models.AccountBreakdown, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "breakdownService.GetStorageBreakdownByAccount")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if s.repo == nil {
		return []models.AccountBreakdown{}, nil
	}

	emails, err := s.repo.FindBySelector(ctx, models.EmailSelector{})
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	byAccount := make(map[string]*models.AccountBreakdown)
	for _, email := range emails {
		entry, ok := byAccount[email.AccountID]
		if !ok {
			entry = &models.AccountBreakdown{AccountID: email.AccountID}
			byAccount[email.AccountID] = entry
		}
		entry.EmailCount++
		entry.EstimatedSize += email.EstimatedSize()
	}

	result := make([]models.AccountBreakdown, 0, len(byAccount))
	for _, entry := range byAccount {
		result = append(result, *entry)
	}
	// Largest consumers first; account id as tie-breaker keeps the
	// order stable.
	sort.Slice(result, func(i, j int) bool {
		if result[i].EstimatedSize != result[j].EstimatedSize {
			return result[i].EstimatedSize > result[j].EstimatedSize
		}
		return result[i].AccountID < result[j].AccountID
	})

	span.SetTag("result.accounts", len(result))
	return result, nil
}

func (s *breakdownService) GetStorageBreakdownByAge(ctx context.Context) ([]models.AgeBucketBreakdown, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "breakdownService.GetStorageBreakdownByAge")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if s.repo == nil {
		return []models.AgeBucketBreakdown{}, nil
	}

	emails, err := s.repo.FindBySelector(ctx, models.EmailSelector{})
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	now := utils.NowUnixMilli()
	buckets := make(map[enum.AgeBucket]*models.AgeBucketBreakdown)
	for _, email := range emails {
		bucket := ageBucketFor(now - email.Timestamp)
		entry, ok := buckets[bucket]
		if !ok {
			entry = &models.AgeBucketBreakdown{
				Bucket:   bucket,
				OldestTs: email.Timestamp,
				NewestTs: email.Timestamp,
			}
			buckets[bucket] = entry
		}
		entry.EmailCount++
		entry.EstimatedSize += email.EstimatedSize()
		if email.Timestamp < entry.OldestTs {
			entry.OldestTs = email.Timestamp
		}
		if email.Timestamp > entry.NewestTs {
			entry.NewestTs = email.Timestamp
		}
	}

	// Empty buckets are omitted; the rest keep the fixed range order.
	order := []enum.AgeBucket{
		enum.AgeBucketUnderOneYear,
		enum.AgeBucketOneToTwoYears,
		enum.AgeBucketTwoToThreeYears,
		enum.AgeBucketOverThreeYears,
	}
	result := make([]models.AgeBucketBreakdown, 0, len(buckets))
	for _, bucket := range order {
		if entry, ok := buckets[bucket]; ok {
			result = append(result, *entry)
		}
	}
	return result, nil
}

func (s *breakdownService) GetStorageBreakdownBySize(ctx context.Context) ([]models.SizeBucketBreakdown, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "breakdownService.GetStorageBreakdownBySize")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if s.repo == nil {
		return []models.SizeBucketBreakdown{}, nil
	}

	emails, err := s.repo.FindBySelector(ctx, models.EmailSelector{})
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	buckets := make(map[enum.SizeBucket]*models.SizeBucketBreakdown)
	for _, email := range emails {
		size := email.EstimatedSize()
		bucket := sizeBucketFor(size)
		entry, ok := buckets[bucket]
		if !ok {
			entry = &models.SizeBucketBreakdown{Bucket: bucket}
			buckets[bucket] = entry
		}
		entry.EmailCount++
		entry.TotalSize += size
	}

	order := []enum.SizeBucket{
		enum.SizeBucketUnderOneMB,
		enum.SizeBucketOneToFiveMB,
		enum.SizeBucketFiveToTenMB,
		enum.SizeBucketOverTenMB,
	}
	result := make([]models.SizeBucketBreakdown, 0, len(buckets))
	for _, bucket := range order {
		if entry, ok := buckets[bucket]; ok {
			result = append(result, *entry)
		}
	}
	return result, nil
}

func (s *breakdownService) EstimateStorageReduction(ctx context.Context, criteria models.CleanupCriteria) (*models.ReductionEstimate, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "breakdownService.EstimateStorageReduction")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.LogObjectAsJson(span, "criteria", criteria)

	if s.repo == nil {
		return &models.ReductionEstimate{AffectedAccounts: []string{}}, nil
	}

	emails, err := s.repo.FindBySelector(ctx, criteria.Selector(utils.NowUnixMilli()))
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	estimate := &models.ReductionEstimate{AffectedAccounts: []string{}}
	accounts := make([]string, 0, len(emails))
	for _, email := range emails {
		// The minimum-size filter reads the raw size, matching what a
		// cleanup with the same criteria would delete.
		if criteria.MinSizeBytes != nil && email.RawSize() < *criteria.MinSizeBytes {
			continue
		}
		estimate.EmailCount++
		estimate.EstimatedSize += email.EstimatedSize()
		accounts = append(accounts, email.AccountID)
	}
	estimate.AffectedAccounts = utils.UniqueStrings(accounts)

	span.SetTag("result.count", estimate.EmailCount)
	return estimate, nil
}

func (s *breakdownService) GetStorageBreakdown(ctx context.Context) (*models.StorageBreakdown, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "breakdownService.GetStorageBreakdown")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	var (
		wg         sync.WaitGroup
		byAccount  []models.AccountBreakdown
		byAge      []models.AgeBucketBreakdown
		bySize     []models.SizeBucketBreakdown
		errAccount error
		errAge     error
		errSize    error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		byAccount, errAccount = s.GetStorageBreakdownByAccount(ctx)
	}()
	go func() {
		defer wg.Done()
		byAge, errAge = s.GetStorageBreakdownByAge(ctx)
	}()
	go func() {
		defer wg.Done()
		bySize, errSize = s.GetStorageBreakdownBySize(ctx)
	}()
	wg.Wait()

	for _, err := range []error{errAccount, errAge, errSize} {
		if err != nil {
			tracing.TraceErr(span, err)
			return nil, err
		}
	}

	result := &models.StorageBreakdown{
		ByAccount:   byAccount,
		ByAge:       byAge,
		BySize:      bySize,
		GeneratedAt: utils.Now(),
	}
	for _, account := range byAccount {
		result.TotalEmails += account.EmailCount
		result.TotalEstimatedSize += account.EstimatedSize
	}

	span.SetTag("result.totalEmails", result.TotalEmails)
	return result, nil
}

func ageBucketFor(ageMillis int64) enum.AgeBucket {
	switch {
	case ageMillis < yearMillis:
		return enum.AgeBucketUnderOneYear
	case ageMillis < 2*yearMillis:
		return enum.AgeBucketOneToTwoYears
	case ageMillis < 3*yearMillis:
		return enum.AgeBucketTwoToThreeYears
	default:
		return enum.AgeBucketOverThreeYears
	}
}

func sizeBucketFor(sizeBytes int64) enum.SizeBucket {
	switch {
	case sizeBytes < megabyte:
		return enum.SizeBucketUnderOneMB
	case sizeBytes < 5*megabyte:
		return enum.SizeBucketOneToFiveMB
	case sizeBytes < 10*megabyte:
		return enum.SizeBucketFiveToTenMB
	default:
		return enum.SizeBucketOverTenMB
	}
}

// FormatBytes renders a byte count on the base-1024 ladder with up to
// two decimals, e.g. "1.5 KB". Zero renders as "0 Bytes".
func FormatBytes(n int64) string {
	if n == 0 {
		return "0 Bytes"
	}

	units := []string{"Bytes", "KB", "MB", "GB", "TB"}
	value := float64(n)
	unit := 0
	for value >= 1024 && unit < len(units)-1 {
		value /= 1024
		unit++
	}

	rounded := math.Round(value*100) / 100
	return fmt.Sprintf("%s %s", strconv.FormatFloat(rounded, 'f', -1, 64), units[unit])
}
