package breakdown

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailvault/mailvault/internal/enum"
	"github.com/mailvault/mailvault/internal/logger"
	"github.com/mailvault/mailvault/internal/models"
	"github.com/mailvault/mailvault/internal/utils"
)

type fakeEmailRepository struct {
	emails  []*models.Email
	findErr error
}

func (f *fakeEmailRepository) Create(ctx context.Context, email *models.Email) (string, error) {
	f.emails = append(f.emails, email)
	return email.ID, nil
}

func (f *fakeEmailRepository) GetByID(ctx context.Context, id string) (*models.Email, error) {
	for _, email := range f.emails {
		if email.ID == id {
			return email, nil
		}
	}
	return nil, nil
}

func (f *fakeEmailRepository) FindBySelector(ctx context.Context, selector models.EmailSelector) ([]*models.Email, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	result := make([]*models.Email, 0, len(f.emails))
	for _, email := range f.emails {
		if selector.AccountID != nil && email.AccountID != *selector.AccountID {
			continue
		}
		if len(selector.AccountIDs) > 0 && !utils.IsStringInSlice(email.AccountID, selector.AccountIDs) {
			continue
		}
		if selector.TimestampBefore != nil && email.Timestamp >= *selector.TimestampBefore {
			continue
		}
		result = append(result, email)
	}
	return result, nil
}

func (f *fakeEmailRepository) Remove(ctx context.Context, email *models.Email) error {
	for i, candidate := range f.emails {
		if candidate.ID == email.ID {
			f.emails = append(f.emails[:i], f.emails[i+1:]...)
			return nil
		}
	}
	return nil
}

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

func testEmail(id, accountID string, ageDays int, bodyLen int, attachmentSizes ...int64) *models.Email {
	email := &models.Email{
		ID:        id,
		AccountID: accountID,
		Timestamp: utils.NowUnixMilli() - utils.DaysToMillis(ageDays),
		BodyText:  strings.Repeat("a", bodyLen),
	}
	for _, size := range attachmentSizes {
		email.Attachments = append(email.Attachments, models.EmailAttachment{Size: size})
	}
	return email
}

func TestGetStorageBreakdownByAccount(t *testing.T) {
	// Arrange - tiny bodies, so every email carries the size floor
	repo := &fakeEmailRepository{emails: []*models.Email{
		testEmail("e1", "acc-a", 10, 100),
		testEmail("e2", "acc-a", 20, 100),
		testEmail("e3", "acc-b", 30, 100),
	}}
	service := NewStorageBreakdownService(repo, getLogger())

	// Act
	result, err := service.GetStorageBreakdownByAccount(context.Background())

	// Assert - largest consumer first
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, "acc-a", result[0].AccountID)
	assert.Equal(t, int64(2), result[0].EmailCount)
	assert.Equal(t, 2*models.EstimatedSizeFloor, result[0].EstimatedSize)
	assert.Equal(t, "acc-b", result[1].AccountID)
	assert.Equal(t, models.EstimatedSizeFloor, result[1].EstimatedSize)
}

func TestGetStorageBreakdownByAccount_TieBreaksOnAccountID(t *testing.T) {
	// Arrange - identical sizes on both accounts
	repo := &fakeEmailRepository{emails: []*models.Email{
		testEmail("e1", "acc-z", 10, 100),
		testEmail("e2", "acc-a", 10, 100),
	}}
	service := NewStorageBreakdownService(repo, getLogger())

	// Act
	result, err := service.GetStorageBreakdownByAccount(context.Background())

	// Assert
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, "acc-a", result[0].AccountID)
	assert.Equal(t, "acc-z", result[1].AccountID)
}

func TestGetStorageBreakdownByAge(t *testing.T) {
	// Arrange - one email per age range, none in "1-2y"
	repo := &fakeEmailRepository{emails: []*models.Email{
		testEmail("e1", "acc-a", 100, 100),
		testEmail("e2", "acc-a", 800, 100),
		testEmail("e3", "acc-a", 820, 100),
		testEmail("e4", "acc-b", 1200, 100),
	}}
	service := NewStorageBreakdownService(repo, getLogger())

	// Act
	result, err := service.GetStorageBreakdownByAge(context.Background())

	// Assert - empty buckets omitted, fixed range order kept
	require.NoError(t, err)
	require.Len(t, result, 3)
	assert.Equal(t, enum.AgeBucketUnderOneYear, result[0].Bucket)
	assert.Equal(t, int64(1), result[0].EmailCount)
	assert.Equal(t, enum.AgeBucketTwoToThreeYears, result[1].Bucket)
	assert.Equal(t, int64(2), result[1].EmailCount)
	assert.Equal(t, enum.AgeBucketOverThreeYears, result[2].Bucket)

	// Oldest/newest tracked inside the bucket
	assert.Less(t, result[1].OldestTs, result[1].NewestTs)
}

func TestGetStorageBreakdownBySize(t *testing.T) {
	// Arrange - floored sizes decide the bucket
	repo := &fakeEmailRepository{emails: []*models.Email{
		testEmail("e1", "acc-a", 10, 100),                 // floor, < 1MB
		testEmail("e2", "acc-a", 10, 0, 2*1024*1024),      // 2MB
		testEmail("e3", "acc-a", 10, 0, 7*1024*1024),      // 7MB
		testEmail("e4", "acc-a", 10, 0, 20*1024*1024),     // 20MB
		testEmail("e5", "acc-a", 10, 0, 3*1024*1024, 512), // 3MB and change
	}}
	service := NewStorageBreakdownService(repo, getLogger())

	// Act
	result, err := service.GetStorageBreakdownBySize(context.Background())

	// Assert
	require.NoError(t, err)
	require.Len(t, result, 4)
	assert.Equal(t, enum.SizeBucketUnderOneMB, result[0].Bucket)
	assert.Equal(t, int64(1), result[0].EmailCount)
	assert.Equal(t, enum.SizeBucketOneToFiveMB, result[1].Bucket)
	assert.Equal(t, int64(2), result[1].EmailCount)
	assert.Equal(t, enum.SizeBucketFiveToTenMB, result[2].Bucket)
	assert.Equal(t, int64(1), result[2].EmailCount)
	assert.Equal(t, enum.SizeBucketOverTenMB, result[3].Bucket)
	assert.Equal(t, int64(1), result[3].EmailCount)
}

func TestEstimateStorageReduction(t *testing.T) {
	// Arrange
	repo := &fakeEmailRepository{emails: []*models.Email{
		testEmail("e1", "acc-a", 400, 60000),
		testEmail("e2", "acc-a", 400, 1000),
		testEmail("e3", "acc-b", 10, 60000),
	}}
	service := NewStorageBreakdownService(repo, getLogger())

	// Act - emails older than a year, at least 55KB raw
	estimate, err := service.EstimateStorageReduction(context.Background(), models.CleanupCriteria{
		OlderThanDays: utils.Ptr(365),
		MinSizeBytes:  utils.Ptr(int64(55000)),
	})

	// Assert - e2 is excluded by its raw size even though its floored
	// estimate is above the minimum, e3 by age
	require.NoError(t, err)
	assert.Equal(t, int64(1), estimate.EmailCount)
	assert.Equal(t, int64(60000), estimate.EstimatedSize)
	assert.Equal(t, []string{"acc-a"}, estimate.AffectedAccounts)
}

func TestEstimateStorageReduction_NoCriteriaMatchesEverything(t *testing.T) {
	// Arrange
	repo := &fakeEmailRepository{emails: []*models.Email{
		testEmail("e1", "acc-a", 10, 100),
		testEmail("e2", "acc-b", 10, 100),
	}}
	service := NewStorageBreakdownService(repo, getLogger())

	// Act
	estimate, err := service.EstimateStorageReduction(context.Background(), models.CleanupCriteria{})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, int64(2), estimate.EmailCount)
	assert.ElementsMatch(t, []string{"acc-a", "acc-b"}, estimate.AffectedAccounts)
}

func TestGetStorageBreakdown(t *testing.T) {
	// Arrange
	repo := &fakeEmailRepository{emails: []*models.Email{
		testEmail("e1", "acc-a", 10, 100),
		testEmail("e2", "acc-b", 10, 0, 2*1024*1024),
	}}
	service := NewStorageBreakdownService(repo, getLogger())

	// Act
	result, err := service.GetStorageBreakdown(context.Background())

	// Assert - totals agree with the account aggregation
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.TotalEmails)
	assert.Equal(t, models.EstimatedSizeFloor+2*1024*1024, result.TotalEstimatedSize)
	assert.Len(t, result.ByAccount, 2)
	assert.Len(t, result.ByAge, 1)
	assert.Len(t, result.BySize, 2)
	assert.False(t, result.GeneratedAt.IsZero())
}

func TestGetStorageBreakdown_PropagatesErrors(t *testing.T) {
	// Arrange
	repo := &fakeEmailRepository{findErr: errors.New("connection refused")}
	service := NewStorageBreakdownService(repo, getLogger())

	// Act
	result, err := service.GetStorageBreakdown(context.Background())

	// Assert
	assert.Error(t, err)
	assert.Nil(t, result)
}

func TestBreakdownService_NilRepository(t *testing.T) {
	// Arrange
	service := NewStorageBreakdownService(nil, getLogger())

	// Act & Assert - every aggregation degrades to empty output
	byAccount, err := service.GetStorageBreakdownByAccount(context.Background())
	require.NoError(t, err)
	assert.Empty(t, byAccount)

	byAge, err := service.GetStorageBreakdownByAge(context.Background())
	require.NoError(t, err)
	assert.Empty(t, byAge)

	bySize, err := service.GetStorageBreakdownBySize(context.Background())
	require.NoError(t, err)
	assert.Empty(t, bySize)

	estimate, err := service.EstimateStorageReduction(context.Background(), models.CleanupCriteria{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), estimate.EmailCount)
	assert.Empty(t, estimate.AffectedAccounts)

	combined, err := service.GetStorageBreakdown(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), combined.TotalEmails)
}

func TestAgeBucketFor(t *testing.T) {
	day := int64(24 * 60 * 60 * 1000)

	assert.Equal(t, enum.AgeBucketUnderOneYear, ageBucketFor(0))
	assert.Equal(t, enum.AgeBucketUnderOneYear, ageBucketFor(364*day))
	assert.Equal(t, enum.AgeBucketOneToTwoYears, ageBucketFor(365*day))
	assert.Equal(t, enum.AgeBucketOneToTwoYears, ageBucketFor(729*day))
	assert.Equal(t, enum.AgeBucketTwoToThreeYears, ageBucketFor(730*day))
	assert.Equal(t, enum.AgeBucketOverThreeYears, ageBucketFor(1095*day))
	assert.Equal(t, enum.AgeBucketOverThreeYears, ageBucketFor(10*365*day))
}

func TestFormatBytes(t *testing.T) {
	cases := []struct {
		in       int64
		expected string
	}{
		{0, "0 Bytes"},
		{1, "1 Bytes"},
		{512, "512 Bytes"},
		{1023, "1023 Bytes"},
		{1024, "1 KB"},
		{1536, "1.5 KB"},
		{2500, "2.44 KB"},
		{1024 * 1024, "1 MB"},
		{1024*1024 + 512*1024, "1.5 MB"},
		{1024 * 1024 * 1024, "1 GB"},
		{1024 * 1024 * 1024 * 1024, "1 TB"},
		{1024 * 1024 * 1024 * 1024 * 1024, "1024 TB"},
	}

	for _, c := range cases {
		assert.Equal(t, c.expected, FormatBytes(c.in), "FormatBytes(%d)", c.in)
	}
}

func TestEstimateMatchesElapsedTimeWindow(t *testing.T) {
	// Arrange - one message just past the age cutoff, one just inside it
	now := utils.NowUnixMilli()
	minute := int64(time.Minute / time.Millisecond)
	repo := &fakeEmailRepository{emails: []*models.Email{
		{ID: "e1", AccountID: "acc-a", Timestamp: now - utils.DaysToMillis(30) - minute, BodyText: "x"},
		{ID: "e2", AccountID: "acc-a", Timestamp: now - utils.DaysToMillis(30) + minute, BodyText: "x"},
	}}
	service := NewStorageBreakdownService(repo, getLogger())

	// Act
	estimate, err := service.EstimateStorageReduction(context.Background(), models.CleanupCriteria{
		OlderThanDays: utils.Ptr(30),
	})

	// Assert - only the strictly-older message is selected
	require.NoError(t, err)
	assert.Equal(t, int64(1), estimate.EmailCount)
}
