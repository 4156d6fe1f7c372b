package quota

import (
	"context"
	"syscall"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/mailvault/mailvault/interfaces"
	"github.com/mailvault/mailvault/internal/models"
	"github.com/mailvault/mailvault/internal/tracing"
)

// diskEstimateProvider reports usage of the filesystem holding the
// mail store.
type diskEstimateProvider struct {
	path string
}

func NewDiskEstimateProvider(path string) interfaces.StorageEstimateProvider {
	return &diskEstimateProvider{path: path}
}

func (p *diskEstimateProvider) Estimate(ctx context.Context) (*models.StorageEstimate, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "diskEstimateProvider.Estimate")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	var stat syscall.Statfs_t
	if err := syscall.Statfs(p.path, &stat); err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrapf(err, "statfs %s", p.path)
	}

	blockSize := int64(stat.Bsize)
	total := int64(stat.Blocks) * blockSize
	available := int64(stat.Bavail) * blockSize

	return &models.StorageEstimate{
		UsageBytes: total - available,
		QuotaBytes: total,
	}, nil
}

// databaseEstimateProvider reports the postgres database size against
// a configured quota.
type databaseEstimateProvider struct {
	db         *gorm.DB
	quotaBytes int64
}

func NewDatabaseEstimateProvider(db *gorm.DB, quotaBytes int64) interfaces.StorageEstimateProvider {
	return &databaseEstimateProvider{
		db:         db,
		quotaBytes: quotaBytes,
	}
}

func (p *databaseEstimateProvider) Estimate(ctx context.Context) (*models.StorageEstimate, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "databaseEstimateProvider.Estimate")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var size int64
	err := p.db.WithContext(ctx).
		Raw("SELECT pg_database_size(current_database())").
		Scan(&size).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "pg_database_size")
	}

	return &models.StorageEstimate{
		UsageBytes: size,
		QuotaBytes: p.quotaBytes,
	}, nil
}
