package repository

import (
	"context"
	"errors"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/mailvault/mailvault/interfaces"
	"github.com/mailvault/mailvault/internal/models"
	"github.com/mailvault/mailvault/internal/tracing"
)

type emailRepository struct {
	db      *gorm.DB
	storage interfaces.StorageService
}

func NewEmailRepository(db *gorm.DB, storage interfaces.StorageService) interfaces.EmailRepository {
	return &emailRepository{
		db:      db,
		storage: storage,
	}
}

func (r *emailRepository) Create(ctx context.Context, email *models.Email) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.Create")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if email == nil {
		return "", ErrInvalidInput
	}

	result := r.db.WithContext(ctx).Create(email)
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return "", result.Error
	}

	return email.ID, nil
}

// GetByID retrieves an email with its attachments
func (r *emailRepository) GetByID(ctx context.Context, id string) (*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.GetByID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var email models.Email
	if err := r.db.WithContext(ctx).
		Preload("Attachments").
		Where("id = ?", id).
		First(&email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &email, nil
}

// FindBySelector loads every email matching the typed predicates,
// attachments included so size estimation never needs a second query.
func (r *emailRepository) FindBySelector(ctx context.Context, selector models.EmailSelector) ([]*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.FindBySelector")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	span.SetTag("selector.empty", selector.IsZero())

	query := r.db.WithContext(ctx).Model(&models.Email{}).Preload("Attachments")
	query = applySelector(query, selector)

	var emails []*models.Email
	if err := query.Find(&emails).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	span.SetTag("result.count", len(emails))
	return emails, nil
}

// Remove deletes one email: attachment blobs first (best effort),
// then attachment rows, then the email row.
func (r *emailRepository) Remove(ctx context.Context, email *models.Email) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.Remove")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if email == nil || email.ID == "" {
		return ErrInvalidInput
	}
	tracing.TagEntity(span, email.ID)

	for _, attachment := range email.Attachments {
		if attachment.StorageKey == "" || r.storage == nil {
			continue
		}
		if err := r.storage.Delete(ctx, attachment.StorageKey); err != nil {
			// Blob deletion failure must not orphan the database rows;
			// the row delete below still runs.
			tracing.TraceErr(span, err)
		}
	}

	if err := r.db.WithContext(ctx).
		Delete(&models.EmailAttachment{}, "email_id = ?", email.ID).Error; err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	if err := r.db.WithContext(ctx).
		Delete(&models.Email{}, "id = ?", email.ID).Error; err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	return nil
}

func applySelector(query *gorm.DB, selector models.EmailSelector) *gorm.DB {
	if selector.AccountID != nil {
		query = query.Where("account_id = ?", *selector.AccountID)
	}
	if len(selector.AccountIDs) > 0 {
		query = query.Where("account_id IN ?", selector.AccountIDs)
	}
	if selector.TimestampBefore != nil {
		query = query.Where("timestamp < ?", *selector.TimestampBefore)
	}
	return query
}
