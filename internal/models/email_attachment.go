package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/mailvault/mailvault/internal/utils"
)

// EmailAttachment represents an attachment to an email
type EmailAttachment struct {
	ID          string `gorm:"column:id;type:varchar(50);primaryKey"`
	EmailID     string `gorm:"column:email_id;type:varchar(50);index;not null"`
	Filename    string `gorm:"column:filename;type:varchar(500)"`
	ContentType string `gorm:"column:content_type;type:varchar(255)"`
	Size        int64  `gorm:"column:size;default:0"`

	// StorageKey locates the blob in object storage; empty when the
	// attachment is stored inline in the database row.
	StorageKey string `gorm:"column:storage_key;type:varchar(1000)"`

	// Standard timestamps
	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp;default:current_timestamp"`
}

// TableName overrides the table name for EmailAttachment
func (EmailAttachment) TableName() string {
	return "email_attachments"
}

func (e *EmailAttachment) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = utils.GenerateNanoIDWithPrefix("file", 12)
	}
	e.CreatedAt = utils.Now()
	return nil
}
