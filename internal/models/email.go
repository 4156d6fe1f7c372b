package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/mailvault/mailvault/internal/utils"
)

// EstimatedSizeFloor is the minimum storage footprint attributed to a
// single email. Body lengths undercount headers, encoding overhead and
// index rows, so every estimate is clamped to this floor.
const EstimatedSizeFloor int64 = 50 * 1024

// Email represents a raw email message stored in the database
type Email struct {
	ID        string `gorm:"column:id;type:varchar(50);primaryKey"`
	AccountID string `gorm:"column:account_id;type:varchar(50);index;not null"`
	Folder    string `gorm:"column:folder;type:varchar(100);index"`
	MessageID string `gorm:"column:message_id;uniqueIndex;type:varchar(255);not null"`
	ThreadID  string `gorm:"column:thread_id;type:varchar(255);index"`

	// Core email metadata
	Subject     string         `gorm:"column:subject;type:varchar(1000)"`
	FromAddress string         `gorm:"column:from_address;type:varchar(255);index"`
	FromName    string         `gorm:"column:from_name;type:varchar(255)"`
	ToAddresses pq.StringArray `gorm:"column:to_addresses;type:text[]"`
	CcAddresses pq.StringArray `gorm:"column:cc_addresses;type:text[]"`

	// Timestamp is the message date in epoch milliseconds. Age-based
	// aggregation and cleanup cut off on this column.
	Timestamp int64 `gorm:"column:timestamp;index;not null"`

	// Content
	RawHeaders    JSONMap `gorm:"column:raw_headers;type:jsonb"`
	BodyText      string  `gorm:"column:body_text;type:text"`
	BodyHTML      string  `gorm:"column:body_html;type:text"`
	HasAttachment bool    `gorm:"column:has_attachment;default:false"`

	Attachments []EmailAttachment `gorm:"foreignKey:EmailID"`

	// Standard timestamps
	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp;default:current_timestamp"`
}

func (Email) TableName() string {
	return "emails"
}

func (e *Email) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = utils.GenerateNanoIDWithPrefix("email", 24)
	}
	e.CreatedAt = utils.Now()
	return nil
}

// RawSize is the unfloored storage footprint: body character lengths
// plus attachment byte sizes. Character length stands in for byte size.
func (e *Email) RawSize() int64 {
	size := int64(len(e.BodyText)) + int64(len(e.BodyHTML))
	for _, a := range e.Attachments {
		size += a.Size
	}
	return size
}

// EstimatedSize is RawSize clamped to EstimatedSizeFloor. All
// aggregation paths use this; only the size-based cleanup filter reads
// the raw value.
func (e *Email) EstimatedSize() int64 {
	if size := e.RawSize(); size > EstimatedSizeFloor {
		return size
	}
	return EstimatedSizeFloor
}
