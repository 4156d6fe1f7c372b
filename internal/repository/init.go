package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/mailvault/mailvault/config"
	"github.com/mailvault/mailvault/interfaces"
	"github.com/mailvault/mailvault/internal/models"
	"github.com/mailvault/mailvault/services/storage"
	"github.com/mailvault/mailvault/services/storage/aws_client"
)

type Repositories struct {
	EmailRepository interfaces.EmailRepository
}

func InitRepositories(db *gorm.DB, r2Config *config.R2StorageConfig) *Repositories {
	var attachmentStorage interfaces.StorageService
	if r2Config != nil && r2Config.AccountID != "" {
		attachmentStorage = storage.NewStorageService(
			aws_client.NewR2Client(
				r2Config.AccountID,
				r2Config.AccessKeyID,
				r2Config.AccessKeySecret,
			),
			storage.StorageConfig{Bucket: r2Config.EmailAttachmentBucket},
		)
	}

	return &Repositories{
		EmailRepository: NewEmailRepository(db, attachmentStorage),
	}
}

func MigrateDB(dbConfig *config.DatabaseConfig, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	sqlDB.SetMaxOpenConns(5)

	err = db.AutoMigrate(
		&models.Email{},
		&models.EmailAttachment{},
	)

	sqlDB.Close()

	sqlDB, _ = db.DB()
	sqlDB.SetMaxIdleConns(dbConfig.MaxIdleConn)
	sqlDB.SetMaxOpenConns(dbConfig.MaxConn)
	sqlDB.SetConnMaxLifetime(time.Duration(dbConfig.ConnMaxLifetime) * time.Minute)

	return err
}
