package database

import (
	"log"

	"gorm.io/gorm"

	"github.com/mailvault/mailvault/config"
)

func InitMailvaultDatabase(dbConfig *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := NewConnection(dbConfig)
	if err != nil {
		log.Fatalf("Failed to connect to the database: %v", err)
	}

	return db, nil
}
