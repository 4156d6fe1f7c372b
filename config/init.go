package config

import (
	"log"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/mailvault/mailvault/internal/logger"
	"github.com/mailvault/mailvault/internal/tracing"
)

type Config struct {
	AppConfig          *AppConfig
	Logger             *logger.Config
	Tracing            *tracing.JaegerConfig
	DatabaseConfig     *DatabaseConfig
	R2StorageConfig    *R2StorageConfig
	QuotaMonitorConfig *QuotaMonitorConfig
	CleanupConfig      *CleanupConfig
}

func InitConfig() (*Config, error) {
	config := &Config{
		AppConfig:          &AppConfig{},
		Logger:             &logger.Config{},
		Tracing:            &tracing.JaegerConfig{},
		DatabaseConfig:     &DatabaseConfig{},
		R2StorageConfig:    &R2StorageConfig{},
		QuotaMonitorConfig: &QuotaMonitorConfig{},
		CleanupConfig:      &CleanupConfig{},
	}

	err := godotenv.Load()
	if err != nil {
		log.Print("Unable to load .env file")
	}

	err = env.Parse(config)
	if err != nil {
		log.Fatalf("Error loading mailvault config: %v", err)
	}

	return config, nil
}
