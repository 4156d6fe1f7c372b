package cron

import (
	"os"
	"testing"

	cronv3 "github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"

	"github.com/mailvault/mailvault/config"
	cron_config "github.com/mailvault/mailvault/internal/cron/config"
	"github.com/mailvault/mailvault/internal/logger"
)

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

func TestNewCronManager(t *testing.T) {
	// Arrange
	cfg := &config.Config{
		Logger:        &logger.Config{LogLevel: "info"},
		CleanupConfig: &config.CleanupConfig{},
	}
	log := getLogger()

	// Act
	cm := NewCronManager(cfg, log, nil, nil)

	// Assert
	assert.NotNil(t, cm)
	assert.Equal(t, cfg, cm.cfg)
	assert.Equal(t, log, cm.log)
	assert.NotNil(t, cm.jobIDs)
}

func TestCronManager_StartCron(t *testing.T) {
	// Set environment variable for testing
	os.Setenv("CRON_SCHEDULE_RETENTION_CLEANUP", "0 30 2 * * *")
	os.Setenv("CRON_SCHEDULE_QUOTA_CHECK", "0 */5 * * * *")
	defer os.Unsetenv("CRON_SCHEDULE_RETENTION_CLEANUP")
	defer os.Unsetenv("CRON_SCHEDULE_QUOTA_CHECK")

	// Arrange
	cfg := &config.Config{
		Logger:        &logger.Config{LogLevel: "info"},
		CleanupConfig: &config.CleanupConfig{RetentionDays: 365},
	}
	log := getLogger()
	cm := NewCronManager(cfg, log, nil, nil)

	// Create a mock cron for testing
	mockCron := cronv3.New(cronv3.WithSeconds())

	// Register jobs directly
	var cronConfig cron_config.Config
	cronConfig.CronScheduleRetentionCleanup = "0 30 2 * * *"
	cronConfig.CronScheduleQuotaCheck = "0 */5 * * * *"

	// Act - register jobs manually
	id, err := mockCron.AddFunc(cronConfig.CronScheduleRetentionCleanup, func() {})
	assert.NoError(t, err)
	cm.jobIDs["retention_cleanup"] = id

	quotaId, err := mockCron.AddFunc(cronConfig.CronScheduleQuotaCheck, func() {})
	assert.NoError(t, err)
	cm.jobIDs["quota_check"] = quotaId

	cm.cron = mockCron

	// Assert
	assert.NotNil(t, cm.cron)
	assert.Equal(t, 2, len(cm.jobIDs))
}

func TestCronManager_Stop(t *testing.T) {
	// Arrange
	cfg := &config.Config{
		Logger:        &logger.Config{LogLevel: "info"},
		CleanupConfig: &config.CleanupConfig{},
	}
	log := getLogger()
	cm := NewCronManager(cfg, log, nil, nil)

	// Create a mock cron for testing
	mockCron := cronv3.New()
	mockCron.Start()
	cm.cron = mockCron

	// Act
	cm.Stop()

	// Assert
	select {
	case <-cm.stopCh:
		// Channel is closed as expected
	default:
		t.Error("Stop channel was not closed")
	}
}
