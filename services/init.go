package services

import (
	"time"

	"gorm.io/gorm"

	"github.com/mailvault/mailvault/config"
	"github.com/mailvault/mailvault/interfaces"
	"github.com/mailvault/mailvault/internal/logger"
	"github.com/mailvault/mailvault/internal/repository"
	"github.com/mailvault/mailvault/services/breakdown"
	"github.com/mailvault/mailvault/services/cleanup"
	"github.com/mailvault/mailvault/services/events"
	"github.com/mailvault/mailvault/services/quota"
)

type Services struct {
	EventsPublisher  *events.RabbitMQPublisher
	QuotaMonitor     interfaces.QuotaMonitorService
	StorageBreakdown interfaces.StorageBreakdownService
	Cleanup          interfaces.CleanupService
}

func InitServices(cfg *config.Config, db *gorm.DB, log logger.Logger, repos *repository.Repositories) (*Services, error) {
	quotaCfg := cfg.QuotaMonitorConfig

	var provider interfaces.StorageEstimateProvider
	switch quotaCfg.EstimateProvider {
	case "disk":
		provider = quota.NewDiskEstimateProvider(quotaCfg.DiskPath)
	case "database":
		provider = quota.NewDatabaseEstimateProvider(db, quotaCfg.QuotaBytes)
	case "none":
		// Monitoring degrades to the zero state.
	}

	monitor, err := quota.NewQuotaMonitor(provider, interfaces.QuotaConfig{
		WarningThreshold:  quotaCfg.WarningThreshold,
		CriticalThreshold: quotaCfg.CriticalThreshold,
		CheckInterval:     time.Duration(quotaCfg.CheckIntervalSeconds) * time.Second,
	}, log)
	if err != nil {
		return nil, err
	}

	services := &Services{
		QuotaMonitor:     monitor,
		StorageBreakdown: breakdown.NewStorageBreakdownService(repos.EmailRepository, log),
		Cleanup:          cleanup.NewCleanupService(repos.EmailRepository, log),
	}

	if cfg.AppConfig.RabbitMQURL != "" {
		publisher, err := events.NewRabbitMQPublisher(cfg.AppConfig.RabbitMQURL, log, nil)
		if err != nil {
			return nil, err
		}
		services.EventsPublisher = publisher
		monitor.Subscribe(events.QuotaStateListener(publisher, log))
	}

	return services, nil
}

// Dispose releases everything InitServices wired up; used by tests and
// server shutdown.
func (s *Services) Dispose() {
	if s.QuotaMonitor != nil {
		s.QuotaMonitor.Dispose()
	}
	if s.EventsPublisher != nil {
		s.EventsPublisher.Close()
	}
}
