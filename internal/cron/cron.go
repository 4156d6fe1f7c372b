package cron

import (
	"context"
	"os"
	"sync"

	"github.com/caarlos0/env/v6"
	cronv3 "github.com/robfig/cron/v3"

	"github.com/mailvault/mailvault/config"
	"github.com/mailvault/mailvault/interfaces"
	cron_config "github.com/mailvault/mailvault/internal/cron/config"
	"github.com/mailvault/mailvault/internal/logger"
	"github.com/mailvault/mailvault/internal/models"
	"github.com/mailvault/mailvault/internal/tracing"
)

// CONSTANTS
const (
	// GroupStorage is the group for storage maintenance jobs
	GroupStorage = "storage"
)

// LOCK MANAGEMENT
var jobLocks = struct {
	sync.Mutex
	locks map[string]*sync.Mutex
}{
	locks: map[string]*sync.Mutex{
		GroupStorage: new(sync.Mutex),
	},
}

type CronManager struct {
	cfg     *config.Config
	log     logger.Logger
	cron    *cronv3.Cron
	stopCh  chan struct{}
	jobIDs  map[string]cronv3.EntryID
	quota   interfaces.QuotaMonitorService
	cleanup interfaces.CleanupService
}

func NewCronManager(cfg *config.Config, log logger.Logger, quota interfaces.QuotaMonitorService, cleanup interfaces.CleanupService) *CronManager {
	return &CronManager{
		cfg:     cfg,
		log:     log,
		stopCh:  make(chan struct{}),
		jobIDs:  make(map[string]cronv3.EntryID),
		quota:   quota,
		cleanup: cleanup,
	}
}

// Stop gracefully stops the cron manager
func (cm *CronManager) Stop() {
	if cm.cron != nil {
		cm.log.Info("Stopping cron manager")
		ctx := cm.cron.Stop()
		// Wait for jobs to finish
		<-ctx.Done()
	}
	close(cm.stopCh)
}

// registerJobs adds all cron jobs to the scheduler
func (cm *CronManager) registerJobs(c *cronv3.Cron) {
	// Load cron config from environment variables
	var cronConfig cron_config.Config
	if err := env.Parse(&cronConfig); err != nil {
		cm.log.Fatalf("Failed to parse cron config from environment: %v", err)
	}

	// Register heartbeat job
	if cronConfig.CronScheduleHeartbeat != "" {
		podName := os.Getenv("POD_NAME")
		if podName == "" {
			podName = "local"
		}
		id, err := c.AddFunc(cronConfig.CronScheduleHeartbeat, func() {
			defer tracing.RecoverAndLogToJaeger(cm.log)
			cm.log.Infof("Cron heartbeat from pod: %s", podName)
		})
		if err != nil {
			cm.log.Fatalf("Could not add heartbeat cron job: %v", err)
		}
		cm.jobIDs["heartbeat"] = id
		cm.log.Infof("Registered heartbeat job with schedule: %s", cronConfig.CronScheduleHeartbeat)
	}

	// Add quota check job
	if cronConfig.CronScheduleQuotaCheck != "" && cm.quota != nil {
		id, err := c.AddFunc(cronConfig.CronScheduleQuotaCheck, func() {
			defer tracing.RecoverAndLogToJaeger(cm.log)
			cm.checkStorageQuota()
		})
		if err != nil {
			cm.log.Fatalf("Could not add quota check cron job: %v", err)
		}
		cm.jobIDs["quota_check"] = id
		cm.log.Infof("Registered quota check job with schedule: %s", cronConfig.CronScheduleQuotaCheck)
	}

	// Add retention cleanup job
	if cronConfig.CronScheduleRetentionCleanup != "" && cm.cfg.CleanupConfig.RetentionDays > 0 && cm.cleanup != nil {
		id, err := c.AddFunc(cronConfig.CronScheduleRetentionCleanup, func() {
			defer tracing.RecoverAndLogToJaeger(cm.log)
			jobLocks.locks[GroupStorage].Lock()
			defer jobLocks.locks[GroupStorage].Unlock()
			cm.runRetentionCleanup()
		})
		if err != nil {
			cm.log.Fatalf("Could not add retention cleanup cron job: %v", err)
		}
		cm.jobIDs["retention_cleanup"] = id
		cm.log.Infof("Registered retention cleanup job with schedule: %s", cronConfig.CronScheduleRetentionCleanup)
	}
}

// StartCron initializes and starts the cron scheduler
func (cm *CronManager) StartCron() {
	cm.log.Info("Starting cron manager")
	// Create a new cron with seconds field enabled and panic recovery
	cronOptions := []cronv3.Option{
		cronv3.WithSeconds(),
		cronv3.WithChain(
			cronv3.SkipIfStillRunning(cronv3.DefaultLogger), // Skip if still running
			cronv3.Recover(cronv3.DefaultLogger),            // Default recovery as backup
		),
	}
	c := cronv3.New(cronOptions...)
	cm.registerJobs(c)
	c.Start()
	cm.cron = c
}

func (cm *CronManager) checkStorageQuota() {
	ctx := context.Background()

	span, ctx := tracing.StartTracerSpan(ctx, "CronManager.checkStorageQuota")
	defer span.Finish()
	tracing.TagComponentCronJob(span)

	state, err := cm.quota.CheckStorageQuota(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		cm.log.Errorf("Failed to check storage quota: %v", err)
		return
	}

	cm.log.Infof("Storage quota at %.2f%% (%s)", state.Percentage, state.Status)
}

func (cm *CronManager) runRetentionCleanup() {
	cm.log.Infof("Running retention cleanup for emails older than %d days", cm.cfg.CleanupConfig.RetentionDays)

	ctx := context.Background()

	span, ctx := tracing.StartTracerSpan(ctx, "CronManager.runRetentionCleanup")
	defer span.Finish()
	tracing.TagComponentCronJob(span)

	retentionDays := cm.cfg.CleanupConfig.RetentionDays
	result, err := cm.cleanup.ExecuteCleanup(ctx, models.CleanupCriteria{OlderThanDays: &retentionDays}, nil)
	if err != nil {
		tracing.TraceErr(span, err)
		cm.log.Errorf("Retention cleanup failed: %v", err)
		return
	}

	cm.log.Infof("Retention cleanup removed %d emails, freed %d bytes in %dms", result.DeletedCount, result.FreedBytes, result.DurationMs)
}
