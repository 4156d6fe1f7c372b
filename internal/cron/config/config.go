package cron_config

type Config struct {
	// Heartbeat check, every minute
	CronScheduleHeartbeat string `env:"CRON_SCHEDULE_HEARTBEAT" envDefault:"0 * * * * *"`
	// Retention cleanup, daily at 02:30
	CronScheduleRetentionCleanup string `env:"CRON_SCHEDULE_RETENTION_CLEANUP" envDefault:"0 30 2 * * *"`
	// Quota check, every 5 minutes
	CronScheduleQuotaCheck string `env:"CRON_SCHEDULE_QUOTA_CHECK" envDefault:"0 */5 * * * *"`
}
