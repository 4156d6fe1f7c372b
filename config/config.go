package config

type AppConfig struct {
	APIPort     string `env:"PORT" envDefault:"12333"`
	APIKey      string `env:"API_KEY,required"`
	RabbitMQURL string `env:"RABBITMQ_URL"`
}

type DatabaseConfig struct {
	Host            string `env:"MAILVAULT_POSTGRES_HOST,required"`
	Port            string `env:"MAILVAULT_POSTGRES_PORT,required"`
	User            string `env:"MAILVAULT_POSTGRES_USER,required"`
	DBName          string `env:"MAILVAULT_POSTGRES_DB_NAME,required"`
	Password        string `env:"MAILVAULT_POSTGRES_PASSWORD,required"`
	MaxConn         int    `env:"MAILVAULT_POSTGRES_DB_MAX_CONN"`
	MaxIdleConn     int    `env:"MAILVAULT_POSTGRES_DB_MAX_IDLE_CONN"`
	ConnMaxLifetime int    `env:"MAILVAULT_POSTGRES_DB_CONN_MAX_LIFETIME"`
	LogLevel        string `env:"MAILVAULT_POSTGRES_LOG_LEVEL" envDefault:"WARN"`
	SSLMode         string `env:"MAILVAULT_POSTGRES_SSL_MODE" envDefault:"require"`
}

type R2StorageConfig struct {
	AccountID             string `env:"CLOUDFLARE_R2_ACCOUNT_ID"`
	AccessKeyID           string `env:"CLOUDFLARE_R2_ACCESS_KEY_ID"`
	AccessKeySecret       string `env:"CLOUDFLARE_R2_ACCESS_KEY_SECRET"`
	EmailAttachmentBucket string `env:"BUCKET_NAME_EMAIL_ATTACHMENT" envDefault:"attachments"`
}

// QuotaMonitorConfig drives the quota monitor's thresholds, poll
// interval and estimate source.
type QuotaMonitorConfig struct {
	WarningThreshold     float64 `env:"QUOTA_WARNING_THRESHOLD" envDefault:"80"`
	CriticalThreshold    float64 `env:"QUOTA_CRITICAL_THRESHOLD" envDefault:"90"`
	CheckIntervalSeconds int     `env:"QUOTA_CHECK_INTERVAL_SECONDS" envDefault:"300"`
	// EstimateProvider selects the usage source: "database", "disk"
	// or "none".
	EstimateProvider string `env:"QUOTA_ESTIMATE_PROVIDER" envDefault:"database"`
	// DiskPath is the mount point measured by the disk provider.
	DiskPath string `env:"QUOTA_DISK_PATH" envDefault:"/"`
	// QuotaBytes caps the database provider, which has no intrinsic
	// limit to report. Zero disables classification.
	QuotaBytes int64 `env:"QUOTA_LIMIT_BYTES" envDefault:"0"`
}

// CleanupConfig drives the scheduled retention cleanup. Schedules live
// in the cron config package.
type CleanupConfig struct {
	// RetentionDays of zero disables the scheduled job.
	RetentionDays int `env:"CLEANUP_RETENTION_DAYS" envDefault:"0"`
}
