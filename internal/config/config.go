package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth" validate:"required"`
	Task     TaskConfig     `mapstructure:"task" validate:"required"`
	Mail     MailConfig     `mapstructure:"mail" validate:"required"`
	Schedule []ScheduleItem `mapstructure:"schedule" validate:"dive"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
// An empty URL runs every store in-memory, which is only suitable for
// development.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`
}

// TaskConfig tunes the background task layer: queue capacity, worker
// parallelism, and the retry/retention schedule.
type TaskConfig struct {
	QueueSize          int           `mapstructure:"queue_size" validate:"required,gt=0"`
	WorkerCount        int           `mapstructure:"worker_count" validate:"required,gt=0"`
	MaxRetries         int           `mapstructure:"max_retries" validate:"gte=0"`
	RetryBackoffBase   time.Duration `mapstructure:"retry_backoff_base" validate:"required,gt=0"`
	ResultTTL          time.Duration `mapstructure:"result_ttl" validate:"required,gt=0"`
	StuckAge           time.Duration `mapstructure:"stuck_age" validate:"required,gt=0"`
	RedeliveryInterval time.Duration `mapstructure:"redelivery_interval" validate:"required,gt=0"`
}

// MailConfig contains the SMTP settings for outgoing notification and
// report mail.
type MailConfig struct {
	Host       string        `mapstructure:"host" validate:"required"`
	Port       int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	From       string        `mapstructure:"from" validate:"required,email"`
	Username   string        `mapstructure:"username"`
	Password   string        `mapstructure:"password"`
	BatchSize  int           `mapstructure:"batch_size" validate:"required,gt=0"`
	BatchPause time.Duration `mapstructure:"batch_pause" validate:"gte=0"`
}

// ScheduleItem is one periodic task entry: a registered task name and the
// cron expression that fires it.
type ScheduleItem struct {
	Name string `mapstructure:"name" validate:"required"`
	Cron string `mapstructure:"cron" validate:"required"`
	Args []any  `mapstructure:"args"`
}
