package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// envPrefix namespaces the application's environment variables, e.g.
// QUIZMASTER_SERVER_PORT or QUIZMASTER_DATABASE_URL.
const envPrefix = "QUIZMASTER"

// Load reads configuration from environment variables and an optional
// config.yaml in the working directory. Environment variables take
// precedence over file values, and both take precedence over defaults.
// Returns a populated Config struct or an error if loading or validation
// fails.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, the environment carries the
		// settings in deployed environments.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	// Empty defaults register the keys so AutomaticEnv can fill them in
	// during Unmarshal.
	v.SetDefault("database.url", "")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")

	v.SetDefault("task.queue_size", 100)
	v.SetDefault("task.worker_count", 2)
	v.SetDefault("task.max_retries", 3)
	v.SetDefault("task.retry_backoff_base", 300*time.Second)
	v.SetDefault("task.result_ttl", time.Hour)
	v.SetDefault("task.stuck_age", 30*time.Minute)
	v.SetDefault("task.redelivery_interval", 5*time.Second)

	v.SetDefault("mail.host", "localhost")
	v.SetDefault("mail.port", 1025)
	v.SetDefault("mail.from", "noreply@quizmaster.local")
	v.SetDefault("mail.batch_size", 20)
	v.SetDefault("mail.batch_pause", 5*time.Second)

	// The production beat: monthly performance reports on the first of
	// the month at 02:00. Zero args mean the previous calendar month.
	v.SetDefault("schedule", []map[string]any{
		{
			"name": "monthly_reports",
			"cron": "0 2 1 * *",
			"args": []any{0, 0},
		},
	})
}
