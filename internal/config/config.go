package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Database dbConfig
	API      apiConfig
	Sync     syncConfig
	Metrics  metricsConfig
	LogLevel string `envconfig:"INSPECTSYNC_LOG_LEVEL" default:"info"`
}

type dbConfig struct {
	URL             string        `envconfig:"DATABASE_URL" default:"sqlite://./inspectsync.db"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
}

type apiConfig struct {
	BaseURL    string        `envconfig:"INSPECTSYNC_API_URL" default:"http://localhost:8080"`
	Token      string        `envconfig:"INSPECTSYNC_API_TOKEN" default:""`
	Timeout    time.Duration `envconfig:"INSPECTSYNC_HTTP_TIMEOUT" default:"60s"`
	RetryCount int           `envconfig:"INSPECTSYNC_HTTP_RETRY_COUNT" default:"0"`
}

type syncConfig struct {
	AutosaveDebounce time.Duration `envconfig:"INSPECTSYNC_AUTOSAVE_DEBOUNCE" default:"750ms"`
	PollSchedule    string        `envconfig:"INSPECTSYNC_POLL_SCHEDULE" default:"@every 15s"`
	MaxAttempts      int           `envconfig:"INSPECTSYNC_MAX_ATTEMPTS" default:"0"`
	DrainConcurrency int           `envconfig:"INSPECTSYNC_DRAIN_CONCURRENCY" default:"4"`
	ClearDraftOnSync bool          `envconfig:"INSPECTSYNC_CLEAR_DRAFT_ON_SYNC" default:"false"`
}

type metricsConfig struct {
	Address string `envconfig:"INSPECTSYNC_METRICS_ADDRESS" default:""`
}

// New reads the configuration from the environment
func New() (*Config, error) {
	cfg := new(Config)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the services cannot run with
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("INSPECTSYNC_API_URL is required")
	}
	if c.API.RetryCount < 0 {
		return fmt.Errorf("INSPECTSYNC_HTTP_RETRY_COUNT must not be negative")
	}
	if c.Sync.MaxAttempts < 0 {
		return fmt.Errorf("INSPECTSYNC_MAX_ATTEMPTS must not be negative")
	}
	if c.Sync.DrainConcurrency < 1 {
		return fmt.Errorf("INSPECTSYNC_DRAIN_CONCURRENCY must be at least 1")
	}
	if c.Sync.AutosaveDebounce <= 0 {
		return fmt.Errorf("INSPECTSYNC_AUTOSAVE_DEBOUNCE must be positive")
	}
	return nil
}
