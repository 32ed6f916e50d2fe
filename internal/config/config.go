package config

import (
	"fmt"
	"os"
	"time"
	_ "time/tzdata" // timezone database for scheduling.timezone

	"interviewsched/internal/retry"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "configs/config.yaml"

type Config struct {
	Database struct {
		Driver       string `yaml:"driver"`
		Path         string `yaml:"path"`
		DSN          string `yaml:"dsn"`
		MaxOpenConns int    `yaml:"max_open_conns"`
	} `yaml:"database"`

	Redis struct {
		Address         string `yaml:"address"`
		Password        string `yaml:"password"`
		DB              int    `yaml:"db"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	} `yaml:"redis"`

	Scheduling struct {
		Timezone     string `yaml:"timezone"`
		DefaultWeeks int    `yaml:"default_weeks"`
	} `yaml:"scheduling"`

	Booking struct {
		DuplicateWindowDays       int `yaml:"duplicate_window_days"`
		TransactionTimeoutSeconds int `yaml:"transaction_timeout_seconds"`
		Retry                     struct {
			MaxAttempts int     `yaml:"max_attempts"`
			BaseDelayMS int     `yaml:"base_delay_ms"`
			Multiplier  float64 `yaml:"multiplier"`
		} `yaml:"retry"`
	} `yaml:"booking"`

	Sweeper struct {
		IntervalMinutes int  `yaml:"interval_minutes"`
		RunOnStart      bool `yaml:"run_on_start"`
	} `yaml:"sweeper"`

	API struct {
		Port           int     `yaml:"port"`
		RateLimitRPS   float64 `yaml:"rate_limit_rps"`
		RateLimitBurst int     `yaml:"rate_limit_burst"`
	} `yaml:"api"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
		GRPCHealthPort    int  `yaml:"grpc_health_port"`
	} `yaml:"monitoring"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		IntervalHours int    `yaml:"interval_hours"`
		Path          string `yaml:"path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite3"
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/scheduler.db"
	}
	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Scheduling.Timezone == "" {
		c.Scheduling.Timezone = "UTC"
	}
	if c.Scheduling.DefaultWeeks <= 0 {
		c.Scheduling.DefaultWeeks = 2
	}
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Backup.Path == "" {
		c.Backup.Path = "backups"
	}
}

// Validate checks values that defaults cannot fix.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite3":
	case "pgx":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for the pgx driver")
		}
	default:
		return fmt.Errorf("database.driver must be sqlite3 or pgx, got %q", c.Database.Driver)
	}
	if _, err := time.LoadLocation(c.Scheduling.Timezone); err != nil {
		return fmt.Errorf("scheduling.timezone: %w", err)
	}
	if _, err := zerolog.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if c.Booking.Retry.Multiplier != 0 && c.Booking.Retry.Multiplier < 1 {
		return fmt.Errorf("booking.retry.multiplier must be at least 1")
	}
	if c.API.RateLimitRPS < 0 || c.API.RateLimitBurst < 0 {
		return fmt.Errorf("api rate limits must not be negative")
	}
	return nil
}

func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Scheduling.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) DuplicateWindow() time.Duration {
	if c.Booking.DuplicateWindowDays <= 0 {
		return 14 * 24 * time.Hour
	}
	return time.Duration(c.Booking.DuplicateWindowDays) * 24 * time.Hour
}

func (c *Config) TransactionTimeout() time.Duration {
	if c.Booking.TransactionTimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.Booking.TransactionTimeoutSeconds) * time.Second
}

// RetryPolicy returns the booking retry policy, filling unset fields from the defaults.
func (c *Config) RetryPolicy() retry.Policy {
	p := retry.DefaultPolicy()
	if c.Booking.Retry.MaxAttempts > 0 {
		p.MaxAttempts = c.Booking.Retry.MaxAttempts
	}
	if c.Booking.Retry.BaseDelayMS > 0 {
		p.BaseDelay = time.Duration(c.Booking.Retry.BaseDelayMS) * time.Millisecond
	}
	if c.Booking.Retry.Multiplier >= 1 {
		p.Multiplier = c.Booking.Retry.Multiplier
	}
	return p
}

func (c *Config) SweepInterval() time.Duration {
	if c.Sweeper.IntervalMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(c.Sweeper.IntervalMinutes) * time.Minute
}

func (c *Config) CacheTTL() time.Duration {
	if c.Redis.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Redis.CacheTTLSeconds) * time.Second
}

func (c *Config) BackupInterval() time.Duration {
	if c.Backup.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Backup.IntervalHours) * time.Hour
}

// LogLevel returns the configured level, info if it cannot be parsed.
func (c *Config) LogLevel() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.Logging.Level)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}
