package config

import (
	"time"
)

// Config holds runtime configuration for the work-time bot.
type Config struct {
	AppEnv    string          `mapstructure:"-"`
	App       AppConfig       `mapstructure:"app"`
	Bot       BotConfig       `mapstructure:"bot"`
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Report    ReportConfig    `mapstructure:"report"`
	Jobs      JobsConfig      `mapstructure:"jobs"`
}

type AppConfig struct {
	Timezone        string `mapstructure:"timezone" validate:"required"`
	DefaultLanguage string `mapstructure:"default_language" validate:"required,oneof=fi en"`
}

type BotConfig struct {
	Token       string        `mapstructure:"token" validate:"required"`
	Mode        string        `mapstructure:"mode" validate:"oneof=polling webhook"`
	PollTimeout time.Duration `mapstructure:"poll_timeout" validate:"min=0"`
	// DedupTTL is how long processed update ids are remembered.
	DedupTTL time.Duration `mapstructure:"dedup_ttl"`
	// StateTTL bounds how long an unfinished dialog is kept.
	StateTTL time.Duration `mapstructure:"state_ttl"`
	Webhook  WebhookConfig `mapstructure:"webhook"`
}

type WebhookConfig struct {
	Listen    string `mapstructure:"listen"`
	PublicURL string `mapstructure:"public_url" validate:"required_if=Enabled true"`
	Enabled   bool   `mapstructure:"-"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"min=1,max=65535"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=0"`
}

type StorageConfig struct {
	Driver   string         `mapstructure:"driver" validate:"oneof=mongo postgres sqlite memory"`
	Timeout  time.Duration  `mapstructure:"timeout" validate:"min=0"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
}

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type PostgresConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"min=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"min=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type RedisConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Addr            string        `mapstructure:"addr"`
	Password        string        `mapstructure:"password"`
	DB              int           `mapstructure:"db" validate:"min=0"`
	PoolSize        int           `mapstructure:"pool_size" validate:"min=0"`
	MinIdleConns    int           `mapstructure:"min_idle_conns" validate:"min=0"`
	PoolTimeout     time.Duration `mapstructure:"pool_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	MaxRetries      int           `mapstructure:"max_retries"`
	MinRetryBackoff time.Duration `mapstructure:"min_retry_backoff"`
	MaxRetryBackoff time.Duration `mapstructure:"max_retry_backoff"`
}

type LoggerConfig struct {
	Level  string     `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string     `mapstructure:"format" validate:"oneof=json text"`
	File   FileConfig `mapstructure:"file"`
}

type FileConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"min=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"min=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"min=0"`
	Compress   bool   `mapstructure:"compress"`
}

type SentryConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	DSN              string  `mapstructure:"dsn"`
	Environment      string  `mapstructure:"environment"`
	TracesSampleRate float64 `mapstructure:"traces_sample_rate" validate:"min=0,max=1"`
}

type RateLimitConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Requests  int           `mapstructure:"requests" validate:"min=1"`
	Window    time.Duration `mapstructure:"window" validate:"min=1s"`
	Whitelist []int64       `mapstructure:"whitelist"`
}

type ReportConfig struct {
	Ordering string `mapstructure:"ordering" validate:"oneof=chronological first_seen"`
	SameDay  string `mapstructure:"same_day" validate:"oneof=sum first"`
}

type JobsConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	SweepCron   string `mapstructure:"sweep_cron" validate:"required"`
	Concurrency int    `mapstructure:"concurrency" validate:"min=1"`
	Queue       string `mapstructure:"queue" validate:"required"`
}

// Location resolves the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.App.Timezone)
}
