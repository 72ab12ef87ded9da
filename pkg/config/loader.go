// Package config provides configuration loading and validation utilities.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/fsnotify/fsnotify"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Options locates the configuration file.
type Options struct {
	// Dir holds <env>.yaml files. Defaults to ./configs.
	Dir string
	// Env selects the file. Defaults to APP_ENV or development.
	Env string
}

// Load reads configuration from YAML files and environment variables, validates it, and returns the resulting Config.
func Load() (*Config, *viper.Viper, error) {
	return LoadWith(Options{})
}

// LoadWith is Load with an explicit file location.
func LoadWith(opts Options) (*Config, *viper.Viper, error) {
	// Missing env files are fine, the environment may be set by the supervisor.
	_ = godotenv.Load(".env.local", ".env")

	env := opts.Env
	if env == "" {
		env = os.Getenv("APP_ENV")
	}
	if env == "" {
		env = "development"
	}
	dir := opts.Dir
	if dir == "" {
		dir = "./configs"
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(filepath.Join(dir, env+".yaml"))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, nil, err
	}
	cfg.AppEnv = env

	return cfg, v, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Bot.Webhook.Enabled = cfg.Bot.Mode == "webhook"

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	if err := validateStorage(cfg.Storage); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	if _, err := cfg.Location(); err != nil {
		return nil, fmt.Errorf("validate config: timezone: %w", err)
	}

	return &cfg, nil
}

func validateStorage(cfg StorageConfig) error {
	switch cfg.Driver {
	case "mongo":
		if cfg.Mongo.URI == "" || cfg.Mongo.Database == "" {
			return errors.New("storage.mongo.uri and storage.mongo.database are required")
		}
	case "postgres":
		if cfg.Postgres.DSN == "" {
			return errors.New("storage.postgres.dsn is required")
		}
	case "sqlite":
		if cfg.SQLite.Path == "" {
			return errors.New("storage.sqlite.path is required")
		}
	}
	return nil
}

// Watch re-reads the file on every change and passes the validated result to onChange.
// Invalid revisions are reported through onError and otherwise ignored.
func Watch(v *viper.Viper, onChange func(*Config), onError func(error)) {
	v.OnConfigChange(func(event fsnotify.Event) {
		if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
			return
		}
		cfg, err := decode(v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		if onChange != nil {
			onChange(cfg)
		}
	})
	v.WatchConfig()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.timezone", "Europe/Helsinki")
	v.SetDefault("app.default_language", "fi")

	v.SetDefault("bot.token", "")
	v.SetDefault("bot.mode", "polling")
	v.SetDefault("bot.poll_timeout", 10*time.Second)
	v.SetDefault("bot.dedup_ttl", 24*time.Hour)
	v.SetDefault("bot.state_ttl", 30*time.Minute)
	v.SetDefault("bot.webhook.listen", ":8443")
	v.SetDefault("bot.webhook.public_url", "")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)

	v.SetDefault("storage.driver", "mongo")
	v.SetDefault("storage.timeout", 5*time.Second)
	v.SetDefault("storage.mongo.uri", "")
	v.SetDefault("storage.mongo.database", "worktime")
	v.SetDefault("storage.postgres.dsn", "")
	v.SetDefault("storage.postgres.max_open_conns", 10)
	v.SetDefault("storage.postgres.max_idle_conns", 5)
	v.SetDefault("storage.postgres.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("storage.sqlite.path", "worktime.db")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.pool_timeout", 4*time.Second)
	v.SetDefault("redis.idle_timeout", 5*time.Minute)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.min_retry_backoff", 8*time.Millisecond)
	v.SetDefault("redis.max_retry_backoff", 512*time.Millisecond)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.file.enabled", false)
	v.SetDefault("logger.file.path", "logs/worktime-bot.log")
	v.SetDefault("logger.file.max_size_mb", 50)
	v.SetDefault("logger.file.max_backups", 5)
	v.SetDefault("logger.file.max_age_days", 28)
	v.SetDefault("logger.file.compress", true)

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "")
	v.SetDefault("sentry.traces_sample_rate", 0.0)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 20)
	v.SetDefault("rate_limit.window", time.Minute)
	v.SetDefault("rate_limit.whitelist", []int64{})

	v.SetDefault("report.ordering", "chronological")
	v.SetDefault("report.same_day", "sum")

	v.SetDefault("jobs.enabled", false)
	v.SetDefault("jobs.sweep_cron", "5 0 * * *")
	v.SetDefault("jobs.concurrency", 2)
	v.SetDefault("jobs.queue", "default")
}
