// Package app assembles the bot, the HTTP probes and the background jobs from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	goredis "github.com/redis/go-redis/v9"

	apperrors "github.com/Proton-105/worktime-bot/internal/errors"
	"github.com/Proton-105/worktime-bot/internal/i18n"
	"github.com/Proton-105/worktime-bot/internal/lifecycle"
	"github.com/Proton-105/worktime-bot/internal/lock"
	"github.com/Proton-105/worktime-bot/internal/report"
	"github.com/Proton-105/worktime-bot/internal/repository"
	"github.com/Proton-105/worktime-bot/internal/session"
	"github.com/Proton-105/worktime-bot/internal/state"
	"github.com/Proton-105/worktime-bot/internal/user"
	"github.com/Proton-105/worktime-bot/internal/usercache"
	"github.com/Proton-105/worktime-bot/pkg/config"
	"github.com/Proton-105/worktime-bot/pkg/logger"
	"github.com/Proton-105/worktime-bot/pkg/metrics"
	pkgredis "github.com/Proton-105/worktime-bot/pkg/redis"
)

const userCacheTTL = time.Hour

// ErrJobsUnavailable is returned when background jobs are requested without Redis.
var ErrJobsUnavailable = errors.New("background jobs need redis and jobs.enabled")

// App owns the long-lived dependencies shared by the commands.
type App struct {
	cfg *config.Config
	log *logger.Logger
	loc *time.Location

	store  repository.Store
	redis  *goredis.Client
	locker lock.Locker
	fsm    state.StateMachine
	i18n   *i18n.Manager

	users   *user.Service
	tracker *session.Tracker
	reports *report.Aggregator

	shutdown *lifecycle.Shutdown
}

// Options lets tests replace infrastructure that would otherwise be dialled.
type Options struct {
	// Store overrides the configured storage driver.
	Store repository.Store
	// Redis overrides the client built from cfg.Redis when Redis is enabled.
	Redis *goredis.Client
}

// New connects storage and, when enabled, Redis, then builds the domain services.
// Every opened resource is released by Close.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger, opts Options) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}

	catalog, err := i18n.Load(cfg.App.DefaultLanguage)
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:      cfg,
		log:      log,
		loc:      loc,
		i18n:     catalog,
		shutdown: lifecycle.NewShutdown(log.Logger),
	}

	store := opts.Store
	if store == nil {
		store, err = OpenStore(ctx, cfg.Storage, log.Logger)
		if err != nil {
			return nil, err
		}
	}
	a.store = repository.Guard(store, apperrors.BreakerSettings{
		OnChange: func(from, to apperrors.BreakerState) {
			log.Warn("storage circuit changed", slog.String("from", from.String()), slog.String("to", to.String()))
			metrics.SetStoreCircuitOpen(to == apperrors.BreakerOpen)
		},
	})
	a.shutdown.Register("store", a.store.Close)

	var cache user.Cache
	fsmStorage := state.Storage(state.NewMemoryStorage(cfg.Bot.StateTTL))
	a.locker = lock.NewMemoryLocker(0)

	if cfg.Redis.Enabled {
		a.redis = opts.Redis
		if a.redis == nil {
			a.redis, err = pkgredis.New(ctx, redisConfig(cfg.Redis))
			if err != nil {
				_ = a.Close(ctx)
				return nil, err
			}
		}
		a.shutdown.Add(lifecycle.CloserHook("redis", a.redis.Close))

		a.locker = lock.NewRedisLocker(a.redis, log.Logger, lock.RedisOptions{})
		fsmStorage = state.NewRedisStorage(a.redis, log.Logger, cfg.Bot.StateTTL)
		cache = usercache.NewCache(a.redis, userCacheTTL)
	}

	a.fsm = state.NewStateMachine(fsmStorage, log.Logger, a.locker)

	a.users = user.NewService(a.store.Users(), cache, log.Logger)
	a.tracker = session.NewTracker(a.store.Logs(), a.store.Days(), a.locker, loc, log.Logger)
	a.reports = report.NewAggregator(a.store.Days(), loc, report.Options{
		Ordering: report.Ordering(cfg.Report.Ordering),
		SameDay:  report.SameDayPolicy(cfg.Report.SameDay),
	})

	log.Info("application initialised",
		slog.String("env", cfg.AppEnv),
		slog.String("storage", cfg.Storage.Driver),
		slog.Bool("redis", cfg.Redis.Enabled),
		slog.String("timezone", loc.String()),
	)

	return a, nil
}

// Tracker exposes the session tracker.
func (a *App) Tracker() *session.Tracker { return a.tracker }

// ApplyConfig applies the settings that may change while running.
func (a *App) ApplyConfig(cfg *config.Config) {
	if err := a.log.SetLevel(cfg.Logger.Level); err != nil {
		a.log.Warn("config reload: invalid log level", slog.Any("error", err))
		return
	}
	a.log.Info("config reloaded", slog.String("log_level", cfg.Logger.Level))
}

// Close runs the registered shutdown hooks within ctx.
func (a *App) Close(ctx context.Context) error {
	return a.shutdown.Execute(ctx)
}

func (a *App) jobsEnabled() bool {
	return a.cfg.Jobs.Enabled && a.redis != nil
}

func (a *App) asynqRedis() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
		PoolSize: a.cfg.Redis.PoolSize,
	}
}

func redisConfig(cfg config.RedisConfig) pkgredis.Config {
	return pkgredis.Config{
		Addr:            cfg.Addr,
		Password:        cfg.Password,
		DB:              cfg.DB,
		PoolSize:        cfg.PoolSize,
		MinIdleConns:    cfg.MinIdleConns,
		PoolTimeout:     cfg.PoolTimeout,
		IdleTimeout:     cfg.IdleTimeout,
		MaxRetries:      cfg.MaxRetries,
		MinRetryBackoff: cfg.MinRetryBackoff,
		MaxRetryBackoff: cfg.MaxRetryBackoff,
	}
}
