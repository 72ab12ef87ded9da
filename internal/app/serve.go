package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Proton-105/worktime-bot/internal/bot"
	"github.com/Proton-105/worktime-bot/internal/bot/handlers"
	"github.com/Proton-105/worktime-bot/internal/bot/keyboard"
	"github.com/Proton-105/worktime-bot/internal/health"
	"github.com/Proton-105/worktime-bot/internal/idempotency"
	"github.com/Proton-105/worktime-bot/internal/jobs"
	"github.com/Proton-105/worktime-bot/internal/lifecycle"
	"github.com/Proton-105/worktime-bot/internal/middleware"
	"github.com/Proton-105/worktime-bot/internal/ratelimit"
	"github.com/Proton-105/worktime-bot/pkg/graceful"
	"github.com/Proton-105/worktime-bot/pkg/metrics"
)

const (
	metricsInterval        = 30 * time.Second
	limiterCleanupInterval = 5 * time.Minute
	limiterBucketMaxAge    = 30 * time.Minute
	idempotencySweepEvery  = time.Hour
	httpReadHeaderTimeout  = 5 * time.Second
)

// Deps returns the dependencies of the bot handlers.
func (a *App) Deps() handlers.Deps {
	return handlers.Deps{
		Users:    a.users,
		Sessions: a.tracker,
		Reports:  a.reports,
		FSM:      a.fsm,
		I18n:     a.i18n,
		Keyboard: keyboard.NewBuilder(a.log.Logger),
		Log:      a.log.Logger,
	}
}

// Serve runs the bot, the probe/metrics HTTP server, the metric collector and, when jobs
// are enabled, the sweep scheduler until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	log := a.log.Logger

	memLimiter := ratelimit.NewMemoryLimiter(nil)
	var limiter ratelimit.Limiter = memLimiter
	var idem idempotency.Manager
	if a.redis != nil {
		limiter = ratelimit.NewAdaptiveLimiter(ratelimit.NewRedisLimiter(a.redis, nil), memLimiter, log)
		idem = idempotency.NewManager(idempotency.NewRedisStore(a.redis, log), log)
	}
	rateLimitMw := middleware.NewRateLimitMiddleware(limiter, ratelimit.NewRules(a.cfg.RateLimit), a.i18n, log)

	b, err := bot.New(bot.Options{
		Token:            a.cfg.Bot.Token,
		Mode:             a.cfg.Bot.Mode,
		PollTimeout:      a.cfg.Bot.PollTimeout,
		WebhookListen:    a.cfg.Bot.Webhook.Listen,
		WebhookPublicURL: a.cfg.Bot.Webhook.PublicURL,
		DedupTTL:         a.cfg.Bot.DedupTTL,
		SentryEnabled:    a.cfg.Sentry.Enabled,
	}, a.Deps(), idem, rateLimitMw, log)
	if err != nil {
		return err
	}

	checker := health.NewChecker(log)
	checker.AddCheck("store", a.store)
	checker.AddCheck("telegram", health.NewTelegramChecker(b.Telebot()))
	if a.redis != nil {
		checker.AddCheck("redis", health.NewRedisChecker(a.redis))
	}
	probes := lifecycle.NewProbes(log, checker)

	server := graceful.NewServer(graceful.Config{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		ReadHeaderTimeout: httpReadHeaderTimeout,
		ShutdownTimeout:   a.cfg.Server.ShutdownTimeout,
	}, graceful.NewMux(probes, middleware.New(log)), log)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go metrics.NewCollector(a.store.Logs(), a.fsm, metricsInterval, log).Run(runCtx)
	go ratelimit.NewCleaner(memLimiter, log, limiterCleanupInterval, limiterBucketMaxAge).Run(runCtx)
	if a.redis != nil {
		go idempotency.NewCleaner(a.redis, log, idempotencySweepEvery).Run(runCtx)
	}

	if a.jobsEnabled() {
		scheduler := jobs.NewScheduler(a.asynqRedis(), jobs.ScheduleOptions{
			SweepCron: a.cfg.Jobs.SweepCron,
			Queue:     a.cfg.Jobs.Queue,
			Location:  a.loc,
		}, log)
		if err := scheduler.RegisterTasks(); err != nil {
			return fmt.Errorf("register scheduled tasks: %w", err)
		}
		scheduler.Run()
		a.shutdown.Register("scheduler", func(context.Context) error {
			scheduler.Shutdown()
			return nil
		})
	} else if a.cfg.Jobs.Enabled {
		log.Warn("jobs enabled without redis, stale session sweep is not scheduled")
	}

	httpDone := make(chan error, 1)
	go func() { httpDone <- server.Run(runCtx) }()
	go b.Start()

	select {
	case <-ctx.Done():
		probes.Drain()
		b.Stop()
		cancel()
		return <-httpDone
	case err := <-httpDone:
		log.Error("http server stopped unexpectedly", slog.Any("error", err))
		b.Stop()
		return err
	}
}
