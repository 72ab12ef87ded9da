package app

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/Proton-105/worktime-bot/pkg/config"
)

const sentryFlushTimeout = 2 * time.Second

// InitSentry configures the global Sentry hub. It must run before the logger is built so
// that the Sentry log handler binds to the configured client. The returned flush is a
// no-op when Sentry is disabled.
func InitSentry(cfg config.SentryConfig, appEnv, release string) (func(), error) {
	if !cfg.Enabled {
		return func() {}, nil
	}

	env := cfg.Environment
	if env == "" {
		env = appEnv
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      env,
		Release:          release,
		EnableTracing:    cfg.TracesSampleRate > 0,
		TracesSampleRate: cfg.TracesSampleRate,
		AttachStacktrace: true,
	}); err != nil {
		return nil, fmt.Errorf("init sentry: %w", err)
	}

	return func() { sentry.Flush(sentryFlushTimeout) }, nil
}
