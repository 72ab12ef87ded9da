package ratelimit

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var fallbackChecksTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "ratelimit_fallback_checks_total",
	Help: "Rate-limit checks answered by the in-memory fallback after a primary failure.",
})

// AdaptiveLimiter asks the primary limiter and, when it fails, answers from the fallback with
// half the limit.
type AdaptiveLimiter struct {
	primary  Limiter
	fallback Limiter
	log      *slog.Logger
}

func NewAdaptiveLimiter(primary, fallback Limiter, log *slog.Logger) *AdaptiveLimiter {
	if log == nil {
		log = slog.Default()
	}
	return &AdaptiveLimiter{primary: primary, fallback: fallback, log: log}
}

func (a *AdaptiveLimiter) Allow(ctx context.Context, key string, rule Rule) (Decision, error) {
	decision, err := a.primary.Allow(ctx, key, rule)
	if err == nil {
		return decision, nil
	}

	fallbackChecksTotal.Inc()
	a.log.Warn("primary rate limiter failed, using in-memory fallback", slog.String("key", key), slog.Any("error", err))

	rule.Limit /= 2
	if rule.Limit < 1 {
		rule.Limit = 1
	}
	return a.fallback.Allow(ctx, key, rule)
}
