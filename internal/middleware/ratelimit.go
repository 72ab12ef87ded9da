package middleware

import (
	"log/slog"
	"strconv"

	"gopkg.in/telebot.v3"

	"github.com/Proton-105/worktime-bot/internal/bot/handlers"
	apperrors "github.com/Proton-105/worktime-bot/internal/errors"
	"github.com/Proton-105/worktime-bot/internal/i18n"
	"github.com/Proton-105/worktime-bot/internal/ratelimit"
	"github.com/Proton-105/worktime-bot/pkg/metrics"
)

// RateLimitMiddleware enforces per-user rate limits for incoming Telegram updates.
type RateLimitMiddleware struct {
	limiter ratelimit.Limiter
	rules   *ratelimit.Rules
	i18n    *i18n.Manager
	log     *slog.Logger
}

// NewRateLimitMiddleware constructs a rate-limit middleware component.
func NewRateLimitMiddleware(limiter ratelimit.Limiter, rules *ratelimit.Rules, catalog *i18n.Manager, log *slog.Logger) *RateLimitMiddleware {
	if log == nil {
		log = slog.Default()
	}

	return &RateLimitMiddleware{
		limiter: limiter,
		rules:   rules,
		i18n:    catalog,
		log:     log,
	}
}

// Handle returns a telebot middleware that enforces per-user rate limits. Limiter failures
// let the update through.
func (m *RateLimitMiddleware) Handle(next telebot.HandlerFunc) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		if m.limiter == nil || !m.rules.Enabled() {
			return next(c)
		}

		sender := c.Sender()
		if sender == nil {
			return next(c)
		}

		userID := sender.ID
		if m.rules.IsWhitelisted(userID) {
			return next(c)
		}

		key := "user:" + strconv.FormatInt(userID, 10)
		decision, err := m.limiter.Allow(handlers.RequestContext(c), key, m.rules.PerUser())
		if err != nil {
			m.log.Warn("rate limiter error", slog.Int64("user_id", userID), slog.Any("error", err))
			return next(c)
		}

		metrics.RecordRateLimit(decision.Allowed)
		if decision.Allowed {
			return next(c)
		}

		seconds := decision.RetryAfterSeconds()
		m.log.Warn("rate limit exceeded", slog.Int64("user_id", userID), slog.Int("retry_after", seconds))

		if c.Callback() != nil {
			_ = c.Respond()
		}
		limited := apperrors.NewRateLimitError(seconds)
		return c.Send(m.i18n.Translator(sender.LanguageCode).Tf(limited.MessageKey, limited.Args...))
	}
}
