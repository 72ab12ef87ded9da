package middleware

import (
	"errors"
	"log/slog"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/worktime-bot/internal/bot/handlers"
	"github.com/Proton-105/worktime-bot/internal/idempotency"
	"github.com/Proton-105/worktime-bot/pkg/metrics"
)

// Idempotency ensures handlers execute at most once per Telegram update id. Redelivered
// updates are dropped silently.
func Idempotency(manager idempotency.Manager, ttl time.Duration, log *slog.Logger) handlers.Middleware {
	if manager == nil {
		return func(next handlers.Handler) handlers.Handler {
			return next
		}
	}
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) error {
			updateID := c.Update().ID
			if updateID == 0 {
				return next(c)
			}
			key := idempotency.UpdateKey(updateID)

			result, err := manager.Execute(handlers.RequestContext(c), key, ttl, func() error {
				return next(c)
			})
			if err != nil {
				if errors.Is(err, idempotency.ErrRequestInProgress) {
					metrics.RecordDuplicateUpdate()
					log.Info("update already in progress", slog.Int("update_id", updateID))
					return nil
				}
				return err
			}

			if result.FromCache {
				metrics.RecordDuplicateUpdate()
				log.Info("duplicate update dropped", slog.Int("update_id", updateID))
			}

			return nil
		}
	}
}
