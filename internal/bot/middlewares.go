package bot

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/worktime-bot/internal/bot/handlers"
	errors "github.com/Proton-105/worktime-bot/internal/errors"
	"github.com/Proton-105/worktime-bot/internal/i18n"
	"github.com/Proton-105/worktime-bot/pkg/logger"
)

// TranslatorFunc picks the catalog for the sender of an update.
type TranslatorFunc func(c telebot.Context) i18n.Translator

// RecoveryMiddleware catches panics, reports them via the centralized handler, and notifies the user.
func RecoveryMiddleware(log *slog.Logger, errHandler *errors.Handler, translate TranslatorFunc) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("panic recovered in handler", slog.Any("panic", r), slog.String("stack", string(debug.Stack())))

					userMsg := errors.KeyGeneric
					if errHandler != nil {
						userMsg = errHandler.Handle(handlers.RequestContext(c), translate(c), fmt.Errorf("panic recovered: %v", r))
					}

					if sendErr := c.Send(userMsg); sendErr != nil {
						log.Error("failed to notify user about panic", slog.Any("error", sendErr))
					}

					err = nil
				}
			}()

			return next(c)
		}
	}
}

// ContextMiddleware attaches a request context carrying a correlation id to the update.
// The id is derived from the Telegram update id so that retried deliveries share it.
func ContextMiddleware() handlers.Middleware {
	return func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) error {
			id := ""
			if updateID := c.Update().ID; updateID != 0 {
				id = "upd-" + strconv.Itoa(updateID)
			}
			c.Set(handlers.ContextKey, logger.WithCorrelationID(context.Background(), id))
			return next(c)
		}
	}
}

// ErrorHandlingMiddleware centralizes error reporting and user messaging for handler failures.
func ErrorHandlingMiddleware(errHandler *errors.Handler, translate TranslatorFunc) handlers.Middleware {
	return func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			userMsg := errHandler.Handle(handlers.RequestContext(c), translate(c), err)
			if userMsg != "" {
				_ = c.Send(userMsg)
			}

			return nil
		}
	}
}

// LoggingMiddleware logs basic telemetry about incoming updates.
func LoggingMiddleware(log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) error {
			start := time.Now()
			userID := int64(0)
			if c.Sender() != nil {
				userID = c.Sender().ID
			}

			action := c.Text()
			if cb := c.Callback(); cb != nil {
				action = cb.Data
			}
			if name, ok := handlers.ParseCommand(action); ok {
				action = name
			}

			correlationID := logger.CorrelationIDFromContext(handlers.RequestContext(c))

			log.Debug("handling update",
				slog.Int64("user_id", userID),
				slog.String("action", action),
				slog.String("correlation_id", correlationID),
			)
			err := next(c)
			log.Info("handled update",
				slog.Int64("user_id", userID),
				slog.String("action", action),
				slog.String("correlation_id", correlationID),
				slog.Duration("duration", time.Since(start)),
				slog.Any("error", err),
			)

			return err
		}
	}
}
