package errors

import (
	"context"
	"log/slog"

	"github.com/getsentry/sentry-go"

	"github.com/Proton-105/worktime-bot/internal/i18n"
	"github.com/Proton-105/worktime-bot/pkg/logger"
	"github.com/Proton-105/worktime-bot/pkg/metrics"
)

// Handler logs, counts and reports errors and returns the reply text for the user.
type Handler struct {
	log           *slog.Logger
	sentryEnabled bool
}

func NewHandler(log *slog.Logger, sentryEnabled bool) *Handler {
	if log == nil {
		log = slog.Default()
	}

	return &Handler{
		log:           log,
		sentryEnabled: sentryEnabled,
	}
}

// Handle classifies err and returns the translated reply. Expected outcomes are logged at
// info level; high severity errors at error level and, when enabled, sent to Sentry.
func (h *Handler) Handle(ctx context.Context, tr i18n.Translator, err error) string {
	if err == nil {
		return ""
	}

	if ctx == nil {
		ctx = context.Background()
	}

	appErr := Classify(err)

	attrs := []any{
		slog.String("code", appErr.Code),
		slog.String("message", appErr.Message),
		slog.String("severity", string(appErr.Severity)),
	}
	if correlationID := logger.CorrelationIDFromContext(ctx); correlationID != "" {
		attrs = append(attrs, slog.String("correlation_id", correlationID))
	}

	switch appErr.Severity {
	case SeverityLow:
		h.log.Info("command rejected", attrs...)
	case SeverityMedium:
		h.log.Warn("command failed", attrs...)
	default:
		h.log.Error("application error", attrs...)
		if h.sentryEnabled {
			h.sendToSentry(ctx, appErr)
		}
	}

	metrics.RecordError(appErr.Code, string(appErr.Severity))

	if tr == nil {
		return appErr.MessageKey
	}
	if len(appErr.Args) > 0 {
		return tr.Tf(appErr.MessageKey, appErr.Args...)
	}
	return tr.T(appErr.MessageKey)
}

func (h *Handler) sendToSentry(ctx context.Context, appErr *AppError) {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}

	hub.WithScope(func(scope *sentry.Scope) {
		if appErr.Code != "" {
			scope.SetTag("code", appErr.Code)
		}
		if appErr.Severity != "" {
			scope.SetTag("severity", string(appErr.Severity))
		}
		if correlationID := logger.CorrelationIDFromContext(ctx); correlationID != "" {
			scope.SetTag("correlation_id", correlationID)
		}

		var captured error = appErr
		if cause := appErr.Unwrap(); cause != nil {
			captured = cause
		}
		hub.CaptureException(captured)
	})
}
