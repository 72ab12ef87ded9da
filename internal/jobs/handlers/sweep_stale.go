package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/Proton-105/worktime-bot/internal/jobs"
)

// Sweeper deletes automatic sessions left open past their day.
type Sweeper interface {
	SweepStale(ctx context.Context, now time.Time) (int, error)
}

type SweepStaleHandler struct {
	sweeper Sweeper
	log     *slog.Logger
	now     func() time.Time
}

func NewSweepStaleHandler(sweeper Sweeper, log *slog.Logger) *SweepStaleHandler {
	return &SweepStaleHandler{sweeper: sweeper, log: log, now: time.Now}
}

func (h *SweepStaleHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	payload, err := jobs.ParseSweepStalePayload(t)
	if err != nil {
		if h.log != nil {
			h.log.ErrorContext(ctx, "sweep stale: failed to decode payload", slog.String("task_type", t.Type()), slog.String("error", err.Error()))
		}
		// A malformed payload will never decode, so retrying is pointless.
		return asynq.SkipRetry
	}

	now := payload.RequestedAt
	if now.IsZero() {
		now = h.now()
	}

	removed, err := h.sweeper.SweepStale(ctx, now)
	if err != nil {
		return err
	}

	if h.log != nil {
		h.log.InfoContext(ctx, "sweep stale: done",
			slog.String("task_type", t.Type()),
			slog.Int("removed", removed),
			slog.Time("as_of", now),
		)
	}

	return nil
}
