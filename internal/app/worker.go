package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/Proton-105/worktime-bot/internal/jobs"
	jobhandlers "github.com/Proton-105/worktime-bot/internal/jobs/handlers"
)

// SweepResult describes what Sweep did.
type SweepResult struct {
	// TaskID is set when the sweep was enqueued for the worker.
	TaskID string
	// Removed is the number of sessions deleted by an inline sweep.
	Removed int
}

// RunWorker processes queued jobs until ctx is cancelled.
func (a *App) RunWorker(ctx context.Context) error {
	if !a.jobsEnabled() {
		return ErrJobsUnavailable
	}

	worker := jobs.NewWorker(a.asynqRedis(), jobs.WorkerOptions{
		Queue:       a.cfg.Jobs.Queue,
		Concurrency: a.cfg.Jobs.Concurrency,
	}, a.log.Logger)
	worker.Handle(jobs.TaskTypeSweepStale, jobhandlers.NewSweepStaleHandler(a.tracker, a.log.Logger))

	if err := worker.Start(); err != nil {
		return err
	}

	<-ctx.Done()
	worker.Shutdown()
	return nil
}

// Sweep removes stale automatic sessions: through the job queue when jobs are enabled,
// otherwise inline.
func (a *App) Sweep(ctx context.Context, now time.Time) (SweepResult, error) {
	if a.jobsEnabled() {
		manager := jobs.NewManager(a.asynqRedis(), a.log.Logger)
		defer func() {
			if err := manager.Close(); err != nil {
				a.log.Warn("close job client", slog.Any("error", err))
			}
		}()

		id, err := manager.EnqueueSweep(ctx, a.cfg.Jobs.Queue)
		return SweepResult{TaskID: id}, err
	}

	removed, err := a.tracker.SweepStale(ctx, now)
	return SweepResult{Removed: removed}, err
}
