package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

type Scheduler interface {
	RegisterTasks() error
	Run()
	Shutdown()
}

// ScheduleOptions controls the periodic tasks registered by the scheduler.
type ScheduleOptions struct {
	SweepCron string
	Queue     string
	Location  *time.Location
}

type scheduler struct {
	asynqScheduler *asynq.Scheduler
	opts           ScheduleOptions
	log            *slog.Logger
}

func NewScheduler(redisOpt asynq.RedisConnOpt, opts ScheduleOptions, log *slog.Logger) Scheduler {
	var schedOpts *asynq.SchedulerOpts
	if opts.Location != nil {
		schedOpts = &asynq.SchedulerOpts{Location: opts.Location}
	}

	return &scheduler{
		asynqScheduler: asynq.NewScheduler(redisOpt, schedOpts),
		opts:           opts,
		log:            log,
	}
}

func (s *scheduler) RegisterTasks() error {
	// The payload is left empty so every run uses the worker clock.
	task, err := NewSweepStaleTask(time.Time{}, s.opts.Queue)
	if err != nil {
		return err
	}

	entryID, err := s.asynqScheduler.Register(s.opts.SweepCron, task)
	if err != nil {
		return err
	}

	if s.log != nil {
		s.log.InfoContext(context.Background(), "scheduler: registered stale session sweep",
			slog.String("cron", s.opts.SweepCron),
			slog.String("entry_id", entryID),
		)
	}

	return nil
}

func (s *scheduler) Run() {
	if s.log != nil {
		s.log.InfoContext(context.Background(), "scheduler: starting")
	}

	go func() {
		if err := s.asynqScheduler.Run(); err != nil && s.log != nil {
			s.log.ErrorContext(context.Background(), "scheduler: run failed", "error", err)
		}
	}()
}

func (s *scheduler) Shutdown() {
	if s.log != nil {
		s.log.InfoContext(context.Background(), "scheduler: shutting down")
	}

	s.asynqScheduler.Shutdown()
}
