package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// Manager describes the minimal queue operations needed by the application.
type Manager interface {
	Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	EnqueueSweep(ctx context.Context, queue string) (string, error)
	Close() error
}

type manager struct {
	client *asynq.Client
	log    *slog.Logger
	now    func() time.Time
}

// NewManager builds a Manager backed by an asynq client.
func NewManager(redisOpt asynq.RedisConnOpt, log *slog.Logger) Manager {
	client := asynq.NewClient(redisOpt)

	return &manager{
		client: client,
		log:    log,
		now:    time.Now,
	}
}

func (m *manager) Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	return m.client.EnqueueContext(ctx, task, opts...)
}

// EnqueueSweep schedules an immediate stale-session sweep and returns the task id.
func (m *manager) EnqueueSweep(ctx context.Context, queue string) (string, error) {
	task, err := NewSweepStaleTask(m.now(), queue)
	if err != nil {
		return "", err
	}

	info, err := m.Enqueue(ctx, task)
	if err != nil {
		return "", fmt.Errorf("enqueue %s: %w", TaskTypeSweepStale, err)
	}

	if m.log != nil {
		m.log.InfoContext(ctx, "jobs: sweep enqueued", slog.String("task_id", info.ID), slog.String("queue", info.Queue))
	}

	return info.ID, nil
}

func (m *manager) Close() error {
	return m.client.Close()
}
