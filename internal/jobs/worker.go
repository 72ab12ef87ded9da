package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// WorkerOptions configures the task processor.
type WorkerOptions struct {
	// Queue is added to the standard queues at default priority when it is not one of them.
	Queue       string
	Concurrency int
}

// Worker processes queued tasks until Shutdown.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	log    *slog.Logger
}

func NewWorker(redisOpt asynq.RedisConnOpt, opts WorkerOptions, log *slog.Logger) *Worker {
	if log == nil {
		log = slog.Default()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}

	server := asynq.NewServer(redisOpt, asynq.Config{
		Queues:      queuesWith(opts.Queue),
		Concurrency: opts.Concurrency,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			log.ErrorContext(ctx, "task failed",
				slog.String("task_type", task.Type()),
				slog.Int("retried", retried),
				slog.Int("max_retry", maxRetry),
				slog.Any("error", err),
			)
		}),
	})

	w := &Worker{server: server, mux: asynq.NewServeMux(), log: log}
	w.mux.Use(w.logTask)
	return w
}

// Handle routes a task type to handler.
func (w *Worker) Handle(taskType string, handler asynq.Handler) {
	w.mux.Handle(taskType, handler)
}

// Start launches the processors and returns. Signal handling is left to the caller.
func (w *Worker) Start() error {
	w.log.Info("jobs worker starting")
	return w.server.Start(w.mux)
}

// Shutdown waits for running tasks and stops the processors.
func (w *Worker) Shutdown() {
	w.log.Info("jobs worker shutting down")
	w.server.Shutdown()
}

func (w *Worker) logTask(next asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
		start := time.Now()
		taskID, _ := asynq.GetTaskID(ctx)

		err := next.ProcessTask(ctx, task)
		if err == nil {
			w.log.InfoContext(ctx, "task processed",
				slog.String("task_type", task.Type()),
				slog.String("task_id", taskID),
				slog.Duration("duration", time.Since(start)),
			)
		}
		return err
	})
}

func queuesWith(extra string) map[string]int {
	queues := make(map[string]int, len(Queues)+1)
	for name, priority := range Queues {
		queues[name] = priority
	}
	if _, ok := queues[extra]; extra != "" && !ok {
		queues[extra] = Queues[QueueDefault]
	}
	return queues
}
