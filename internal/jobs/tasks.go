package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TaskTypeSweepStale = "session:sweep_stale"
)

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

// Queues is the priority map handed to the worker.
var Queues = map[string]int{
	QueueCritical: 6,
	QueueDefault:  3,
	QueueLow:      1,
}

// SweepStalePayload carries the moment the sweep was requested. A zero value
// means "use the worker clock".
type SweepStalePayload struct {
	RequestedAt time.Time `json:"requested_at,omitempty"`
}

func NewSweepStaleTask(requestedAt time.Time, queue string) (*asynq.Task, error) {
	payload, err := json.Marshal(SweepStalePayload{RequestedAt: requestedAt})
	if err != nil {
		return nil, err
	}
	if queue == "" {
		queue = QueueLow
	}

	return asynq.NewTask(TaskTypeSweepStale, payload,
		asynq.Queue(queue),
		asynq.MaxRetry(3),
		asynq.Timeout(5*time.Minute),
	), nil
}

func ParseSweepStalePayload(t *asynq.Task) (SweepStalePayload, error) {
	var payload SweepStalePayload
	if len(t.Payload()) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("decode %s payload: %w", t.Type(), err)
	}
	return payload, nil
}
