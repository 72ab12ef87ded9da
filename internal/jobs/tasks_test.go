package jobs

import (
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSweepStaleTask_RoundTripsRequestTime(t *testing.T) {
	requested := time.Date(2024, time.March, 5, 0, 5, 0, 0, time.UTC)

	task, err := NewSweepStaleTask(requested, QueueDefault)
	require.NoError(t, err)
	assert.Equal(t, TaskTypeSweepStale, task.Type())

	payload, err := ParseSweepStalePayload(task)
	require.NoError(t, err)
	assert.True(t, payload.RequestedAt.Equal(requested))
}

func TestParseSweepStalePayload_EmptyPayload(t *testing.T) {
	payload, err := ParseSweepStalePayload(asynq.NewTask(TaskTypeSweepStale, nil))
	require.NoError(t, err)
	assert.True(t, payload.RequestedAt.IsZero())
}

func TestQueuesWith(t *testing.T) {
	assert.Equal(t, Queues, queuesWith(""))
	assert.Equal(t, Queues, queuesWith(QueueLow))

	custom := queuesWith("maintenance")
	assert.Equal(t, Queues[QueueDefault], custom["maintenance"])
	assert.Len(t, custom, len(Queues)+1)
	assert.NotContains(t, Queues, "maintenance")
}
