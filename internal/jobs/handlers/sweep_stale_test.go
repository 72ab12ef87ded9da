package handlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/worktime-bot/internal/jobs"
)

type mockSweeper struct {
	mock.Mock
}

func (m *mockSweeper) SweepStale(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

func TestSweepStaleHandler_UsesRequestedTime(t *testing.T) {
	requested := time.Date(2024, time.March, 5, 0, 5, 0, 0, time.UTC)
	task, err := jobs.NewSweepStaleTask(requested, "")
	require.NoError(t, err)

	sweeper := new(mockSweeper)
	sweeper.On("SweepStale", mock.Anything, mock.MatchedBy(func(now time.Time) bool {
		return now.Equal(requested)
	})).Return(2, nil)

	h := NewSweepStaleHandler(sweeper, nil)
	require.NoError(t, h.ProcessTask(context.Background(), task))
	sweeper.AssertExpectations(t)
}

func TestSweepStaleHandler_FallsBackToClock(t *testing.T) {
	fixed := time.Date(2024, time.March, 6, 0, 5, 0, 0, time.UTC)
	sweeper := new(mockSweeper)
	sweeper.On("SweepStale", mock.Anything, fixed).Return(0, nil)

	h := NewSweepStaleHandler(sweeper, nil)
	h.now = func() time.Time { return fixed }

	require.NoError(t, h.ProcessTask(context.Background(), asynq.NewTask(jobs.TaskTypeSweepStale, nil)))
	sweeper.AssertExpectations(t)
}

func TestSweepStaleHandler_BadPayloadSkipsRetry(t *testing.T) {
	sweeper := new(mockSweeper)
	h := NewSweepStaleHandler(sweeper, nil)

	err := h.ProcessTask(context.Background(), asynq.NewTask(jobs.TaskTypeSweepStale, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	sweeper.AssertNotCalled(t, "SweepStale", mock.Anything, mock.Anything)
}

func TestSweepStaleHandler_PropagatesStoreError(t *testing.T) {
	sweeper := new(mockSweeper)
	sweeper.On("SweepStale", mock.Anything, mock.Anything).Return(0, errors.New("store down"))

	h := NewSweepStaleHandler(sweeper, nil)
	err := h.ProcessTask(context.Background(), asynq.NewTask(jobs.TaskTypeSweepStale, nil))
	assert.EqualError(t, err, "store down")
}
