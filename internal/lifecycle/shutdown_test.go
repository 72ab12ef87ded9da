package lifecycle

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdown_RunsHooksNewestFirst(t *testing.T) {
	s := NewShutdown(nil)

	var order []string
	for _, name := range []string{"store", "redis", "scheduler"} {
		s.Register(name, func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}
	s.Register("nil", nil)

	require.NoError(t, s.Execute(context.Background()))
	assert.Equal(t, []string{"scheduler", "redis", "store"}, order)

	require.NoError(t, s.Execute(context.Background()))
	assert.Len(t, order, 3)
}

func TestShutdown_CollectsErrorsAndTimeouts(t *testing.T) {
	s := NewShutdown(nil)
	s.Add(CloserHook("redis", func() error { return errors.New("closed twice") }))
	s.Register("stuck", func(ctx context.Context) error {
		time.Sleep(time.Second)
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := s.Execute(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "stuck: context deadline exceeded")
	assert.Contains(t, err.Error(), "redis: context deadline exceeded")
}

func TestShutdown_FailedHookDoesNotStopOthers(t *testing.T) {
	s := NewShutdown(nil)
	closed := false
	s.Register("store", func(context.Context) error { closed = true; return nil })
	s.Add(CloserHook("redis", func() error { return errors.New("closed twice") }))

	err := s.Execute(context.Background())
	assert.EqualError(t, err, "redis: closed twice")
	assert.True(t, closed)
}

type readyFunc func(context.Context) error

func (f readyFunc) Ready(ctx context.Context) error { return f(ctx) }

func TestProbes(t *testing.T) {
	failing := errors.New("store down")
	var fail atomic.Bool
	p := NewProbes(nil, readyFunc(func(context.Context) error {
		if fail.Load() {
			return failing
		}
		return nil
	}))
	ctx := context.Background()

	assert.NoError(t, p.Liveness(ctx))
	assert.NoError(t, p.Readiness(ctx))

	fail.Store(true)
	assert.ErrorIs(t, p.Readiness(ctx), failing)

	fail.Store(false)
	p.Drain()
	assert.ErrorIs(t, p.Readiness(ctx), ErrShuttingDown)
	assert.NoError(t, p.Liveness(ctx))
}
