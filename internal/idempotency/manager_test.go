package idempotency

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestManager_RunsOncePerKey(t *testing.T) {
	client, mr := setup(t)
	m := NewManager(NewRedisStore(client, quietLogger()), quietLogger())
	ctx := context.Background()

	calls := 0
	op := func() error { calls++; return nil }

	res, err := m.Execute(ctx, UpdateKey(1), time.Hour, op)
	require.NoError(t, err)
	assert.False(t, res.FromCache)

	res, err = m.Execute(ctx, UpdateKey(1), time.Hour, op)
	require.NoError(t, err)
	assert.True(t, res.FromCache)
	assert.Equal(t, 1, calls)

	key := KeyPrefix + UpdateKey(1)
	assert.Equal(t, time.Hour, mr.TTL(key))
	assert.False(t, mr.Exists(key+":lock"))
}

func TestManager_FailedOperationCanRetry(t *testing.T) {
	client, _ := setup(t)
	m := NewManager(NewRedisStore(client, quietLogger()), quietLogger())
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := m.Execute(ctx, "k", time.Hour, func() error { return boom })
	assert.ErrorIs(t, err, boom)

	calls := 0
	res, err := m.Execute(ctx, "k", time.Hour, func() error { calls++; return nil })
	require.NoError(t, err)
	assert.False(t, res.FromCache)
	assert.Equal(t, 1, calls)
}

func TestManager_ConcurrentDeliveryIsRejected(t *testing.T) {
	client, _ := setup(t)
	m := NewManager(NewRedisStore(client, quietLogger()), quietLogger())
	ctx := context.Background()

	_, err := m.Execute(ctx, "k", time.Hour, func() error {
		_, innerErr := m.Execute(ctx, "k", time.Hour, func() error {
			t.Fatal("nested delivery must not run")
			return nil
		})
		assert.ErrorIs(t, innerErr, ErrRequestInProgress)
		return nil
	})
	require.NoError(t, err)
}

func TestCleaner_RemovesKeysWithoutExpiry(t *testing.T) {
	client, mr := setup(t)
	ctx := context.Background()

	require.NoError(t, client.HSet(ctx, KeyPrefix+"orphan", "status", StatusProcessing).Err())
	require.NoError(t, client.Set(ctx, KeyPrefix+"fresh", "1", time.Hour).Err())
	require.NoError(t, client.Set(ctx, "other", "1", 0).Err())

	removed := NewCleaner(client, quietLogger(), time.Minute).Cleanup(ctx)

	assert.Equal(t, 1, removed)
	assert.False(t, mr.Exists(KeyPrefix+"orphan"))
	assert.True(t, mr.Exists(KeyPrefix+"fresh"))
	assert.True(t, mr.Exists("other"))
}

func TestUpdateKey(t *testing.T) {
	assert.Equal(t, "update:7", UpdateKey(7))
	assert.NotEqual(t, UpdateKey(7), UpdateKey(8))
}
