package lock

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, client
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func lockers(t *testing.T) map[string]Locker {
	_, client := setupTestRedis(t)
	return map[string]Locker{
		"memory": NewMemoryLocker(200 * time.Millisecond),
		"redis": NewRedisLocker(client, testLogger(), RedisOptions{
			MaxWait:      200 * time.Millisecond,
			PollInterval: 5 * time.Millisecond,
		}),
	}
}

func TestLocker_SerialisesSameKey(t *testing.T) {
	for name, l := range lockers(t) {
		t.Run(name, func(t *testing.T) {
			var (
				inside  int32
				maxSeen int32
				wg      sync.WaitGroup
			)

			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_ = WithLock(context.Background(), l, "user:1", func(context.Context) error {
						n := atomic.AddInt32(&inside, 1)
						for {
							m := atomic.LoadInt32(&maxSeen)
							if n <= m || atomic.CompareAndSwapInt32(&maxSeen, m, n) {
								break
							}
						}
						time.Sleep(5 * time.Millisecond)
						atomic.AddInt32(&inside, -1)
						return nil
					})
				}()
			}
			wg.Wait()

			assert.EqualValues(t, 1, maxSeen)
		})
	}
}

func TestLocker_TimesOutWhenHeld(t *testing.T) {
	for name, l := range lockers(t) {
		t.Run(name, func(t *testing.T) {
			release, err := l.Acquire(context.Background(), "user:2")
			require.NoError(t, err)
			defer release()

			_, err = l.Acquire(context.Background(), "user:2")
			assert.ErrorIs(t, err, ErrNotAcquired)

			other, err := l.Acquire(context.Background(), "user:3")
			require.NoError(t, err)
			other()
		})
	}
}

func TestLocker_ReleaseIsIdempotent(t *testing.T) {
	for name, l := range lockers(t) {
		t.Run(name, func(t *testing.T) {
			release, err := l.Acquire(context.Background(), "k")
			require.NoError(t, err)
			release()
			release()

			again, err := l.Acquire(context.Background(), "k")
			require.NoError(t, err)
			again()
		})
	}
}

func TestRedisLocker_DoesNotReleaseForeignToken(t *testing.T) {
	mr, client := setupTestRedis(t)
	l := NewRedisLocker(client, testLogger(), RedisOptions{TTL: time.Second, MaxWait: 50 * time.Millisecond})

	release, err := l.Acquire(context.Background(), "k")
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)
	require.NoError(t, mr.Set("worktime:lock:k", "someone-else"))

	release()
	assert.True(t, mr.Exists("worktime:lock:k"))
}

func TestMemoryLocker_CleansUpSlots(t *testing.T) {
	l := NewMemoryLocker(0)

	release, err := l.Acquire(context.Background(), "k")
	require.NoError(t, err)
	release()

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Empty(t, l.slots)
}
