package ratelimit

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return client, mr
}

func TestRedisLimiter_BlocksWhenExceeded(t *testing.T) {
	client, _ := setupTestRedis(t)
	clock := newClock()
	limiter := NewRedisLimiter(client, clock.Now)
	ctx := context.Background()
	rule := Rule{Limit: 2, Window: time.Minute}

	d, err := limiter.Allow(ctx, "blocks", rule)
	require.NoError(t, err)
	assert.Equal(t, Decision{Allowed: true, Remaining: 1}, d)

	clock.Advance(15 * time.Second)
	d, err = limiter.Allow(ctx, "blocks", rule)
	require.NoError(t, err)
	assert.Equal(t, Decision{Allowed: true, Remaining: 0}, d)

	clock.Advance(15 * time.Second)
	d, err = limiter.Allow(ctx, "blocks", rule)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 30*time.Second, d.RetryAfter)
}

func TestRedisLimiter_SlidingWindow(t *testing.T) {
	client, _ := setupTestRedis(t)
	clock := newClock()
	limiter := NewRedisLimiter(client, clock.Now)
	ctx := context.Background()
	rule := Rule{Limit: 2, Window: time.Second}

	for i := 0; i < 3; i++ {
		_, err := limiter.Allow(ctx, "window", rule)
		require.NoError(t, err)
	}

	clock.Advance(1100 * time.Millisecond)
	d, err := limiter.Allow(ctx, "window", rule)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)
}

func TestRedisLimiter_UsesPrefixedKeyWithExpiry(t *testing.T) {
	client, mr := setupTestRedis(t)

	_, err := NewRedisLimiter(client, nil).Allow(context.Background(), "11", Rule{Limit: 5, Window: time.Minute})
	require.NoError(t, err)

	assert.True(t, mr.Exists(KeyPrefix+"11"))
	assert.Equal(t, 2*time.Minute, mr.TTL(KeyPrefix+"11"))
}

func TestRedisLimiter_BackendFailure(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	_, err := NewRedisLimiter(client, nil).Allow(context.Background(), "11", Rule{Limit: 5, Window: time.Minute})
	assert.Error(t, err)
}
