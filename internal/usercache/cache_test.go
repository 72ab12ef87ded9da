package usercache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/worktime-bot/internal/domain"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, client
}

func TestCache_SetGetInvalidate(t *testing.T) {
	mr, client := setupTestRedis(t)
	cache := NewCache(client, time.Minute)
	ctx := context.Background()

	miss, err := cache.Get(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, miss)

	user := &domain.User{ID: "u1", TelegramID: 42, Name: "Matti", CreatedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, cache.Set(ctx, user))
	assert.True(t, mr.Exists("worktime:user:42"))

	got, err := cache.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, user.Name, got.Name)
	assert.True(t, user.CreatedAt.Equal(got.CreatedAt))

	require.NoError(t, cache.Invalidate(ctx, 42))
	got, err = cache.Get(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCache_Expires(t *testing.T) {
	mr, client := setupTestRedis(t)
	cache := NewCache(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, &domain.User{ID: "u1", TelegramID: 1}))
	mr.FastForward(2 * time.Minute)

	got, err := cache.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCache_NilIsNoop(t *testing.T) {
	var cache *Cache
	ctx := context.Background()

	assert.Nil(t, NewCache(nil, time.Minute))
	got, err := cache.Get(ctx, 1)
	assert.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, cache.Set(ctx, &domain.User{}))
	assert.NoError(t, cache.Invalidate(ctx, 1))
}

func TestCache_CorruptEntry(t *testing.T) {
	mr, client := setupTestRedis(t)
	cache := NewCache(client, time.Minute)

	require.NoError(t, mr.Set("worktime:user:7", "{not json"))

	_, err := cache.Get(context.Background(), 7)
	assert.Error(t, err)
}
