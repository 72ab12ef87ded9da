package health

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/telebot.v3"

	"github.com/Proton-105/worktime-bot/internal/repository/memory"
)

func TestChecker_ReportsEveryComponent(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c := NewChecker(nil)
	c.AddCheck("store", memory.New())
	c.AddCheck("redis", NewRedisChecker(client))
	c.AddCheck("telegram", NewTelegramChecker(&telebot.Bot{Me: &telebot.User{ID: 1}}))
	c.AddCheck("ignored", nil)

	results := c.Check(context.Background())
	assert.Equal(t, map[string]string{"store": "OK", "redis": "OK", "telegram": "OK"}, results)
	assert.NoError(t, c.Ready(context.Background()))
}

func TestChecker_ReadyJoinsFailures(t *testing.T) {
	c := NewChecker(nil)
	c.AddCheck("store", CheckFunc(func(context.Context) error { return errors.New("down") }))
	c.AddCheck("telegram", NewTelegramChecker(nil))
	c.AddCheck("ok", CheckFunc(func(context.Context) error { return nil }))

	err := c.Ready(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store: down")
	assert.Contains(t, err.Error(), "telegram:")
	assert.NotContains(t, err.Error(), "ok:")
}

func TestRedisChecker_Unconfigured(t *testing.T) {
	assert.ErrorIs(t, NewRedisChecker(nil).HealthCheck(context.Background()), redis.ErrClosed)
}
