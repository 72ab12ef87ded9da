package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/worktime-bot/internal/repository/memory"
	"github.com/Proton-105/worktime-bot/pkg/config"
	"github.com/Proton-105/worktime-bot/pkg/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		AppEnv: "test",
		App:    config.AppConfig{Timezone: "Europe/Helsinki", DefaultLanguage: "fi"},
		Bot:    config.BotConfig{StateTTL: time.Minute, DedupTTL: time.Hour},
		Storage: config.StorageConfig{
			Driver:  "memory",
			Timeout: time.Second,
		},
		Logger: config.LoggerConfig{Level: "error", Format: "json"},
		Report: config.ReportConfig{Ordering: "chronological", SameDay: "sum"},
		Jobs:   config.JobsConfig{SweepCron: "5 0 * * *", Concurrency: 1, Queue: "default"},
	}
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "json"})
	require.NoError(t, err)
	return log
}

func TestNew_WithoutRedisUsesInMemoryInfrastructure(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(), testLogger(t), Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(ctx) })

	assert.Nil(t, a.redis)
	assert.False(t, a.jobsEnabled())
	assert.ErrorIs(t, a.RunWorker(ctx), ErrJobsUnavailable)

	deps := a.Deps()
	assert.NotNil(t, deps.Users)
	assert.NotNil(t, deps.Sessions)
	assert.NotNil(t, deps.Reports)
	assert.NotNil(t, deps.FSM)
	assert.Equal(t, "Europe/Helsinki", a.Tracker().Location().String())
}

func TestNew_WithRedis(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	cfg := testConfig()
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = mr.Addr()

	a, err := New(ctx, cfg, testLogger(t), Options{Redis: client})
	require.NoError(t, err)

	u, err := a.users.Register(ctx, 7, "Matti")
	require.NoError(t, err)

	cached, err := a.users.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, u.ID, cached.ID)

	require.NoError(t, a.Close(ctx))
	assert.Error(t, client.Ping(ctx).Err(), "redis client is closed with the app")
}

func TestSweep_InlineRemovesStaleSessions(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	a, err := New(ctx, testConfig(), testLogger(t), Options{Store: store})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(ctx) })

	now := time.Date(2024, time.March, 6, 0, 5, 0, 0, a.loc)
	_, err = a.tracker.ClockIn(ctx, "u1", now.Add(-10*time.Hour))
	require.NoError(t, err)
	_, err = a.tracker.ClockIn(ctx, "u2", now.Add(-time.Minute))
	require.NoError(t, err)

	res, err := a.Sweep(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Removed)
	assert.Empty(t, res.TaskID)

	open, err := store.Logs().CountOpen(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, open)
}

func TestApplyConfig_ChangesLogLevel(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(), testLogger(t), Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(ctx) })

	cfg := testConfig()
	cfg.Logger.Level = "debug"
	a.ApplyConfig(cfg)
	assert.Equal(t, "DEBUG", a.log.Level().String())

	cfg.Logger.Level = "verbose"
	a.ApplyConfig(cfg)
	assert.Equal(t, "DEBUG", a.log.Level().String())
}

func TestOpenStore_SQLiteAppliesMigrationsOnce(t *testing.T) {
	ctx := context.Background()
	cfg := config.StorageConfig{
		Driver:  "sqlite",
		Timeout: time.Second,
		SQLite:  config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "worktime.db")},
	}
	log := testLogger(t).Logger

	applied, err := Migrate(ctx, cfg, log)
	require.NoError(t, err)
	assert.Equal(t, 1, applied)

	store, err := OpenStore(ctx, cfg, log)
	require.NoError(t, err)
	require.NoError(t, store.HealthCheck(ctx))
	require.NoError(t, store.Close(ctx))

	applied, err = Migrate(ctx, cfg, log)
	require.NoError(t, err)
	assert.Zero(t, applied)
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	_, err := OpenStore(context.Background(), config.StorageConfig{Driver: "cassandra"}, testLogger(t).Logger)
	assert.ErrorContains(t, err, "unsupported storage driver")
}
