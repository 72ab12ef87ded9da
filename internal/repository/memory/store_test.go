package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/worktime-bot/internal/domain"
	"github.com/Proton-105/worktime-bot/internal/repository"
	"github.com/Proton-105/worktime-bot/internal/repository/repotest"
)

func TestStore_Contract(t *testing.T) {
	repotest.Run(t, func(t *testing.T) repository.Store { return New() })
}

func TestStore_ReturnsCopies(t *testing.T) {
	store := New()
	ctx := context.Background()

	entry := &domain.Log{UserID: "1", In: time.Now(), Kind: domain.LogKindAutomatic}
	require.NoError(t, store.Logs().Create(ctx, entry))

	found, err := store.Logs().FindOpen(ctx, "1")
	require.NoError(t, err)
	out := time.Now()
	found.Out = &out

	again, err := store.Logs().FindOpen(ctx, "1")
	require.NoError(t, err)
	assert.True(t, again.IsOpen())
}

func TestStore_CancelledContext(t *testing.T) {
	store := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Users().FindByTelegramID(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, store.HealthCheck(ctx), context.Canceled)
}
