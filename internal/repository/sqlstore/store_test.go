package sqlstore

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/worktime-bot/internal/database"
	"github.com/Proton-105/worktime-bot/internal/domain"
	"github.com/Proton-105/worktime-bot/internal/repository"
	"github.com/Proton-105/worktime-bot/internal/repository/repotest"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, database.SQLite, ":memory:", database.Options{})
	require.NoError(t, err)

	_, err = database.NewMigrator(db, database.SQLite, slog.New(slog.NewTextHandler(io.Discard, nil))).Apply(ctx)
	require.NoError(t, err)

	store := New(db, database.SQLite, time.Second)
	t.Cleanup(func() { _ = store.Close(ctx) })
	return store
}

func TestStore_Contract(t *testing.T) {
	repotest.Run(t, func(t *testing.T) repository.Store { return newTestStore(t) })
}

func TestStore_TimestampsRoundTripInMillis(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	u := repotest.CreateUser(t, store, 5)

	in := time.Date(2024, 3, 15, 8, 30, 15, 123456789, time.FixedZone("EET", 2*3600))
	entry := &domain.Log{UserID: u.ID, In: in, Kind: domain.LogKindAutomatic}
	require.NoError(t, store.Logs().Create(ctx, entry))

	found, err := store.Logs().FindOpen(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, in.Truncate(time.Millisecond).Equal(found.In))
	assert.Equal(t, domain.LogKindAutomatic, found.Kind)
}

func TestStore_NonNumericIDs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Logs().FindOpen(ctx, "abc")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, store.Logs().Close(ctx, "abc", time.Now()), repository.ErrNotFound)
	assert.ErrorIs(t, store.Logs().Delete(ctx, "abc"), repository.ErrNotFound)
}
