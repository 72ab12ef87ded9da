// Package repotest holds the behaviour every repository.Store backend must share.
package repotest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/worktime-bot/internal/domain"
	"github.com/Proton-105/worktime-bot/internal/repository"
)

// Factory returns a fresh, empty store for one subtest.
type Factory func(t *testing.T) repository.Store

// Run exercises the store contract against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("open session uniqueness", func(t *testing.T) { testOpenUniqueness(t, newStore(t)) })
	t.Run("close and delete", func(t *testing.T) { testCloseDelete(t, newStore(t)) })
	t.Run("list open before", func(t *testing.T) { testListOpenBefore(t, newStore(t)) })
	t.Run("days in insertion order", func(t *testing.T) { testDays(t, newStore(t)) })
	t.Run("health", func(t *testing.T) {
		assert.NoError(t, newStore(t).HealthCheck(context.Background()))
	})
}

// CreateUser registers a user with the given Telegram id and fails the test on error.
func CreateUser(t *testing.T, store repository.Store, telegramID int64) *domain.User {
	t.Helper()

	u := &domain.User{TelegramID: telegramID, Name: "Test User"}
	require.NoError(t, store.Users().Create(context.Background(), u))
	require.NotEmpty(t, u.ID)
	return u
}

func at(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, time.UTC)
}

func testUsers(t *testing.T, store repository.Store) {
	ctx := context.Background()

	u := CreateUser(t, store, 42)

	found, err := store.Users().FindByTelegramID(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)
	assert.Equal(t, "Test User", found.Name)

	err = store.Users().Create(ctx, &domain.User{TelegramID: 42, Name: "Again"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	_, err = store.Users().FindByTelegramID(ctx, 7)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func testOpenUniqueness(t *testing.T, store repository.Store) {
	ctx := context.Background()
	u := CreateUser(t, store, 1)
	other := CreateUser(t, store, 2)

	open := &domain.Log{UserID: u.ID, In: at(2024, 3, 15, 8, 0), Kind: domain.LogKindAutomatic}
	require.NoError(t, store.Logs().Create(ctx, open))

	dup := &domain.Log{UserID: u.ID, In: at(2024, 3, 15, 9, 0), Kind: domain.LogKindAutomatic}
	assert.ErrorIs(t, store.Logs().Create(ctx, dup), repository.ErrDuplicate)

	require.NoError(t, store.Logs().Create(ctx, &domain.Log{UserID: other.ID, In: at(2024, 3, 15, 9, 0), Kind: domain.LogKindAutomatic}))

	out := at(2024, 3, 15, 10, 0)
	manual := &domain.Log{UserID: u.ID, In: at(2024, 3, 14, 0, 0), Out: &out, Kind: domain.LogKindManual}
	require.NoError(t, store.Logs().Create(ctx, manual))

	found, err := store.Logs().FindOpen(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, open.ID, found.ID)
	assert.True(t, found.IsOpen())
	assert.True(t, open.In.Equal(found.In))

	count, err := store.Logs().CountOpen(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func testCloseDelete(t *testing.T, store repository.Store) {
	ctx := context.Background()
	u := CreateUser(t, store, 1)

	entry := &domain.Log{UserID: u.ID, In: at(2024, 3, 15, 8, 0), Kind: domain.LogKindAutomatic}
	require.NoError(t, store.Logs().Create(ctx, entry))

	require.NoError(t, store.Logs().Close(ctx, entry.ID, at(2024, 3, 15, 10, 15)))
	assert.ErrorIs(t, store.Logs().Close(ctx, entry.ID, at(2024, 3, 15, 11, 0)), repository.ErrNotFound)

	_, err := store.Logs().FindOpen(ctx, u.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	next := &domain.Log{UserID: u.ID, In: at(2024, 3, 16, 8, 0), Kind: domain.LogKindAutomatic}
	require.NoError(t, store.Logs().Create(ctx, next))
	require.NoError(t, store.Logs().Delete(ctx, next.ID))
	assert.ErrorIs(t, store.Logs().Delete(ctx, next.ID), repository.ErrNotFound)

	count, err := store.Logs().CountOpen(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func testListOpenBefore(t *testing.T, store repository.Store) {
	ctx := context.Background()
	a := CreateUser(t, store, 1)
	b := CreateUser(t, store, 2)
	c := CreateUser(t, store, 3)

	old := &domain.Log{UserID: a.ID, In: at(2024, 3, 14, 8, 0), Kind: domain.LogKindAutomatic}
	fresh := &domain.Log{UserID: b.ID, In: at(2024, 3, 15, 8, 0), Kind: domain.LogKindAutomatic}
	closedOld := &domain.Log{UserID: c.ID, In: at(2024, 3, 13, 8, 0), Kind: domain.LogKindAutomatic}
	for _, l := range []*domain.Log{old, fresh, closedOld} {
		require.NoError(t, store.Logs().Create(ctx, l))
	}
	require.NoError(t, store.Logs().Close(ctx, closedOld.ID, at(2024, 3, 13, 9, 0)))

	stale, err := store.Logs().ListOpenBefore(ctx, at(2024, 3, 15, 0, 0))
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, old.ID, stale[0].ID)
	assert.Equal(t, a.ID, stale[0].UserID)
}

func testDays(t *testing.T, store repository.Store) {
	ctx := context.Background()
	u := CreateUser(t, store, 1)
	other := CreateUser(t, store, 2)

	newDay := func(user *domain.User, date time.Time, amount float64) *domain.Day {
		out := date.Add(time.Hour)
		l := &domain.Log{UserID: user.ID, In: date, Out: &out, Kind: domain.LogKindManual}
		require.NoError(t, store.Logs().Create(ctx, l))

		d := &domain.Day{UserID: user.ID, LogID: l.ID, Date: date, Amount: amount}
		require.NoError(t, store.Days().Create(ctx, d))
		require.NotEmpty(t, d.ID)
		return d
	}

	first := newDay(u, at(2024, 4, 2, 0, 0), 1.5)
	second := newDay(u, at(2024, 3, 15, 0, 0), 5)
	third := newDay(u, at(2024, 3, 31, 23, 0), 2)
	newDay(other, at(2024, 3, 15, 0, 0), 8)

	all, err := store.Days().ListByUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{first.ID, second.ID, third.ID}, []string{all[0].ID, all[1].ID, all[2].ID})
	assert.InDelta(t, 1.5, all[0].Amount, 1e-9)
	assert.Equal(t, first.LogID, all[0].LogID)
	assert.True(t, first.Date.Equal(all[0].Date))

	march, err := store.Days().ListByUserBetween(ctx, u.ID,
		at(2024, 3, 1, 0, 0), at(2024, 4, 1, 0, 0).Add(-time.Millisecond))
	require.NoError(t, err)
	require.Len(t, march, 2)
	assert.Equal(t, second.ID, march[0].ID)
	assert.Equal(t, third.ID, march[1].ID)

	none, err := store.Days().ListByUser(ctx, "999999")
	require.NoError(t, err)
	assert.Empty(t, none)
}
