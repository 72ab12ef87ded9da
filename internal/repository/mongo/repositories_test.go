package mongo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/Proton-105/worktime-bot/internal/domain"
	"github.com/Proton-105/worktime-bot/internal/repository"
)

func newMock(t *testing.T) *mtest.T {
	return mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
}

func TestUserRepo_Create(t *testing.T) {
	mt := newMock(t)

	mt.Run("assigns id", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		store := New(mt.DB, time.Second)

		u := &domain.User{TelegramID: 42, Name: "Matti"}
		require.NoError(t, store.Users().Create(context.Background(), u))
		assert.Len(t, u.ID, 24)
		assert.False(t, u.CreatedAt.IsZero())
	})

	mt.Run("duplicate telegram id", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index: 0, Code: 11000, Message: "duplicate key error",
		}))
		store := New(mt.DB, time.Second)

		err := store.Users().Create(context.Background(), &domain.User{TelegramID: 42})
		assert.ErrorIs(t, err, repository.ErrDuplicate)
	})
}

func TestUserRepo_FindByTelegramID(t *testing.T) {
	mt := newMock(t)

	mt.Run("found", func(mt *mtest.T) {
		id := primitive.NewObjectID()
		created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "worktime.users", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: id},
			{Key: "telegram_id", Value: int64(42)},
			{Key: "name", Value: "Matti"},
			{Key: "created_at", Value: created},
		}))
		store := New(mt.DB, time.Second)

		u, err := store.Users().FindByTelegramID(context.Background(), 42)
		require.NoError(t, err)
		assert.Equal(t, id.Hex(), u.ID)
		assert.Equal(t, "Matti", u.Name)
		assert.True(t, created.Equal(u.CreatedAt))
	})

	mt.Run("not found", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "worktime.users", mtest.FirstBatch))
		store := New(mt.DB, time.Second)

		_, err := store.Users().FindByTelegramID(context.Background(), 42)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestLogRepo_CreateOpenDuplicate(t *testing.T) {
	mt := newMock(t)

	mt.Run("second open session", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index: 0, Code: 11000, Message: "E11000 duplicate key error index: one_open_automatic",
		}))
		store := New(mt.DB, time.Second)

		err := store.Logs().Create(context.Background(), &domain.Log{
			UserID: "u1", In: time.Now(), Kind: domain.LogKindAutomatic,
		})
		assert.ErrorIs(t, err, repository.ErrDuplicate)
	})
}

func TestLogRepo_FindOpen(t *testing.T) {
	mt := newMock(t)

	mt.Run("decodes open session", func(mt *mtest.T) {
		id := primitive.NewObjectID()
		in := time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "worktime.logs", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: id},
			{Key: "user_id", Value: "u1"},
			{Key: "in", Value: in},
			{Key: "kind", Value: "automatic"},
			{Key: "open", Value: true},
		}))
		store := New(mt.DB, time.Second)

		entry, err := store.Logs().FindOpen(context.Background(), "u1")
		require.NoError(t, err)
		assert.Equal(t, id.Hex(), entry.ID)
		assert.True(t, entry.IsOpen())
		assert.True(t, in.Equal(entry.In))
		assert.Equal(t, domain.LogKindAutomatic, entry.Kind)
	})
}

func TestLogRepo_CloseAndDelete(t *testing.T) {
	mt := newMock(t)

	mt.Run("close matched", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))
		store := New(mt.DB, time.Second)

		require.NoError(t, store.Logs().Close(context.Background(), primitive.NewObjectID().Hex(), time.Now()))
	})

	mt.Run("close already closed", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))
		store := New(mt.DB, time.Second)

		err := store.Logs().Close(context.Background(), primitive.NewObjectID().Hex(), time.Now())
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	mt.Run("delete missing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))
		store := New(mt.DB, time.Second)

		err := store.Logs().Delete(context.Background(), primitive.NewObjectID().Hex())
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	mt.Run("invalid id", func(mt *mtest.T) {
		store := New(mt.DB, time.Second)

		assert.ErrorIs(t, store.Logs().Delete(context.Background(), "not-hex"), repository.ErrNotFound)
		assert.ErrorIs(t, store.Logs().Close(context.Background(), "not-hex", time.Now()), repository.ErrNotFound)
	})
}

func TestDayRepo_ListByUser(t *testing.T) {
	mt := newMock(t)

	mt.Run("keeps cursor order", func(mt *mtest.T) {
		first := primitive.NewObjectID()
		second := primitive.NewObjectID()
		date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

		mt.AddMockResponses(
			mtest.CreateCursorResponse(1, "worktime.days", mtest.FirstBatch,
				bson.D{{Key: "_id", Value: first}, {Key: "user_id", Value: "u1"}, {Key: "log_id", Value: "l1"}, {Key: "date", Value: date}, {Key: "amount", Value: 5.0}},
			),
			mtest.CreateCursorResponse(0, "worktime.days", mtest.NextBatch,
				bson.D{{Key: "_id", Value: second}, {Key: "user_id", Value: "u1"}, {Key: "log_id", Value: "l2"}, {Key: "date", Value: date}, {Key: "amount", Value: 2.0}},
			),
		)
		store := New(mt.DB, time.Second)

		days, err := store.Days().ListByUser(context.Background(), "u1")
		require.NoError(t, err)
		require.Len(t, days, 2)
		assert.Equal(t, first.Hex(), days[0].ID)
		assert.Equal(t, "l2", days[1].LogID)
		assert.InDelta(t, 7.0, days[0].Amount+days[1].Amount, 1e-9)
	})
}

func TestStore_CountOpen(t *testing.T) {
	mt := newMock(t)

	mt.Run("counts", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "worktime.logs", mtest.FirstBatch, bson.D{{Key: "n", Value: int32(3)}}))
		store := New(mt.DB, time.Second)

		n, err := store.Logs().CountOpen(context.Background())
		require.NoError(t, err)
		assert.EqualValues(t, 3, n)
	})
}
