package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Proton-105/worktime-bot/internal/domain"
	apperrors "github.com/Proton-105/worktime-bot/internal/errors"
)

// Guard wraps a Store so that backend failures surface as domain.ErrStoreUnavailable and
// repeated failures open a circuit breaker. Lookup misses, unique violations and caller
// cancellations pass through untouched and do not count as failures. Calls are never retried.
func Guard(next Store, settings apperrors.BreakerSettings) Store {
	if next == nil {
		return nil
	}

	g := &guardedStore{next: next, breaker: apperrors.NewCircuitBreaker(settings)}
	g.users = &guardedUsers{g: g, next: next.Users()}
	g.logs = &guardedLogs{g: g, next: next.Logs()}
	g.days = &guardedDays{g: g, next: next.Days()}
	return g
}

type guardedStore struct {
	next    Store
	breaker *apperrors.CircuitBreaker
	users   *guardedUsers
	logs    *guardedLogs
	days    *guardedDays
}

func (g *guardedStore) Users() UserRepository { return g.users }
func (g *guardedStore) Logs() LogRepository   { return g.logs }
func (g *guardedStore) Days() DayRepository   { return g.days }

func (g *guardedStore) HealthCheck(ctx context.Context) error {
	return g.next.HealthCheck(ctx)
}

func (g *guardedStore) Close(ctx context.Context) error {
	return g.next.Close(ctx)
}

func (g *guardedStore) call(op string, fn func() error) error {
	var passthrough error

	err := g.breaker.Call(func() error {
		callErr := fn()
		if callErr == nil || errors.Is(callErr, ErrNotFound) || errors.Is(callErr, ErrDuplicate) ||
			errors.Is(callErr, context.Canceled) {
			passthrough = callErr
			return nil
		}
		return callErr
	})
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
	}

	return passthrough
}

type guardedUsers struct {
	g    *guardedStore
	next UserRepository
}

func (r *guardedUsers) Create(ctx context.Context, user *domain.User) error {
	return r.g.call("create user", func() error { return r.next.Create(ctx, user) })
}

func (r *guardedUsers) FindByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	var user *domain.User
	err := r.g.call("find user", func() error {
		var err error
		user, err = r.next.FindByTelegramID(ctx, telegramID)
		return err
	})
	return user, err
}

type guardedLogs struct {
	g    *guardedStore
	next LogRepository
}

func (r *guardedLogs) Create(ctx context.Context, entry *domain.Log) error {
	return r.g.call("create log", func() error { return r.next.Create(ctx, entry) })
}

func (r *guardedLogs) FindOpen(ctx context.Context, userID string) (*domain.Log, error) {
	var entry *domain.Log
	err := r.g.call("find open log", func() error {
		var err error
		entry, err = r.next.FindOpen(ctx, userID)
		return err
	})
	return entry, err
}

func (r *guardedLogs) Close(ctx context.Context, id string, out time.Time) error {
	return r.g.call("close log", func() error { return r.next.Close(ctx, id, out) })
}

func (r *guardedLogs) Delete(ctx context.Context, id string) error {
	return r.g.call("delete log", func() error { return r.next.Delete(ctx, id) })
}

func (r *guardedLogs) ListOpenBefore(ctx context.Context, t time.Time) ([]*domain.Log, error) {
	var entries []*domain.Log
	err := r.g.call("list open logs", func() error {
		var err error
		entries, err = r.next.ListOpenBefore(ctx, t)
		return err
	})
	return entries, err
}

func (r *guardedLogs) CountOpen(ctx context.Context) (int64, error) {
	var count int64
	err := r.g.call("count open logs", func() error {
		var err error
		count, err = r.next.CountOpen(ctx)
		return err
	})
	return count, err
}

type guardedDays struct {
	g    *guardedStore
	next DayRepository
}

func (r *guardedDays) Create(ctx context.Context, day *domain.Day) error {
	return r.g.call("create day", func() error { return r.next.Create(ctx, day) })
}

func (r *guardedDays) ListByUser(ctx context.Context, userID string) ([]*domain.Day, error) {
	var days []*domain.Day
	err := r.g.call("list days", func() error {
		var err error
		days, err = r.next.ListByUser(ctx, userID)
		return err
	})
	return days, err
}

func (r *guardedDays) ListByUserBetween(ctx context.Context, userID string, from, to time.Time) ([]*domain.Day, error) {
	var days []*domain.Day
	err := r.g.call("list days in range", func() error {
		var err error
		days, err = r.next.ListByUserBetween(ctx, userID, from, to)
		return err
	})
	return days, err
}
