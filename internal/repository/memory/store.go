// Package memory provides an in-process Store used for local runs and service tests.
package memory

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/Proton-105/worktime-bot/internal/domain"
	"github.com/Proton-105/worktime-bot/internal/repository"
)

// Store keeps every record in memory. Records are returned in insertion order.
type Store struct {
	mu     sync.RWMutex
	nextID int64

	users []*domain.User
	logs  []*domain.Log
	days  []*domain.Day
}

// New returns an empty Store.
func New() *Store {
	return &Store{}
}

func (s *Store) Users() repository.UserRepository { return userRepo{s} }
func (s *Store) Logs() repository.LogRepository   { return logRepo{s} }
func (s *Store) Days() repository.DayRepository   { return dayRepo{s} }

func (s *Store) HealthCheck(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Close(context.Context) error {
	return nil
}

func (s *Store) newIDLocked() string {
	s.nextID++
	return strconv.FormatInt(s.nextID, 10)
}

type userRepo struct{ s *Store }

func (r userRepo) Create(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.TelegramID == user.TelegramID {
			return repository.ErrDuplicate
		}
	}

	user.ID = r.s.newIDLocked()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	stored := *user
	r.s.users = append(r.s.users, &stored)
	return nil
}

func (r userRepo) FindByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if u.TelegramID == telegramID {
			found := *u
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

type logRepo struct{ s *Store }

func (r logRepo) Create(ctx context.Context, entry *domain.Log) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if entry.Kind == domain.LogKindAutomatic && entry.Out == nil {
		for _, l := range r.s.logs {
			if l.UserID == entry.UserID && l.Kind == domain.LogKindAutomatic && l.Out == nil {
				return repository.ErrDuplicate
			}
		}
	}

	entry.ID = r.s.newIDLocked()
	r.s.logs = append(r.s.logs, cloneLog(entry))
	return nil
}

func (r logRepo) FindOpen(ctx context.Context, userID string) (*domain.Log, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for i := len(r.s.logs) - 1; i >= 0; i-- {
		l := r.s.logs[i]
		if l.UserID == userID && l.Kind == domain.LogKindAutomatic && l.Out == nil {
			return cloneLog(l), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r logRepo) Close(ctx context.Context, id string, out time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, l := range r.s.logs {
		if l.ID == id && l.Out == nil {
			closed := out
			l.Out = &closed
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r logRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for i, l := range r.s.logs {
		if l.ID == id {
			r.s.logs = append(r.s.logs[:i], r.s.logs[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r logRepo) ListOpenBefore(ctx context.Context, t time.Time) ([]*domain.Log, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*domain.Log
	for _, l := range r.s.logs {
		if l.Kind == domain.LogKindAutomatic && l.Out == nil && l.In.Before(t) {
			out = append(out, cloneLog(l))
		}
	}
	return out, nil
}

func (r logRepo) CountOpen(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var n int64
	for _, l := range r.s.logs {
		if l.Kind == domain.LogKindAutomatic && l.Out == nil {
			n++
		}
	}
	return n, nil
}

type dayRepo struct{ s *Store }

func (r dayRepo) Create(ctx context.Context, day *domain.Day) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	day.ID = r.s.newIDLocked()
	if day.CreatedAt.IsZero() {
		day.CreatedAt = time.Now()
	}
	stored := *day
	r.s.days = append(r.s.days, &stored)
	return nil
}

func (r dayRepo) ListByUser(ctx context.Context, userID string) ([]*domain.Day, error) {
	return r.list(ctx, func(d *domain.Day) bool { return d.UserID == userID })
}

func (r dayRepo) ListByUserBetween(ctx context.Context, userID string, from, to time.Time) ([]*domain.Day, error) {
	return r.list(ctx, func(d *domain.Day) bool {
		return d.UserID == userID && !d.Date.Before(from) && !d.Date.After(to)
	})
}

func (r dayRepo) list(ctx context.Context, match func(*domain.Day) bool) ([]*domain.Day, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*domain.Day
	for _, d := range r.s.days {
		if match(d) {
			found := *d
			out = append(out, &found)
		}
	}
	return out, nil
}

func cloneLog(l *domain.Log) *domain.Log {
	c := *l
	if l.Out != nil {
		out := *l.Out
		c.Out = &out
	}
	return &c
}

var _ repository.Store = (*Store)(nil)
