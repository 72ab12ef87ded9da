// Package repository defines the document store contract for users, work sessions and day records.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Proton-105/worktime-bot/internal/domain"
)

var (
	// ErrNotFound indicates that no record matched the lookup.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate indicates a unique constraint violation, such as a second open automatic session.
	ErrDuplicate = errors.New("duplicate record")
)

// UserRepository persists registered users.
type UserRepository interface {
	// Create stores user and assigns user.ID. Returns ErrDuplicate when the Telegram ID is taken.
	Create(ctx context.Context, user *domain.User) error
	// FindByTelegramID returns ErrNotFound when the user never registered.
	FindByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error)
}

// LogRepository persists work sessions.
type LogRepository interface {
	// Create stores entry and assigns entry.ID. Returns ErrDuplicate when an open automatic
	// session already exists for the user.
	Create(ctx context.Context, entry *domain.Log) error
	// FindOpen returns the latest open automatic session of the user or ErrNotFound.
	FindOpen(ctx context.Context, userID string) (*domain.Log, error)
	// Close sets the end timestamp of an open session. Returns ErrNotFound when the session
	// does not exist or is already closed.
	Close(ctx context.Context, id string, out time.Time) error
	// Delete removes a session. Returns ErrNotFound when it does not exist.
	Delete(ctx context.Context, id string) error
	// ListOpenBefore returns open automatic sessions of all users that started before t.
	ListOpenBefore(ctx context.Context, t time.Time) ([]*domain.Log, error)
	// CountOpen returns the number of open automatic sessions across all users.
	CountOpen(ctx context.Context) (int64, error)
}

// DayRepository persists day records.
type DayRepository interface {
	// Create stores day and assigns day.ID.
	Create(ctx context.Context, day *domain.Day) error
	// ListByUser returns all day records of the user in insertion order.
	ListByUser(ctx context.Context, userID string) ([]*domain.Day, error)
	// ListByUserBetween returns day records whose date lies in [from, to], in insertion order.
	ListByUserBetween(ctx context.Context, userID string, from, to time.Time) ([]*domain.Day, error)
}

// Store bundles the repositories of one backend together with its connection lifecycle.
type Store interface {
	Users() UserRepository
	Logs() LogRepository
	Days() DayRepository
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
