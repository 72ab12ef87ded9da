// Package user registers bot users and resolves Telegram senders to stored users.
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Proton-105/worktime-bot/internal/domain"
	"github.com/Proton-105/worktime-bot/internal/repository"
)

// Cache is the subset of the user cache the service needs.
type Cache interface {
	Get(ctx context.Context, telegramID int64) (*domain.User, error)
	Set(ctx context.Context, user *domain.User) error
}

// Service provides business operations over users.
type Service struct {
	repo  repository.UserRepository
	cache Cache
	log   *slog.Logger
	now   func() time.Time
}

// NewService constructs a new Service instance. cache may be nil.
func NewService(repo repository.UserRepository, cache Cache, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, cache: cache, log: log, now: time.Now}
}

// Register creates a user for the Telegram account. A second registration returns
// domain.ErrAlreadyRegistered.
func (s *Service) Register(ctx context.Context, telegramID int64, name string) (*domain.User, error) {
	name = strings.TrimSpace(name)

	u := &domain.User{
		TelegramID: telegramID,
		Name:       name,
		CreatedAt:  s.now().UTC(),
	}

	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, domain.ErrAlreadyRegistered
		}
		s.logError("register", telegramID, err)
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.cacheUser(ctx, u)
	s.log.Info("user registered", slog.Int64("telegram_id", telegramID), slog.String("user_id", u.ID))

	return u, nil
}

// Get resolves a Telegram account to a registered user, returning domain.ErrUserNotRegistered
// when the sender never registered.
func (s *Service) Get(ctx context.Context, telegramID int64) (*domain.User, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, telegramID)
		if err != nil {
			s.log.Warn("user cache lookup failed", slog.Int64("telegram_id", telegramID), slog.Any("error", err))
		} else if cached != nil {
			return cached, nil
		}
	}

	u, err := s.repo.FindByTelegramID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrUserNotRegistered
		}
		s.logError("get", telegramID, err)
		return nil, fmt.Errorf("get user: %w", err)
	}

	s.cacheUser(ctx, u)
	return u, nil
}

func (s *Service) cacheUser(ctx context.Context, u *domain.User) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, u); err != nil {
		s.log.Warn("user cache store failed", slog.Int64("telegram_id", u.TelegramID), slog.Any("error", err))
	}
}

func (s *Service) logError(operation string, telegramID int64, err error) {
	s.log.Error("user service operation failed",
		slog.String("operation", operation),
		slog.Int64("telegram_id", telegramID),
		slog.Any("error", err),
	)
}
