package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Proton-105/worktime-bot/internal/domain"
	"github.com/Proton-105/worktime-bot/internal/repository"
)

type userRepo struct{ s *Store }

func (r *userRepo) Create(ctx context.Context, user *domain.User) error {
	ctx, cancel := r.s.withTimeout(ctx)
	defer cancel()

	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}

	var id int64
	err := r.s.db.QueryRowContext(ctx,
		r.s.q(`INSERT INTO users (telegram_id, name, created_at) VALUES (?, ?, ?) RETURNING id`),
		user.TelegramID, user.Name, toMillis(user.CreatedAt),
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return wrap("insert user", err)
	}

	user.ID = formatID(id)
	return nil
}

func (r *userRepo) FindByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	ctx, cancel := r.s.withTimeout(ctx)
	defer cancel()

	var (
		id        int64
		user      domain.User
		createdAt int64
	)
	err := r.s.db.QueryRowContext(ctx,
		r.s.q(`SELECT id, telegram_id, name, created_at FROM users WHERE telegram_id = ?`),
		telegramID,
	).Scan(&id, &user.TelegramID, &user.Name, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, wrap("select user", err)
	}

	user.ID = formatID(id)
	user.CreatedAt = fromMillis(createdAt)
	return &user, nil
}
