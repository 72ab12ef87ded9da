package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/Proton-105/worktime-bot/internal/domain"
	"github.com/Proton-105/worktime-bot/internal/repository"
)

const dayColumns = `id, user_id, log_id, date, amount, created_at`

type dayRepo struct{ s *Store }

func (r *dayRepo) Create(ctx context.Context, day *domain.Day) error {
	userID, okUser := parseID(day.UserID)
	logID, okLog := parseID(day.LogID)
	if !okUser || !okLog {
		return wrap("insert day", repository.ErrNotFound)
	}

	ctx, cancel := r.s.withTimeout(ctx)
	defer cancel()

	if day.CreatedAt.IsZero() {
		day.CreatedAt = time.Now()
	}

	var id int64
	err := r.s.db.QueryRowContext(ctx,
		r.s.q(`INSERT INTO days (user_id, log_id, date, amount, created_at) VALUES (?, ?, ?, ?, ?) RETURNING id`),
		userID, logID, toMillis(day.Date), day.Amount, toMillis(day.CreatedAt),
	).Scan(&id)
	if err != nil {
		return wrap("insert day", err)
	}

	day.ID = formatID(id)
	return nil
}

func (r *dayRepo) ListByUser(ctx context.Context, userID string) ([]*domain.Day, error) {
	uid, ok := parseID(userID)
	if !ok {
		return nil, nil
	}

	ctx, cancel := r.s.withTimeout(ctx)
	defer cancel()

	rows, err := r.s.db.QueryContext(ctx,
		r.s.q(`SELECT `+dayColumns+` FROM days WHERE user_id = ? ORDER BY id`), uid)
	if err != nil {
		return nil, wrap("list days", err)
	}
	return scanDays(rows)
}

func (r *dayRepo) ListByUserBetween(ctx context.Context, userID string, from, to time.Time) ([]*domain.Day, error) {
	uid, ok := parseID(userID)
	if !ok {
		return nil, nil
	}

	ctx, cancel := r.s.withTimeout(ctx)
	defer cancel()

	rows, err := r.s.db.QueryContext(ctx,
		r.s.q(`SELECT `+dayColumns+` FROM days
			WHERE user_id = ? AND date >= ? AND date <= ?
			ORDER BY id`),
		uid, toMillis(from), toMillis(to),
	)
	if err != nil {
		return nil, wrap("list days in range", err)
	}
	return scanDays(rows)
}

func scanDays(rows *sql.Rows) ([]*domain.Day, error) {
	defer rows.Close()

	var days []*domain.Day
	for rows.Next() {
		var (
			id, userID, logID, date, createdAt int64
			amount                             float64
		)
		if err := rows.Scan(&id, &userID, &logID, &date, &amount, &createdAt); err != nil {
			return nil, wrap("scan day", err)
		}
		days = append(days, &domain.Day{
			ID:        formatID(id),
			UserID:    formatID(userID),
			LogID:     formatID(logID),
			Date:      fromMillis(date),
			Amount:    amount,
			CreatedAt: fromMillis(createdAt),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("iterate days", err)
	}
	return days, nil
}
