package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Proton-105/worktime-bot/internal/domain"
	"github.com/Proton-105/worktime-bot/internal/repository"
)

const logColumns = `id, user_id, in_at, out_at, kind`

type logRepo struct{ s *Store }

func (r *logRepo) Create(ctx context.Context, entry *domain.Log) error {
	userID, ok := parseID(entry.UserID)
	if !ok {
		return wrap("insert log", repository.ErrNotFound)
	}

	ctx, cancel := r.s.withTimeout(ctx)
	defer cancel()

	var out sql.NullInt64
	if entry.Out != nil {
		out = sql.NullInt64{Int64: toMillis(*entry.Out), Valid: true}
	}

	var id int64
	err := r.s.db.QueryRowContext(ctx,
		r.s.q(`INSERT INTO logs (user_id, in_at, out_at, kind) VALUES (?, ?, ?, ?) RETURNING id`),
		userID, toMillis(entry.In), out, string(entry.Kind),
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return wrap("insert log", err)
	}

	entry.ID = formatID(id)
	return nil
}

func (r *logRepo) FindOpen(ctx context.Context, userID string) (*domain.Log, error) {
	uid, ok := parseID(userID)
	if !ok {
		return nil, repository.ErrNotFound
	}

	ctx, cancel := r.s.withTimeout(ctx)
	defer cancel()

	row := r.s.db.QueryRowContext(ctx,
		r.s.q(`SELECT `+logColumns+` FROM logs
			WHERE user_id = ? AND kind = ? AND out_at IS NULL
			ORDER BY id DESC LIMIT 1`),
		uid, string(domain.LogKindAutomatic),
	)

	entry, err := scanLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, wrap("select open log", err)
	}
	return entry, nil
}

func (r *logRepo) Close(ctx context.Context, id string, out time.Time) error {
	lid, ok := parseID(id)
	if !ok {
		return repository.ErrNotFound
	}

	ctx, cancel := r.s.withTimeout(ctx)
	defer cancel()

	res, err := r.s.db.ExecContext(ctx,
		r.s.q(`UPDATE logs SET out_at = ? WHERE id = ? AND out_at IS NULL`),
		toMillis(out), lid,
	)
	if err != nil {
		return wrap("close log", err)
	}
	return expectOneRow(res, "close log")
}

func (r *logRepo) Delete(ctx context.Context, id string) error {
	lid, ok := parseID(id)
	if !ok {
		return repository.ErrNotFound
	}

	ctx, cancel := r.s.withTimeout(ctx)
	defer cancel()

	res, err := r.s.db.ExecContext(ctx, r.s.q(`DELETE FROM logs WHERE id = ?`), lid)
	if err != nil {
		return wrap("delete log", err)
	}
	return expectOneRow(res, "delete log")
}

func (r *logRepo) ListOpenBefore(ctx context.Context, t time.Time) ([]*domain.Log, error) {
	ctx, cancel := r.s.withTimeout(ctx)
	defer cancel()

	rows, err := r.s.db.QueryContext(ctx,
		r.s.q(`SELECT `+logColumns+` FROM logs
			WHERE kind = ? AND out_at IS NULL AND in_at < ?
			ORDER BY id`),
		string(domain.LogKindAutomatic), toMillis(t),
	)
	if err != nil {
		return nil, wrap("list open logs", err)
	}
	defer rows.Close()

	var entries []*domain.Log
	for rows.Next() {
		entry, err := scanLog(rows)
		if err != nil {
			return nil, wrap("scan log", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("iterate logs", err)
	}
	return entries, nil
}

func (r *logRepo) CountOpen(ctx context.Context) (int64, error) {
	ctx, cancel := r.s.withTimeout(ctx)
	defer cancel()

	var n int64
	err := r.s.db.QueryRowContext(ctx,
		r.s.q(`SELECT COUNT(*) FROM logs WHERE kind = ? AND out_at IS NULL`),
		string(domain.LogKindAutomatic),
	).Scan(&n)
	if err != nil {
		return 0, wrap("count open logs", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLog(row rowScanner) (*domain.Log, error) {
	var (
		id, userID, in int64
		out            sql.NullInt64
		kind           string
	)
	if err := row.Scan(&id, &userID, &in, &out, &kind); err != nil {
		return nil, err
	}

	entry := &domain.Log{
		ID:     formatID(id),
		UserID: formatID(userID),
		In:     fromMillis(in),
		Kind:   domain.LogKind(kind),
	}
	if out.Valid {
		t := fromMillis(out.Int64)
		entry.Out = &t
	}
	return entry, nil
}

func expectOneRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return wrap(op, err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
