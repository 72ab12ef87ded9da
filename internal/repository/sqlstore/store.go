// Package sqlstore implements the repository contract on Postgres (lib/pq) and SQLite (modernc).
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/Proton-105/worktime-bot/internal/database"
	"github.com/Proton-105/worktime-bot/internal/repository"
)

const defaultTimeout = 5 * time.Second

// Store is a repository.Store backed by database/sql.
type Store struct {
	db      *sql.DB
	dialect database.Dialect
	timeout time.Duration

	users *userRepo
	logs  *logRepo
	days  *dayRepo
}

// New wraps an open connection. The schema must already be migrated.
func New(db *sql.DB, dialect database.Dialect, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	s := &Store{db: db, dialect: dialect, timeout: timeout}
	s.users = &userRepo{s}
	s.logs = &logRepo{s}
	s.days = &dayRepo{s}
	return s
}

func (s *Store) Users() repository.UserRepository { return s.users }
func (s *Store) Logs() repository.LogRepository   { return s.logs }
func (s *Store) Days() repository.DayRepository   { return s.days }

// DB exposes the underlying connection for migrations.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) HealthCheck(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.db.PingContext(ctx)
}

func (s *Store) Close(context.Context) error {
	return s.db.Close()
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Store) q(query string) string {
	return s.dialect.Rebind(query)
}

// isUniqueViolation recognises unique constraint errors from both drivers.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}

	return false
}

func parseID(id string) (int64, bool) {
	n, err := strconv.ParseInt(id, 10, 64)
	return n, err == nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func wrap(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}

var _ repository.Store = (*Store)(nil)
