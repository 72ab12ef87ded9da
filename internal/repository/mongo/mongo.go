// Package mongo implements the repository contract on MongoDB.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/Proton-105/worktime-bot/internal/repository"
)

const defaultTimeout = 10 * time.Second

const (
	usersCollection = "users"
	logsCollection  = "logs"
	daysCollection  = "days"
)

// Config captures the settings required to establish a MongoDB connection.
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// Connect establishes a MongoDB client, verifies connectivity with a ping and
// returns both the client and the selected database.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, *mongo.Database, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(connectCtx)
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}

	return client, client.Database(cfg.Database), nil
}

// Store is a repository.Store backed by MongoDB collections.
type Store struct {
	client  *mongo.Client
	db      *mongo.Database
	timeout time.Duration

	users *userRepo
	logs  *logRepo
	days  *dayRepo
}

// New wraps an already selected database. Close disconnects the database's client.
func New(db *mongo.Database, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	s := &Store{client: db.Client(), db: db, timeout: timeout}
	s.users = &userRepo{s: s, col: db.Collection(usersCollection)}
	s.logs = &logRepo{s: s, col: db.Collection(logsCollection)}
	s.days = &dayRepo{s: s, col: db.Collection(daysCollection)}
	return s
}

func (s *Store) Users() repository.UserRepository { return s.users }
func (s *Store) Logs() repository.LogRepository   { return s.logs }
func (s *Store) Days() repository.DayRepository   { return s.days }

func (s *Store) HealthCheck(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes the repositories rely on. The partial unique index on
// logs keeps at most one open automatic session per user.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.users.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "telegram_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("users indexes: %w", err)
	}

	if _, err := s.logs.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().
				SetName("one_open_automatic").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"open": true}),
		},
		{Keys: bson.D{{Key: "open", Value: 1}, {Key: "in", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("logs indexes: %w", err)
	}

	if _, err := s.days.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "date", Value: 1}},
	}); err != nil {
		return fmt.Errorf("days indexes: %w", err)
	}

	return nil
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

var _ repository.Store = (*Store)(nil)
