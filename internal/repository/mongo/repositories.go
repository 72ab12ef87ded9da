package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Proton-105/worktime-bot/internal/domain"
	"github.com/Proton-105/worktime-bot/internal/repository"
)

type userDoc struct {
	ID         primitive.ObjectID `bson:"_id"`
	TelegramID int64              `bson:"telegram_id"`
	Name       string             `bson:"name"`
	CreatedAt  time.Time          `bson:"created_at"`
}

type logDoc struct {
	ID     primitive.ObjectID `bson:"_id"`
	UserID string             `bson:"user_id"`
	In     time.Time          `bson:"in"`
	Out    *time.Time         `bson:"out,omitempty"`
	Kind   string             `bson:"kind"`
	Open   bool               `bson:"open"`
}

type dayDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	UserID    string             `bson:"user_id"`
	LogID     string             `bson:"log_id"`
	Date      time.Time          `bson:"date"`
	Amount    float64            `bson:"amount"`
	CreatedAt time.Time          `bson:"created_at"`
}

func (d logDoc) toDomain() *domain.Log {
	entry := &domain.Log{
		ID:     d.ID.Hex(),
		UserID: d.UserID,
		In:     d.In,
		Kind:   domain.LogKind(d.Kind),
	}
	if d.Out != nil {
		out := *d.Out
		entry.Out = &out
	}
	return entry
}

func (d dayDoc) toDomain() *domain.Day {
	return &domain.Day{
		ID:        d.ID.Hex(),
		UserID:    d.UserID,
		LogID:     d.LogID,
		Date:      d.Date,
		Amount:    d.Amount,
		CreatedAt: d.CreatedAt,
	}
}

var byInsertion = options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})

type userRepo struct {
	s   *Store
	col *mongo.Collection
}

func (r *userRepo) Create(ctx context.Context, user *domain.User) error {
	ctx, cancel := r.s.withTimeout(ctx)
	defer cancel()

	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}

	doc := userDoc{
		ID:         primitive.NewObjectID(),
		TelegramID: user.TelegramID,
		Name:       user.Name,
		CreatedAt:  user.CreatedAt.UTC(),
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}

	user.ID = doc.ID.Hex()
	return nil
}

func (r *userRepo) FindByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	ctx, cancel := r.s.withTimeout(ctx)
	defer cancel()

	var doc userDoc
	err := r.col.FindOne(ctx, bson.M{"telegram_id": telegramID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	return &domain.User{
		ID:         doc.ID.Hex(),
		TelegramID: doc.TelegramID,
		Name:       doc.Name,
		CreatedAt:  doc.CreatedAt,
	}, nil
}

type logRepo struct {
	s   *Store
	col *mongo.Collection
}

func (r *logRepo) Create(ctx context.Context, entry *domain.Log) error {
	ctx, cancel := r.s.withTimeout(ctx)
	defer cancel()

	doc := logDoc{
		ID:     primitive.NewObjectID(),
		UserID: entry.UserID,
		In:     entry.In.UTC(),
		Kind:   string(entry.Kind),
		Open:   entry.Kind == domain.LogKindAutomatic && entry.Out == nil,
	}
	if entry.Out != nil {
		out := entry.Out.UTC()
		doc.Out = &out
	}

	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert log: %w", err)
	}

	entry.ID = doc.ID.Hex()
	return nil
}

func (r *logRepo) FindOpen(ctx context.Context, userID string) (*domain.Log, error) {
	ctx, cancel := r.s.withTimeout(ctx)
	defer cancel()

	var doc logDoc
	err := r.col.FindOne(ctx,
		bson.M{"user_id": userID, "open": true},
		options.FindOne().SetSort(bson.D{{Key: "_id", Value: -1}}),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find open log: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *logRepo) Close(ctx context.Context, id string, out time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return repository.ErrNotFound
	}

	ctx, cancel := r.s.withTimeout(ctx)
	defer cancel()

	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": oid, "out": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"out": out.UTC(), "open": false}},
	)
	if err != nil {
		return fmt.Errorf("close log: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *logRepo) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return repository.ErrNotFound
	}

	ctx, cancel := r.s.withTimeout(ctx)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete log: %w", err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *logRepo) ListOpenBefore(ctx context.Context, t time.Time) ([]*domain.Log, error) {
	ctx, cancel := r.s.withTimeout(ctx)
	defer cancel()

	cur, err := r.col.Find(ctx, bson.M{"open": true, "in": bson.M{"$lt": t.UTC()}}, byInsertion)
	if err != nil {
		return nil, fmt.Errorf("list open logs: %w", err)
	}

	var docs []logDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode logs: %w", err)
	}

	entries := make([]*domain.Log, 0, len(docs))
	for _, d := range docs {
		entries = append(entries, d.toDomain())
	}
	return entries, nil
}

func (r *logRepo) CountOpen(ctx context.Context) (int64, error) {
	ctx, cancel := r.s.withTimeout(ctx)
	defer cancel()

	n, err := r.col.CountDocuments(ctx, bson.M{"open": true})
	if err != nil {
		return 0, fmt.Errorf("count open logs: %w", err)
	}
	return n, nil
}

type dayRepo struct {
	s   *Store
	col *mongo.Collection
}

func (r *dayRepo) Create(ctx context.Context, day *domain.Day) error {
	ctx, cancel := r.s.withTimeout(ctx)
	defer cancel()

	if day.CreatedAt.IsZero() {
		day.CreatedAt = time.Now()
	}

	doc := dayDoc{
		ID:        primitive.NewObjectID(),
		UserID:    day.UserID,
		LogID:     day.LogID,
		Date:      day.Date.UTC(),
		Amount:    day.Amount,
		CreatedAt: day.CreatedAt.UTC(),
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert day: %w", err)
	}

	day.ID = doc.ID.Hex()
	return nil
}

func (r *dayRepo) ListByUser(ctx context.Context, userID string) ([]*domain.Day, error) {
	return r.find(ctx, bson.M{"user_id": userID})
}

func (r *dayRepo) ListByUserBetween(ctx context.Context, userID string, from, to time.Time) ([]*domain.Day, error) {
	return r.find(ctx, bson.M{
		"user_id": userID,
		"date":    bson.M{"$gte": from.UTC(), "$lte": to.UTC()},
	})
}

func (r *dayRepo) find(ctx context.Context, filter bson.M) ([]*domain.Day, error) {
	ctx, cancel := r.s.withTimeout(ctx)
	defer cancel()

	cur, err := r.col.Find(ctx, filter, byInsertion)
	if err != nil {
		return nil, fmt.Errorf("find days: %w", err)
	}

	var docs []dayDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode days: %w", err)
	}

	days := make([]*domain.Day, 0, len(docs))
	for _, d := range docs {
		days = append(days, d.toDomain())
	}
	return days, nil
}
