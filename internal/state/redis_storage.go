package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	stateKeyPrefix = "worktime:state:"

	fieldState     = "state"
	fieldUpdatedAt = "updated_at"
	// Dialog context values are stored as "ctx:<key>" fields.
	contextFieldPrefix = "ctx:"

	// DefaultTTL bounds how long an abandoned dialog is remembered.
	DefaultTTL = 30 * time.Minute
)

// RedisStorage keeps each dialog as a hash so replicas of the bot share it. Every write
// replaces the hash and restarts its TTL.
type RedisStorage struct {
	client redis.UniversalClient
	log    *slog.Logger
	ttl    time.Duration
}

func NewRedisStorage(client redis.UniversalClient, log *slog.Logger, ttl time.Duration) *RedisStorage {
	if log == nil {
		log = slog.Default()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStorage{client: client, log: log, ttl: ttl}
}

func (s *RedisStorage) GetState(ctx context.Context, userID int64) (*UserState, error) {
	fields, err := s.client.HGetAll(ctx, stateKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("state: load %d: %w", userID, err)
	}
	if len(fields) == 0 {
		return nil, ErrStateNotFound
	}

	return decodeState(userID, fields)
}

// SetState stamps UpdatedAt. Context values are stored as strings.
func (s *RedisStorage) SetState(ctx context.Context, userID int64, st *UserState) error {
	st.UpdatedAt = time.Now().UTC()
	key := stateKey(userID)

	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, key)
		p.HSet(ctx, key, encodeState(st))
		p.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("state: save %d: %w", userID, err)
	}
	return nil
}

func (s *RedisStorage) ClearState(ctx context.Context, userID int64) error {
	if err := s.client.Del(ctx, stateKey(userID)).Err(); err != nil {
		return fmt.Errorf("state: clear %d: %w", userID, err)
	}
	return nil
}

// GetAllStates lists every live dialog. Keys that do not hold a readable dialog are logged
// and skipped.
func (s *RedisStorage) GetAllStates(ctx context.Context) ([]*UserState, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, stateKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("state: scan: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(keys))
	_, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, key := range keys {
			cmds[i] = p.HGetAll(ctx, key)
		}
		return nil
	})
	var replyErr redis.Error
	if err != nil && !errors.As(err, &replyErr) {
		return nil, fmt.Errorf("state: load all: %w", err)
	}

	states := make([]*UserState, 0, len(keys))
	for i, cmd := range cmds {
		fields, err := cmd.Result()
		if err == nil && len(fields) == 0 {
			continue
		}

		var st *UserState
		if err == nil {
			st, err = decodeState(userIDFromKey(keys[i]), fields)
		}
		if err != nil {
			s.log.Warn("skipping unreadable dialog state", slog.String("key", keys[i]), slog.Any("error", err))
			continue
		}
		states = append(states, st)
	}
	return states, nil
}

func stateKey(userID int64) string {
	return stateKeyPrefix + strconv.FormatInt(userID, 10)
}

func userIDFromKey(key string) int64 {
	id, _ := strconv.ParseInt(strings.TrimPrefix(key, stateKeyPrefix), 10, 64)
	return id
}

func encodeState(st *UserState) map[string]any {
	fields := map[string]any{
		fieldState:     string(st.CurrentState),
		fieldUpdatedAt: st.UpdatedAt.Format(time.RFC3339Nano),
	}
	for k, v := range st.Context {
		fields[contextFieldPrefix+k] = fmt.Sprint(v)
	}
	return fields
}

func decodeState(userID int64, fields map[string]string) (*UserState, error) {
	current, ok := fields[fieldState]
	if !ok || current == "" {
		return nil, errors.New("state: hash has no state field")
	}

	updatedAt, err := time.Parse(time.RFC3339Nano, fields[fieldUpdatedAt])
	if err != nil {
		return nil, fmt.Errorf("state: bad %s: %w", fieldUpdatedAt, err)
	}

	st := &UserState{UserID: userID, CurrentState: State(current), UpdatedAt: updatedAt}
	for k, v := range fields {
		if name, ok := strings.CutPrefix(k, contextFieldPrefix); ok {
			if st.Context == nil {
				st.Context = make(map[string]interface{})
			}
			st.Context[name] = v
		}
	}
	return st, nil
}
