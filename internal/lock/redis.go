package lock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultTTL          = 10 * time.Second
	defaultMaxWait      = 5 * time.Second
	defaultPollInterval = 25 * time.Millisecond
)

// releaseScript deletes the key only when it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisOptions tunes RedisLocker. Zero values fall back to defaults.
type RedisOptions struct {
	Prefix       string
	TTL          time.Duration
	MaxWait      time.Duration
	PollInterval time.Duration
}

// RedisLocker holds locks as SET NX keys carrying a random owner token, so that one
// process cannot release a lock that expired and was taken by another.
type RedisLocker struct {
	client *redis.Client
	log    *slog.Logger
	opts   RedisOptions
}

// NewRedisLocker constructs a Redis-backed Locker.
func NewRedisLocker(client *redis.Client, log *slog.Logger, opts RedisOptions) *RedisLocker {
	if log == nil {
		log = slog.Default()
	}
	if opts.Prefix == "" {
		opts.Prefix = "worktime:lock:"
	}
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	if opts.MaxWait <= 0 {
		opts.MaxWait = defaultMaxWait
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}

	return &RedisLocker{client: client, log: log, opts: opts}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (Release, error) {
	fullKey := l.opts.Prefix + key
	token := uuid.NewString()

	waitCtx, cancel := context.WithTimeout(ctx, l.opts.MaxWait)
	defer cancel()

	ticker := time.NewTicker(l.opts.PollInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(waitCtx, fullKey, token, l.opts.TTL).Result()
		if err != nil {
			if waitCtx.Err() != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrNotAcquired, key, waitCtx.Err())
			}
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			return l.releaser(fullKey, token), nil
		}

		select {
		case <-waitCtx.Done():
			return nil, fmt.Errorf("%w: %s: %w", ErrNotAcquired, key, waitCtx.Err())
		case <-ticker.C:
		}
	}
}

func (l *RedisLocker) releaser(fullKey, token string) Release {
	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()

			if err := releaseScript.Run(ctx, l.client, []string{fullKey}, token).Err(); err != nil {
				l.log.Error("failed to release lock", slog.String("key", fullKey), slog.Any("error", err))
			}
		})
	}
}
