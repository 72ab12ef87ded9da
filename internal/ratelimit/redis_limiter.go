package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces the sliding-window sets.
const KeyPrefix = "worktime:ratelimit:"

// slidingWindow trims the set, adds the event only when it fits and returns
// {allowed, count, oldest score}. Scores are unix milliseconds.
var slidingWindow = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', now - window)
local count = redis.call('ZCARD', KEYS[1])
local allowed = 0
if count < limit then
	redis.call('ZADD', KEYS[1], now, ARGV[4])
	count = count + 1
	allowed = 1
end
redis.call('PEXPIRE', KEYS[1], window * 2)

local oldest = now
local first = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
if first[2] then
	oldest = tonumber(first[2])
end
return {allowed, count, oldest}
`)

// RedisLimiter shares sliding windows between bot replicas through Redis sorted sets.
type RedisLimiter struct {
	client redis.Scripter
	now    func() time.Time
}

var _ Limiter = (*RedisLimiter)(nil)

// NewRedisLimiter creates a Redis-backed limiter. A nil clock means time.Now.
func NewRedisLimiter(client redis.Scripter, now func() time.Time) *RedisLimiter {
	if now == nil {
		now = time.Now
	}
	return &RedisLimiter{client: client, now: now}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, rule Rule) (Decision, error) {
	if !rule.valid() {
		return denyAll(rule), nil
	}

	now := l.now().UnixMilli()
	window := rule.Window.Milliseconds()

	res, err := slidingWindow.Run(ctx, l.client, []string{KeyPrefix + key},
		now, window, rule.Limit, uuid.NewString()).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit: redis window %s: %w", key, err)
	}
	if len(res) != 3 {
		return Decision{}, fmt.Errorf("ratelimit: redis window %s: unexpected reply %v", key, res)
	}

	if res[0] == 0 {
		wait := time.Duration(res[2]+window-now) * time.Millisecond
		return Decision{RetryAfter: wait}, nil
	}
	return Decision{Allowed: true, Remaining: rule.Limit - int(res[1])}, nil
}
