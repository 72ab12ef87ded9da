// Package ratelimit throttles Telegram updates per user with sliding windows kept in Redis
// or in process memory.
package ratelimit

import (
	"context"
	"math"
	"time"
)

// Rule allows Limit events per Window.
type Rule struct {
	Limit  int
	Window time.Duration
}

func (r Rule) valid() bool {
	return r.Limit > 0 && r.Window > 0
}

// Decision is the outcome of one rate-limit check.
type Decision struct {
	Allowed   bool
	Remaining int
	// RetryAfter is how long a rejected caller should wait. Zero when allowed.
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds, never below one.
func (d Decision) RetryAfterSeconds() int {
	seconds := int(math.Ceil(d.RetryAfter.Seconds()))
	if seconds < 1 {
		return 1
	}
	return seconds
}

// Limiter records an event for key and reports whether it fits the rule. An error means the
// backend could not decide.
type Limiter interface {
	Allow(ctx context.Context, key string, rule Rule) (Decision, error)
}

func denyAll(rule Rule) Decision {
	return Decision{RetryAfter: rule.Window}
}
