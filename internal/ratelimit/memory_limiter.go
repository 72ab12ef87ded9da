package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter keeps a log of event times per key in process memory.
type MemoryLimiter struct {
	now func() time.Time

	mu     sync.Mutex
	events map[string][]time.Time
}

var _ Limiter = (*MemoryLimiter)(nil)

// NewMemoryLimiter returns an empty in-memory limiter. A nil clock means time.Now.
func NewMemoryLimiter(now func() time.Time) *MemoryLimiter {
	if now == nil {
		now = time.Now
	}
	return &MemoryLimiter{now: now, events: make(map[string][]time.Time)}
}

// Allow never fails.
func (m *MemoryLimiter) Allow(_ context.Context, key string, rule Rule) (Decision, error) {
	if !rule.valid() {
		return denyAll(rule), nil
	}

	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	log := dropBefore(m.events[key], now.Add(-rule.Window))
	if len(log) >= rule.Limit {
		m.events[key] = log
		return Decision{RetryAfter: log[0].Add(rule.Window).Sub(now)}, nil
	}

	log = append(log, now)
	m.events[key] = log
	return Decision{Allowed: true, Remaining: rule.Limit - len(log)}, nil
}

// Cleanup forgets keys without events in the last maxAge and returns how many were dropped.
func (m *MemoryLimiter) Cleanup(maxAge time.Duration) int {
	if maxAge <= 0 {
		return 0
	}
	cutoff := m.now().Add(-maxAge)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, log := range m.events {
		if len(log) == 0 || !log[len(log)-1].After(cutoff) {
			delete(m.events, key)
			removed++
		}
	}
	return removed
}

// dropBefore removes events at or before cutoff. log is sorted by time.
func dropBefore(log []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(log) && !log[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return log
	}
	return append(log[:0], log[i:]...)
}
