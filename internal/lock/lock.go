// Package lock provides per-key mutual exclusion, backed by Redis or held in process.
package lock

import (
	"context"
	"errors"
)

// ErrNotAcquired indicates the lock stayed busy until the wait deadline.
var ErrNotAcquired = errors.New("lock not acquired")

// Release frees a held lock. It is safe to call more than once.
type Release func()

// Locker grants exclusive scopes keyed by an arbitrary string.
type Locker interface {
	// Acquire blocks until the key is free, ctx is done or the locker's wait limit passes.
	Acquire(ctx context.Context, key string) (Release, error)
}

// WithLock runs fn while holding key.
func WithLock(ctx context.Context, l Locker, key string, fn func(ctx context.Context) error) error {
	release, err := l.Acquire(ctx, key)
	if err != nil {
		return err
	}
	defer release()

	return fn(ctx)
}
