package lifecycle

import (
	"context"
	"errors"
)

// ErrShuttingDown is returned by readiness probes after Drain.
var ErrShuttingDown = errors.New("shutting down")

// Hook describes a named shutdown hook.
type Hook struct {
	Name string
	Fn   func(ctx context.Context) error
}

// CloserHook adapts a plain Close method.
func CloserHook(name string, closeFn func() error) Hook {
	return Hook{Name: name, Fn: func(context.Context) error { return closeFn() }}
}
