package lifecycle

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// HealthChecker exposes liveness and readiness probes.
type HealthChecker interface {
	Liveness(ctx context.Context) error
	Readiness(ctx context.Context) error
}

// ReadinessCheck reports whether dependencies can serve traffic.
type ReadinessCheck interface {
	Ready(ctx context.Context) error
}

// Probes answers liveness from the process state and readiness from the dependency checks.
type Probes struct {
	log      *slog.Logger
	ready    ReadinessCheck
	draining atomic.Bool
}

// NewProbes creates a new Probes instance. A nil ready check always passes.
func NewProbes(log *slog.Logger, ready ReadinessCheck) *Probes {
	if log == nil {
		log = slog.Default()
	}
	return &Probes{log: log, ready: ready}
}

// Liveness reports success while the process is running.
func (p *Probes) Liveness(ctx context.Context) error {
	p.log.Debug("liveness probe called")
	return nil
}

// Readiness fails once shutdown started or when any dependency check fails.
func (p *Probes) Readiness(ctx context.Context) error {
	if p.draining.Load() {
		return ErrShuttingDown
	}
	if p.ready == nil {
		return nil
	}
	if err := p.ready.Ready(ctx); err != nil {
		p.log.Warn("readiness probe failed", slog.Any("error", err))
		return err
	}
	return nil
}

// Drain marks the process as shutting down.
func (p *Probes) Drain() {
	p.draining.Store(true)
}
