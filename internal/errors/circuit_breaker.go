package errors

import (
	"errors"
	"sync"
	"time"
)

type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

var (
	// ErrCircuitOpen is returned without calling the guarded function while the breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker is open")
	errProbesInUse = errors.New("circuit breaker is probing")
)

// BreakerSettings tunes a CircuitBreaker. Zero fields take the defaults.
type BreakerSettings struct {
	// FailureRatio opens the breaker once failures/requests reaches it.
	FailureRatio float64
	// MinRequests is the sample size needed before FailureRatio is evaluated.
	MinRequests int
	// OpenFor is how long the breaker rejects calls before probing.
	OpenFor time.Duration
	// Probes is the number of trial calls admitted while half-open.
	Probes int
	// OnChange is invoked after every state change, outside the breaker lock.
	OnChange func(from, to BreakerState)
	Now      func() time.Time
}

func (s BreakerSettings) withDefaults() BreakerSettings {
	if s.FailureRatio <= 0 || s.FailureRatio > 1 {
		s.FailureRatio = 0.5
	}
	if s.MinRequests <= 0 {
		s.MinRequests = 10
	}
	if s.OpenFor <= 0 {
		s.OpenFor = 30 * time.Second
	}
	if s.Probes <= 0 {
		s.Probes = 3
	}
	if s.Now == nil {
		s.Now = time.Now
	}
	return s
}

// CircuitBreaker stops calling a failing dependency for a while and then lets a few probe
// calls through to decide whether it recovered.
type CircuitBreaker struct {
	settings BreakerSettings

	mu       sync.Mutex
	state    BreakerState
	requests int
	failures int
	inFlight int
	openedAt time.Time
}

func NewCircuitBreaker(settings BreakerSettings) *CircuitBreaker {
	return &CircuitBreaker{settings: settings.withDefaults()}
}

// Call runs fn unless the breaker rejects it. Errors returned by fn count as failures.
func (cb *CircuitBreaker) Call(fn func() error) error {
	if fn == nil {
		return nil
	}

	if err := cb.admit(); err != nil {
		return err
	}

	err := fn()
	cb.record(err == nil)
	return err
}

func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()

	var changed func()
	if cb.state == BreakerOpen {
		if cb.settings.Now().Sub(cb.openedAt) < cb.settings.OpenFor {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
		changed = cb.setLocked(BreakerHalfOpen)
	}

	if cb.state == BreakerHalfOpen {
		if cb.inFlight >= cb.settings.Probes {
			cb.mu.Unlock()
			notify(changed)
			return errProbesInUse
		}
		cb.inFlight++
	}

	cb.mu.Unlock()
	notify(changed)
	return nil
}

func (cb *CircuitBreaker) record(ok bool) {
	cb.mu.Lock()

	var changed func()
	switch cb.state {
	case BreakerHalfOpen:
		cb.inFlight--
		switch {
		case !ok:
			changed = cb.setLocked(BreakerOpen)
		default:
			cb.requests++
			if cb.requests >= cb.settings.Probes {
				changed = cb.setLocked(BreakerClosed)
			}
		}
	case BreakerClosed:
		cb.requests++
		if !ok {
			cb.failures++
		}
		if cb.requests >= cb.settings.MinRequests &&
			float64(cb.failures)/float64(cb.requests) >= cb.settings.FailureRatio {
			changed = cb.setLocked(BreakerOpen)
		}
	}

	cb.mu.Unlock()
	notify(changed)
}

// setLocked switches state, resets the counters and returns the deferred notification.
func (cb *CircuitBreaker) setLocked(to BreakerState) func() {
	from := cb.state
	cb.state = to
	cb.requests, cb.failures, cb.inFlight = 0, 0, 0
	if to == BreakerOpen {
		cb.openedAt = cb.settings.Now()
	}

	if cb.settings.OnChange == nil || from == to {
		return nil
	}
	onChange := cb.settings.OnChange
	return func() { onChange(from, to) }
}

func notify(fn func()) {
	if fn != nil {
		fn()
	}
}
