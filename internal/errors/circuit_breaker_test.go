package errors

import (
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type breakerClock struct{ now time.Time }

func (c *breakerClock) Now() time.Time { return c.now }

func failing() error { return stderrors.New("down") }
func healthy() error { return nil }

func TestCircuitBreaker_OpensOnFailureRatio(t *testing.T) {
	var changes []string
	cb := NewCircuitBreaker(BreakerSettings{
		MinRequests: 4,
		OnChange:    func(from, to BreakerState) { changes = append(changes, from.String()+">"+to.String()) },
	})

	_ = cb.Call(healthy)
	_ = cb.Call(failing)
	_ = cb.Call(healthy)
	assert.Equal(t, BreakerClosed, cb.State())

	_ = cb.Call(failing)
	assert.Equal(t, BreakerOpen, cb.State())
	assert.Equal(t, []string{"closed>open"}, changes)

	called := false
	err := cb.Call(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_StaysClosedOnSuccess(t *testing.T) {
	cb := NewCircuitBreaker(BreakerSettings{})

	for i := 0; i < 25; i++ {
		assert.NoError(t, cb.Call(healthy))
	}

	assert.Equal(t, BreakerClosed, cb.State())
	assert.NoError(t, cb.Call(nil))
}

func TestCircuitBreaker_RecoversThroughProbes(t *testing.T) {
	clock := &breakerClock{now: time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC)}
	cb := NewCircuitBreaker(BreakerSettings{MinRequests: 2, OpenFor: time.Minute, Probes: 2, Now: clock.Now})

	_ = cb.Call(failing)
	_ = cb.Call(failing)
	assert.Equal(t, BreakerOpen, cb.State())

	clock.now = clock.now.Add(30 * time.Second)
	assert.ErrorIs(t, cb.Call(healthy), ErrCircuitOpen)

	clock.now = clock.now.Add(31 * time.Second)
	assert.NoError(t, cb.Call(healthy))
	assert.Equal(t, BreakerHalfOpen, cb.State())

	assert.NoError(t, cb.Call(healthy))
	assert.Equal(t, BreakerClosed, cb.State())
}

func TestCircuitBreaker_FailedProbeReopens(t *testing.T) {
	clock := &breakerClock{now: time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC)}
	cb := NewCircuitBreaker(BreakerSettings{MinRequests: 1, OpenFor: time.Minute, Now: clock.Now})

	_ = cb.Call(failing)
	clock.now = clock.now.Add(time.Minute)

	assert.Error(t, cb.Call(failing))
	assert.Equal(t, BreakerOpen, cb.State())
	assert.ErrorIs(t, cb.Call(healthy), ErrCircuitOpen)
}
