package bot

import (
	"context"
	"errors"
	"sync"

	"github.com/Proton-105/worktime-bot/internal/bot/handlers"
	"github.com/Proton-105/worktime-bot/internal/state"
)

// Dispatcher routes plain text to the handler of the sender's dialog state.
type Dispatcher struct {
	fsm           state.StateMachine
	stateHandlers map[state.State]handlers.Handler
	mu            sync.RWMutex
}

// NewDispatcher creates a Dispatcher with an empty handlers registry. A nil fsm
// disables state dispatch.
func NewDispatcher(fsm state.StateMachine) *Dispatcher {
	return &Dispatcher{
		fsm:           fsm,
		stateHandlers: make(map[state.State]handlers.Handler),
	}
}

// RegisterStateHandler registers a handler for the provided state.
func (d *Dispatcher) RegisterStateHandler(s state.State, h handlers.Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stateHandlers[s] = h
}

// HandlerFor returns the handler registered for the user's current state, or nil when the
// user is idle or the state has no handler.
func (d *Dispatcher) HandlerFor(ctx context.Context, userID int64) (handlers.Handler, error) {
	if d == nil || d.fsm == nil {
		return nil, nil
	}

	userState, err := d.fsm.GetState(ctx, userID)
	if err != nil {
		if errors.Is(err, state.ErrStateNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if userState == nil {
		return nil, nil
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.stateHandlers[userState.CurrentState], nil
}
