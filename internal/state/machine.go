package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Proton-105/worktime-bot/internal/lock"
)

const userLockKeyPattern = "state:%d"

var (
	// ErrInvalidTransition indicates that a requested FSM transition is not allowed.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrStateNotFound indicates that a user state record does not exist.
	ErrStateNotFound = errors.New("user state not found")
	// ErrStateLocked indicates that a concurrent operation already holds the lock.
	ErrStateLocked = errors.New("state is locked, try again later")
)

var transitionRecorder = func(from, to string) {}

// RegisterTransitionRecorder allows external packages to observe FSM transitions.
func RegisterTransitionRecorder(recorder func(from, to string)) {
	if recorder == nil {
		transitionRecorder = func(string, string) {}
		return
	}

	transitionRecorder = recorder
}

// StateMachine describes the operations supported by the FSM controller.
type StateMachine interface {
	GetState(ctx context.Context, userID int64) (*UserState, error)
	SetState(ctx context.Context, userID int64, state State, contextData map[string]interface{}) error
	TransitionTo(ctx context.Context, userID int64, newState State, contextData map[string]interface{}) error
	ClearState(ctx context.Context, userID int64) error
	GetAllStates(ctx context.Context) ([]*UserState, error)
}

// machine is a concrete implementation of StateMachine backed by Storage and a per-user lock.
type machine struct {
	storage Storage
	log     *slog.Logger
	locker  lock.Locker
}

// NewStateMachine creates a FSM controller. locker may be nil, in which case writes are not serialised.
func NewStateMachine(storage Storage, log *slog.Logger, locker lock.Locker) StateMachine {
	if log == nil {
		log = slog.Default()
	}

	return &machine{
		storage: storage,
		log:     log,
		locker:  locker,
	}
}

// GetState proxies to the underlying storage implementation.
func (m *machine) GetState(ctx context.Context, userID int64) (*UserState, error) {
	return m.storage.GetState(ctx, userID)
}

// GetAllStates returns every persisted user state.
func (m *machine) GetAllStates(ctx context.Context) ([]*UserState, error) {
	return m.storage.GetAllStates(ctx)
}

// SetState composes a UserState and persists it under the user lock.
func (m *machine) SetState(ctx context.Context, userID int64, state State, contextData map[string]interface{}) error {
	release, err := m.lock(ctx, userID)
	if err != nil {
		return err
	}
	defer release()

	return m.saveState(ctx, userID, state, contextData)
}

// TransitionTo changes the state if the transition is allowed, guarded by the user lock.
func (m *machine) TransitionTo(ctx context.Context, userID int64, newState State, contextData map[string]interface{}) error {
	release, err := m.lock(ctx, userID)
	if err != nil {
		return err
	}
	defer release()

	current := StateIdle

	storedState, err := m.storage.GetState(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrStateNotFound) {
			return err
		}
	} else if storedState != nil {
		current = storedState.CurrentState
	}

	if !IsTransitionAllowed(current, newState) {
		m.log.Warn("invalid state transition", "user_id", userID, "from", current, "to", newState)
		return ErrInvalidTransition
	}

	transitionRecorder(string(current), string(newState))

	if newState == StateIdle {
		return m.storage.ClearState(ctx, userID)
	}

	return m.saveState(ctx, userID, newState, contextData)
}

// ClearState removes the stored state while holding the lock.
func (m *machine) ClearState(ctx context.Context, userID int64) error {
	release, err := m.lock(ctx, userID)
	if err != nil {
		return err
	}
	defer release()

	return m.storage.ClearState(ctx, userID)
}

func (m *machine) saveState(ctx context.Context, userID int64, state State, contextData map[string]interface{}) error {
	userState := &UserState{
		UserID:       userID,
		CurrentState: state,
		Context:      contextData,
	}

	return m.storage.SetState(ctx, userID, userState)
}

func (m *machine) lock(ctx context.Context, userID int64) (lock.Release, error) {
	if m.locker == nil {
		return func() {}, nil
	}

	release, err := m.locker.Acquire(ctx, fmt.Sprintf(userLockKeyPattern, userID))
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			m.log.Warn("user state lock already held", "user_id", userID)
			return nil, ErrStateLocked
		}
		m.log.Error("failed to acquire user state lock", "user_id", userID, "error", err)
		return nil, err
	}

	return release, nil
}
