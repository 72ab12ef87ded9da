package state

import (
	"context"
	"sync"
	"time"
)

// MemoryStorage keeps dialog states in process when Redis is disabled.
type MemoryStorage struct {
	mu     sync.Mutex
	states map[int64]*UserState
	ttl    time.Duration
	now    func() time.Time
}

// NewMemoryStorage returns an empty in-process Storage whose entries expire after ttl.
func NewMemoryStorage(ttl time.Duration) *MemoryStorage {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStorage{states: make(map[int64]*UserState), ttl: ttl, now: time.Now}
}

func (s *MemoryStorage) GetState(_ context.Context, userID int64) (*UserState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[userID]
	if !ok {
		return nil, ErrStateNotFound
	}
	if s.expiredLocked(st) {
		delete(s.states, userID)
		return nil, ErrStateNotFound
	}

	return cloneState(st), nil
}

func (s *MemoryStorage) SetState(_ context.Context, userID int64, st *UserState) error {
	st.UpdatedAt = s.now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.states[userID] = cloneState(st)
	return nil
}

func (s *MemoryStorage) ClearState(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.states, userID)
	return nil
}

func (s *MemoryStorage) GetAllStates(context.Context) ([]*UserState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]*UserState, 0, len(s.states))
	for userID, st := range s.states {
		if s.expiredLocked(st) {
			delete(s.states, userID)
			continue
		}
		result = append(result, cloneState(st))
	}
	return result, nil
}

func (s *MemoryStorage) expiredLocked(st *UserState) bool {
	return s.now().Sub(st.UpdatedAt) > s.ttl
}

func cloneState(state *UserState) *UserState {
	if state == nil {
		return nil
	}

	copyState := *state
	if state.Context != nil {
		ctxCopy := make(map[string]interface{}, len(state.Context))
		for k, v := range state.Context {
			ctxCopy[k] = v
		}
		copyState.Context = ctxCopy
	}
	return &copyState
}
