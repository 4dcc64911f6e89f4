package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps window state in process memory
type MemoryStore struct {
	mu     sync.Mutex
	states map[string]State
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]State)}
}

// Take implements StateStore
func (m *MemoryStore) Take(_ context.Context, key string, limit int64, window time.Duration, now time.Time) (State, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, ok := nextState(m.states[key], limit, window, now)
	m.states[key] = next
	return next, ok, nil
}

// Get returns the stored state for key
func (m *MemoryStore) Get(key string) (State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[key]
	return s, ok
}

var _ StateStore = (*MemoryStore)(nil)
