package session

import (
	"context"
	"errors"
	"sync"
)

// ErrStoreUnavailable wraps backend failures of persistent stores.
var ErrStoreUnavailable = errors.New("session store unavailable")

// Store persists exactly one session. Get on an empty store returns the zero Session
// and a nil error; Clear is idempotent.
type Store interface {
	Get(ctx context.Context) (Session, error)
	Set(ctx context.Context, s Session) error
	Clear(ctx context.Context) error
}

// MemoryStore keeps the session in process memory.
type MemoryStore struct {
	mu sync.RWMutex
	s  Session
}

// NewMemoryStore returns a store seeded with initial.
func NewMemoryStore(initial Session) *MemoryStore {
	return &MemoryStore{s: initial}
}

func (m *MemoryStore) Get(context.Context) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.s, nil
}

func (m *MemoryStore) Set(_ context.Context, s Session) error {
	m.mu.Lock()
	m.s = s
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	m.s = Session{}
	m.mu.Unlock()
	return nil
}
