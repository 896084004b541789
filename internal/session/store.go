// Package session stores conversation state between chat turns.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/bookline-ai/booking-agent/internal/model"
	"github.com/bookline-ai/booking-agent/pkg/metrics"
)

// Store holds conversation states keyed by session ID.
//
// Update owns the serialization guarantee: concurrent updates of one session
// run one at a time, while different sessions proceed in parallel. States are
// never evicted; a session ID always maps back to the same conversation.
type Store interface {
	// Get returns a copy of the session state, or false when the session
	// has never spoken.
	Get(ctx context.Context, sessionID string) (*model.ConversationState, bool)

	// Update runs fn against the canonical state under the session lock,
	// creating blank state on first contact. It returns a copy of the state
	// after fn, or fn's error.
	Update(ctx context.Context, sessionID string, fn func(*model.ConversationState) error) (*model.ConversationState, error)
}

type entry struct {
	mu    sync.Mutex
	state *model.ConversationState
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*entry),
	}
}

// Get returns a copy of the session state.
func (s *MemoryStore) Get(_ context.Context, sessionID string) (*model.ConversationState, bool) {
	s.mu.RLock()
	e, ok := s.entries[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone(), true
}

// Update applies fn to the session state. The session lock is held for the
// whole call, including any slow work fn does, which is what keeps a
// session's turns strictly ordered.
func (s *MemoryStore) Update(_ context.Context, sessionID string, fn func(*model.ConversationState) error) (*model.ConversationState, error) {
	e := s.entryFor(sessionID)

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := fn(e.state); err != nil {
		return nil, err
	}
	e.state.UpdatedAt = time.Now()
	return e.state.Clone(), nil
}

func (s *MemoryStore) entryFor(sessionID string) *entry {
	s.mu.RLock()
	e, ok := s.entries[sessionID]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.entries[sessionID]; ok {
		return e
	}
	e = &entry{state: model.NewConversationState(sessionID)}
	s.entries[sessionID] = e
	metrics.SessionsActive.Inc()
	return e
}

// Len reports how many sessions the store holds.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
