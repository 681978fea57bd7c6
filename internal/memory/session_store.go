package memory

import (
	"context"
	"sync"

	"pythia/internal/domain/session"
)

// SessionStore implements session.Repository with an in-process map.
// Records survive exactly as long as the process: conversational memory
// is best-effort, not durable state.
type SessionStore struct {
	mu       sync.RWMutex
	contexts map[string]*session.Context
}

// NewSessionStore creates an empty session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		contexts: make(map[string]*session.Context),
	}
}

// Get returns the context for a session id, creating an empty record on
// first reference. A looked-up id always maps to some record afterwards.
func (s *SessionStore) Get(_ context.Context, sessionID string) (session.Context, error) {
	s.mu.RLock()
	if c, ok := s.contexts[sessionID]; ok {
		snap := c.Snapshot()
		s.mu.RUnlock()
		return snap, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.contexts[sessionID]; ok {
		return c.Snapshot(), nil
	}
	c := &session.Context{}
	s.contexts[sessionID] = c
	return c.Snapshot(), nil
}

// Update merges the set fields of the partial into the record, creating it
// if absent. Replace-by-key semantics: each set field overwrites wholesale.
func (s *SessionStore) Update(_ context.Context, sessionID string, partial session.Partial) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.contexts[sessionID]
	if !ok {
		c = &session.Context{}
		s.contexts[sessionID] = c
	}
	partial.Apply(c)
	return nil
}

// Clear removes the record entirely; a subsequent Get recreates it empty.
func (s *SessionStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.contexts, sessionID)
	return nil
}

// Len returns the number of live session records.
func (s *SessionStore) Len(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.contexts), nil
}
