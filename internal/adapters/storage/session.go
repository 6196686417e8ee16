package storage

import (
	"context"
	"sync"

	"github.com/jsamuelsen/quote-sync/internal/domain"
)

// SessionStore is the ephemeral key/value store. It holds per-session state
// such as the last displayed quote and the session start instant, and is
// discarded when the process ends.
type SessionStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewSessionStore creates an empty session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		values: make(map[string]string),
	}
}

// Get retrieves the value for key.
// Returns domain.ErrNotFound when the key is absent.
func (s *SessionStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[key]
	if !ok {
		return "", domain.NewNotFoundError("key", key)
	}

	return value, nil
}

// Set stores value under key, overwriting any previous value.
func (s *SessionStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value

	return nil
}

// Has reports whether key exists.
func (s *SessionStore) Has(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.values[key]

	return ok, nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *SessionStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)

	return nil
}
