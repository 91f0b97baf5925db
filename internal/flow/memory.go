package flow

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps flow state in a map. Expiry is lazy: stale entries
// are dropped on the next Get, so an abandoned flow cannot be resumed
// after its TTL even though the entry may linger until then.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[int64]memoryEntry
}

type memoryEntry struct {
	state     State
	expiresAt time.Time
}

// NewMemoryStore creates an empty in-memory flow store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[int64]memoryEntry)}
}

// Get returns the user's state, or nil when absent or expired.
func (s *MemoryStore) Get(ctx context.Context, userID int64) (*State, error) {
	s.mu.RLock()
	entry, ok := s.entries[userID]
	s.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	if time.Now().After(entry.expiresAt) {
		s.mu.Lock()
		// Re-check under the write lock: the entry may have been replaced.
		if cur, ok := s.entries[userID]; ok && time.Now().After(cur.expiresAt) {
			delete(s.entries, userID)
		}
		s.mu.Unlock()
		return nil, nil
	}

	state := entry.state
	return &state, nil
}

// Set replaces the user's state and resets its TTL.
func (s *MemoryStore) Set(ctx context.Context, userID int64, state *State, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[userID] = memoryEntry{
		state:     *state,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Clear removes the user's state, if any.
func (s *MemoryStore) Clear(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, userID)
	return nil
}
