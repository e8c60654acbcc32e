package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the default session store. Sessions live for the
// configured TTL and are dropped lazily on the next Get.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a new in-memory session store
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
	}
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}

	if s.ttl > 0 && time.Since(sess.CreatedAt) > s.ttl {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		return nil, ErrNotFound
	}

	copied := *sess
	return &copied, nil
}

func (s *MemoryStore) Set(_ context.Context, id string, sess *Session) error {
	copied := *sess
	if copied.CreatedAt.IsZero() {
		copied.CreatedAt = time.Now()
	}

	s.mu.Lock()
	s.sessions[id] = &copied
	s.mu.Unlock()
	return nil
}

// Len reports the number of stored sessions
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *MemoryStore) Clear(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

// CleanupExpired removes all sessions past the TTL and returns the count
func (s *MemoryStore) CleanupExpired(_ context.Context) (int, error) {
	if s.ttl <= 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for id, sess := range s.sessions {
		if time.Since(sess.CreatedAt) > s.ttl {
			delete(s.sessions, id)
			count++
		}
	}
	return count, nil
}
