package session

import (
	"context"
	"sync"
	"time"

	"github.com/bloggery/apiserver/internal/store"
	"github.com/bloggery/apiserver/types"
)

// MemoryStore is a map-backed Store. It serves tests and single-process
// deployments that do not need sessions to survive a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]types.Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]types.Session)}
}

func (s *MemoryStore) Create(ctx context.Context, session types.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.TokenHash] = session
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, tokenHash string) (types.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[tokenHash]
	if !ok {
		return types.Session{}, store.ErrNotFound
	}
	return session, nil
}

func (s *MemoryStore) Delete(ctx context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, tokenHash)
	return nil
}

func (s *MemoryStore) DeleteByUser(ctx context.Context, userID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for hash, session := range s.sessions {
		if session.UserID == userID {
			delete(s.sessions, hash)
		}
	}
	return nil
}

func (s *MemoryStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for hash, session := range s.sessions {
		if session.Expired(now) {
			delete(s.sessions, hash)
			deleted++
		}
	}
	return deleted, nil
}

// Len reports the number of stored sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
