package memory

import (
	"context"
	"sync"
	"time"

	"github.com/quorumsec/trustd/internal/trust/domain"
	"github.com/quorumsec/trustd/internal/trust/store"
)

// Sessions is a mutex-guarded map of pending login sessions keyed by
// CSRF state.
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]domain.LoginSession
}

// NewSessions creates an empty in-memory session store.
func NewSessions() *Sessions {
	return &Sessions{sessions: make(map[string]domain.LoginSession)}
}

// Put stores a session under its state.
func (s *Sessions) Put(_ context.Context, session domain.LoginSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[session.State]; ok {
		return store.ErrAlreadyExists
	}
	s.sessions[session.State] = session
	return nil
}

// Consume removes and returns the session in one critical section. Two
// concurrent callbacks presenting the same state cannot both succeed.
func (s *Sessions) Consume(_ context.Context, state string) (domain.LoginSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[state]
	if !ok {
		return domain.LoginSession{}, store.ErrNotFound
	}
	delete(s.sessions, state)
	return session, nil
}

// CleanupExpired drops sessions whose login was never completed.
func (s *Sessions) CleanupExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for state, session := range s.sessions {
		if session.Expired(now) {
			delete(s.sessions, state)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of pending sessions. Test helper.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
