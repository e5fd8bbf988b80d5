package session

import (
	"sync"
	"time"

	"github.com/desertthunder/releasedash/internal/services"
	"github.com/desertthunder/releasedash/internal/shared"
)

// Session is one user's state: token record, catalog cache and pending OAuth state.
type Session struct {
	ID        string
	Record    *TokenRecord
	Cache     *services.Cache
	State     string // OAuth state for the pending authorization, empty when none
	CreatedAt time.Time

	flash string

	mu sync.Mutex
}

// Lock serializes actions on the session.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the action lock.
func (s *Session) Unlock() { s.mu.Unlock() }

// SetFlash stores a message for the next page render.
func (s *Session) SetFlash(msg string) { s.flash = msg }

// Flash returns and clears the pending message.
func (s *Session) Flash() string {
	msg := s.flash
	s.flash = ""
	return msg
}

// NewSession creates an unauthenticated session with a fresh ID.
func NewSession() *Session {
	return &Session{
		ID:        shared.GenerateID(),
		Record:    &TokenRecord{},
		Cache:     services.NewCache(),
		CreatedAt: time.Now(),
	}
}

// Store keeps sessions in memory, keyed by ID.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewStore creates an empty [Store].
func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session), now: time.Now}
}

// WithClock replaces the clock used for creation times and pruning.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// New creates and registers a session.
func (s *Store) New() *Session {
	sess := NewSession()
	sess.CreatedAt = s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return sess
}

// Get looks up a session by ID.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// Delete removes a session and reports whether it existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Prune removes sessions created maxAge or longer ago and returns how many were removed.
func (s *Store) Prune(maxAge time.Duration) int {
	cutoff := s.now().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, sess := range s.sessions {
		if !sess.CreatedAt.After(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}
