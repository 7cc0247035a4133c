package session

import (
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"
)

const TTL = 8 * time.Hour

// Session proves a successful login for a bounded time window.
type Session struct {
	Email       string
	PatientName string
	ExpiresAt   time.Time
}

// Store abstracts session management so the in-memory table can be swapped
// for an external cache without touching endpoint logic.
type Store interface {
	Create(email, patientName string) (string, error)
	Lookup(token string) (*Session, bool)
	Invalidate(token string)
}

// MemoryStore keeps sessions in process memory only: lost on restart, not
// shared across instances. Expired entries are evicted lazily on lookup;
// there is no background sweep.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]Session
	ttl      time.Duration
	now      func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: map[string]Session{},
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *MemoryStore) Create(email, patientName string) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = Session{
		Email:       email,
		PatientName: patientName,
		ExpiresAt:   s.now().Add(s.ttl),
	}

	return token, nil
}

func (s *MemoryStore) Lookup(token string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return nil, false
	}

	if s.now().After(sess.ExpiresAt) {
		delete(s.sessions, token)
		return nil, false
	}

	return &sess, true
}

// Invalidate is idempotent; removing an unknown token is a no-op.
func (s *MemoryStore) Invalidate(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
