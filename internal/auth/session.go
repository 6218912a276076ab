// Package auth holds the single-user credential check and the in-memory
// session store behind the history API.
package auth

import (
	"crypto/subtle"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	CookieName        = "centsible_session"
	DefaultSessionTTL = 12 * time.Hour
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoSession          = errors.New("no session")
)

type Session struct {
	ID        string
	Username  string
	ExpiresAt time.Time
}

// Credentials is the configured account. An empty password disables sign-in.
type Credentials struct {
	Username string
	Password string
}

// Check compares in constant time.
func (c Credentials) Check(username, password string) error {
	if c.Password == "" {
		return ErrInvalidCredentials
	}
	u := subtle.ConstantTimeCompare([]byte(username), []byte(c.Username))
	p := subtle.ConstantTimeCompare([]byte(password), []byte(c.Password))
	if u&p != 1 {
		return ErrInvalidCredentials
	}
	return nil
}

// SessionStore keeps sessions in memory. A session expires TTL after
// creation; lookups do not extend it.
type SessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]Session
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{ttl: ttl, now: time.Now, sessions: map[string]Session{}}
}

func (s *SessionStore) TTL() time.Duration {
	return s.ttl
}

func (s *SessionStore) Create(username string) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := Session{
		ID:        uuid.NewString(),
		Username:  username,
		ExpiresAt: s.now().Add(s.ttl),
	}
	s.sessions[sess.ID] = sess
	return sess
}

// Lookup returns the session for id, or ErrNoSession when it is unknown or
// expired.
func (s *SessionStore) Lookup(id string) (Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Session{}, ErrNoSession
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, ErrNoSession
	}
	if !s.now().Before(sess.ExpiresAt) {
		delete(s.sessions, id)
		return Session{}, ErrNoSession
	}
	return sess, nil
}

func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// CleanExpired drops expired sessions and returns how many were removed.
func (s *SessionStore) CleanExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for id, sess := range s.sessions {
		if !now.Before(sess.ExpiresAt) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
