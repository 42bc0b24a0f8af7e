package honeypot

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTokenNotFound is returned when no token is stored for a key.
var ErrTokenNotFound = errors.New("honeypot: token not found")

// Key identifies one issued token: the visitor's session, the form and the
// id the browser generated for this page view.
type Key struct {
	Session    string
	FormID     string
	HoneypotID string
}

// Store keeps issued tokens until they are checked or evicted.
type Store interface {
	Save(ctx context.Context, key Key, token string) error
	Token(ctx context.Context, key Key) (string, error)
	Delete(ctx context.Context, key Key) error
	// Evict removes tokens created before cutoff and returns how many.
	Evict(ctx context.Context, cutoff time.Time) (int, error)
}

type sessionEntry struct {
	token   string
	created time.Time
}

// SessionStore keeps tokens in memory, scoped by session cookie. Tokens are
// lost on restart.
type SessionStore struct {
	mu     sync.Mutex
	tokens map[Key]sessionEntry
	now    func() time.Time
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		tokens: make(map[Key]sessionEntry),
		now:    time.Now,
	}
}

func (s *SessionStore) Save(ctx context.Context, key Key, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[key] = sessionEntry{token: token, created: s.now()}
	return nil
}

func (s *SessionStore) Token(ctx context.Context, key Key) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.tokens[key]
	if !ok {
		return "", ErrTokenNotFound
	}
	return e.token, nil
}

func (s *SessionStore) Delete(ctx context.Context, key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, key)
	return nil
}

func (s *SessionStore) Evict(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, e := range s.tokens {
		if e.created.Before(cutoff) {
			delete(s.tokens, k)
			n++
		}
	}
	return n, nil
}

// EndSession drops every token issued to session.
func (s *SessionStore) EndSession(session string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.tokens {
		if k.Session == session {
			delete(s.tokens, k)
		}
	}
}

// Len returns the number of stored tokens.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}
