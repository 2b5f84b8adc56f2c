// Package session holds the caller's identity on the client side. A Session is
// created explicitly, restored from a persisted token, and cleared on logout.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/senyabanana/surplus-market/internal/auth"
	"github.com/senyabanana/surplus-market/internal/models"
)

// TokenStore persists a single bearer token.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// Session is safe for concurrent use; flows only read it.
type Session struct {
	mu       sync.RWMutex
	store    TokenStore
	now      func() time.Time
	token    string
	identity models.Identity
	expires  time.Time // zero when the token carries no exp
	authed   bool
}

// New creates an unauthenticated session backed by store.
func New(store TokenStore) *Session {
	return &Session{store: store, now: time.Now}
}

// Restore loads the persisted token. A missing, malformed or expired token
// leaves the session signed out; only storage failures are returned.
func (s *Session) Restore() error {
	token, err := s.store.Load()
	if err != nil {
		return fmt.Errorf("load token: %w", err)
	}
	if token == "" {
		s.reset()
		return nil
	}
	if err := s.adopt(token); err != nil {
		s.reset()
		return s.store.Clear()
	}
	return nil
}

// Login adopts a token issued by the auth service and persists it.
func (s *Session) Login(token string) error {
	token = strings.TrimSpace(token)
	if err := s.adopt(token); err != nil {
		return err
	}
	return s.store.Save(token)
}

// Logout clears the identity and the persisted token.
func (s *Session) Logout() error {
	s.reset()
	return s.store.Clear()
}

// Authenticated reports whether a non-expired token is held.
func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.live()
}

// Identity returns the caller identity when authenticated.
func (s *Session) Identity() (models.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.live() {
		return models.Identity{}, false
	}
	return s.identity, true
}

// live must be called with mu held.
func (s *Session) live() bool {
	if !s.authed || s.token == "" {
		return false
	}
	return s.expires.IsZero() || s.now().Before(s.expires)
}

// Token returns the bearer token, or "" when signed out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) adopt(token string) error {
	claims, err := auth.ReadClaims(token, s.now())
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.identity = claims.Identity()
	s.expires = time.Time{}
	if claims.ExpiresAt != nil {
		s.expires = claims.ExpiresAt.Time
	}
	s.authed = true
	return nil
}

func (s *Session) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.identity = models.Identity{}
	s.expires = time.Time{}
	s.authed = false
}

// FileStore keeps the token in a file readable only by the owner.
type FileStore struct {
	Path string
}

func (f FileStore) Load() (string, error) {
	raw, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}

func (f FileStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(f.Path, []byte(token+"\n"), 0o600)
}

func (f FileStore) Clear() error {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// MemoryStore keeps the token in memory.
type MemoryStore struct {
	mu    sync.Mutex
	token string
}

func (m *MemoryStore) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *MemoryStore) Save(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}
