// Package session persists the bearer token that proves a user is
// authenticated against the BookBloom API. The token is the only
// piece of state that survives between invocations; it lives in a
// single well-known file until an explicit logout removes it.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Store holds the session token in memory and mirrors it to disk.
// Reads happen before every request; writes only on login and logout.
type Store struct {
	path string

	mu    sync.RWMutex
	token string
}

// NewStore opens a store backed by the token file at path. A missing
// file means an unauthenticated session, not an error. A persisted
// token is trusted without revalidation until a protected call fails.
func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("token file path cannot be empty")
	}

	s := &Store{path: path}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read token file: %w", err)
	default:
		s.token = strings.TrimSpace(string(data))
	}
	return s, nil
}

// Token returns the current bearer token and whether one is present.
func (s *Store) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

// Set replaces the token in memory and on disk. The in-memory copy is
// updated first so requests issued after Set returns always carry the
// new token.
func (s *Store) Set(token string) error {
	if token == "" {
		return fmt.Errorf("token cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
	dir := filepath.Dir(s.path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create token directory: %w", err)
		}
	}
	if err := os.WriteFile(s.path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}

// Clear drops the token in memory and on disk. Clearing an absent
// session is a no-op.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}
