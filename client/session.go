package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/taskpulse-api/internal/domain"
)

// Session is the credential state a Client acts with. It is created from a
// persisted file with LoadSession and torn down with Clear.
type Session struct {
	mu   sync.Mutex
	path string

	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	SessionID    string       `json:"session_id,omitempty"`
	User         *domain.User `json:"user,omitempty"`
}

// LoadSession reads the credential file at path. A missing file yields an
// empty, unauthenticated session bound to path.
func LoadSession(path string) (*Session, error) {
	s := &Session{path: path}
	if path == "" {
		return s, nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	if err := json.Unmarshal(b, s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", path, err)
	}
	return s, nil
}

// Authenticated reports whether the session holds an access token.
func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.AccessToken != ""
}

func (s *Session) tokens() (access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.AccessToken, s.RefreshToken
}

func (s *Session) set(access, refresh, sessionID string, u *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.AccessToken = access
	s.RefreshToken = refresh
	if sessionID != "" {
		s.SessionID = sessionID
	}
	if u != nil {
		s.User = u
	}
}

// Save writes the session to its file, readable only by the owner.
// Sessions loaded without a path are kept in memory only.
func (s *Session) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.path == "" {
		return nil
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if err := os.WriteFile(s.path, b, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// Clear drops all credentials and removes the persisted file.
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.AccessToken, s.RefreshToken, s.SessionID, s.User = "", "", "", nil
	if s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}
