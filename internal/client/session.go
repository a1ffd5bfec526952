package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Session is the state kept between CLI runs.
type Session struct {
	CurrentRoomID uint   `json:"current_room_id,omitempty"`
	Token         string `json:"token,omitempty"`
}

// SessionStore keeps a Session in a JSON file.
type SessionStore struct {
	path string
}

// NewSessionStore uses the file at path.
func NewSessionStore(path string) *SessionStore {
	return &SessionStore{path: path}
}

// DefaultSessionPath is aura/session.json under the user config directory.
func DefaultSessionPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "aura", "session.json"), nil
}

// Path returns the backing file.
func (s *SessionStore) Path() string { return s.path }

// Load reads the session. A missing file is an empty session.
func (s *SessionStore) Load() (Session, error) {
	var sess Session
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return sess, nil
	}
	if err != nil {
		return sess, fmt.Errorf("read session: %w", err)
	}
	if err := json.Unmarshal(data, &sess); err != nil {
		return Session{}, fmt.Errorf("parse session %s: %w", s.path, err)
	}
	return sess, nil
}

// Save writes the session atomically with owner-only permissions.
func (s *SessionStore) Save(sess Session) error {
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".session-*")
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return os.Rename(tmp.Name(), s.path)
}

// Update loads, applies fn and saves.
func (s *SessionStore) Update(fn func(*Session)) error {
	sess, err := s.Load()
	if err != nil {
		return err
	}
	fn(&sess)
	return s.Save(sess)
}
