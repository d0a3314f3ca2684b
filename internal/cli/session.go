package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Email        string `json:"email"`
	UserID       string `json:"user_id"`
	// ActiveBankID is the bank commands default to when --bank is not given.
	ActiveBankID int64  `json:"active_bank_id,omitempty"`
}

// SessionStore keeps the session file under dir, or ~/.tyc when dir is empty.
type SessionStore struct {
	dir string
}

func NewSessionStore(dir string) *SessionStore {
	return &SessionStore{dir: strings.TrimSpace(dir)}
}

func (s *SessionStore) baseDir() (string, error) {
	dir := s.dir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, ".tyc")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}

func (s *SessionStore) path() (string, error) {
	dir, err := s.baseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "session.json"), nil
}

func (s *SessionStore) Save(sess Session) error {
	path, err := s.path()
	if err != nil {
		return err
	}
	body, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, body, 0o600)
}

func (s *SessionStore) Load() (Session, error) {
	path, err := s.path()
	if err != nil {
		return Session{}, err
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return Session{}, err
	}
	var sess Session
	if err := json.Unmarshal(body, &sess); err != nil {
		return Session{}, err
	}
	if strings.TrimSpace(sess.AccessToken) == "" {
		return Session{}, fmt.Errorf("no access token found in session")
	}
	return sess, nil
}

func (s *SessionStore) Clear() error {
	path, err := s.path()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	return os.Remove(path)
}
