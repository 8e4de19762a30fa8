// Package session holds the prober's on-disk state: the persisted session
// token and the externally managed restore-lock marker.
package session

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// TokenStore persists a single session token in a plain-text file
type TokenStore struct {
	path string
}

// NewTokenStore creates a token store backed by path
func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path}
}

// Path returns the backing file path
func (s *TokenStore) Path() string {
	return s.path
}

// Load returns the persisted token. A missing or blank file yields ok=false.
func (s *TokenStore) Load() (string, bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read session file: %w", err)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", false, nil
	}
	return token, true, nil
}

// Save overwrites the persisted token
func (s *TokenStore) Save(token string) error {
	if token == "" {
		return errors.New("refusing to persist empty session token")
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("failed to create temp session file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(token); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set session file mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close session file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}

// RestoreLock is a marker file whose existence means a restore is running
type RestoreLock struct {
	path string
}

// NewRestoreLock creates a restore lock for path. An empty path is never active.
func NewRestoreLock(path string) *RestoreLock {
	return &RestoreLock{path: path}
}

// Path returns the marker path
func (l *RestoreLock) Path() string {
	return l.path
}

// Active reports whether the marker exists
func (l *RestoreLock) Active() bool {
	if l.path == "" {
		return false
	}
	_, err := os.Lstat(l.path)
	return err == nil
}
