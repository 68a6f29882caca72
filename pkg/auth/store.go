// Package auth manages OAuth2 credentials for the Google Workspace APIs.
// It persists tokens on disk, runs the interactive authorization flow and
// hands out authenticated HTTP clients that refresh themselves.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
)

// ErrNoToken indicates that no stored token exists yet.
var ErrNoToken = errors.New("no stored token")

// TokenStore persists OAuth2 tokens between runs.
type TokenStore interface {
	// Load returns the stored token, or ErrNoToken if none exists.
	Load() (*oauth2.Token, error)

	// Save persists the token, replacing any previous one.
	Save(token *oauth2.Token) error

	// Delete removes the stored token. Deleting a missing token is not
	// an error.
	Delete() error
}

// FileStore stores a single token as JSON in a file readable only by the
// owning user.
type FileStore struct {
	path string
}

// NewFileStore creates a token store backed by the given file path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the file the store reads and writes.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Load() (*oauth2.Token, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoToken
		}
		return nil, fmt.Errorf("reading token file: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("parsing token file %s: %w", s.path, err)
	}
	return &token, nil
}

func (s *FileStore) Save(token *oauth2.Token) error {
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating token directory: %w", err)
	}

	// Tokens grant full account access, so keep them owner-only.
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	return nil
}

func (s *FileStore) Delete() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing token file: %w", err)
	}
	return nil
}
