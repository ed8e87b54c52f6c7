// Package token persists the bearer token cache and the credentials file.
package token

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"ffctl/internal/ff"
)

// FileTokenStore keeps the token record as a JSON file.
type FileTokenStore struct {
	path string
}

// NewFileTokenStore creates a store backed by the file at path.
func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

// Path returns the cache file location.
func (s *FileTokenStore) Path() string {
	return s.path
}

func (s *FileTokenStore) Load() (*ff.Token, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ff.ErrNotAuthenticated, s.path, err)
	}
	var tok ff.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ff.ErrNotAuthenticated, s.path, err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: %s has no access_token", ff.ErrNotAuthenticated, s.path)
	}
	return &tok, nil
}

// Save overwrites the cache with every field of the auth response.
func (s *FileTokenStore) Save(fields ff.Record) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "    ")
	if err := enc.Encode(fields); err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}
	if err := writeFile(s.path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("writing token cache: %w", err)
	}
	return nil
}

// writeFile replaces path atomically via a temp file in the same directory.
func writeFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

var _ ff.TokenStore = (*FileTokenStore)(nil)
