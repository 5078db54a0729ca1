// Package session persists the authentication session between process
// runs so a fresh login is only needed when the cookies went stale.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"storefront-agent/internal/types"
)

// Store reads and writes the session cookie file. One process targets
// one account, so the file is not keyed by anything.
type Store struct {
	path   string
	logger types.Logger
}

// NewStore creates a store writing to the given file path.
func NewStore(path string, logger types.Logger) *Store {
	return &Store{
		path:   path,
		logger: logger,
	}
}

// Load reads the persisted session. A missing file is not an error worth
// surfacing; callers treat any failure here as "start unauthenticated".
func (s *Store) Load() (*types.Session, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var sess types.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}

	if len(sess.Cookies) == 0 {
		return nil, fmt.Errorf("session file contains no cookies")
	}

	s.logger.Debugf("Loaded session with %d cookies from %s", len(sess.Cookies), s.path)
	return &sess, nil
}

// Save writes the session to disk. Failures are logged by the caller,
// never fatal: a fresh login can always be repeated next run.
func (s *Store) Save(sess *types.Session) error {
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create session dir: %w", err)
		}
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}

	s.logger.Debugf("Saved session with %d cookies to %s", len(sess.Cookies), s.path)
	return nil
}
