package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/mauli-16/GitHub-TestCaseGen/pkg/apperr"
)

// Session is the CLI's counterpart of the browser cookie
type Session struct {
	Server string `json:"server"`
	Token  string `json:"token"`
}

// DefaultSessionPath is ~/.testgen/session
func DefaultSessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.Getenv("HOME")
	}
	return filepath.Join(home, ".testgen", "session")
}

// SaveSession writes s to path, readable only by the owner
func SaveSession(path string, s Session) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, raw, 0600); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

// LoadSession reads the session at path. A missing file is reported as an
// auth error so callers can prompt for `testgen login`.
func LoadSession(path string) (*Session, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.Auth("Not logged in, run `testgen login` first", apperr.ErrNoCredential)
		}
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("corrupt session file %s: %w", path, err)
	}
	if s.Token == "" {
		return nil, apperr.Auth("Not logged in, run `testgen login` first", apperr.ErrNoCredential)
	}
	return &s, nil
}

// ClearSession removes the session file
func ClearSession(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	return nil
}
