// Package credential persists the GitHub token gitport authenticates with.
//
// The record is a single KEY=value line in a file that lives next to the
// gitport executable, not in the working directory, so it survives across
// runs from anywhere until it is explicitly reset.
package credential

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Key is the name the token is stored under.
const Key = "GITHUB_TOKEN"

// FileName is the record's file name inside the executable's directory.
const FileName = ".env"

// TokenURL is where operators can create a token.
const TokenURL = "https://github.com/settings/tokens/new"

// Credential is an opaque API token.
type Credential struct {
	Token string
}

// AuthError is returned when no usable credential can be obtained.
type AuthError struct {
	Reason string
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return fmt.Sprintf("auth: %s (token entered? try resetting with --reset)", e.Reason)
}

// Prompter asks the operator for a secret value.
type Prompter interface {
	PromptSecret(message string) (string, error)
}

// Store reads, writes and deletes the credential record at a fixed path.
type Store struct {
	path     string
	prompter Prompter
	log      *slog.Logger
}

// NewStore creates a Store for the record at path.
func NewStore(path string, prompter Prompter, log *slog.Logger) *Store {
	return &Store{path: path, prompter: prompter, log: log}
}

// DefaultPath returns the record path next to the running executable.
func DefaultPath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Join(filepath.Dir(exe), FileName), nil
}

// Path returns the record location.
func (s *Store) Path() string { return s.path }

// Ensure returns the persisted credential, prompting for and persisting one
// when the record is missing or has no token key.
func (s *Store) Ensure(ctx context.Context) (Credential, error) {
	token, found, err := s.read()
	if err != nil {
		return Credential{}, err
	}
	if found {
		if token == "" {
			return Credential{}, &AuthError{Reason: "no valid token in " + s.path}
		}
		s.log.Debug("using stored token", "path", s.path)
		return Credential{Token: token}, nil
	}

	s.log.Warn("no token found", "path", s.path)
	if err := ctx.Err(); err != nil {
		return Credential{}, err
	}
	if s.prompter == nil {
		return Credential{}, &AuthError{Reason: "no valid token"}
	}

	answer, err := s.prompter.PromptSecret(fmt.Sprintf("GitHub token (create one at %s): ", TokenURL))
	if err != nil {
		return Credential{}, fmt.Errorf("prompt for token: %w", err)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return Credential{}, &AuthError{Reason: "no valid token"}
	}

	if err := s.write(answer); err != nil {
		return Credential{}, err
	}
	s.log.Info("token saved", "path", s.path)
	return Credential{Token: answer}, nil
}

// Reset deletes the record. A missing record is not an error.
func (s *Store) Reset() error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove credential %s: %w", s.path, err)
	}
	s.log.Info("token reset", "path", s.path, "existed", err == nil)
	return nil
}

// read returns the trimmed token value and whether the key was present.
func (s *Store) read() (string, bool, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read credential %s: %w", s.path, err)
	}

	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if value, ok := strings.CutPrefix(line, Key+"="); ok {
			return strings.TrimSpace(value), true, nil
		}
	}
	return "", false, nil
}

func (s *Store) write(token string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create credential directory: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(Key+"="+token), 0o600); err != nil {
		return fmt.Errorf("write credential %s: %w", s.path, err)
	}
	return nil
}
