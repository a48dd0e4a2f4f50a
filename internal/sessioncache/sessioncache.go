// Package sessioncache holds the client-held session state: the access
// token delivered through the login redirect URL and its absolute expiry.
//
// After a login round trip the server redirects to the application root
// with access_token and expires_in query parameters. [ExtractFromLocation]
// reads them once and strips them from the URL, so tokens do not linger in
// history or get re-read on back-navigation. [FileStore] is the durable
// copy that survives restarts until an explicit [FileStore.Clear].
package sessioncache

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/riffline/riffline/internal/shared"
)

// Grant is an extracted redirect grant, expiry still relative.
type Grant struct {
	AccessToken string
	ExpiresIn   int // seconds
}

// Session is the persisted session state. Both fields are written and
// cleared together; a session never has one without the other.
type Session struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Valid reports whether the session's token is still usable at now.
func (s *Session) Valid(now time.Time) bool {
	return s.AccessToken != "" && s.ExpiresAt.After(now)
}

// ExtractFromLocation parses the login-redirect query parameters from loc.
//
// When an access_token parameter is present it returns the grant, a copy
// of loc with the token parameters removed, and true. When absent it
// returns nil, loc unmodified, and false.
func ExtractFromLocation(loc *url.URL) (*Grant, *url.URL, bool) {
	query := loc.Query()

	accessToken := query.Get("access_token")
	if accessToken == "" {
		return nil, loc, false
	}

	expiresIn, err := strconv.Atoi(query.Get("expires_in"))
	if err != nil {
		expiresIn = 0
	}

	query.Del("access_token")
	query.Del("expires_in")

	cleaned := *loc
	cleaned.RawQuery = query.Encode()

	return &Grant{AccessToken: accessToken, ExpiresIn: expiresIn}, &cleaned, true
}

// FileStore persists the session as a JSON file.
type FileStore struct {
	path string
}

// NewFileStore creates a store at path, defaulting to
// $HOME/.riffline/session.json.
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = filepath.Join(os.Getenv("HOME"), ".riffline", "session.json")
	}
	return &FileStore{path: path}
}

// Persist writes the token with a computed absolute expiry instant.
func (s *FileStore) Persist(accessToken string, expiresIn int) error {
	if accessToken == "" {
		return fmt.Errorf("%w: access token is empty", shared.ErrValidation)
	}

	session := Session{
		AccessToken: accessToken,
		ExpiresAt:   time.Now().Add(time.Duration(expiresIn) * time.Second),
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}

	return nil
}

// Load reads the persisted session. A missing file means no session and
// fails with [shared.ErrNotAuthenticated].
func (s *FileStore) Load() (*Session, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: no session on file", shared.ErrNotAuthenticated)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}

	return &session, nil
}

// Clear removes the persisted session. Removing the file drops both
// fields atomically; clearing an absent session is not an error.
//
// Invoked on logout and when a profile fetch fails unrecoverably, since
// the credential is then no longer trustworthy.
func (s *FileStore) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}
