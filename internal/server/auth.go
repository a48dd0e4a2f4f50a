package server

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/riffline/riffline/internal/services"
	"github.com/riffline/riffline/internal/session"
	"github.com/riffline/riffline/internal/shared"
)

// stateTTL bounds how long an issued anti-forgery state token stays valid.
const stateTTL = 10 * time.Minute

// stateStore tracks issued OAuth state tokens until their callback arrives.
type stateStore struct {
	mu     sync.Mutex
	issued map[string]time.Time
}

func newStateStore() *stateStore {
	return &stateStore{issued: map[string]time.Time{}}
}

// Issue generates and records a fresh state token.
func (s *stateStore) Issue() string {
	state := shared.GenerateID()

	s.mu.Lock()
	defer s.mu.Unlock()

	for token, at := range s.issued {
		if time.Since(at) > stateTTL {
			delete(s.issued, token)
		}
	}
	s.issued[state] = time.Now()

	return state
}

// Consume validates and invalidates a state token. A token is good for
// one callback only.
func (s *stateStore) Consume(state string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	at, ok := s.issued[state]
	if !ok {
		return false
	}
	delete(s.issued, state)

	return time.Since(at) <= stateTTL
}

// AuthHandler serves the OAuth login, callback, and refresh endpoints.
// Implements the [Handler] interface for registration with a [Router].
type AuthHandler struct {
	provider services.Provider
	facade   *session.Facade
	states   *stateStore
	logger   *log.Logger
}

// NewAuthHandler creates the auth endpoint group.
func NewAuthHandler(provider services.Provider, facade *session.Facade, logger *log.Logger) *AuthHandler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &AuthHandler{
		provider: provider,
		facade:   facade,
		states:   newStateStore(),
		logger:   logger,
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *AuthHandler) Routes() []string {
	return []string{"/api/auth/login", "/api/auth/callback", "/api/auth/refresh"}
}

func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/auth/login":
		h.login(w, r)
	case "/api/auth/callback":
		h.callback(w, r)
	case "/api/auth/refresh":
		h.refresh(w, r)
	default:
		http.NotFound(w, r)
	}
}

// login redirects the browser to the provider's authorization URL with a
// freshly generated anti-forgery state token.
func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	state := h.states.Issue()
	http.Redirect(w, r, h.provider.AuthURL(state), http.StatusFound)
}

// callback completes the login round trip: validates state, exchanges the
// code, upserts the credential record, and redirects to the application
// root with the access token in query parameters for the client cache.
func (h *AuthHandler) callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "Authorization code missing")
		return
	}

	if state := r.URL.Query().Get("state"); !h.states.Consume(state) {
		writeError(w, http.StatusBadRequest, "Invalid state parameter")
		return
	}

	_, grant, err := h.facade.Authorize(r.Context(), code)
	if err != nil {
		h.logger.Error("authorization failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Authorization failed")
		return
	}

	params := url.Values{
		"access_token": {grant.AccessToken},
		"expires_in":   {strconv.Itoa(grant.ExpiresIn)},
	}
	http.Redirect(w, r, "/?"+params.Encode(), http.StatusFound)
}

// refresh returns a currently-usable token for the given account,
// refreshing it against the provider first when the stored one expired.
func (h *AuthHandler) refresh(w http.ResponseWriter, r *http.Request) {
	spotifyID := r.URL.Query().Get("spotifyId")
	if spotifyID == "" {
		writeError(w, http.StatusBadRequest, "Spotify ID required")
		return
	}

	token, expiresAt, err := h.facade.GetUsableToken(r.Context(), spotifyID)
	if errors.Is(err, shared.ErrNotAuthenticated) {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		h.logger.Error("token refresh failed", "spotify_id", spotifyID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to refresh token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"access_token": token,
		"expires_at":   expiresAt.Format(time.RFC3339),
	})
}
