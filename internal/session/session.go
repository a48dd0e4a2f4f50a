// Package session decides whether a stored credential is still usable and
// orchestrates refresh against the provider.
//
// The three credential states (no credential, valid, expired) are
// classified in exactly one place, [Classify]; every call site branches on
// its result instead of re-deriving state from timestamps. Expiry is
// evaluated lazily at the moment of use, so no background timers exist.
//
// Concurrent GetUsableToken calls for one account may both observe an
// expired record and both refresh. That race is benign: the provider's
// refresh endpoint tolerates near-simultaneous refreshes and the store
// persists whichever update lands last.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/riffline/riffline/internal/models"
	"github.com/riffline/riffline/internal/repositories"
	"github.com/riffline/riffline/internal/services"
	"github.com/riffline/riffline/internal/shared"
)

// State classifies a credential record at a point in time.
type State int

const (
	NoCredential State = iota // no record on file for the account
	Valid                     // expiry is in the future
	Expired                   // expiry has passed
)

func (s State) String() string {
	switch s {
	case NoCredential:
		return "no-credential"
	case Valid:
		return "valid"
	case Expired:
		return "expired"
	default:
		return "unknown"
	}
}

// Classify returns the credential state of user at the given instant.
// A nil user means no credential is on file.
func Classify(user *models.User, now time.Time) State {
	if user == nil || user.AccessToken() == "" {
		return NoCredential
	}
	if user.ExpiresAt().After(now) {
		return Valid
	}
	return Expired
}

// Exchanger is the subset of [services.Provider] the facade needs.
type Exchanger interface {
	ExchangeCode(ctx context.Context, code string) (*services.TokenGrant, error)
	Refresh(ctx context.Context, refreshToken string) (*services.TokenGrant, error)
	Profile(ctx context.Context, accessToken string) (*services.Profile, error)
}

// Facade is the server-side boundary for credential lifecycle decisions.
type Facade struct {
	users    repositories.UserStore
	provider Exchanger
	logger   *log.Logger
	now      func() time.Time
}

// NewFacade creates a session facade over the given store and provider.
func NewFacade(users repositories.UserStore, provider Exchanger, logger *log.Logger) *Facade {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Facade{
		users:    users,
		provider: provider,
		logger:   logger,
		now:      time.Now,
	}
}

// Authorize completes a login: exchanges the authorization code, fetches
// the account profile, and upserts the credential record keyed by the
// provider account id. Re-login for a known account updates the existing
// record in place; it never creates a second one.
func (f *Facade) Authorize(ctx context.Context, code string) (*models.User, *services.TokenGrant, error) {
	grant, err := f.provider.ExchangeCode(ctx, code)
	if err != nil {
		return nil, nil, err
	}

	profile, err := f.provider.Profile(ctx, grant.AccessToken)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch profile after exchange: %w", err)
	}

	expiresAt := f.now().Add(time.Duration(grant.ExpiresIn) * time.Second)

	user, err := f.users.GetBySpotifyID(profile.ID)
	if err != nil {
		username := profile.DisplayName
		if username == "" {
			username = profile.ID
		}
		user = models.NewUser(0, username, profile.ID)
		user.SetAccessToken(grant.AccessToken, expiresAt)
		user.SetRefreshToken(grant.RefreshToken)
		user.SetProfile(profile.DisplayName, profile.AvatarURL, profile.Email)

		if err := f.users.Create(user); err != nil {
			return nil, nil, fmt.Errorf("failed to create credential record: %w", err)
		}

		f.logger.Info("credential record created", "spotify_id", profile.ID)
		return user, grant, nil
	}

	user.SetAccessToken(grant.AccessToken, expiresAt)
	if grant.RefreshToken != "" {
		user.SetRefreshToken(grant.RefreshToken)
	}
	user.SetProfile(profile.DisplayName, profile.AvatarURL, profile.Email)

	if err := f.users.Update(user); err != nil {
		return nil, nil, fmt.Errorf("failed to update credential record: %w", err)
	}

	f.logger.Info("credential record updated", "spotify_id", profile.ID)
	return user, grant, nil
}

// GetUsableToken returns an access token that is valid right now for the
// given provider account, along with its expiry.
//
// No record fails with [shared.ErrNotAuthenticated]. A valid record
// returns the stored token without any provider interaction. An expired
// record triggers exactly one refresh; the result is persisted before the
// new token is returned. A refresh failure propagates so the caller can
// force re-authentication; the stale token is never returned.
func (f *Facade) GetUsableToken(ctx context.Context, spotifyID string) (string, time.Time, error) {
	user, err := f.users.GetBySpotifyID(spotifyID)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: spotify id %s", shared.ErrNotAuthenticated, spotifyID)
	}

	switch Classify(user, f.now()) {
	case Valid:
		return user.AccessToken(), user.ExpiresAt(), nil
	case Expired:
		return f.refresh(ctx, user)
	default:
		return "", time.Time{}, fmt.Errorf("%w: spotify id %s", shared.ErrNotAuthenticated, spotifyID)
	}
}

// refresh performs the Expired -> Valid transition: one refresh exchange,
// persisted via store update before the token is handed out.
func (f *Facade) refresh(ctx context.Context, user *models.User) (string, time.Time, error) {
	if user.RefreshToken() == "" {
		return "", time.Time{}, fmt.Errorf("%w: spotify id %s", shared.ErrNoRefreshToken, user.SpotifyID())
	}

	grant, err := f.provider.Refresh(ctx, user.RefreshToken())
	if err != nil {
		f.logger.Warn("token refresh failed", "spotify_id", user.SpotifyID(), "error", err)
		return "", time.Time{}, err
	}

	expiresAt := f.now().Add(time.Duration(grant.ExpiresIn) * time.Second)
	user.SetAccessToken(grant.AccessToken, expiresAt)
	// Only overwrite the stored refresh token when the provider actually
	// rotated it; an empty grant field would destroy a valid token.
	if grant.RefreshToken != "" {
		user.SetRefreshToken(grant.RefreshToken)
	}

	if err := f.users.Update(user); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to persist refreshed credential: %w", err)
	}

	f.logger.Info("access token refreshed", "spotify_id", user.SpotifyID(), "expires_at", expiresAt)
	return grant.AccessToken, expiresAt, nil
}
