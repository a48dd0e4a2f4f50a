// package services defines clients for the upstream HTTP collaborators
//
// Spotify (OAuth + Web API), the recommendation micro-service
package services

import (
	"context"
)

// TokenGrant is the normalized result of a token-endpoint interaction.
type TokenGrant struct {
	AccessToken  string
	RefreshToken string // empty when the provider did not issue a new one
	ExpiresIn    int    // lifetime in seconds
}

// Profile represents the provider's view of the authenticated account.
type Profile struct {
	ID          string
	DisplayName string
	Email       string
	Country     string
	Product     string // premium, free, etc.
	AvatarURL   string
	Followers   int
}

// Artist represents a provider artist.
type Artist struct {
	ID       string
	Name     string
	Genres   []string
	ImageURL string
}

// Track represents a provider track.
type Track struct {
	ID         string
	Name       string
	Artist     string
	Album      string
	ImageURL   string
	PreviewURL string
	DurationMS int
}

// Provider is the streaming-provider contract consumed by the session
// facade and the HTTP handlers.
//
// ExchangeCode and Refresh are the two credential-acquiring interactions;
// neither touches the credential store. The remaining methods take an
// explicit bearer token per call, so one client instance serves every
// account.
type Provider interface {
	// AuthURL returns the authorization URL for the login redirect.
	// The state token should be cryptographically random for CSRF protection.
	AuthURL(state string) string

	// ExchangeCode trades an authorization code for tokens.
	ExchangeCode(ctx context.Context, code string) (*TokenGrant, error)

	// Refresh trades a refresh token for a new access token. The grant's
	// RefreshToken is empty unless the provider issued a new one, in which
	// case the caller must persist it; otherwise the old one stays valid.
	Refresh(ctx context.Context, refreshToken string) (*TokenGrant, error)

	// Profile retrieves the account profile for the given access token.
	Profile(ctx context.Context, accessToken string) (*Profile, error)

	// TopArtists retrieves the account's most-played artists.
	TopArtists(ctx context.Context, accessToken string, limit int, timeRange string) ([]Artist, error)

	// TopTracks retrieves the account's most-played tracks.
	TopTracks(ctx context.Context, accessToken string, limit int, timeRange string) ([]Track, error)

	// Recommendations retrieves provider recommendations seeded by track IDs.
	Recommendations(ctx context.Context, accessToken string, seedTrackIDs []string, limit int) ([]Track, error)

	// SearchTrack returns the best track match for a free-text query, or
	// nil when nothing matched.
	SearchTrack(ctx context.Context, accessToken, query string) (*Track, error)

	// Name returns the provider name (e.g., "Spotify")
	Name() string
}
