// Spotify implementation of [Provider]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/riffline/riffline/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// Every outbound provider call carries this deadline so a stalled
	// upstream surfaces as [shared.ErrUpstreamTimeout] instead of hanging
	// the request.
	defaultTimeout = 5 * time.Second

	// Requests per second against the Spotify Web API.
	defaultRateLimit = 10
)

type followers struct {
	Total int `json:"total"`
}

type spotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

type spotifyProfile struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email"`
	Country     string         `json:"country"`
	Product     string         `json:"product"`
	Followers   followers      `json:"followers"`
	Images      []spotifyImage `json:"images"`
}

type spotifyArtist struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Genres []string       `json:"genres"`
	Images []spotifyImage `json:"images"`
}

type spotifyAlbum struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Images []spotifyImage `json:"images"`
}

type spotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []spotifyArtist `json:"artists"`
	Album      spotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
	PreviewURL string          `json:"preview_url"`
}

type pagedArtists struct {
	Items []spotifyArtist `json:"items"`
}

type pagedTracks struct {
	Items []spotifyTrack `json:"items"`
}

// SpotifyService implements [Provider] against the Spotify accounts and
// Web API endpoints. Token-endpoint interactions go through [oauth2],
// which transmits the client id and secret as HTTP Basic auth.
type SpotifyService struct {
	config     *oauth2.Config
	httpClient *http.Client
	limiter    *rate.Limiter
	timeout    time.Duration
}

// NewSpotifyService creates a Spotify client from application credentials.
//
// Missing credentials are tolerated here: the caller warns at startup and
// token-endpoint calls fail upstream with the exchange/refresh sentinels.
func NewSpotifyService(creds shared.SpotifyConfig) *SpotifyService {
	redirectURI := creds.RedirectURI
	if redirectURI == "" {
		redirectURI = "http://localhost:5000/api/auth/callback"
	}

	config := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"user-read-private",
			"user-read-email",
			"user-top-read",
			"user-read-recently-played",
			"user-library-read",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyService{
		config:     config,
		httpClient: http.DefaultClient,
		limiter:    rate.NewLimiter(rate.Limit(defaultRateLimit), 1),
		timeout:    defaultTimeout,
	}
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// AuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) AuthURL(state string) string {
	return s.config.AuthCodeURL(state)
}

// ExchangeCode trades an authorization code for tokens at the provider's
// token endpoint. A non-success provider response fails with
// [shared.ErrExchangeFailed]; there is no partial success.
func (s *SpotifyService) ExchangeCode(ctx context.Context, code string) (*TokenGrant, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		return nil, mapTokenError(err, shared.ErrExchangeFailed)
	}

	return grantFromToken(token), nil
}

// Refresh trades a refresh token for a new access token.
//
// Failure means re-authorization is required, not that the call should be
// retried. When the provider omits a new refresh token the returned
// grant's RefreshToken is empty and the caller keeps the old one.
func (s *SpotifyService) Refresh(ctx context.Context, refreshToken string) (*TokenGrant, error) {
	if refreshToken == "" {
		return nil, shared.ErrNoRefreshToken
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	source := s.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		return nil, mapTokenError(err, shared.ErrRefreshFailed)
	}

	grant := grantFromToken(token)
	if grant.RefreshToken == refreshToken {
		// oauth2 echoes the old refresh token back when the provider does
		// not rotate it; an empty field tells callers nothing changed.
		grant.RefreshToken = ""
	}

	return grant, nil
}

// Profile retrieves the account profile for the given access token.
func (s *SpotifyService) Profile(ctx context.Context, accessToken string) (*Profile, error) {
	var raw spotifyProfile
	if err := s.doRequest(ctx, accessToken, "/me", &raw); err != nil {
		return nil, err
	}

	profile := &Profile{
		ID:          raw.ID,
		DisplayName: raw.DisplayName,
		Email:       raw.Email,
		Country:     raw.Country,
		Product:     raw.Product,
		Followers:   raw.Followers.Total,
	}
	if len(raw.Images) > 0 {
		profile.AvatarURL = raw.Images[0].URL
	}

	return profile, nil
}

// TopArtists retrieves the account's most-played artists.
func (s *SpotifyService) TopArtists(ctx context.Context, accessToken string, limit int, timeRange string) ([]Artist, error) {
	limit = clampLimit(limit)
	if timeRange == "" {
		timeRange = "medium_term"
	}

	endpoint := fmt.Sprintf("/me/top/artists?limit=%d&time_range=%s", limit, url.QueryEscape(timeRange))

	var page pagedArtists
	if err := s.doRequest(ctx, accessToken, endpoint, &page); err != nil {
		return nil, err
	}

	artists := make([]Artist, 0, len(page.Items))
	for _, item := range page.Items {
		artists = append(artists, artistFromSpotify(item))
	}

	return artists, nil
}

// TopTracks retrieves the account's most-played tracks.
func (s *SpotifyService) TopTracks(ctx context.Context, accessToken string, limit int, timeRange string) ([]Track, error) {
	limit = clampLimit(limit)
	if timeRange == "" {
		timeRange = "medium_term"
	}

	endpoint := fmt.Sprintf("/me/top/tracks?limit=%d&time_range=%s", limit, url.QueryEscape(timeRange))

	var page pagedTracks
	if err := s.doRequest(ctx, accessToken, endpoint, &page); err != nil {
		return nil, err
	}

	tracks := make([]Track, 0, len(page.Items))
	for _, item := range page.Items {
		tracks = append(tracks, trackFromSpotify(item))
	}

	return tracks, nil
}

// Recommendations retrieves provider recommendations seeded by track IDs (up to 5).
func (s *SpotifyService) Recommendations(ctx context.Context, accessToken string, seedTrackIDs []string, limit int) ([]Track, error) {
	if len(seedTrackIDs) == 0 {
		return nil, fmt.Errorf("%w: no seed tracks provided", shared.ErrValidation)
	}
	if len(seedTrackIDs) > 5 {
		seedTrackIDs = seedTrackIDs[:5]
	}
	limit = clampLimit(limit)

	seeds := url.QueryEscape(strings.Join(seedTrackIDs, ","))
	endpoint := fmt.Sprintf("/recommendations?seed_tracks=%s&limit=%d", seeds, limit)

	var response struct {
		Tracks []spotifyTrack `json:"tracks"`
	}
	if err := s.doRequest(ctx, accessToken, endpoint, &response); err != nil {
		return nil, err
	}

	tracks := make([]Track, 0, len(response.Tracks))
	for _, item := range response.Tracks {
		tracks = append(tracks, trackFromSpotify(item))
	}

	return tracks, nil
}

// SearchTrack returns the best track match for a free-text query, or nil
// when nothing matched.
func (s *SpotifyService) SearchTrack(ctx context.Context, accessToken, query string) (*Track, error) {
	endpoint := fmt.Sprintf("/search?q=%s&type=track&limit=1", url.QueryEscape(query))

	var response struct {
		Tracks struct {
			Items []spotifyTrack `json:"items"`
		} `json:"tracks"`
	}
	if err := s.doRequest(ctx, accessToken, endpoint, &response); err != nil {
		return nil, err
	}

	if len(response.Tracks.Items) == 0 {
		return nil, nil
	}

	track := trackFromSpotify(response.Tracks.Items[0])
	return &track, nil
}

// doRequest performs an authenticated GET against the Spotify Web API.
func (s *SpotifyService) doRequest(ctx context.Context, accessToken, endpoint string, result any) error {
	if accessToken == "" {
		return fmt.Errorf("%w: no access token supplied", shared.ErrAuthRequired)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter interrupted: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, spotifyBaseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%w: %s", shared.ErrUpstreamTimeout, endpoint)
		}
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: provider rejected token (status %d)", shared.ErrNotAuthenticated, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: spotify status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// grantFromToken normalizes an [oauth2.Token] into a [TokenGrant].
func grantFromToken(token *oauth2.Token) *TokenGrant {
	grant := &TokenGrant{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}

	if v, ok := token.Extra("expires_in").(float64); ok && v > 0 {
		grant.ExpiresIn = int(v)
	} else if !token.Expiry.IsZero() {
		grant.ExpiresIn = int(time.Until(token.Expiry).Seconds())
	}

	return grant
}

// mapTokenError converts token-endpoint failures into the credential
// error taxonomy, keeping timeouts distinct from provider rejections.
func mapTokenError(err error, sentinel error) error {
	if isTimeout(err) {
		return fmt.Errorf("%w: %v", shared.ErrUpstreamTimeout, err)
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return fmt.Errorf("%w: provider status %d", sentinel, retrieveErr.Response.StatusCode)
	}

	return fmt.Errorf("%w: %v", sentinel, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 50 {
		return 50
	}
	return limit
}

func artistFromSpotify(item spotifyArtist) Artist {
	artist := Artist{
		ID:     item.ID,
		Name:   item.Name,
		Genres: item.Genres,
	}
	if len(item.Images) > 0 {
		artist.ImageURL = item.Images[0].URL
	}
	return artist
}

func trackFromSpotify(item spotifyTrack) Track {
	track := Track{
		ID:         item.ID,
		Name:       item.Name,
		Album:      item.Album.Name,
		PreviewURL: item.PreviewURL,
		DurationMS: item.DurationMS,
	}
	if len(item.Artists) > 0 {
		track.Artist = item.Artists[0].Name
	}
	if len(item.Album.Images) > 0 {
		track.ImageURL = item.Album.Images[0].URL
	}
	return track
}
