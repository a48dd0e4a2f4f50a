package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/riffline/riffline/internal/shared"
	"golang.org/x/oauth2"
)

// mockRoundTripper allows custom HTTP responses for testing. It mirrors
// internal/testing's MockRoundTripper, inlined here because importing
// internal/testing from package services would create an import cycle.
type mockRoundTripper struct {
	response *http.Response
	err      error
}

func newMockRoundTripper(r *http.Response, e error) *mockRoundTripper {
	return &mockRoundTripper{response: r, err: e}
}

func (m *mockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// jsonResponse builds an *http.Response with a JSON body for round-trip doubles.
func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func testCredentials() shared.SpotifyConfig {
	return shared.SpotifyConfig{
		ClientID:     "test_client_id",
		ClientSecret: "test_client_secret",
		RedirectURI:  "http://localhost:5000/api/auth/callback",
	}
}

// tokenContext routes oauth2's token-endpoint calls through a mock transport.
func tokenContext(status int, body string) context.Context {
	client := &http.Client{Transport: newMockRoundTripper(jsonResponse(status, body), nil)}
	return context.WithValue(context.Background(), oauth2.HTTPClient, client)
}

func TestSpotifyService(t *testing.T) {
	t.Run("NewSpotifyService", func(t *testing.T) {
		t.Run("With Credentials", func(t *testing.T) {
			srv := NewSpotifyService(testCredentials())

			if srv == nil {
				t.Fatal("expected service to be created")
			}
			if srv.Name() != "Spotify" {
				t.Errorf("expected service name 'Spotify', got %s", srv.Name())
			}
		})

		t.Run("Default Redirect URI", func(t *testing.T) {
			srv := NewSpotifyService(shared.SpotifyConfig{ClientID: "id", ClientSecret: "secret"})

			if srv.config.RedirectURL != "http://localhost:5000/api/auth/callback" {
				t.Errorf("expected default redirect URI, got %s", srv.config.RedirectURL)
			}
		})
	})

	t.Run("AuthURL", func(t *testing.T) {
		srv := NewSpotifyService(testCredentials())
		authURL := srv.AuthURL("state_token")

		if !strings.HasPrefix(authURL, spotifyAuthURL) {
			t.Errorf("expected URL on %s, got %s", spotifyAuthURL, authURL)
		}
		if !strings.Contains(authURL, "state=state_token") {
			t.Error("expected state parameter in auth URL")
		}
		if !strings.Contains(authURL, "client_id=test_client_id") {
			t.Error("expected client_id parameter in auth URL")
		}
	})

	t.Run("ExchangeCode", func(t *testing.T) {
		t.Run("Success", func(t *testing.T) {
			srv := NewSpotifyService(testCredentials())
			ctx := tokenContext(http.StatusOK,
				`{"access_token":"AT1","token_type":"Bearer","refresh_token":"RT1","expires_in":3600}`)

			grant, err := srv.ExchangeCode(ctx, "auth_code")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if grant.AccessToken != "AT1" {
				t.Errorf("expected AT1, got %s", grant.AccessToken)
			}
			if grant.RefreshToken != "RT1" {
				t.Errorf("expected RT1, got %s", grant.RefreshToken)
			}
			if grant.ExpiresIn != 3600 {
				t.Errorf("expected 3600, got %d", grant.ExpiresIn)
			}
		})

		t.Run("Provider Rejection", func(t *testing.T) {
			srv := NewSpotifyService(testCredentials())
			ctx := tokenContext(http.StatusBadRequest, `{"error":"invalid_grant"}`)

			_, err := srv.ExchangeCode(ctx, "bad_code")
			if !errors.Is(err, shared.ErrExchangeFailed) {
				t.Errorf("expected ErrExchangeFailed, got %v", err)
			}
		})
	})

	t.Run("Refresh", func(t *testing.T) {
		t.Run("Empty Refresh Token", func(t *testing.T) {
			srv := NewSpotifyService(testCredentials())

			if _, err := srv.Refresh(context.Background(), ""); !errors.Is(err, shared.ErrNoRefreshToken) {
				t.Errorf("expected ErrNoRefreshToken, got %v", err)
			}
		})

		t.Run("Unrotated Refresh Token Comes Back Empty", func(t *testing.T) {
			srv := NewSpotifyService(testCredentials())
			ctx := tokenContext(http.StatusOK,
				`{"access_token":"AT2","token_type":"Bearer","refresh_token":"RT1","expires_in":3600}`)

			grant, err := srv.Refresh(ctx, "RT1")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if grant.AccessToken != "AT2" {
				t.Errorf("expected AT2, got %s", grant.AccessToken)
			}
			if grant.RefreshToken != "" {
				t.Errorf("expected empty refresh token for unrotated grant, got %s", grant.RefreshToken)
			}
		})

		t.Run("Rotated Refresh Token Survives", func(t *testing.T) {
			srv := NewSpotifyService(testCredentials())
			ctx := tokenContext(http.StatusOK,
				`{"access_token":"AT2","token_type":"Bearer","refresh_token":"RT2","expires_in":3600}`)

			grant, err := srv.Refresh(ctx, "RT1")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if grant.RefreshToken != "RT2" {
				t.Errorf("expected RT2, got %s", grant.RefreshToken)
			}
		})

		t.Run("Provider Rejection", func(t *testing.T) {
			srv := NewSpotifyService(testCredentials())
			ctx := tokenContext(http.StatusBadRequest, `{"error":"invalid_grant"}`)

			if _, err := srv.Refresh(ctx, "RT1"); !errors.Is(err, shared.ErrRefreshFailed) {
				t.Errorf("expected ErrRefreshFailed, got %v", err)
			}
		})
	})

	t.Run("Profile", func(t *testing.T) {
		t.Run("Success", func(t *testing.T) {
			srv := NewSpotifyService(testCredentials())
			srv.httpClient = &http.Client{Transport: newMockRoundTripper(jsonResponse(http.StatusOK,
				`{"id":"spotify_1","display_name":"Listener","email":"listener@example.com",
				  "followers":{"total":5},"images":[{"url":"https://i.example.com/a.png"}]}`), nil)}

			profile, err := srv.Profile(context.Background(), "AT1")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if profile.ID != "spotify_1" {
				t.Errorf("expected spotify_1, got %s", profile.ID)
			}
			if profile.AvatarURL != "https://i.example.com/a.png" {
				t.Errorf("unexpected avatar URL %s", profile.AvatarURL)
			}
			if profile.Followers != 5 {
				t.Errorf("expected 5 followers, got %d", profile.Followers)
			}
		})

		t.Run("Missing Access Token", func(t *testing.T) {
			srv := NewSpotifyService(testCredentials())

			if _, err := srv.Profile(context.Background(), ""); !errors.Is(err, shared.ErrAuthRequired) {
				t.Errorf("expected ErrAuthRequired, got %v", err)
			}
		})

		t.Run("Rejected Token", func(t *testing.T) {
			srv := NewSpotifyService(testCredentials())
			srv.httpClient = &http.Client{Transport: newMockRoundTripper(
				jsonResponse(http.StatusUnauthorized, `{"error":{"status":401}}`), nil)}

			if _, err := srv.Profile(context.Background(), "stale"); !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
		})

		t.Run("Upstream Failure", func(t *testing.T) {
			srv := NewSpotifyService(testCredentials())
			srv.httpClient = &http.Client{Transport: newMockRoundTripper(
				jsonResponse(http.StatusInternalServerError, `{}`), nil)}

			if _, err := srv.Profile(context.Background(), "AT1"); !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
		})

		t.Run("Transport Timeout", func(t *testing.T) {
			srv := NewSpotifyService(testCredentials())
			srv.httpClient = &http.Client{Transport: newMockRoundTripper(nil, context.DeadlineExceeded)}

			if _, err := srv.Profile(context.Background(), "AT1"); !errors.Is(err, shared.ErrUpstreamTimeout) {
				t.Errorf("expected ErrUpstreamTimeout, got %v", err)
			}
		})
	})

	t.Run("TopArtists", func(t *testing.T) {
		srv := NewSpotifyService(testCredentials())
		srv.httpClient = &http.Client{Transport: newMockRoundTripper(jsonResponse(http.StatusOK,
			`{"items":[{"id":"a1","name":"Artist One","genres":["indie","rock"]},
			           {"id":"a2","name":"Artist Two","genres":["pop"]}]}`), nil)}

		artists, err := srv.TopArtists(context.Background(), "AT1", 10, "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(artists) != 2 {
			t.Fatalf("expected 2 artists, got %d", len(artists))
		}
		if artists[0].Name != "Artist One" {
			t.Errorf("expected Artist One, got %s", artists[0].Name)
		}
		if len(artists[0].Genres) != 2 {
			t.Errorf("expected 2 genres, got %d", len(artists[0].Genres))
		}
	})

	t.Run("TopTracks", func(t *testing.T) {
		srv := NewSpotifyService(testCredentials())
		srv.httpClient = &http.Client{Transport: newMockRoundTripper(jsonResponse(http.StatusOK,
			`{"items":[{"id":"t1","name":"Track One","duration_ms":201000,
			            "artists":[{"name":"Artist One"}],"album":{"name":"Album One"}}]}`), nil)}

		tracks, err := srv.TopTracks(context.Background(), "AT1", 50, "short_term")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(tracks) != 1 {
			t.Fatalf("expected 1 track, got %d", len(tracks))
		}
		if tracks[0].Artist != "Artist One" {
			t.Errorf("expected Artist One, got %s", tracks[0].Artist)
		}
		if tracks[0].Album != "Album One" {
			t.Errorf("expected Album One, got %s", tracks[0].Album)
		}
	})

	t.Run("Recommendations Require Seeds", func(t *testing.T) {
		srv := NewSpotifyService(testCredentials())

		if _, err := srv.Recommendations(context.Background(), "AT1", nil, 10); !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("SearchTrack", func(t *testing.T) {
		t.Run("Match", func(t *testing.T) {
			srv := NewSpotifyService(testCredentials())
			srv.httpClient = &http.Client{Transport: newMockRoundTripper(jsonResponse(http.StatusOK,
				`{"tracks":{"items":[{"id":"t1","name":"Found","preview_url":"https://p.example.com/t1.mp3"}]}}`), nil)}

			track, err := srv.SearchTrack(context.Background(), "AT1", "found")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if track == nil || track.PreviewURL != "https://p.example.com/t1.mp3" {
				t.Errorf("unexpected track %+v", track)
			}
		})

		t.Run("No Match", func(t *testing.T) {
			srv := NewSpotifyService(testCredentials())
			srv.httpClient = &http.Client{Transport: newMockRoundTripper(
				jsonResponse(http.StatusOK, `{"tracks":{"items":[]}}`), nil)}

			track, err := srv.SearchTrack(context.Background(), "AT1", "nothing")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if track != nil {
				t.Errorf("expected nil track, got %+v", track)
			}
		})
	})
}

func TestGrantFromToken(t *testing.T) {
	t.Run("Expires In Extra", func(t *testing.T) {
		token := (&oauth2.Token{AccessToken: "AT1"}).WithExtra(map[string]any{"expires_in": float64(1800)})

		grant := grantFromToken(token)
		if grant.ExpiresIn != 1800 {
			t.Errorf("expected 1800, got %d", grant.ExpiresIn)
		}
	})

	t.Run("Expiry Fallback", func(t *testing.T) {
		token := &oauth2.Token{AccessToken: "AT1", Expiry: time.Now().Add(time.Hour)}

		grant := grantFromToken(token)
		if grant.ExpiresIn < 3590 || grant.ExpiresIn > 3600 {
			t.Errorf("expected roughly 3600, got %d", grant.ExpiresIn)
		}
	})
}

func TestMapTokenError(t *testing.T) {
	t.Run("Timeout", func(t *testing.T) {
		err := mapTokenError(context.DeadlineExceeded, shared.ErrRefreshFailed)
		if !errors.Is(err, shared.ErrUpstreamTimeout) {
			t.Errorf("expected ErrUpstreamTimeout, got %v", err)
		}
	})

	t.Run("Retrieve Error", func(t *testing.T) {
		retrieveErr := &oauth2.RetrieveError{Response: &http.Response{StatusCode: http.StatusBadRequest}}

		err := mapTokenError(retrieveErr, shared.ErrExchangeFailed)
		if !errors.Is(err, shared.ErrExchangeFailed) {
			t.Errorf("expected ErrExchangeFailed, got %v", err)
		}
		if !strings.Contains(err.Error(), "400") {
			t.Errorf("expected provider status in message, got %v", err)
		}
	})

	t.Run("Other", func(t *testing.T) {
		err := mapTokenError(errors.New("connection refused"), shared.ErrRefreshFailed)
		if !errors.Is(err, shared.ErrRefreshFailed) {
			t.Errorf("expected ErrRefreshFailed, got %v", err)
		}
	})
}

func TestClampLimit(t *testing.T) {
	cases := []struct{ in, out int }{
		{0, 20},
		{-1, 20},
		{10, 10},
		{50, 50},
		{51, 50},
	}
	for _, c := range cases {
		if got := clampLimit(c.in); got != c.out {
			t.Errorf("clampLimit(%d) = %d, expected %d", c.in, got, c.out)
		}
	}
}
