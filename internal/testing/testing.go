// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/riffline/riffline/internal/services"
)

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// JSONResponse builds an *http.Response with a JSON body for round-trip doubles.
func JSONResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// StubProvider is a test double for [services.Provider]. Each field
// overrides one method; unset methods return zero values.
type StubProvider struct {
	AuthURLFunc         func(state string) string
	ExchangeCodeFunc    func(ctx context.Context, code string) (*services.TokenGrant, error)
	RefreshFunc         func(ctx context.Context, refreshToken string) (*services.TokenGrant, error)
	ProfileFunc         func(ctx context.Context, accessToken string) (*services.Profile, error)
	TopArtistsFunc      func(ctx context.Context, accessToken string, limit int, timeRange string) ([]services.Artist, error)
	TopTracksFunc       func(ctx context.Context, accessToken string, limit int, timeRange string) ([]services.Track, error)
	RecommendationsFunc func(ctx context.Context, accessToken string, seedTrackIDs []string, limit int) ([]services.Track, error)
	SearchTrackFunc     func(ctx context.Context, accessToken, query string) (*services.Track, error)

	// Call counters are atomic so concurrent tests can read them safely.
	ExchangeCalls atomic.Int64
	RefreshCalls  atomic.Int64
}

func (s *StubProvider) Name() string { return "stub" }

func (s *StubProvider) AuthURL(state string) string {
	if s.AuthURLFunc != nil {
		return s.AuthURLFunc(state)
	}
	return "https://accounts.example.com/authorize?state=" + state
}

func (s *StubProvider) ExchangeCode(ctx context.Context, code string) (*services.TokenGrant, error) {
	s.ExchangeCalls.Add(1)
	if s.ExchangeCodeFunc != nil {
		return s.ExchangeCodeFunc(ctx, code)
	}
	return nil, errors.New("exchange not stubbed")
}

func (s *StubProvider) Refresh(ctx context.Context, refreshToken string) (*services.TokenGrant, error) {
	s.RefreshCalls.Add(1)
	if s.RefreshFunc != nil {
		return s.RefreshFunc(ctx, refreshToken)
	}
	return nil, errors.New("refresh not stubbed")
}

func (s *StubProvider) Profile(ctx context.Context, accessToken string) (*services.Profile, error) {
	if s.ProfileFunc != nil {
		return s.ProfileFunc(ctx, accessToken)
	}
	return nil, errors.New("profile not stubbed")
}

func (s *StubProvider) TopArtists(ctx context.Context, accessToken string, limit int, timeRange string) ([]services.Artist, error) {
	if s.TopArtistsFunc != nil {
		return s.TopArtistsFunc(ctx, accessToken, limit, timeRange)
	}
	return nil, nil
}

func (s *StubProvider) TopTracks(ctx context.Context, accessToken string, limit int, timeRange string) ([]services.Track, error) {
	if s.TopTracksFunc != nil {
		return s.TopTracksFunc(ctx, accessToken, limit, timeRange)
	}
	return nil, nil
}

func (s *StubProvider) Recommendations(ctx context.Context, accessToken string, seedTrackIDs []string, limit int) ([]services.Track, error) {
	if s.RecommendationsFunc != nil {
		return s.RecommendationsFunc(ctx, accessToken, seedTrackIDs, limit)
	}
	return nil, nil
}

func (s *StubProvider) SearchTrack(ctx context.Context, accessToken, query string) (*services.Track, error) {
	if s.SearchTrackFunc != nil {
		return s.SearchTrackFunc(ctx, accessToken, query)
	}
	return nil, nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}
