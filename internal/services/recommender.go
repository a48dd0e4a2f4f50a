// Client for the custom recommendation micro-service.
//
// The service is an opaque HTTP collaborator: POST /recommend with seed
// songs, get similar songs back. Its internal algorithm is out of scope.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/riffline/riffline/internal/shared"
)

// SeedSong identifies a song in the recommender's dataset.
type SeedSong struct {
	Name string `json:"name"`
	Year int    `json:"year,omitempty"`
}

// Recommendation is one song returned by the recommender.
type Recommendation struct {
	Name    string   `json:"name"`
	Year    int      `json:"year"`
	Artists []string `json:"artists"`
}

// RecommenderService calls the recommendation micro-service.
type RecommenderService struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

// NewRecommenderService creates a recommender client for the given base URL.
func NewRecommenderService(baseURL string, client *http.Client) *RecommenderService {
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &RecommenderService{
		baseURL:    baseURL,
		httpClient: client,
		timeout:    defaultTimeout,
	}
}

// Recommend posts the seed songs and returns the micro-service's picks.
func (r *RecommenderService) Recommend(ctx context.Context, seeds []SeedSong) ([]Recommendation, error) {
	if len(seeds) == 0 {
		return nil, fmt.Errorf("%w: no seed songs provided", shared.ErrValidation)
	}

	payload, err := json.Marshal(map[string][]SeedSong{"songs": seeds})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal seeds: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/recommend", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: recommender", shared.ErrUpstreamTimeout)
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: recommender status %d, body: %s", shared.ErrAPIRequest, resp.StatusCode, string(body))
	}

	var recs []Recommendation
	if err := json.NewDecoder(resp.Body).Decode(&recs); err != nil {
		return nil, fmt.Errorf("failed to decode recommendations: %w", err)
	}

	return recs, nil
}

// SampleRecommendations is the fixed fallback list served when the
// micro-service is unreachable. Callers flag responses built from it as
// degraded so clients can tell the fidelity level.
func SampleRecommendations() []Recommendation {
	return []Recommendation{
		{Name: "Uptown Funk", Year: 2014, Artists: []string{"Mark Ronson", "Bruno Mars"}},
		{Name: "Despacito", Year: 2017, Artists: []string{"Luis Fonsi", "Daddy Yankee"}},
		{Name: "Africa", Year: 1982, Artists: []string{"Toto"}},
		{Name: "Take on Me", Year: 1984, Artists: []string{"a-ha"}},
		{Name: "Dancing Queen", Year: 1976, Artists: []string{"ABBA"}},
	}
}
