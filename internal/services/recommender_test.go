package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/riffline/riffline/internal/shared"
)

func TestRecommenderService(t *testing.T) {
	t.Run("Recommend Success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/recommend" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}

			var payload map[string][]SeedSong
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				t.Errorf("failed to decode payload: %v", err)
			}
			if len(payload["songs"]) != 2 {
				t.Errorf("expected 2 seed songs, got %d", len(payload["songs"]))
			}

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode([]Recommendation{
				{Name: "Similar Song", Year: 2019, Artists: []string{"Artist"}},
			})
		}))
		defer server.Close()

		svc := NewRecommenderService(server.URL, server.Client())
		recs, err := svc.Recommend(context.Background(), []SeedSong{
			{Name: "Seed One", Year: 2015},
			{Name: "Seed Two"},
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(recs) != 1 || recs[0].Name != "Similar Song" {
			t.Errorf("unexpected recommendations %+v", recs)
		}
	})

	t.Run("Recommend Without Seeds", func(t *testing.T) {
		svc := NewRecommenderService("http://localhost:8000", nil)

		if _, err := svc.Recommend(context.Background(), nil); !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("Recommend Upstream Error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer server.Close()

		svc := NewRecommenderService(server.URL, server.Client())
		_, err := svc.Recommend(context.Background(), []SeedSong{{Name: "Seed"}})
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("Recommend Unreachable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close()

		svc := NewRecommenderService(server.URL, nil)
		_, err := svc.Recommend(context.Background(), []SeedSong{{Name: "Seed"}})
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("SampleRecommendations Are Stable", func(t *testing.T) {
		first := SampleRecommendations()
		second := SampleRecommendations()

		if len(first) != 5 {
			t.Fatalf("expected 5 samples, got %d", len(first))
		}
		for i := range first {
			if first[i].Name != second[i].Name {
				t.Error("sample list should be deterministic")
			}
		}
	})
}
