package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/riffline/riffline/internal/services"
	"github.com/riffline/riffline/internal/shared"
	"github.com/riffline/riffline/internal/tasks"
)

// APIHandler serves the authenticated data endpoints and the custom
// recommendation proxy.
type APIHandler struct {
	provider    services.Provider
	stats       *tasks.StatsEngine
	recommender *services.RecommenderService
	logger      *log.Logger
}

// NewAPIHandler creates the data endpoint group.
func NewAPIHandler(provider services.Provider, stats *tasks.StatsEngine, recommender *services.RecommenderService, logger *log.Logger) *APIHandler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &APIHandler{
		provider:    provider,
		stats:       stats,
		recommender: recommender,
		logger:      logger,
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *APIHandler) Routes() []string {
	return []string{"/api/user", "/api/stats", "/api/recommendations", "/api/recommendations/custom"}
}

func (h *APIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api/recommendations/custom" {
		h.customRecommendations(w, r)
		return
	}

	// The remaining endpoints are strictly auth-gated.
	token, ok := BearerToken(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	switch r.URL.Path {
	case "/api/user":
		h.user(w, r, token)
	case "/api/stats":
		h.userStats(w, r, token)
	case "/api/recommendations":
		h.recommendations(w, r, token)
	default:
		http.NotFound(w, r)
	}
}

// user proxies the provider profile for the presented token.
func (h *APIHandler) user(w http.ResponseWriter, r *http.Request, token string) {
	profile, err := h.provider.Profile(r.Context(), token)
	if err != nil {
		h.writeUpstreamError(w, err, "Failed to fetch profile")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":           profile.ID,
		"display_name": profile.DisplayName,
		"email":        profile.Email,
		"country":      profile.Country,
		"product":      profile.Product,
		"avatar_url":   profile.AvatarURL,
		"followers":    profile.Followers,
	})
}

// userStats aggregates listening statistics for the presented token.
func (h *APIHandler) userStats(w http.ResponseWriter, r *http.Request, token string) {
	stats, err := h.stats.Build(r.Context(), token)
	if err != nil {
		h.writeUpstreamError(w, err, "Failed to fetch stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// recommendations seeds provider recommendations from the account's top tracks.
func (h *APIHandler) recommendations(w http.ResponseWriter, r *http.Request, token string) {
	topTracks, err := h.provider.TopTracks(r.Context(), token, 5, "")
	if err != nil {
		h.writeUpstreamError(w, err, "Failed to fetch recommendations")
		return
	}

	seeds := make([]string, 0, len(topTracks))
	for _, track := range topTracks {
		seeds = append(seeds, track.ID)
	}

	recommended, err := h.provider.Recommendations(r.Context(), token, seeds, 8)
	if err != nil {
		h.writeUpstreamError(w, err, "Failed to fetch recommendations")
		return
	}

	response := make([]map[string]string, 0, len(recommended))
	for _, track := range recommended {
		response = append(response, map[string]string{
			"id":       track.ID,
			"name":     track.Name,
			"artist":   track.Artist,
			"imageUrl": track.ImageURL,
		})
	}

	writeJSON(w, http.StatusOK, response)
}

// customRecommendations proxies seed songs to the recommendation
// micro-service, falling back to the fixed sample list (flagged degraded)
// when the service is unreachable.
func (h *APIHandler) customRecommendations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var body struct {
		SeedSongs []services.SeedSong `json:"seedSongs"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.SeedSongs) == 0 {
		writeError(w, http.StatusBadRequest, "Invalid seed songs")
		return
	}

	recs, err := h.recommender.Recommend(r.Context(), body.SeedSongs)
	if err != nil {
		h.logger.Warn("recommender unavailable, serving sample list", "error", err)
		writeJSON(w, http.StatusOK, map[string]any{
			"recommendations": services.SampleRecommendations(),
			"degraded":        true,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"recommendations": recs,
		"degraded":        false,
	})
}

// writeUpstreamError maps provider failures onto response codes: a
// rejected token reads as 401, everything else as a generic 500.
func (h *APIHandler) writeUpstreamError(w http.ResponseWriter, err error, message string) {
	if errors.Is(err, shared.ErrNotAuthenticated) {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	h.logger.Error("provider request failed", "error", err)
	writeError(w, http.StatusInternalServerError, message)
}
