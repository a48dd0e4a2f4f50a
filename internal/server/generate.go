package server

import (
	"encoding/json"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/riffline/riffline/internal/generator"
	"github.com/riffline/riffline/internal/models"
	"github.com/riffline/riffline/internal/repositories"
	"github.com/riffline/riffline/internal/services"
	"github.com/riffline/riffline/internal/shared"
)

// TrackCreator persists generated tracks for authenticated users.
type TrackCreator interface {
	Create(track *models.GeneratedTrack) error
}

// GenerateHandler serves POST /api/generate.
//
// Authorization is optional on this endpoint: a missing token never
// produces an error, only a degraded result. That graceful-degradation
// policy is a contract, not a fallback of convenience.
type GenerateHandler struct {
	generator *generator.Generator
	provider  services.Provider
	users     repositories.UserStore
	tracks    TrackCreator
	logger    *log.Logger
}

// NewGenerateHandler creates the generation endpoint.
func NewGenerateHandler(gen *generator.Generator, provider services.Provider, users repositories.UserStore, tracks TrackCreator, logger *log.Logger) *GenerateHandler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &GenerateHandler{
		generator: gen,
		provider:  provider,
		users:     users,
		tracks:    tracks,
		logger:    logger,
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *GenerateHandler) Routes() []string {
	return []string{"/api/generate"}
}

func (h *GenerateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req generator.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if fieldErrs := req.Validate(); fieldErrs != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"message": "Invalid input",
			"errors":  fieldErrs,
		})
		return
	}

	// A bad or unresolvable token downgrades to the unauthenticated path
	// instead of failing the generation.
	token, user := h.resolveCaller(r)

	result, err := h.generator.Generate(r.Context(), req, token)
	if err != nil {
		h.logger.Error("generation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to generate music")
		return
	}

	trackID := shared.GenerateID()
	if user != nil && h.tracks != nil {
		track := models.NewGeneratedTrack(0, user.ID(), result.Title, result.Genre, result.Mood, result.Duration)
		track.SetInspiration(result.Inspiration)
		track.SetAudioURL(result.AudioURL)

		if err := h.tracks.Create(track); err != nil {
			h.logger.Warn("failed to persist generated track", "error", err)
		} else {
			trackID = track.ID()
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":          trackID,
		"title":       result.Title,
		"genre":       result.Genre,
		"mood":        result.Mood,
		"duration":    result.Duration,
		"inspiration": result.Inspiration,
		"audioUrl":    result.AudioURL,
		"fidelity":    result.Fidelity,
	})
}

// resolveCaller resolves the optional bearer token to a stored user.
// Any failure along the way returns the anonymous caller.
func (h *GenerateHandler) resolveCaller(r *http.Request) (string, *models.User) {
	token, ok := BearerToken(r)
	if !ok {
		return "", nil
	}

	profile, err := h.provider.Profile(r.Context(), token)
	if err != nil {
		h.logger.Warn("could not resolve caller, continuing unauthenticated", "error", err)
		return "", nil
	}

	user, err := h.users.GetBySpotifyID(profile.ID)
	if err != nil {
		return token, nil
	}

	return token, user
}
