// Package generator produces placeholder "AI-generated" tracks from
// categorical parameters.
//
// There is no audio synthesis. Every generation succeeds whether or not
// the caller is authenticated: an access token lets the generator search
// the provider for a real preview sample (an enriched result), while its
// absence selects from a fixed fallback sample set (a degraded result).
// The fallback pick is deterministic in the request parameters so tests
// can assert on fidelity rather than incidental randomness.
package generator

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/riffline/riffline/internal/services"
	"github.com/riffline/riffline/internal/shared"
)

// Duration bounds for generated tracks, in seconds.
const (
	MinDuration = 30
	MaxDuration = 180
)

// Fidelity names the quality level of a generation result.
type Fidelity string

const (
	// FidelityDegraded marks a result built from the fallback sample set.
	FidelityDegraded Fidelity = "degraded"
	// FidelityEnriched marks a result carrying a provider preview sample.
	FidelityEnriched Fidelity = "enriched"
)

// Public-domain NASA recordings used when no provider sample is available.
var fallbackSamples = []string{
	"https://www.nasa.gov/wp-content/uploads/2015/01/spinning-pulsar.mp3",
	"https://www.nasa.gov/wp-content/uploads/2015/01/plasma-frequency-fluctuations.mp3",
	"https://www.nasa.gov/wp-content/uploads/2015/01/whistler-waves.mp3",
}

var (
	titleAdjectives = []string{"Cosmic", "Eternal", "Vibrant", "Midnight", "Electric", "Radiant"}
	titleNouns      = []string{"Waves", "Journey", "Dreams", "Horizon", "Echo", "Vision"}
)

// Request holds the categorical generation parameters.
type Request struct {
	Genre       string `json:"genre"`
	Mood        string `json:"mood"`
	Inspiration string `json:"inspiration,omitempty"`
	Duration    int    `json:"duration"`
}

// FieldError describes one invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validate returns a field error per violated constraint, or nil when the
// request is well formed.
func (r Request) Validate() []FieldError {
	var errs []FieldError

	if strings.TrimSpace(r.Genre) == "" {
		errs = append(errs, FieldError{Field: "genre", Message: "genre is required"})
	}
	if strings.TrimSpace(r.Mood) == "" {
		errs = append(errs, FieldError{Field: "mood", Message: "mood is required"})
	}
	if r.Duration < MinDuration || r.Duration > MaxDuration {
		errs = append(errs, FieldError{
			Field:   "duration",
			Message: fmt.Sprintf("duration must be between %d and %d seconds", MinDuration, MaxDuration),
		})
	}

	return errs
}

// seedQuery is the free-text provider search query for the request.
func (r Request) seedQuery() string {
	parts := []string{r.Genre, r.Mood}
	if r.Inspiration != "" {
		parts = append(parts, r.Inspiration)
	}
	return strings.Join(parts, " ")
}

// Result is a finished generation.
type Result struct {
	Title       string   `json:"title"`
	Genre       string   `json:"genre"`
	Mood        string   `json:"mood"`
	Duration    int      `json:"duration"`
	Inspiration string   `json:"inspiration,omitempty"`
	AudioURL    string   `json:"audioUrl"`
	Fidelity    Fidelity `json:"fidelity"`
}

// Searcher is the provider surface the generator uses for enrichment.
type Searcher interface {
	SearchTrack(ctx context.Context, accessToken, query string) (*services.Track, error)
}

// Generator synthesizes placeholder tracks.
type Generator struct {
	search Searcher
	logger *log.Logger
}

// New creates a generator. search may be nil, in which case every result
// is degraded.
func New(search Searcher, logger *log.Logger) *Generator {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Generator{search: search, logger: logger}
}

// Generate produces a track for the request.
//
// accessToken is optional. Absence of a token never produces an error,
// only a degraded result; the same holds when the provider search fails
// or returns nothing playable.
func (g *Generator) Generate(ctx context.Context, req Request, accessToken string) (*Result, error) {
	if errs := req.Validate(); errs != nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrValidation, errs[0].Message)
	}

	seed := hashSeed(req.seedQuery())

	result := &Result{
		Title:       titleFor(seed),
		Genre:       req.Genre,
		Mood:        req.Mood,
		Duration:    req.Duration,
		Inspiration: req.Inspiration,
		AudioURL:    fallbackSamples[seed%uint64(len(fallbackSamples))],
		Fidelity:    FidelityDegraded,
	}

	if accessToken == "" || g.search == nil {
		return result, nil
	}

	track, err := g.search.SearchTrack(ctx, accessToken, req.seedQuery())
	if err != nil {
		g.logger.Warn("provider search failed, serving degraded result", "error", err)
		return result, nil
	}
	if track == nil || track.PreviewURL == "" {
		return result, nil
	}

	result.AudioURL = track.PreviewURL
	result.Fidelity = FidelityEnriched
	return result, nil
}

func titleFor(seed uint64) string {
	adjective := titleAdjectives[seed%uint64(len(titleAdjectives))]
	noun := titleNouns[(seed/uint64(len(titleAdjectives)))%uint64(len(titleNouns))]
	return adjective + " " + noun
}

func hashSeed(query string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(strings.ToLower(query)))
	return h.Sum64()
}
