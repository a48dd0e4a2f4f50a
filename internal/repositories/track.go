package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/riffline/riffline/internal/models"
	"github.com/riffline/riffline/internal/shared"
)

// GeneratedTrackRepository persists [models.GeneratedTrack] records.
type GeneratedTrackRepository struct {
	db *sql.DB
}

// NewGeneratedTrackRepository creates a repository with the given database connection
func NewGeneratedTrackRepository(db *sql.DB) *GeneratedTrackRepository {
	return &GeneratedTrackRepository{db: db}
}

// Create inserts a generated track with generated ID and sequence.
func (r *GeneratedTrackRepository) Create(track *models.GeneratedTrack) error {
	sequence, err := NextSequence(r.db, "generated_tracks")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}
	track.SetSequence(sequence)
	track.SetID(shared.GenerateID())

	if err := track.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO generated_tracks (id, sequence, user_id, title, genre, mood, duration, inspiration, audio_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var userID any
	if track.UserID() != "" {
		userID = track.UserID()
	}

	_, err = r.db.Exec(query, track.ID(), sequence, userID, track.Title(), track.Genre(), track.Mood(),
		track.Duration(), track.Inspiration(), track.AudioURL(), track.CreatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert generated track: %w", err)
	}

	return nil
}

// ListByUser retrieves all generated tracks owned by the given user.
func (r *GeneratedTrackRepository) ListByUser(userID string) ([]*models.GeneratedTrack, error) {
	query := `
		SELECT id, sequence, user_id, title, genre, mood, duration, inspiration, audio_url, created_at
		FROM generated_tracks
		WHERE user_id = ?
		ORDER BY sequence ASC
	`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query generated tracks: %w", err)
	}
	defer rows.Close()

	var tracks []*models.GeneratedTrack
	for rows.Next() {
		var (
			id          string
			sequence    int
			owner       sql.NullString
			title       string
			genre       string
			mood        string
			duration    int
			inspiration sql.NullString
			audioURL    sql.NullString
			createdAt   time.Time
		)

		err := rows.Scan(&id, &sequence, &owner, &title, &genre, &mood, &duration, &inspiration, &audioURL, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan generated track: %w", err)
		}

		track := models.NewGeneratedTrack(sequence, owner.String, title, genre, mood, duration)
		track.SetID(id)
		track.SetInspiration(inspiration.String)
		track.SetAudioURL(audioURL.String)
		track.SetCreatedAt(createdAt)

		tracks = append(tracks, track)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tracks, nil
}
