package models

import (
	"fmt"
	"time"
)

// Model defines the base interface for all persistent models in the service.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// User is the credential record for one Spotify account.
//
// Exactly one record exists per spotifyID. The record is created on the
// first successful authorization-code exchange and mutated in place on
// every later login or refresh; it is never deleted by the service.
type User struct {
	id           string
	sequence     int
	username     string
	spotifyID    string
	accessToken  string
	refreshToken string
	expiresAt    time.Time
	displayName  string
	avatarURL    string
	email        string
	createdAt    time.Time
	updatedAt    time.Time
}

// NewUser creates a user keyed by the provider account id.
func NewUser(sequence int, username, spotifyID string) *User {
	now := time.Now()
	return &User{
		sequence:  sequence,
		username:  username,
		spotifyID: spotifyID,
		createdAt: now,
		updatedAt: now,
	}
}

func (u *User) ID() string { return u.id }
func (u *User) Sequence() int { return u.sequence }
func (u *User) Username() string { return u.username }
func (u *User) SpotifyID() string { return u.spotifyID }
func (u *User) AccessToken() string { return u.accessToken }
func (u *User) RefreshToken() string { return u.refreshToken }
func (u *User) ExpiresAt() time.Time { return u.expiresAt }
func (u *User) DisplayName() string { return u.displayName }
func (u *User) AvatarURL() string { return u.avatarURL }
func (u *User) Email() string { return u.email }
func (u *User) CreatedAt() time.Time { return u.createdAt }
func (u *User) UpdatedAt() time.Time { return u.updatedAt }

func (u *User) SetID(id string) { u.id = id }
func (u *User) SetSequence(seq int) { u.sequence = seq }
func (u *User) SetUpdatedAt(t time.Time) { u.updatedAt = t }
func (u *User) SetCreatedAt(t time.Time) { u.createdAt = t }
func (u *User) SetRefreshToken(tok string) { u.refreshToken = tok }

// SetAccessToken updates the access token and its expiry together.
// The two fields are never set independently.
func (u *User) SetAccessToken(token string, expiresAt time.Time) {
	u.accessToken = token
	u.expiresAt = expiresAt
}

// SetProfile updates the denormalized profile fields from the provider.
func (u *User) SetProfile(displayName, avatarURL, email string) {
	u.displayName = displayName
	u.avatarURL = avatarURL
	u.email = email
}

// Validate checks required fields and the token/expiry pairing invariant.
func (u *User) Validate() error {
	if u.spotifyID == "" {
		return fmt.Errorf("spotify id is required")
	}
	if u.username == "" {
		return fmt.Errorf("username is required")
	}
	if u.accessToken != "" && u.expiresAt.IsZero() {
		return fmt.Errorf("access token set without expiry")
	}
	if u.accessToken == "" && !u.expiresAt.IsZero() {
		return fmt.Errorf("expiry set without access token")
	}
	return nil
}

// GeneratedTrack records one placeholder track produced by the generator.
type GeneratedTrack struct {
	id          string
	sequence    int
	userID      string
	title       string
	genre       string
	mood        string
	duration    int
	inspiration string
	audioURL    string
	createdAt   time.Time
}

// NewGeneratedTrack creates a generated track owned by userID (may be empty
// for anonymous generations that are returned but not persisted).
func NewGeneratedTrack(sequence int, userID, title, genre, mood string, duration int) *GeneratedTrack {
	return &GeneratedTrack{
		sequence:  sequence,
		userID:    userID,
		title:     title,
		genre:     genre,
		mood:      mood,
		duration:  duration,
		createdAt: time.Now(),
	}
}

func (g *GeneratedTrack) ID() string { return g.id }
func (g *GeneratedTrack) Sequence() int { return g.sequence }
func (g *GeneratedTrack) UserID() string { return g.userID }
func (g *GeneratedTrack) Title() string { return g.title }
func (g *GeneratedTrack) Genre() string { return g.genre }
func (g *GeneratedTrack) Mood() string { return g.mood }
func (g *GeneratedTrack) Duration() int { return g.duration }
func (g *GeneratedTrack) Inspiration() string { return g.inspiration }
func (g *GeneratedTrack) AudioURL() string { return g.audioURL }
func (g *GeneratedTrack) CreatedAt() time.Time { return g.createdAt }
func (g *GeneratedTrack) UpdatedAt() time.Time { return g.createdAt }

func (g *GeneratedTrack) SetID(id string) { g.id = id }
func (g *GeneratedTrack) SetSequence(seq int) { g.sequence = seq }
func (g *GeneratedTrack) SetCreatedAt(t time.Time) { g.createdAt = t }
func (g *GeneratedTrack) SetInspiration(text string) { g.inspiration = text }
func (g *GeneratedTrack) SetAudioURL(url string) { g.audioURL = url }

// Validate checks required fields and the duration bound.
func (g *GeneratedTrack) Validate() error {
	if g.title == "" {
		return fmt.Errorf("title is required")
	}
	if g.genre == "" {
		return fmt.Errorf("genre is required")
	}
	if g.mood == "" {
		return fmt.Errorf("mood is required")
	}
	if g.duration < 30 || g.duration > 180 {
		return fmt.Errorf("duration must be between 30 and 180 seconds")
	}
	return nil
}
