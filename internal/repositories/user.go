package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/riffline/riffline/internal/models"
	"github.com/riffline/riffline/internal/shared"
)

// UserRepository implements [UserStore] over SQLite.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new [UserRepository] with the given database connection
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new credential record with generated ID and sequence.
//
// Fails with [shared.ErrDuplicateUser] when a record for the same Spotify
// account already exists.
func (r *UserRepository) Create(user *models.User) error {
	if _, err := r.GetBySpotifyID(user.SpotifyID()); err == nil {
		return fmt.Errorf("%w: spotify id %s", shared.ErrDuplicateUser, user.SpotifyID())
	}

	sequence, err := NextSequence(r.db, "users")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}
	user.SetSequence(sequence)

	id := shared.GenerateID()
	user.SetID(id)

	if err := user.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO users (id, sequence, username, spotify_id, access_token, refresh_token, expires_at,
			display_name, avatar_url, email, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query, id, sequence, user.Username(), user.SpotifyID(), user.AccessToken(),
		user.RefreshToken(), user.ExpiresAt(), user.DisplayName(), user.AvatarURL(), user.Email(),
		user.CreatedAt(), user.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// Get retrieves a credential record by store-local ID.
func (r *UserRepository) Get(id string) (*models.User, error) {
	return r.getBy("id", id)
}

// GetBySpotifyID retrieves a credential record by provider account id.
func (r *UserRepository) GetBySpotifyID(spotifyID string) (*models.User, error) {
	return r.getBy("spotify_id", spotifyID)
}

func (r *UserRepository) getBy(column, value string) (*models.User, error) {
	query := fmt.Sprintf(`
		SELECT id, sequence, username, spotify_id, access_token, refresh_token, expires_at,
			display_name, avatar_url, email, created_at, updated_at
		FROM users
		WHERE %s = ?
	`, column)

	user, err := scanUser(r.db.QueryRow(query, value))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s %s", shared.ErrUserNotFound, column, value)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	return user, nil
}

// Update replaces an existing record keyed by its store-local id.
// There is no partial-field merge; callers mutate the record and save it whole.
func (r *UserRepository) Update(user *models.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	user.SetUpdatedAt(time.Now())

	query := `
		UPDATE users
		SET username = ?, access_token = ?, refresh_token = ?, expires_at = ?,
			display_name = ?, avatar_url = ?, email = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query, user.Username(), user.AccessToken(), user.RefreshToken(),
		user.ExpiresAt(), user.DisplayName(), user.AvatarURL(), user.Email(), user.UpdatedAt(), user.ID())
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: id %s", shared.ErrUserNotFound, user.ID())
	}

	return nil
}

// List retrieves all credential records ordered by sequence.
func (r *UserRepository) List() ([]*models.User, error) {
	query := `
		SELECT id, sequence, username, spotify_id, access_token, refresh_token, expires_at,
			display_name, avatar_url, email, created_at, updated_at
		FROM users
		ORDER BY sequence ASC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return users, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		id           string
		sequence     int
		username     string
		spotifyID    string
		accessToken  string
		refreshToken string
		expiresAt    time.Time
		displayName  sql.NullString
		avatarURL    sql.NullString
		email        sql.NullString
		createdAt    time.Time
		updatedAt    time.Time
	)

	err := row.Scan(&id, &sequence, &username, &spotifyID, &accessToken, &refreshToken, &expiresAt,
		&displayName, &avatarURL, &email, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	user := models.NewUser(sequence, username, spotifyID)
	user.SetID(id)
	user.SetAccessToken(accessToken, expiresAt)
	user.SetRefreshToken(refreshToken)
	user.SetProfile(displayName.String, avatarURL.String, email.String)
	user.SetCreatedAt(createdAt)
	user.SetUpdatedAt(updatedAt)

	return user, nil
}
