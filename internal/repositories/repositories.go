// Package repositories provides persistence for credential records and
// generated tracks.
//
// The SQLite-backed repositories are the durable store; [MemoryUserStore]
// is a mutex-guarded map with the same contract, used in tests and dev.
// Store-local identifiers are assigned inside the store, never by callers.
package repositories

import (
	"database/sql"
	"fmt"

	"github.com/riffline/riffline/internal/models"
)

// UserStore is the credential store contract consumed by the session
// facade and the HTTP handlers.
//
// Create fails fast on a duplicate provider id so logic errors surface
// instead of silently forking records. Update is a full replace keyed by
// the store-local id; repeating an Update with the same record is a no-op.
// Distinct records may be read and updated concurrently; updates to the
// same record are last-write-wins.
type UserStore interface {
	Get(id string) (*models.User, error)
	GetBySpotifyID(spotifyID string) (*models.User, error)
	Create(user *models.User) error
	Update(user *models.User) error
	List() ([]*models.User, error)
}

// NextSequence atomically increments and returns the next sequence number for the given table.
//
// Sequence numbers provide human-readable ordering for entities. They are
// used internally for sorting and debugging, not exposed in API responses.
func NextSequence(db *sql.DB, table string) (int, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sequenceTable := table + "_sequence"

	_, err = tx.Exec(fmt.Sprintf("UPDATE %s SET value = value + 1 WHERE id = 1", sequenceTable))
	if err != nil {
		return 0, fmt.Errorf("failed to increment sequence: %w", err)
	}

	var sequence int
	err = tx.QueryRow(fmt.Sprintf("SELECT value FROM %s WHERE id = 1", sequenceTable)).Scan(&sequence)
	if err != nil {
		return 0, fmt.Errorf("failed to get sequence value: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit sequence transaction: %w", err)
	}

	return sequence, nil
}
