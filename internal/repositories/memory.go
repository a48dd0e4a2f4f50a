package repositories

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/riffline/riffline/internal/models"
	"github.com/riffline/riffline/internal/shared"
)

// MemoryUserStore holds credential records in memory, for tests and dev.
//
// Error contract matches [UserRepository]: lookups for missing records
// return [shared.ErrUserNotFound], duplicate creates return
// [shared.ErrDuplicateUser]. Same-record writes are last-write-wins.
// Reads and writes copy the record, like the SQLite store's row scans,
// so callers never mutate the stored record directly.
type MemoryUserStore struct {
	mu       sync.RWMutex
	users    map[string]*models.User
	sequence int
}

// NewMemoryUserStore constructs an empty in-memory credential store.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[string]*models.User)}
}

// Create assigns a store-local id and sequence, failing fast on a
// duplicate provider id.
func (s *MemoryUserStore) Create(user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.SpotifyID() == user.SpotifyID() {
			return fmt.Errorf("%w: spotify id %s", shared.ErrDuplicateUser, user.SpotifyID())
		}
	}

	s.sequence++
	user.SetSequence(s.sequence)
	user.SetID(shared.GenerateID())

	if err := user.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	stored := *user
	s.users[stored.ID()] = &stored
	return nil
}

// Get retrieves a record by store-local id.
func (s *MemoryUserStore) Get(id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if user, ok := s.users[id]; ok {
		found := *user
		return &found, nil
	}
	return nil, fmt.Errorf("%w: id %s", shared.ErrUserNotFound, id)
}

// GetBySpotifyID retrieves a record by provider account id.
func (s *MemoryUserStore) GetBySpotifyID(spotifyID string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if user.SpotifyID() == spotifyID {
			found := *user
			return &found, nil
		}
	}
	return nil, fmt.Errorf("%w: spotify id %s", shared.ErrUserNotFound, spotifyID)
}

// Update replaces the stored record keyed by its store-local id.
func (s *MemoryUserStore) Update(user *models.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID()]; !ok {
		return fmt.Errorf("%w: id %s", shared.ErrUserNotFound, user.ID())
	}

	user.SetUpdatedAt(time.Now())
	stored := *user
	s.users[stored.ID()] = &stored
	return nil
}

// List returns all records ordered by sequence.
func (s *MemoryUserStore) List() ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]*models.User, 0, len(s.users))
	for _, user := range s.users {
		found := *user
		users = append(users, &found)
	}

	sort.Slice(users, func(i, j int) bool {
		return users[i].Sequence() < users[j].Sequence()
	})

	return users, nil
}
