package inmem

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/example/srsbot/pkg/models"
)

// Store is an in-memory profile store. Reads and writes go through deep
// copies so callers never share state with the store.
type Store struct {
	mu       sync.Mutex
	users    map[int64]*models.Progression
	writeErr error
	writes   int
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{users: make(map[int64]*models.Progression)}
}

// FailWrites makes every following ApplyUserUpdate return err. A nil err
// restores normal behaviour.
func (s *Store) FailWrites(err error) {
	s.mu.Lock()
	s.writeErr = err
	s.mu.Unlock()
}

// Writes returns the number of successful updates applied.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (s *Store) GetUser(_ context.Context, userID int64) (*models.Progression, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", userID, models.ErrNotFound)
	}
	return p.Clone(), nil
}

func (s *Store) CreateUser(_ context.Context, p *models.Progression) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[p.UserID]; ok {
		return fmt.Errorf("user %d: %w", p.UserID, models.ErrAlreadyExists)
	}
	s.users[p.UserID] = p.Clone()
	return nil
}

// ApplyUserUpdate merges u into the stored user. Either all of u is applied
// or none of it.
func (s *Store) ApplyUserUpdate(_ context.Context, userID int64, u *models.UserUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	p, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user %d: %w", userID, models.ErrNotFound)
	}
	p.Apply(u)
	s.writes++
	return nil
}

func (s *Store) ListUserIDs(_ context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
