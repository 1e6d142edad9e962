// Package user holds the user store implementations: the flat users.json file
// used in production by default, an in-memory store for tests, and optional
// Redis and Postgres backends.
package user

import (
	"context"
	"sync"

	"safesupport/internal/auth/models"
	"safesupport/pkg/platform/sentinel"
)

// InMemoryUserStore keeps users in a map guarded by a mutex.
type InMemoryUserStore struct {
	mu    sync.RWMutex
	users map[string]*models.User
	order []string
}

func New() *InMemoryUserStore {
	return &InMemoryUserStore{users: make(map[string]*models.User)}
}

func (s *InMemoryUserStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := models.NormalizeEmail(user.Email)
	for _, existing := range s.users {
		if models.NormalizeEmail(existing.Email) == email {
			return sentinel.ErrConflict
		}
	}
	if _, ok := s.users[user.ID]; ok {
		return sentinel.ErrConflict
	}
	s.users[user.ID] = user.Clone()
	s.order = append(s.order, user.ID)
	return nil
}

func (s *InMemoryUserStore) FindByID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if user, ok := s.users[id]; ok {
		return user.Clone(), nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	email = models.NormalizeEmail(email)
	for _, id := range s.order {
		if u := s.users[id]; models.NormalizeEmail(u.Email) == email {
			return u.Clone(), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// Update applies fn to a copy of the user and stores the result if fn succeeds.
func (s *InMemoryUserStore) Update(_ context.Context, id string, fn func(*models.User) error) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.users[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.ID = id
	s.users[id] = next
	return next.Clone(), nil
}
