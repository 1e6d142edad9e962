package store

import (
	"context"
	"sync"

	"safesupport/internal/alertlog"
)

// InMemoryStore keeps entries in a slice; used by tests.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []alertlog.Entry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, entry alertlog.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *InMemoryStore) Recent(_ context.Context, userID string, limit int) ([]alertlog.Entry, error) {
	if limit <= 0 {
		limit = alertlog.DefaultRecentLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := max(len(s.entries)-limit, 0)
	return alertlog.NewestFirstForUser(s.entries[start:], userID), nil
}

// All returns every entry in append order.
func (s *InMemoryStore) All() []alertlog.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]alertlog.Entry{}, s.entries...)
}
