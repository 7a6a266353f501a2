package inmemstore

import (
	"context"
	"sync"

	"github.com/trainingcmd/portal/core/session"
)

// Store keeps the session keys in memory only.
type Store struct {
	mutex  sync.RWMutex
	values map[string]string
}

var _ session.Store = (*Store)(nil)

func New() *Store {
	return &Store{values: make(map[string]string)}
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *Store) Set(_ context.Context, values map[string]string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for k, v := range values {
		s.values[k] = v
	}
	return nil
}

func (s *Store) Delete(_ context.Context, keys ...string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for _, k := range keys {
		delete(s.values, k)
	}
	return nil
}
