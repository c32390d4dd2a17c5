// Package memory implements a [domain.Storage] kept in process memory.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/vinicius-lino-figueiredo/kvdb/domain"
)

// Storage implements domain.Storage.
type Storage struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewStorage returns a new implementation of domain.Storage.
func NewStorage() domain.Storage {
	return &Storage{values: make(map[string][]byte)}
}

// Read implements domain.Storage.
func (s *Storage) Read(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.values[key]
	return slices.Clone(b), ok, nil
}

// Write implements domain.Storage.
func (s *Storage) Write(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = slices.Clone(data)
	return nil
}

// Remove implements domain.Storage.
func (s *Storage) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// Supported implements domain.Storage.
func (s *Storage) Supported() bool {
	return true
}

// Close implements domain.Storage.
func (s *Storage) Close() error {
	return nil
}
