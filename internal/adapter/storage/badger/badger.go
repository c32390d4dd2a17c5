// Package badger implements a [domain.Storage] backed by a Badger database.
package badger

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"

	"github.com/vinicius-lino-figueiredo/kvdb/domain"
)

// Storage implements domain.Storage.
type Storage struct {
	db *badger.DB
}

// NewStorage opens (or creates) the Badger database in dir and returns a new
// implementation of domain.Storage. An empty dir keeps every value in memory.
func NewStorage(dir string) (domain.Storage, error) {
	opts := badger.DefaultOptions(dir).
		WithLoggingLevel(badger.ERROR)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Storage{db: db}, nil
}

// Read implements domain.Storage.
func (s *Storage) Read(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	var res []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		res, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if res == nil {
		res = []byte{}
	}
	return res, true, nil
}

// Write implements domain.Storage.
func (s *Storage) Write(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// Remove implements domain.Storage.
func (s *Storage) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// Supported implements domain.Storage.
func (s *Storage) Supported() bool {
	return !s.db.IsClosed()
}

// Close implements domain.Storage.
func (s *Storage) Close() error {
	return s.db.Close()
}
