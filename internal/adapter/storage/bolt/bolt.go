// Package bolt implements a [domain.Storage] backed by a bbolt database file.
package bolt

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.etcd.io/bbolt"

	"github.com/vinicius-lino-figueiredo/kvdb/domain"
)

// DefaultBucket is the bucket holding every key.
const DefaultBucket = "kvdb"

// Storage implements domain.Storage.
type Storage struct {
	db     *bbolt.DB
	bucket []byte
}

// NewStorage opens (or creates) the bbolt database at path and returns a new
// implementation of domain.Storage.
func NewStorage(path string) (domain.Storage, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open BoltDB: %w", err)
	}

	s := &Storage{db: db, bucket: []byte(DefaultBucket)}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(s.bucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket %s: %w", DefaultBucket, err)
	}
	return s, nil
}

// Read implements domain.Storage.
func (s *Storage) Read(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	var res []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		// values are only valid during the transaction
		res = slices.Clone(tx.Bucket(s.bucket).Get([]byte(key)))
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return res, res != nil, nil
}

// Write implements domain.Storage.
func (s *Storage) Write(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if data == nil {
		// bbolt reads nil values as missing keys
		data = []byte{}
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(key), data)
	})
}

// Remove implements domain.Storage.
func (s *Storage) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(s.bucket).Delete([]byte(key))
	})
}

// Supported implements domain.Storage.
func (s *Storage) Supported() bool {
	return s.db != nil
}

// Close implements domain.Storage.
func (s *Storage) Close() error {
	return s.db.Close()
}
