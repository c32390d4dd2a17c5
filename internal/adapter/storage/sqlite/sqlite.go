// Package sqlite implements a [domain.Storage] backed by a SQLite table.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"

	// registers the sqlite3 driver
	_ "github.com/mattn/go-sqlite3"

	"github.com/vinicius-lino-figueiredo/kvdb/domain"
)

const schema = `CREATE TABLE IF NOT EXISTS kvdb (
	key TEXT PRIMARY KEY,
	value BLOB NOT NULL
)`

// Storage implements domain.Storage.
type Storage struct {
	db *sql.DB
}

// NewStorage opens (or creates) the SQLite database at path and returns a
// new implementation of domain.Storage. The special path ":memory:" keeps
// the database in memory.
func NewStorage(path string) (domain.Storage, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// a single connection keeps ":memory:" databases shared
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &Storage{db: db}, nil
}

// Read implements domain.Storage.
func (s *Storage) Read(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kvdb WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if value == nil {
		value = []byte{}
	}
	return value, true, nil
}

// Write implements domain.Storage.
func (s *Storage) Write(ctx context.Context, key string, data []byte) error {
	if data == nil {
		data = []byte{}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kvdb (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, data,
	)
	return err
}

// Remove implements domain.Storage.
func (s *Storage) Remove(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kvdb WHERE key = ?`, key)
	return err
}

// Supported implements domain.Storage.
func (s *Storage) Supported() bool {
	return s.db.Ping() == nil
}

// Close implements domain.Storage.
func (s *Storage) Close() error {
	return s.db.Close()
}
