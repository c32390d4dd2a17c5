// Package settings persists the collection metadata of every database
// sharing one backend.
package settings

import (
	"context"
	"fmt"
	"slices"

	"github.com/vinicius-lino-figueiredo/kvdb/domain"
	"github.com/vinicius-lino-figueiredo/kvdb/pkg/ctxsync"
)

// Store reads and writes the record stored under [domain.SettingsKey]. Every
// read-modify-write cycle is serialized, so one Store must be shared by all
// databases using the same backend.
type Store struct {
	backend domain.Backend
	decoder domain.Decoder
	mu      *ctxsync.Mutex
}

// NewStore returns a new Store.
func NewStore(backend domain.Backend, decoder domain.Decoder) *Store {
	return &Store{
		backend: backend,
		decoder: decoder,
		mu:      ctxsync.NewMutex(),
	}
}

// All returns the settings of every database.
func (s *Store) All(ctx context.Context) ([]domain.DatabaseSettings, error) {
	raw, err := s.backend.Get(ctx, domain.SettingsKey, nil)
	if err != nil {
		return nil, err
	}
	return s.decode(raw)
}

// Database returns the settings of the database named name. A database
// without a record gets an empty one.
func (s *Store) Database(ctx context.Context, name string) (domain.DatabaseSettings, error) {
	all, err := s.All(ctx)
	if err != nil {
		return domain.DatabaseSettings{}, err
	}
	if n := s.index(all, name); n >= 0 {
		return all[n], nil
	}
	return domain.DatabaseSettings{Name: name, Collections: []domain.CollectionMetadata{}}, nil
}

// UpdateDatabase replaces the settings of the database named name with the
// result of fn.
func (s *Store) UpdateDatabase(ctx context.Context, name string, fn func(domain.DatabaseSettings) (domain.DatabaseSettings, error)) error {
	return s.update(ctx, func(all []domain.DatabaseSettings) ([]domain.DatabaseSettings, error) {
		curr := domain.DatabaseSettings{Name: name, Collections: []domain.CollectionMetadata{}}
		n := s.index(all, name)
		if n >= 0 {
			curr = all[n]
		}
		next, err := fn(curr)
		if err != nil {
			return nil, err
		}
		next.Name = name
		if next.Collections == nil {
			next.Collections = []domain.CollectionMetadata{}
		}
		if n >= 0 {
			all[n] = next
		} else {
			all = append(all, next)
		}
		return all, nil
	})
}

// RemoveDatabase deletes the record of the database named name.
func (s *Store) RemoveDatabase(ctx context.Context, name string) error {
	return s.update(ctx, func(all []domain.DatabaseSettings) ([]domain.DatabaseSettings, error) {
		return slices.DeleteFunc(all, func(d domain.DatabaseSettings) bool {
			return d.Name == name
		}), nil
	})
}

// update rewrites the whole settings entry while holding the store lock.
func (s *Store) update(ctx context.Context, fn func([]domain.DatabaseSettings) ([]domain.DatabaseSettings, error)) error {
	return s.mu.Do(ctx, func() error {
		_, err := s.backend.Update(ctx, domain.SettingsKey, func(prev any) (any, error) {
			all, err := s.decode(prev)
			if err != nil {
				return nil, err
			}
			return fn(all)
		})
		return err
	})
}

// Collection returns the metadata of one collection and whether it exists.
func (s *Store) Collection(ctx context.Context, database, collection string) (domain.CollectionMetadata, bool, error) {
	db, err := s.Database(ctx, database)
	if err != nil {
		return domain.CollectionMetadata{}, false, err
	}
	for _, meta := range db.Collections {
		if meta.Name == collection {
			return meta, true, nil
		}
	}
	return domain.CollectionMetadata{}, false, nil
}

// SetCollection inserts or replaces the metadata of one collection. A nil
// meta removes the entry.
func (s *Store) SetCollection(ctx context.Context, database, collection string, meta *domain.CollectionMetadata) error {
	return s.UpdateCollection(ctx, database, collection, func(domain.CollectionMetadata, bool) (*domain.CollectionMetadata, error) {
		return meta, nil
	})
}

// UpdateCollection replaces the metadata of one collection with the result
// of fn, which receives the current record and whether it exists. A nil
// result removes the entry.
func (s *Store) UpdateCollection(ctx context.Context, database, collection string, fn func(domain.CollectionMetadata, bool) (*domain.CollectionMetadata, error)) error {
	return s.UpdateDatabase(ctx, database, func(db domain.DatabaseSettings) (domain.DatabaseSettings, error) {
		n := slices.IndexFunc(db.Collections, func(m domain.CollectionMetadata) bool {
			return m.Name == collection
		})
		var prev domain.CollectionMetadata
		if n >= 0 {
			prev = db.Collections[n]
		}
		meta, err := fn(prev, n >= 0)
		if err != nil {
			return db, err
		}
		switch {
		case meta == nil && n >= 0:
			db.Collections = slices.Delete(db.Collections, n, n+1)
		case meta == nil:
		case n >= 0:
			db.Collections[n] = *meta
		default:
			db.Collections = append(db.Collections, *meta)
		}
		return db, nil
	})
}

func (s *Store) index(all []domain.DatabaseSettings, name string) int {
	return slices.IndexFunc(all, func(d domain.DatabaseSettings) bool {
		return d.Name == name
	})
}

func (s *Store) decode(raw any) ([]domain.DatabaseSettings, error) {
	if raw == nil {
		return []domain.DatabaseSettings{}, nil
	}
	var res []domain.DatabaseSettings
	if err := s.decoder.Decode(raw, &res); err != nil {
		return nil, fmt.Errorf("decoding settings: %w", err)
	}
	return res, nil
}
