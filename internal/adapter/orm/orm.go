// Package orm contains the default [domain.KVDB] implementation, owning
// every database, collection and handle opened through it.
package orm

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/vinicius-lino-figueiredo/kvdb/domain"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/collection"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/database"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/decoder"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/handle"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/registry"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/settings"
)

// ORM implements [domain.KVDB].
type ORM struct {
	logger      zerolog.Logger
	closed      atomic.Bool
	databases   *registry.Map[string, *database.Database]
	collections *registry.Map[string, *collection.Collection]
	handles     *registry.Map[string, *handle.Handle]
	stores      *registry.Map[domain.Backend, *settings.Store]
}

// NewORM returns a new implementation of [domain.KVDB].
func NewORM(options ...domain.KVDBOption) domain.KVDB {
	opts := domain.KVDBOptions{Logger: zerolog.Nop()}
	for _, option := range options {
		option(&opts)
	}
	return &ORM{
		logger:      opts.Logger,
		databases:   registry.New[string, *database.Database](),
		collections: registry.New[string, *collection.Collection](),
		handles:     registry.New[string, *handle.Handle](),
		stores:      registry.New[domain.Backend, *settings.Store](),
	}
}

func (o *ORM) store(b domain.Backend) *settings.Store {
	st, _, _ := o.stores.GetOrCreate(b, func() (*settings.Store, error) {
		return settings.NewStore(b, decoder.NewDecoder()), nil
	})
	return st
}

// Database implements [domain.KVDB]. Options are ignored when the database
// is already open.
func (o *ORM) Database(ctx context.Context, name string, options ...domain.DatabaseOption) (domain.Database, error) {
	if o.closed.Load() {
		return nil, domain.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var opts domain.DatabaseOptions
	for _, option := range options {
		option(&opts)
	}
	key := collection.FullName(opts.Group, name)
	db, _, err := o.databases.GetOrCreate(key, func() (*database.Database, error) {
		return database.NewDatabase(database.Config{
			Name:        name,
			Collections: o.collections,
			Handles:     o.handles,
			Stores:      o.store,
			OnDrop:      func() { o.databases.Delete(key) },
			Logger:      o.logger,
		}, options...)
	})
	if err != nil {
		return nil, fmt.Errorf("opening database %q: %w", name, err)
	}
	return db, nil
}

// DropAll implements [domain.KVDB].
func (o *ORM) DropAll(ctx context.Context) error {
	if o.closed.Load() {
		return domain.ErrClosed
	}
	var errs []error
	for _, db := range o.databases.Values() {
		if err := db.Drop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("dropping database %q: %w", db.FullName(), err))
		}
	}
	return errors.Join(errs...)
}

// Close implements [domain.KVDB].
func (o *ORM) Close() error {
	if o.closed.Swap(true) {
		return nil
	}
	for _, db := range o.databases.Values() {
		db.Close()
	}
	o.databases.DeleteFunc(func(string, *database.Database) bool { return true })
	o.handles.DeleteFunc(func(string, *handle.Handle) bool { return true })
	o.logger.Debug().Msg("closed")
	return nil
}
