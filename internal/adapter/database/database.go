// Package database contains the default [domain.Database] implementation.
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vinicius-lino-figueiredo/kvdb/domain"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/collection"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/handle"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/registry"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/settings"
)

// Config contains what a database receives from its owner.
type Config struct {
	Name string
	// Collections holds the open collections of every database, keyed by
	// database and collection full names.
	Collections *registry.Map[string, *collection.Collection]
	Handles     *registry.Map[string, *handle.Handle]
	// Stores returns the settings store shared by every database using
	// the given backend.
	Stores func(domain.Backend) *settings.Store
	// OnDrop is called once the database was dropped.
	OnDrop func()
	Logger zerolog.Logger
}

// Database implements [domain.Database].
type Database struct {
	name        string
	fullName    string
	backend     domain.Backend
	store       *settings.Store
	collections *registry.Map[string, *collection.Collection]
	handles     *registry.Map[string, *handle.Handle]
	onDrop      func()
	logger      zerolog.Logger
}

// NewDatabase returns a new Database. The backend is the first candidate
// reporting support, or the first candidate when none does.
func NewDatabase(cfg Config, options ...domain.DatabaseOption) (*Database, error) {
	var opts domain.DatabaseOptions
	for _, option := range options {
		option(&opts)
	}
	logger := cfg.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	fullName := collection.FullName(opts.Group, cfg.Name)
	logger = logger.With().Str("component", "database").Str("database", fullName).Logger()

	b, err := selectBackend(opts.Backends)
	if err != nil {
		return nil, err
	}
	logger.Debug().Type("backend", b).Bool("supported", b.IsSupported()).Msg("backend selected")

	if cfg.Collections == nil {
		cfg.Collections = registry.New[string, *collection.Collection]()
	}
	if cfg.Handles == nil {
		cfg.Handles = registry.New[string, *handle.Handle]()
	}
	return &Database{
		name:        cfg.Name,
		fullName:    fullName,
		backend:     b,
		store:       cfg.Stores(b),
		collections: cfg.Collections,
		handles:     cfg.Handles,
		onDrop:      cfg.OnDrop,
		logger:      logger,
	}, nil
}

func selectBackend(candidates []domain.Backend) (domain.Backend, error) {
	var first domain.Backend
	for _, b := range candidates {
		if b == nil {
			continue
		}
		if first == nil {
			first = b
		}
		if b.IsSupported() {
			return b, nil
		}
	}
	if first == nil {
		return nil, domain.ErrNoBackend
	}
	return first, nil
}

// Name implements [domain.Database].
func (d *Database) Name() string {
	return d.name
}

// FullName implements [domain.Database].
func (d *Database) FullName() string {
	return d.fullName
}

// Backend implements [domain.Database].
func (d *Database) Backend() domain.Backend {
	return d.backend
}

func (d *Database) key(collFullName string) string {
	return d.fullName + ":" + collFullName
}

// Collection implements [domain.Database]. Options are ignored when the
// collection is already open.
func (d *Database) Collection(ctx context.Context, name string, options ...domain.CollectionOption) (domain.Collection, error) {
	var opts domain.CollectionOptions
	for _, option := range options {
		option(&opts)
	}
	key := d.key(collection.FullName(opts.Group, name))
	c, existed, err := d.collections.GetOrCreate(key, func() (*collection.Collection, error) {
		return collection.NewCollection(ctx, collection.Config{
			Name:     name,
			Database: d,
			Backend:  d.backend,
			Settings: d.store,
			Handles:  d.handles,
			OnDrop:   func() { d.collections.Delete(key) },
			Logger:   d.logger,
		}, options...)
	})
	if err != nil {
		return nil, fmt.Errorf("opening collection %q: %w", name, err)
	}
	if existed {
		return c, nil
	}
	// registered first so expiry handlers can reach the collection
	if err := c.Start(ctx); err != nil {
		d.collections.DeleteIf(key, func(v *collection.Collection) bool { return v == c })
		c.Close()
		return nil, fmt.Errorf("opening collection %q: %w", name, err)
	}
	return c, nil
}

// Sibling implements [domain.Database]. name may be a full name or the name
// of a collection opened without group.
func (d *Database) Sibling(name string) (domain.Collection, bool) {
	c, ok := d.collections.Get(d.key(name))
	if !ok {
		return nil, false
	}
	return c, true
}

func (d *Database) open() []*collection.Collection {
	var res []*collection.Collection
	for _, c := range d.collections.Values() {
		if c.Database() == domain.Database(d) {
			res = append(res, c)
		}
	}
	return res
}

// Collections implements [domain.Database].
func (d *Database) Collections() []domain.Collection {
	open := d.open()
	res := make([]domain.Collection, len(open))
	for n, c := range open {
		res[n] = c
	}
	return res
}

// Settings implements [domain.Database].
func (d *Database) Settings(ctx context.Context) (domain.DatabaseSettings, error) {
	return d.store.Database(ctx, d.fullName)
}

// UpdateSettings implements [domain.Database].
func (d *Database) UpdateSettings(ctx context.Context, fn func(domain.DatabaseSettings) (domain.DatabaseSettings, error)) error {
	return d.store.UpdateDatabase(ctx, d.fullName, fn)
}

// Drop implements [domain.Database].
func (d *Database) Drop(ctx context.Context) error {
	var errs []error
	for _, c := range d.open() {
		if err := c.Drop(ctx); err != nil && !errors.Is(err, domain.ErrCollectionDropped) {
			errs = append(errs, fmt.Errorf("dropping %q: %w", c.FullName(), err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	if err := d.store.RemoveDatabase(ctx, d.fullName); err != nil {
		return err
	}
	if d.onDrop != nil {
		d.onDrop()
	}
	d.logger.Debug().Msg("database dropped")
	return nil
}

// Close stops the expiration sweeps of every open collection and forgets
// them without touching stored data.
func (d *Database) Close() {
	for _, c := range d.open() {
		c.Close()
		d.collections.Delete(d.key(c.FullName()))
	}
}
