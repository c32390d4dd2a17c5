// Package collection contains the default [domain.Collection] implementation.
package collection

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/vinicius-lino-figueiredo/kvdb/domain"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/data"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/decoder"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/eventbus"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/expiration"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/fieldnavigator"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/handle"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/modifier"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/querier"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/registry"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/settings"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/timegetter"
	"github.com/vinicius-lino-figueiredo/kvdb/pkg/ctxsync"
)

// Config contains what a collection receives from its database.
type Config struct {
	Name     string
	Database domain.Database
	Backend  domain.Backend
	Settings *settings.Store
	// Handles is the handle cache shared by every collection of a
	// [domain.KVDB].
	Handles *registry.Map[string, *handle.Handle]
	// OnDrop is called once the collection was dropped.
	OnDrop func()
	Logger zerolog.Logger
}

// Collection implements [domain.Collection].
type Collection struct {
	name     string
	fullName string
	dbName   string
	key      string
	db       domain.Database
	backend  domain.Backend
	store    *settings.Store
	onDrop   func()

	removeAfterLimit bool
	maxSize          int64
	maxLength        int64
	expiration       domain.ExpirationOptions
	refs             map[string]domain.Reference

	querier  domain.Querier
	docFac   domain.DocumentFactory
	decoder  domain.Decoder
	modifier domain.Modifier
	handles  *handle.Manager
	bus      domain.EventBus
	executor *ctxsync.Mutex
	sweeper  *expiration.Scheduler
	logger   zerolog.Logger
	dropped  atomic.Bool
}

// FullName returns name prefixed by group when group is set.
func FullName(group, name string) string {
	if group == "" {
		return name
	}
	return group + ":" + name
}

// NewCollection opens the collection described by cfg, creating its
// metadata record when missing. Expiration sweeps begin with [Collection.Start].
func NewCollection(ctx context.Context, cfg Config, options ...domain.CollectionOption) (*Collection, error) {
	opts := domain.CollectionOptions{
		RemoveAfterLimit: true,
		Expiration:       domain.ExpirationOptions{Every: expiration.DefaultEvery},
		Logger:           cfg.Logger,
	}
	for _, option := range options {
		option(&opts)
	}
	if opts.DocumentFactory == nil {
		opts.DocumentFactory = data.NewDocument
	}
	if opts.Decoder == nil {
		opts.Decoder = decoder.NewDecoder()
	}
	if opts.TimeGetter == nil {
		opts.TimeGetter = timegetter.NewTimeGetter()
	}
	if opts.Querier == nil {
		opts.Querier = querier.NewQuerier(domain.WithQuerierDocumentFactory(opts.DocumentFactory))
	}
	if opts.Expiration.Handler == nil {
		opts.Expiration.Handler = expiration.DefaultHandler(opts.TimeGetter)
	}

	fullName := FullName(opts.Group, cfg.Name)
	dbName := cfg.Database.FullName()
	c := &Collection{
		name:             cfg.Name,
		fullName:         fullName,
		dbName:           dbName,
		key:              dbName + ":" + fullName,
		db:               cfg.Database,
		backend:          cfg.Backend,
		store:            cfg.Settings,
		onDrop:           cfg.OnDrop,
		removeAfterLimit: opts.RemoveAfterLimit,
		maxSize:          opts.MaxSize,
		maxLength:        opts.MaxLength,
		expiration:       opts.Expiration,
		refs:             maps.Clone(opts.Refs),
		querier:          opts.Querier,
		docFac:           opts.DocumentFactory,
		decoder:          opts.Decoder,
		modifier:         modifier.NewModifier(opts.DocumentFactory),
		bus:              eventbus.NewBus(),
		executor:         ctxsync.NewMutex(),
		logger: opts.Logger.With().
			Str("component", "collection").
			Str("collection", dbName+":"+fullName).
			Logger(),
	}
	if c.refs == nil {
		c.refs = map[string]domain.Reference{}
	}
	c.handles = handle.NewManager(handle.Config{
		Collection: c,
		Prefix:     c.key,
		Cache:      cfg.Handles,
		Decoder:    opts.Decoder,
		Navigator:  fieldnavigator.NewFieldNavigator(opts.DocumentFactory),
		Comparer:   comparer.NewComparer(),
	})

	err := c.store.UpdateCollection(ctx, dbName, fullName, func(prev domain.CollectionMetadata, exists bool) (*domain.CollectionMetadata, error) {
		if !exists {
			prev = c.defaultMetadata()
		}
		return &prev, nil
	})
	if err != nil {
		return nil, fmt.Errorf("creating metadata: %w", err)
	}

	if c.expiration.Key != "" {
		c.sweeper = expiration.NewScheduler(c.expiration.Every, c.expire, c.logger)
	}
	return c, nil
}

// Start runs the first expiration sweep and schedules the next ones. It does
// nothing when no expiration key is configured. Owners call it once the
// collection is reachable, so expiry handlers may look it up.
func (c *Collection) Start(ctx context.Context) error {
	if c.sweeper == nil {
		return nil
	}
	if err := c.sweeper.Start(ctx); err != nil {
		return fmt.Errorf("first expiration sweep: %w", err)
	}
	return nil
}

// Name implements [domain.Collection].
func (c *Collection) Name() string {
	return c.name
}

// FullName implements [domain.Collection].
func (c *Collection) FullName() string {
	return c.fullName
}

// Database implements [domain.Collection].
func (c *Collection) Database() domain.Database {
	return c.db
}

// Refs implements [domain.Collection].
func (c *Collection) Refs() map[string]domain.Reference {
	return maps.Clone(c.refs)
}

// Events implements [domain.Collection].
func (c *Collection) Events() domain.EventSource {
	return c.bus
}

func (c *Collection) defaultMetadata() domain.CollectionMetadata {
	return domain.CollectionMetadata{Name: c.fullName}
}

func (c *Collection) lock(ctx context.Context) error {
	if c.dropped.Load() {
		return domain.ErrCollectionDropped
	}
	if err := c.executor.LockWithContext(ctx); err != nil {
		return err
	}
	if c.dropped.Load() {
		c.executor.Unlock()
		return domain.ErrCollectionDropped
	}
	return nil
}

// load reads the documents currently stored.
func (c *Collection) load(ctx context.Context) ([]domain.Document, error) {
	raw, err := c.backend.Get(ctx, c.key, nil)
	if err != nil {
		return nil, err
	}
	switch t := raw.(type) {
	case nil:
		return []domain.Document{}, nil
	case []domain.Document:
		return t, nil
	case []any:
		res := make([]domain.Document, 0, len(t))
		for _, item := range t {
			doc, ok := item.(domain.Document)
			if !ok {
				if doc, err = c.docFac(item); err != nil {
					return nil, fmt.Errorf("reading stored document: %w", err)
				}
			}
			res = append(res, doc)
		}
		return res, nil
	default:
		c.logger.Warn().Type("type", raw).Msg("stored value is not a list, reading it as empty")
		return []domain.Document{}, nil
	}
}

func (c *Collection) save(ctx context.Context, docs []domain.Document) ([]byte, error) {
	saved, err := c.backend.Set(ctx, c.key, docs)
	if err != nil {
		return nil, fmt.Errorf("saving documents: %w", err)
	}
	return saved, nil
}

// commit stores docs and records the matching metadata. A commit that has
// started runs to completion even if ctx is canceled meanwhile.
func (c *Collection) commit(ctx context.Context, docs []domain.Document, lastDelta int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx = context.WithoutCancel(ctx)
	saved, err := c.save(ctx, docs)
	if err != nil {
		return err
	}
	return c.commitMetadata(ctx, saved, len(docs), lastDelta)
}

func (c *Collection) size(docs []domain.Document) (int64, error) {
	b, err := c.backend.Encode(docs)
	if err != nil {
		return 0, err
	}
	return int64(len(b)), nil
}

// metadata returns the stored record, or the default one when missing.
func (c *Collection) metadata(ctx context.Context) (domain.CollectionMetadata, error) {
	meta, ok, err := c.store.Collection(ctx, c.dbName, c.fullName)
	if err != nil {
		return meta, err
	}
	if !ok {
		return c.defaultMetadata(), nil
	}
	return meta, nil
}

// commitMetadata records the state after a write. lastDelta is added to the
// last allocated identifier.
func (c *Collection) commitMetadata(ctx context.Context, saved []byte, length int, lastDelta int64) error {
	return c.store.UpdateCollection(ctx, c.dbName, c.fullName, func(prev domain.CollectionMetadata, exists bool) (*domain.CollectionMetadata, error) {
		if !exists {
			prev = c.defaultMetadata()
		}
		encPrev, err := c.backend.Encode(prev)
		if err != nil {
			return nil, err
		}
		next := prev
		next.Last += lastDelta
		next.Length = int64(length)
		next.Size = int64(len(saved))
		next.FullSize = int64(len(saved) + len(encPrev))
		return &next, nil
	})
}

// Settings implements [domain.Collection].
func (c *Collection) Settings(ctx context.Context) (domain.CollectionMetadata, error) {
	return c.metadata(ctx)
}

// UpdateSettings implements [domain.Collection]. patch may be a
// document-like value, a func(domain.CollectionMetadata) any or
// [domain.RemoveSettings].
func (c *Collection) UpdateSettings(ctx context.Context, patch any) error {
	return c.store.UpdateCollection(ctx, c.dbName, c.fullName, func(prev domain.CollectionMetadata, exists bool) (*domain.CollectionMetadata, error) {
		if patch == domain.RemoveSettings {
			return nil, nil
		}
		if !exists {
			prev = c.defaultMetadata()
		}
		p := patch
		if fn, ok := patch.(func(domain.CollectionMetadata) any); ok {
			p = fn(prev)
		}
		if p == nil {
			return &prev, nil
		}
		return c.mergeMetadata(prev, p)
	})
}

func (c *Collection) mergeMetadata(prev domain.CollectionMetadata, patch any) (*domain.CollectionMetadata, error) {
	prevDoc, err := c.docFac(prev)
	if err != nil {
		return nil, err
	}
	patchDoc, err := c.docFac(patch)
	if err != nil {
		return nil, err
	}
	merged, err := c.modifier.Modify(prevDoc, patchDoc)
	if err != nil {
		return nil, err
	}
	var next domain.CollectionMetadata
	if err := c.decoder.Decode(merged, &next); err != nil {
		return nil, err
	}
	return &next, nil
}

func (c *Collection) prepare(inputs []any) ([]domain.Document, error) {
	docs := make([]domain.Document, len(inputs))
	for n, input := range inputs {
		doc, err := c.docFac(input)
		if err != nil {
			return nil, err
		}
		if doc.Has(domain.IDField) {
			return nil, domain.ErrIDProvided
		}
		docs[n] = doc
	}
	return docs, nil
}

// FindMany implements [domain.Collection].
func (c *Collection) FindMany(ctx context.Context, target any) (domain.ResultSet, error) {
	if err := c.lock(ctx); err != nil {
		return nil, err
	}
	docs, err := c.load(ctx)
	if err == nil {
		docs, err = c.querier.FindMany(docs, target)
	}
	c.executor.Unlock()
	if err != nil {
		return nil, err
	}
	return c.handles.NewSet(docs, target), nil
}

// FindOne implements [domain.Collection].
func (c *Collection) FindOne(ctx context.Context, target any) (domain.Handle, error) {
	if err := c.lock(ctx); err != nil {
		return nil, err
	}
	docs, err := c.load(ctx)
	var doc domain.Document
	if err == nil {
		doc, err = c.querier.FindOne(docs, target)
	}
	c.executor.Unlock()
	if err != nil || doc == nil {
		return nil, err
	}
	return c.handles.Handle(doc), nil
}

// InsertMany implements [domain.Collection].
func (c *Collection) InsertMany(ctx context.Context, inputs ...any) (domain.ResultSet, error) {
	items, err := c.prepare(inputs)
	if err != nil {
		return nil, err
	}
	if err := c.lock(ctx); err != nil {
		return nil, err
	}
	committed, err := c.insertMany(ctx, items)
	c.executor.Unlock()
	if err != nil {
		return nil, err
	}
	if len(committed) > 0 {
		c.bus.Emit(domain.Event{Kind: domain.EventInsert, Collection: c, Items: committed, IsMany: true})
	}
	return c.handles.WrittenSet(committed), nil
}

func (c *Collection) insertMany(ctx context.Context, items []domain.Document) ([]domain.Document, error) {
	meta, err := c.metadata(ctx)
	if err != nil {
		return nil, err
	}
	prev, err := c.load(ctx)
	if err != nil {
		return nil, err
	}

	if c.maxLength > 0 && !c.removeAfterLimit && int64(len(prev)+len(items)) > c.maxLength {
		free := max(c.maxLength-int64(len(prev)), 0)
		c.logger.Debug().Int("requested", len(items)).Int64("free", free).Msg("insert truncated by max length")
		items = items[:free]
	}
	for n, item := range items {
		item.Set(domain.IDField, meta.Last+int64(n)+1)
	}

	added := len(items)
	next := c.querier.InsertMany(prev, items...)
	if c.maxLength > 0 && int64(len(next)) > c.maxLength {
		next = next[int64(len(next))-c.maxLength:]
	}

	if c.maxSize > 0 {
		size, err := c.size(next)
		if err != nil {
			return nil, err
		}
		switch {
		case size <= c.maxSize:
		case c.removeAfterLimit:
			for size > c.maxSize && len(next) > 0 {
				next = next[1:]
				if size, err = c.size(next); err != nil {
					return nil, err
				}
			}
			c.logger.Debug().Int("length", len(next)).Msg("oldest documents evicted by max size")
		case meta.Size >= c.maxSize:
			c.logger.Debug().Msg("insert rejected, collection is full")
			added = 0
			next = prev
		default:
			for size > c.maxSize && added > 0 {
				added--
				next = next[:len(next)-1]
				if size, err = c.size(next); err != nil {
					return nil, err
				}
			}
			c.logger.Debug().Int("inserted", added).Msg("insert reduced by max size")
		}
	}

	var committed []domain.Document
	if c.removeAfterLimit {
		committed = items[len(items)-min(len(items), len(next)):]
	} else {
		committed = items[:added]
	}

	if err := c.commit(ctx, next, int64(added)); err != nil {
		return nil, err
	}
	return committed, nil
}

// InsertOne implements [domain.Collection].
func (c *Collection) InsertOne(ctx context.Context, input any) (domain.Handle, error) {
	items, err := c.prepare([]any{input})
	if err != nil {
		return nil, err
	}
	if err := c.lock(ctx); err != nil {
		return nil, err
	}
	item, err := c.insertOne(ctx, items[0])
	c.executor.Unlock()
	if err != nil || item == nil {
		return nil, err
	}
	c.bus.Emit(domain.Event{Kind: domain.EventInsert, Collection: c, Items: []domain.Document{item}})
	return c.handles.Handle(item), nil
}

func (c *Collection) insertOne(ctx context.Context, item domain.Document) (domain.Document, error) {
	meta, err := c.metadata(ctx)
	if err != nil {
		return nil, err
	}
	prev, err := c.load(ctx)
	if err != nil {
		return nil, err
	}

	if c.maxLength > 0 && int64(len(prev)+1) > c.maxLength && !c.removeAfterLimit {
		c.logger.Debug().Msg("insert rejected by max length")
		return nil, nil
	}

	item.Set(domain.IDField, meta.Last+1)
	next := c.querier.InsertOne(prev, item)
	if c.maxLength > 0 && int64(len(next)) > c.maxLength {
		next = next[1:]
	}

	evictedSelf := false
	if c.maxSize > 0 {
		size, err := c.size(next)
		if err != nil {
			return nil, err
		}
		if size > c.maxSize {
			if !c.removeAfterLimit {
				c.logger.Debug().Msg("insert rejected by max size")
				return nil, nil
			}
			for size > c.maxSize && len(next) > 0 {
				next = next[1:]
				if size, err = c.size(next); err != nil {
					return nil, err
				}
			}
			evictedSelf = len(next) == 0
			c.logger.Debug().Int("length", len(next)).Msg("oldest documents evicted by max size")
		}
	}

	if err := c.commit(ctx, next, 1); err != nil {
		return nil, err
	}
	if evictedSelf {
		return nil, nil
	}
	return item, nil
}

// DeleteMany implements [domain.Collection].
func (c *Collection) DeleteMany(ctx context.Context, target any) (domain.ResultSet, error) {
	if err := c.lock(ctx); err != nil {
		return nil, err
	}
	deleted, err := c.deleteMany(ctx, target)
	c.executor.Unlock()
	if err != nil || len(deleted) == 0 {
		return nil, err
	}
	rs := c.handles.RemovedSet(deleted)
	c.bus.Emit(domain.Event{Kind: domain.EventDelete, Collection: c, Items: deleted, IsMany: true})
	return rs, nil
}

func (c *Collection) deleteMany(ctx context.Context, target any) ([]domain.Document, error) {
	docs, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	deleted, rest, err := c.querier.DeleteMany(docs, target)
	if err != nil || len(deleted) == 0 {
		return nil, err
	}
	if err := c.commit(ctx, rest, 0); err != nil {
		return nil, err
	}
	return deleted, nil
}

// DeleteOne implements [domain.Collection].
func (c *Collection) DeleteOne(ctx context.Context, target any) (domain.Handle, error) {
	if err := c.lock(ctx); err != nil {
		return nil, err
	}
	deleted, err := c.deleteOne(ctx, target)
	c.executor.Unlock()
	if err != nil || deleted == nil {
		return nil, err
	}
	h := c.handles.Removed(deleted)
	c.bus.Emit(domain.Event{Kind: domain.EventDelete, Collection: c, Items: []domain.Document{deleted}})
	return h, nil
}

func (c *Collection) deleteOne(ctx context.Context, target any) (domain.Document, error) {
	docs, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	deleted, rest, err := c.querier.DeleteOne(docs, target)
	if err != nil || deleted == nil {
		return nil, err
	}
	if err := c.commit(ctx, rest, 0); err != nil {
		return nil, err
	}
	return deleted, nil
}

// saturated reports whether updates must be refused because the collection
// already fills its byte limit and existing documents are protected.
func (c *Collection) saturated(ctx context.Context) (bool, error) {
	if c.maxSize <= 0 || c.removeAfterLimit {
		return false, nil
	}
	meta, err := c.metadata(ctx)
	if err != nil {
		return false, err
	}
	return meta.Size >= c.maxSize, nil
}

// UpdateMany implements [domain.Collection].
func (c *Collection) UpdateMany(ctx context.Context, targets any) (domain.ResultSet, error) {
	if err := c.lock(ctx); err != nil {
		return nil, err
	}
	updated, err := c.updateMany(ctx, targets)
	c.executor.Unlock()
	if err != nil {
		return nil, err
	}
	if len(updated) > 0 {
		c.bus.Emit(domain.Event{Kind: domain.EventUpdate, Collection: c, Items: updated, IsMany: true})
	}
	return c.handles.WrittenSet(updated), nil
}

func (c *Collection) updateMany(ctx context.Context, targets any) ([]domain.Document, error) {
	full, err := c.saturated(ctx)
	if err != nil || full {
		if full {
			c.logger.Debug().Msg("update rejected, collection is full")
		}
		return nil, err
	}
	docs, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	updated, next, err := c.querier.UpdateMany(docs, targets)
	if err != nil {
		return nil, err
	}

	if c.maxSize > 0 {
		size, err := c.size(next)
		if err != nil {
			return nil, err
		}
		for size > c.maxSize {
			if c.removeAfterLimit {
				if len(next) == 0 {
					break
				}
				evicted := next[0]
				next = next[1:]
				updated = c.without(updated, evicted.ID())
			} else {
				if len(updated) == 0 {
					break
				}
				reverted := updated[len(updated)-1]
				updated = updated[:len(updated)-1]
				next = c.revert(next, docs, reverted.ID())
			}
			if size, err = c.size(next); err != nil {
				return nil, err
			}
		}
	}

	if len(updated) == 0 && len(next) == len(docs) {
		return nil, nil
	}
	if err := c.commit(ctx, next, 0); err != nil {
		return nil, err
	}
	return updated, nil
}

// UpdateOne implements [domain.Collection].
func (c *Collection) UpdateOne(ctx context.Context, target any) (domain.Handle, error) {
	if err := c.lock(ctx); err != nil {
		return nil, err
	}
	updated, err := c.updateOne(ctx, target)
	c.executor.Unlock()
	if err != nil || updated == nil {
		return nil, err
	}
	c.bus.Emit(domain.Event{Kind: domain.EventUpdate, Collection: c, Items: []domain.Document{updated}})
	return c.handles.Handle(updated), nil
}

func (c *Collection) updateOne(ctx context.Context, target any) (domain.Document, error) {
	full, err := c.saturated(ctx)
	if err != nil || full {
		return nil, err
	}
	docs, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	updated, next, err := c.querier.UpdateOne(docs, target)
	if err != nil || updated == nil {
		return nil, err
	}

	if c.maxSize > 0 {
		size, err := c.size(next)
		if err != nil {
			return nil, err
		}
		for size > c.maxSize {
			if !c.removeAfterLimit || len(next) == 0 || c.handles.SameID(next[0].ID(), updated.ID()) {
				c.logger.Debug().Msg("update rejected by max size")
				return nil, nil
			}
			next = next[1:]
			if size, err = c.size(next); err != nil {
				return nil, err
			}
		}
	}

	if err := c.commit(ctx, next, 0); err != nil {
		return nil, err
	}
	return updated, nil
}

func (c *Collection) without(docs []domain.Document, id any) []domain.Document {
	res := make([]domain.Document, 0, len(docs))
	for _, doc := range docs {
		if !c.handles.SameID(doc.ID(), id) {
			res = append(res, doc)
		}
	}
	return res
}

// revert puts back in next the version of the document identified by id
// found in prev.
func (c *Collection) revert(next, prev []domain.Document, id any) []domain.Document {
	for _, old := range prev {
		if !c.handles.SameID(old.ID(), id) {
			continue
		}
		for n, doc := range next {
			if c.handles.SameID(doc.ID(), id) {
				next[n] = old
				break
			}
		}
		break
	}
	return next
}

// Drop implements [domain.Collection].
func (c *Collection) Drop(ctx context.Context) error {
	if c.dropped.Load() {
		return domain.ErrCollectionDropped
	}
	stopped := c.sweeper != nil && c.sweeper.Stop()
	if err := c.executor.LockWithContext(ctx); err != nil {
		c.resume(stopped)
		return err
	}
	if c.dropped.Swap(true) {
		c.executor.Unlock()
		return domain.ErrCollectionDropped
	}
	docs, err := c.drop(ctx)
	c.executor.Unlock()
	if err != nil {
		c.dropped.Store(false)
		c.resume(stopped)
		return err
	}

	if len(docs) > 0 {
		c.bus.Emit(domain.Event{Kind: domain.EventDelete, Collection: c, Items: docs, IsMany: true})
	}
	c.bus.Emit(domain.Event{Kind: domain.EventDrop, Collection: c})
	c.handles.Release()
	if c.onDrop != nil {
		c.onDrop()
	}
	c.logger.Debug().Int("documents", len(docs)).Msg("collection dropped")
	return nil
}

// resume restarts the periodic sweeps stopped by a Drop that failed.
func (c *Collection) resume(stopped bool) {
	if stopped {
		c.sweeper.Resume()
	}
}

func (c *Collection) drop(ctx context.Context) ([]domain.Document, error) {
	docs, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ctx = context.WithoutCancel(ctx)
	if err := c.backend.Drop(ctx, c.key); err != nil {
		return nil, fmt.Errorf("dropping documents: %w", err)
	}
	if err := c.store.SetCollection(ctx, c.dbName, c.fullName, nil); err != nil {
		return nil, fmt.Errorf("removing metadata: %w", err)
	}
	return docs, nil
}

// Close stops the expiration sweep without touching stored data.
func (c *Collection) Close() {
	if c.sweeper != nil {
		c.sweeper.Stop()
	}
	c.handles.Release()
}

func (c *Collection) expire(ctx context.Context) error {
	handler, key := c.expiration.Handler, c.expiration.Key
	res, err := c.DeleteMany(ctx, domain.Predicate(func(doc domain.Document) bool {
		return handler(domain.ExpiryContext{Document: doc, Collection: c, Key: key})
	}))
	if err != nil {
		if errors.Is(err, domain.ErrCollectionDropped) {
			return nil
		}
		return err
	}
	if res == nil {
		c.logger.Debug().Msg("sweep found no expired documents")
		return nil
	}
	c.logger.Info().Int("expired", res.Len()).Msg("expired documents deleted")
	c.bus.Emit(domain.Event{Kind: domain.EventExpire, Collection: c, Items: res.Documents(), IsMany: true})
	return nil
}
