// Package backend adapts a raw [domain.Storage] into the [domain.Backend]
// contract used by databases and collections.
package backend

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vinicius-lino-figueiredo/kvdb/domain"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/data"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/decoder"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/deserializer"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/serializer"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/storage/memory"
)

// Backend implements domain.Backend.
type Backend struct {
	storage       domain.Storage
	serializer    domain.Serializer
	deserializer  domain.Deserializer
	cacheInMemory bool
	logger        zerolog.Logger

	mu    sync.Mutex
	cache map[string]any
}

// NewBackend returns a new implementation of domain.Backend. Without options
// the values live in memory only.
func NewBackend(options ...domain.BackendOption) domain.Backend {
	opts := domain.BackendOptions{
		CacheInMemory: true,
		Logger:        zerolog.Nop(),
	}
	for _, option := range options {
		option(&opts)
	}
	if opts.Storage == nil {
		opts.Storage = memory.NewStorage()
	}
	if opts.Serializer == nil {
		opts.Serializer = serializer.NewSerializer(data.NewDocument)
	}
	if opts.Deserializer == nil {
		opts.Deserializer = deserializer.NewDeserializer(decoder.NewDecoder())
	}
	return &Backend{
		storage:       opts.Storage,
		serializer:    opts.Serializer,
		deserializer:  opts.Deserializer,
		cacheInMemory: opts.CacheInMemory,
		logger:        opts.Logger.With().Str("component", "backend").Logger(),
		cache:         make(map[string]any),
	}
}

// Get implements domain.Backend. The returned value is owned by the caller.
func (b *Backend) Get(ctx context.Context, key string, defaultValue any) (any, error) {
	if b.cacheInMemory {
		b.mu.Lock()
		v, ok := b.cache[key]
		b.mu.Unlock()
		if ok {
			return data.Clone(v), nil
		}
	}

	raw, ok, err := b.storage.Read(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", key, err)
	}
	if !ok {
		return defaultValue, nil
	}

	v, err := b.Decode(raw)
	if err != nil {
		b.logger.Warn().Err(err).Str("key", key).Msg("stored value cannot be decoded, using default")
		return defaultValue, nil
	}
	b.store(key, v)
	return data.Clone(v), nil
}

// Set implements domain.Backend.
func (b *Backend) Set(ctx context.Context, key string, value any) ([]byte, error) {
	raw, err := b.serializer.Serialize(ctx, value)
	if err != nil {
		return nil, fmt.Errorf("encoding %q: %w", key, err)
	}
	if err := b.storage.Write(ctx, key, raw); err != nil {
		b.forget(key)
		return nil, fmt.Errorf("writing %q: %w", key, err)
	}
	if b.cacheInMemory {
		// cached values must look exactly like decoded ones
		v, err := b.Decode(raw)
		if err != nil {
			b.forget(key)
		} else {
			b.store(key, v)
		}
	}
	return raw, nil
}

// Update implements domain.Backend.
func (b *Backend) Update(ctx context.Context, key string, fn func(prev any) (any, error)) ([]byte, error) {
	prev, err := b.Get(ctx, key, nil)
	if err != nil {
		return nil, err
	}
	next, err := fn(prev)
	if err != nil {
		return nil, err
	}
	return b.Set(ctx, key, next)
}

// Drop implements domain.Backend.
func (b *Backend) Drop(ctx context.Context, key string) error {
	b.forget(key)
	if err := b.storage.Remove(ctx, key); err != nil {
		return fmt.Errorf("removing %q: %w", key, err)
	}
	return nil
}

// Encode implements domain.Backend.
func (b *Backend) Encode(value any) ([]byte, error) {
	return b.serializer.Serialize(context.Background(), value)
}

// Decode implements domain.Backend.
func (b *Backend) Decode(raw []byte) (any, error) {
	var v any
	if err := b.deserializer.Deserialize(context.Background(), raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// IsSupported implements domain.Backend.
func (b *Backend) IsSupported() bool {
	return b.storage.Supported()
}

// Storage returns the raw storage of the backend.
func (b *Backend) Storage() domain.Storage {
	return b.storage
}

func (b *Backend) store(key string, v any) {
	if !b.cacheInMemory {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cache[key] = v
}

func (b *Backend) forget(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.cache, key)
}
