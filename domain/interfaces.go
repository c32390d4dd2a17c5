// Package domain contains domain-specific interfaces and option types for kvdb.
//
// This package defines the core interfaces that must be implemented by
// adapters, as well as functional options for configuring databases,
// collections, backends and the components used by them.
package domain

import (
	"context"
	"iter"
	"time"
)

// Serializer converts values to bytes for storage.
type Serializer interface {
	// Serialize converts a value to bytes for persistence.
	Serialize(context.Context, any) ([]byte, error)
}

// Deserializer converts bytes back to values.
type Deserializer interface {
	// Deserialize converts bytes back to a value, writing it to target.
	Deserialize(context.Context, []byte, any) error
}

// Decoder converts between different data representations.
type Decoder interface {
	// Decode converts from one data format to another.
	Decode(any, any) error
}

// Comparer provides ordering and comparison operations for different data
// types.
type Comparer interface {
	// Compare returns -1, 0, or 1 based on the comparison of two values.
	Compare(any, any) (int, error)
	// Comparable returns true if two values can be compared.
	Comparable(any, any) bool
}

// TimeGetter provides current time for expiration checks.
type TimeGetter interface {
	// GetTime returns the current time.
	GetTime() time.Time
}

// FieldNavigator provides field access operations with dot notation support.
type FieldNavigator interface {
	// GetAddress splits a dotted field name into its path parts.
	GetAddress(field string) ([]string, error)
	// GetField follows the path parts inside obj and returns the value
	// found there and whether it is defined.
	GetField(obj any, addr ...string) (any, bool, error)
}

// Document represents a record in a collection. Documents are handled as
// immutable snapshots by the engine: every mutation produces a new value.
type Document interface {
	// ID returns the document ID, if any, or nil.
	ID() any
	// D returns the subdocument for the given key, if any.
	D(string) Document
	// Get returns the value under the given key, or nil if unset.
	Get(string) any
	// Set sets the value under the given key.
	Set(string, any)
	// Unset unsets the value under the given key.
	Unset(string)
	// Iter returns an unordered sequence of key-value pairs in the
	// document.
	Iter() iter.Seq2[string, any]
	// Keys returns an unordered sequence of keys in the document.
	Keys() iter.Seq[string]
	// Values returns an unordered sequence of values in the document.
	Values() iter.Seq[any]
	// Has reports whether a value is set under the given key.
	Has(string) bool
	// Len returns the number of set fields in the document.
	Len() int
}

// Matcher evaluates whether values match partial-object patterns.
type Matcher interface {
	// Match returns true if the value contains the pattern.
	Match(any, any) (bool, error)
}

// Modifier applies patches to documents.
type Modifier interface {
	// Modify deep-merges the patch onto a copy of the document and returns
	// the result. The original identifier is always kept.
	Modify(Document, Document) (Document, error)
}

// Querier implements the match/merge algorithm over an ordered sequence of
// documents. It has no knowledge of persistence or retention limits.
type Querier interface {
	// FindMany returns every document matching target, in order.
	FindMany(docs []Document, target any) ([]Document, error)
	// FindOne returns the first document matching target, or nil.
	FindOne(docs []Document, target any) (Document, error)
	// InsertMany appends newDocs to a copy of docs.
	InsertMany(docs []Document, newDocs ...Document) []Document
	// InsertOne appends newDoc to a copy of docs.
	InsertOne(docs []Document, newDoc Document) []Document
	// DeleteMany splits docs into the documents matching target and the
	// remainder.
	DeleteMany(docs []Document, target any) (deleted []Document, rest []Document, err error)
	// DeleteOne removes at most the first document matching target.
	DeleteOne(docs []Document, target any) (deleted Document, rest []Document, err error)
	// UpdateMany applies patches to every qualifying document.
	UpdateMany(docs []Document, targets any) (updated []Document, result []Document, err error)
	// UpdateOne applies a patch to the first qualifying document.
	UpdateOne(docs []Document, target any) (updated Document, result []Document, err error)
}

// Storage is a raw key-value byte store. Implementations decide where bytes
// live (memory, files, bbolt, SQLite, Badger...).
type Storage interface {
	// Read returns the bytes stored under key and whether they exist.
	Read(ctx context.Context, key string) ([]byte, bool, error)
	// Write replaces the bytes stored under key.
	Write(ctx context.Context, key string, data []byte) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
	// Supported reports whether the storage can be used in the current
	// environment.
	Supported() bool
	// Close releases resources held by the storage.
	Close() error
}

// Backend is the persistence contract used by databases and collections.
type Backend interface {
	// Get returns the decoded value stored under key, or defaultValue if
	// the key is absent or its content cannot be decoded.
	Get(ctx context.Context, key string, defaultValue any) (any, error)
	// Set stores value under key and returns its encoded form.
	Set(ctx context.Context, key string, value any) ([]byte, error)
	// Update stores the result of fn applied to the current value (nil
	// when absent) and returns its encoded form.
	Update(ctx context.Context, key string, fn func(prev any) (any, error)) ([]byte, error)
	// Drop removes the value stored under key.
	Drop(ctx context.Context, key string) error
	// Encode serializes a value the same way it would be persisted.
	Encode(value any) ([]byte, error)
	// Decode deserializes bytes produced by Encode.
	Decode(data []byte) (any, error)
	// IsSupported reports whether the underlying storage is usable.
	IsSupported() bool
}

// Listener receives events published by a collection.
type Listener func(Event)

// Subscription identifies one listener registration.
type Subscription interface {
	// Kinds returns the event kinds the listener was registered for.
	Kinds() []EventKind
	// Unsubscribe removes the listener. Calling it more than once is a
	// no-op.
	Unsubscribe()
}

// EventSource is the subscribing side of an event bus.
type EventSource interface {
	// On registers listener for every given kind.
	On(listener Listener, kinds ...EventKind) Subscription
	// Off removes the registration behind sub. Removing a registration that
	// is not present is a no-op.
	Off(sub Subscription)
}

// EventBus is an [EventSource] that can also publish events.
type EventBus interface {
	EventSource
	// Emit synchronously calls every listener registered for the event
	// kind, in registration order.
	Emit(Event)
}

// Handle wraps one document of a collection, keeping it current with
// committed updates and exposing its references.
type Handle interface {
	// ID returns the identifier of the wrapped document.
	ID() any
	// Data returns a copy of the current snapshot.
	Data() Document
	// Deleted reports whether a delete event was received for the
	// document.
	Deleted() bool
	// Decode decodes the current snapshot into target.
	Decode(target any) error
	// ResolveReference resolves the reference configured under name. A
	// string reference yields a [Document] of the sibling collection or nil
	// when nothing matches.
	ResolveReference(ctx context.Context, name string) (any, error)
	// Sync re-reads the document from the collection.
	Sync(ctx context.Context) error
	// Update applies a patch (or a function returning one) to the
	// document.
	Update(ctx context.Context, patch any) (Handle, error)
	// Delete removes the document from the collection.
	Delete(ctx context.Context) error
	// On registers a listener for events concerning this document only.
	On(listener Listener, kinds ...EventKind) Subscription
	// Close removes every subscription held by the handle.
	Close()
}

// ResultSet aggregates the handles of an operation result.
type ResultSet interface {
	// Len returns the number of documents in the set.
	Len() int
	// Handles returns one handle per document.
	Handles() []Handle
	// Documents returns the document snapshots.
	Documents() []Document
	// IDs returns the identifiers of the documents.
	IDs() []any
	// Scan decodes every document into target, which must be a pointer to
	// a slice.
	Scan(target any) error
	// Sync re-runs the query that produced the set.
	Sync(ctx context.Context) error
}

// Collection is an ordered, retention-bounded set of documents.
type Collection interface {
	// Name returns the collection name.
	Name() string
	// FullName returns the name used for storage and registry keys.
	FullName() string
	// Database returns the database owning the collection.
	Database() Database
	// Refs returns the configured references.
	Refs() map[string]Reference
	// Events returns the collection event source.
	Events() EventSource

	// FindMany returns every document matching target.
	FindMany(ctx context.Context, target any) (ResultSet, error)
	// FindOne returns the first document matching target, or nil.
	FindOne(ctx context.Context, target any) (Handle, error)
	// InsertMany inserts documents, allocating sequential identifiers.
	InsertMany(ctx context.Context, docs ...any) (ResultSet, error)
	// InsertOne inserts a document. A nil handle means the insert was
	// rejected by a retention limit.
	InsertOne(ctx context.Context, doc any) (Handle, error)
	// DeleteMany deletes every document matching target. A nil set means
	// nothing was deleted.
	DeleteMany(ctx context.Context, target any) (ResultSet, error)
	// DeleteOne deletes the first document matching target.
	DeleteOne(ctx context.Context, target any) (Handle, error)
	// UpdateMany patches every qualifying document.
	UpdateMany(ctx context.Context, targets any) (ResultSet, error)
	// UpdateOne patches the first qualifying document.
	UpdateOne(ctx context.Context, target any) (Handle, error)
	// Drop deletes every document and the collection metadata.
	Drop(ctx context.Context) error

	// Settings returns the collection metadata.
	Settings(ctx context.Context) (CollectionMetadata, error)
	// UpdateSettings merges patch into the collection metadata.
	UpdateSettings(ctx context.Context, patch any) error
}

// Database groups collections sharing one backend and one settings record.
type Database interface {
	// Name returns the database name.
	Name() string
	// FullName returns the group-prefixed name.
	FullName() string
	// Backend returns the selected backend.
	Backend() Backend
	// Collection opens (or returns the already open) collection.
	Collection(ctx context.Context, name string, options ...CollectionOption) (Collection, error)
	// Sibling returns an already open collection of this database.
	Sibling(name string) (Collection, bool)
	// Collections returns every open collection of this database.
	Collections() []Collection
	// Settings returns the persisted database settings.
	Settings(ctx context.Context) (DatabaseSettings, error)
	// UpdateSettings replaces the settings with the result of fn.
	UpdateSettings(ctx context.Context, fn func(DatabaseSettings) (DatabaseSettings, error)) error
	// Drop drops every open collection and forgets the database.
	Drop(ctx context.Context) error
}

// KVDB is the top-level context owning every open database, collection and
// document handle.
type KVDB interface {
	// Database opens (or returns the already open) database.
	Database(ctx context.Context, name string, options ...DatabaseOption) (Database, error)
	// DropAll drops every open database.
	DropAll(ctx context.Context) error
	// Close stops every expiration sweep and releases cached values
	// without deleting data.
	Close() error
}
