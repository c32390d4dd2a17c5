// Package kvdb provides schema-less document collections on top of a
// pluggable key-value backend.
//
// The basic usage starts with creating a new [KVDB] instance, which can be
// done by calling [New], opening a [Database] with at least one [Backend] and
// then opening a [Collection] inside it:
//
//	db, _ := kvdb.New().Database(ctx, "app", kvdb.WithBackends(kvdb.NewBackend()))
//	users, _ := db.Collection(ctx, "users", kvdb.WithMaxLength(1000))
//	user, _ := users.InsertOne(ctx, map[string]any{"name": "ana"})
//
// Collections keep their documents in insertion order and enforce optional
// retention limits, either evicting the oldest documents or rejecting writes
// when a limit is reached.
package kvdb

import (
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/vinicius-lino-figueiredo/kvdb/domain"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/backend"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/data"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/orm"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/storage/badger"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/storage/bolt"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/storage/file"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/storage/memory"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/storage/sqlite"
)

var (
	// ErrNoBackend is returned by [KVDB.Database] when no backend
	// candidate was given.
	ErrNoBackend = domain.ErrNoBackend
	// ErrIDProvided is returned when inserting a document that already has
	// an _id field. Identifiers are always allocated by the collection.
	ErrIDProvided = domain.ErrIDProvided
	// ErrCollectionDropped is returned by every operation of a
	// [Collection] that was dropped. Open it again to get a fresh one.
	ErrCollectionDropped = domain.ErrCollectionDropped
	// ErrTargetNil is returned when a nil target is given to
	// [Handle.Decode] or [ResultSet.Scan].
	ErrTargetNil = domain.ErrTargetNil
	// ErrClosed is returned after [KVDB.Close].
	ErrClosed = domain.ErrClosed
)

// ErrDocumentType is returned when an user passes a value that is invalid or
// contains an invalid sub value for creating a document.
type ErrDocumentType = domain.ErrDocumentType

// ErrUnknownReference is returned by [Handle.ResolveReference] for names
// that were not configured with [WithRefs].
type ErrUnknownReference = domain.ErrUnknownReference

// ErrFlushToStorage is returned by the file storage when a file could not be
// synced or closed.
type ErrFlushToStorage = domain.ErrFlushToStorage

// New creates a new KVDB instance. Databases, collections and document
// handles opened through it are cached and shared until dropped or until
// [KVDB.Close] is called.
//
// - [WithLogger]: sets the logger inherited by databases and collections.
func New(options ...KVDBOption) KVDB {
	return orm.NewORM(options...)
}

// KVDB is the top-level context owning every open database.
type KVDB = domain.KVDB

// Database groups collections sharing one backend and one settings record.
type Database = domain.Database

// Collection is an ordered, retention-bounded set of documents.
//
// Every write accepts structs or maps[string]T. For structs, unexported
// fields are ignored; a "kvdb" struct tag replaces the field name and
// supports ",omitempty" and ",omitzero".
//
// Targets of find, delete and update calls may be nil (every document), a
// func(Document) bool, a [Predicate] or a partial document matched by deep
// containment.
type Collection = domain.Collection

// Handle wraps one document, following its updates.
type Handle = domain.Handle

// ResultSet aggregates the handles of a bulk operation.
type ResultSet = domain.ResultSet

// Document represents a record of a collection.
type Document = domain.Document

// M is the default [Document] implementation.
type M = data.M

// Backend is the persistence contract used by databases.
type Backend = domain.Backend

// Storage is a raw key-value byte store used by [NewBackend].
type Storage = domain.Storage

// Serializer converts values to bytes for storage.
type Serializer = domain.Serializer

// Deserializer converts bytes back to values.
type Deserializer = domain.Deserializer

// Decoder converts documents into user types.
type Decoder = domain.Decoder

// Querier implements matching and merging over a list of documents.
type Querier = domain.Querier

// TimeGetter provides the current time to the default expiry check.
type TimeGetter = domain.TimeGetter

// DocumentFactory converts maps, structs and documents into [Document].
type DocumentFactory = domain.DocumentFactory

// Event is delivered to listeners after a committed mutation.
type Event = domain.Event

// EventKind names an [Event].
type EventKind = domain.EventKind

// Listener receives events.
type Listener = domain.Listener

// Subscription identifies one listener registration.
type Subscription = domain.Subscription

// Events published by collections.
const (
	EventInsert = domain.EventInsert
	EventUpdate = domain.EventUpdate
	EventDelete = domain.EventDelete
	EventDrop   = domain.EventDrop
	EventExpire = domain.EventExpire
)

// CollectionMetadata is the persisted record of a collection.
type CollectionMetadata = domain.CollectionMetadata

// DatabaseSettings is the persisted record of a database.
type DatabaseSettings = domain.DatabaseSettings

// Predicate selects documents.
type Predicate = domain.Predicate

// Patcher returns the patch to apply to a document, or nil to skip it.
type Patcher = domain.Patcher

// Reference describes a value resolved by [Handle.ResolveReference].
type Reference = domain.Reference

// ExpiryContext is given to an [ExpiryHandler].
type ExpiryContext = domain.ExpiryContext

// ExpiryHandler reports whether a document is expired.
type ExpiryHandler = domain.ExpiryHandler

// RemoveSettings can be passed to [Collection.UpdateSettings] to delete the
// collection metadata.
var RemoveSettings = domain.RemoveSettings

// KVDBOption configures [New].
type KVDBOption = domain.KVDBOption

// WithLogger sets the logger inherited by databases and collections.
func WithLogger(l zerolog.Logger) KVDBOption {
	return domain.WithLogger(l)
}

// DatabaseOption configures [KVDB.Database].
type DatabaseOption = domain.DatabaseOption

// WithBackends sets the backend candidates. The first one reporting support
// is used, falling back to the first candidate.
func WithBackends(b ...Backend) DatabaseOption {
	return domain.WithBackends(b...)
}

// WithDatabaseGroup sets a namespace combined with the database name.
func WithDatabaseGroup(g string) DatabaseOption {
	return domain.WithDatabaseGroup(g)
}

// WithDatabaseLogger overrides the logger of one database.
func WithDatabaseLogger(l zerolog.Logger) DatabaseOption {
	return domain.WithDatabaseLogger(l)
}

// CollectionOption configures [Database.Collection].
type CollectionOption = domain.CollectionOption

// WithRemoveAfterLimit chooses between evicting the oldest documents (true,
// default) and rejecting writes (false) when a limit is reached.
func WithRemoveAfterLimit(r bool) CollectionOption {
	return domain.WithRemoveAfterLimit(r)
}

// WithMaxSize sets the maximum byte size of the stored documents.
func WithMaxSize(s int64) CollectionOption {
	return domain.WithMaxSize(s)
}

// WithMaxLength sets the maximum number of documents.
func WithMaxLength(l int64) CollectionOption {
	return domain.WithMaxLength(l)
}

// WithGroup sets a namespace combined with the collection name.
func WithGroup(g string) CollectionOption {
	return domain.WithGroup(g)
}

// WithExpirationKey sets the field holding the expiry of each document.
func WithExpirationKey(k string) CollectionOption {
	return domain.WithExpirationKey(k)
}

// WithExpirationEvery sets the interval between expiration sweeps.
func WithExpirationEvery(e time.Duration) CollectionOption {
	return domain.WithExpirationEvery(e)
}

// WithExpirationHandler replaces the default expiry check.
func WithExpirationHandler(h ExpiryHandler) CollectionOption {
	return domain.WithExpirationHandler(h)
}

// WithRefs sets the references resolved by handles.
func WithRefs(r map[string]Reference) CollectionOption {
	return domain.WithRefs(r)
}

// WithCollectionLogger overrides the logger of one collection.
func WithCollectionLogger(l zerolog.Logger) CollectionOption {
	return domain.WithCollectionLogger(l)
}

// WithCollectionTimeGetter sets the clock of the default expiry check.
func WithCollectionTimeGetter(t TimeGetter) CollectionOption {
	return domain.WithCollectionTimeGetter(t)
}

// WithCollectionQuerier replaces the matching and merging algorithm.
func WithCollectionQuerier(q Querier) CollectionOption {
	return domain.WithCollectionQuerier(q)
}

// WithCollectionDocumentFactory sets the function converting inputs to
// documents.
func WithCollectionDocumentFactory(d DocumentFactory) CollectionOption {
	return domain.WithCollectionDocumentFactory(d)
}

// WithCollectionDecoder sets the decoder used by handles and result sets.
func WithCollectionDecoder(d Decoder) CollectionOption {
	return domain.WithCollectionDecoder(d)
}

// BackendOption configures [NewBackend].
type BackendOption = domain.BackendOption

// NewBackend creates a [Backend]. Without options values live in memory.
func NewBackend(options ...BackendOption) Backend {
	return backend.NewBackend(options...)
}

// WithStorage sets the storage used by a backend.
func WithStorage(s Storage) BackendOption {
	return domain.WithBackendStorage(s)
}

// WithSerializer sets the serializer used by a backend.
func WithSerializer(s Serializer) BackendOption {
	return domain.WithBackendSerializer(s)
}

// WithDeserializer sets the deserializer used by a backend.
func WithDeserializer(d Deserializer) BackendOption {
	return domain.WithBackendDeserializer(d)
}

// WithCacheInMemory keeps decoded values in memory. Defaults to true.
func WithCacheInMemory(c bool) BackendOption {
	return domain.WithCacheInMemory(c)
}

// WithBackendLogger sets the logger used by a backend.
func WithBackendLogger(l zerolog.Logger) BackendOption {
	return domain.WithBackendLogger(l)
}

// NewMemoryStorage creates a [Storage] keeping bytes in memory.
func NewMemoryStorage() Storage {
	return memory.NewStorage()
}

// FileStorageOption configures [NewFileStorage].
type FileStorageOption = domain.FileStorageOption

// WithFileMode sets the permissions of files created by the file storage.
func WithFileMode(m os.FileMode) FileStorageOption {
	return domain.WithFileStorageFileMode(m)
}

// WithDirMode sets the permissions of directories created by the file
// storage.
func WithDirMode(m os.FileMode) FileStorageOption {
	return domain.WithFileStorageDirMode(m)
}

// NewFileStorage creates a [Storage] writing one file per key inside dir.
// Writes go through a temporary file, so a crash never leaves a key half
// written.
func NewFileStorage(dir string, options ...FileStorageOption) Storage {
	return file.NewStorage(dir, options...)
}

// NewBoltStorage creates a [Storage] backed by a bbolt database file.
func NewBoltStorage(path string) (Storage, error) {
	return bolt.NewStorage(path)
}

// NewSQLiteStorage creates a [Storage] backed by a SQLite database. Use
// ":memory:" for a private in-memory database.
func NewSQLiteStorage(path string) (Storage, error) {
	return sqlite.NewStorage(path)
}

// NewBadgerStorage creates a [Storage] backed by Badger. An empty dir keeps
// the data in memory.
func NewBadgerStorage(dir string) (Storage, error) {
	return badger.NewStorage(dir)
}
