package domain

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// DocumentFactory represents a function that constructs [Document] instances
// from maps, structs or documents. If nil is provided, returns an empty
// document.
type DocumentFactory = func(any) (Document, error)

// WithRemoveAfterLimit chooses the eviction policy. When true (default) the
// oldest documents are removed to preserve a write that exceeds a limit;
// when false existing documents are protected and the write is reduced or
// rejected.
func WithRemoveAfterLimit(r bool) CollectionOption {
	return func(co *CollectionOptions) {
		co.RemoveAfterLimit = r
	}
}

// WithMaxSize sets the maximum byte size of the encoded document array. Zero
// means unbounded.
func WithMaxSize(s int64) CollectionOption {
	return func(co *CollectionOptions) {
		co.MaxSize = s
	}
}

// WithMaxLength sets the maximum number of documents. Zero means unbounded.
func WithMaxLength(l int64) CollectionOption {
	return func(co *CollectionOptions) {
		co.MaxLength = l
	}
}

// WithGroup sets a namespace combined with the collection name in storage
// and registry keys.
func WithGroup(g string) CollectionOption {
	return func(co *CollectionOptions) {
		co.Group = g
	}
}

// WithExpirationKey sets the field holding the expiry of each document and
// enables the expiration sweep.
func WithExpirationKey(k string) CollectionOption {
	return func(co *CollectionOptions) {
		co.Expiration.Key = k
	}
}

// WithExpirationEvery sets the interval between sweeps. Non-positive values
// run a single sweep when the collection is opened.
func WithExpirationEvery(e time.Duration) CollectionOption {
	return func(co *CollectionOptions) {
		co.Expiration.Every = e
	}
}

// WithExpirationHandler replaces the default expiry check.
func WithExpirationHandler(h ExpiryHandler) CollectionOption {
	return func(co *CollectionOptions) {
		co.Expiration.Handler = h
	}
}

// WithRefs sets the references resolved by document handles.
func WithRefs(r map[string]Reference) CollectionOption {
	return func(co *CollectionOptions) {
		co.Refs = r
	}
}

// WithCollectionLogger sets the logger used by the collection.
func WithCollectionLogger(l zerolog.Logger) CollectionOption {
	return func(co *CollectionOptions) {
		co.Logger = l
	}
}

// WithCollectionTimeGetter sets the clock used by the default expiry check.
func WithCollectionTimeGetter(t TimeGetter) CollectionOption {
	return func(co *CollectionOptions) {
		co.TimeGetter = t
	}
}

// WithCollectionQuerier replaces the match/merge algorithm.
func WithCollectionQuerier(q Querier) CollectionOption {
	return func(co *CollectionOptions) {
		co.Querier = q
	}
}

// WithCollectionDocumentFactory sets the function used to convert inputs to
// documents.
func WithCollectionDocumentFactory(d DocumentFactory) CollectionOption {
	return func(co *CollectionOptions) {
		co.DocumentFactory = d
	}
}

// WithCollectionDecoder sets the decoder used by handles and result sets.
func WithCollectionDecoder(d Decoder) CollectionOption {
	return func(co *CollectionOptions) {
		co.Decoder = d
	}
}

// CollectionOption configures a collection through the functional options
// pattern.
type CollectionOption func(*CollectionOptions)

// ExpirationOptions configures the expiration sweep.
type ExpirationOptions struct {
	// Every is the interval between sweeps.
	Every time.Duration
	// Key is the field holding the expiry. Empty disables the sweep.
	Key string
	// Handler reports whether a document is expired.
	Handler ExpiryHandler
}

// CollectionOptions contains parameters for customizing a collection.
type CollectionOptions struct {
	RemoveAfterLimit bool
	MaxSize          int64
	MaxLength        int64
	Group            string
	Expiration       ExpirationOptions
	Refs             map[string]Reference
	Logger           zerolog.Logger
	TimeGetter       TimeGetter
	Querier          Querier
	DocumentFactory  DocumentFactory
	Decoder          Decoder
}

// WithBackends sets the backend candidates of a database. The first one
// reporting support is used, falling back to the first candidate.
func WithBackends(b ...Backend) DatabaseOption {
	return func(do *DatabaseOptions) {
		do.Backends = b
	}
}

// WithDatabaseGroup sets a namespace combined with the database name.
func WithDatabaseGroup(g string) DatabaseOption {
	return func(do *DatabaseOptions) {
		do.Group = g
	}
}

// WithDatabaseLogger sets the logger used by the database and inherited by
// its collections.
func WithDatabaseLogger(l zerolog.Logger) DatabaseOption {
	return func(do *DatabaseOptions) {
		do.Logger = &l
	}
}

// DatabaseOption configures a database through the functional options
// pattern.
type DatabaseOption func(*DatabaseOptions)

// DatabaseOptions contains parameters for customizing a database.
type DatabaseOptions struct {
	Backends []Backend
	Group    string
	// Logger overrides the logger of the owning [KVDB] when set.
	Logger *zerolog.Logger
}

// WithBackendStorage sets the raw storage used by a backend.
func WithBackendStorage(s Storage) BackendOption {
	return func(bo *BackendOptions) {
		bo.Storage = s
	}
}

// WithBackendSerializer sets the serializer used to encode values.
func WithBackendSerializer(s Serializer) BackendOption {
	return func(bo *BackendOptions) {
		bo.Serializer = s
	}
}

// WithBackendDeserializer sets the deserializer used to decode values.
func WithBackendDeserializer(d Deserializer) BackendOption {
	return func(bo *BackendOptions) {
		bo.Deserializer = d
	}
}

// WithCacheInMemory keeps decoded values in memory so repeated reads skip
// the storage.
func WithCacheInMemory(c bool) BackendOption {
	return func(bo *BackendOptions) {
		bo.CacheInMemory = c
	}
}

// WithBackendLogger sets the logger used by a backend.
func WithBackendLogger(l zerolog.Logger) BackendOption {
	return func(bo *BackendOptions) {
		bo.Logger = l
	}
}

// BackendOption configures a backend through the functional options pattern.
type BackendOption func(*BackendOptions)

// BackendOptions contains parameters for customizing a backend.
type BackendOptions struct {
	Storage       Storage
	Serializer    Serializer
	Deserializer  Deserializer
	CacheInMemory bool
	Logger        zerolog.Logger
}

// WithLogger sets the logger used by the top-level context.
func WithLogger(l zerolog.Logger) KVDBOption {
	return func(ko *KVDBOptions) {
		ko.Logger = l
	}
}

// KVDBOption configures the top-level context through the functional options
// pattern.
type KVDBOption func(*KVDBOptions)

// KVDBOptions contains parameters for customizing the top-level context.
type KVDBOptions struct {
	Logger zerolog.Logger
}

// WithMatcherDocumentFactory sets the factory function used to convert
// patterns.
func WithMatcherDocumentFactory(d DocumentFactory) MatcherOption {
	return func(mo *MatcherOptions) {
		mo.DocumentFactory = d
	}
}

// WithMatcherComparer sets the comparer used for primitive equality.
func WithMatcherComparer(c Comparer) MatcherOption {
	return func(mo *MatcherOptions) {
		mo.Comparer = c
	}
}

// MatcherOption configures matcher behavior through the functional options
// pattern.
type MatcherOption func(*MatcherOptions)

// MatcherOptions contains parameters for customizing a matcher.
type MatcherOptions struct {
	DocumentFactory DocumentFactory
	Comparer        Comparer
}

// WithQuerierDocumentFactory sets the factory function used to convert
// patterns and patches.
func WithQuerierDocumentFactory(d DocumentFactory) QuerierOption {
	return func(qo *QuerierOptions) {
		qo.DocumentFactory = d
	}
}

// WithQuerierMatcher sets the matcher used for partial-object patterns.
func WithQuerierMatcher(m Matcher) QuerierOption {
	return func(qo *QuerierOptions) {
		qo.Matcher = m
	}
}

// WithQuerierModifier sets the modifier used to merge patches.
func WithQuerierModifier(m Modifier) QuerierOption {
	return func(qo *QuerierOptions) {
		qo.Modifier = m
	}
}

// WithQuerierComparer sets the comparer used to pair patches with documents.
func WithQuerierComparer(c Comparer) QuerierOption {
	return func(qo *QuerierOptions) {
		qo.Comparer = c
	}
}

// QuerierOption configures the match/merge algorithm through the functional
// options pattern.
type QuerierOption func(*QuerierOptions)

// QuerierOptions contains parameters for customizing the match/merge
// algorithm.
type QuerierOptions struct {
	DocumentFactory DocumentFactory
	Matcher         Matcher
	Modifier        Modifier
	Comparer        Comparer
}

// WithFileStorageFileMode sets the permissions of files created by the file
// storage.
func WithFileStorageFileMode(m os.FileMode) FileStorageOption {
	return func(fo *FileStorageOptions) {
		fo.FileMode = m
	}
}

// WithFileStorageDirMode sets the permissions of directories created by the
// file storage.
func WithFileStorageDirMode(m os.FileMode) FileStorageOption {
	return func(fo *FileStorageOptions) {
		fo.DirMode = m
	}
}

// FileStorageOption configures the file storage through the functional
// options pattern.
type FileStorageOption func(*FileStorageOptions)

// FileStorageOptions contains parameters for customizing the file storage.
type FileStorageOptions struct {
	FileMode os.FileMode
	DirMode  os.FileMode
}
