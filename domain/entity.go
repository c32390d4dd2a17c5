package domain

// IDField is the name of the identifier field of every document.
const IDField = "_id"

// SettingsKey is the reserved backend key holding the settings of every
// database.
const SettingsKey = "$$kvdb.settings"

// EventKind names a collection event.
type EventKind string

// Events published by collections.
const (
	EventInsert EventKind = "insert"
	EventUpdate EventKind = "update"
	EventDelete EventKind = "delete"
	EventDrop   EventKind = "drop"
	EventExpire EventKind = "expire"
)

// Event is delivered to listeners right after a mutation is committed.
type Event struct {
	Kind       EventKind
	Collection Collection
	// Items holds the affected documents. Drop events carry none.
	Items []Document
	// IsMany is true when the event was published by a bulk operation.
	IsMany bool
}

// CollectionMetadata is the persisted record of one collection.
type CollectionMetadata struct {
	Name string `json:"name" kvdb:"name"`
	// Last is the last allocated identifier.
	Last int64 `json:"last" kvdb:"last"`
	// Length is the number of documents.
	Length int64 `json:"length" kvdb:"length"`
	// Size is the byte size of the encoded document array.
	Size int64 `json:"size" kvdb:"size"`
	// FullSize is Size plus the byte size of the previous encoded metadata
	// record.
	FullSize int64 `json:"fullSize" kvdb:"fullSize"`
}

// DatabaseSettings is the persisted record of one database.
type DatabaseSettings struct {
	Name        string               `json:"name" kvdb:"name"`
	Collections []CollectionMetadata `json:"collections" kvdb:"collections"`
}

// Predicate selects documents.
type Predicate func(Document) bool

// Patcher returns the patch to apply to a document, or nil to leave it
// untouched.
type Patcher func(Document) any

// RefFunc computes a reference from the raw document.
type RefFunc func(Document) (any, error)

// Reference describes a virtual field resolved at read time. Exactly one of
// Target and Func should be set.
type Reference struct {
	// Target has the form "collection" or "collection.path". The path
	// defaults to the identifier field.
	Target string
	// Func is invoked with the raw document.
	Func RefFunc
}

// ExpiryContext is passed to [ExpiryHandler] for every document of a sweep.
type ExpiryContext struct {
	Document   Document
	Collection Collection
	Key        string
}

// ExpiryHandler reports whether a document is expired.
type ExpiryHandler func(ExpiryContext) bool

type removeSettings struct{}

// RemoveSettings can be given to [Collection.UpdateSettings] to remove the
// collection entry from the database settings.
var RemoveSettings = removeSettings{}
