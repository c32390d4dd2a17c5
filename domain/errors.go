package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoBackend is returned when a database is opened without any
	// backend candidate.
	ErrNoBackend = errors.New("no backend have been defined")
	// ErrIDProvided is returned when an inserted document already carries
	// an identifier.
	ErrIDProvided = fmt.Errorf("documents cannot be inserted with a %s field", IDField)
	// ErrCollectionDropped is returned by operations on a collection value
	// that was dropped.
	ErrCollectionDropped = errors.New("collection was dropped")
	// ErrTargetNil is returned when the passed target, which should be a
	// pointer, is nil.
	ErrTargetNil = errors.New("target interface is nil")
	// ErrClosed is returned after [KVDB.Close].
	ErrClosed = errors.New("kvdb is closed")
)

// ErrDocumentType is returned when a value cannot be converted to a
// [Document].
type ErrDocumentType struct {
	Reason string
}

func (e ErrDocumentType) Error() string {
	return fmt.Sprintf("invalid document: %s", e.Reason)
}

// ErrUnknownReference is returned when resolving a reference that was not
// configured.
type ErrUnknownReference struct {
	Name string
}

func (e ErrUnknownReference) Error() string {
	return fmt.Sprintf("unknown reference %q", e.Name)
}

// ErrFlushToStorage is returned when the file storage cannot sync or close
// a file.
type ErrFlushToStorage struct {
	ErrorOnFsync error
	ErrorOnClose error
}

func (e ErrFlushToStorage) Error() string {
	var err error
	if e.ErrorOnFsync != nil {
		err = e.ErrorOnFsync
	} else {
		err = e.ErrorOnClose
	}
	return fmt.Sprint("storage flush error: ", err.Error())
}

func (e ErrFlushToStorage) Unwrap() error {
	if e.ErrorOnFsync != nil {
		return e.ErrorOnFsync
	}
	return e.ErrorOnClose
}
