// Package serializer contains the default [domain.Serializer] implementation.
package serializer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/vinicius-lino-figueiredo/kvdb/domain"
)

// DateKey wraps time values in serialized documents.
const DateKey = "$$date"

// Serializer implements domain.Serializer. Documents are written as JSON
// objects and time values as {"$$date": <unix milliseconds>}.
type Serializer struct {
	documentFactory domain.DocumentFactory
}

// NewSerializer returns a new implementation of domain.Serializer.
func NewSerializer(documentFactory domain.DocumentFactory) domain.Serializer {
	return &Serializer{
		documentFactory: documentFactory,
	}
}

// Serialize implements domain.Serializer.
func (s *Serializer) Serialize(ctx context.Context, obj any) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	wrapped, err := s.wrap(obj)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wrapped)
}

// wrap returns a copy of v ready for encoding, with every time value
// replaced by a date wrapper and every document key validated.
func (s *Serializer) wrap(v any) (any, error) {
	switch t := v.(type) {
	case time.Time:
		return map[string]int64{DateKey: t.UnixMilli()}, nil
	case domain.Document:
		return s.wrapDoc(t)
	case []domain.Document:
		res := make([]any, len(t))
		for n, doc := range t {
			w, err := s.wrapDoc(doc)
			if err != nil {
				return nil, err
			}
			res[n] = w
		}
		return res, nil
	case []any:
		res := make([]any, len(t))
		for n, item := range t {
			w, err := s.wrap(item)
			if err != nil {
				return nil, err
			}
			res[n] = w
		}
		return res, nil
	}
	return v, nil
}

func (s *Serializer) wrapDoc(doc domain.Document) (domain.Document, error) {
	res, err := s.documentFactory(nil)
	if err != nil {
		return nil, err
	}
	for k, v := range doc.Iter() {
		if err := validKey(k); err != nil {
			return nil, err
		}
		w, err := s.wrap(v)
		if err != nil {
			return nil, err
		}
		res.Set(k, w)
	}
	return res, nil
}

func validKey(k string) error {
	if strings.ContainsRune(k, '.') {
		return fmt.Errorf("field name %q contains a '.'", k)
	}
	if strings.HasPrefix(k, "$") {
		return fmt.Errorf("field name %q starts with the $ character", k)
	}
	return nil
}
