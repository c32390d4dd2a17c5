// Package fieldnavigator resolves dotted paths inside documents.
package fieldnavigator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vinicius-lino-figueiredo/kvdb/domain"
)

// FieldNavigator implements [domain.FieldNavigator].
type FieldNavigator struct {
	docFac domain.DocumentFactory
}

// NewFieldNavigator returns a new instance of [domain.FieldNavigator]. The
// factory is used to read values that are not documents yet, such as plain
// maps or structs.
func NewFieldNavigator(docFac domain.DocumentFactory) domain.FieldNavigator {
	return &FieldNavigator{
		docFac: docFac,
	}
}

// GetAddress implements [domain.FieldNavigator].
func (fn *FieldNavigator) GetAddress(field string) ([]string, error) {
	if field == "" {
		return nil, fmt.Errorf("empty field path")
	}
	parts := strings.Split(field, ".")
	for _, part := range parts {
		if part == "" {
			return nil, fmt.Errorf("invalid field path %q", field)
		}
	}
	return parts, nil
}

// GetField implements [domain.FieldNavigator]. Numeric parts index arrays.
// The second return is false when some part of the path is not defined.
func (fn *FieldNavigator) GetField(obj any, addr ...string) (any, bool, error) {
	if len(addr) == 0 {
		return obj, obj != nil, nil
	}
	curr := obj
	for _, part := range addr {
		switch t := curr.(type) {
		case nil:
			return nil, false, nil
		case domain.Document:
			if !t.Has(part) {
				return nil, false, nil
			}
			curr = t.Get(part)
		case []any:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(t) {
				return nil, false, nil
			}
			curr = t[i]
		default:
			doc, err := fn.docFac(t)
			if err != nil {
				// primitives have no fields
				return nil, false, nil
			}
			if !doc.Has(part) {
				return nil, false, nil
			}
			curr = doc.Get(part)
		}
	}
	return curr, true, nil
}
