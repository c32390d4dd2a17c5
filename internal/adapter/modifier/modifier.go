// Package modifier applies deep-merge patches to documents.
package modifier

import (
	"github.com/vinicius-lino-figueiredo/kvdb/domain"
)

// Modifier implements [domain.Modifier]. Nested documents are merged
// recursively, every other value in the patch (arrays included) replaces the
// value in the base.
type Modifier struct {
	docFac domain.DocumentFactory
}

// NewModifier implements [domain.Modifier].
func NewModifier(docFac domain.DocumentFactory) domain.Modifier {
	return &Modifier{
		docFac: docFac,
	}
}

// Modify implements [domain.Modifier].
func (m *Modifier) Modify(obj domain.Document, patch domain.Document) (domain.Document, error) {
	res, err := m.docFac(obj)
	if err != nil {
		return nil, err
	}
	p, err := m.docFac(patch)
	if err != nil {
		return nil, err
	}
	m.merge(res, p)
	if obj.Has(domain.IDField) {
		res.Set(domain.IDField, obj.ID())
	} else {
		res.Unset(domain.IDField)
	}
	return res, nil
}

// merge writes patch into base. Both are owned copies.
func (m *Modifier) merge(base, patch domain.Document) {
	for k, v := range patch.Iter() {
		pv, ok := v.(domain.Document)
		if !ok {
			base.Set(k, v)
			continue
		}
		bv, ok := base.Get(k).(domain.Document)
		if !ok {
			base.Set(k, pv)
			continue
		}
		m.merge(bv, pv)
	}
}
