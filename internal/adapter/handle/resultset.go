package handle

import (
	"context"
	"sync"

	"github.com/vinicius-lino-figueiredo/kvdb/domain"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/data"
)

// ResultSet implements [domain.ResultSet].
type ResultSet struct {
	mu      sync.RWMutex
	mgr     *Manager
	query   any
	docs    []domain.Document
	handles []*Handle
}

// NewSet returns a set holding the live handles of docs. Sync re-runs query
// against the collection.
func (m *Manager) NewSet(docs []domain.Document, query any) *ResultSet {
	rs := &ResultSet{mgr: m, query: query}
	rs.fill(docs)
	return rs
}

// WrittenSet returns a set of docs that re-reads them by identifier.
func (m *Manager) WrittenSet(docs []domain.Document) *ResultSet {
	return m.NewSet(docs, m.IDsPredicate(ids(docs)))
}

// RemovedSet returns a set of deleted docs. See [Manager.Removed].
func (m *Manager) RemovedSet(docs []domain.Document) *ResultSet {
	rs := &ResultSet{mgr: m, query: m.IDsPredicate(ids(docs))}
	rs.docs = make([]domain.Document, len(docs))
	rs.handles = make([]*Handle, len(docs))
	for n, doc := range docs {
		rs.docs[n] = data.Clone(doc).(domain.Document)
		rs.handles[n] = m.Removed(doc)
	}
	return rs
}

func (rs *ResultSet) fill(docs []domain.Document) {
	rs.docs = make([]domain.Document, len(docs))
	rs.handles = make([]*Handle, len(docs))
	for n, doc := range docs {
		rs.docs[n] = data.Clone(doc).(domain.Document)
		rs.handles[n] = rs.mgr.Handle(doc)
	}
}

// Len implements [domain.ResultSet].
func (rs *ResultSet) Len() int {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return len(rs.docs)
}

// Handles implements [domain.ResultSet].
func (rs *ResultSet) Handles() []domain.Handle {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	res := make([]domain.Handle, len(rs.handles))
	for n, h := range rs.handles {
		res[n] = h
	}
	return res
}

// Documents implements [domain.ResultSet].
func (rs *ResultSet) Documents() []domain.Document {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	res := make([]domain.Document, len(rs.docs))
	for n, doc := range rs.docs {
		res[n] = data.Clone(doc).(domain.Document)
	}
	return res
}

// IDs implements [domain.ResultSet].
func (rs *ResultSet) IDs() []any {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return ids(rs.docs)
}

// Scan implements [domain.ResultSet].
func (rs *ResultSet) Scan(target any) error {
	docs := rs.Documents()
	list := make([]any, len(docs))
	for n, doc := range docs {
		list[n] = doc
	}
	return rs.mgr.decoder.Decode(list, target)
}

// Sync implements [domain.ResultSet].
func (rs *ResultSet) Sync(ctx context.Context) error {
	res, err := rs.mgr.coll.FindMany(ctx, rs.query)
	if err != nil {
		return err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.fill(res.Documents())
	return nil
}

func ids(docs []domain.Document) []any {
	res := make([]any, len(docs))
	for n, doc := range docs {
		res[n] = doc.ID()
	}
	return res
}
