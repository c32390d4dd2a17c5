// Package handle implements the document handles and result sets returned
// by collections.
package handle

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/vinicius-lino-figueiredo/kvdb/domain"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/data"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/eventbus"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/registry"
)

// Config contains the collaborators of a [Manager].
type Config struct {
	Collection domain.Collection
	// Prefix is prepended to the identifier to build cache keys. It should
	// identify the database and the collection.
	Prefix    string
	Cache     *registry.Map[string, *Handle]
	Decoder   domain.Decoder
	Navigator domain.FieldNavigator
	Comparer  domain.Comparer
}

// Manager creates the handles of one collection, keeping one live handle per
// document in a cache shared by every collection of a [domain.KVDB].
type Manager struct {
	coll      domain.Collection
	prefix    string
	cache     *registry.Map[string, *Handle]
	decoder   domain.Decoder
	navigator domain.FieldNavigator
	comparer  domain.Comparer
}

// NewManager returns a new Manager.
func NewManager(cfg Config) *Manager {
	if cfg.Cache == nil {
		cfg.Cache = registry.New[string, *Handle]()
	}
	return &Manager{
		coll:      cfg.Collection,
		prefix:    cfg.Prefix,
		cache:     cfg.Cache,
		decoder:   cfg.Decoder,
		navigator: cfg.Navigator,
		comparer:  cfg.Comparer,
	}
}

func (m *Manager) key(id any) string {
	return fmt.Sprint(m.prefix, ":", id)
}

// Handle returns the live handle of doc, creating it if needed. An existing
// handle has its snapshot replaced by doc.
func (m *Manager) Handle(doc domain.Document) *Handle {
	h, existed, _ := m.cache.GetOrCreate(m.key(doc.ID()), func() (*Handle, error) {
		return m.newHandle(doc), nil
	})
	if existed {
		h.set(doc)
	}
	return h
}

// Removed returns the handle of a document that is being deleted. The live
// handle is reused when one exists, otherwise a detached one is returned.
func (m *Manager) Removed(doc domain.Document) *Handle {
	if h, ok := m.cache.Get(m.key(doc.ID())); ok {
		return h
	}
	return &Handle{
		id:      doc.ID(),
		data:    data.Clone(doc).(domain.Document),
		deleted: true,
		mgr:     m,
		bus:     eventbus.NewBus(),
	}
}

// Release drops every cached handle of the collection and detaches them
// from its events.
func (m *Manager) Release() {
	removed := m.cache.DeleteFunc(func(_ string, h *Handle) bool {
		return h.mgr == m
	})
	for _, h := range removed {
		h.detach()
	}
}

func (m *Manager) release(h *Handle) {
	m.cache.DeleteIf(m.key(h.id), func(v *Handle) bool { return v == h })
}

func (m *Manager) newHandle(doc domain.Document) *Handle {
	h := &Handle{
		id:   doc.ID(),
		data: data.Clone(doc).(domain.Document),
		mgr:  m,
		bus:  eventbus.NewBus(),
	}
	h.sub = m.coll.Events().On(h.receive, domain.EventUpdate, domain.EventDelete)
	return h
}

// SameID reports whether a and b are equal identifiers.
func (m *Manager) SameID(a, b any) bool {
	c, err := m.comparer.Compare(a, b)
	return err == nil && c == 0
}

// IDPredicate selects the document identified by id.
func (m *Manager) IDPredicate(id any) domain.Predicate {
	return func(d domain.Document) bool {
		return m.SameID(d.ID(), id)
	}
}

// IDsPredicate selects the documents identified by any of ids.
func (m *Manager) IDsPredicate(ids []any) domain.Predicate {
	return func(d domain.Document) bool {
		for _, id := range ids {
			if m.SameID(d.ID(), id) {
				return true
			}
		}
		return false
	}
}

// Handle implements [domain.Handle].
type Handle struct {
	mu      sync.RWMutex
	id      any
	data    domain.Document
	deleted bool
	mgr     *Manager
	sub     domain.Subscription
	bus     domain.EventBus
}

// ID implements [domain.Handle].
func (h *Handle) ID() any {
	return h.id
}

// Data implements [domain.Handle].
func (h *Handle) Data() domain.Document {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return data.Clone(h.data).(domain.Document)
}

// Deleted implements [domain.Handle].
func (h *Handle) Deleted() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.deleted
}

// Decode implements [domain.Handle].
func (h *Handle) Decode(target any) error {
	return h.mgr.decoder.Decode(h.Data(), target)
}

// ResolveReference implements [domain.Handle].
func (h *Handle) ResolveReference(ctx context.Context, name string) (any, error) {
	ref, ok := h.mgr.coll.Refs()[name]
	if !ok {
		return nil, domain.ErrUnknownReference{Name: name}
	}
	doc := h.Data()
	if ref.Func != nil {
		return ref.Func(doc)
	}

	collName, path, _ := strings.Cut(ref.Target, ".")
	if path == "" {
		path = domain.IDField
	}
	db := h.mgr.coll.Database()
	if db == nil {
		return nil, nil
	}
	sibling, ok := db.Sibling(collName)
	if !ok {
		return nil, nil
	}

	nav := h.mgr.navigator
	srcAddr, err := nav.GetAddress(name)
	if err != nil {
		return nil, err
	}
	value, defined, err := nav.GetField(doc, srcAddr...)
	if err != nil || !defined {
		return nil, err
	}
	dstAddr, err := nav.GetAddress(path)
	if err != nil {
		return nil, err
	}

	found, err := sibling.FindOne(ctx, domain.Predicate(func(d domain.Document) bool {
		v, ok, err := nav.GetField(d, dstAddr...)
		if err != nil || !ok {
			return false
		}
		c, err := h.mgr.comparer.Compare(value, v)
		return err == nil && c == 0
	}))
	if err != nil || found == nil {
		return nil, err
	}
	return found.Data(), nil
}

// Sync implements [domain.Handle]. A handle whose document no longer exists
// keeps its last snapshot.
func (h *Handle) Sync(ctx context.Context) error {
	found, err := h.mgr.coll.FindOne(ctx, h.mgr.IDPredicate(h.id))
	if err != nil || found == nil {
		return err
	}
	if fh, ok := found.(*Handle); !ok || fh != h {
		h.set(found.Data())
	}
	return nil
}

// Update implements [domain.Handle]. patch may be a document-like value or a
// function receiving the current document and returning the patch.
func (h *Handle) Update(ctx context.Context, patch any) (domain.Handle, error) {
	var fn func(domain.Document) any
	switch p := patch.(type) {
	case func(domain.Document) any:
		fn = p
	case domain.Patcher:
		fn = p
	}
	id := h.id
	res, err := h.mgr.coll.UpdateOne(ctx, domain.Patcher(func(doc domain.Document) any {
		if !h.mgr.SameID(doc.ID(), id) {
			return nil
		}
		if fn != nil {
			return fn(doc)
		}
		return patch
	}))
	if err != nil || res == nil {
		return nil, err
	}
	return res, nil
}

// Delete implements [domain.Handle].
func (h *Handle) Delete(ctx context.Context) error {
	h.mgr.release(h)
	_, err := h.mgr.coll.DeleteOne(ctx, h.mgr.IDPredicate(h.id))
	return err
}

// On implements [domain.Handle]. Listeners receive the update and delete
// events of this document only.
func (h *Handle) On(listener domain.Listener, kinds ...domain.EventKind) domain.Subscription {
	return h.bus.On(listener, kinds...)
}

// Close implements [domain.Handle].
func (h *Handle) Close() {
	h.mgr.release(h)
	h.detach()
}

func (h *Handle) detach() {
	h.mu.Lock()
	sub := h.sub
	h.sub = nil
	h.mu.Unlock()
	if sub != nil {
		sub.Unsubscribe()
	}
}

func (h *Handle) set(doc domain.Document) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.data = data.Clone(doc).(domain.Document)
}

func (h *Handle) receive(e domain.Event) {
	for _, item := range e.Items {
		if !h.mgr.SameID(item.ID(), h.id) {
			continue
		}
		switch e.Kind {
		case domain.EventUpdate:
			h.set(item)
		case domain.EventDelete:
			h.mu.Lock()
			h.deleted = true
			h.mu.Unlock()
			h.Close()
		}
		h.bus.Emit(domain.Event{
			Kind:       e.Kind,
			Collection: e.Collection,
			Items:      []domain.Document{h.Data()},
		})
		return
	}
}
