// Package eventbus implements the per-collection publish/subscribe registry.
package eventbus

import (
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/vinicius-lino-figueiredo/kvdb/domain"
)

type entry struct {
	id       uuid.UUID
	listener domain.Listener
}

// Bus implements [domain.EventBus].
type Bus struct {
	mu        sync.RWMutex
	listeners map[domain.EventKind][]entry
}

// NewBus returns a new implementation of [domain.EventBus].
func NewBus() domain.EventBus {
	return &Bus{
		listeners: make(map[domain.EventKind][]entry),
	}
}

// On implements [domain.EventSource].
func (b *Bus) On(listener domain.Listener, kinds ...domain.EventKind) domain.Subscription {
	sub := &Subscription{
		id:    uuid.New(),
		kinds: slices.Clone(kinds),
		bus:   b,
	}
	if listener == nil {
		return sub
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, kind := range kinds {
		b.listeners[kind] = append(b.listeners[kind], entry{id: sub.id, listener: listener})
	}
	return sub
}

// Off implements [domain.EventSource].
func (b *Bus) Off(sub domain.Subscription) {
	s, ok := sub.(*Subscription)
	if !ok || s == nil || s.bus != b {
		return
	}
	b.remove(s.id, s.kinds)
}

func (b *Bus) remove(id uuid.UUID, kinds []domain.EventKind) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, kind := range kinds {
		entries := slices.DeleteFunc(b.listeners[kind], func(e entry) bool {
			return e.id == id
		})
		if len(entries) == 0 {
			delete(b.listeners, kind)
			continue
		}
		b.listeners[kind] = entries
	}
}

// Emit implements [domain.EventBus]. Listeners run outside the bus lock, so
// they may subscribe or unsubscribe while being called.
func (b *Bus) Emit(e domain.Event) {
	b.mu.RLock()
	entries := slices.Clone(b.listeners[e.Kind])
	b.mu.RUnlock()

	for _, en := range entries {
		en.listener(e)
	}
}

// Subscription implements [domain.Subscription].
type Subscription struct {
	id    uuid.UUID
	kinds []domain.EventKind
	bus   *Bus
}

// ID returns the identifier of the registration.
func (s *Subscription) ID() uuid.UUID {
	return s.id
}

// Kinds implements [domain.Subscription].
func (s *Subscription) Kinds() []domain.EventKind {
	return slices.Clone(s.kinds)
}

// Unsubscribe implements [domain.Subscription].
func (s *Subscription) Unsubscribe() {
	s.bus.remove(s.id, s.kinds)
}
