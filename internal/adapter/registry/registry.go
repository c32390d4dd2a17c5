// Package registry implements a keyed map of singletons.
package registry

import (
	"slices"
	"sync"
)

// Map holds one value per key. Values are created on first use and live
// until deleted or until the owner discards the Map.
type Map[K comparable, V any] struct {
	mu     sync.Mutex
	values map[K]V
	order  []K
}

// New returns an empty Map.
func New[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{values: make(map[K]V)}
}

// Get returns the value stored under key.
func (m *Map[K, V]) Get(key K) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok
}

// GetOrCreate returns the value stored under key, calling create to build
// it when missing. The boolean is true when the value already existed.
// create runs with the Map locked and must not use it.
func (m *Map[K, V]) GetOrCreate(key K, create func() (V, error)) (V, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.values[key]; ok {
		return v, true, nil
	}
	v, err := create()
	if err != nil {
		var zero V
		return zero, false, err
	}
	m.values[key] = v
	m.order = append(m.order, key)
	return v, false, nil
}

// Delete removes key and reports whether it was present.
func (m *Map[K, V]) Delete(key K) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.values[key]; !ok {
		return false
	}
	delete(m.values, key)
	m.order = slices.DeleteFunc(m.order, func(k K) bool { return k == key })
	return true
}

// DeleteIf removes key when its value satisfies cond and reports whether it
// was removed. cond runs with the Map locked.
func (m *Map[K, V]) DeleteIf(key K, cond func(V) bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok || !cond(v) {
		return false
	}
	delete(m.values, key)
	m.order = slices.DeleteFunc(m.order, func(k K) bool { return k == key })
	return true
}

// DeleteFunc removes every entry for which del returns true. del runs with
// the Map locked.
func (m *Map[K, V]) DeleteFunc(del func(K, V) bool) []V {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed []V
	m.order = slices.DeleteFunc(m.order, func(k K) bool {
		v := m.values[k]
		if !del(k, v) {
			return false
		}
		removed = append(removed, v)
		delete(m.values, k)
		return true
	})
	return removed
}

// Values returns every value in insertion order.
func (m *Map[K, V]) Values() []V {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := make([]V, len(m.order))
	for n, k := range m.order {
		res[n] = m.values[k]
	}
	return res
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.values)
}
