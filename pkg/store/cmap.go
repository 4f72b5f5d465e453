package store

import "sync"

// Map is a typed concurrent map. Gets, sets, and compute-if-absent are
// safe from any goroutine without external locking. Range iterates over a
// weakly consistent snapshot: mutation during iteration is tolerated but
// is not guaranteed to be observed by the same iteration.
type Map[K comparable, V any] struct {
	mu sync.RWMutex
	m  map[K]V
}

// NewMap creates an empty concurrent map.
func NewMap[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{m: make(map[K]V)}
}

// Get returns the value for key.
func (c *Map[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.m[key]
	return v, ok
}

// Set stores value under key.
func (c *Map[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = value
}

// Contains reports whether key is present.
func (c *Map[K, V]) Contains(key K) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.m[key]
	return ok
}

// Delete removes key and returns its previous value.
func (c *Map[K, V]) Delete(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.m[key]
	if ok {
		delete(c.m, key)
	}
	return v, ok
}

// DeleteValue removes key only if it is currently mapped to value.
// The reported bool is false when another value was stored meanwhile.
func (c *Map[K, V]) DeleteValue(key K, value V, equal func(a, b V) bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.m[key]
	if !ok || !equal(v, value) {
		return false
	}
	delete(c.m, key)
	return true
}

// ComputeIfAbsent returns the value for key, computing and storing it
// atomically when absent. compute runs at most once per winning call.
func (c *Map[K, V]) ComputeIfAbsent(key K, compute func(K) V) V {
	c.mu.RLock()
	v, ok := c.m[key]
	c.mu.RUnlock()
	if ok {
		return v
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.m[key]; ok {
		return v
	}
	v = compute(key)
	c.m[key] = v
	return v
}

// Range calls action for every entry of a snapshot taken at call time.
// action runs without any lock held, so it may mutate the map freely.
func (c *Map[K, V]) Range(action func(K, V)) {
	type entry struct {
		k K
		v V
	}
	c.mu.RLock()
	snapshot := make([]entry, 0, len(c.m))
	for k, v := range c.m {
		snapshot = append(snapshot, entry{k, v})
	}
	c.mu.RUnlock()

	for _, e := range snapshot {
		action(e.k, e.v)
	}
}

// Clear removes every entry.
func (c *Map[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.m)
}

// Len returns the number of entries.
func (c *Map[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}
