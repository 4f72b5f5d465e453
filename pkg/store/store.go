package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/stonewarden/stonewarden/pkg/lifecycle"
)

// Store is a cached, converter-backed persistent key/value map with one
// JSON backing file. The whole file is read into memory on load; writes
// are visible only in memory until SaveToDisk or Unload.
//
// All accessors require the store to be loaded and panic otherwise:
// touching an unloaded store is a programming error, not a runtime
// condition.
type Store[K comparable, V any] struct {
	*lifecycle.Base[string]

	keyConv Converter[K]
	valConv Converter[V]
	cache   *Map[K, V]
}

// New registers a store named name with the manager. The backing file is
// store-<name>.json inside the manager's data directory. Only legal
// before the manager loads.
func New[K comparable, V any](m *Manager, name string, keyConv Converter[K], valConv Converter[V]) *Store[K, V] {
	s := &Store[K, V]{
		keyConv: keyConv,
		valConv: valConv,
		cache:   NewMap[K, V](),
	}
	s.Base = lifecycle.NewBase(
		m.ChildName(name),
		m.ChildLog(name),
		func() (string, error) { return filepath.Join(m.Dep(), "store-"+name+".json"), nil },
		(*storeHooks[K, V])(s),
	)
	m.Append(s)
	return s
}

// Get returns the cached value for key.
func (s *Store[K, V]) Get(key K) (V, bool) {
	s.MustLoaded()
	return s.cache.Get(key)
}

// Set stores value under key in the cache.
func (s *Store[K, V]) Set(key K, value V) {
	s.MustLoaded()
	s.cache.Set(key, value)
}

// Contains reports whether a value is cached for key.
func (s *Store[K, V]) Contains(key K) bool {
	s.MustLoaded()
	return s.cache.Contains(key)
}

// Remove deletes the cached value for key and returns it.
func (s *Store[K, V]) Remove(key K) (V, bool) {
	s.MustLoaded()
	return s.cache.Delete(key)
}

// ComputeIfAbsent returns the value for key, computing and caching it
// when absent.
func (s *Store[K, V]) ComputeIfAbsent(key K, compute func(K) V) V {
	s.MustLoaded()
	return s.cache.ComputeIfAbsent(key, compute)
}

// ForEach runs action for every cached entry over a weakly consistent
// snapshot.
func (s *Store[K, V]) ForEach(action func(K, V)) {
	s.MustLoaded()
	s.cache.Range(action)
}

// Clear empties the cache without touching the backing file.
func (s *Store[K, V]) Clear() {
	s.MustLoaded()
	s.cache.Clear()
}

// Len returns the number of cached entries.
func (s *Store[K, V]) Len() int {
	s.MustLoaded()
	return s.cache.Len()
}

// Raw exposes the underlying concurrent map for bulk operations.
func (s *Store[K, V]) Raw() *Map[K, V] {
	s.MustLoaded()
	return s.cache
}

// storeHooks adapts persistence onto the lifecycle hook points.
type storeHooks[K comparable, V any] Store[K, V]

func (h *storeHooks[K, V]) OnLoad() error {
	s := (*Store[K, V])(h)
	s.cache.Clear()
	return s.loadFile(s.Dep())
}

func (h *storeHooks[K, V]) OnUnload() {
	s := (*Store[K, V])(h)
	s.saveFile(s.Dep())
	s.cache.Clear()
}

func (h *storeHooks[K, V]) OnSave() {
	s := (*Store[K, V])(h)
	s.saveFile(s.Dep())
}

// loadFile reads the backing file into the cache. A missing file is an
// empty store. A file-level JSON error is fatal; a single entry that
// fails conversion is logged and skipped so one corrupt record cannot
// take down the rest of the store.
func (s *Store[K, V]) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("store: read %s: %w", path, err)
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		s.cache.Clear()
		return fmt.Errorf("store: parse %s: %w", path, err)
	}

	for name, raw := range entries {
		key, err := s.keyConv.FromString(name)
		if err != nil {
			s.Log().Warn("skipping entry with bad key", zap.String("key", name), zap.Error(err))
			continue
		}
		value, err := s.valConv.FromJSON(raw)
		if err != nil {
			s.Log().Warn("skipping entry with bad value", zap.String("key", name), zap.Error(err))
			continue
		}
		s.cache.Set(key, value)
	}

	s.Log().Info("read from file", zap.String("file", path), zap.Int("entries", s.cache.Len()))
	return nil
}

// saveFile writes every cached entry back to the backing file,
// overwriting it. Failures are logged and swallowed; a live server is
// not worth crashing over a failed disk write, and the in-memory state
// stays authoritative until the next successful save.
func (s *Store[K, V]) saveFile(path string) {
	entries := make(map[string]json.RawMessage, s.cache.Len())
	s.cache.Range(func(key K, value V) {
		name, err := s.keyConv.ToString(key)
		if err != nil {
			s.Log().Warn("failed to encode key", zap.Any("key", key), zap.Error(err))
			return
		}
		raw, err := s.valConv.ToJSON(value)
		if err != nil {
			s.Log().Warn("failed to encode value", zap.String("key", name), zap.Error(err))
			return
		}
		entries[name] = raw
	})

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		s.Log().Error("failed to serialize store", zap.String("file", path), zap.Error(err))
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		s.Log().Error("failed to create data directory", zap.String("file", path), zap.Error(err))
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.Log().Error("failed to save store", zap.String("file", path), zap.Error(err))
		return
	}
	s.Log().Info("saved to file", zap.String("file", path), zap.Int("entries", len(entries)))
}
