package yamlconf

import (
	"sync"

	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/stonewarden/stonewarden/pkg/lifecycle"
)

// Wrapper caches the value at one dotted path of the manager's document.
// Get returns false while the path is absent (or was Unset); the cached
// value is written back to the document at save/unload.
type Wrapper[T any] struct {
	*lifecycle.Base[struct{}]

	mgr    *Manager
	path   string
	decode func(any) (T, error)

	mu      sync.RWMutex
	cached  T
	present bool
}

// NewWrapper registers a wrapper for path with the manager. decode turns
// the document's raw node into T. Only legal before the manager loads.
func NewWrapper[T any](m *Manager, path string, decode func(any) (T, error)) *Wrapper[T] {
	w := &Wrapper[T]{mgr: m, path: path, decode: decode}
	w.Base = lifecycle.NewBase[struct{}](m.ChildName(path), m.ChildLog(path), nil, (*wrapperHooks[T])(w))
	m.Append(w)
	return w
}

// Get returns the cached value, or false when the path held nothing.
func (w *Wrapper[T]) Get() (T, bool) {
	w.MustLoaded()
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.cached, w.present
}

// GetOr returns the cached value or def when the path held nothing.
func (w *Wrapper[T]) GetOr(def T) T {
	if v, ok := w.Get(); ok {
		return v
	}
	return def
}

// Set replaces the cached value.
func (w *Wrapper[T]) Set(value T) {
	w.MustLoaded()
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cached = value
	w.present = true
}

// Unset clears the cached value; the next save removes the path from the
// document.
func (w *Wrapper[T]) Unset() {
	w.MustLoaded()
	w.mu.Lock()
	defer w.mu.Unlock()
	var zero T
	w.cached = zero
	w.present = false
}

// Safe returns a never-absent facade over this wrapper: an absent read
// persists and returns def. Created before load like any registration.
func (w *Wrapper[T]) Safe(def T) *Safe[T] {
	w.MustUnloaded()
	return &Safe[T]{wrapped: w, def: def}
}

type wrapperHooks[T any] Wrapper[T]

// OnLoad caches the document value at the wrapper's path. A value that
// fails decoding is treated as absent and logged; the document keeps the
// raw node until the next write-back.
func (h *wrapperHooks[T]) OnLoad() error {
	w := (*Wrapper[T])(h)
	w.mu.Lock()
	defer w.mu.Unlock()

	var zero T
	w.cached, w.present = zero, false

	raw, ok := w.mgr.Dep().Get(w.path)
	if !ok {
		return nil
	}
	value, err := w.decode(raw)
	if err != nil {
		w.Log().Warn("ignoring unconvertible config value",
			zap.String("path", w.path), zap.Any("raw", raw), zap.Error(err))
		return nil
	}
	w.cached, w.present = value, true
	return nil
}

func (h *wrapperHooks[T]) OnUnload() {
	h.OnSave()
	w := (*Wrapper[T])(h)
	w.mu.Lock()
	defer w.mu.Unlock()
	var zero T
	w.cached, w.present = zero, false
}

func (h *wrapperHooks[T]) OnSave() {
	w := (*Wrapper[T])(h)
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.present {
		w.mgr.Dep().Set(w.path, w.cached)
	} else {
		w.mgr.Dep().Set(w.path, nil)
	}
}

// Safe is the never-absent variant of Wrapper: the default is written
// back on the first absent read, so the configuration file ends up
// documenting its own effective values.
type Safe[T any] struct {
	wrapped *Wrapper[T]
	def     T
}

// Get returns the cached value, persisting and returning the default
// when absent.
func (s *Safe[T]) Get() T {
	if v, ok := s.wrapped.Get(); ok {
		return v
	}
	s.wrapped.Set(s.def)
	return s.def
}

// Set replaces the cached value.
func (s *Safe[T]) Set(value T) {
	s.wrapped.Set(value)
}

// Int registers an int wrapper at path.
func Int(m *Manager, path string) *Wrapper[int] {
	return NewWrapper(m, path, cast.ToIntE)
}

// Int64 registers an int64 wrapper at path.
func Int64(m *Manager, path string) *Wrapper[int64] {
	return NewWrapper(m, path, cast.ToInt64E)
}

// String registers a string wrapper at path.
func String(m *Manager, path string) *Wrapper[string] {
	return NewWrapper(m, path, cast.ToStringE)
}

// Bool registers a bool wrapper at path.
func Bool(m *Manager, path string) *Wrapper[bool] {
	return NewWrapper(m, path, cast.ToBoolE)
}

// StringList registers a string-slice wrapper at path.
func StringList(m *Manager, path string) *Wrapper[[]string] {
	return NewWrapper(m, path, cast.ToStringSliceE)
}
