package playerdata

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stonewarden/stonewarden/pkg/lifecycle"
	"github.com/stonewarden/stonewarden/pkg/store"
)

// View exposes one named attribute across all players as a typed map.
// Values convert through the attribute's flat string form, so every View
// shares the per-player record without caring about its neighbors.
type View[T any] struct {
	*lifecycle.Base[struct{}]

	mgr  *Manager
	key  string
	conv store.Converter[T]

	cache *store.Map[uuid.UUID, T]
}

// NewView registers a View for the attribute key with the manager. The
// key must be globally unique; registering it twice is a programming
// error and panics. Only legal before the manager loads.
func NewView[T any](m *Manager, key string, conv store.Converter[T]) *View[T] {
	if _, dup := m.keys[key]; dup {
		panic(fmt.Sprintf("playerdata: view %q already registered", key))
	}
	m.keys[key] = struct{}{}

	v := &View[T]{
		mgr:   m,
		key:   key,
		conv:  conv,
		cache: store.NewMap[uuid.UUID, T](),
	}
	v.Base = lifecycle.NewBase[struct{}](m.ChildName(key), m.ChildLog(key), nil, (*viewHooks[T])(v))
	m.Append(v)
	return v
}

// Key returns the attribute key this View is bound to.
func (v *View[T]) Key() string { return v.key }

// Get returns the cached value for player id.
func (v *View[T]) Get(id uuid.UUID) (T, bool) {
	v.MustLoaded()
	return v.cache.Get(id)
}

// Set stores value for player id.
func (v *View[T]) Set(id uuid.UUID, value T) {
	v.MustLoaded()
	v.cache.Set(id, value)
}

// Remove deletes the cached value for player id and returns it.
func (v *View[T]) Remove(id uuid.UUID) (T, bool) {
	v.MustLoaded()
	return v.cache.Delete(id)
}

// ComputeIfAbsent returns the value for player id, computing and caching
// it when absent.
func (v *View[T]) ComputeIfAbsent(id uuid.UUID, compute func(uuid.UUID) T) T {
	v.MustLoaded()
	return v.cache.ComputeIfAbsent(id, compute)
}

// ForEach runs action for every cached player value over a weakly
// consistent snapshot.
func (v *View[T]) ForEach(action func(uuid.UUID, T)) {
	v.MustLoaded()
	v.cache.Range(action)
}

// Clear drops every cached value. Combined with a save this deletes the
// attribute for all players; without it the raw records keep their
// previous values until the next write-back.
func (v *View[T]) Clear() {
	v.cache.Clear()
}

type viewHooks[T any] View[T]

// OnLoad scans every player record and converts the value at this View's
// key when present. A value that fails conversion is skipped but left in
// the raw record, so a later load with a compatible converter can still
// recover it.
func (h *viewHooks[T]) OnLoad() error {
	v := (*View[T])(h)
	v.cache.Clear()
	v.mgr.ForEachPlayer(func(id uuid.UUID, rec map[string]string) {
		raw, ok := rec[v.key]
		if !ok {
			return
		}
		value, err := v.conv.FromString(raw)
		if err != nil {
			v.Log().Warn("skipping unconvertible attribute",
				zap.Stringer("player", id), zap.String("raw", raw), zap.Error(err))
			return
		}
		v.cache.Set(id, value)
	})
	return nil
}

func (h *viewHooks[T]) OnUnload() {
	h.OnSave()
	(*View[T])(h).cache.Clear()
}

// OnSave writes every cached value back into the owning player's raw
// record. Keys absent from the cache are not deleted here; the manager
// clears records before the write-back pass.
func (h *viewHooks[T]) OnSave() {
	v := (*View[T])(h)
	v.cache.Range(func(id uuid.UUID, value T) {
		raw, err := v.conv.ToString(value)
		if err != nil {
			v.Log().Warn("failed to encode attribute", zap.Stringer("player", id), zap.Error(err))
			return
		}
		v.mgr.Player(id)[v.key] = raw
	})
}
