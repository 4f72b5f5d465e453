// Package lifecycle provides the load/unload component tree the runtime is
// built from. Every subsystem (stores, views, config wrappers, features) is
// a Component; managers own ordered child lists and cascade lifecycle
// transitions through them.
package lifecycle

import (
	"fmt"

	"go.uber.org/zap"
)

// Component is a unit with an explicit load/unload lifecycle.
type Component interface {
	// Name returns the hierarchical name of this component.
	Name() string

	// Loaded reports whether the component is currently loaded.
	Loaded() bool

	// Load transitions the component to loaded. It fails if the component
	// is already loaded or its dependency cannot be resolved. A failed
	// Load leaves the component unloaded.
	Load() error

	// Unload transitions the component to unloaded. It is safe to call in
	// any state, including on a component that never loaded, and never
	// fails; callers rely on it for best-effort cleanup after an aborted
	// load cascade.
	Unload()

	// SaveToDisk flushes in-memory state to backing storage without
	// changing lifecycle state. A no-op when not loaded.
	SaveToDisk()
}

// Hooks are the lifecycle callbacks a concrete component supplies.
type Hooks interface {
	// OnLoad runs after the dependency is resolved; an error aborts the load.
	OnLoad() error

	// OnUnload runs before the dependency is cleared. Must not fail.
	OnUnload()

	// OnSave flushes state to disk. Best effort: log failures, keep running.
	OnSave()
}

// NopHooks implements Hooks with no behavior, for embedding.
type NopHooks struct{}

func (NopHooks) OnLoad() error { return nil }
func (NopHooks) OnUnload()     {}
func (NopHooks) OnSave()       {}

// Getter lazily resolves a component's dependency. It runs exactly once
// per load, after the whole component graph has been constructed, so it
// may read state published by siblings or ancestors that loaded earlier.
type Getter[T any] func() (T, error)

// Base is the shared implementation of Component. Concrete components
// embed *Base and pass themselves as Hooks.
type Base[T any] struct {
	name   string
	log    *zap.Logger
	getter Getter[T]
	hooks  Hooks

	dep      T
	resolved bool
	loaded   bool
}

// NewBase creates a component base. getter may be nil for components
// without a dependency; hooks may be nil for components without custom
// lifecycle behavior.
func NewBase[T any](name string, log *zap.Logger, getter Getter[T], hooks Hooks) *Base[T] {
	if hooks == nil {
		hooks = NopHooks{}
	}
	return &Base[T]{name: name, log: log, getter: getter, hooks: hooks}
}

// Name returns the hierarchical component name.
func (b *Base[T]) Name() string { return b.name }

// Log returns the component's named logger.
func (b *Base[T]) Log() *zap.Logger { return b.log }

// Loaded reports whether the component is loaded.
func (b *Base[T]) Loaded() bool { return b.loaded }

// Dep returns the resolved dependency. Calling Dep on a component whose
// dependency has not been resolved is a programming error and panics.
func (b *Base[T]) Dep() T {
	if !b.resolved {
		panic(fmt.Sprintf("lifecycle: %s: dependency not resolved", b.name))
	}
	return b.dep
}

// MustLoaded panics unless the component is loaded. Operations that
// require loaded state call this first.
func (b *Base[T]) MustLoaded() {
	if !b.loaded {
		panic(fmt.Sprintf("lifecycle: %s: not loaded", b.name))
	}
}

// MustUnloaded panics if the component is loaded. Registration-style
// operations that are only legal before the first load call this first.
func (b *Base[T]) MustUnloaded() {
	if b.loaded {
		panic(fmt.Sprintf("lifecycle: %s: already loaded", b.name))
	}
}

// Load implements Component.
func (b *Base[T]) Load() error {
	if b.loaded {
		return fmt.Errorf("lifecycle: %s: already loaded", b.name)
	}

	b.log.Debug("loading")
	if b.getter != nil {
		dep, err := b.getter()
		if err != nil {
			b.log.Error("failed to resolve dependency", zap.Error(err))
			return fmt.Errorf("lifecycle: %s: resolve dependency: %w", b.name, err)
		}
		b.dep = dep
		b.resolved = true
	}

	if err := b.hooks.OnLoad(); err != nil {
		b.clearDep()
		b.log.Error("failed to load", zap.Error(err))
		return fmt.Errorf("lifecycle: %s: load: %w", b.name, err)
	}

	b.loaded = true
	b.log.Debug("loaded")
	return nil
}

// Unload implements Component.
func (b *Base[T]) Unload() {
	if !b.loaded {
		return
	}

	b.log.Debug("unloading")
	b.hooks.OnUnload()
	b.clearDep()
	b.loaded = false
	b.log.Debug("unloaded")
}

// SaveToDisk implements Component.
func (b *Base[T]) SaveToDisk() {
	if !b.loaded {
		return
	}
	b.hooks.OnSave()
}

func (b *Base[T]) clearDep() {
	var zero T
	b.dep = zero
	b.resolved = false
}
