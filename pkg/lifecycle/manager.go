package lifecycle

import (
	"go.uber.org/zap"
)

// Manager is a Component owning an ordered list of child Components.
// Children load in registration order and unload/save in reverse order.
// The child list is structurally frozen once the manager is loaded.
//
// A manager with nil hooks runs the plain cascade. Managers with their
// own state pass hooks and call LoadChildren/UnloadChildren/SaveChildren
// at the point in their lifecycle where the cascade belongs.
type Manager[T any] struct {
	*Base[T]
	children []Component
}

// NewManager creates a manager. With nil hooks the manager loads its
// children in order on load and unloads/saves them in reverse order.
func NewManager[T any](name string, log *zap.Logger, getter Getter[T], hooks Hooks) *Manager[T] {
	m := &Manager[T]{}
	if hooks == nil {
		hooks = (*cascadeHooks[T])(m)
	}
	m.Base = NewBase(name, log, getter, hooks)
	return m
}

// Unload cascades into children even when the manager itself never
// finished loading, so an aborted load cascade can be cleaned up through
// the root. Children that never loaded no-op individually.
func (m *Manager[T]) Unload() {
	if !m.Loaded() {
		m.UnloadChildren()
		return
	}
	m.Base.Unload()
}

// Append registers a child. Only legal before the manager is loaded.
func (m *Manager[T]) Append(child Component) {
	m.MustUnloaded()
	m.children = append(m.children, child)
}

// Children returns the registered children in registration order.
func (m *Manager[T]) Children() []Component { return m.children }

// ChildName derives a child's hierarchical name from this manager's.
func (m *Manager[T]) ChildName(name string) string { return m.Name() + "-" + name }

// ChildLog derives a child's named logger from this manager's.
func (m *Manager[T]) ChildLog(name string) *zap.Logger { return m.Log().Named(name) }

// LoadChildren loads every child in registration order. The first
// failure aborts the cascade and propagates; the caller of the root Load
// is responsible for unloading whatever partially loaded.
func (m *Manager[T]) LoadChildren() error {
	for _, child := range m.children {
		if err := child.Load(); err != nil {
			return err
		}
	}
	return nil
}

// UnloadChildren unloads every child in reverse registration order.
func (m *Manager[T]) UnloadChildren() {
	for i := len(m.children) - 1; i >= 0; i-- {
		m.children[i].Unload()
	}
}

// SaveChildren saves every child in reverse registration order.
func (m *Manager[T]) SaveChildren() {
	for i := len(m.children) - 1; i >= 0; i-- {
		m.children[i].SaveToDisk()
	}
}

// cascadeHooks is the default manager behavior: nothing but the cascade.
type cascadeHooks[T any] Manager[T]

func (h *cascadeHooks[T]) OnLoad() error { return (*Manager[T])(h).LoadChildren() }
func (h *cascadeHooks[T]) OnUnload()     { (*Manager[T])(h).UnloadChildren() }
func (h *cascadeHooks[T]) OnSave()       { (*Manager[T])(h).SaveChildren() }
