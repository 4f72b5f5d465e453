// Package feature hosts the gameplay features built on top of the
// runtime substrate. Features are lifecycle components owned by the
// feature manager and looked up through a typed registry.
package feature

import (
	"fmt"
	"reflect"

	"go.uber.org/zap"

	"github.com/stonewarden/stonewarden/pkg/events"
	"github.com/stonewarden/stonewarden/pkg/lifecycle"
)

// Feature is a gameplay unit with the standard component lifecycle.
type Feature interface {
	lifecycle.Component
}

// Manager owns every feature and the registry features resolve each
// other through. Lookup is a typed map access keyed on the feature's
// concrete type; features register at construction, before any load.
type Manager struct {
	*lifecycle.Manager[struct{}]

	bus      *events.Bus
	registry map[reflect.Type]Feature
}

// NewManager creates the feature manager around the world-event bus.
func NewManager(log *zap.Logger, bus *events.Bus) *Manager {
	m := &Manager{bus: bus, registry: make(map[reflect.Type]Feature)}
	m.Manager = lifecycle.NewManager[struct{}]("feature", log.Named("feature"), nil, nil)
	return m
}

// Bus returns the world-event bus features subscribe to.
func (m *Manager) Bus() *events.Bus { return m.bus }

// Register appends f to the manager and records it in the registry
// under its concrete type. Registering the same feature type twice is a
// programming error and panics.
func Register[F Feature](m *Manager, f F) F {
	t := reflect.TypeFor[F]()
	if _, dup := m.registry[t]; dup {
		panic(fmt.Sprintf("feature: %s already registered", t))
	}
	m.registry[t] = f
	m.Append(f)
	return f
}

// Lookup returns the registered feature of type F. Features use it in
// their dependency getters, which run at load time when the whole graph
// already exists.
func Lookup[F Feature](m *Manager) (F, error) {
	f, ok := m.registry[reflect.TypeFor[F]()]
	if !ok {
		var zero F
		return zero, fmt.Errorf("feature: %s not registered", reflect.TypeFor[F]())
	}
	return f.(F), nil
}
