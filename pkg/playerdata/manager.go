// Package playerdata attaches typed, named attributes to players without
// one store per attribute. All attributes of one player share a single
// record in the "players" store; each feature sees only its own attribute
// through a converter-backed View.
package playerdata

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stonewarden/stonewarden/pkg/lifecycle"
	"github.com/stonewarden/stonewarden/pkg/store"
)

// Manager owns the shared per-player store and every registered View.
type Manager struct {
	*lifecycle.Manager[struct{}]

	players *store.Store[uuid.UUID, map[string]string]
	keys    map[string]struct{}
}

// NewManager creates the player-data manager on top of a store registered
// with stores. The raw record layout is player id -> attribute name ->
// string-encoded value.
func NewManager(log *zap.Logger, stores *store.Manager) *Manager {
	m := &Manager{keys: make(map[string]struct{})}
	m.players = store.New(stores, "players", store.UUID(), store.MapOf(store.Text(), store.Text()))
	m.Manager = lifecycle.NewManager[struct{}]("player", log.Named("player"), nil, (*managerHooks)(m))
	return m
}

// Player returns the raw attribute record for id, creating it if absent.
func (m *Manager) Player(id uuid.UUID) map[string]string {
	return m.players.ComputeIfAbsent(id, func(uuid.UUID) map[string]string {
		return make(map[string]string)
	})
}

// ForEachPlayer runs action over every raw attribute record.
func (m *Manager) ForEachPlayer(action func(uuid.UUID, map[string]string)) {
	m.players.ForEach(action)
}

type managerHooks Manager

func (h *managerHooks) OnLoad() error {
	return (*Manager)(h).LoadChildren()
}

// Views only write attributes they still cache, so the raw records are
// cleared first; otherwise attributes removed from a cache would
// resurrect from the previous save.
func (h *managerHooks) OnUnload() {
	m := (*Manager)(h)
	m.players.ForEach(func(_ uuid.UUID, rec map[string]string) { clear(rec) })
	m.UnloadChildren()
}

func (h *managerHooks) OnSave() {
	m := (*Manager)(h)
	m.players.ForEach(func(_ uuid.UUID, rec map[string]string) { clear(rec) })
	m.SaveChildren()
}
