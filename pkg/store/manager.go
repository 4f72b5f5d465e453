package store

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/stonewarden/stonewarden/pkg/lifecycle"
)

// Manager owns every registered store and cascades load/unload/save
// through them. Its dependency is the data directory stores place their
// backing files in.
type Manager struct {
	*lifecycle.Manager[string]
}

// NewManager creates the store manager. dir resolves the data directory;
// it is created on load if missing.
func NewManager(log *zap.Logger, dir lifecycle.Getter[string]) *Manager {
	m := &Manager{}
	m.Manager = lifecycle.NewManager("store", log.Named("store"), dir, (*managerHooks)(m))
	return m
}

type managerHooks Manager

func (h *managerHooks) OnLoad() error {
	m := (*Manager)(h)
	if err := os.MkdirAll(m.Dep(), 0o755); err != nil {
		return fmt.Errorf("store: create data directory %s: %w", m.Dep(), err)
	}
	return m.LoadChildren()
}

func (h *managerHooks) OnUnload() { (*Manager)(h).UnloadChildren() }
func (h *managerHooks) OnSave()   { (*Manager)(h).SaveChildren() }
