package yamlconf

import (
	"go.uber.org/zap"

	"github.com/stonewarden/stonewarden/pkg/lifecycle"
)

// Manager owns every registered config wrapper. Its dependency is the
// live configuration document supplied by the host.
type Manager struct {
	*lifecycle.Manager[Document]
}

// NewManager creates the config manager. doc resolves the host's
// configuration document at load time.
func NewManager(log *zap.Logger, doc lifecycle.Getter[Document]) *Manager {
	m := &Manager{}
	m.Manager = lifecycle.NewManager("yaml", log.Named("yaml"), doc, (*managerHooks)(m))
	return m
}

type managerHooks Manager

func (h *managerHooks) OnLoad() error {
	return (*Manager)(h).LoadChildren()
}

func (h *managerHooks) OnUnload() {
	m := (*Manager)(h)
	m.UnloadChildren()
	m.saveDocument()
}

func (h *managerHooks) OnSave() {
	m := (*Manager)(h)
	m.SaveChildren()
	m.saveDocument()
}

// saveDocument persists the document after the wrappers wrote back, when
// the host's document supports it. Best effort like every save path.
func (m *Manager) saveDocument() {
	if saver, ok := m.Dep().(Saver); ok {
		if err := saver.Save(); err != nil {
			m.Log().Error("failed to save config document", zap.Error(err))
		}
	}
}
