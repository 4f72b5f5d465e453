package server

import (
	"path/filepath"

	"go.uber.org/zap"

	"github.com/stonewarden/stonewarden/pkg/auditlog"
	"github.com/stonewarden/stonewarden/pkg/economy"
	"github.com/stonewarden/stonewarden/pkg/events"
	"github.com/stonewarden/stonewarden/pkg/feature"
	"github.com/stonewarden/stonewarden/pkg/feature/chestshop"
	"github.com/stonewarden/stonewarden/pkg/feature/property"
	"github.com/stonewarden/stonewarden/pkg/feature/social"
	"github.com/stonewarden/stonewarden/pkg/lifecycle"
	"github.com/stonewarden/stonewarden/pkg/playerdata"
	"github.com/stonewarden/stonewarden/pkg/store"
	"github.com/stonewarden/stonewarden/pkg/yamlconf"
)

// Runtime is the root of the component tree. Construction builds the
// whole graph up front without touching disk; Load then cascades
// through config, stores, player data, the transaction archive, and
// finally the features. Unload and SaveToDisk cascade in reverse.
type Runtime struct {
	*lifecycle.Manager[struct{}]

	bus      *events.Bus
	conf     *yamlconf.Manager
	stores   *store.Manager
	players  *playerdata.Manager
	archive  *auditlog.Archive
	features *feature.Manager

	economy   *economy.Economy
	property  *property.Feature
	chestshop *chestshop.Feature
	social    *social.Feature
}

// NewRuntime builds the component tree for the given host config.
// metrics may be nil, e.g. in tests.
func NewRuntime(log *zap.Logger, cfg HostConfig, metrics *Metrics) *Runtime {
	rt := &Runtime{bus: events.NewBus()}
	rt.Manager = lifecycle.NewManager[struct{}]("runtime", log.Named("runtime"), nil, nil)

	rt.conf = yamlconf.NewManager(log, func() (yamlconf.Document, error) {
		return yamlconf.OpenFile(cfg.GameConfig)
	})
	rt.stores = store.NewManager(log, func() (string, error) {
		return cfg.DataDir, nil
	})
	rt.players = playerdata.NewManager(log, rt.stores)
	rt.archive = auditlog.New(log, func() (string, error) {
		return filepath.Join(cfg.DataDir, "transactions.db"), nil
	})
	rt.features = feature.NewManager(log, rt.bus)

	opts := economy.Options{Audit: auditlog.NewTransactionSink(rt.archive)}
	if metrics != nil {
		opts.Metrics = metrics
		metrics.Observe(rt)
	}
	rt.economy = feature.Register(rt.features,
		economy.New(log, rt.stores, rt.players, rt.conf, opts))
	rt.property = feature.Register(rt.features,
		property.New(log, rt.features, rt.stores, rt.conf))
	rt.chestshop = feature.Register(rt.features,
		chestshop.New(log, rt.features, rt.stores))
	rt.social = feature.Register(rt.features,
		social.New(log, rt.features, rt.players))

	rt.Append(rt.conf)
	rt.Append(rt.stores)
	rt.Append(rt.players)
	rt.Append(rt.archive)
	rt.Append(rt.features)
	return rt
}

// Reload saves and unloads the whole tree, then loads it again. On a
// failed load the tree is left fully unloaded.
func (rt *Runtime) Reload() error {
	rt.Unload()
	if err := rt.Load(); err != nil {
		rt.Unload()
		return err
	}
	return nil
}

// Bus returns the world-event bus the host adapter emits into.
func (rt *Runtime) Bus() *events.Bus { return rt.bus }

// Conf returns the game-config manager.
func (rt *Runtime) Conf() *yamlconf.Manager { return rt.conf }

// Stores returns the persistent-store manager.
func (rt *Runtime) Stores() *store.Manager { return rt.stores }

// Players returns the player-data manager.
func (rt *Runtime) Players() *playerdata.Manager { return rt.players }

// Archive returns the transaction archive.
func (rt *Runtime) Archive() *auditlog.Archive { return rt.archive }

// Features returns the feature manager.
func (rt *Runtime) Features() *feature.Manager { return rt.features }

// Economy returns the transaction engine.
func (rt *Runtime) Economy() *economy.Economy { return rt.economy }

// Property returns the land-claim feature.
func (rt *Runtime) Property() *property.Feature { return rt.property }

// ChestShop returns the chest-shop feature.
func (rt *Runtime) ChestShop() *chestshop.Feature { return rt.chestshop }

// Social returns the social feature.
func (rt *Runtime) Social() *social.Feature { return rt.social }
