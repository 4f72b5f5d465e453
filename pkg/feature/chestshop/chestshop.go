// Package chestshop implements player-run shops: a sign advertising an
// item and price, backed by one or two chests. Clicking the sign trades
// through the economy against the shop owner.
package chestshop

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stonewarden/stonewarden/pkg/economy"
	"github.com/stonewarden/stonewarden/pkg/events"
	"github.com/stonewarden/stonewarden/pkg/feature"
	"github.com/stonewarden/stonewarden/pkg/feature/property"
	"github.com/stonewarden/stonewarden/pkg/lifecycle"
	"github.com/stonewarden/stonewarden/pkg/store"
	"github.com/stonewarden/stonewarden/pkg/world"
)

// Shop is one chest shop, keyed by its sign position.
type Shop struct {
	Sign  world.BlockPos  `json:"sign"`
	Owner uuid.UUID       `json:"owner"`
	Left  *world.BlockPos `json:"left-chest,omitempty"`
	Right *world.BlockPos `json:"right-chest,omitempty"`
	Item  string          `json:"item"`
	Count int             `json:"count"`
	Price int64           `json:"price"`
}

// ShopConverter round-trips shops.
func ShopConverter() store.Converter[*Shop] {
	return store.JSONOnly(
		func(raw json.RawMessage) (*Shop, error) {
			var s Shop
			if err := json.Unmarshal(raw, &s); err != nil {
				return nil, err
			}
			return &s, nil
		},
		func(s *Shop) (json.RawMessage, error) { return json.Marshal(s) },
	)
}

// Outcome classifies a shop interaction for the calling command layer.
type Outcome int

const (
	// Bought means the click bought the advertised items from the shop.
	Bought Outcome = iota
	// Sold means the click sold the advertised items to the shop.
	Sold
	// NoShop means there is no shop at the clicked sign.
	NoShop
	// OwnShop means players cannot trade with their own shop.
	OwnShop
	// NoFunds means the paying side could not cover the price.
	NoFunds
)

// deps are the chest shop's lazily resolved collaborators.
type deps struct {
	economy  *economy.Economy
	property *property.Feature
}

// Feature is the chest-shop feature.
//
// The shop cache is thread safe on its own, but creation and
// destruction must stay consistent with what the lookups observe (a
// shop must never be usable while half-removed, or claim a chest that a
// racing create also claims). All compound operations therefore run
// under one readers-writer lock: Create and Destroy take the write
// section, every query and use takes the read section.
type Feature struct {
	*lifecycle.Base[deps]

	bus   *events.Bus
	mu    sync.RWMutex
	shops *store.Store[world.BlockPos, *Shop]
}

// New creates the chest-shop feature and registers its store. Register
// it with the feature manager after the economy and property features.
func New(log *zap.Logger, m *feature.Manager, stores *store.Manager) *Feature {
	f := &Feature{
		bus:   m.Bus(),
		shops: store.New(stores, "chestshops", world.BlockPosConverter(), ShopConverter()),
	}
	f.Base = lifecycle.NewBase("chestshop", log.Named("chestshop"),
		func() (deps, error) {
			eco, err := feature.Lookup[*economy.Economy](m)
			if err != nil {
				return deps{}, err
			}
			prop, err := feature.Lookup[*property.Feature](m)
			if err != nil {
				return deps{}, err
			}
			return deps{economy: eco, property: prop}, nil
		},
		(*featureHooks)(f))
	return f
}

// Create registers a new shop. The owner must be allowed to build at
// the sign position, the sign must be free, and no chest may already
// belong to another shop. Write section.
func (f *Feature) Create(shop *Shop) error {
	f.MustLoaded()
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.Dep().property.CanBuild(shop.Owner, shop.Sign) {
		return fmt.Errorf("chestshop: %s may not build at %s", shop.Owner, shop.Sign)
	}
	if f.shops.Contains(shop.Sign) {
		return fmt.Errorf("chestshop: sign %s already has a shop", shop.Sign)
	}
	for _, chest := range []*world.BlockPos{shop.Left, shop.Right} {
		if chest != nil && f.usesChestLocked(*chest) {
			return fmt.Errorf("chestshop: chest %s already belongs to a shop", chest)
		}
	}

	f.shops.Set(shop.Sign, shop)
	return nil
}

// Destroy removes a shop. Write section. Removing a shop that was
// already replaced is logged, not fatal.
func (f *Feature) Destroy(shop *Shop) {
	f.MustLoaded()
	f.mu.Lock()
	defer f.mu.Unlock()

	removed := f.shops.Raw().DeleteValue(shop.Sign, shop, func(a, b *Shop) bool { return a == b })
	if !removed {
		f.Log().Error("shop was not removed cleanly", zap.Stringer("sign", shop.Sign))
	}
}

// ShopAt returns the shop registered at the sign position. Read section.
func (f *Feature) ShopAt(sign world.BlockPos) (*Shop, bool) {
	f.MustLoaded()
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.shops.Get(sign)
}

// UsesChest reports whether any shop is backed by the chest at pos.
// Read section.
func (f *Feature) UsesChest(pos world.BlockPos) bool {
	f.MustLoaded()
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.usesChestLocked(pos)
}

// HasShopInChunk reports whether any shop touches the chunk, signs and
// chests included. Property uses this to refuse unclaiming land with
// live shops on it. Read section.
func (f *Feature) HasShopInChunk(chunk world.ChunkPos) bool {
	f.MustLoaded()
	f.mu.RLock()
	defer f.mu.RUnlock()

	found := false
	f.shops.ForEach(func(_ world.BlockPos, s *Shop) {
		if s.Sign.Chunk() == chunk {
			found = true
		}
		for _, chest := range []*world.BlockPos{s.Left, s.Right} {
			if chest != nil && chest.Chunk() == chunk {
				found = true
			}
		}
	})
	return found
}

// Use handles a sign click: a left click sells the advertised items to
// the shop (owner pays player), a right click buys them from the shop
// (player pays owner). Read section; the balance mutation itself is the
// economy's business.
func (f *Feature) Use(player uuid.UUID, sign world.BlockPos, leftClick bool) Outcome {
	f.MustLoaded()
	f.mu.RLock()
	defer f.mu.RUnlock()

	shop, ok := f.shops.Get(sign)
	if !ok {
		return NoShop
	}
	if shop.Owner == player {
		return OwnShop
	}

	memo := fmt.Sprintf("chestshop: %dx %s at %s", shop.Count, shop.Item, shop.Sign)
	if leftClick {
		if !f.Dep().economy.ExecuteTransfer(shop.Owner, player, shop.Price, memo) {
			return NoFunds
		}
		return Sold
	}
	if !f.Dep().economy.ExecuteTransfer(player, shop.Owner, shop.Price, memo) {
		return NoFunds
	}
	return Bought
}

func (f *Feature) usesChestLocked(pos world.BlockPos) bool {
	used := false
	f.shops.ForEach(func(_ world.BlockPos, s *Shop) {
		if (s.Left != nil && *s.Left == pos) || (s.Right != nil && *s.Right == pos) {
			used = true
		}
	})
	return used
}

// Receive implements events.Subscriber: sign clicks trade, breaking a
// shop sign destroys the shop.
func (f *Feature) Receive(ev events.Event) {
	switch ev.Type {
	case events.EvSignClick:
		outcome := f.Use(ev.Player, ev.Pos, ev.LeftClick)
		f.Log().Debug("shop interaction",
			zap.Stringer("player", ev.Player), zap.Stringer("sign", ev.Pos), zap.Int("outcome", int(outcome)))
	case events.EvBlockBreak:
		if shop, ok := f.ShopAt(ev.Pos); ok && shop.Owner == ev.Player {
			f.Destroy(shop)
		}
	}
}

// Closed implements events.Subscriber.
func (f *Feature) Closed() bool { return !f.Loaded() }

type featureHooks Feature

func (h *featureHooks) OnLoad() error {
	f := (*Feature)(h)
	f.bus.SubscribeGlobal(f)
	return nil
}

func (h *featureHooks) OnUnload() {
	f := (*Feature)(h)
	f.bus.UnsubscribeGlobal(f)
}

func (h *featureHooks) OnSave() {}
