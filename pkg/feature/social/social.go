// Package social implements the chat-adjacent extras: the /reply target
// cache for private messages and the tablist attributes (clan tag,
// death counter) shown next to player names.
package social

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stonewarden/stonewarden/pkg/events"
	"github.com/stonewarden/stonewarden/pkg/feature"
	"github.com/stonewarden/stonewarden/pkg/lifecycle"
	"github.com/stonewarden/stonewarden/pkg/playerdata"
	"github.com/stonewarden/stonewarden/pkg/store"
)

// Feature holds the reply cache and the tablist attribute views.
//
// The reply cache is owned by the feature, not process-global: it
// starts empty on every load and is dropped on unload, so a reload can
// never route a reply at a stale session.
type Feature struct {
	*lifecycle.Base[struct{}]

	bus     *events.Bus
	replies *store.Map[uuid.UUID, uuid.UUID]

	clanTag *playerdata.View[string]
	deaths  *playerdata.View[int]
}

// New creates the social feature and registers its player-attribute
// views.
func New(log *zap.Logger, m *feature.Manager, players *playerdata.Manager) *Feature {
	f := &Feature{
		bus:     m.Bus(),
		replies: store.NewMap[uuid.UUID, uuid.UUID](),
		clanTag: playerdata.NewView(players, "social.clan-tag", store.Text()),
		deaths:  playerdata.NewView(players, "social.deaths", store.Int()),
	}
	f.Base = lifecycle.NewBase[struct{}]("social", log.Named("social"), nil, (*featureHooks)(f))
	return f
}

// RecordMessage notes a private message from one player to another.
// Both sides get the other as their reply target, so /reply works for
// whoever speaks next.
func (f *Feature) RecordMessage(from, to uuid.UUID) {
	f.MustLoaded()
	f.replies.Set(from, to)
	f.replies.Set(to, from)
}

// ReplyTarget returns who a /reply from player would go to.
func (f *Feature) ReplyTarget(player uuid.UUID) (uuid.UUID, bool) {
	f.MustLoaded()
	return f.replies.Get(player)
}

// Forget drops every reply-cache entry involving player. Called when
// the player disconnects so nobody keeps replying into the void.
func (f *Feature) Forget(player uuid.UUID) {
	f.MustLoaded()
	f.replies.Delete(player)
	f.replies.Range(func(from, to uuid.UUID) {
		if to == player {
			f.replies.DeleteValue(from, to, func(a, b uuid.UUID) bool { return a == b })
		}
	})
}

// ClanTag returns player's tablist clan tag.
func (f *Feature) ClanTag(player uuid.UUID) (string, bool) {
	return f.clanTag.Get(player)
}

// SetClanTag sets player's tablist clan tag. An empty tag removes it.
func (f *Feature) SetClanTag(player uuid.UUID, tag string) {
	if tag == "" {
		f.clanTag.Remove(player)
		return
	}
	f.clanTag.Set(player, tag)
}

// Deaths returns player's death count.
func (f *Feature) Deaths(player uuid.UUID) int {
	n, _ := f.deaths.Get(player)
	return n
}

// RecordDeath increments player's death count and returns the new
// total.
func (f *Feature) RecordDeath(player uuid.UUID) int {
	n, _ := f.deaths.Get(player)
	n++
	f.deaths.Set(player, n)
	return n
}

// Receive implements events.Subscriber.
func (f *Feature) Receive(ev events.Event) {
	switch ev.Type {
	case events.EvPlayerMessage:
		f.RecordMessage(ev.Player, ev.Target)
	case events.EvPlayerQuit:
		f.Forget(ev.Player)
	}
}

// Closed implements events.Subscriber.
func (f *Feature) Closed() bool { return !f.Loaded() }

type featureHooks Feature

func (h *featureHooks) OnLoad() error {
	f := (*Feature)(h)
	f.replies.Clear()
	f.bus.SubscribeGlobal(f)
	return nil
}

func (h *featureHooks) OnUnload() {
	f := (*Feature)(h)
	f.bus.UnsubscribeGlobal(f)
	f.replies.Clear()
}

func (h *featureHooks) OnSave() {}
