// Package property implements land ownership: players claim whole
// chunks, paying through the economy, and only the owner may build
// inside a claimed chunk.
package property

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stonewarden/stonewarden/pkg/economy"
	"github.com/stonewarden/stonewarden/pkg/feature"
	"github.com/stonewarden/stonewarden/pkg/lifecycle"
	"github.com/stonewarden/stonewarden/pkg/store"
	"github.com/stonewarden/stonewarden/pkg/world"
	"github.com/stonewarden/stonewarden/pkg/yamlconf"
)

// Claim records one owned chunk.
type Claim struct {
	Owner uuid.UUID `json:"owner"`
	Since time.Time `json:"since"`
}

// ClaimConverter round-trips claims.
func ClaimConverter() store.Converter[*Claim] {
	return store.JSONOnly(
		func(raw json.RawMessage) (*Claim, error) {
			var c Claim
			if err := json.Unmarshal(raw, &c); err != nil {
				return nil, err
			}
			return &c, nil
		},
		func(c *Claim) (json.RawMessage, error) { return json.Marshal(c) },
	)
}

// Result is the expected-outcome classification of a claim operation.
// Only programming errors surface as panics; all of these are normal
// answers feature commands translate into player messages.
type Result int

const (
	// OK means the operation committed.
	OK Result = iota
	// Taken means the chunk is already claimed by someone else.
	Taken
	// AlreadyOwned means the player already owns the chunk.
	AlreadyOwned
	// Limit means the player reached the configured claim limit.
	Limit
	// NoFunds means the economy refused the payment.
	NoFunds
	// NotOwner means the player does not own the chunk.
	NotOwner
	// Unclaimed means the chunk has no claim.
	Unclaimed
)

// Feature is the land-claim feature. Its dependency is the economy,
// resolved from the feature registry at load time.
type Feature struct {
	*lifecycle.Base[*economy.Economy]

	claims *store.Store[world.ChunkPos, *Claim]
	cost   *yamlconf.Safe[int64]
	limit  *yamlconf.Safe[int]
}

// New creates the property feature and registers its store and config
// wrappers. Register it with the feature manager after the economy.
func New(log *zap.Logger, m *feature.Manager, stores *store.Manager, conf *yamlconf.Manager) *Feature {
	f := &Feature{
		claims: store.New(stores, "claims", world.ChunkPosConverter(), ClaimConverter()),
		cost:   yamlconf.Int64(conf, "property.claim-cost").Safe(50),
		limit:  yamlconf.Int(conf, "property.claim-limit").Safe(16),
	}
	f.Base = lifecycle.NewBase("property", log.Named("property"),
		func() (*economy.Economy, error) { return feature.Lookup[*economy.Economy](m) },
		nil)
	return f
}

// Claim claims chunk for player, charging the configured cost. The
// chunk is reserved before payment and released again when the payment
// fails, so two racing claimants cannot both hold it.
func (f *Feature) Claim(player uuid.UUID, chunk world.ChunkPos) Result {
	f.MustLoaded()

	if f.ClaimCount(player) >= f.limit.Get() {
		return Limit
	}

	inserted := false
	existing := f.claims.ComputeIfAbsent(chunk, func(world.ChunkPos) *Claim {
		inserted = true
		return &Claim{Owner: player, Since: time.Now().UTC()}
	})
	if !inserted {
		if existing.Owner == player {
			return AlreadyOwned
		}
		return Taken
	}

	if !f.Dep().Execute(player, -f.cost.Get(), "property: claim "+chunk.String()) {
		f.claims.Remove(chunk)
		return NoFunds
	}
	return OK
}

// Unclaim releases player's claim on chunk and refunds the claim cost
// with a fresh inverse transaction; the original payment record is
// never touched.
func (f *Feature) Unclaim(player uuid.UUID, chunk world.ChunkPos) Result {
	f.MustLoaded()

	claim, ok := f.claims.Get(chunk)
	if !ok {
		return Unclaimed
	}
	if claim.Owner != player {
		return NotOwner
	}

	if _, removed := f.claims.Remove(chunk); !removed {
		return Unclaimed
	}
	f.Dep().Execute(player, f.cost.Get(), "property: unclaim "+chunk.String())
	return OK
}

// OwnerOf returns the owner of chunk.
func (f *Feature) OwnerOf(chunk world.ChunkPos) (uuid.UUID, bool) {
	f.MustLoaded()
	claim, ok := f.claims.Get(chunk)
	if !ok {
		return uuid.Nil, false
	}
	return claim.Owner, true
}

// CanBuild reports whether player may modify the block at pos: the
// chunk is unclaimed or owned by the player.
func (f *Feature) CanBuild(player uuid.UUID, pos world.BlockPos) bool {
	owner, claimed := f.OwnerOf(pos.Chunk())
	return !claimed || owner == player
}

// ClaimCount returns the number of chunks player owns.
func (f *Feature) ClaimCount(player uuid.UUID) int {
	f.MustLoaded()
	n := 0
	f.claims.ForEach(func(_ world.ChunkPos, c *Claim) {
		if c.Owner == player {
			n++
		}
	})
	return n
}
