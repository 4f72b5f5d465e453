package property

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stonewarden/stonewarden/pkg/economy"
	"github.com/stonewarden/stonewarden/pkg/events"
	"github.com/stonewarden/stonewarden/pkg/feature"
	"github.com/stonewarden/stonewarden/pkg/playerdata"
	"github.com/stonewarden/stonewarden/pkg/store"
	"github.com/stonewarden/stonewarden/pkg/world"
	"github.com/stonewarden/stonewarden/pkg/yamlconf"
)

type testTree struct {
	conf     *yamlconf.Manager
	stores   *store.Manager
	players  *playerdata.Manager
	features *feature.Manager
	economy  *economy.Economy
	property *Feature
}

func newTestTree(t *testing.T, dir string) *testTree {
	t.Helper()
	log := zap.NewNop()

	tree := &testTree{}
	tree.conf = yamlconf.NewManager(log, func() (yamlconf.Document, error) {
		return yamlconf.OpenFile(filepath.Join(dir, "config.yml"))
	})
	tree.stores = store.NewManager(log, func() (string, error) { return dir, nil })
	tree.players = playerdata.NewManager(log, tree.stores)
	tree.features = feature.NewManager(log, events.NewBus())
	tree.economy = feature.Register(tree.features,
		economy.New(log, tree.stores, tree.players, tree.conf, economy.Options{}))
	tree.property = feature.Register(tree.features,
		New(log, tree.features, tree.stores, tree.conf))
	return tree
}

func (tr *testTree) load(t *testing.T) {
	t.Helper()
	for _, c := range []interface{ Load() error }{tr.conf, tr.stores, tr.players, tr.features} {
		if err := c.Load(); err != nil {
			t.Fatalf("load: %v", err)
		}
	}
}

func (tr *testTree) unload() {
	tr.features.Unload()
	tr.players.Unload()
	tr.stores.Unload()
	tr.conf.Unload()
}

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "config.yml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestClaimChargesAndOwns(t *testing.T) {
	tree := newTestTree(t, t.TempDir())
	tree.load(t)
	defer tree.unload()

	player := uuid.New()
	chunk := world.ChunkPos{World: "overworld", X: 3, Z: -2}

	if got := tree.property.Claim(player, chunk); got != OK {
		t.Fatalf("Claim = %v, want OK", got)
	}
	// Default starting balance 100, default claim cost 50.
	if got := tree.economy.Balance(player); got != 50 {
		t.Errorf("balance = %d, want 50", got)
	}
	if owner, ok := tree.property.OwnerOf(chunk); !ok || owner != player {
		t.Errorf("OwnerOf = %s, %v", owner, ok)
	}
	if tree.property.ClaimCount(player) != 1 {
		t.Errorf("ClaimCount = %d, want 1", tree.property.ClaimCount(player))
	}
}

func TestClaimOutcomes(t *testing.T) {
	tree := newTestTree(t, t.TempDir())
	tree.load(t)
	defer tree.unload()

	owner, rival := uuid.New(), uuid.New()
	chunk := world.ChunkPos{World: "overworld", X: 0, Z: 0}

	if got := tree.property.Claim(owner, chunk); got != OK {
		t.Fatalf("Claim = %v", got)
	}
	if got := tree.property.Claim(owner, chunk); got != AlreadyOwned {
		t.Errorf("reclaim = %v, want AlreadyOwned", got)
	}
	if got := tree.property.Claim(rival, chunk); got != Taken {
		t.Errorf("rival claim = %v, want Taken", got)
	}
}

func TestClaimNoFundsReleasesReservation(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "economy:\n  starting-balance: 0\n")
	tree := newTestTree(t, dir)
	tree.load(t)
	defer tree.unload()

	broke, rich := uuid.New(), uuid.New()
	chunk := world.ChunkPos{World: "overworld", X: 1, Z: 1}

	if got := tree.property.Claim(broke, chunk); got != NoFunds {
		t.Fatalf("Claim = %v, want NoFunds", got)
	}
	if _, ok := tree.property.OwnerOf(chunk); ok {
		t.Fatal("failed claim left the chunk reserved")
	}

	// The chunk is claimable again once someone can pay.
	if !tree.economy.Execute(rich, 50, "seed") {
		t.Fatal("seeding failed")
	}
	if got := tree.property.Claim(rich, chunk); got != OK {
		t.Errorf("Claim after released reservation = %v, want OK", got)
	}
}

func TestClaimLimit(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "property:\n  claim-limit: 1\n  claim-cost: 0\n")
	tree := newTestTree(t, dir)
	tree.load(t)
	defer tree.unload()

	player := uuid.New()
	if got := tree.property.Claim(player, world.ChunkPos{X: 0, Z: 0}); got != OK {
		t.Fatalf("first claim = %v", got)
	}
	if got := tree.property.Claim(player, world.ChunkPos{X: 0, Z: 1}); got != Limit {
		t.Errorf("second claim = %v, want Limit", got)
	}
}

func TestUnclaimRefunds(t *testing.T) {
	tree := newTestTree(t, t.TempDir())
	tree.load(t)
	defer tree.unload()

	owner, rival := uuid.New(), uuid.New()
	chunk := world.ChunkPos{World: "overworld", X: 5, Z: 5}

	if got := tree.property.Claim(owner, chunk); got != OK {
		t.Fatalf("Claim = %v", got)
	}
	if got := tree.property.Unclaim(rival, chunk); got != NotOwner {
		t.Errorf("rival unclaim = %v, want NotOwner", got)
	}
	if got := tree.property.Unclaim(owner, chunk); got != OK {
		t.Fatalf("Unclaim = %v, want OK", got)
	}
	if got := tree.economy.Balance(owner); got != 100 {
		t.Errorf("balance after refund = %d, want 100", got)
	}
	if got := tree.property.Unclaim(owner, chunk); got != Unclaimed {
		t.Errorf("double unclaim = %v, want Unclaimed", got)
	}

	// Refund is a fresh inverse record, not an edit: charge and refund
	// are both in the log.
	log := tree.economy.Transactions(owner)
	if len(log) != 2 {
		t.Fatalf("log has %d entries, want 2", len(log))
	}
	if log[0].Amount != -50 || log[1].Amount != 50 {
		t.Errorf("log amounts = %d, %d; want -50, 50", log[0].Amount, log[1].Amount)
	}
}

func TestCanBuild(t *testing.T) {
	tree := newTestTree(t, t.TempDir())
	tree.load(t)
	defer tree.unload()

	owner, visitor := uuid.New(), uuid.New()
	pos := world.BlockPos{World: "overworld", X: 20, Y: 64, Z: 20}

	if !tree.property.CanBuild(visitor, pos) {
		t.Error("unclaimed land not buildable")
	}
	if got := tree.property.Claim(owner, pos.Chunk()); got != OK {
		t.Fatalf("Claim = %v", got)
	}
	if !tree.property.CanBuild(owner, pos) {
		t.Error("owner cannot build on own claim")
	}
	if tree.property.CanBuild(visitor, pos) {
		t.Error("visitor can build on someone else's claim")
	}
}

func TestClaimsPersist(t *testing.T) {
	dir := t.TempDir()
	player := uuid.New()
	chunk := world.ChunkPos{World: "overworld", X: 9, Z: 9}

	tree := newTestTree(t, dir)
	tree.load(t)
	if got := tree.property.Claim(player, chunk); got != OK {
		t.Fatalf("Claim = %v", got)
	}
	tree.unload()

	tree2 := newTestTree(t, dir)
	tree2.load(t)
	defer tree2.unload()
	if owner, ok := tree2.property.OwnerOf(chunk); !ok || owner != player {
		t.Errorf("restored owner = %s, %v; want %s", owner, ok, player)
	}
}
