package playerdata

import (
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stonewarden/stonewarden/pkg/store"
)

func newTestTree(t *testing.T, dir string) (*store.Manager, *Manager) {
	t.Helper()
	log := zap.NewNop()
	stores := store.NewManager(log, func() (string, error) { return dir, nil })
	players := NewManager(log, stores)
	return stores, players
}

func loadBoth(t *testing.T, stores *store.Manager, players *Manager) {
	t.Helper()
	if err := stores.Load(); err != nil {
		t.Fatalf("load stores: %v", err)
	}
	if err := players.Load(); err != nil {
		t.Fatalf("load players: %v", err)
	}
}

func TestViewRoundTrip(t *testing.T) {
	dir := t.TempDir()
	stores, players := newTestTree(t, dir)
	tags := NewView(players, "clan-tag", store.Text())
	deaths := NewView(players, "deaths", store.Int())

	loadBoth(t, stores, players)
	id := uuid.New()
	tags.Set(id, "IRON")
	deaths.Set(id, 3)
	players.Unload()
	stores.Unload()

	// Second tree over the same directory sees both attributes.
	stores2, players2 := newTestTree(t, dir)
	tags2 := NewView(players2, "clan-tag", store.Text())
	deaths2 := NewView(players2, "deaths", store.Int())
	loadBoth(t, stores2, players2)

	if v, ok := tags2.Get(id); !ok || v != "IRON" {
		t.Errorf("clan-tag = %q, %v; want IRON", v, ok)
	}
	if v, ok := deaths2.Get(id); !ok || v != 3 {
		t.Errorf("deaths = %d, %v; want 3", v, ok)
	}
}

func TestViewsShareOneRecord(t *testing.T) {
	dir := t.TempDir()
	stores, players := newTestTree(t, dir)
	a := NewView(players, "a", store.Int())
	b := NewView(players, "b", store.Text())

	loadBoth(t, stores, players)
	id := uuid.New()
	a.Set(id, 1)
	b.Set(id, "x")
	players.SaveToDisk()

	rec := players.Player(id)
	if rec["a"] != "1" || rec["b"] != "x" {
		t.Errorf("raw record = %v, want both attributes present", rec)
	}
}

func TestDuplicateViewKeyPanics(t *testing.T) {
	_, players := newTestTree(t, t.TempDir())
	NewView(players, "dup", store.Int())
	defer func() {
		if recover() == nil {
			t.Fatal("duplicate view key did not panic")
		}
	}()
	NewView(players, "dup", store.Text())
}

func TestViewSkipsUnconvertibleAttribute(t *testing.T) {
	dir := t.TempDir()
	stores, players := newTestTree(t, dir)
	counts := NewView(players, "count", store.Int())

	loadBoth(t, stores, players)
	id := uuid.New()
	players.Player(id)["count"] = "not-a-number"
	players.Player(id)["other"] = "untouched"

	// Reload only the view; it scans the raw records again.
	counts.Unload()
	// The write-back during unload must not have destroyed the raw value.
	if players.Player(id)["count"] != "not-a-number" {
		t.Fatalf("raw value gone: %v", players.Player(id))
	}
	if err := counts.Load(); err != nil {
		t.Fatalf("reload view: %v", err)
	}
	if _, ok := counts.Get(id); ok {
		t.Error("unconvertible attribute surfaced in the view")
	}
	if players.Player(id)["count"] != "not-a-number" {
		t.Error("unconvertible attribute was dropped from the raw record")
	}
}

func TestRemovedAttributeDoesNotResurrect(t *testing.T) {
	dir := t.TempDir()
	stores, players := newTestTree(t, dir)
	v := NewView(players, "attr", store.Int())

	loadBoth(t, stores, players)
	id := uuid.New()
	v.Set(id, 7)
	players.SaveToDisk()
	v.Remove(id)
	players.SaveToDisk()

	if raw, ok := players.Player(id)["attr"]; ok {
		t.Errorf("removed attribute still in raw record: %q", raw)
	}
}
