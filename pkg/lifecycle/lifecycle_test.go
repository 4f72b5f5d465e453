package lifecycle

import (
	"errors"
	"testing"

	"go.uber.org/zap"
)

// recorder counts hook invocations and optionally fails the load.
type recorder struct {
	loads   int
	unloads int
	saves   int
	loadErr error
	order   *[]string
	name    string
}

func (r *recorder) OnLoad() error {
	r.loads++
	if r.order != nil {
		*r.order = append(*r.order, "load:"+r.name)
	}
	return r.loadErr
}

func (r *recorder) OnUnload() {
	r.unloads++
	if r.order != nil {
		*r.order = append(*r.order, "unload:"+r.name)
	}
}

func (r *recorder) OnSave() {
	r.saves++
	if r.order != nil {
		*r.order = append(*r.order, "save:"+r.name)
	}
}

func TestLoadUnloadCycle(t *testing.T) {
	rec := &recorder{}
	gets := 0
	b := NewBase("test", zap.NewNop(), func() (string, error) {
		gets++
		return "dep-value", nil
	}, rec)

	if b.Loaded() {
		t.Fatal("new component reports loaded")
	}
	if err := b.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !b.Loaded() {
		t.Fatal("not loaded after Load")
	}
	if got := b.Dep(); got != "dep-value" {
		t.Errorf("Dep = %q, want dep-value", got)
	}
	if gets != 1 {
		t.Errorf("getter ran %d times, want 1", gets)
	}

	b.Unload()
	if b.Loaded() {
		t.Fatal("loaded after Unload")
	}
	if rec.loads != 1 || rec.unloads != 1 {
		t.Errorf("hooks: loads=%d unloads=%d, want 1/1", rec.loads, rec.unloads)
	}

	// Reload resolves the dependency again.
	if err := b.Load(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if gets != 2 {
		t.Errorf("getter ran %d times after reload, want 2", gets)
	}
}

func TestLoadTwiceFails(t *testing.T) {
	b := NewBase[struct{}]("test", zap.NewNop(), nil, nil)
	if err := b.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := b.Load(); err == nil {
		t.Fatal("second Load succeeded, want error")
	}
	if !b.Loaded() {
		t.Fatal("failed double Load flipped state to unloaded")
	}
}

func TestGetterFailureLeavesUnloaded(t *testing.T) {
	rec := &recorder{}
	b := NewBase("test", zap.NewNop(), func() (string, error) {
		return "", errors.New("nope")
	}, rec)

	if err := b.Load(); err == nil {
		t.Fatal("Load succeeded with failing getter")
	}
	if b.Loaded() {
		t.Fatal("loaded after failed Load")
	}
	if rec.loads != 0 {
		t.Errorf("OnLoad ran %d times after getter failure, want 0", rec.loads)
	}
}

func TestHookFailureClearsDependency(t *testing.T) {
	rec := &recorder{loadErr: errors.New("boom")}
	b := NewBase("test", zap.NewNop(), func() (string, error) { return "dep", nil }, rec)

	if err := b.Load(); err == nil {
		t.Fatal("Load succeeded with failing hook")
	}
	if b.Loaded() {
		t.Fatal("loaded after failed Load")
	}
	defer func() {
		if recover() == nil {
			t.Fatal("Dep did not panic after failed load")
		}
	}()
	b.Dep()
}

func TestUnloadWhenNotLoadedIsNoop(t *testing.T) {
	rec := &recorder{}
	b := NewBase[struct{}]("test", zap.NewNop(), nil, rec)
	b.Unload()
	if rec.unloads != 0 {
		t.Errorf("OnUnload ran %d times on unloaded component, want 0", rec.unloads)
	}
}

func TestSaveToDiskRequiresLoaded(t *testing.T) {
	rec := &recorder{}
	b := NewBase[struct{}]("test", zap.NewNop(), nil, rec)
	b.SaveToDisk()
	if rec.saves != 0 {
		t.Errorf("OnSave ran %d times on unloaded component, want 0", rec.saves)
	}

	if err := b.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	b.SaveToDisk()
	if rec.saves != 1 {
		t.Errorf("OnSave ran %d times, want 1", rec.saves)
	}
}

func TestMustLoadedPanics(t *testing.T) {
	b := NewBase[struct{}]("test", zap.NewNop(), nil, nil)
	defer func() {
		if recover() == nil {
			t.Fatal("MustLoaded did not panic")
		}
	}()
	b.MustLoaded()
}

func TestManagerCascadeOrder(t *testing.T) {
	var order []string
	m := NewManager[struct{}]("root", zap.NewNop(), nil, nil)
	for _, name := range []string{"a", "b", "c"} {
		rec := &recorder{order: &order, name: name}
		m.Append(NewBase[struct{}](m.ChildName(name), m.ChildLog(name), nil, rec))
	}

	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	m.SaveToDisk()
	m.Unload()

	want := []string{
		"load:a", "load:b", "load:c",
		"save:c", "save:b", "save:a",
		"unload:c", "unload:b", "unload:a",
	}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order[%d] = %q, want %q (full: %v)", i, order[i], want[i], order)
		}
	}
}

func TestManagerAbortedLoadCleanup(t *testing.T) {
	m := NewManager[struct{}]("root", zap.NewNop(), nil, nil)
	first := &recorder{}
	m.Append(NewBase[struct{}](m.ChildName("first"), m.ChildLog("first"), nil, first))
	m.Append(NewBase[struct{}](m.ChildName("bad"), m.ChildLog("bad"), nil,
		&recorder{loadErr: errors.New("bad child")}))
	third := &recorder{}
	m.Append(NewBase[struct{}](m.ChildName("third"), m.ChildLog("third"), nil, third))

	if err := m.Load(); err == nil {
		t.Fatal("Load succeeded with failing child")
	}
	if m.Loaded() {
		t.Fatal("manager loaded after aborted cascade")
	}
	if third.loads != 0 {
		t.Error("child after the failure was loaded")
	}

	// The manager never loaded, but cleanup must still reach the child
	// that did.
	m.Unload()
	if first.unloads != 1 {
		t.Errorf("first child unloaded %d times, want 1", first.unloads)
	}
}

func TestAppendAfterLoadPanics(t *testing.T) {
	m := NewManager[struct{}]("root", zap.NewNop(), nil, nil)
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer func() {
		if recover() == nil {
			t.Fatal("Append on loaded manager did not panic")
		}
	}()
	m.Append(NewBase[struct{}]("late", zap.NewNop(), nil, nil))
}
