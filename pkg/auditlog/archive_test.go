package auditlog

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stonewarden/stonewarden/pkg/economy"
)

func newTestArchive(t *testing.T, dir string) *Archive {
	t.Helper()
	return New(zap.NewNop(), func() (string, error) {
		return filepath.Join(dir, "transactions.db"), nil
	})
}

func TestAppendAndIterate(t *testing.T) {
	a := newTestArchive(t, t.TempDir())
	if err := a.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer a.Unload()

	a.Append(1, []byte("first"))
	a.Append(2, []byte("second"))
	a.Append(3, []byte("third"))

	if got := a.Len(); got != 3 {
		t.Errorf("Len = %d, want 3", got)
	}
	if got := a.LastID(); got != 3 {
		t.Errorf("LastID = %d, want 3", got)
	}

	var ids []int64
	err := a.ForEach(func(id int64, encoded []byte) error {
		ids = append(ids, id)
		return nil
	})
	if err != nil {
		t.Fatalf("ForEach: %v", err)
	}
	for i, id := range ids {
		if id != int64(i+1) {
			t.Fatalf("ids not in order: %v", ids)
		}
	}
}

func TestArchiveSurvivesReload(t *testing.T) {
	dir := t.TempDir()
	a := newTestArchive(t, dir)
	if err := a.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	a.Append(7, []byte("durable"))
	a.Unload()

	b := newTestArchive(t, dir)
	if err := b.Load(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	defer b.Unload()
	if got := b.LastID(); got != 7 {
		t.Errorf("LastID after reload = %d, want 7", got)
	}
	if got := b.Len(); got != 1 {
		t.Errorf("Len after reload = %d, want 1", got)
	}
}

func TestAppendWhenUnloadedIsDropped(t *testing.T) {
	a := newTestArchive(t, t.TempDir())
	a.Append(1, []byte("nowhere"))
	if got := a.Len(); got != 0 {
		t.Errorf("Len = %d on unloaded archive", got)
	}
}

func TestTransactionSinkRoundTrip(t *testing.T) {
	a := newTestArchive(t, t.TempDir())
	if err := a.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer a.Unload()
	sink := NewTransactionSink(a)

	tx := economy.NewLedger(uuid.New(), 25, "archived", 42)
	sink.Record(tx)

	if got := a.LastID(); got != 42 {
		t.Fatalf("LastID = %d, want 42", got)
	}
	conv := economy.TransactionConverter()
	err := a.ForEach(func(id int64, encoded []byte) error {
		restored, err := conv.FromJSON(encoded)
		if err != nil {
			return err
		}
		if restored.ID != 42 || restored.Amount != 25 || restored.Memo != "archived" {
			t.Errorf("restored = %+v", restored)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("ForEach: %v", err)
	}
}
