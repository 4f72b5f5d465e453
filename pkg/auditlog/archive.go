// Package auditlog keeps a write-through archive of every executed
// transaction in a bbolt database. Unlike the JSON stores, which are
// rewritten wholesale at save checkpoints, the archive is append-only
// and durable the moment a transaction executes, so the audit trail
// survives a crash between checkpoints.
package auditlog

import (
	"encoding/binary"
	"fmt"
	"sync"

	bbolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/stonewarden/stonewarden/pkg/lifecycle"
)

var (
	bucketTransactions = []byte("transactions")
	bucketMeta         = []byte("meta")
	keyLastID          = []byte("last-id")
)

// Archive is a lifecycle component owning the bbolt database. Its
// dependency is the database file path.
type Archive struct {
	*lifecycle.Base[string]

	mu   sync.Mutex
	bolt *bbolt.DB
}

// New creates the archive component. path resolves the bbolt file
// location at load time.
func New(log *zap.Logger, path lifecycle.Getter[string]) *Archive {
	a := &Archive{}
	a.Base = lifecycle.NewBase("audit", log.Named("audit"), path, (*archiveHooks)(a))
	return a
}

// Append stores one encoded transaction under its id. Appends are
// durable immediately; failures are logged and swallowed, matching the
// best-effort policy of every other save path.
func (a *Archive) Append(id int64, encoded []byte) {
	a.mu.Lock()
	db := a.bolt
	a.mu.Unlock()
	if db == nil {
		return
	}

	err := db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketTransactions).Put(idToKey(id), encoded); err != nil {
			return err
		}
		return tx.Bucket(bucketMeta).Put(keyLastID, idToKey(id))
	})
	if err != nil {
		a.Log().Error("failed to append to audit archive", zap.Int64("id", id), zap.Error(err))
	}
}

// LastID returns the highest archived transaction id, or zero when the
// archive is empty.
func (a *Archive) LastID() int64 {
	a.mu.Lock()
	db := a.bolt
	a.mu.Unlock()
	if db == nil {
		return 0
	}

	var id int64
	db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(bucketMeta).Get(keyLastID); v != nil {
			id = keyToID(v)
		}
		return nil
	})
	return id
}

// ForEach iterates all archived transactions in id order.
func (a *Archive) ForEach(action func(id int64, encoded []byte) error) error {
	a.mu.Lock()
	db := a.bolt
	a.mu.Unlock()
	if db == nil {
		return fmt.Errorf("auditlog: archive not loaded")
	}

	return db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketTransactions).ForEach(func(k, v []byte) error {
			return action(keyToID(k), v)
		})
	})
}

// Len returns the number of archived transactions.
func (a *Archive) Len() int {
	a.mu.Lock()
	db := a.bolt
	a.mu.Unlock()
	if db == nil {
		return 0
	}

	n := 0
	db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketTransactions).Stats().KeyN
		return nil
	})
	return n
}

type archiveHooks Archive

func (h *archiveHooks) OnLoad() error {
	a := (*Archive)(h)

	db, err := bbolt.Open(a.Dep(), 0o600, nil)
	if err != nil {
		return fmt.Errorf("auditlog: open %s: %w", a.Dep(), err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketTransactions, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return fmt.Errorf("auditlog: create buckets: %w", err)
	}

	a.mu.Lock()
	a.bolt = db
	a.mu.Unlock()
	return nil
}

func (h *archiveHooks) OnUnload() {
	a := (*Archive)(h)
	a.mu.Lock()
	db := a.bolt
	a.bolt = nil
	a.mu.Unlock()

	if db != nil {
		if err := db.Close(); err != nil {
			a.Log().Error("failed to close audit archive", zap.Error(err))
		}
	}
}

// OnSave is a no-op: appends are write-through.
func (h *archiveHooks) OnSave() {}

func idToKey(id int64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(id))
	return k
}

func keyToID(k []byte) int64 {
	if len(k) != 8 {
		return 0
	}
	return int64(binary.BigEndian.Uint64(k))
}
