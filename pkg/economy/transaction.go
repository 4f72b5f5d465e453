// Package economy implements the currency engine: per-player atomic
// balances that are only ever mutated by executing immutable transaction
// records, plus a persistent per-player transaction log.
package economy

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/stonewarden/stonewarden/pkg/store"
)

// Kind discriminates the two transaction payload shapes.
type Kind string

const (
	// KindLedger applies the amount to a single balance, against an
	// external source (admin grant, shop till, server sink).
	KindLedger Kind = "ledger"

	// KindPeer moves the amount from a sender to a receiver.
	KindPeer Kind = "peer"
)

// Transaction is an immutable, at-most-once-executable balance mutation
// record. It is constructed pending, executed exactly once, and appended
// to the log of every account it references whether or not it succeeded,
// so failed attempts stay auditable.
type Transaction struct {
	ID        int64
	Timestamp time.Time
	Amount    int64
	Memo      string
	Kind      Kind

	// Transactor is set for KindLedger; Sender/Receiver for KindPeer.
	Transactor uuid.UUID
	Sender     uuid.UUID
	Receiver   uuid.UUID

	succeeded bool
	executed  atomic.Bool
}

// NewLedger constructs a pending ledger transaction. A positive amount
// credits the transactor, a negative amount debits it.
func NewLedger(transactor uuid.UUID, amount int64, memo string, id int64) *Transaction {
	return &Transaction{
		ID:         id,
		Timestamp:  time.Now().UTC(),
		Amount:     amount,
		Memo:       memo,
		Kind:       KindLedger,
		Transactor: transactor,
	}
}

// NewPeer constructs a pending peer transfer of amount from sender to
// receiver.
func NewPeer(sender, receiver uuid.UUID, amount int64, memo string, id int64) *Transaction {
	return &Transaction{
		ID:        id,
		Timestamp: time.Now().UTC(),
		Amount:    amount,
		Memo:      memo,
		Kind:      KindPeer,
		Sender:    sender,
		Receiver:  receiver,
	}
}

// Succeeded reports whether execution committed the balance mutation.
// False both for a pending transaction and an executed-but-failed one.
func (t *Transaction) Succeeded() bool { return t.succeeded }

// Executed reports whether the single-use execution latch is consumed.
func (t *Transaction) Executed() bool { return t.executed.Load() }

// executeLedger applies the amount to one balance. Exactly one caller
// wins the latch; everyone else gets false with no mutation. The
// mutation is reverted when it would drive the balance negative.
func (t *Transaction) executeLedger(balance *atomic.Int64) bool {
	if !t.executed.CompareAndSwap(false, true) {
		return false
	}

	if balance.Add(t.Amount) < 0 {
		balance.Add(-t.Amount)
		t.succeeded = false
		return false
	}
	t.succeeded = true
	return true
}

// executeTransfer debits the sender, then credits the receiver. The
// debit is subtract-then-check: a result below zero is reverted before
// the credit step is reached, so a failed transfer touches neither
// balance. No lock spans both accounts; see Economy for the tradeoff.
func (t *Transaction) executeTransfer(sender, receiver *atomic.Int64) bool {
	if !t.executed.CompareAndSwap(false, true) {
		return false
	}

	if sender.Add(-t.Amount) < 0 {
		sender.Add(t.Amount)
		t.succeeded = false
		return false
	}
	receiver.Add(t.Amount)
	t.succeeded = true
	return true
}

// Log is one account's transaction history: append-only, never edited.
// Corrections are expressed as new transactions with the sign inverted.
type Log struct {
	mu   sync.Mutex
	list []*Transaction
}

// Append adds a transaction to the log.
func (l *Log) Append(t *Transaction) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.list = append(l.list, t)
}

// Snapshot returns a copy of the log in append order.
func (l *Log) Snapshot() []*Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*Transaction, len(l.list))
	copy(out, l.list)
	return out
}

// Len returns the number of logged transactions.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.list)
}

// transactionJSON is the wire form of a Transaction.
type transactionJSON struct {
	ID         int64     `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Amount     int64     `json:"amount"`
	Memo       string    `json:"booking-info"`
	Succeeded  bool      `json:"succeeded"`
	Kind       Kind      `json:"type"`
	Transactor string    `json:"transactor,omitempty"`
	Sender     string    `json:"sender,omitempty"`
	Receiver   string    `json:"receiver,omitempty"`
}

// TransactionConverter round-trips transactions. Decoded transactions
// come back with the execution latch consumed: a record restored from
// disk is history, not a pending mutation.
func TransactionConverter() store.Converter[*Transaction] {
	return store.JSONOnly(transactionFromJSON, transactionToJSON)
}

// LogConverter round-trips whole account logs as JSON arrays.
func LogConverter() store.Converter[*Log] {
	inner := store.List(TransactionConverter())
	return store.JSONOnly(
		func(raw json.RawMessage) (*Log, error) {
			list, err := inner.FromJSON(raw)
			if err != nil {
				return nil, err
			}
			return &Log{list: list}, nil
		},
		func(l *Log) (json.RawMessage, error) {
			return inner.ToJSON(l.Snapshot())
		},
	)
}

func transactionFromJSON(raw json.RawMessage) (*Transaction, error) {
	var w transactionJSON
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}

	t := &Transaction{
		ID:        w.ID,
		Timestamp: w.Timestamp,
		Amount:    w.Amount,
		Memo:      w.Memo,
		Kind:      w.Kind,
		succeeded: w.Succeeded,
	}
	t.executed.Store(true)

	var err error
	switch w.Kind {
	case KindLedger:
		if t.Transactor, err = uuid.Parse(w.Transactor); err != nil {
			return nil, fmt.Errorf("economy: transactor: %w", err)
		}
	case KindPeer:
		if t.Sender, err = uuid.Parse(w.Sender); err != nil {
			return nil, fmt.Errorf("economy: sender: %w", err)
		}
		if t.Receiver, err = uuid.Parse(w.Receiver); err != nil {
			return nil, fmt.Errorf("economy: receiver: %w", err)
		}
	default:
		return nil, fmt.Errorf("economy: unknown transaction type %q", w.Kind)
	}
	return t, nil
}

func transactionToJSON(t *Transaction) (json.RawMessage, error) {
	w := transactionJSON{
		ID:        t.ID,
		Timestamp: t.Timestamp,
		Amount:    t.Amount,
		Memo:      t.Memo,
		Succeeded: t.succeeded,
		Kind:      t.Kind,
	}
	switch t.Kind {
	case KindLedger:
		w.Transactor = t.Transactor.String()
	case KindPeer:
		w.Sender = t.Sender.String()
		w.Receiver = t.Receiver.String()
	default:
		return nil, fmt.Errorf("economy: unknown transaction type %q", t.Kind)
	}
	return json.Marshal(w)
}
