package economy

import (
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stonewarden/stonewarden/pkg/lifecycle"
	"github.com/stonewarden/stonewarden/pkg/playerdata"
	"github.com/stonewarden/stonewarden/pkg/store"
	"github.com/stonewarden/stonewarden/pkg/yamlconf"
)

// AuditSink receives every executed transaction for archival, success or
// not. Implementations must be safe for concurrent use.
type AuditSink interface {
	Record(t *Transaction)
}

// MetricsSink observes transaction outcomes.
type MetricsSink interface {
	TransactionExecuted(kind string, succeeded bool)
}

// Economy is the transaction engine. Balances live in memory as
// independent atomic counters, lazily created at the configured starting
// balance, and are only ever mutated by executing transactions. State
// round-trips through a balance View, a transaction-log store, and a
// persisted id counter at save checkpoints.
//
// A peer transfer deliberately holds no lock spanning both accounts: the
// debit commits before the credit, so a concurrent reader can observe
// money in flight between the two steps. Per-account correctness only
// needs the atomic counters; serializing all transfers to close that
// window is not worth the contention.
type Economy struct {
	*lifecycle.Base[struct{}]

	stored   *playerdata.View[int64]
	balances *store.Map[uuid.UUID, *atomic.Int64]
	starting *yamlconf.Safe[int64]

	txLog       *store.Store[uuid.UUID, *Log]
	counterWrap *yamlconf.Safe[int64]
	counter     atomic.Int64

	audit   AuditSink
	metrics MetricsSink
}

// Options carries the optional collaborators of the engine.
type Options struct {
	Audit   AuditSink
	Metrics MetricsSink
}

// New creates the economy engine, registering its balance view, its
// transaction-log store, and its config wrappers. Only legal before the
// managers load.
func New(log *zap.Logger, stores *store.Manager, players *playerdata.Manager, conf *yamlconf.Manager, opts Options) *Economy {
	e := &Economy{
		stored:      playerdata.NewView(players, "economy.balance", store.Int64()),
		balances:    store.NewMap[uuid.UUID, *atomic.Int64](),
		starting:    yamlconf.Int64(conf, "economy.starting-balance").Safe(100),
		txLog:       store.New(stores, "transactions", store.UUID(), LogConverter()),
		counterWrap: yamlconf.Int64(conf, "economy.transaction-id").Safe(0),
		audit:       opts.Audit,
		metrics:     opts.Metrics,
	}
	e.Base = lifecycle.NewBase[struct{}]("economy", log.Named("economy"), nil, (*economyHooks)(e))
	return e
}

// Balance returns the current balance of id, creating the account at the
// starting balance on first access.
func (e *Economy) Balance(id uuid.UUID) int64 {
	e.MustLoaded()
	return e.balance(id).Load()
}

// Transactions returns a snapshot of id's transaction log, oldest first.
func (e *Economy) Transactions(id uuid.UUID) []*Transaction {
	e.MustLoaded()
	l, ok := e.txLog.Get(id)
	if !ok {
		return nil
	}
	return l.Snapshot()
}

// Execute runs a ledger transaction: amount applied to the transactor's
// balance, positive credits, negative debits. Returns false without any
// mutation when the balance would go negative. The record is appended to
// the transactor's log either way.
func (e *Economy) Execute(transactor uuid.UUID, amount int64, memo string) bool {
	e.MustLoaded()

	t := NewLedger(transactor, amount, memo, e.counter.Add(1))
	e.logFor(transactor).Append(t)

	ok := t.executeLedger(e.balance(transactor))
	e.finish(t, ok)
	return ok
}

// ExecuteTransfer runs a peer transfer of amount from sender to
// receiver. Returns false without touching either balance when the debit
// would drive the sender negative. The record is appended to both logs
// either way, carrying the same transaction id.
func (e *Economy) ExecuteTransfer(sender, receiver uuid.UUID, amount int64, memo string) bool {
	e.MustLoaded()

	t := NewPeer(sender, receiver, amount, memo, e.counter.Add(1))
	e.logFor(sender).Append(t)
	e.logFor(receiver).Append(t)

	ok := t.executeTransfer(e.balance(sender), e.balance(receiver))
	e.finish(t, ok)
	return ok
}

func (e *Economy) finish(t *Transaction, ok bool) {
	if !ok {
		e.Log().Debug("transaction failed",
			zap.Int64("id", t.ID), zap.String("type", string(t.Kind)), zap.Int64("amount", t.Amount))
	}
	if e.audit != nil {
		e.audit.Record(t)
	}
	if e.metrics != nil {
		e.metrics.TransactionExecuted(string(t.Kind), ok)
	}
}

func (e *Economy) balance(id uuid.UUID) *atomic.Int64 {
	return e.balances.ComputeIfAbsent(id, func(uuid.UUID) *atomic.Int64 {
		b := new(atomic.Int64)
		b.Store(e.starting.Get())
		return b
	})
}

func (e *Economy) logFor(id uuid.UUID) *Log {
	return e.txLog.ComputeIfAbsent(id, func(uuid.UUID) *Log { return &Log{} })
}

type economyHooks Economy

func (h *economyHooks) OnLoad() error {
	e := (*Economy)(h)
	e.balances.Clear()
	e.stored.ForEach(func(id uuid.UUID, value int64) {
		b := new(atomic.Int64)
		b.Store(value)
		e.balances.Set(id, b)
	})
	e.counter.Store(e.counterWrap.Get())
	return nil
}

func (h *economyHooks) OnUnload() {
	h.OnSave()
	(*Economy)(h).balances.Clear()
}

func (h *economyHooks) OnSave() {
	e := (*Economy)(h)
	e.balances.Range(func(id uuid.UUID, b *atomic.Int64) {
		e.stored.Set(id, b.Load())
	})
	e.counterWrap.Set(e.counter.Load())
}
