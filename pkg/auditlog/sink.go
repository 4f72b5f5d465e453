package auditlog

import (
	"go.uber.org/zap"

	"github.com/stonewarden/stonewarden/pkg/economy"
	"github.com/stonewarden/stonewarden/pkg/store"
)

// TransactionSink adapts an Archive to the economy's audit hook,
// encoding each executed transaction before appending it.
type TransactionSink struct {
	archive *Archive
	conv    store.Converter[*economy.Transaction]
}

// NewTransactionSink wraps archive as an economy.AuditSink.
func NewTransactionSink(archive *Archive) *TransactionSink {
	return &TransactionSink{archive: archive, conv: economy.TransactionConverter()}
}

// Record implements economy.AuditSink.
func (s *TransactionSink) Record(t *economy.Transaction) {
	raw, err := s.conv.ToJSON(t)
	if err != nil {
		s.archive.Log().Error("failed to encode transaction for archive",
			zap.Int64("id", t.ID), zap.Error(err))
		return
	}
	s.archive.Append(t.ID, raw)
}
