package audit

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/jhoicas/inventory-ledger/internal/application/inventory"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
)

var _ inventory.AuditSink = (*LogSink)(nil)

// LogSink escribe los eventos de auditoría en el log estructurado.
type LogSink struct {
	log zerolog.Logger
}

// NewLogSink construye el sink sobre el logger de la aplicación.
func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log.With().Str("component", "audit").Logger()}
}

func (s *LogSink) Record(_ context.Context, e entity.AuditEntry) {
	ev := s.log.Info()
	if !e.Success {
		ev = s.log.Warn()
	}
	ev.Str("action", e.Action).
		Str("entity", e.Entity).
		Str("entity_id", e.EntityID).
		Str("user_id", e.UserID).
		Bool("success", e.Success).
		Time("occurred_at", e.OccurredAt)
	if e.WarehouseID != "" {
		ev.Str("warehouse_id", e.WarehouseID)
	}
	if e.ProductID != "" {
		ev.Str("product_id", e.ProductID)
	}
	if len(e.Payload) > 0 {
		ev.Interface("payload", e.Payload)
	}
	ev.Msg(e.Message)
}
