package inventory

import (
	"context"

	"github.com/jhoicas/inventory-ledger/internal/application/dto"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/internal/domain/repository"
)

// Repos agrupa los repositorios atados a una misma transacción.
type Repos struct {
	Movements  repository.InventoryMovementRepository
	Balances   repository.BalanceRepository
	Warehouses repository.WarehouseRepository
	Products   repository.ProductRepository
}

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Garantiza atomicidad para el motor de inventario: si fn devuelve error se hace Rollback completo.
type TxRunner interface {
	// Run toma el candado compartido del ledger (posteo, anulación, edición de borradores).
	Run(ctx context.Context, fn func(r Repos) error) error
	// RunExclusive toma el candado exclusivo del ledger; la conciliación con escritura
	// nunca se intercala con un posteo o anulación en curso.
	RunExclusive(ctx context.Context, fn func(r Repos) error) error
}

// AuditSink recibe eventos de auditoría. Es fire-and-forget: los fallos del sink
// se registran en el propio sink y nunca revierten la transacción de negocio.
type AuditSink interface {
	Record(ctx context.Context, entry entity.AuditEntry)
}

// VoucherRenderer genera el comprobante imprimible de un movimiento.
type VoucherRenderer interface {
	RenderMovementVoucher(ctx context.Context, v *dto.MovementVoucher) ([]byte, error)
}

// NoopAuditSink descarta los eventos.
type NoopAuditSink struct{}

func (NoopAuditSink) Record(context.Context, entity.AuditEntry) {}

type failureAuditKey struct{}

// WithFailureAudit marca el contexto para que las operaciones fallidas también
// emitan un evento de auditoría (success=false).
func WithFailureAudit(ctx context.Context) context.Context {
	return context.WithValue(ctx, failureAuditKey{}, true)
}

func failureAuditRequested(ctx context.Context) bool {
	v, _ := ctx.Value(failureAuditKey{}).(bool)
	return v
}
