package repository

import (
	"context"

	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
)

// BalanceFilter restringe los saldos por bodega y/o producto (nil = todos).
type BalanceFilter struct {
	WarehouseID *string
	ProductID   *string
}

// BalanceRepository define el puerto para saldos por bodega+producto.
// Las operaciones de escritura se usan dentro de transacciones (TxRunner).
type BalanceRepository interface {
	// Get devuelve nil, nil si no existe fila viva para el par.
	Get(ctx context.Context, warehouseID, productID string) (*entity.Balance, error)
	// GetForUpdate bloquea la fila (SELECT FOR UPDATE); nil, nil si no existe.
	GetForUpdate(ctx context.Context, warehouseID, productID string) (*entity.Balance, error)
	// EnsureForUpdate crea la fila con on_hand 0 si falta y la devuelve bloqueada.
	EnsureForUpdate(ctx context.Context, warehouseID, productID string) (*entity.Balance, error)
	// CreateIfMissing inserta la fila; created=false si ya existía (no la modifica).
	CreateIfMissing(ctx context.Context, balance *entity.Balance) (created bool, err error)
	// Update escribe on_hand comparando Version; ErrConcurrentModification si cambió.
	Update(ctx context.Context, balance *entity.Balance) error
	// ListForUpdate devuelve las filas vivas del filtro, bloqueadas y ordenadas por par.
	ListForUpdate(ctx context.Context, filter BalanceFilter) ([]*entity.Balance, error)
	List(ctx context.Context, filter BalanceFilter) ([]*entity.Balance, error)
}
