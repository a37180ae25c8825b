package repository

import (
	"context"

	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
)

// WarehouseRepository define el puerto de consulta de bodegas (DIP).
// El listado paginado vive fuera del ledger; aquí solo se resuelve existencia/estado.
type WarehouseRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Warehouse, error)
	Upsert(ctx context.Context, warehouse *entity.Warehouse) error
}
