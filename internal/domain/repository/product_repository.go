package repository

import (
	"context"

	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
)

// ProductRepository define el puerto de consulta de productos (DIP).
type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	// GetByIDs resuelve en lote; los IDs inexistentes no aparecen en el mapa.
	GetByIDs(ctx context.Context, ids []string) (map[string]*entity.Product, error)
	Upsert(ctx context.Context, product *entity.Product) error
}
