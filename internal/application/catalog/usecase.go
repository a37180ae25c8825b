// Package catalog mantiene las bodegas y productos que el ledger consulta
// (existencia y estado activo). El ledger nunca los borra.
package catalog

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jhoicas/inventory-ledger/internal/application/dto"
	"github.com/jhoicas/inventory-ledger/internal/application/inventory"
	"github.com/jhoicas/inventory-ledger/internal/domain"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
)

const defaultUnitMeasure = "UND"

// CatalogUseCase crea/actualiza y consulta bodegas y productos.
type CatalogUseCase struct {
	txRunner inventory.TxRunner
	log      zerolog.Logger
}

// NewCatalogUseCase construye el caso de uso.
func NewCatalogUseCase(txRunner inventory.TxRunner, log zerolog.Logger) *CatalogUseCase {
	return &CatalogUseCase{txRunner: txRunner, log: log.With().Str("component", "catalog").Logger()}
}

// UpsertWarehouse crea la bodega o actualiza sus datos. Una bodega inactiva no acepta borradores nuevos.
func (uc *CatalogUseCase) UpsertWarehouse(ctx context.Context, id string, in dto.UpsertWarehouseRequest) (*dto.WarehouseResponse, error) {
	id = strings.TrimSpace(id)
	in.Code = strings.TrimSpace(in.Code)
	in.Name = strings.TrimSpace(in.Name)
	if id == "" || in.Code == "" || in.Name == "" {
		return nil, domain.Validation("id, code y name son requeridos")
	}
	w := &entity.Warehouse{
		ID:      id,
		Code:    in.Code,
		Name:    in.Name,
		Address: strings.TrimSpace(in.Address),
		Active:  in.Active == nil || *in.Active,
	}
	err := uc.txRunner.Run(ctx, func(r inventory.Repos) error {
		return r.Warehouses.Upsert(ctx, w)
	})
	if err != nil {
		return nil, err
	}
	uc.log.Debug().Str("warehouse_id", w.ID).Bool("active", w.Active).Msg("bodega guardada")
	return toWarehouseResponse(w), nil
}

// GetWarehouse obtiene una bodega por ID.
func (uc *CatalogUseCase) GetWarehouse(ctx context.Context, id string) (*dto.WarehouseResponse, error) {
	var w *entity.Warehouse
	err := uc.txRunner.Run(ctx, func(r inventory.Repos) error {
		var err error
		w, err = r.Warehouses.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, domain.NotFound("bodega %s", id)
	}
	return toWarehouseResponse(w), nil
}

// UpsertProduct crea el producto o actualiza sus datos. El SKU es único.
func (uc *CatalogUseCase) UpsertProduct(ctx context.Context, id string, in dto.UpsertProductRequest) (*dto.ProductResponse, error) {
	id = strings.TrimSpace(id)
	in.SKU = strings.TrimSpace(in.SKU)
	in.Name = strings.TrimSpace(in.Name)
	if id == "" || in.SKU == "" || in.Name == "" {
		return nil, domain.Validation("id, sku y name son requeridos")
	}
	unit := strings.ToUpper(strings.TrimSpace(in.UnitMeasure))
	if unit == "" {
		unit = defaultUnitMeasure
	}
	p := &entity.Product{
		ID:          id,
		SKU:         in.SKU,
		Name:        in.Name,
		UnitMeasure: unit,
		Active:      in.Active == nil || *in.Active,
	}
	err := uc.txRunner.Run(ctx, func(r inventory.Repos) error {
		return r.Products.Upsert(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	uc.log.Debug().Str("product_id", p.ID).Str("sku", p.SKU).Msg("producto guardado")
	return toProductResponse(p), nil
}

// GetProduct obtiene un producto por ID.
func (uc *CatalogUseCase) GetProduct(ctx context.Context, id string) (*dto.ProductResponse, error) {
	var p *entity.Product
	err := uc.txRunner.Run(ctx, func(r inventory.Repos) error {
		var err error
		p, err = r.Products.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.NotFound("producto %s", id)
	}
	return toProductResponse(p), nil
}

func toWarehouseResponse(w *entity.Warehouse) *dto.WarehouseResponse {
	return &dto.WarehouseResponse{
		ID:        w.ID,
		Code:      w.Code,
		Name:      w.Name,
		Address:   w.Address,
		Active:    w.Active,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
}

func toProductResponse(p *entity.Product) *dto.ProductResponse {
	return &dto.ProductResponse{
		ID:          p.ID,
		SKU:         p.SKU,
		Name:        p.Name,
		UnitMeasure: p.UnitMeasure,
		Active:      p.Active,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
