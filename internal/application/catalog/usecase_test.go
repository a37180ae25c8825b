package catalog_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventory-ledger/internal/application/catalog"
	"github.com/jhoicas/inventory-ledger/internal/application/dto"
	"github.com/jhoicas/inventory-ledger/internal/domain"
	"github.com/jhoicas/inventory-ledger/internal/infrastructure/memory"
)

func TestUpsertWarehouse_CreaYActualiza(t *testing.T) {
	store := memory.NewStore()
	uc := catalog.NewCatalogUseCase(store, zerolog.Nop())
	ctx := context.Background()

	created, err := uc.UpsertWarehouse(ctx, "W1", dto.UpsertWarehouseRequest{Code: " B01 ", Name: "Principal"})
	require.NoError(t, err)
	assert.Equal(t, "B01", created.Code, "el código se guarda sin espacios")
	assert.True(t, created.Active, "sin active explícito la bodega queda activa")

	inactive := false
	updated, err := uc.UpsertWarehouse(ctx, "W1", dto.UpsertWarehouseRequest{Code: "B01", Name: "Principal", Active: &inactive})
	require.NoError(t, err)
	assert.False(t, updated.Active)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt, "created_at no cambia al actualizar")

	got, err := uc.GetWarehouse(ctx, "W1")
	require.NoError(t, err)
	assert.False(t, got.Active)
}

func TestUpsertProduct_UnidadPorDefecto(t *testing.T) {
	uc := catalog.NewCatalogUseCase(memory.NewStore(), zerolog.Nop())

	p, err := uc.UpsertProduct(context.Background(), "P1", dto.UpsertProductRequest{SKU: "SKU-1", Name: "Tornillo"})
	require.NoError(t, err)
	assert.Equal(t, "UND", p.UnitMeasure)

	p, err = uc.UpsertProduct(context.Background(), "P1", dto.UpsertProductRequest{SKU: "SKU-1", Name: "Tornillo", UnitMeasure: "kg"})
	require.NoError(t, err)
	assert.Equal(t, "KG", p.UnitMeasure)
}

func TestCatalog_Validaciones(t *testing.T) {
	uc := catalog.NewCatalogUseCase(memory.NewStore(), zerolog.Nop())
	ctx := context.Background()

	_, err := uc.UpsertWarehouse(ctx, "W1", dto.UpsertWarehouseRequest{Name: "sin código"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = uc.UpsertProduct(ctx, "", dto.UpsertProductRequest{SKU: "X", Name: "Y"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = uc.GetWarehouse(ctx, "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = uc.GetProduct(ctx, "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
