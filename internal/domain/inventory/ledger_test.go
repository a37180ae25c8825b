package inventory_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventory-ledger/internal/domain"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/internal/domain/inventory"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestApplyDelta(t *testing.T) {
	b := &entity.Balance{WarehouseID: "W", ProductID: "P", OnHand: dec("10")}

	require.NoError(t, inventory.ApplyDelta(b, dec("-4")))
	assert.True(t, b.OnHand.Equal(dec("6")))

	require.NoError(t, inventory.ApplyDelta(b, dec("-6")), "llegar exactamente a cero es válido")
	assert.True(t, b.OnHand.IsZero())

	err := inventory.ApplyDelta(b, dec("-0.001"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock))
	var ise *domain.InsufficientStockError
	require.True(t, errors.As(err, &ise))
	assert.Equal(t, "P", ise.ProductID)
	assert.True(t, ise.OnHand.IsZero(), "reporta el disponible previo")
	assert.True(t, ise.Delta.Equal(dec("-0.001")))
	assert.True(t, b.OnHand.IsZero(), "el saldo no se modifica al rechazar")
}

func TestExpectedBalances(t *testing.T) {
	at := time.Now().UTC()
	lines := []entity.PostedLine{
		{MovementID: "m1", WarehouseID: "W2", ProductID: "P1", Kind: entity.MovementKindIN, Quantity: dec("5"), PostedAt: at},
		{MovementID: "m2", WarehouseID: "W1", ProductID: "P1", Kind: entity.MovementKindIN, Quantity: dec("10"), PostedAt: at},
		{MovementID: "m3", WarehouseID: "W1", ProductID: "P1", Kind: entity.MovementKindOUT, Quantity: dec("4"), PostedAt: at},
		{MovementID: "m4", WarehouseID: "W1", ProductID: "P1", Kind: entity.MovementKindADJUSTMENT, Quantity: dec("1.5"), PostedAt: at},
	}
	totals, pairs, err := inventory.ExpectedBalances(lines)
	require.NoError(t, err)

	require.Len(t, pairs, 2)
	assert.Equal(t, entity.Pair{WarehouseID: "W1", ProductID: "P1"}, pairs[0], "orden por bodega y producto")
	assert.True(t, totals[pairs[0]].Equal(dec("7.5")))
	assert.True(t, totals[pairs[1]].Equal(dec("5")))
}

func TestExpectedBalances_TipoDesconocidoFallaRapido(t *testing.T) {
	lines := []entity.PostedLine{
		{MovementID: "m1", WarehouseID: "W", ProductID: "P", Kind: entity.MovementKindIN, Quantity: dec("1")},
		{MovementID: "m2", WarehouseID: "W", ProductID: "P", Kind: entity.MovementKind("TRANSFER"), Quantity: dec("1")},
	}
	_, _, err := inventory.ExpectedBalances(lines)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDataIntegrity))
	assert.Contains(t, err.Error(), "m2")
}
