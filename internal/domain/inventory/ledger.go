// Package inventory contiene las reglas puras del ledger: aplicación de deltas
// sobre saldos y el recálculo de saldos esperados a partir del histórico.
package inventory

import (
	"sort"

	"github.com/jhoicas/inventory-ledger/internal/domain"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// ApplyDelta suma delta al saldo del balance. Si el resultado es negativo no
// modifica el balance y devuelve *domain.InsufficientStockError.
func ApplyDelta(b *entity.Balance, delta decimal.Decimal) error {
	next := b.OnHand.Add(delta)
	if next.IsNegative() {
		return &domain.InsufficientStockError{
			WarehouseID: b.WarehouseID,
			ProductID:   b.ProductID,
			OnHand:      b.OnHand,
			Delta:       delta,
		}
	}
	b.OnHand = next
	return nil
}

// ExpectedBalances suma direction(kind) * quantity por par. Devuelve los totales
// y los pares en orden determinista (bodega, producto). Un tipo fuera de la
// tabla de direcciones es un error de integridad: no se clasifica a ciegas.
func ExpectedBalances(lines []entity.PostedLine) (map[entity.Pair]decimal.Decimal, []entity.Pair, error) {
	totals := make(map[entity.Pair]decimal.Decimal)
	for _, l := range lines {
		delta, err := entity.LineDelta(l.Kind, l.Quantity)
		if err != nil {
			return nil, nil, domain.DataIntegrity("movimiento %s: %v", l.MovementID, err)
		}
		p := entity.Pair{WarehouseID: l.WarehouseID, ProductID: l.ProductID}
		totals[p] = totals[p].Add(delta)
	}
	return totals, SortedPairs(totals), nil
}

// SortedPairs ordena las llaves por bodega y luego producto. El orden fijo
// también evita interbloqueos al bloquear filas de saldo.
func SortedPairs[V any](m map[entity.Pair]V) []entity.Pair {
	pairs := make([]entity.Pair, 0, len(m))
	for p := range m {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].WarehouseID != pairs[j].WarehouseID {
			return pairs[i].WarehouseID < pairs[j].WarehouseID
		}
		return pairs[i].ProductID < pairs[j].ProductID
	})
	return pairs
}
