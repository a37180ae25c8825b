package entity

import "github.com/shopspring/decimal"

// Balance es el saldo disponible de un producto en una bodega (una fila viva por par).
// Version se incrementa en cada escritura y permite compare-and-write.
type Balance struct {
	ID          string
	WarehouseID string
	ProductID   string
	OnHand      decimal.Decimal
	Version     int64
	Record
}

// Pair identifica un par (bodega, producto).
type Pair struct {
	WarehouseID string
	ProductID   string
}

// Pair devuelve la llave del saldo.
func (b *Balance) Pair() Pair {
	return Pair{WarehouseID: b.WarehouseID, ProductID: b.ProductID}
}
