package entity

import "time"

// Warehouse representa una bodega donde se almacena inventario.
// Solo las bodegas activas aceptan movimientos nuevos.
type Warehouse struct {
	ID        string
	Code      string
	Name      string
	Address   string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
