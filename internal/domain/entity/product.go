package entity

import "time"

// Product representa un producto o SKU del catálogo.
type Product struct {
	ID          string
	SKU         string // código único
	Name        string
	UnitMeasure string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
