package dto

import "time"

// UpsertWarehouseRequest body para PUT /api/catalog/warehouses/:id.
type UpsertWarehouseRequest struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Active  *bool  `json:"active,omitempty"` // nil = true
}

// WarehouseResponse respuesta de bodega.
type WarehouseResponse struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UpsertProductRequest body para PUT /api/catalog/products/:id.
type UpsertProductRequest struct {
	SKU         string `json:"sku"`
	Name        string `json:"name"`
	UnitMeasure string `json:"unit_measure"` // vacío = UND
	Active      *bool  `json:"active,omitempty"`
}

// ProductResponse respuesta de producto.
type ProductResponse struct {
	ID          string    `json:"id"`
	SKU         string    `json:"sku"`
	Name        string    `json:"name"`
	UnitMeasure string    `json:"unit_measure"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
