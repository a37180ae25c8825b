package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateMovementRequest body para POST /api/inventory/movements (crea un borrador).
type CreateMovementRequest struct {
	WarehouseID string  `json:"warehouse_id"`
	Kind        string  `json:"kind"` // IN, OUT, ADJUSTMENT (sin distinguir mayúsculas)
	ReferenceNo string  `json:"reference_no"`
	Notes       *string `json:"notes,omitempty"`
}

// UpdateMovementHeaderRequest body para PATCH /api/inventory/movements/:id.
// Los campos nil no se modifican.
type UpdateMovementHeaderRequest struct {
	ReferenceNo *string `json:"reference_no,omitempty"`
	Notes       *string `json:"notes,omitempty"`
}

// MovementLineRequest una línea (producto, cantidad > 0).
type MovementLineRequest struct {
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// ReplaceMovementLinesRequest body para PUT /api/inventory/movements/:id/lines.
type ReplaceMovementLinesRequest struct {
	Lines []MovementLineRequest `json:"lines"`
}

// MovementLineResponse línea activa de un movimiento.
type MovementLineResponse struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// MovementResponse cabecera + líneas activas.
type MovementResponse struct {
	ID          string                 `json:"id"`
	WarehouseID string                 `json:"warehouse_id"`
	Kind        string                 `json:"kind"`
	Status      string                 `json:"status"`
	ReferenceNo string                 `json:"reference_no"`
	Notes       *string                `json:"notes,omitempty"`
	PostedAt    *time.Time             `json:"posted_at,omitempty"`
	PostedBy    string                 `json:"posted_by,omitempty"`
	CancelledAt *time.Time             `json:"cancelled_at,omitempty"`
	CancelledBy string                 `json:"cancelled_by,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	CreatedBy   string                 `json:"created_by"`
	UpdatedAt   time.Time              `json:"updated_at"`
	Lines       []MovementLineResponse `json:"lines"`
}

// BalanceResponse saldo de un par (bodega, producto).
type BalanceResponse struct {
	ID          string          `json:"id"`
	WarehouseID string          `json:"warehouse_id"`
	ProductID   string          `json:"product_id"`
	OnHand      decimal.Decimal `json:"on_hand"`
	Version     int64           `json:"version"`
	UpdatedAt   time.Time       `json:"updated_at"`
	UpdatedBy   string          `json:"updated_by"`
}

// VoucherLine línea del comprobante con los datos del catálogo resueltos.
type VoucherLine struct {
	ProductID   string
	SKU         string
	Name        string
	UnitMeasure string
	Quantity    decimal.Decimal
}

// MovementVoucher datos para la representación impresa de un movimiento.
type MovementVoucher struct {
	Movement      *MovementResponse
	WarehouseCode string
	WarehouseName string
	Lines         []VoucherLine
	TotalQuantity decimal.Decimal
}
