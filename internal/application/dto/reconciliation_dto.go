package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// SyncMissingBalancesRequest body para POST /api/inventory/reconciliation/sync-missing.
// MaxCreates <= 0 o mayor al máximo configurado se ajusta al máximo.
type SyncMissingBalancesRequest struct {
	WarehouseID *string `json:"warehouse_id,omitempty"`
	ProductID   *string `json:"product_id,omitempty"`
	MaxCreates  int     `json:"max_creates"`
}

// BalanceRowDTO fila de saldo creada por la sincronización.
type BalanceRowDTO struct {
	ID          string          `json:"id"`
	WarehouseID string          `json:"warehouse_id"`
	ProductID   string          `json:"product_id"`
	OnHand      decimal.Decimal `json:"on_hand"`
}

// SyncMissingBalancesResponse resultado de la sincronización aditiva.
type SyncMissingBalancesResponse struct {
	Created         int             `json:"created"`
	SkippedExisting int             `json:"skipped_existing"`
	ConsideredPairs int             `json:"considered_pairs"`
	Remaining       int             `json:"remaining"` // pares sin fila que quedaron fuera por el tope
	MaxCreates      int             `json:"max_creates"`
	CreatedRows     []BalanceRowDTO `json:"created_rows"`
}

// ReconcileRequest body para POST /api/inventory/reconciliation/run.
// SafeMode por defecto true: solo crea filas faltantes.
type ReconcileRequest struct {
	WarehouseID *string    `json:"warehouse_id,omitempty"`
	ProductID   *string    `json:"product_id,omitempty"`
	FromUTC     *time.Time `json:"from_utc,omitempty"`
	ToUTC       *time.Time `json:"to_utc,omitempty"`
	SafeMode    *bool      `json:"safe_mode,omitempty"`
	DryRun      bool       `json:"dry_run"`
}

// Acciones reportadas en BalanceDiffDTO.
const (
	DiffActionCreate = "create"
	DiffActionUpdate = "update"
)

// BalanceDiffDTO diferencia entre el saldo actual y el recalculado.
type BalanceDiffDTO struct {
	WarehouseID    string          `json:"warehouse_id"`
	ProductID      string          `json:"product_id"`
	Action         string          `json:"action"`
	CurrentOnHand  decimal.Decimal `json:"current_on_hand"`
	ComputedOnHand decimal.Decimal `json:"computed_on_hand"`
	Delta          decimal.Decimal `json:"delta"`
}

// ReconcileResponse resultado de la conciliación.
type ReconcileResponse struct {
	AffectedPairs   int              `json:"affected_pairs"`
	MissingCreated  int              `json:"missing_created"`
	UpdatedExisting int              `json:"updated_existing"`
	Unchanged       int              `json:"unchanged"`
	SafeMode        bool             `json:"safe_mode"`
	DryRun          bool             `json:"dry_run"`
	Diffs           []BalanceDiffDTO `json:"diffs"`
}
