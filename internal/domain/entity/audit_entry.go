package entity

import "time"

// Acciones de auditoría emitidas por el ledger.
const (
	AuditActionCreateDraft  = "movement.create_draft"
	AuditActionUpdateHeader = "movement.update_header"
	AuditActionAddLine      = "movement.add_line"
	AuditActionReplaceLines = "movement.replace_lines"
	AuditActionPost         = "movement.post"
	AuditActionCancel       = "movement.cancel"
	AuditActionSyncMissing  = "reconciliation.sync_missing"
	AuditActionReconcile    = "reconciliation.run"
	AuditEntityMovement     = "inventory_movement"
	AuditEntityBalance      = "inventory_balance"
)

// AuditEntry es el evento que se entrega al sink de auditoría (fire-and-forget).
type AuditEntry struct {
	Action      string         `json:"action"`
	Entity      string         `json:"entity"`
	EntityID    string         `json:"entity_id,omitempty"`
	WarehouseID string         `json:"warehouse_id,omitempty"`
	ProductID   string         `json:"product_id,omitempty"`
	Success     bool           `json:"success"`
	Message     string         `json:"message,omitempty"`
	Payload     map[string]any `json:"payload,omitempty"`
	UserID      string         `json:"user_id"`
	OccurredAt  time.Time      `json:"occurred_at"`
}
