package dto

// ErrorResponse cuerpo de error HTTP.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// InsufficientStockDetails acompaña a INSUFFICIENT_STOCK para que el cliente decida cómo seguir.
type InsufficientStockDetails struct {
	WarehouseID string `json:"warehouse_id"`
	ProductID   string `json:"product_id"`
	OnHand      string `json:"on_hand"`
	Delta       string `json:"delta"`
}
