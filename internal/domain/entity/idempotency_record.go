package entity

import "time"

// IdempotencyRecord guarda el resultado de una escritura identificada por
// (Key, Endpoint, CallerID). Completed=false significa "en curso".
type IdempotencyRecord struct {
	ID           string
	Key          string
	Endpoint     string
	CallerID     string
	Completed    bool
	Success      bool
	StatusCode   int
	ResponseBody []byte
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
}
