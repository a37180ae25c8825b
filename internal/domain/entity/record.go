package entity

import "time"

// Record agrupa los sellos de auditoría y borrado lógico comunes a las tablas
// del ledger. Los repositorios los asignan explícitamente al escribir
// (ver repository.StampCreated / StampUpdated / StampDeleted).
type Record struct {
	CreatedAt time.Time
	CreatedBy string
	UpdatedAt time.Time
	UpdatedBy string
	IsDeleted bool
	DeletedAt *time.Time
	DeletedBy string
}
