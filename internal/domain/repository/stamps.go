package repository

import (
	"context"
	"time"

	"github.com/jhoicas/inventory-ledger/internal/domain/actor"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
)

// Los sellos de auditoría se aplican de forma explícita en la frontera de
// escritura de cada repositorio (postgres y memory), nunca con hooks implícitos.

// StampCreated fija created_* y updated_* para una fila nueva.
func StampCreated(ctx context.Context, r *entity.Record, now time.Time) {
	by := actor.FromContext(ctx)
	r.CreatedAt, r.CreatedBy = now, by
	r.UpdatedAt, r.UpdatedBy = now, by
}

// StampUpdated fija updated_* para una fila modificada.
func StampUpdated(ctx context.Context, r *entity.Record, now time.Time) {
	r.UpdatedAt, r.UpdatedBy = now, actor.FromContext(ctx)
}

// StampDeleted marca el borrado lógico (la fila nunca se elimina físicamente).
func StampDeleted(ctx context.Context, r *entity.Record, now time.Time) {
	by := actor.FromContext(ctx)
	r.IsDeleted = true
	r.DeletedAt, r.DeletedBy = &now, by
	r.UpdatedAt, r.UpdatedBy = now, by
}
