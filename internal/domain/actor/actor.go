// Package actor transporta la identidad del usuario que ejecuta la operación
// en el context.Context, para los campos de atribución (created_by, posted_by...).
package actor

import "context"

// System es la identidad usada cuando la petición no trae usuario.
const System = "system"

type ctxKey struct{}

// WithUserID devuelve un contexto hijo con el usuario actuante.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// FromContext devuelve el usuario actuante o System si no hay ninguno.
func FromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKey{}).(string); ok && v != "" {
		return v
	}
	return System
}
