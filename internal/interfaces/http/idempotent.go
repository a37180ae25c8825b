package http

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/inventory-ledger/internal/application/idempotency"
)

// HeaderReplayed marca las respuestas servidas desde el ledger de idempotencia.
const HeaderReplayed = "Idempotent-Replayed"

// writeExecutor envuelve las escrituras con el gateway de idempotencia.
type writeExecutor struct {
	gw     *idempotency.Gateway
	header string
	log    zerolog.Logger
}

// run ejecuta fn bajo la clave del header configurado. El error de negocio se serializa
// dentro del Outcome para que la repetición devuelva exactamente el mismo status y cuerpo.
func (w writeExecutor) run(c *fiber.Ctx, endpoint string, okStatus int, fn func(ctx context.Context) (any, error)) error {
	req := idempotency.Request{
		Key:        c.Get(w.header),
		Endpoint:   endpoint,
		CallerID:   callerID(c),
		Replayable: true,
	}
	resp, err := w.gw.Execute(c.UserContext(), req, func(ctx context.Context) idempotency.Outcome {
		body, err := fn(ctx)
		if err != nil {
			status, errBody := errorResponse(err)
			if status >= fiber.StatusInternalServerError {
				w.log.Error().Err(err).Str("endpoint", endpoint).Str("code", errBody.Code).Msg("escritura fallida")
			}
			return idempotency.Outcome{StatusCode: status, Body: errBody, Err: err}
		}
		return idempotency.Outcome{StatusCode: okStatus, Body: body}
	})
	if err != nil {
		return writeError(c, w.log, err)
	}
	if resp.Replayed {
		c.Set(HeaderReplayed, "true")
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Status(resp.StatusCode).Send(resp.Body)
}
