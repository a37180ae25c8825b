package http

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/inventory-ledger/internal/domain"
)

func TestErrorResponse_MapeoDeErroresDeDominio(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validación", domain.Validation("cantidad inválida"), fiber.StatusBadRequest, "VALIDATION"},
		{"no encontrado", fmt.Errorf("buscar: %w", domain.ErrNotFound), fiber.StatusNotFound, "NOT_FOUND"},
		{"en curso", domain.ErrIdempotencyInFlight, fiber.StatusConflict, "IDEMPOTENCY_IN_FLIGHT"},
		{"duplicado no repetible", domain.ErrDuplicateBlocked, fiber.StatusConflict, "DUPLICATE_BLOCKED"},
		{"integridad", domain.DataIntegrity("saldo negativo"), fiber.StatusInternalServerError, "DATA_INTEGRITY"},
		{"desconocido", errors.New("boom"), fiber.StatusInternalServerError, "INTERNAL"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := errorResponse(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.code, body.Code)
		})
	}
}
