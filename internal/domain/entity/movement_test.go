package entity_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
)

// ──────────────────────────────────────────────────────────────────────────────
// Tipos y direcciones
// ──────────────────────────────────────────────────────────────────────────────

func TestParseMovementKind(t *testing.T) {
	cases := map[string]struct {
		want entity.MovementKind
		ok   bool
	}{
		"IN":         {entity.MovementKindIN, true},
		" out ":      {entity.MovementKindOUT, true},
		"adjustment": {entity.MovementKindADJUSTMENT, true},
		"TRANSFER":   {entity.MovementKind("TRANSFER"), false},
		"":           {entity.MovementKind(""), false},
	}
	for in, tc := range cases {
		got, ok := entity.ParseMovementKind(in)
		assert.Equal(t, tc.ok, ok, "entrada %q", in)
		assert.Equal(t, tc.want, got, "entrada %q", in)
	}
}

func TestLineDelta_SignoPorTipo(t *testing.T) {
	qty := decimal.RequireFromString("2.5")

	d, err := entity.LineDelta(entity.MovementKindIN, qty)
	require.NoError(t, err)
	assert.True(t, d.Equal(qty), "IN suma")

	d, err = entity.LineDelta(entity.MovementKindOUT, qty)
	require.NoError(t, err)
	assert.True(t, d.Equal(qty.Neg()), "OUT resta")

	d, err = entity.LineDelta(entity.MovementKindADJUSTMENT, qty)
	require.NoError(t, err)
	assert.True(t, d.Equal(qty), "ADJUSTMENT siempre suma")

	_, err = entity.LineDelta(entity.MovementKind("SCRAP"), qty)
	assert.Error(t, err, "un tipo fuera de la tabla no tiene dirección")
}

// ──────────────────────────────────────────────────────────────────────────────
// Máquina de estados
// ──────────────────────────────────────────────────────────────────────────────

func TestMovement_TransicionesValidas(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	m := &entity.Movement{Status: entity.MovementStatusDraft}
	assert.True(t, m.IsEditable())

	require.NoError(t, m.MarkPosted("u1", at))
	assert.Equal(t, entity.MovementStatusPosted, m.Status)
	require.NotNil(t, m.PostedAt)
	assert.Equal(t, at, *m.PostedAt)
	assert.Equal(t, "u1", m.PostedBy)
	assert.False(t, m.IsEditable(), "un movimiento posteado no se edita")

	require.NoError(t, m.MarkCancelled("u2", at.Add(time.Hour)))
	assert.Equal(t, entity.MovementStatusCancelled, m.Status)
	assert.Equal(t, "u2", m.CancelledBy)
	assert.Equal(t, at, *m.PostedAt, "posted_at no cambia al anular")
}

func TestMovement_TransicionesIlegales(t *testing.T) {
	now := time.Now().UTC()

	draft := &entity.Movement{Status: entity.MovementStatusDraft}
	err := draft.MarkCancelled("u", now)
	var illegal *entity.IllegalTransitionError
	require.True(t, errors.As(err, &illegal), "Draft -> Cancelled no existe")
	assert.Equal(t, entity.MovementStatusDraft, illegal.From)
	assert.Equal(t, entity.MovementStatusDraft, draft.Status, "el estado no cambia")

	posted := &entity.Movement{Status: entity.MovementStatusPosted}
	assert.Error(t, posted.MarkPosted("u", now), "no se postea dos veces")

	cancelled := &entity.Movement{Status: entity.MovementStatusCancelled}
	assert.Error(t, cancelled.MarkPosted("u", now))
	assert.Error(t, cancelled.MarkCancelled("u", now), "Cancelled es terminal")
}

func TestParseMovementStatus(t *testing.T) {
	s, ok := entity.ParseMovementStatus(1)
	assert.True(t, ok)
	assert.Equal(t, "Posted", s.String())

	_, ok = entity.ParseMovementStatus(7)
	assert.False(t, ok)

	b, err := entity.MovementStatusCancelled.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "Cancelled", string(b))
}
