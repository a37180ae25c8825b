package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MovementKind tipo de movimiento de inventario.
type MovementKind string

// Tipos de movimiento de inventario.
const (
	MovementKindIN         MovementKind = "IN"         // entrada
	MovementKindOUT        MovementKind = "OUT"        // salida
	MovementKindADJUSTMENT MovementKind = "ADJUSTMENT" // ajuste (siempre suma)
)

// kindDirections es la única tabla tipo → signo. Posteo, anulación y
// conciliación calculan el delta a través de LineDelta.
var kindDirections = map[MovementKind]int64{
	MovementKindIN:         1,
	MovementKindOUT:        -1,
	MovementKindADJUSTMENT: 1,
}

// ParseMovementKind normaliza a mayúsculas y valida contra la tabla de direcciones.
func ParseMovementKind(s string) (MovementKind, bool) {
	k := MovementKind(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := kindDirections[k]
	return k, ok
}

// Direction devuelve +1 o -1; ok=false si el tipo no está en la tabla.
func (k MovementKind) Direction() (int64, bool) {
	d, ok := kindDirections[k]
	return d, ok
}

// LineDelta calcula direction(kind) * quantity.
func LineDelta(kind MovementKind, quantity decimal.Decimal) (decimal.Decimal, error) {
	d, ok := kind.Direction()
	if !ok {
		return decimal.Zero, fmt.Errorf("tipo de movimiento desconocido %q", string(kind))
	}
	return quantity.Mul(decimal.NewFromInt(d)), nil
}

// MovementStatus estado del ciclo de vida. Los valores numéricos son los persistidos.
type MovementStatus int16

const (
	MovementStatusDraft     MovementStatus = 0
	MovementStatusPosted    MovementStatus = 1
	MovementStatusCancelled MovementStatus = 2
)

// ParseMovementStatus convierte el valor persistido; ok=false si no es un estado conocido.
func ParseMovementStatus(v int16) (MovementStatus, bool) {
	s := MovementStatus(v)
	switch s {
	case MovementStatusDraft, MovementStatusPosted, MovementStatusCancelled:
		return s, true
	}
	return s, false
}

func (s MovementStatus) String() string {
	switch s {
	case MovementStatusDraft:
		return "Draft"
	case MovementStatusPosted:
		return "Posted"
	case MovementStatusCancelled:
		return "Cancelled"
	}
	return fmt.Sprintf("MovementStatus(%d)", int16(s))
}

// MarshalText serializa el estado por nombre en las respuestas JSON.
func (s MovementStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// statusTransitions: Draft -> Posted -> Cancelled. Ninguna otra arista existe.
var statusTransitions = map[MovementStatus]MovementStatus{
	MovementStatusDraft:  MovementStatusPosted,
	MovementStatusPosted: MovementStatusCancelled,
}

// Movement cabecera de un movimiento de inventario.
type Movement struct {
	ID          string
	WarehouseID string
	Kind        MovementKind
	Status      MovementStatus
	ReferenceNo string
	Notes       *string
	PostedAt    *time.Time
	PostedBy    string
	CancelledAt *time.Time
	CancelledBy string
	Record

	Lines []*MovementLine // líneas activas, cargadas por el caso de uso
}

// MovementLine cantidad de un producto dentro de un movimiento. Quantity > 0 siempre;
// el signo lo determina el tipo del movimiento.
type MovementLine struct {
	ID         string
	MovementID string
	ProductID  string
	Quantity   decimal.Decimal
	Record
}

// IsEditable indica si la cabecera y las líneas pueden modificarse.
func (m *Movement) IsEditable() bool {
	return m.Status == MovementStatusDraft
}

// IllegalTransitionError se devuelve cuando la arista pedida no existe.
type IllegalTransitionError struct {
	From MovementStatus
	To   MovementStatus
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("transición %s -> %s no permitida", e.From, e.To)
}

func (m *Movement) advance(to MovementStatus) error {
	next, ok := statusTransitions[m.Status]
	if !ok || next != to {
		return &IllegalTransitionError{From: m.Status, To: to}
	}
	m.Status = next
	return nil
}

// MarkPosted aplica Draft -> Posted y fija posted_at/posted_by una única vez.
func (m *Movement) MarkPosted(by string, at time.Time) error {
	if err := m.advance(MovementStatusPosted); err != nil {
		return err
	}
	m.PostedAt = &at
	m.PostedBy = by
	return nil
}

// MarkCancelled aplica Posted -> Cancelled y fija cancelled_at/cancelled_by.
func (m *Movement) MarkCancelled(by string, at time.Time) error {
	if err := m.advance(MovementStatusCancelled); err != nil {
		return err
	}
	m.CancelledAt = &at
	m.CancelledBy = by
	return nil
}

// PostedLine es la proyección de una línea activa de un movimiento Posted,
// usada por la conciliación para recalcular saldos.
type PostedLine struct {
	MovementID  string
	WarehouseID string
	ProductID   string
	Kind        MovementKind
	Quantity    decimal.Decimal
	PostedAt    time.Time
}
