// Package memory implementa los puertos del ledger en memoria (STORE_DRIVER=memory y tests).
// Cada transacción trabaja sobre una copia del estado y la publica solo si fn no falla;
// el mutex del store hace de candado del ledger y serializa todas las transacciones.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jhoicas/inventory-ledger/internal/application/inventory"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
)

var _ inventory.TxRunner = (*Store)(nil)

type state struct {
	warehouses map[string]entity.Warehouse
	products   map[string]entity.Product
	movements  map[string]entity.Movement
	lines      []entity.MovementLine
	balances   map[entity.Pair]entity.Balance
}

func newState() *state {
	return &state{
		warehouses: map[string]entity.Warehouse{},
		products:   map[string]entity.Product{},
		movements:  map[string]entity.Movement{},
		balances:   map[entity.Pair]entity.Balance{},
	}
}

func (s *state) clone() *state {
	c := &state{
		warehouses: make(map[string]entity.Warehouse, len(s.warehouses)),
		products:   make(map[string]entity.Product, len(s.products)),
		movements:  make(map[string]entity.Movement, len(s.movements)),
		lines:      make([]entity.MovementLine, len(s.lines)),
		balances:   make(map[entity.Pair]entity.Balance, len(s.balances)),
	}
	for k, v := range s.warehouses {
		c.warehouses[k] = v
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.movements {
		c.movements[k] = v
	}
	copy(c.lines, s.lines)
	for k, v := range s.balances {
		c.balances[k] = v
	}
	return c
}

// Store guarda bodegas, productos, movimientos, saldos y registros de idempotencia.
type Store struct {
	mu   sync.Mutex
	data *state
	now  func() time.Time

	idemMu sync.Mutex
	idem   map[string]entity.IdempotencyRecord
}

// NewStore crea un store vacío.
func NewStore() *Store {
	return &Store{
		data: newState(),
		now:  func() time.Time { return time.Now().UTC() },
		idem: map[string]entity.IdempotencyRecord{},
	}
}

// SetClock reemplaza el reloj usado para los sellos (tests).
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Run ejecuta fn sobre una copia del estado y la publica si fn no devuelve error.
func (s *Store) Run(ctx context.Context, fn func(r inventory.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.data.clone()
	v := &view{store: s, tx: work}
	if err := fn(v.repos()); err != nil {
		return err
	}
	s.data = work
	return nil
}

// RunExclusive es equivalente a Run: el mutex ya excluye a cualquier otra transacción.
func (s *Store) RunExclusive(ctx context.Context, fn func(r inventory.Repos) error) error {
	return s.Run(ctx, fn)
}

// Movements devuelve el repositorio de movimientos en modo autocommit.
func (s *Store) Movements() *MovementRepo { return &MovementRepo{v: &view{store: s}} }

// Balances devuelve el repositorio de saldos en modo autocommit.
func (s *Store) Balances() *BalanceRepo { return &BalanceRepo{v: &view{store: s}} }

// Warehouses devuelve el repositorio de bodegas en modo autocommit.
func (s *Store) Warehouses() *WarehouseRepo { return &WarehouseRepo{v: &view{store: s}} }

// Products devuelve el repositorio de productos en modo autocommit.
func (s *Store) Products() *ProductRepo { return &ProductRepo{v: &view{store: s}} }

// Idempotency devuelve el ledger de idempotencia.
func (s *Store) Idempotency() *IdempotencyRepo { return &IdempotencyRepo{s: s} }

// view resuelve el estado sobre el que opera un repositorio: el de la transacción
// en curso (sin tomar el mutex, ya tomado por Run) o el publicado (tomando el mutex).
type view struct {
	store *Store
	tx    *state
}

func (v *view) repos() inventory.Repos {
	return inventory.Repos{
		Movements:  &MovementRepo{v: v},
		Balances:   &BalanceRepo{v: v},
		Warehouses: &WarehouseRepo{v: v},
		Products:   &ProductRepo{v: v},
	}
}

func (v *view) with(ctx context.Context, fn func(st *state, now time.Time) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if v.tx != nil {
		return fn(v.tx, v.store.now())
	}
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	return fn(v.store.data, v.store.now())
}

func sortBalances(out []*entity.Balance) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].WarehouseID != out[j].WarehouseID {
			return out[i].WarehouseID < out[j].WarehouseID
		}
		return out[i].ProductID < out[j].ProductID
	})
}
