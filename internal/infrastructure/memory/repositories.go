package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventory-ledger/internal/domain"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/internal/domain/repository"
)

var (
	_ repository.InventoryMovementRepository = (*MovementRepo)(nil)
	_ repository.BalanceRepository           = (*BalanceRepo)(nil)
	_ repository.WarehouseRepository         = (*WarehouseRepo)(nil)
	_ repository.ProductRepository           = (*ProductRepo)(nil)
)

// ─── Movimientos ─────────────────────────────────────────────────────────────

// MovementRepo movimientos y líneas en memoria.
type MovementRepo struct{ v *view }

func (r *MovementRepo) Create(ctx context.Context, m *entity.Movement) error {
	return r.v.with(ctx, func(st *state, now time.Time) error {
		if _, ok := st.movements[m.ID]; ok {
			return domain.DataIntegrity("movimiento %s duplicado", m.ID)
		}
		repository.StampCreated(ctx, &m.Record, now)
		cp := *m
		cp.Lines = nil
		st.movements[m.ID] = cp
		return nil
	})
}

func (r *MovementRepo) GetByID(ctx context.Context, id string) (*entity.Movement, error) {
	var out *entity.Movement
	err := r.v.with(ctx, func(st *state, _ time.Time) error {
		if m, ok := st.movements[id]; ok && !m.IsDeleted {
			out = &m
		}
		return nil
	})
	return out, err
}

// GetByIDForUpdate en memoria equivale a GetByID: la transacción ya es exclusiva.
func (r *MovementRepo) GetByIDForUpdate(ctx context.Context, id string) (*entity.Movement, error) {
	return r.GetByID(ctx, id)
}

func (r *MovementRepo) UpdateHeader(ctx context.Context, m *entity.Movement) error {
	return r.v.with(ctx, func(st *state, now time.Time) error {
		cur, ok := st.movements[m.ID]
		if !ok || cur.IsDeleted {
			return domain.NotFound("movimiento %s", m.ID)
		}
		if cur.Status != entity.MovementStatusDraft {
			return domain.InvalidState("solo se editan movimientos en Draft (estado actual %s)", cur.Status)
		}
		repository.StampUpdated(ctx, &m.Record, now)
		cur.ReferenceNo = m.ReferenceNo
		cur.Notes = m.Notes
		cur.UpdatedAt, cur.UpdatedBy = m.UpdatedAt, m.UpdatedBy
		st.movements[m.ID] = cur
		return nil
	})
}

func (r *MovementRepo) UpdateStatus(ctx context.Context, m *entity.Movement) error {
	return r.v.with(ctx, func(st *state, now time.Time) error {
		cur, ok := st.movements[m.ID]
		if !ok || cur.IsDeleted {
			return domain.NotFound("movimiento %s", m.ID)
		}
		repository.StampUpdated(ctx, &m.Record, now)
		cur.Status = m.Status
		cur.PostedAt, cur.PostedBy = m.PostedAt, m.PostedBy
		cur.CancelledAt, cur.CancelledBy = m.CancelledAt, m.CancelledBy
		cur.UpdatedAt, cur.UpdatedBy = m.UpdatedAt, m.UpdatedBy
		st.movements[m.ID] = cur
		return nil
	})
}

func (r *MovementRepo) ListActiveLines(ctx context.Context, movementID string) ([]*entity.MovementLine, error) {
	out := []*entity.MovementLine{}
	err := r.v.with(ctx, func(st *state, _ time.Time) error {
		for _, l := range st.lines {
			if l.MovementID == movementID && !l.IsDeleted {
				cp := l
				out = append(out, &cp)
			}
		}
		return nil
	})
	return out, err
}

func (r *MovementRepo) AddLines(ctx context.Context, lines []*entity.MovementLine) error {
	return r.v.with(ctx, func(st *state, now time.Time) error {
		for _, l := range lines {
			repository.StampCreated(ctx, &l.Record, now)
			st.lines = append(st.lines, *l)
		}
		return nil
	})
}

func (r *MovementRepo) SoftDeleteLines(ctx context.Context, movementID string) error {
	return r.v.with(ctx, func(st *state, now time.Time) error {
		for i := range st.lines {
			if st.lines[i].MovementID == movementID && !st.lines[i].IsDeleted {
				repository.StampDeleted(ctx, &st.lines[i].Record, now)
			}
		}
		return nil
	})
}

func (r *MovementRepo) ListPostedLines(ctx context.Context, f repository.PostedLineFilter) ([]entity.PostedLine, error) {
	var out []entity.PostedLine
	err := r.v.with(ctx, func(st *state, _ time.Time) error {
		for _, l := range st.lines {
			if l.IsDeleted {
				continue
			}
			m, ok := st.movements[l.MovementID]
			if !ok || m.IsDeleted || m.Status != entity.MovementStatusPosted || m.PostedAt == nil {
				continue
			}
			if f.WarehouseID != nil && m.WarehouseID != *f.WarehouseID {
				continue
			}
			if f.ProductID != nil && l.ProductID != *f.ProductID {
				continue
			}
			if f.From != nil && m.PostedAt.Before(*f.From) {
				continue
			}
			if f.To != nil && m.PostedAt.After(*f.To) {
				continue
			}
			out = append(out, entity.PostedLine{
				MovementID:  m.ID,
				WarehouseID: m.WarehouseID,
				ProductID:   l.ProductID,
				Kind:        m.Kind,
				Quantity:    l.Quantity,
				PostedAt:    *m.PostedAt,
			})
		}
		return nil
	})
	return out, err
}

// ─── Saldos ──────────────────────────────────────────────────────────────────

// BalanceRepo saldos por par en memoria.
type BalanceRepo struct{ v *view }

func (r *BalanceRepo) Get(ctx context.Context, warehouseID, productID string) (*entity.Balance, error) {
	var out *entity.Balance
	err := r.v.with(ctx, func(st *state, _ time.Time) error {
		if b, ok := st.balances[entity.Pair{WarehouseID: warehouseID, ProductID: productID}]; ok && !b.IsDeleted {
			out = &b
		}
		return nil
	})
	return out, err
}

func (r *BalanceRepo) GetForUpdate(ctx context.Context, warehouseID, productID string) (*entity.Balance, error) {
	return r.Get(ctx, warehouseID, productID)
}

func (r *BalanceRepo) EnsureForUpdate(ctx context.Context, warehouseID, productID string) (*entity.Balance, error) {
	var out *entity.Balance
	err := r.v.with(ctx, func(st *state, now time.Time) error {
		p := entity.Pair{WarehouseID: warehouseID, ProductID: productID}
		b, ok := st.balances[p]
		if !ok || b.IsDeleted {
			b = entity.Balance{ID: uuid.New().String(), WarehouseID: warehouseID, ProductID: productID, OnHand: decimal.Zero}
			repository.StampCreated(ctx, &b.Record, now)
			st.balances[p] = b
		}
		out = &b
		return nil
	})
	return out, err
}

func (r *BalanceRepo) CreateIfMissing(ctx context.Context, b *entity.Balance) (bool, error) {
	created := false
	err := r.v.with(ctx, func(st *state, now time.Time) error {
		p := b.Pair()
		if cur, ok := st.balances[p]; ok && !cur.IsDeleted {
			return nil
		}
		if b.OnHand.IsNegative() {
			return domain.DataIntegrity("saldo negativo para bodega %s producto %s", b.WarehouseID, b.ProductID)
		}
		repository.StampCreated(ctx, &b.Record, now)
		b.Version = 0
		st.balances[p] = *b
		created = true
		return nil
	})
	return created, err
}

func (r *BalanceRepo) Update(ctx context.Context, b *entity.Balance) error {
	return r.v.with(ctx, func(st *state, now time.Time) error {
		p := b.Pair()
		cur, ok := st.balances[p]
		if !ok || cur.IsDeleted || cur.Version != b.Version {
			return domain.ErrConcurrentModification
		}
		if b.OnHand.IsNegative() {
			return domain.DataIntegrity("saldo negativo para bodega %s producto %s", b.WarehouseID, b.ProductID)
		}
		repository.StampUpdated(ctx, &b.Record, now)
		b.Version++
		cur.OnHand = b.OnHand
		cur.Version = b.Version
		cur.UpdatedAt, cur.UpdatedBy = b.UpdatedAt, b.UpdatedBy
		st.balances[p] = cur
		return nil
	})
}

func (r *BalanceRepo) ListForUpdate(ctx context.Context, f repository.BalanceFilter) ([]*entity.Balance, error) {
	return r.List(ctx, f)
}

func (r *BalanceRepo) List(ctx context.Context, f repository.BalanceFilter) ([]*entity.Balance, error) {
	var out []*entity.Balance
	err := r.v.with(ctx, func(st *state, _ time.Time) error {
		for _, b := range st.balances {
			if b.IsDeleted {
				continue
			}
			if f.WarehouseID != nil && b.WarehouseID != *f.WarehouseID {
				continue
			}
			if f.ProductID != nil && b.ProductID != *f.ProductID {
				continue
			}
			cp := b
			out = append(out, &cp)
		}
		return nil
	})
	sortBalances(out)
	return out, err
}

// ─── Catálogo ────────────────────────────────────────────────────────────────

// WarehouseRepo bodegas en memoria.
type WarehouseRepo struct{ v *view }

func (r *WarehouseRepo) GetByID(ctx context.Context, id string) (*entity.Warehouse, error) {
	var out *entity.Warehouse
	err := r.v.with(ctx, func(st *state, _ time.Time) error {
		if w, ok := st.warehouses[id]; ok {
			out = &w
		}
		return nil
	})
	return out, err
}

func (r *WarehouseRepo) Upsert(ctx context.Context, w *entity.Warehouse) error {
	return r.v.with(ctx, func(st *state, now time.Time) error {
		if cur, ok := st.warehouses[w.ID]; ok {
			w.CreatedAt = cur.CreatedAt
		} else {
			w.CreatedAt = now
		}
		w.UpdatedAt = now
		st.warehouses[w.ID] = *w
		return nil
	})
}

// ProductRepo productos en memoria.
type ProductRepo struct{ v *view }

func (r *ProductRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	var out *entity.Product
	err := r.v.with(ctx, func(st *state, _ time.Time) error {
		if p, ok := st.products[id]; ok {
			out = &p
		}
		return nil
	})
	return out, err
}

func (r *ProductRepo) GetByIDs(ctx context.Context, ids []string) (map[string]*entity.Product, error) {
	out := make(map[string]*entity.Product, len(ids))
	err := r.v.with(ctx, func(st *state, _ time.Time) error {
		for _, id := range ids {
			if p, ok := st.products[id]; ok {
				cp := p
				out[id] = &cp
			}
		}
		return nil
	})
	return out, err
}

func (r *ProductRepo) Upsert(ctx context.Context, p *entity.Product) error {
	return r.v.with(ctx, func(st *state, now time.Time) error {
		if cur, ok := st.products[p.ID]; ok {
			p.CreatedAt = cur.CreatedAt
		} else {
			p.CreatedAt = now
		}
		p.UpdatedAt = now
		st.products[p.ID] = *p
		return nil
	})
}

// ─── Helpers de siembra (tests y arranque en memoria) ───────────────────────

// AddWarehouse registra una bodega activa.
func (s *Store) AddWarehouse(id, code, name string) {
	_ = s.Warehouses().Upsert(context.Background(), &entity.Warehouse{ID: id, Code: code, Name: name, Active: true})
}

// AddProduct registra un producto activo.
func (s *Store) AddProduct(id, sku, name string) {
	_ = s.Products().Upsert(context.Background(), &entity.Product{ID: id, SKU: sku, Name: name, UnitMeasure: "UND", Active: true})
}

// SetBalance fuerza el saldo de un par (simula divergencias en tests de conciliación).
func (s *Store) SetBalance(warehouseID, productID string, onHand decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := entity.Pair{WarehouseID: warehouseID, ProductID: productID}
	b, ok := s.data.balances[p]
	if !ok {
		b = entity.Balance{ID: uuid.New().String(), WarehouseID: warehouseID, ProductID: productID}
		b.CreatedAt = s.now()
	}
	b.OnHand = onHand
	b.Version++
	b.UpdatedAt = s.now()
	s.data.balances[p] = b
}

// RemoveBalance elimina la fila de saldo del par (simula datos importados sin saldo).
func (s *Store) RemoveBalance(warehouseID, productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data.balances, entity.Pair{WarehouseID: warehouseID, ProductID: productID})
}
