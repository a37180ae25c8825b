package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/inventory-ledger/internal/application/dto"
	"github.com/jhoicas/inventory-ledger/internal/domain"
	"github.com/jhoicas/inventory-ledger/internal/domain/actor"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/internal/domain/inventory"
	"github.com/jhoicas/inventory-ledger/internal/domain/repository"
)

const instrumentationName = "github.com/jhoicas/inventory-ledger/internal/application/inventory"

var tracer = otel.Tracer(instrumentationName)

// MovementUseCase orquesta el ciclo de vida de los movimientos: borrador, posteo y anulación.
// Posteo y anulación bloquean la cabecera y las filas de saldo (SELECT FOR UPDATE) y
// aplican todos los deltas en una sola transacción: Commit completo o Rollback completo.
type MovementUseCase struct {
	txRunner      TxRunner
	movementRepo  repository.InventoryMovementRepository
	balanceRepo   repository.BalanceRepository
	warehouseRepo repository.WarehouseRepository
	audit         AuditSink
	log           zerolog.Logger
	now           func() time.Time

	posted     metric.Int64Counter
	cancelled  metric.Int64Counter
	rejections metric.Int64Counter
}

// NewMovementUseCase construye el caso de uso.
func NewMovementUseCase(
	txRunner TxRunner,
	movementRepo repository.InventoryMovementRepository,
	balanceRepo repository.BalanceRepository,
	warehouseRepo repository.WarehouseRepository,
	audit AuditSink,
	log zerolog.Logger,
) *MovementUseCase {
	if audit == nil {
		audit = NoopAuditSink{}
	}
	meter := otel.Meter(instrumentationName)
	return &MovementUseCase{
		txRunner:      txRunner,
		movementRepo:  movementRepo,
		balanceRepo:   balanceRepo,
		warehouseRepo: warehouseRepo,
		audit:         audit,
		log:           log.With().Str("component", "movements").Logger(),
		now:           func() time.Time { return time.Now().UTC() },
		posted:        counter(meter, "inventory.movements.posted", "movimientos posteados"),
		cancelled:     counter(meter, "inventory.movements.cancelled", "movimientos anulados"),
		rejections:    counter(meter, "inventory.stock.rejections", "transacciones abortadas por stock insuficiente"),
	}
}

// SetClock reemplaza el reloj (tests).
func (uc *MovementUseCase) SetClock(now func() time.Time) { uc.now = now }

func counter(meter metric.Meter, name, desc string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		return noop.Int64Counter{}
	}
	return c
}

// CreateDraft crea un movimiento en Draft sin líneas.
func (uc *MovementUseCase) CreateDraft(ctx context.Context, in dto.CreateMovementRequest) (resp *dto.MovementResponse, err error) {
	ctx, span := tracer.Start(ctx, "inventory.CreateDraft")
	defer func() { uc.finish(ctx, span, entity.AuditActionCreateDraft, "", in.WarehouseID, err) }()

	warehouseID := strings.TrimSpace(in.WarehouseID)
	if warehouseID == "" {
		return nil, domain.Validation("warehouse_id es obligatorio")
	}
	referenceNo := strings.TrimSpace(in.ReferenceNo)
	if referenceNo == "" {
		return nil, domain.Validation("reference_no es obligatorio")
	}
	kind, ok := entity.ParseMovementKind(in.Kind)
	if !ok {
		return nil, domain.Validation("tipo de movimiento inválido %q (IN, OUT, ADJUSTMENT)", in.Kind)
	}
	wh, err := uc.warehouseRepo.GetByID(ctx, warehouseID)
	if err != nil {
		return nil, err
	}
	if wh == nil || !wh.Active {
		return nil, domain.NotFound("bodega %s no existe o está inactiva", warehouseID)
	}

	m := &entity.Movement{
		ID:          uuid.New().String(),
		WarehouseID: warehouseID,
		Kind:        kind,
		Status:      entity.MovementStatusDraft,
		ReferenceNo: referenceNo,
		Notes:       in.Notes,
	}
	if err := uc.movementRepo.Create(ctx, m); err != nil {
		return nil, err
	}
	uc.audit.Record(ctx, uc.entry(ctx, entity.AuditActionCreateDraft, m, "", map[string]any{
		"kind":         string(m.Kind),
		"reference_no": m.ReferenceNo,
	}))
	return toMovementResponse(m), nil
}

// UpdateDraftHeader modifica reference_no y/o notes de un borrador.
func (uc *MovementUseCase) UpdateDraftHeader(ctx context.Context, movementID string, in dto.UpdateMovementHeaderRequest) (resp *dto.MovementResponse, err error) {
	ctx, span := tracer.Start(ctx, "inventory.UpdateDraftHeader")
	defer func() { uc.finish(ctx, span, entity.AuditActionUpdateHeader, movementID, "", err) }()

	if in.ReferenceNo != nil && strings.TrimSpace(*in.ReferenceNo) == "" {
		return nil, domain.Validation("reference_no no puede quedar vacío")
	}
	var m *entity.Movement
	err = uc.txRunner.Run(ctx, func(r Repos) error {
		var err error
		m, err = loadDraftForUpdate(ctx, r, movementID)
		if err != nil {
			return err
		}
		if in.ReferenceNo != nil {
			m.ReferenceNo = strings.TrimSpace(*in.ReferenceNo)
		}
		if in.Notes != nil {
			m.Notes = in.Notes
		}
		if err := r.Movements.UpdateHeader(ctx, m); err != nil {
			return err
		}
		m.Lines, err = r.Movements.ListActiveLines(ctx, m.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	uc.audit.Record(ctx, uc.entry(ctx, entity.AuditActionUpdateHeader, m, "", map[string]any{
		"reference_no": m.ReferenceNo,
	}))
	return toMovementResponse(m), nil
}

// AddLine agrega una línea a un borrador.
func (uc *MovementUseCase) AddLine(ctx context.Context, movementID string, in dto.MovementLineRequest) (resp *dto.MovementResponse, err error) {
	ctx, span := tracer.Start(ctx, "inventory.AddLine")
	defer func() { uc.finish(ctx, span, entity.AuditActionAddLine, movementID, "", err) }()

	line, err := validateLine(in)
	if err != nil {
		return nil, err
	}
	var m *entity.Movement
	err = uc.txRunner.Run(ctx, func(r Repos) error {
		var err error
		m, err = loadDraftForUpdate(ctx, r, movementID)
		if err != nil {
			return err
		}
		if err := requireActiveProducts(ctx, r, []string{line.ProductID}); err != nil {
			return err
		}
		line.MovementID = m.ID
		if err := r.Movements.AddLines(ctx, []*entity.MovementLine{line}); err != nil {
			return err
		}
		m.Lines, err = r.Movements.ListActiveLines(ctx, m.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	e := uc.entry(ctx, entity.AuditActionAddLine, m, line.ProductID, map[string]any{
		"line_id":  line.ID,
		"quantity": line.Quantity.String(),
	})
	uc.audit.Record(ctx, e)
	return toMovementResponse(m), nil
}

// ReplaceLines reemplaza el conjunto de líneas activas: borrado lógico del anterior
// e inserción del nuevo como una sola unidad. Todos los productos se validan antes de mutar.
func (uc *MovementUseCase) ReplaceLines(ctx context.Context, movementID string, in dto.ReplaceMovementLinesRequest) (resp *dto.MovementResponse, err error) {
	ctx, span := tracer.Start(ctx, "inventory.ReplaceLines")
	defer func() { uc.finish(ctx, span, entity.AuditActionReplaceLines, movementID, "", err) }()

	if len(in.Lines) == 0 {
		return nil, domain.Validation("se requiere al menos una línea")
	}
	lines := make([]*entity.MovementLine, 0, len(in.Lines))
	productIDs := make([]string, 0, len(in.Lines))
	for i, l := range in.Lines {
		line, err := validateLine(l)
		if err != nil {
			return nil, fmt.Errorf("línea %d: %w", i+1, err)
		}
		lines = append(lines, line)
		productIDs = append(productIDs, line.ProductID)
	}

	var m *entity.Movement
	err = uc.txRunner.Run(ctx, func(r Repos) error {
		var err error
		m, err = loadDraftForUpdate(ctx, r, movementID)
		if err != nil {
			return err
		}
		if err := requireActiveProducts(ctx, r, productIDs); err != nil {
			return err
		}
		if err := r.Movements.SoftDeleteLines(ctx, m.ID); err != nil {
			return err
		}
		for _, l := range lines {
			l.MovementID = m.ID
		}
		if err := r.Movements.AddLines(ctx, lines); err != nil {
			return err
		}
		m.Lines, err = r.Movements.ListActiveLines(ctx, m.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	uc.audit.Record(ctx, uc.entry(ctx, entity.AuditActionReplaceLines, m, "", map[string]any{
		"lines": len(lines),
	}))
	return toMovementResponse(m), nil
}

// Post aplica los deltas de todas las líneas activas sobre los saldos y pasa a Posted.
// Una sola línea que deje saldo negativo aborta la transacción completa.
func (uc *MovementUseCase) Post(ctx context.Context, movementID string) (resp *dto.MovementResponse, err error) {
	ctx, span := tracer.Start(ctx, "inventory.Post", trace.WithAttributes(attribute.String("movement.id", movementID)))
	defer func() { uc.finish(ctx, span, entity.AuditActionPost, movementID, "", err) }()

	var m *entity.Movement
	err = uc.txRunner.Run(ctx, func(r Repos) error {
		var err error
		m, err = r.Movements.GetByIDForUpdate(ctx, movementID)
		if err != nil {
			return err
		}
		if m == nil {
			return domain.NotFound("movimiento %s", movementID)
		}
		if m.Status != entity.MovementStatusDraft {
			return domain.InvalidState("solo se postean movimientos en Draft (estado actual %s)", m.Status)
		}
		m.Lines, err = r.Movements.ListActiveLines(ctx, m.ID)
		if err != nil {
			return err
		}
		if len(m.Lines) == 0 {
			return domain.Validation("el movimiento %s no tiene líneas activas", m.ID)
		}
		if err := applyLines(ctx, r, m, false); err != nil {
			return err
		}
		if err := m.MarkPosted(actor.FromContext(ctx), uc.now()); err != nil {
			return domain.InvalidState("%v", err)
		}
		return r.Movements.UpdateStatus(ctx, m)
	})
	if err != nil {
		return nil, err
	}
	uc.posted.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(m.Kind))))
	uc.log.Debug().Str("movement_id", m.ID).Str("kind", string(m.Kind)).Int("lines", len(m.Lines)).Msg("movimiento posteado")
	uc.audit.Record(ctx, uc.entry(ctx, entity.AuditActionPost, m, "", linesPayload(m)))
	return toMovementResponse(m), nil
}

// Cancel revierte los deltas de un movimiento Posted y pasa a Cancelled.
// La fila de saldo debe existir; su ausencia es un error de integridad.
func (uc *MovementUseCase) Cancel(ctx context.Context, movementID string) (resp *dto.MovementResponse, err error) {
	ctx, span := tracer.Start(ctx, "inventory.Cancel", trace.WithAttributes(attribute.String("movement.id", movementID)))
	defer func() { uc.finish(ctx, span, entity.AuditActionCancel, movementID, "", err) }()

	var m *entity.Movement
	err = uc.txRunner.Run(ctx, func(r Repos) error {
		var err error
		m, err = r.Movements.GetByIDForUpdate(ctx, movementID)
		if err != nil {
			return err
		}
		if m == nil {
			return domain.NotFound("movimiento %s", movementID)
		}
		if m.Status != entity.MovementStatusPosted {
			return domain.InvalidState("solo se anulan movimientos Posted (estado actual %s)", m.Status)
		}
		m.Lines, err = r.Movements.ListActiveLines(ctx, m.ID)
		if err != nil {
			return err
		}
		if err := applyLines(ctx, r, m, true); err != nil {
			return err
		}
		if err := m.MarkCancelled(actor.FromContext(ctx), uc.now()); err != nil {
			return domain.InvalidState("%v", err)
		}
		return r.Movements.UpdateStatus(ctx, m)
	})
	if err != nil {
		return nil, err
	}
	uc.cancelled.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(m.Kind))))
	uc.log.Debug().Str("movement_id", m.ID).Msg("movimiento anulado")
	uc.audit.Record(ctx, uc.entry(ctx, entity.AuditActionCancel, m, "", linesPayload(m)))
	return toMovementResponse(m), nil
}

// GetMovement devuelve cabecera y líneas activas.
func (uc *MovementUseCase) GetMovement(ctx context.Context, movementID string) (*dto.MovementResponse, error) {
	m, err := uc.movementRepo.GetByID(ctx, movementID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, domain.NotFound("movimiento %s", movementID)
	}
	if m.Lines, err = uc.movementRepo.ListActiveLines(ctx, m.ID); err != nil {
		return nil, err
	}
	return toMovementResponse(m), nil
}

// GetBalance devuelve el saldo vivo del par.
func (uc *MovementUseCase) GetBalance(ctx context.Context, warehouseID, productID string) (*dto.BalanceResponse, error) {
	b, err := uc.balanceRepo.Get(ctx, warehouseID, productID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, domain.NotFound("saldo bodega %s producto %s", warehouseID, productID)
	}
	return toBalanceResponse(b), nil
}

// Voucher arma los datos del comprobante: movimiento, bodega y catálogo de sus líneas.
// Los productos borrados del catálogo se muestran solo con su ID.
func (uc *MovementUseCase) Voucher(ctx context.Context, movementID string) (*dto.MovementVoucher, error) {
	var v *dto.MovementVoucher
	err := uc.txRunner.Run(ctx, func(r Repos) error {
		m, err := r.Movements.GetByID(ctx, movementID)
		if err != nil {
			return err
		}
		if m == nil {
			return domain.NotFound("movimiento %s", movementID)
		}
		if m.Lines, err = r.Movements.ListActiveLines(ctx, m.ID); err != nil {
			return err
		}
		w, err := r.Warehouses.GetByID(ctx, m.WarehouseID)
		if err != nil {
			return err
		}
		ids := make([]string, 0, len(m.Lines))
		for _, l := range m.Lines {
			ids = append(ids, l.ProductID)
		}
		products, err := r.Products.GetByIDs(ctx, ids)
		if err != nil {
			return err
		}

		v = &dto.MovementVoucher{Movement: toMovementResponse(m), TotalQuantity: decimal.Zero}
		if w != nil {
			v.WarehouseCode, v.WarehouseName = w.Code, w.Name
		}
		for _, l := range m.Lines {
			line := dto.VoucherLine{ProductID: l.ProductID, Quantity: l.Quantity}
			if p := products[l.ProductID]; p != nil {
				line.SKU, line.Name, line.UnitMeasure = p.SKU, p.Name, p.UnitMeasure
			}
			v.Lines = append(v.Lines, line)
			v.TotalQuantity = v.TotalQuantity.Add(l.Quantity)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// applyLines bloquea los saldos en orden fijo de producto y aplica cada línea.
// reverse=true aplica el delta negado (anulación) y exige que la fila exista.
func applyLines(ctx context.Context, r Repos, m *entity.Movement, reverse bool) error {
	productIDs := make([]string, 0, len(m.Lines))
	seen := make(map[string]bool, len(m.Lines))
	for _, l := range m.Lines {
		if !seen[l.ProductID] {
			seen[l.ProductID] = true
			productIDs = append(productIDs, l.ProductID)
		}
	}
	sort.Strings(productIDs)

	balances := make(map[string]*entity.Balance, len(productIDs))
	for _, pid := range productIDs {
		var (
			b   *entity.Balance
			err error
		)
		if reverse {
			b, err = r.Balances.GetForUpdate(ctx, m.WarehouseID, pid)
			if err == nil && b == nil {
				return domain.DataIntegrity("no existe saldo para bodega %s producto %s del movimiento %s", m.WarehouseID, pid, m.ID)
			}
		} else {
			b, err = r.Balances.EnsureForUpdate(ctx, m.WarehouseID, pid)
		}
		if err != nil {
			return err
		}
		balances[pid] = b
	}

	for _, l := range m.Lines {
		delta, err := entity.LineDelta(m.Kind, l.Quantity)
		if err != nil {
			return domain.DataIntegrity("movimiento %s: %v", m.ID, err)
		}
		if reverse {
			delta = delta.Neg()
		}
		if err := inventory.ApplyDelta(balances[l.ProductID], delta); err != nil {
			return err
		}
	}
	for _, pid := range productIDs {
		if err := r.Balances.Update(ctx, balances[pid]); err != nil {
			return err
		}
	}
	return nil
}

func loadDraftForUpdate(ctx context.Context, r Repos, movementID string) (*entity.Movement, error) {
	m, err := r.Movements.GetByIDForUpdate(ctx, movementID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, domain.NotFound("movimiento %s", movementID)
	}
	if !m.IsEditable() {
		return nil, domain.InvalidState("solo se editan movimientos en Draft (estado actual %s)", m.Status)
	}
	return m, nil
}

func requireActiveProducts(ctx context.Context, r Repos, ids []string) error {
	found, err := r.Products.GetByIDs(ctx, ids)
	if err != nil {
		return err
	}
	for _, id := range ids {
		p := found[id]
		if p == nil || !p.Active {
			return domain.NotFound("producto %s no existe o está inactivo", id)
		}
	}
	return nil
}

func validateLine(in dto.MovementLineRequest) (*entity.MovementLine, error) {
	productID := strings.TrimSpace(in.ProductID)
	if productID == "" {
		return nil, domain.Validation("product_id es obligatorio")
	}
	if !in.Quantity.GreaterThan(decimal.Zero) {
		return nil, domain.Validation("la cantidad debe ser mayor que cero")
	}
	return &entity.MovementLine{
		ID:        uuid.New().String(),
		ProductID: productID,
		Quantity:  in.Quantity,
	}, nil
}

// finish cierra el span y, si el llamador lo pidió, audita el fallo.
func (uc *MovementUseCase) finish(ctx context.Context, span trace.Span, action, movementID, warehouseID string, err error) {
	defer span.End()
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	var insufficient *domain.InsufficientStockError
	if errors.As(err, &insufficient) {
		uc.rejections.Add(ctx, 1)
		uc.log.Info().Str("movement_id", movementID).Str("product_id", insufficient.ProductID).
			Str("on_hand", insufficient.OnHand.String()).Str("delta", insufficient.Delta.String()).
			Msg("stock insuficiente, transacción abortada")
	}
	if errors.Is(err, domain.ErrDataIntegrity) {
		uc.log.Error().Err(err).Str("movement_id", movementID).Msg("violación de integridad")
	}
	if !failureAuditRequested(ctx) {
		return
	}
	e := entity.AuditEntry{
		Action:      action,
		Entity:      entity.AuditEntityMovement,
		EntityID:    movementID,
		WarehouseID: warehouseID,
		Success:     false,
		Message:     err.Error(),
		UserID:      actor.FromContext(ctx),
		OccurredAt:  uc.now(),
	}
	if insufficient != nil {
		e.WarehouseID = insufficient.WarehouseID
		e.ProductID = insufficient.ProductID
	}
	uc.audit.Record(ctx, e)
}

func (uc *MovementUseCase) entry(ctx context.Context, action string, m *entity.Movement, productID string, payload map[string]any) entity.AuditEntry {
	return entity.AuditEntry{
		Action:      action,
		Entity:      entity.AuditEntityMovement,
		EntityID:    m.ID,
		WarehouseID: m.WarehouseID,
		ProductID:   productID,
		Success:     true,
		Payload:     payload,
		UserID:      actor.FromContext(ctx),
		OccurredAt:  uc.now(),
	}
}

func linesPayload(m *entity.Movement) map[string]any {
	lines := make([]map[string]string, 0, len(m.Lines))
	for _, l := range m.Lines {
		lines = append(lines, map[string]string{"product_id": l.ProductID, "quantity": l.Quantity.String()})
	}
	return map[string]any{"kind": string(m.Kind), "status": m.Status.String(), "lines": lines}
}

func toMovementResponse(m *entity.Movement) *dto.MovementResponse {
	resp := &dto.MovementResponse{
		ID:          m.ID,
		WarehouseID: m.WarehouseID,
		Kind:        string(m.Kind),
		Status:      m.Status.String(),
		ReferenceNo: m.ReferenceNo,
		Notes:       m.Notes,
		PostedAt:    m.PostedAt,
		PostedBy:    m.PostedBy,
		CancelledAt: m.CancelledAt,
		CancelledBy: m.CancelledBy,
		CreatedAt:   m.CreatedAt,
		CreatedBy:   m.CreatedBy,
		UpdatedAt:   m.UpdatedAt,
		Lines:       make([]dto.MovementLineResponse, 0, len(m.Lines)),
	}
	for _, l := range m.Lines {
		resp.Lines = append(resp.Lines, dto.MovementLineResponse{ID: l.ID, ProductID: l.ProductID, Quantity: l.Quantity})
	}
	return resp
}

func toBalanceResponse(b *entity.Balance) *dto.BalanceResponse {
	return &dto.BalanceResponse{
		ID:          b.ID,
		WarehouseID: b.WarehouseID,
		ProductID:   b.ProductID,
		OnHand:      b.OnHand,
		Version:     b.Version,
		UpdatedAt:   b.UpdatedAt,
		UpdatedBy:   b.UpdatedBy,
	}
}
