package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/inventory-ledger/internal/application/dto"
	"github.com/jhoicas/inventory-ledger/internal/domain"
	"github.com/jhoicas/inventory-ledger/internal/domain/actor"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/internal/domain/inventory"
	"github.com/jhoicas/inventory-ledger/internal/domain/repository"
)

// DefaultMaxCreates tope de filas que SyncMissingBalances crea por llamada si no se configura otro.
const DefaultMaxCreates = 500

// ReconciliationUseCase recalcula saldos a partir del histórico de movimientos Posted
// y reporta/repara las diferencias según modo seguro y simulación (dry run).
type ReconciliationUseCase struct {
	txRunner   TxRunner
	audit      AuditSink
	log        zerolog.Logger
	maxCreates int
	now        func() time.Time
}

// NewReconciliationUseCase construye el caso de uso. maxCreates <= 0 usa DefaultMaxCreates.
func NewReconciliationUseCase(txRunner TxRunner, audit AuditSink, log zerolog.Logger, maxCreates int) *ReconciliationUseCase {
	if audit == nil {
		audit = NoopAuditSink{}
	}
	if maxCreates <= 0 {
		maxCreates = DefaultMaxCreates
	}
	return &ReconciliationUseCase{
		txRunner:   txRunner,
		audit:      audit,
		log:        log.With().Str("component", "reconciliation").Logger(),
		maxCreates: maxCreates,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SetClock reemplaza el reloj (tests).
func (uc *ReconciliationUseCase) SetClock(now func() time.Time) { uc.now = now }

// SyncMissingBalances crea con on_hand 0 las filas de saldo faltantes para los pares
// que aparecen en al menos una línea Posted. Nunca modifica filas existentes.
func (uc *ReconciliationUseCase) SyncMissingBalances(ctx context.Context, in dto.SyncMissingBalancesRequest) (resp *dto.SyncMissingBalancesResponse, err error) {
	ctx, span := tracer.Start(ctx, "reconciliation.SyncMissingBalances")
	defer func() { uc.finish(ctx, span, entity.AuditActionSyncMissing, err) }()

	limit := in.MaxCreates
	if limit <= 0 || limit > uc.maxCreates {
		limit = uc.maxCreates
	}
	filter := repository.BalanceFilter{WarehouseID: in.WarehouseID, ProductID: in.ProductID}

	err = uc.txRunner.Run(ctx, func(r Repos) error {
		resp = &dto.SyncMissingBalancesResponse{MaxCreates: limit, CreatedRows: []dto.BalanceRowDTO{}}

		lines, err := r.Movements.ListPostedLines(ctx, repository.PostedLineFilter{
			WarehouseID: in.WarehouseID,
			ProductID:   in.ProductID,
		})
		if err != nil {
			return err
		}
		seen := make(map[entity.Pair]struct{}, len(lines))
		for _, l := range lines {
			seen[entity.Pair{WarehouseID: l.WarehouseID, ProductID: l.ProductID}] = struct{}{}
		}
		pairs := inventory.SortedPairs(seen)
		resp.ConsideredPairs = len(pairs)

		existing, err := r.Balances.List(ctx, filter)
		if err != nil {
			return err
		}
		live := make(map[entity.Pair]bool, len(existing))
		for _, b := range existing {
			live[b.Pair()] = true
		}

		for _, p := range pairs {
			if live[p] {
				resp.SkippedExisting++
				continue
			}
			if resp.Created >= limit {
				resp.Remaining++
				continue
			}
			b := &entity.Balance{ID: uuid.New().String(), WarehouseID: p.WarehouseID, ProductID: p.ProductID, OnHand: decimal.Zero}
			created, err := r.Balances.CreateIfMissing(ctx, b)
			if err != nil {
				return err
			}
			if !created {
				// La creó un posteo concurrente entre la lectura y el insert.
				resp.SkippedExisting++
				continue
			}
			resp.Created++
			resp.CreatedRows = append(resp.CreatedRows, dto.BalanceRowDTO{
				ID: b.ID, WarehouseID: b.WarehouseID, ProductID: b.ProductID, OnHand: b.OnHand,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info().Int("created", resp.Created).Int("skipped_existing", resp.SkippedExisting).
		Int("considered_pairs", resp.ConsideredPairs).Int("remaining", resp.Remaining).
		Msg("sincronización de saldos faltantes")
	uc.audit.Record(ctx, uc.entry(ctx, entity.AuditActionSyncMissing, true, "", map[string]any{
		"created":          resp.Created,
		"skipped_existing": resp.SkippedExisting,
		"considered_pairs": resp.ConsideredPairs,
		"max_creates":      limit,
	}))
	return resp, nil
}

// Run recalcula en memoria el saldo esperado por par sumando direction(kind) * quantity
// sobre las líneas Posted de la ventana. Filas faltantes se crean con el total calculado;
// con SafeMode las existentes no se tocan; sin SafeMode se sobrescriben las divergentes.
// DryRun reporta las mismas diferencias sin persistir nada.
func (uc *ReconciliationUseCase) Run(ctx context.Context, in dto.ReconcileRequest) (resp *dto.ReconcileResponse, err error) {
	safeMode := true
	if in.SafeMode != nil {
		safeMode = *in.SafeMode
	}
	ctx, span := tracer.Start(ctx, "reconciliation.Run", trace.WithAttributes(
		attribute.Bool("reconciliation.safe_mode", safeMode),
		attribute.Bool("reconciliation.dry_run", in.DryRun),
	))
	defer func() { uc.finish(ctx, span, entity.AuditActionReconcile, err) }()

	if in.FromUTC != nil && in.ToUTC != nil && in.ToUTC.Before(*in.FromUTC) {
		return nil, domain.Validation("to_utc es anterior a from_utc")
	}
	filter := repository.BalanceFilter{WarehouseID: in.WarehouseID, ProductID: in.ProductID}
	lineFilter := repository.PostedLineFilter{
		WarehouseID: in.WarehouseID,
		ProductID:   in.ProductID,
		From:        in.FromUTC,
		To:          in.ToUTC,
	}

	run := uc.txRunner.RunExclusive
	if in.DryRun {
		run = uc.txRunner.Run
	}
	err = run(ctx, func(r Repos) error {
		resp = &dto.ReconcileResponse{SafeMode: safeMode, DryRun: in.DryRun, Diffs: []dto.BalanceDiffDTO{}}

		var existing []*entity.Balance
		var err error
		if in.DryRun {
			existing, err = r.Balances.List(ctx, filter)
		} else {
			existing, err = r.Balances.ListForUpdate(ctx, filter)
		}
		if err != nil {
			return err
		}
		lines, err := r.Movements.ListPostedLines(ctx, lineFilter)
		if err != nil {
			return err
		}
		totals, pairs, err := inventory.ExpectedBalances(lines)
		if err != nil {
			return err
		}
		byPair := make(map[entity.Pair]*entity.Balance, len(existing))
		for _, b := range existing {
			byPair[b.Pair()] = b
		}

		resp.AffectedPairs = len(pairs)
		for _, p := range pairs {
			computed := totals[p]
			b, ok := byPair[p]
			switch {
			case !ok:
				resp.MissingCreated++
				resp.Diffs = append(resp.Diffs, dto.BalanceDiffDTO{
					WarehouseID: p.WarehouseID, ProductID: p.ProductID, Action: dto.DiffActionCreate,
					CurrentOnHand: decimal.Zero, ComputedOnHand: computed, Delta: computed,
				})
				if in.DryRun {
					continue
				}
				if err := rejectNegative(computed, p); err != nil {
					return err
				}
				nb := &entity.Balance{ID: uuid.New().String(), WarehouseID: p.WarehouseID, ProductID: p.ProductID, OnHand: computed}
				created, err := r.Balances.CreateIfMissing(ctx, nb)
				if err != nil {
					return err
				}
				if !created {
					return domain.ErrConcurrentModification
				}
			case safeMode, b.OnHand.Equal(computed):
				resp.Unchanged++
			default:
				resp.UpdatedExisting++
				resp.Diffs = append(resp.Diffs, dto.BalanceDiffDTO{
					WarehouseID: p.WarehouseID, ProductID: p.ProductID, Action: dto.DiffActionUpdate,
					CurrentOnHand: b.OnHand, ComputedOnHand: computed, Delta: computed.Sub(b.OnHand),
				})
				if in.DryRun {
					continue
				}
				if err := rejectNegative(computed, p); err != nil {
					return err
				}
				b.OnHand = computed
				if err := r.Balances.Update(ctx, b); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info().Bool("safe_mode", safeMode).Bool("dry_run", in.DryRun).
		Int("affected_pairs", resp.AffectedPairs).Int("missing_created", resp.MissingCreated).
		Int("updated_existing", resp.UpdatedExisting).Int("unchanged", resp.Unchanged).
		Msg("conciliación de saldos")
	uc.audit.Record(ctx, uc.entry(ctx, entity.AuditActionReconcile, true, "", map[string]any{
		"safe_mode":        safeMode,
		"dry_run":          in.DryRun,
		"affected_pairs":   resp.AffectedPairs,
		"missing_created":  resp.MissingCreated,
		"updated_existing": resp.UpdatedExisting,
		"unchanged":        resp.Unchanged,
	}))
	return resp, nil
}

// rejectNegative impide escribir un saldo negativo. Un total negativo solo es válido
// como reporte (ventana con salida neta, dry run o fila existente en safe mode).
func rejectNegative(computed decimal.Decimal, p entity.Pair) error {
	if computed.IsNegative() {
		return domain.DataIntegrity("saldo recalculado negativo (%s) para bodega %s producto %s",
			computed.String(), p.WarehouseID, p.ProductID)
	}
	return nil
}

// finish cierra el span; la conciliación siempre audita sus fallos.
func (uc *ReconciliationUseCase) finish(ctx context.Context, span trace.Span, action string, err error) {
	defer span.End()
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	ev := uc.log.Warn()
	if errors.Is(err, domain.ErrDataIntegrity) {
		ev = uc.log.Error()
	}
	ev.Err(err).Str("action", action).Msg("conciliación fallida")
	uc.audit.Record(ctx, uc.entry(ctx, action, false, err.Error(), nil))
}

func (uc *ReconciliationUseCase) entry(ctx context.Context, action string, success bool, msg string, payload map[string]any) entity.AuditEntry {
	return entity.AuditEntry{
		Action:     action,
		Entity:     entity.AuditEntityBalance,
		Success:    success,
		Message:    msg,
		Payload:    payload,
		UserID:     actor.FromContext(ctx),
		OccurredAt: uc.now(),
	}
}
