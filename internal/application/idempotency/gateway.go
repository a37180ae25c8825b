// Package idempotency implementa el gateway que permite reintentar escrituras
// no idempotentes: (clave, endpoint, llamador) → respuesta ya producida.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/inventory-ledger/internal/application/dto"
	"github.com/jhoicas/inventory-ledger/internal/domain"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/internal/domain/repository"
)

const instrumentationName = "github.com/jhoicas/inventory-ledger/internal/application/idempotency"

// Request identifica la escritura. Key vacía desactiva la idempotencia.
// Replayable=false (ej. exportaciones cuyo archivo no se guarda) bloquea los
// duplicados con domain.ErrDuplicateBlocked en lugar de repetir la respuesta.
type Request struct {
	Key        string
	Endpoint   string
	CallerID   string
	Replayable bool
}

// Outcome es lo que produce la operación envuelta: status, cuerpo y error (si falló).
type Outcome struct {
	StatusCode int
	Body       any
	Err        error
}

// Operation es la escritura protegida.
type Operation func(ctx context.Context) Outcome

// Response es el resultado serializado; idéntico byte a byte entre ejecución y repeticiones.
type Response struct {
	StatusCode int
	Body       []byte
	Replayed   bool
}

// Options configura el gateway.
type Options struct {
	// ReplayTTL vigencia de los registros liquidados en la caché.
	ReplayTTL time.Duration
	// WaitTimeout cuánto espera una petición a que liquide otra en curso con la misma tupla.
	WaitTimeout time.Duration
	// PollInterval intervalo de consulta mientras espera.
	PollInterval time.Duration
}

// Gateway aplica el protocolo: sin clave ejecuta directo; con registro liquidado repite;
// si no, inserta "en curso", ejecuta y liquida exactamente una vez.
type Gateway struct {
	repo  repository.IdempotencyRepository
	cache ReplayCache
	opts  Options
	log   zerolog.Logger
	now   func() time.Time

	tracer  trace.Tracer
	replays metric.Int64Counter
}

// NewGateway construye el gateway. cache puede ser nil.
func NewGateway(repo repository.IdempotencyRepository, cache ReplayCache, opts Options, log zerolog.Logger) *Gateway {
	if cache == nil {
		cache = NoopReplayCache{}
	}
	if opts.ReplayTTL <= 0 {
		opts.ReplayTTL = 24 * time.Hour
	}
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = 5 * time.Second
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 25 * time.Millisecond
	}
	replays, _ := otel.Meter(instrumentationName).Int64Counter("idempotency.replays",
		metric.WithDescription("respuestas repetidas desde el ledger de idempotencia"))
	return &Gateway{
		repo:    repo,
		cache:   cache,
		opts:    opts,
		log:     log.With().Str("component", "idempotency").Logger(),
		now:     func() time.Time { return time.Now().UTC() },
		tracer:  otel.Tracer(instrumentationName),
		replays: replays,
	}
}

// Execute aplica el protocolo de idempotencia alrededor de op.
func (g *Gateway) Execute(ctx context.Context, req Request, op Operation) (*Response, error) {
	key := strings.TrimSpace(req.Key)
	if key == "" {
		out := op(ctx)
		body, err := json.Marshal(out.Body)
		if err != nil {
			return nil, fmt.Errorf("serializar respuesta: %w", err)
		}
		return &Response{StatusCode: out.StatusCode, Body: body}, nil
	}
	req.Key = key

	ctx, span := g.tracer.Start(ctx, "idempotency.Execute", trace.WithAttributes(
		attribute.String("idempotency.endpoint", req.Endpoint),
	))
	defer span.End()

	rec, err := g.lookup(ctx, req)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		span.SetAttributes(attribute.Bool("idempotency.existing", true))
		return g.resolveExisting(ctx, req, rec)
	}

	now := g.now()
	rec = &entity.IdempotencyRecord{
		ID:        uuid.New().String(),
		Key:       req.Key,
		Endpoint:  req.Endpoint,
		CallerID:  req.CallerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := g.repo.CreateInFlight(ctx, rec); err != nil {
		if !errors.Is(err, domain.ErrIdempotencyInFlight) {
			return nil, err
		}
		// Perdimos la carrera del insert: la otra petición es la autoritativa.
		existing, ferr := g.repo.Find(ctx, req.Key, req.Endpoint, req.CallerID)
		if ferr != nil {
			return nil, ferr
		}
		if existing == nil {
			return nil, domain.ErrIdempotencyInFlight
		}
		return g.resolveExisting(ctx, req, existing)
	}

	out := g.invoke(ctx, rec, op)
	body, merr := json.Marshal(out.Body)
	if merr != nil {
		out = Outcome{StatusCode: 500, Err: fmt.Errorf("serializar respuesta: %w", merr)}
		body = nil
	}
	g.settle(ctx, rec, out, body)
	if merr != nil {
		return nil, out.Err
	}
	return &Response{StatusCode: out.StatusCode, Body: body}, nil
}

// invoke ejecuta op. Si op entra en pánico el registro se liquida como fallo 500
// antes de relanzarlo; de lo contrario quedaría en curso para siempre.
func (g *Gateway) invoke(ctx context.Context, rec *entity.IdempotencyRecord, op Operation) Outcome {
	defer func() {
		if p := recover(); p != nil {
			out := Outcome{
				StatusCode: 500,
				Body:       dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"},
				Err:        fmt.Errorf("pánico en la operación: %v", p),
			}
			body, _ := json.Marshal(out.Body)
			g.settle(ctx, rec, out, body)
			panic(p)
		}
	}()
	return op(ctx)
}

// settle liquida el registro aunque el contexto de la petición esté cancelado,
// para no dejar un registro "en curso" sin resolver.
func (g *Gateway) settle(ctx context.Context, rec *entity.IdempotencyRecord, out Outcome, body []byte) {
	ctx = context.WithoutCancel(ctx)
	now := g.now()
	rec.Completed = true
	rec.Success = out.Err == nil
	rec.StatusCode = out.StatusCode
	rec.ResponseBody = body
	rec.UpdatedAt = now
	rec.CompletedAt = &now
	if out.Err != nil {
		rec.ErrorMessage = out.Err.Error()
	}
	if err := g.repo.Settle(ctx, rec); err != nil {
		g.log.Error().Err(err).Str("endpoint", rec.Endpoint).Str("record_id", rec.ID).
			Msg("no se pudo liquidar el registro de idempotencia")
		return
	}
	if err := g.cache.Set(ctx, cacheKey(rec.Key, rec.Endpoint, rec.CallerID), rec, g.opts.ReplayTTL); err != nil {
		g.log.Warn().Err(err).Msg("no se pudo guardar la respuesta en la caché de repetición")
	}
}

func (g *Gateway) lookup(ctx context.Context, req Request) (*entity.IdempotencyRecord, error) {
	ck := cacheKey(req.Key, req.Endpoint, req.CallerID)
	if rec, ok, err := g.cache.Get(ctx, ck); err != nil {
		g.log.Warn().Err(err).Msg("caché de repetición no disponible, se consulta la BD")
	} else if ok {
		return rec, nil
	}
	return g.repo.Find(ctx, req.Key, req.Endpoint, req.CallerID)
}

// resolveExisting repite un registro liquidado o espera a que se liquide uno en curso.
func (g *Gateway) resolveExisting(ctx context.Context, req Request, rec *entity.IdempotencyRecord) (*Response, error) {
	if !req.Replayable {
		g.log.Debug().Str("endpoint", req.Endpoint).Msg("duplicado bloqueado")
		return nil, domain.ErrDuplicateBlocked
	}
	if !rec.Completed {
		var err error
		if rec, err = g.waitSettled(ctx, req); err != nil {
			return nil, err
		}
	}
	if g.replays != nil {
		g.replays.Add(ctx, 1, metric.WithAttributes(attribute.String("endpoint", req.Endpoint)))
	}
	g.log.Debug().Str("endpoint", req.Endpoint).Int("status", rec.StatusCode).Msg("respuesta repetida")
	return &Response{StatusCode: rec.StatusCode, Body: rec.ResponseBody, Replayed: true}, nil
}

func (g *Gateway) waitSettled(ctx context.Context, req Request) (*entity.IdempotencyRecord, error) {
	deadline := time.NewTimer(g.opts.WaitTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(g.opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			g.log.Debug().Str("endpoint", req.Endpoint).Msg("registro en curso, conflicto")
			return nil, domain.ErrIdempotencyInFlight
		case <-ticker.C:
			rec, err := g.repo.Find(ctx, req.Key, req.Endpoint, req.CallerID)
			if err != nil {
				return nil, err
			}
			if rec != nil && rec.Completed {
				return rec, nil
			}
		}
	}
}

func cacheKey(key, endpoint, callerID string) string {
	return "idem:" + endpoint + ":" + callerID + ":" + key
}
