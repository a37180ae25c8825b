package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/jhoicas/inventory-ledger/internal/application/catalog"
	"github.com/jhoicas/inventory-ledger/internal/application/idempotency"
	"github.com/jhoicas/inventory-ledger/internal/application/inventory"
	"github.com/jhoicas/inventory-ledger/internal/domain/repository"
	infraaudit "github.com/jhoicas/inventory-ledger/internal/infrastructure/audit"
	infracache "github.com/jhoicas/inventory-ledger/internal/infrastructure/cache"
	"github.com/jhoicas/inventory-ledger/internal/infrastructure/memory"
	infrapdf "github.com/jhoicas/inventory-ledger/internal/infrastructure/pdf"
	"github.com/jhoicas/inventory-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/inventory-ledger/internal/infrastructure/telemetry"
	httpRouter "github.com/jhoicas/inventory-ledger/internal/interfaces/http"
	"github.com/jhoicas/inventory-ledger/pkg/config"
	"github.com/jhoicas/inventory-ledger/pkg/logger"
)

// version se sobreescribe en el build con -ldflags "-X main.version=...".
var version = "dev"

// storage agrupa lo que cada driver aporta al arranque.
type storage struct {
	txRunner   inventory.TxRunner
	movements  repository.InventoryMovementRepository
	balances   repository.BalanceRepository
	warehouses repository.WarehouseRepository
	idem       repository.IdempotencyRepository
	health     func(ctx context.Context) error
	close      func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	zl := log.Zerolog()
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.Store).
		Str("version", version).
		Msg("iniciando aplicación")

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("JWT_SECRET es obligatorio")
	}

	ctx := context.Background()

	// Los instrumentos se crean al construir los casos de uso: telemetría primero.
	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.Telemetry, version)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar telemetría")
	}

	st := openStorage(ctx, cfg, log)
	defer st.close()

	// Caché de repetición: solo si hay Redis configurado.
	var replayCache idempotency.ReplayCache
	if cfg.Redis.Addr != "" {
		redisCache := infracache.NewRedisReplayCache(cfg.Redis)
		if err := redisCache.Ping(ctx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis no disponible al arrancar; se reintenta en cada consulta")
		}
		defer redisCache.Close()
		replayCache = redisCache
	}

	// Auditoría: Kafka si hay brokers, si no al log.
	var auditSink inventory.AuditSink = infraaudit.NewLogSink(zl)
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaSink := infraaudit.NewKafkaSink(cfg.Kafka, zl)
		defer func() {
			if err := kafkaSink.Close(); err != nil {
				log.Error().Err(err).Msg("cerrar productor kafka")
			}
		}()
		auditSink = kafkaSink
	}

	gateway := idempotency.NewGateway(st.idem, replayCache, idempotency.Options{
		ReplayTTL:   cfg.Idempotency.ReplayTTL,
		WaitTimeout: cfg.Idempotency.WaitTimeout,
	}, zl)
	movementUC := inventory.NewMovementUseCase(st.txRunner, st.movements, st.balances, st.warehouses, auditSink, zl)
	reconciliationUC := inventory.NewReconciliationUseCase(st.txRunner, auditSink, zl, cfg.Reconciliation.MaxCreates)
	catalogUC := catalog.NewCatalogUseCase(st.txRunner, zl)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(requestid.New())

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat(cfg.HTTP.SwaggerFile); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: cfg.HTTP.SwaggerFile,
			Path:     "docs",
			Title:    "Inventory Ledger API",
		}))
	}

	httpRouter.Router(app, httpRouter.RouterDeps{
		MovementUC:        movementUC,
		ReconciliationUC:  reconciliationUC,
		CatalogUC:         catalogUC,
		Gateway:           gateway,
		IdempotencyHeader: cfg.Idempotency.Header,
		JWTSecret:         cfg.JWT.Secret,
		AuditFailures:     cfg.Audit.Failures,
		VoucherRenderer:   infrapdf.NewMarotoVoucherRenderer(),
		Health:            st.health,
		Log:               zl,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado de telemetría")
	}

	log.Info().Msg("aplicación detenida")
}

// openStorage abre el driver configurado. memory no persiste nada: solo para demos y pruebas locales.
func openStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) storage {
	zl := log.Zerolog()
	if cfg.Store == config.StoreMemory {
		log.Warn().Msg("STORE_DRIVER=memory: los datos se pierden al reiniciar")
		store := memory.NewStore()
		return storage{
			txRunner:   store,
			movements:  store.Movements(),
			balances:   store.Balances(),
			warehouses: store.Warehouses(),
			idem:       store.Idempotency(),
			close:      func() {},
		}
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	if cfg.DB.AutoMigrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			log.Fatal().Err(err).Msg("migración del esquema")
		}
		log.Info().Msg("esquema aplicado")
	}
	return storage{
		txRunner:   postgres.NewTxRunner(pool, cfg.DB.TxRetries, zl),
		movements:  postgres.NewInventoryMovementRepository(pool),
		balances:   postgres.NewBalanceRepository(pool),
		warehouses: postgres.NewWarehouseRepository(pool),
		idem:       postgres.NewIdempotencyRepository(pool),
		health:     pool.Ping,
		close:      pool.Close,
	}
}
