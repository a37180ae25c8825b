// seed_catalog carga bodegas o productos desde un CSV (UTF-8 o ISO-8859-1) y los
// crea/actualiza por ID a través del caso de uso de catálogo.
//
// Uso: go run ./cmd/seed_catalog <warehouses|products> ruta/archivo.csv
//
// Columnas (con cabecera, separador "," o ";"):
//
//	warehouses: id, code, name, address, active
//	products:   id, sku, name, unit_measure, active
//
// address, unit_measure y active son opcionales; active vacío = true.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jhoicas/inventory-ledger/internal/application/catalog"
	"github.com/jhoicas/inventory-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/inventory-ledger/pkg/config"
	"github.com/jhoicas/inventory-ledger/pkg/logger"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "uso: seed_catalog <warehouses|products> archivo.csv")
		os.Exit(2)
	}
	kind, path := os.Args[1], os.Args[2]

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: "seed_catalog"})

	raw, err := os.ReadFile(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("leer CSV")
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	uc := catalog.NewCatalogUseCase(postgres.NewTxRunner(pool, cfg.DB.TxRetries, log.Zerolog()), log.Zerolog())
	res, err := seed(ctx, uc, kind, raw)
	if err != nil {
		log.Error().Err(err).Int("upserted", res.Upserted).Msg("carga interrumpida")
		pool.Close()
		os.Exit(1)
	}
	log.Info().Str("kind", kind).Str("path", path).
		Int("upserted", res.Upserted).Int("skipped", res.Skipped).
		Msg("catálogo cargado")
}
