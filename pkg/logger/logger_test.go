package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventory-ledger/pkg/logger"
)

func TestNew_JSONConServicio(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New(logger.Config{Env: "production", Level: "info", Service: "inventory-ledger", Out: &buf})

	l.Info().Str("movement_id", "m-1").Msg("movimiento posteado")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "inventory-ledger", line["service"])
	assert.Equal(t, "m-1", line["movement_id"])
	assert.Equal(t, "movimiento posteado", line["message"])
}

func TestNew_FiltraPorNivel(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New(logger.Config{Env: "production", Level: "WARN", Out: &buf})

	l.Info().Msg("no debe salir")
	assert.Zero(t, buf.Len(), "info queda por debajo de warn")

	l.Warn().Msg("sí sale")
	assert.Contains(t, buf.String(), "sí sale")
}

func TestNew_NivelDesconocidoUsaInfo(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New(logger.Config{Env: "production", Level: "verboso", Out: &buf})

	l.Debug().Msg("debug")
	assert.Zero(t, buf.Len())
	l.Info().Msg("info")
	assert.NotZero(t, buf.Len())
}
