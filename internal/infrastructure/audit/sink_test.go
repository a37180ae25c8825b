package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
)

type fakeProducer struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (p *fakeProducer) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msgs...)
	return nil
}

func (p *fakeProducer) Close() error {
	p.closed = true
	return nil
}

func sampleEntry() entity.AuditEntry {
	return entity.AuditEntry{
		Action:      entity.AuditActionPost,
		Entity:      entity.AuditEntityMovement,
		EntityID:    "mov-1",
		WarehouseID: "W",
		Success:     true,
		UserID:      "u-1",
		OccurredAt:  time.Date(2026, 3, 17, 10, 0, 0, 0, time.UTC),
	}
}

// ─── KafkaSink ──────────────────────────────────────────────────────────────

func TestKafkaSink_PublicaJSONConClave(t *testing.T) {
	p := &fakeProducer{}
	sink := NewKafkaSinkWithProducer(p, zerolog.Nop())

	sink.Record(context.Background(), sampleEntry())

	require.Len(t, p.msgs, 1)
	msg := p.msgs[0]
	assert.Equal(t, "mov-1", string(msg.Key), "la clave debe ser el ID de la entidad")
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, entity.AuditActionPost, string(msg.Headers[0].Value))

	var got entity.AuditEntry
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, sampleEntry(), got)
}

func TestKafkaSink_ErrorNoSePropaga(t *testing.T) {
	var buf bytes.Buffer
	p := &fakeProducer{err: errors.New("broker caído")}
	sink := NewKafkaSinkWithProducer(p, zerolog.New(&buf))

	assert.NotPanics(t, func() { sink.Record(context.Background(), sampleEntry()) })
	assert.Contains(t, buf.String(), "broker caído")

	require.NoError(t, sink.Close())
	assert.True(t, p.closed)
}

// ─── LogSink ────────────────────────────────────────────────────────────────

func TestLogSink_NivelSegunResultado(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(zerolog.New(&buf))

	e := sampleEntry()
	sink.Record(context.Background(), e)
	e.Success = false
	e.Message = "stock insuficiente"
	sink.Record(context.Background(), e)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var ok, failed map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &ok))
	require.NoError(t, json.Unmarshal(lines[1], &failed))
	assert.Equal(t, "info", ok["level"])
	assert.Equal(t, "audit", ok["component"])
	assert.Equal(t, "mov-1", ok["entity_id"])
	assert.Equal(t, "W", ok["warehouse_id"])
	assert.NotContains(t, ok, "product_id")
	assert.Equal(t, "warn", failed["level"])
	assert.Equal(t, "stock insuficiente", failed["message"])
}
