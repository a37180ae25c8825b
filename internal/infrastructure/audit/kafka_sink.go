package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/jhoicas/inventory-ledger/internal/application/inventory"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/pkg/config"
)

var _ inventory.AuditSink = (*KafkaSink)(nil)

// Producer es la parte de kafka.Writer que usa el sink.
type Producer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publica cada evento como JSON en KAFKA_AUDIT_TOPIC.
// La clave del mensaje es el ID de la entidad para conservar el orden por movimiento.
type KafkaSink struct {
	producer Producer
	log      zerolog.Logger
}

// NewKafkaSink construye un writer asíncrono: Record nunca bloquea la petición.
// Los errores de entrega se registran en el log.
func NewKafkaSink(cfg config.KafkaConfig, log zerolog.Logger) *KafkaSink {
	l := log.With().Str("component", "audit_kafka").Logger()
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.AuditTopic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
		Async:        true,
		Completion: func(msgs []kafka.Message, err error) {
			if err != nil {
				l.Error().Err(err).Int("messages", len(msgs)).Msg("no se pudieron publicar eventos de auditoría")
			}
		},
	}
	return NewKafkaSinkWithProducer(w, l)
}

// NewKafkaSinkWithProducer usa un productor ya construido.
func NewKafkaSinkWithProducer(p Producer, log zerolog.Logger) *KafkaSink {
	return &KafkaSink{producer: p, log: log}
}

func (s *KafkaSink) Record(ctx context.Context, e entity.AuditEntry) {
	payload, err := json.Marshal(e)
	if err != nil {
		s.log.Error().Err(err).Str("action", e.Action).Msg("evento de auditoría no serializable")
		return
	}
	msg := kafka.Message{
		Key:   []byte(e.EntityID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "action", Value: []byte(e.Action)},
		},
	}
	if err := s.producer.WriteMessages(context.WithoutCancel(ctx), msg); err != nil {
		s.log.Error().Err(err).Str("action", e.Action).Str("entity_id", e.EntityID).
			Msg("no se pudo encolar el evento de auditoría")
	}
}

// Close vacía el buffer del writer.
func (s *KafkaSink) Close() error {
	return s.producer.Close()
}
