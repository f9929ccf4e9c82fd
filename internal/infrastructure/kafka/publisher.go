// Package kafka publica los movimientos confirmados como eventos JSON.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/jhoicas/storeflow-api/internal/application/ledger"
	"github.com/jhoicas/storeflow-api/internal/domain/entity"
	"github.com/jhoicas/storeflow-api/pkg/logger"
)

// EventTypeMovementRecorded tipo del evento publicado.
const EventTypeMovementRecorded = "inventory.movement.recorded"

// MovementEvent cuerpo del mensaje. La clave del mensaje es el producto, así los
// movimientos de un mismo producto conservan el orden dentro de la partición.
type MovementEvent struct {
	EventType       string    `json:"event_type"`
	MovementID      string    `json:"movement_id"`
	ProductID       string    `json:"product_id"`
	Kind            string    `json:"kind"`
	Quantity        int64     `json:"quantity"`
	WarehouseID     string    `json:"warehouse_id,omitempty"`
	FromWarehouseID string    `json:"from_warehouse_id,omitempty"`
	ToWarehouseID   string    `json:"to_warehouse_id,omitempty"`
	BalanceAfter    int64     `json:"balance_after"`
	Date            string    `json:"date"`
	CreatedAt       time.Time `json:"created_at"`
	CreatedBy       string    `json:"created_by,omitempty"`
}

// Publisher productor síncrono de Kafka.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
	log      *logger.Logger
}

var _ ledger.Publisher = (*Publisher)(nil)

// NewPublisher crea el productor con acks de todas las réplicas.
func NewPublisher(brokers []string, topic, clientID string, log *logger.Logger) (*Publisher, error) {
	cfg := sarama.NewConfig()
	cfg.ClientID = clientID
	cfg.Producer.Return.Successes = true
	cfg.Producer.Retry.Max = 3
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Compression = sarama.CompressionSnappy
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka: crear productor: %w", err)
	}
	p := NewPublisherWithProducer(producer, topic, log)
	p.log.Info().Strs("brokers", brokers).Str("topic", topic).Msg("publicador kafka iniciado")
	return p, nil
}

// NewPublisherWithProducer usa un productor ya construido (tests con sarama/mocks).
func NewPublisherWithProducer(producer sarama.SyncProducer, topic string, log *logger.Logger) *Publisher {
	if log == nil {
		log = logger.Nop()
	}
	return &Publisher{producer: producer, topic: topic, log: log.Component("kafka")}
}

// PublishMovement implementa ledger.Publisher.
func (p *Publisher) PublishMovement(_ context.Context, m *entity.Movement) error {
	body, err := json.Marshal(toEvent(m))
	if err != nil {
		return fmt.Errorf("kafka: serializar evento: %w", err)
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(m.ProductID),
		Value: sarama.ByteEncoder(body),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(EventTypeMovementRecorded)},
			{Key: []byte("movement_id"), Value: []byte(m.ID)},
		},
	}
	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("kafka: enviar %s: %w", m.ID, err)
	}
	p.log.Debug().
		Str("movement_id", m.ID).
		Int32("partition", partition).
		Int64("offset", offset).
		Msg("evento publicado")
	return nil
}

// Close cierra el productor.
func (p *Publisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

func toEvent(m *entity.Movement) MovementEvent {
	return MovementEvent{
		EventType:       EventTypeMovementRecorded,
		MovementID:      m.ID,
		ProductID:       m.ProductID,
		Kind:            string(m.Kind),
		Quantity:        m.Quantity,
		WarehouseID:     m.WarehouseID,
		FromWarehouseID: m.FromWarehouseID,
		ToWarehouseID:   m.ToWarehouseID,
		BalanceAfter:    m.BalanceAfter,
		Date:            m.Date,
		CreatedAt:       m.CreatedAt,
		CreatedBy:       m.CreatedBy,
	}
}
