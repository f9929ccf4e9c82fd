package kafka_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/storeflow-api/internal/domain/entity"
	"github.com/jhoicas/storeflow-api/internal/infrastructure/kafka"
)

func TestPublishMovement_EventoJSONConClaveDeProducto(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		key, err := msg.Key.Encode()
		if err != nil {
			return err
		}
		if string(key) != "P1" {
			return errors.New("clave distinta al producto")
		}
		if msg.Topic != "inventory.movements" {
			return errors.New("tópico incorrecto")
		}
		return nil
	})
	pub := kafka.NewPublisherWithProducer(producer, "inventory.movements", nil)
	defer func() { require.NoError(t, pub.Close()) }()

	require.NoError(t, pub.PublishMovement(context.Background(), &entity.Movement{
		ID: "07010001", ProductID: "P1", Kind: entity.MovementOut, Quantity: 30, WarehouseID: "WH01", BalanceAfter: 20,
	}))
}

func TestPublishMovement_ErrorDelBroker(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)
	pub := kafka.NewPublisherWithProducer(producer, "t", nil)
	defer func() { _ = pub.Close() }()

	err := pub.PublishMovement(context.Background(), &entity.Movement{ID: "IN-1", ProductID: "P1", Kind: entity.MovementIn, Quantity: 1})
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
}

func TestMovementEvent_Forma(t *testing.T) {
	body, err := json.Marshal(kafka.MovementEvent{EventType: kafka.EventTypeMovementRecorded, MovementID: "TR-1", Kind: "transfer", FromWarehouseID: "A", ToWarehouseID: "B"})
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "transfer", got["kind"])
	assert.NotContains(t, got, "warehouse_id")
	assert.Equal(t, "B", got["to_warehouse_id"])
}
