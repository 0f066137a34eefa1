package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"fabrino-server/models"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishOrderPlaced(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var evt models.OrderEvent
		if err := json.Unmarshal(val, &evt); err != nil {
			return err
		}
		if evt.OrderID != "order-1" || len(evt.Items) != 1 {
			return errors.New("unexpected event payload")
		}
		return nil
	})

	events := NewOrderEventsWithProducer(producer, "orders.placed")
	err := events.PublishOrderPlaced(context.Background(), models.OrderEvent{
		OrderID:  "order-1",
		Total:    145,
		Items:    []models.OrderItem{{OrderID: "order-1", ProductID: "1", Quantity: 1, Price: 145}},
		PlacedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	require.NoError(t, events.Close())
}

func TestPublishOrderPlacedFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	events := NewOrderEventsWithProducer(producer, "orders.placed")
	err := events.PublishOrderPlaced(context.Background(), models.OrderEvent{OrderID: "order-1"})
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, events.Close())
}

func TestPublishSkipsCancelledContext(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	events := NewOrderEventsWithProducer(producer, "orders.placed")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, events.PublishOrderPlaced(ctx, models.OrderEvent{OrderID: "x"}), context.Canceled)
	require.NoError(t, events.Close())
}

func TestProducerConfig(t *testing.T) {
	config := NewKafkaProducerConfig()
	assert.Equal(t, sarama.WaitForAll, config.Producer.RequiredAcks)
	assert.Equal(t, 5, config.Producer.Retry.Max)
	assert.True(t, config.Producer.Return.Successes)
}
