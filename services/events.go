package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fabrino-server/models"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
)

// OrderEvents publishes order events to a Kafka topic.
type OrderEvents struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafkaProducerConfig returns the producer settings used for order events.
func NewKafkaProducerConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Timeout = 5 * time.Second
	return config
}

// NewOrderEvents connects a sync producer to brokers.
func NewOrderEvents(brokers []string, topic string) (*OrderEvents, error) {
	producer, err := sarama.NewSyncProducer(brokers, NewKafkaProducerConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to start Sarama producer: %w", err)
	}

	log.WithFields(log.Fields{"brokers": brokers, "topic": topic}).Info("Kafka producer connected")
	return NewOrderEventsWithProducer(producer, topic), nil
}

func NewOrderEventsWithProducer(producer sarama.SyncProducer, topic string) *OrderEvents {
	return &OrderEvents{producer: producer, topic: topic}
}

// PublishOrderPlaced sends evt keyed by order id.
func (p *OrderEvents) PublishOrderPlaced(ctx context.Context, evt models.OrderEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(evt.OrderID),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event"), Value: []byte("order.placed")},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("send order event to %s: %w", p.topic, err)
	}

	log.WithFields(log.Fields{
		"order_id":  evt.OrderID,
		"topic":     p.topic,
		"partition": partition,
		"offset":    offset,
	}).Debug("Order event published")
	return nil
}

func (p *OrderEvents) Close() error {
	return p.producer.Close()
}
