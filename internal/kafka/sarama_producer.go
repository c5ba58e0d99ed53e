package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"

	"github.com/ditch-app/billing-service/internal/domain"
	"github.com/ditch-app/billing-service/pkg/logger"
)

type saramaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	log      *logger.Logger
}

// NewSaramaPublisher создает Publisher поверх sarama.SyncProducer
func NewSaramaPublisher(cfg *Config, topic string, log *logger.Logger) (Publisher, error) {
	producer, err := sarama.NewSyncProducer(cfg.Brokers, NewSaramaConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("kafka: failed to create sarama producer: %w", err)
	}
	log.Infow("Kafka producer initialized", "driver", "sarama", "brokers", cfg.Brokers, "topic", topic)
	return NewSaramaPublisherWithProducer(producer, topic, log), nil
}

// NewSaramaPublisherWithProducer оборачивает готовый SyncProducer
func NewSaramaPublisherWithProducer(producer sarama.SyncProducer, topic string, log *logger.Logger) Publisher {
	if topic == "" {
		topic = TopicSubscriptionChanged
	}
	return &saramaPublisher{producer: producer, topic: topic, log: log}
}

// PublishSubscriptionChanged реализует Publisher
func (p *saramaPublisher) PublishSubscriptionChanged(_ context.Context, event domain.SubscriptionChangedEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("kafka: failed to marshal subscription event: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.UserID),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte(eventTypeHeader), Value: []byte(eventTypeSubscriptionChanged)},
		},
		Timestamp: event.OccurredAt,
	}

	partition, offset, err := p.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("kafka: failed to publish subscription event: %w", err)
	}

	p.log.Infow("Published subscription event to Kafka", "topic", p.topic, "partition", partition, "offset", offset, "userID", event.UserID)
	return nil
}

// Close закрывает продюсер
func (p *saramaPublisher) Close() error {
	return p.producer.Close()
}
