package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/ditch-app/billing-service/internal/domain"
	"github.com/ditch-app/billing-service/pkg/logger"
)

// TopicSubscriptionChanged топик по умолчанию для событий изменения подписки
const TopicSubscriptionChanged = "subscription_changed"

// eventTypeHeader заголовок сообщения с типом события
const eventTypeHeader = "event_type"

const eventTypeSubscriptionChanged = "subscription.changed"

// Publisher публикует события об изменении подписок.
type Publisher interface {
	// PublishSubscriptionChanged отправляет событие. Ключ сообщения - user_id,
	// поэтому события одного пользователя попадают в одну партицию по порядку.
	PublishSubscriptionChanged(ctx context.Context, event domain.SubscriptionChangedEvent) error
	// Close закрывает соединение продюсера.
	Close() error
}

// messageWriter подмножество kafka.Writer
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// kafkaGoPublisher реализует Publisher поверх segmentio/kafka-go
type kafkaGoPublisher struct {
	writer messageWriter
	topic  string
	log    *logger.Logger
}

// NewKafkaGoPublisher создает продюсер на segmentio/kafka-go.
func NewKafkaGoPublisher(brokers []string, topic string, log *logger.Logger) (Publisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are not configured")
	}
	if topic == "" {
		topic = TopicSubscriptionChanged
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
	}

	log.Infow("Kafka producer initialized", "driver", "kafka-go", "brokers", brokers, "topic", topic)
	return newKafkaGoPublisher(writer, topic, log), nil
}

func newKafkaGoPublisher(writer messageWriter, topic string, log *logger.Logger) *kafkaGoPublisher {
	return &kafkaGoPublisher{writer: writer, topic: topic, log: log}
}

// PublishSubscriptionChanged реализует Publisher
func (k *kafkaGoPublisher) PublishSubscriptionChanged(ctx context.Context, event domain.SubscriptionChangedEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("kafka: failed to marshal message data: %w", err)
	}

	message := kafka.Message{
		Key:   []byte(event.UserID),
		Value: value,
		Headers: []kafka.Header{
			{Key: eventTypeHeader, Value: []byte(eventTypeSubscriptionChanged)},
		},
		Time: event.OccurredAt,
	}

	writeCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if err := k.writer.WriteMessages(writeCtx, message); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("kafka: write timeout: %w", err)
		}
		return fmt.Errorf("kafka: failed to write message: %w", err)
	}

	k.log.Infow("Published subscription event to Kafka", "topic", k.topic, "userID", event.UserID, "status", event.Status)
	return nil
}

// Close закрывает writer. Вызывается при graceful shutdown.
func (k *kafkaGoPublisher) Close() error {
	if err := k.writer.Close(); err != nil {
		return fmt.Errorf("kafka: failed to close writer: %w", err)
	}
	k.log.Infow("Kafka producer writer closed")
	return nil
}
