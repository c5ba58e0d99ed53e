package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ditch-app/billing-service/internal/domain"
	"github.com/ditch-app/billing-service/pkg/logger"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func sampleEvent() domain.SubscriptionChangedEvent {
	return domain.SubscriptionChangedEvent{
		UserID:          "u1",
		Tier:            domain.SubscriptionTierPremium,
		Status:          domain.SubscriptionStatusActive,
		SourceEventType: "subscription.created",
		SourceEventID:   "E1",
		OccurredAt:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestKafkaGoPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaGoPublisher(w, TopicSubscriptionChanged, logger.NewNop())

	require.NoError(t, p.PublishSubscriptionChanged(context.Background(), sampleEvent()))
	require.Len(t, w.messages, 1)

	msg := w.messages[0]
	assert.Equal(t, "u1", string(msg.Key))
	assert.Equal(t, eventTypeHeader, msg.Headers[0].Key)

	var got domain.SubscriptionChangedEvent
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, sampleEvent(), got)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaGoPublisher_WriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := newKafkaGoPublisher(w, TopicSubscriptionChanged, logger.NewNop())

	err := p.PublishSubscriptionChanged(context.Background(), sampleEvent())
	assert.ErrorContains(t, err, "broker down")
}

func TestNewKafkaGoPublisher_RequiresBrokers(t *testing.T) {
	_, err := NewKafkaGoPublisher(nil, "", logger.NewNop())
	assert.Error(t, err)
}

func TestSaramaPublisher_Publish(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "custom_topic" {
			return errors.New("unexpected topic " + msg.Topic)
		}
		key, err := msg.Key.Encode()
		if err != nil {
			return err
		}
		if string(key) != "u1" {
			return errors.New("unexpected key " + string(key))
		}
		return nil
	})

	p := NewSaramaPublisherWithProducer(producer, "custom_topic", logger.NewNop())
	require.NoError(t, p.PublishSubscriptionChanged(context.Background(), sampleEvent()))
	require.NoError(t, p.Close())
}

func TestSaramaPublisher_SendError(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewSaramaPublisherWithProducer(producer, "", logger.NewNop())
	err := p.PublishSubscriptionChanged(context.Background(), sampleEvent())
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, p.Close())
}

func TestMissingTopics(t *testing.T) {
	got := missingTopics(DefaultTopics(""), map[string]bool{"other": true})
	require.Len(t, got, 1)
	assert.Equal(t, TopicSubscriptionChanged, got[0].Topic)
	assert.Equal(t, 3, got[0].NumPartitions)

	assert.Empty(t, missingTopics(DefaultTopics("x"), map[string]bool{"x": true}))
}

func TestNewSaramaConfig(t *testing.T) {
	cfg := NewSaramaConfig(NewConfig([]string{"localhost:9092"}))
	assert.True(t, cfg.Producer.Return.Successes)
	assert.Equal(t, sarama.WaitForAll, cfg.Producer.RequiredAcks)
	assert.Equal(t, "billing-service", cfg.ClientID)
	assert.NoError(t, cfg.Validate())
}
