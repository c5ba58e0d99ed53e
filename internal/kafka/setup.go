package kafka

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	kafkaGo "github.com/segmentio/kafka-go"

	"github.com/ditch-app/billing-service/pkg/logger"
)

// TopicSpec параметры создаваемого топика
type TopicSpec struct {
	Name              string
	NumPartitions     int
	ReplicationFactor int
}

// DefaultTopics топики, которые нужны сервису
func DefaultTopics(topic string) []TopicSpec {
	if topic == "" {
		topic = TopicSubscriptionChanged
	}
	return []TopicSpec{{Name: topic, NumPartitions: 3, ReplicationFactor: 1}}
}

// EnsureTopics проверяет и создает необходимые топики Kafka через контроллер кластера.
func EnsureTopics(ctx context.Context, brokers []string, topics []TopicSpec, log *logger.Logger) error {
	if len(brokers) == 0 || strings.TrimSpace(brokers[0]) == "" {
		return errors.New("kafka broker address is empty")
	}
	broker := strings.TrimSpace(brokers[0])
	if _, _, err := net.SplitHostPort(broker); err != nil {
		return fmt.Errorf("invalid broker address %s: %w", broker, err)
	}

	dialCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	conn, err := kafkaGo.DialContext(dialCtx, "tcp", broker)
	if err != nil {
		return fmt.Errorf("kafka connection failed: %w", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("kafka controller lookup failed: %w", err)
	}
	controllerAddr := net.JoinHostPort(controller.Host, fmt.Sprint(controller.Port))
	controllerConn, err := kafkaGo.DialContext(dialCtx, "tcp", controllerAddr)
	if err != nil {
		return fmt.Errorf("kafka controller connection failed: %w", err)
	}
	defer controllerConn.Close()

	partitions, err := controllerConn.ReadPartitions()
	if err != nil {
		return fmt.Errorf("kafka read partitions failed: %w", err)
	}
	existing := make(map[string]bool, len(partitions))
	for _, p := range partitions {
		existing[p.Topic] = true
	}

	toCreate := missingTopics(topics, existing)
	if len(toCreate) == 0 {
		log.Infow("All required Kafka topics already exist")
		return nil
	}

	if err := controllerConn.CreateTopics(toCreate...); err != nil && !errors.Is(err, kafkaGo.TopicAlreadyExists) {
		return fmt.Errorf("kafka create topics failed: %w", err)
	}
	log.Infow("Kafka topics created", "topics", topicNames(toCreate))
	return nil
}

func missingTopics(topics []TopicSpec, existing map[string]bool) []kafkaGo.TopicConfig {
	var out []kafkaGo.TopicConfig
	for _, t := range topics {
		if existing[t.Name] {
			continue
		}
		out = append(out, kafkaGo.TopicConfig{
			Topic:             t.Name,
			NumPartitions:     t.NumPartitions,
			ReplicationFactor: t.ReplicationFactor,
		})
	}
	return out
}

func topicNames(configs []kafkaGo.TopicConfig) []string {
	names := make([]string, 0, len(configs))
	for _, c := range configs {
		names = append(names, c.Topic)
	}
	return names
}
