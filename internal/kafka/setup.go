package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kinderpay/billing-service/internal/kafka/producer"
	"github.com/kinderpay/billing-service/pkg/logger"
	kafkaGo "github.com/segmentio/kafka-go"
)

// EnsureTopics checks that the billing topics exist and creates any
// missing ones. Runs once at startup before the producer starts
// publishing.
func EnsureTopics(brokers []string, log *logger.Logger) error {
	requiredTopics := []kafkaGo.TopicConfig{
		{Topic: producer.TopicAgreementCreated, NumPartitions: 3, ReplicationFactor: 1},
		{Topic: producer.TopicAgreementState, NumPartitions: 3, ReplicationFactor: 1},
		{Topic: producer.TopicPaymentCreated, NumPartitions: 3, ReplicationFactor: 1},
		{Topic: producer.TopicPaymentOutcome, NumPartitions: 3, ReplicationFactor: 1},
	}

	if len(brokers) == 0 || brokers[0] == "" {
		return errors.New("kafka broker address is empty")
	}

	connCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, err := kafkaGo.DialContext(connCtx, "tcp", brokers[0])
	if err != nil {
		return fmt.Errorf("kafka connection failed: %w", err)
	}
	defer conn.Close()

	partitions, err := conn.ReadPartitions()
	if err != nil {
		return fmt.Errorf("kafka read partitions failed: %w", err)
	}

	existing := make(map[string]bool)
	for _, p := range partitions {
		existing[p.Topic] = true
	}

	var toCreate []kafkaGo.TopicConfig
	for _, topic := range requiredTopics {
		if !existing[topic.Topic] {
			toCreate = append(toCreate, topic)
		}
	}

	if len(toCreate) == 0 {
		log.Debug("All billing topics already exist")
		return nil
	}

	if err := conn.CreateTopics(toCreate...); err != nil {
		if errors.Is(err, kafkaGo.TopicAlreadyExists) {
			log.Warn("Topics already existed during creation attempt")
			return nil
		}
		return fmt.Errorf("kafka create topics failed: %w", err)
	}

	log.Info("Created %d billing topics", len(toCreate))
	return nil
}
