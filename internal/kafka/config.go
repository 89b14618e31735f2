package kafka

import (
	"time"

	"github.com/IBM/sarama"
	"github.com/kinderpay/billing-service/pkg/logger"
)

// Config holds the Kafka connection settings
type Config struct {
	Brokers []string
}

// NewConfig creates a new Kafka config
func NewConfig(brokers []string) *Config {
	return &Config{Brokers: brokers}
}

// NewSaramaConfig builds the sarama producer configuration used by the
// billing event producer
func NewSaramaConfig(cfg *Config, log *logger.Logger) *sarama.Config {
	saramaConfig := sarama.NewConfig()

	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = 5
	saramaConfig.Producer.Retry.Backoff = 100 * time.Millisecond
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Idempotent = true
	saramaConfig.Net.MaxOpenRequests = 1

	log.Debug("Configured sarama producer for brokers: %v", cfg.Brokers)
	return saramaConfig
}
