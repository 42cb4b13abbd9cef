package kafka

import (
	"time"
)

// Config holds Kafka producer configuration
type Config struct {
	Brokers  []string
	ClientID string

	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int // 0: no ack, 1: leader ack, -1: all replicas ack
	WriteTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Brokers:      []string{"localhost:9092"},
		ClientID:     "cssd-service",
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: -1,
		WriteTimeout: 10 * time.Second,
	}
}

// Topics contains all CSSD Kafka topic names
var Topics = struct {
	TransactionEvents  string
	PackEvents         string
	ProcessingEvents   string
	NotificationEvents string
}{
	TransactionEvents:  "cssd.transactions.events",
	PackEvents:         "cssd.packs.events",
	ProcessingEvents:   "cssd.processing.events",
	NotificationEvents: "cssd.notifications",
}

// TopicConfig holds configuration for a Kafka topic
type TopicConfig struct {
	Name              string
	Partitions        int
	ReplicationFactor int
	RetentionMs       int64
}

const day = 24 * 60 * 60 * 1000

// DefaultTopicConfigs returns default configurations for CSSD topics
func DefaultTopicConfigs() []TopicConfig {
	return []TopicConfig{
		{Name: Topics.TransactionEvents, Partitions: 6, ReplicationFactor: 3, RetentionMs: 30 * day},
		{Name: Topics.PackEvents, Partitions: 3, ReplicationFactor: 3, RetentionMs: 30 * day},
		{Name: Topics.ProcessingEvents, Partitions: 3, ReplicationFactor: 3, RetentionMs: 90 * day}, // sterilization audit
		{Name: Topics.NotificationEvents, Partitions: 3, ReplicationFactor: 3, RetentionMs: 7 * day},
	}
}

// TopicForEvent routes a CloudEvent type recorded by the ledger to its topic.
// Staff alerts are published straight to Topics.NotificationEvents.
func TopicForEvent(eventType string) string {
	switch eventType {
	case "cssd.pack.created", "cssd.pack.sterilized", "cssd.pack.expired":
		return Topics.PackEvents
	case "cssd.items.sterilized":
		return Topics.ProcessingEvents
	default:
		return Topics.TransactionEvents
	}
}
