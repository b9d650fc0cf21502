package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"boxoffice/pkg/logger"
)

// KafkaSenderConfig contains configuration for the Kafka notification producer
type KafkaSenderConfig struct {
	Brokers          []string
	Topic            string
	RetryMax         int
	Timeout          time.Duration
	RequiredAcks     sarama.RequiredAcks
	CompressionType  sarama.CompressionCodec
	IdempotentWrites bool
	MaxMessageBytes  int
}

func DefaultKafkaSenderConfig(brokers []string, topic string) *KafkaSenderConfig {
	return &KafkaSenderConfig{
		Brokers:          brokers,
		Topic:            topic,
		RetryMax:         3,
		Timeout:          10 * time.Second,
		RequiredAcks:     sarama.WaitForAll,
		CompressionType:  sarama.CompressionSnappy,
		IdempotentWrites: true,
		MaxMessageBytes:  1000000, // 1MB
	}
}

func (c *KafkaSenderConfig) saramaConfig() *sarama.Config {
	sc := sarama.NewConfig()
	sc.Producer.Return.Successes = true
	sc.Producer.Return.Errors = true
	sc.Producer.RequiredAcks = c.RequiredAcks
	sc.Producer.Compression = c.CompressionType
	sc.Producer.Retry.Max = c.RetryMax
	sc.Producer.Timeout = c.Timeout
	sc.Producer.Idempotent = c.IdempotentWrites
	sc.Producer.MaxMessageBytes = c.MaxMessageBytes
	if c.IdempotentWrites {
		sc.Net.MaxOpenRequests = 1
	}
	// messages of one recipient stay on one partition
	sc.Producer.Partitioner = sarama.NewHashPartitioner
	return sc
}

// KafkaSender publishes notifications to a Kafka topic.
type KafkaSender struct {
	producer sarama.SyncProducer
	topic    string
	log      *logger.Logger
}

func NewKafkaSender(cfg *KafkaSenderConfig, log *logger.Logger) (*KafkaSender, error) {
	producer, err := sarama.NewSyncProducer(cfg.Brokers, cfg.saramaConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	return newKafkaSender(producer, cfg.Topic, log), nil
}

func newKafkaSender(producer sarama.SyncProducer, topic string, log *logger.Logger) *KafkaSender {
	if log == nil {
		log = logger.GetDefault()
	}
	return &KafkaSender{producer: producer, topic: topic, log: log}
}

func (s *KafkaSender) Send(ctx context.Context, n *Notification) error {
	body, err := n.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	msg := &sarama.ProducerMessage{
		Topic:     s.topic,
		Key:       sarama.StringEncoder(n.PartitionKey()),
		Value:     sarama.ByteEncoder(body),
		Headers:   headers(n),
		Timestamp: n.CreatedAt,
	}

	// SendMessage cannot be interrupted; the producer timeout bounds it.
	partition, offset, err := s.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to send notification to Kafka: %w", err)
	}
	s.log.InfoWithContext(ctx, "notification published", map[string]interface{}{
		"topic":           s.topic,
		"partition":       partition,
		"offset":          offset,
		"notification_id": n.ID.String(),
		"type":            string(n.Type),
	})
	return nil
}

func headers(n *Notification) []sarama.RecordHeader {
	h := []sarama.RecordHeader{
		{Key: []byte("notification_id"), Value: []byte(n.ID.String())},
		{Key: []byte("notification_type"), Value: []byte(n.Type)},
		{Key: []byte("priority"), Value: []byte(n.Priority)},
		{Key: []byte("recipient_id"), Value: []byte(n.RecipientID.String())},
		{Key: []byte("producer"), Value: []byte("boxoffice")},
		{Key: []byte("created_at"), Value: []byte(n.CreatedAt.Format(time.RFC3339))},
	}
	if n.OrderID != nil {
		h = append(h, sarama.RecordHeader{Key: []byte("order_id"), Value: []byte(n.OrderID.String())})
	}
	return h
}

func (s *KafkaSender) Close() error {
	if err := s.producer.Close(); err != nil {
		return fmt.Errorf("failed to close Kafka producer: %w", err)
	}
	return nil
}
