package notifications

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"boxoffice/pkg/logger"
)

// RabbitSender publishes notifications to a durable RabbitMQ queue through
// the default exchange.
type RabbitSender struct {
	queue string
	log   *logger.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewRabbitSender(url, queue string, log *logger.Logger) (*RabbitSender, error) {
	if log == nil {
		log = logger.GetDefault()
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: dial failed: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: channel open failed: %w", err)
	}
	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: queue declare failed: %w", err)
	}
	return &RabbitSender{queue: queue, log: log, conn: conn, ch: ch}, nil
}

func publishing(n *Notification) (amqp.Publishing, error) {
	body, err := n.ToJSON()
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("rabbitmq: marshal notification failed: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    n.ID.String(),
		Type:         string(n.Type),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}, nil
}

func (s *RabbitSender) Send(ctx context.Context, n *Notification) error {
	pub, err := publishing(n)
	if err != nil {
		return err
	}

	// amqp channels are not safe for concurrent publishing.
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ch.PublishWithContext(ctx, "", s.queue, false, false, pub); err != nil {
		return fmt.Errorf("rabbitmq: publish failed: %w", err)
	}
	s.log.InfoWithContext(ctx, "notification published", map[string]interface{}{
		"queue":           s.queue,
		"notification_id": n.ID.String(),
		"type":            string(n.Type),
	})
	return nil
}

func (s *RabbitSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	chErr := s.ch.Close()
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("rabbitmq: close failed: %w", err)
	}
	return chErr
}
