package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"boxoffice/internal/shared/config"
	"boxoffice/pkg/logger"
)

type failingSender struct {
	calls    int
	deadline bool
}

func (s *failingSender) Send(ctx context.Context, _ *Notification) error {
	s.calls++
	_, s.deadline = ctx.Deadline()
	return errors.New("broker down")
}

func (s *failingSender) Close() error { return nil }

func TestDispatchSwallowsAndLogsFailures(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, slog.LevelInfo)
	s := &failingSender{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	Dispatch(ctx, s, log, time.Second, TicketsExpired(uuid.New(), []uuid.UUID{uuid.New()}))

	if s.calls != 1 {
		t.Fatalf("Send calls = %d, want 1", s.calls)
	}
	if !s.deadline {
		t.Errorf("Send ran without a deadline")
	}
	if !strings.Contains(buf.String(), "notification not delivered") {
		t.Errorf("failure was not logged: %s", buf.String())
	}
}

func TestKafkaSenderPublishesKeyedByRecipient(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	n := OrderPurchased(uuid.New(), uuid.New(), "ORD-20260101-ABCDEF", []uuid.UUID{uuid.New()}, "150.00", "EUR")

	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		key, _ := msg.Key.Encode()
		if string(key) != n.RecipientID.String() {
			t.Errorf("key = %s, want recipient id", key)
		}
		if msg.Topic != "ticketing.notifications" {
			t.Errorf("topic = %s", msg.Topic)
		}
		body, _ := msg.Value.Encode()
		var got Notification
		if err := json.Unmarshal(body, &got); err != nil {
			return err
		}
		if got.Type != NotificationTypeOrderPurchased || got.Amount != "150.00" {
			t.Errorf("payload = %+v", got)
		}
		return nil
	})

	s := newKafkaSender(producer, "ticketing.notifications", logger.Discard())
	if err := s.Send(context.Background(), n); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestKafkaSenderReportsBrokerError(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	s := newKafkaSender(producer, "ticketing.notifications", logger.Discard())
	err := s.Send(context.Background(), TicketsExpired(uuid.New(), nil))
	if !errors.Is(err, sarama.ErrOutOfBrokers) {
		t.Fatalf("error = %v, want ErrOutOfBrokers", err)
	}
	_ = s.Close()
}

func TestRabbitPublishingIsPersistentJSON(t *testing.T) {
	n := OrderCancelled(uuid.New(), uuid.New(), uuid.New(), "CXL-20260101-ABCDEF", []uuid.UUID{uuid.New()}, "50.00", "EUR")
	pub, err := publishing(n)
	if err != nil {
		t.Fatal(err)
	}
	if pub.DeliveryMode != amqp.Persistent || pub.ContentType != "application/json" {
		t.Errorf("publishing = %+v", pub)
	}
	if pub.MessageId != n.ID.String() || pub.Type != string(NotificationTypeOrderCancelled) {
		t.Errorf("message id/type = %s/%s", pub.MessageId, pub.Type)
	}
}

func TestNewSenderSelectsBackend(t *testing.T) {
	s, err := NewSender(config.NotificationConfig{Backend: "log"}, logger.Discard())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*LogSender); !ok {
		t.Errorf("sender = %T, want *LogSender", s)
	}
	if _, err := NewSender(config.NotificationConfig{Backend: "pigeon"}, logger.Discard()); err == nil {
		t.Errorf("unknown backend accepted")
	}
}
