// Package notifications publishes messages about committed orders and
// tickets. Delivery is best effort: a failed send never undoes the state
// change it reports.
package notifications

import (
	"context"
	"fmt"
	"time"

	"boxoffice/internal/shared/config"
	"boxoffice/pkg/logger"
)

// Sender delivers one notification.
type Sender interface {
	Send(ctx context.Context, n *Notification) error
	Close() error
}

// NewSender builds the backend selected by cfg.Backend.
func NewSender(cfg config.NotificationConfig, log *logger.Logger) (Sender, error) {
	switch cfg.Backend {
	case "", "log":
		return NewLogSender(log), nil
	case "kafka":
		return NewKafkaSender(DefaultKafkaSenderConfig(cfg.KafkaBrokers, cfg.KafkaTopic), log)
	case "rabbitmq":
		return NewRabbitSender(cfg.RabbitURL, cfg.RabbitQueue, log)
	default:
		return nil, fmt.Errorf("unknown notification backend %q", cfg.Backend)
	}
}

// Dispatch sends n and logs a failure instead of returning it. The send is
// bounded by timeout and survives cancellation of ctx, which usually belongs
// to a request that has already been answered.
func Dispatch(ctx context.Context, s Sender, log *logger.Logger, timeout time.Duration, n *Notification) {
	if s == nil || n == nil {
		return
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	if err := s.Send(sendCtx, n); err != nil {
		log.WarnWithContext(ctx, "notification not delivered", err, map[string]interface{}{
			"notification_id": n.ID.String(),
			"type":            string(n.Type),
			"recipient_id":    n.RecipientID.String(),
		})
	}
}

// LogSender writes notifications to the log. It is the default backend.
type LogSender struct {
	log *logger.Logger
}

func NewLogSender(log *logger.Logger) *LogSender {
	if log == nil {
		log = logger.GetDefault()
	}
	return &LogSender{log: log}
}

func (s *LogSender) Send(ctx context.Context, n *Notification) error {
	s.log.InfoWithContext(ctx, "notification", map[string]interface{}{
		"notification_id": n.ID.String(),
		"type":            string(n.Type),
		"recipient_id":    n.RecipientID.String(),
		"reference":       n.Reference,
		"ticket_count":    len(n.TicketIDs),
		"amount":          n.Amount,
	})
	return nil
}

func (s *LogSender) Close() error { return nil }
