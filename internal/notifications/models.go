package notifications

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationTypeOrderPurchased NotificationType = "ORDER_PURCHASED"
	NotificationTypeOrderCancelled NotificationType = "ORDER_CANCELLED"
	NotificationTypeTicketsExpired NotificationType = "TICKETS_EXPIRED"
)

type NotificationPriority string

const (
	NotificationPriorityMedium NotificationPriority = "MEDIUM"
	NotificationPriorityHigh   NotificationPriority = "HIGH"
)

// Notification is a message about committed ticket or order state. It is
// only built after the change it describes has been persisted.
type Notification struct {
	ID          uuid.UUID            `json:"id"`
	Type        NotificationType     `json:"type"`
	Priority    NotificationPriority `json:"priority"`
	RecipientID uuid.UUID            `json:"recipient_id"`

	OrderID   *uuid.UUID  `json:"order_id,omitempty"`
	InvoiceID *uuid.UUID  `json:"invoice_id,omitempty"`
	Reference string      `json:"reference,omitempty"`
	TicketIDs []uuid.UUID `json:"ticket_ids"`
	Amount    string      `json:"amount,omitempty"`
	Currency  string      `json:"currency,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// OrderPurchased describes a committed purchase.
func OrderPurchased(userID, orderID uuid.UUID, reference string, ticketIDs []uuid.UUID, total, currency string) *Notification {
	return newNotification(NotificationTypeOrderPurchased, NotificationPriorityHigh, userID, func(n *Notification) {
		n.OrderID = &orderID
		n.Reference = reference
		n.TicketIDs = ticketIDs
		n.Amount = total
		n.Currency = currency
	})
}

// OrderCancelled describes a committed cancellation and its refund.
func OrderCancelled(userID, orderID, invoiceID uuid.UUID, reference string, ticketIDs []uuid.UUID, refund, currency string) *Notification {
	return newNotification(NotificationTypeOrderCancelled, NotificationPriorityHigh, userID, func(n *Notification) {
		n.OrderID = &orderID
		n.InvoiceID = &invoiceID
		n.Reference = reference
		n.TicketIDs = ticketIDs
		n.Amount = refund
		n.Currency = currency
	})
}

// TicketsExpired tells a user that unpaid tickets were released.
func TicketsExpired(userID uuid.UUID, ticketIDs []uuid.UUID) *Notification {
	return newNotification(NotificationTypeTicketsExpired, NotificationPriorityMedium, userID, func(n *Notification) {
		n.TicketIDs = ticketIDs
	})
}

func newNotification(t NotificationType, p NotificationPriority, userID uuid.UUID, fill func(*Notification)) *Notification {
	n := &Notification{
		ID:          uuid.New(),
		Type:        t,
		Priority:    p,
		RecipientID: userID,
		CreatedAt:   time.Now().UTC(),
	}
	fill(n)
	return n
}

// PartitionKey keeps all messages of one user in order on a partitioned broker.
func (n *Notification) PartitionKey() string {
	return n.RecipientID.String()
}

func (n *Notification) ToJSON() ([]byte, error) {
	return json.Marshal(n)
}
