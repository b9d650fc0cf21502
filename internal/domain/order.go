package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order aggregates the tickets bought in one checkout. Its tickets reference
// it by OrderID; TicketIDs is filled on load.
type Order struct {
	ID                    uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	Reference             string          `json:"reference" gorm:"type:varchar(32);uniqueIndex;not null"`
	UserID                uuid.UUID       `json:"user_id" gorm:"type:uuid;not null;index"`
	Total                 decimal.Decimal `json:"total" gorm:"type:numeric(12,2);not null"`
	Currency              string          `json:"currency" gorm:"type:varchar(3);not null"`
	OrderDate             time.Time       `json:"order_date" gorm:"not null"`
	PaymentIntentID       string          `json:"payment_intent_id" gorm:"type:varchar(100);not null;index"`
	Cancelled             bool            `json:"cancelled" gorm:"not null;default:false"`
	CancellationInvoiceID *uuid.UUID      `json:"cancellation_invoice_id,omitempty" gorm:"type:uuid"`
	TicketIDs             []uuid.UUID     `json:"ticket_ids" gorm:"-"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// CancellationInvoice records one refund. It is written once and never updated.
type CancellationInvoice struct {
	ID        uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	Reference string          `json:"reference" gorm:"type:varchar(32);uniqueIndex;not null"`
	OrderID   uuid.UUID       `json:"order_id" gorm:"type:uuid;not null;index"`
	UserID    uuid.UUID       `json:"user_id" gorm:"type:uuid;not null"`
	Amount    decimal.Decimal `json:"amount" gorm:"type:numeric(12,2);not null"`
	Currency  string          `json:"currency" gorm:"type:varchar(3);not null"`
	TicketIDs []uuid.UUID     `json:"ticket_ids" gorm:"-"`
	CreatedAt time.Time       `json:"created_at"`
}

// CancellationInvoiceItem links an invoice to one refunded ticket.
type CancellationInvoiceItem struct {
	InvoiceID uuid.UUID `gorm:"type:uuid;primaryKey"`
	TicketID  uuid.UUID `gorm:"type:uuid;primaryKey;uniqueIndex"`
}
