package orders

import (
	"time"

	"github.com/google/uuid"

	"boxoffice/internal/domain"
)

type OrderResponse struct {
	ID                    uuid.UUID   `json:"id"`
	Reference             string      `json:"reference"`
	Total                 string      `json:"total"`
	Currency              string      `json:"currency"`
	OrderDate             time.Time   `json:"order_date"`
	PaymentIntentID       string      `json:"payment_intent_id"`
	Cancelled             bool        `json:"cancelled"`
	CancellationInvoiceID *uuid.UUID  `json:"cancellation_invoice_id,omitempty"`
	TicketIDs             []uuid.UUID `json:"ticket_ids"`
}

type InvoiceResponse struct {
	ID        uuid.UUID   `json:"id"`
	Reference string      `json:"reference"`
	OrderID   uuid.UUID   `json:"order_id"`
	Amount    string      `json:"amount"`
	Currency  string      `json:"currency"`
	TicketIDs []uuid.UUID `json:"ticket_ids"`
	CreatedAt time.Time   `json:"created_at"`
}

type CancelResponse struct {
	Order   OrderResponse   `json:"order"`
	Invoice InvoiceResponse `json:"invoice"`
}

func ToOrderResponse(o *domain.Order) OrderResponse {
	return OrderResponse{
		ID:                    o.ID,
		Reference:             o.Reference,
		Total:                 o.Total.StringFixed(2),
		Currency:              o.Currency,
		OrderDate:             o.OrderDate,
		PaymentIntentID:       o.PaymentIntentID,
		Cancelled:             o.Cancelled,
		CancellationInvoiceID: o.CancellationInvoiceID,
		TicketIDs:             o.TicketIDs,
	}
}

func ToInvoiceResponse(inv *domain.CancellationInvoice) InvoiceResponse {
	return InvoiceResponse{
		ID:        inv.ID,
		Reference: inv.Reference,
		OrderID:   inv.OrderID,
		Amount:    inv.Amount.StringFixed(2),
		Currency:  inv.Currency,
		TicketIDs: inv.TicketIDs,
		CreatedAt: inv.CreatedAt,
	}
}
