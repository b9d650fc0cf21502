package tickets

import (
	"time"

	"github.com/google/uuid"

	"boxoffice/internal/domain"
)

type TicketResponse struct {
	ID               uuid.UUID          `json:"id"`
	ShowID           uuid.UUID          `json:"show_id"`
	Type             domain.TicketType  `json:"type"`
	State            domain.TicketState `json:"state"`
	SeatID           *uuid.UUID         `json:"seat_id,omitempty"`
	StandingSectorID *uuid.UUID         `json:"standing_sector_id,omitempty"`
	Price            string             `json:"price"`
	OrderID          *uuid.UUID         `json:"order_id,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	PurchasedAt      *time.Time         `json:"purchased_at,omitempty"`
	CancelledAt      *time.Time         `json:"cancelled_at,omitempty"`
}

func ToTicketResponse(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:               t.ID,
		ShowID:           t.ShowID,
		Type:             t.Type,
		State:            t.State,
		SeatID:           t.SeatID,
		StandingSectorID: t.StandingSectorID,
		Price:            t.Price.StringFixed(2),
		OrderID:          t.OrderID,
		CreatedAt:        t.CreatedAt,
		PurchasedAt:      t.PurchasedAt,
		CancelledAt:      t.CancelledAt,
	}
}

func ToTicketResponses(ts []domain.Ticket) []TicketResponse {
	out := make([]TicketResponse, len(ts))
	for i := range ts {
		out[i] = ToTicketResponse(&ts[i])
	}
	return out
}
