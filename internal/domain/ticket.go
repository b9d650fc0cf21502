package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"boxoffice/internal/shared/apperr"
)

// Ticket holds exactly one seat or one standing slot of a show.
type Ticket struct {
	ID               uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	ShowID           uuid.UUID       `json:"show_id" gorm:"type:uuid;not null;index"`
	UserID           uuid.UUID       `json:"user_id" gorm:"type:uuid;not null;index"`
	OrderID          *uuid.UUID      `json:"order_id,omitempty" gorm:"type:uuid;index"`
	PricingID        uuid.UUID       `json:"pricing_id" gorm:"type:uuid;not null"`
	Type             TicketType      `json:"type" gorm:"type:varchar(20);not null"`
	SeatID           *uuid.UUID      `json:"seat_id,omitempty" gorm:"type:uuid"`
	StandingSectorID *uuid.UUID      `json:"standing_sector_id,omitempty" gorm:"type:uuid"`
	Price            decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null"`
	State            TicketState     `json:"state" gorm:"type:varchar(20);not null;index"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	PurchasedAt      *time.Time      `json:"purchased_at,omitempty"`
	CancelledAt      *time.Time      `json:"cancelled_at,omitempty"`
}

// NewSeatTicket prepares a regular ticket for a seat priced by p.
func NewSeatTicket(showID, userID, seatID uuid.UUID, p *ShowSectorPricing, state TicketState, now time.Time) *Ticket {
	seat := seatID
	return &Ticket{
		ID:        uuid.New(),
		ShowID:    showID,
		UserID:    userID,
		PricingID: p.ID,
		Type:      TicketTypeRegular,
		SeatID:    &seat,
		Price:     p.Price,
		State:     state,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewStandingTicket prepares a ticket for one slot of the standing sector priced by p.
func NewStandingTicket(showID, userID uuid.UUID, p *ShowSectorPricing, state TicketState, now time.Time) *Ticket {
	sector := *p.StandingSectorID
	return &Ticket{
		ID:               uuid.New(),
		ShowID:           showID,
		UserID:           userID,
		PricingID:        p.ID,
		Type:             TicketTypeStanding,
		StandingSectorID: &sector,
		Price:            p.Price,
		State:            state,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// IsLive reports whether the ticket currently occupies capacity.
func (t *Ticket) IsLive() bool {
	return t.State.IsLive()
}

// TransitionTo moves the ticket to next, rejecting illegal moves with a conflict.
func (t *Ticket) TransitionTo(next TicketState, at time.Time) error {
	if !t.State.CanTransitionTo(next) {
		return apperr.Conflict("ticket %s cannot move from %s to %s", t.ID, t.State, next)
	}
	t.State = next
	t.UpdatedAt = at
	switch next {
	case TicketStatePurchased:
		t.PurchasedAt = &at
	case TicketStateCancelled:
		t.CancelledAt = &at
	}
	return nil
}

// Purchase binds the ticket to an order. The order link is never cleared afterwards.
func (t *Ticket) Purchase(orderID uuid.UUID, at time.Time) error {
	if t.OrderID != nil {
		return apperr.Conflict("ticket %s already belongs to order %s", t.ID, *t.OrderID)
	}
	if err := t.TransitionTo(TicketStatePurchased, at); err != nil {
		return err
	}
	id := orderID
	t.OrderID = &id
	return nil
}
