package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"boxoffice/internal/shared/apperr"
)

func TestTicketStateTransitions(t *testing.T) {
	tests := []struct {
		from, to TicketState
		want     bool
	}{
		{TicketStateInCart, TicketStateReserved, true},
		{TicketStateInCart, TicketStatePurchased, true},
		{TicketStateReserved, TicketStatePurchased, true},
		{TicketStateReserved, TicketStateInCart, false},
		{TicketStatePurchased, TicketStateCancelled, true},
		{TicketStatePurchased, TicketStatePurchased, false},
		{TicketStatePurchased, TicketStateReserved, false},
		{TicketStateCancelled, TicketStatePurchased, false},
		{TicketStateCancelled, TicketStateInCart, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestLiveStates(t *testing.T) {
	for _, s := range LiveTicketStates {
		if !s.IsLive() {
			t.Errorf("%s.IsLive() = false, want true", s)
		}
	}
	if TicketStateCancelled.IsLive() {
		t.Error("CANCELLED must not hold capacity")
	}
	if TicketState("SOLD").IsValid() {
		t.Error("unknown state reported as valid")
	}
}

func TestTicketPurchaseBindsOrderOnce(t *testing.T) {
	now := time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC)
	sector := uuid.New()
	p := &ShowSectorPricing{ID: uuid.New(), SectorID: &sector, Price: decimal.RequireFromString("50.00")}
	tk := NewSeatTicket(uuid.New(), uuid.New(), uuid.New(), p, TicketStateInCart, now)

	orderID := uuid.New()
	if err := tk.Purchase(orderID, now); err != nil {
		t.Fatalf("Purchase: %v", err)
	}
	if tk.State != TicketStatePurchased || tk.OrderID == nil || *tk.OrderID != orderID {
		t.Fatalf("ticket = %+v, want purchased under %s", tk, orderID)
	}
	if tk.PurchasedAt == nil || !tk.PurchasedAt.Equal(now) {
		t.Errorf("PurchasedAt = %v, want %v", tk.PurchasedAt, now)
	}

	err := tk.Purchase(uuid.New(), now)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("second Purchase error = %v, want conflict", err)
	}
	if *tk.OrderID != orderID {
		t.Errorf("order link changed to %s", *tk.OrderID)
	}
}

func TestPricingValidate(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	tests := []struct {
		name string
		p    ShowSectorPricing
		ok   bool
	}{
		{"seated", ShowSectorPricing{SectorID: &a, Price: decimal.NewFromInt(10)}, true},
		{"standing", ShowSectorPricing{StandingSectorID: &b, Price: decimal.NewFromInt(10)}, true},
		{"both", ShowSectorPricing{SectorID: &a, StandingSectorID: &b}, false},
		{"neither", ShowSectorPricing{Price: decimal.NewFromInt(10)}, false},
		{"negative", ShowSectorPricing{SectorID: &a, Price: decimal.NewFromInt(-1)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if tt.ok && err != nil {
				t.Fatalf("Validate: %v", err)
			}
			if !tt.ok && !errors.Is(err, apperr.ErrValidation) {
				t.Fatalf("Validate error = %v, want validation error", err)
			}
		})
	}
}

func TestRoundingIsHalfUp(t *testing.T) {
	tests := []struct{ in, want string }{
		{"10.005", "10.01"},
		{"10.004", "10.00"},
		{"33.335", "33.34"},
		{"0.125", "0.13"},
	}
	for _, tt := range tests {
		got := RoundPrice(decimal.RequireFromString(tt.in)).StringFixed(2)
		if got != tt.want {
			t.Errorf("RoundPrice(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}

	total := SumPrices(decimal.RequireFromString("50.00"), decimal.RequireFromString("50.00"), decimal.RequireFromString("50.00"))
	if got := total.StringFixed(2); got != "150.00" {
		t.Errorf("SumPrices = %s, want 150.00", got)
	}
}
