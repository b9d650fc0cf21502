package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"boxoffice/internal/domain"
	"boxoffice/internal/store"
)

func TestInsertRejectsSecondLiveTicketForSeat(t *testing.T) {
	s := New()
	h := s.SeedHallGrid(1, 2, 0)
	show := s.SeedShow(h, nil, "10", "0")
	seat := h.Sectors[0].Seats[0].ID
	now := time.Now().UTC()

	first := domain.NewSeatTicket(show.ID, uuid.New(), seat, &show.Pricings[0], domain.TicketStateInCart, now)
	err := s.WithTx(context.Background(), func(tx store.Tx) error {
		return tx.InsertTickets(context.Background(), []*domain.Ticket{first})
	})
	if err != nil {
		t.Fatalf("first insert: %v", err)
	}

	second := domain.NewSeatTicket(show.ID, uuid.New(), seat, &show.Pricings[0], domain.TicketStateReserved, now)
	err = s.WithTx(context.Background(), func(tx store.Tx) error {
		return tx.InsertTickets(context.Background(), []*domain.Ticket{second})
	})
	if !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("second insert error = %v, want ErrDuplicate", err)
	}

	// A cancelled ticket frees the seat for a new live one.
	err = s.WithTx(context.Background(), func(tx store.Tx) error {
		first.State = domain.TicketStateCancelled
		if err := tx.UpdateTicket(context.Background(), first); err != nil {
			return err
		}
		return tx.InsertTickets(context.Background(), []*domain.Ticket{second})
	})
	if err != nil {
		t.Fatalf("insert after cancel: %v", err)
	}
}

func TestFailedUnitOfWorkLeavesNoTrace(t *testing.T) {
	s := New()
	h := s.SeedHallGrid(1, 1, 0)
	show := s.SeedShow(h, nil, "10", "0")
	tk := domain.NewSeatTicket(show.ID, uuid.New(), h.Sectors[0].Seats[0].ID, &show.Pricings[0], domain.TicketStateInCart, time.Now().UTC())

	boom := errors.New("boom")
	err := s.WithTx(context.Background(), func(tx store.Tx) error {
		if err := tx.InsertTickets(context.Background(), []*domain.Ticket{tk}); err != nil {
			return err
		}
		if err := tx.AdjustShowSoldSeats(context.Background(), show.ID, 1); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx error = %v, want boom", err)
	}

	s.FailNextCommit(boom)
	err = s.WithTx(context.Background(), func(tx store.Tx) error {
		return tx.InsertTickets(context.Background(), []*domain.Ticket{tk})
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx with failing commit = %v, want boom", err)
	}

	err = s.WithTx(context.Background(), func(tx store.Tx) error {
		got, err := tx.GetTickets(context.Background(), []uuid.UUID{tk.ID})
		if err != nil {
			return err
		}
		if len(got) != 0 {
			t.Errorf("ticket survived a rolled back unit of work")
		}
		sh, err := tx.GetShow(context.Background(), show.ID)
		if err != nil {
			return err
		}
		if sh.SoldSeats != 0 {
			t.Errorf("SoldSeats = %d, want 0", sh.SoldSeats)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestInvoiceRefusesTicketRefundedTwice(t *testing.T) {
	s := New()
	ticketID := uuid.New()
	orderID := uuid.New()

	newInvoice := func() *domain.CancellationInvoice {
		return &domain.CancellationInvoice{ID: uuid.New(), OrderID: orderID, TicketIDs: []uuid.UUID{ticketID}, CreatedAt: time.Now()}
	}
	err := s.WithTx(context.Background(), func(tx store.Tx) error {
		return tx.CreateInvoice(context.Background(), newInvoice())
	})
	if err != nil {
		t.Fatalf("first invoice: %v", err)
	}
	err = s.WithTx(context.Background(), func(tx store.Tx) error {
		return tx.CreateInvoice(context.Background(), newInvoice())
	})
	if !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("second invoice error = %v, want ErrDuplicate", err)
	}
}

func TestStaleTicketsOldestFirst(t *testing.T) {
	s := New()
	h := s.SeedHallGrid(1, 3, 5)
	show := s.SeedShow(h, nil, "10", "5")
	base := time.Now().UTC().Add(-time.Hour)

	var tickets []*domain.Ticket
	for i, seat := range h.Sectors[0].Seats {
		tk := domain.NewSeatTicket(show.ID, uuid.New(), seat.ID, &show.Pricings[0], domain.TicketStateReserved, base.Add(time.Duration(2-i)*time.Minute))
		tickets = append(tickets, tk)
	}
	tickets[0].State = domain.TicketStatePurchased

	var stale []domain.Ticket
	err := s.WithTx(context.Background(), func(tx store.Tx) error {
		if err := tx.InsertTickets(context.Background(), tickets); err != nil {
			return err
		}
		var err error
		stale, err = tx.ListStaleTickets(context.Background(), time.Now(), 10)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(stale) != 2 {
		t.Fatalf("len(stale) = %d, want 2", len(stale))
	}
	if stale[0].ID != tickets[2].ID || stale[1].ID != tickets[1].ID {
		t.Errorf("stale tickets not ordered oldest first")
	}
}

func TestTicketsKeepTheirShow(t *testing.T) {
	s := New()
	h := s.SeedHallGrid(1, 1, 0)
	show := s.SeedShow(h, nil, "10", "0")
	ctx := context.Background()

	orphan := domain.NewSeatTicket(uuid.New(), uuid.New(), h.Sectors[0].Seats[0].ID, &show.Pricings[0], domain.TicketStateInCart, time.Now().UTC())
	err := s.WithTx(ctx, func(tx store.Tx) error {
		return tx.InsertTickets(ctx, []*domain.Ticket{orphan})
	})
	if !errors.Is(err, store.ErrReferenced) {
		t.Fatalf("insert for unknown show error = %v, want ErrReferenced", err)
	}

	tk := domain.NewSeatTicket(show.ID, uuid.New(), h.Sectors[0].Seats[0].ID, &show.Pricings[0], domain.TicketStateInCart, time.Now().UTC())
	err = s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.InsertTickets(ctx, []*domain.Ticket{tk}); err != nil {
			return err
		}
		return tx.DeleteShow(ctx, show.ID)
	})
	if !errors.Is(err, store.ErrReferenced) {
		t.Fatalf("DeleteShow with tickets error = %v, want ErrReferenced", err)
	}
}
