package tickets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"boxoffice/internal/domain"
	"boxoffice/internal/shared/apperr"
	"boxoffice/internal/store"
	"boxoffice/internal/store/memstore"
	"boxoffice/pkg/logger"
)

type fixture struct {
	store *memstore.Store
	hall  domain.Hall
	event domain.Event
	show  domain.Show
	clock time.Time
	m     *Manager
}

func newFixture(t *testing.T, retain bool) *fixture {
	t.Helper()
	s := memstore.New()
	f := &fixture{store: s, clock: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	f.hall = s.SeedHallGrid(2, 3, 4)
	f.event = s.SeedEvent("Spring Tour")
	f.show = s.SeedShow(f.hall, &f.event.ID, "50.00", "20.00")
	f.m = NewManager(Config{
		Store:         s,
		Logger:        logger.Discard(),
		RetainRemoved: retain,
		Now:           func() time.Time { return f.clock },
	})
	return f
}

func (f *fixture) seat(i int) uuid.UUID {
	return f.hall.Sectors[0].Seats[i].ID
}

func (f *fixture) standing() uuid.UUID {
	return f.hall.StandingSectors[0].ID
}

func (f *fixture) allTickets(t *testing.T) []domain.Ticket {
	t.Helper()
	var out []domain.Ticket
	err := f.store.WithTx(context.Background(), func(tx store.Tx) error {
		var err error
		out, err = tx.ListLiveShowTickets(context.Background(), f.show.ID)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func TestCreateSeatsAndStanding(t *testing.T) {
	f := newFixture(t, false)
	userID := uuid.New()

	created, err := f.m.Create(context.Background(), CreateTicketsInput{
		ShowID:   f.show.ID,
		UserID:   userID,
		Intent:   domain.IntentReserve,
		SeatIDs:  []uuid.UUID{f.seat(0), f.seat(1)},
		Standing: []StandingRequest{{StandingSectorID: f.standing(), Count: 2}},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(created) != 4 {
		t.Fatalf("created %d tickets, want 4", len(created))
	}
	for _, tk := range created {
		if tk.State != domain.TicketStateReserved || tk.UserID != userID {
			t.Errorf("ticket %s: state %s user %s", tk.ID, tk.State, tk.UserID)
		}
		wantPrice := "50.00"
		if tk.Type == domain.TicketTypeStanding {
			wantPrice = "20.00"
		}
		if tk.Price.StringFixed(2) != wantPrice {
			t.Errorf("ticket %s price = %s, want %s", tk.ID, tk.Price.StringFixed(2), wantPrice)
		}
	}
}

func TestCreateIsAllOrNothing(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	if _, err := f.m.Create(ctx, CreateTicketsInput{
		ShowID: f.show.ID, UserID: uuid.New(), Intent: domain.IntentCart, SeatIDs: []uuid.UUID{f.seat(2)},
	}); err != nil {
		t.Fatal(err)
	}

	_, err := f.m.Create(ctx, CreateTicketsInput{
		ShowID:  f.show.ID,
		UserID:  uuid.New(),
		Intent:  domain.IntentCart,
		SeatIDs: []uuid.UUID{f.seat(0), f.seat(1), f.seat(2)},
	})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("error = %v, want conflict", err)
	}
	if n := len(f.allTickets(t)); n != 1 {
		t.Errorf("live tickets = %d, want 1", n)
	}

	_, err = f.m.Create(ctx, CreateTicketsInput{
		ShowID:   f.show.ID,
		UserID:   uuid.New(),
		Intent:   domain.IntentCart,
		SeatIDs:  []uuid.UUID{f.seat(0)},
		Standing: []StandingRequest{{StandingSectorID: f.standing(), Count: 5}},
	})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("standing overflow error = %v, want conflict", err)
	}
	if n := len(f.allTickets(t)); n != 1 {
		t.Errorf("live tickets after standing overflow = %d, want 1", n)
	}
}

func TestCreateRejectsBadInput(t *testing.T) {
	f := newFixture(t, false)
	userID := uuid.New()

	tests := []struct {
		name string
		in   CreateTicketsInput
		want error
	}{
		{"unknown intent", CreateTicketsInput{ShowID: f.show.ID, UserID: userID, Intent: "hold", SeatIDs: []uuid.UUID{f.seat(0)}}, apperr.ErrValidation},
		{"nothing requested", CreateTicketsInput{ShowID: f.show.ID, UserID: userID, Intent: domain.IntentCart}, apperr.ErrValidation},
		{"duplicate seat", CreateTicketsInput{ShowID: f.show.ID, UserID: userID, Intent: domain.IntentCart, SeatIDs: []uuid.UUID{f.seat(0), f.seat(0)}}, apperr.ErrValidation},
		{"unknown show", CreateTicketsInput{ShowID: uuid.New(), UserID: userID, Intent: domain.IntentCart, SeatIDs: []uuid.UUID{f.seat(0)}}, apperr.ErrNotFound},
		{"unknown seat", CreateTicketsInput{ShowID: f.show.ID, UserID: userID, Intent: domain.IntentCart, SeatIDs: []uuid.UUID{uuid.New()}}, apperr.ErrNotFound},
		{"too many", CreateTicketsInput{ShowID: f.show.ID, UserID: userID, Intent: domain.IntentCart, Standing: []StandingRequest{{StandingSectorID: f.standing(), Count: MaxTicketsPerRequest + 1}}}, apperr.ErrValidation},
		{"mixed sectors", CreateTicketsInput{
			ShowID: f.show.ID, UserID: userID, Intent: domain.IntentCart, SameSector: true,
			SeatIDs:  []uuid.UUID{f.seat(0)},
			Standing: []StandingRequest{{StandingSectorID: f.standing(), Count: 1}},
		}, apperr.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.m.Create(context.Background(), tt.in)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestReserveCartTickets(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	userID := uuid.New()

	created, err := f.m.Create(ctx, CreateTicketsInput{ShowID: f.show.ID, UserID: userID, Intent: domain.IntentCart, SeatIDs: []uuid.UUID{f.seat(0)}})
	if err != nil {
		t.Fatal(err)
	}
	ids := []uuid.UUID{created[0].ID}

	if _, err := f.m.Reserve(ctx, uuid.New(), ids); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("reserve by stranger error = %v, want not found", err)
	}
	reserved, err := f.m.Reserve(ctx, userID, ids)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if reserved[0].State != domain.TicketStateReserved {
		t.Errorf("state = %s, want RESERVED", reserved[0].State)
	}
	if _, err := f.m.Reserve(ctx, userID, ids); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("second reserve error = %v, want conflict", err)
	}
}

func TestRemoveReleasesCapacity(t *testing.T) {
	for _, retain := range []bool{false, true} {
		f := newFixture(t, retain)
		ctx := context.Background()
		userID := uuid.New()

		created, err := f.m.Create(ctx, CreateTicketsInput{
			ShowID:   f.show.ID,
			UserID:   userID,
			Intent:   domain.IntentCart,
			SeatIDs:  []uuid.UUID{f.seat(0)},
			Standing: []StandingRequest{{StandingSectorID: f.standing(), Count: 4}},
		})
		if err != nil {
			t.Fatal(err)
		}
		ids := make([]uuid.UUID, len(created))
		for i, tk := range created {
			ids[i] = tk.ID
		}
		if err := f.m.Remove(ctx, userID, ids); err != nil {
			t.Fatalf("retain=%v Remove: %v", retain, err)
		}
		if n := len(f.allTickets(t)); n != 0 {
			t.Errorf("retain=%v live tickets = %d, want 0", retain, n)
		}

		kept, err := f.m.ListForUser(ctx, userID, domain.TicketStateCancelled)
		if err != nil {
			t.Fatal(err)
		}
		want := 0
		if retain {
			want = len(created)
		}
		if len(kept) != want {
			t.Errorf("retain=%v cancelled rows = %d, want %d", retain, len(kept), want)
		}

		// The freed seat and standing places can be taken again.
		if _, err := f.m.Create(ctx, CreateTicketsInput{
			ShowID:   f.show.ID,
			UserID:   uuid.New(),
			Intent:   domain.IntentCart,
			SeatIDs:  []uuid.UUID{f.seat(0)},
			Standing: []StandingRequest{{StandingSectorID: f.standing(), Count: 4}},
		}); err != nil {
			t.Errorf("retain=%v re-create: %v", retain, err)
		}
	}
}

func TestExpireReservations(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	old, err := f.m.Create(ctx, CreateTicketsInput{ShowID: f.show.ID, UserID: uuid.New(), Intent: domain.IntentReserve, SeatIDs: []uuid.UUID{f.seat(0)}})
	if err != nil {
		t.Fatal(err)
	}
	f.clock = f.clock.Add(20 * time.Minute)
	fresh, err := f.m.Create(ctx, CreateTicketsInput{ShowID: f.show.ID, UserID: uuid.New(), Intent: domain.IntentCart, SeatIDs: []uuid.UUID{f.seat(1)}})
	if err != nil {
		t.Fatal(err)
	}

	n, err := f.m.ExpireReservations(ctx, 15*time.Minute, 10)
	if err != nil {
		t.Fatalf("ExpireReservations: %v", err)
	}
	if n != 1 {
		t.Fatalf("released = %d, want 1", n)
	}
	live := f.allTickets(t)
	if len(live) != 1 || live[0].ID != fresh[0].ID {
		t.Errorf("live tickets = %v, want only %s", live, fresh[0].ID)
	}
	if _, err := f.m.Get(ctx, old[0].UserID, old[0].ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expired ticket still readable: %v", err)
	}
}

func TestMarkPurchasedAndCancelledKeepSoldSeats(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	userID := uuid.New()

	created, err := f.m.Create(ctx, CreateTicketsInput{
		ShowID: f.show.ID, UserID: userID, Intent: domain.IntentCart,
		SeatIDs: []uuid.UUID{f.seat(0), f.seat(1), f.seat(2)},
	})
	if err != nil {
		t.Fatal(err)
	}
	ids := []uuid.UUID{created[0].ID, created[1].ID, created[2].ID}
	orderID := uuid.New()

	err = f.store.WithTx(ctx, func(tx store.Tx) error {
		locked, err := LockOwned(ctx, tx, userID, ids)
		if err != nil {
			return err
		}
		return f.m.MarkPurchased(ctx, tx, locked, orderID, f.clock)
	})
	if err != nil {
		t.Fatalf("MarkPurchased: %v", err)
	}
	f.assertSold(t, 3)

	err = f.store.WithTx(ctx, func(tx store.Tx) error {
		locked, err := LockOwned(ctx, tx, userID, ids[:1])
		if err != nil {
			return err
		}
		return f.m.MarkCancelled(ctx, tx, locked, f.clock)
	})
	if err != nil {
		t.Fatalf("MarkCancelled: %v", err)
	}
	f.assertSold(t, 2)

	cancelled, err := f.m.Get(ctx, userID, ids[0])
	if err != nil {
		t.Fatal(err)
	}
	if cancelled.State != domain.TicketStateCancelled || cancelled.OrderID == nil || *cancelled.OrderID != orderID {
		t.Errorf("cancelled ticket = %+v, want CANCELLED still bound to order", cancelled)
	}

	err = f.store.WithTx(ctx, func(tx store.Tx) error {
		locked, err := LockOwned(ctx, tx, userID, ids[:1])
		if err != nil {
			return err
		}
		return f.m.MarkCancelled(ctx, tx, locked, f.clock)
	})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("second cancel error = %v, want conflict", err)
	}
	f.assertSold(t, 2)
}

func (f *fixture) assertSold(t *testing.T, want int) {
	t.Helper()
	err := f.store.WithTx(context.Background(), func(tx store.Tx) error {
		show, err := tx.GetShow(context.Background(), f.show.ID)
		if err != nil {
			return err
		}
		event, err := tx.GetEvent(context.Background(), f.event.ID)
		if err != nil {
			return err
		}
		purchased, err := tx.CountPurchasedTickets(context.Background(), f.show.ID)
		if err != nil {
			return err
		}
		if show.SoldSeats != want || event.SoldSeats != want || purchased != int64(want) {
			t.Errorf("show sold = %d, event sold = %d, purchased = %d, want %d", show.SoldSeats, event.SoldSeats, purchased, want)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestPassRequiresPurchase(t *testing.T) {
	f := newFixture(t, false)
	userID := uuid.New()
	created, err := f.m.Create(context.Background(), CreateTicketsInput{ShowID: f.show.ID, UserID: userID, Intent: domain.IntentCart, SeatIDs: []uuid.UUID{f.seat(0)}})
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := f.m.Pass(context.Background(), userID, created[0].ID); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("error = %v, want conflict", err)
	}
}

func TestJobProcessorSweepsInBatches(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := f.m.Create(ctx, CreateTicketsInput{ShowID: f.show.ID, UserID: uuid.New(), Intent: domain.IntentCart, SeatIDs: []uuid.UUID{f.seat(i)}}); err != nil {
			t.Fatal(err)
		}
	}
	f.clock = f.clock.Add(time.Hour)

	jp := NewJobProcessor(f.m, &JobConfig{Interval: time.Minute, ReservationTTL: 15 * time.Minute, BatchSize: 2}, logger.Discard())
	if n := jp.RunOnce(ctx); n != 5 {
		t.Errorf("RunOnce released %d, want 5", n)
	}
	if n := len(f.allTickets(t)); n != 0 {
		t.Errorf("live tickets = %d, want 0", n)
	}
}

func TestJobProcessorFillsUnsetConfig(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	if _, err := f.m.Create(ctx, CreateTicketsInput{ShowID: f.show.ID, UserID: uuid.New(), Intent: domain.IntentCart, SeatIDs: []uuid.UUID{f.seat(0)}}); err != nil {
		t.Fatal(err)
	}
	f.clock = f.clock.Add(time.Hour)

	cfg := &JobConfig{ReservationTTL: 15 * time.Minute}
	jp := NewJobProcessor(f.m, cfg, logger.Discard())
	if jp.config.BatchSize != DefaultJobConfig().BatchSize || jp.config.Interval != DefaultJobConfig().Interval {
		t.Errorf("config = %+v, want default batch size and interval", *jp.config)
	}
	if cfg.BatchSize != 0 {
		t.Errorf("caller config modified: %+v", *cfg)
	}

	done := make(chan int, 1)
	go func() { done <- jp.RunOnce(ctx) }()
	select {
	case n := <-done:
		if n != 1 {
			t.Errorf("RunOnce released %d, want 1", n)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("RunOnce did not return")
	}
}
