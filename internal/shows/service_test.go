package shows

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"boxoffice/internal/domain"
	"boxoffice/internal/shared/apperr"
	"boxoffice/internal/shared/middleware"
	"boxoffice/internal/store"
	"boxoffice/internal/store/memstore"
	"boxoffice/internal/tickets"
	"boxoffice/pkg/logger"
)

func newService(t *testing.T) (*memstore.Store, domain.Hall, Service) {
	t.Helper()
	s := memstore.New()
	hall := s.SeedHallGrid(2, 5, 30)
	return s, hall, NewService(Config{Store: s, Logger: logger.Discard()})
}

func ptr(id uuid.UUID) *uuid.UUID { return &id }

func TestCreateShowComputesCapacityAndRoundsPrices(t *testing.T) {
	_, hall, svc := newService(t)
	event, err := svc.CreateEvent(context.Background(), CreateEventInput{Name: "Autumn Tour"})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}

	show, err := svc.CreateShow(context.Background(), CreateShowInput{
		EventID:  &event.ID,
		HallID:   hall.ID,
		Title:    "Opening Night",
		StartsAt: time.Date(2026, 11, 1, 20, 0, 0, 0, time.UTC),
		Prices: []PriceInput{
			{SectorID: ptr(hall.Sectors[0].ID), Price: "49.995"},
			{StandingSectorID: ptr(hall.StandingSectors[0].ID), Price: "20.004"},
		},
	})
	if err != nil {
		t.Fatalf("CreateShow: %v", err)
	}
	if show.Capacity != 40 {
		t.Errorf("capacity = %d, want 40", show.Capacity)
	}
	if got := show.Pricings[0].Price.StringFixed(2); got != "50.00" {
		t.Errorf("seat price = %s, want 50.00", got)
	}
	if got := show.Pricings[1].Price.StringFixed(2); got != "20.00" {
		t.Errorf("standing price = %s, want 20.00", got)
	}

	got, err := svc.GetShow(context.Background(), show.ID)
	if err != nil || len(got.Pricings) != 2 || got.Capacity != 40 {
		t.Errorf("GetShow = %+v, %v", got, err)
	}
}

func TestCreateShowRejectsBadPricing(t *testing.T) {
	_, hall, svc := newService(t)
	other := memstore.New().SeedHallGrid(1, 1, 0)
	seated := ptr(hall.Sectors[0].ID)
	standing := ptr(hall.StandingSectors[0].ID)

	tests := []struct {
		name   string
		prices []PriceInput
		want   error
	}{
		{"no prices", nil, apperr.ErrValidation},
		{"both targets", []PriceInput{{SectorID: seated, StandingSectorID: standing, Price: "10"}}, apperr.ErrValidation},
		{"no target", []PriceInput{{Price: "10"}}, apperr.ErrValidation},
		{"negative", []PriceInput{{SectorID: seated, Price: "-1"}}, apperr.ErrValidation},
		{"not a number", []PriceInput{{SectorID: seated, Price: "ten"}}, apperr.ErrValidation},
		{"foreign sector", []PriceInput{{SectorID: ptr(other.Sectors[0].ID), Price: "10"}}, apperr.ErrValidation},
		{"priced twice", []PriceInput{{SectorID: seated, Price: "10"}, {SectorID: seated, Price: "12"}}, apperr.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateShow(context.Background(), CreateShowInput{
				HallID:   hall.ID,
				Title:    "Matinee",
				StartsAt: time.Now(),
				Prices:   tt.prices,
			})
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}

	_, err := svc.CreateShow(context.Background(), CreateShowInput{
		HallID:   uuid.New(),
		Title:    "Nowhere",
		StartsAt: time.Now(),
		Prices:   []PriceInput{{SectorID: seated, Price: "10"}},
	})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown hall err = %v, want not found", err)
	}
}

func TestDeleteShowRefusedWhileTicketsExist(t *testing.T) {
	s, hall, svc := newService(t)
	busy := s.SeedShow(hall, nil, "50.00", "20.00")
	idle := s.SeedShow(hall, nil, "50.00", "20.00")

	m := tickets.NewManager(tickets.Config{Store: s, Logger: logger.Discard()})
	if _, err := m.Create(context.Background(), tickets.CreateTicketsInput{
		ShowID:  busy.ID,
		UserID:  uuid.New(),
		Intent:  domain.IntentCart,
		SeatIDs: []uuid.UUID{hall.Sectors[0].Seats[0].ID},
	}); err != nil {
		t.Fatal(err)
	}

	if err := svc.DeleteShow(context.Background(), busy.ID); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("delete busy show err = %v, want conflict", err)
	}
	if err := svc.DeleteShow(context.Background(), idle.ID); err != nil {
		t.Fatalf("delete idle show: %v", err)
	}
	if _, err := svc.GetShow(context.Background(), idle.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("deleted show err = %v, want not found", err)
	}
	if err := svc.DeleteShow(context.Background(), idle.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v, want not found", err)
	}

	a, err := svc.Availability(context.Background(), busy.ID)
	if err != nil {
		t.Fatal(err)
	}
	if a.Held != 1 || a.Remaining != busy.Capacity-1 {
		t.Errorf("availability = %+v", a)
	}
}

// lateTicketStore hides tickets from the pre-delete count, as a ticket
// committed between the count and the delete would be.
type lateTicketStore struct {
	store.Store
}

func (s lateTicketStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		return fn(lateTicketTx{tx})
	})
}

type lateTicketTx struct {
	store.Tx
}

func (lateTicketTx) CountShowTickets(context.Context, uuid.UUID) (int64, error) { return 0, nil }

func TestDeleteShowLosesToLateTicket(t *testing.T) {
	s, hall, _ := newService(t)
	show := s.SeedShow(hall, nil, "50.00", "20.00")
	m := tickets.NewManager(tickets.Config{Store: s, Logger: logger.Discard()})
	if _, err := m.Create(context.Background(), tickets.CreateTicketsInput{
		ShowID:  show.ID,
		UserID:  uuid.New(),
		Intent:  domain.IntentCart,
		SeatIDs: []uuid.UUID{hall.Sectors[0].Seats[0].ID},
	}); err != nil {
		t.Fatal(err)
	}

	svc := NewService(Config{Store: lateTicketStore{s}, Logger: logger.Discard()})
	if err := svc.DeleteShow(context.Background(), show.ID); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("delete err = %v, want conflict", err)
	}
	if _, err := svc.GetShow(context.Background(), show.ID); err != nil {
		t.Errorf("show after refused delete: %v", err)
	}
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	_, hall, svc := newService(t)
	gin.SetMode(gin.TestMode)

	for role, want := range map[string]int{middleware.RoleUser: http.StatusForbidden, middleware.RoleAdmin: http.StatusCreated} {
		r := gin.New()
		auth := func(c *gin.Context) {
			c.Set(middleware.ContextUserID, uuid.New())
			c.Set(middleware.ContextUserRole, role)
		}
		SetupShowRoutes(r.Group("/api/v1"), NewController(svc), auth)

		body, _ := json.Marshal(map[string]any{
			"hall_id":   hall.ID.String(),
			"title":     "Late Show",
			"starts_at": "2026-12-01T21:00:00Z",
			"prices":    []map[string]any{{"sector_id": hall.Sectors[0].ID.String(), "price": "35.5"}},
		})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/shows", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != want {
			t.Errorf("role %s: status = %d, want %d (%s)", role, w.Code, want, w.Body.String())
		}
		if want != http.StatusCreated {
			continue
		}
		var created struct {
			Data ShowResponse `json:"data"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
			t.Fatal(err)
		}
		if created.Data.Capacity != 10 || created.Data.Pricings[0].Price != "35.50" {
			t.Errorf("created = %+v", created.Data)
		}

		w = httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/shows/"+created.Data.ID.String()+"/availability", nil))
		if w.Code != http.StatusOK {
			t.Errorf("availability status = %d", w.Code)
		}
	}
}
