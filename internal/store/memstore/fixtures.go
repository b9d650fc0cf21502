package memstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"boxoffice/internal/domain"
	"boxoffice/internal/store"
)

// SeedHallGrid registers a hall with one seated sector of rows x cols seats
// and, when standingCapacity > 0, one standing sector.
func (s *Store) SeedHallGrid(rows, cols, standingCapacity int) domain.Hall {
	h := domain.Hall{
		ID:        uuid.New(),
		VenueName: "Test Venue",
		Name:      "Main Hall",
		CreatedAt: time.Now().UTC(),
	}
	sec := domain.Sector{ID: uuid.New(), HallID: h.ID, Name: "Stalls", Rows: rows, Columns: cols}
	for r := 1; r <= rows; r++ {
		for c := 1; c <= cols; c++ {
			sec.Seats = append(sec.Seats, domain.Seat{ID: uuid.New(), SectorID: sec.ID, Row: r, Column: c})
		}
	}
	h.Sectors = []domain.Sector{sec}
	if standingCapacity > 0 {
		h.StandingSectors = []domain.StandingSector{{
			ID:       uuid.New(),
			HallID:   h.ID,
			Name:     "Floor",
			Capacity: standingCapacity,
		}}
	}
	s.SeedHall(h)
	return h
}

// SeedEvent inserts an event with no sales.
func (s *Store) SeedEvent(name string) domain.Event {
	now := time.Now().UTC()
	e := domain.Event{ID: uuid.New(), Name: name, CreatedAt: now, UpdatedAt: now}
	s.mustTx(func(tx store.Tx) error { return tx.CreateEvent(context.Background(), &e) })
	return e
}

// SeedShow inserts a show in h pricing every sector of the hall. Seated
// sectors cost seatPrice and standing sectors standingPrice.
func (s *Store) SeedShow(h domain.Hall, eventID *uuid.UUID, seatPrice, standingPrice string) domain.Show {
	now := time.Now().UTC()
	show := domain.Show{
		ID:        uuid.New(),
		EventID:   eventID,
		HallID:    h.ID,
		Title:     "Test Show",
		StartsAt:  now.Add(7 * 24 * time.Hour),
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, sec := range h.Sectors {
		id := sec.ID
		show.Capacity += len(sec.Seats)
		show.Pricings = append(show.Pricings, domain.ShowSectorPricing{
			ID:       uuid.New(),
			ShowID:   show.ID,
			Position: len(show.Pricings),
			SectorID: &id,
			Price:    decimal.RequireFromString(seatPrice),
		})
	}
	for _, ss := range h.StandingSectors {
		id := ss.ID
		show.Capacity += ss.Capacity
		show.Pricings = append(show.Pricings, domain.ShowSectorPricing{
			ID:               uuid.New(),
			ShowID:           show.ID,
			Position:         len(show.Pricings),
			StandingSectorID: &id,
			Price:            decimal.RequireFromString(standingPrice),
		})
	}
	s.mustTx(func(tx store.Tx) error { return tx.CreateShow(context.Background(), &show) })
	return show
}

func (s *Store) mustTx(fn func(tx store.Tx) error) {
	if err := s.WithTx(context.Background(), fn); err != nil {
		panic(fmt.Sprintf("memstore: seed failed: %v", err))
	}
}
