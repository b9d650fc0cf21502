package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"boxoffice/internal/domain"
	"boxoffice/internal/shared/apperr"
	"boxoffice/internal/shared/constants"
	"boxoffice/internal/store"
)

// Availability is a point-in-time read model of a show's occupancy. It may be
// served from cache and is for display only.
type Availability struct {
	ShowID    uuid.UUID            `json:"show_id"`
	Capacity  int                  `json:"capacity"`
	SoldSeats int                  `json:"sold_seats"`
	Held      int                  `json:"held"`
	Remaining int                  `json:"remaining"`
	Sectors   []SectorAvailability `json:"sectors"`
}

type SectorAvailability struct {
	PricingID        uuid.UUID   `json:"pricing_id"`
	SectorID         *uuid.UUID  `json:"sector_id,omitempty"`
	StandingSectorID *uuid.UUID  `json:"standing_sector_id,omitempty"`
	Name             string      `json:"name"`
	Price            string      `json:"price"`
	Capacity         int         `json:"capacity"`
	Taken            int         `json:"taken"`
	Remaining        int         `json:"remaining"`
	TakenSeatIDs     []uuid.UUID `json:"taken_seat_ids,omitempty"`
}

// availabilityLoadTimeout bounds a shared availability load, which no longer
// follows any single caller's context.
const availabilityLoadTimeout = 10 * time.Second

// Availability returns the occupancy of a show. Concurrent callers for the
// same show share one load; each caller stops waiting when its own ctx ends
// without failing the others.
func (l *Ledger) Availability(ctx context.Context, showID uuid.UUID) (*Availability, error) {
	ch := l.group.DoChan(showID.String(), func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), availabilityLoadTimeout)
		defer cancel()

		var a Availability
		err := l.cache.GetOrSet(loadCtx, constants.BuildShowAvailabilityKey(showID), l.ttl, func() (interface{}, error) {
			return l.loadAvailability(loadCtx, showID)
		}, &a)
		if err != nil {
			return nil, err
		}
		return &a, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Availability), nil
	}
}

func (l *Ledger) loadAvailability(ctx context.Context, showID uuid.UUID) (*Availability, error) {
	var out *Availability
	err := l.store.WithTx(ctx, func(tx store.Tx) error {
		show, err := tx.GetShow(ctx, showID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.NotFound("show %s not found", showID)
			}
			return err
		}
		hall, err := tx.GetHall(ctx, show.HallID)
		if err != nil {
			return err
		}
		live, err := tx.ListLiveShowTickets(ctx, showID)
		if err != nil {
			return err
		}
		out = summarize(show, hall, live)
		return nil
	})
	return out, err
}

func summarize(show *domain.Show, hall *domain.Hall, live []domain.Ticket) *Availability {
	byPricing := make(map[uuid.UUID][]domain.Ticket, len(show.Pricings))
	for _, t := range live {
		byPricing[t.PricingID] = append(byPricing[t.PricingID], t)
	}

	a := &Availability{
		ShowID:    show.ID,
		Capacity:  show.Capacity,
		SoldSeats: show.SoldSeats,
		Held:      len(live),
		Remaining: max(show.Capacity-len(live), 0),
	}
	for _, p := range show.Pricings {
		sa := SectorAvailability{
			PricingID:        p.ID,
			SectorID:         p.SectorID,
			StandingSectorID: p.StandingSectorID,
			Price:            p.Price.StringFixed(2),
		}
		held := byPricing[p.ID]
		switch {
		case p.SectorID != nil:
			if sec, ok := hall.FindSector(*p.SectorID); ok {
				sa.Name = sec.Name
				sa.Capacity = len(sec.Seats)
			}
			for _, t := range held {
				sa.TakenSeatIDs = append(sa.TakenSeatIDs, *t.SeatID)
			}
		case p.StandingSectorID != nil:
			if ss, ok := hall.FindStandingSector(*p.StandingSectorID); ok {
				sa.Name = ss.Name
				sa.Capacity = ss.Capacity
			}
		}
		sa.Taken = len(held)
		sa.Remaining = max(sa.Capacity-sa.Taken, 0)
		a.Sectors = append(a.Sectors, sa)
	}
	return a
}
