package shows

import (
	"time"

	"github.com/google/uuid"

	"boxoffice/internal/domain"
)

type EventResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	SoldSeats   int       `json:"sold_seats"`
	CreatedAt   time.Time `json:"created_at"`
}

type ShowResponse struct {
	ID        uuid.UUID         `json:"id"`
	EventID   *uuid.UUID        `json:"event_id,omitempty"`
	HallID    uuid.UUID         `json:"hall_id"`
	Title     string            `json:"title"`
	StartsAt  time.Time         `json:"starts_at"`
	Capacity  int               `json:"capacity"`
	SoldSeats int               `json:"sold_seats"`
	Pricings  []PricingResponse `json:"pricings"`
}

type PricingResponse struct {
	ID               uuid.UUID  `json:"id"`
	SectorID         *uuid.UUID `json:"sector_id,omitempty"`
	StandingSectorID *uuid.UUID `json:"standing_sector_id,omitempty"`
	Price            string     `json:"price"`
}

func ToEventResponse(e *domain.Event) EventResponse {
	return EventResponse{
		ID:          e.ID,
		Name:        e.Name,
		Description: e.Description,
		SoldSeats:   e.SoldSeats,
		CreatedAt:   e.CreatedAt,
	}
}

func ToShowResponse(s *domain.Show) ShowResponse {
	out := ShowResponse{
		ID:        s.ID,
		EventID:   s.EventID,
		HallID:    s.HallID,
		Title:     s.Title,
		StartsAt:  s.StartsAt,
		Capacity:  s.Capacity,
		SoldSeats: s.SoldSeats,
		Pricings:  make([]PricingResponse, len(s.Pricings)),
	}
	for i, p := range s.Pricings {
		out.Pricings[i] = PricingResponse{
			ID:               p.ID,
			SectorID:         p.SectorID,
			StandingSectorID: p.StandingSectorID,
			Price:            p.Price.StringFixed(2),
		}
	}
	return out
}
