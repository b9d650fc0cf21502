package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"boxoffice/internal/shared/apperr"
)

// Hall is reference data owned by the venue catalog. A show copies the parts
// of its layout it prices at creation time and never re-reads it for
// allocation decisions.
type Hall struct {
	ID              uuid.UUID        `json:"id" gorm:"type:uuid;primaryKey"`
	VenueName       string           `json:"venue_name" gorm:"type:varchar(200);not null"`
	Name            string           `json:"name" gorm:"type:varchar(200);not null"`
	Sectors         []Sector         `json:"sectors" gorm:"foreignKey:HallID"`
	StandingSectors []StandingSector `json:"standing_sectors" gorm:"foreignKey:HallID"`
	CreatedAt       time.Time        `json:"created_at"`
}

// Sector is a seated section of a hall with a row/column grid.
type Sector struct {
	ID      uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	HallID  uuid.UUID `json:"hall_id" gorm:"type:uuid;not null;index"`
	Name    string    `json:"name" gorm:"type:varchar(100);not null"`
	Rows    int       `json:"rows" gorm:"not null"`
	Columns int       `json:"columns" gorm:"not null"`
	Seats   []Seat    `json:"seats,omitempty" gorm:"foreignKey:SectorID"`
}

// Seat position is display metadata only; occupancy is derived per show from tickets.
type Seat struct {
	ID       uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	SectorID uuid.UUID `json:"sector_id" gorm:"type:uuid;not null;uniqueIndex:ux_seat_position"`
	Row      int       `json:"row" gorm:"column:seat_row;not null;uniqueIndex:ux_seat_position"`
	Column   int       `json:"column" gorm:"column:seat_column;not null;uniqueIndex:ux_seat_position"`
}

// StandingSector is a capacity bounded area without individual seats. Its
// consumption is counted per show from live tickets and is not stored here.
type StandingSector struct {
	ID       uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	HallID   uuid.UUID `json:"hall_id" gorm:"type:uuid;not null;index"`
	Name     string    `json:"name" gorm:"type:varchar(100);not null"`
	Capacity int       `json:"capacity" gorm:"not null"`
}

// FindSector returns the seated sector with the given id.
func (h *Hall) FindSector(id uuid.UUID) (*Sector, bool) {
	for i := range h.Sectors {
		if h.Sectors[i].ID == id {
			return &h.Sectors[i], true
		}
	}
	return nil, false
}

// FindStandingSector returns the standing sector with the given id.
func (h *Hall) FindStandingSector(id uuid.UUID) (*StandingSector, bool) {
	for i := range h.StandingSectors {
		if h.StandingSectors[i].ID == id {
			return &h.StandingSectors[i], true
		}
	}
	return nil, false
}

// Event groups shows. SoldSeats mirrors the purchased tickets of all its shows.
type Event struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Name        string    `json:"name" gorm:"type:varchar(200);not null"`
	Description string    `json:"description" gorm:"type:text"`
	SoldSeats   int       `json:"sold_seats" gorm:"not null;default:0"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Show is one scheduled performance in a hall.
type Show struct {
	ID        uuid.UUID           `json:"id" gorm:"type:uuid;primaryKey"`
	EventID   *uuid.UUID          `json:"event_id,omitempty" gorm:"type:uuid;index"`
	HallID    uuid.UUID           `json:"hall_id" gorm:"type:uuid;not null;index"`
	Title     string              `json:"title" gorm:"type:varchar(200);not null"`
	StartsAt  time.Time           `json:"starts_at" gorm:"not null"`
	Capacity  int                 `json:"capacity" gorm:"not null"`
	SoldSeats int                 `json:"sold_seats" gorm:"not null;default:0"`
	Pricings  []ShowSectorPricing `json:"pricings" gorm:"foreignKey:ShowID"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// PricingForSector returns the pricing row covering a seated sector.
func (s *Show) PricingForSector(sectorID uuid.UUID) (*ShowSectorPricing, bool) {
	for i := range s.Pricings {
		p := &s.Pricings[i]
		if p.SectorID != nil && *p.SectorID == sectorID {
			return p, true
		}
	}
	return nil, false
}

// PricingForStanding returns the pricing row covering a standing sector.
func (s *Show) PricingForStanding(standingSectorID uuid.UUID) (*ShowSectorPricing, bool) {
	for i := range s.Pricings {
		p := &s.Pricings[i]
		if p.StandingSectorID != nil && *p.StandingSectorID == standingSectorID {
			return p, true
		}
	}
	return nil, false
}

// ShowSectorPricing binds a show to exactly one sector or standing sector.
type ShowSectorPricing struct {
	ID               uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	ShowID           uuid.UUID       `json:"show_id" gorm:"type:uuid;not null;index"`
	Position         int             `json:"position" gorm:"not null"`
	SectorID         *uuid.UUID      `json:"sector_id,omitempty" gorm:"type:uuid"`
	StandingSectorID *uuid.UUID      `json:"standing_sector_id,omitempty" gorm:"type:uuid"`
	Price            decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null"`
}

// Validate checks that the pricing targets exactly one kind of sector.
func (p *ShowSectorPricing) Validate() error {
	switch {
	case p.SectorID != nil && p.StandingSectorID != nil:
		return apperr.Validation("pricing %d sets both sector and standing sector", p.Position)
	case p.SectorID == nil && p.StandingSectorID == nil:
		return apperr.Validation("pricing %d sets neither sector nor standing sector", p.Position)
	case p.Price.IsNegative():
		return apperr.Validation("pricing %d has a negative price", p.Position)
	}
	return nil
}
