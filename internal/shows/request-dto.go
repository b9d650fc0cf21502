package shows

import "time"

type CreateEventRequest struct {
	Name        string `json:"name" binding:"required,min=3,max=200"`
	Description string `json:"description" binding:"max=2000"`
}

type CreateShowRequest struct {
	EventID  string         `json:"event_id" binding:"omitempty,uuid"`
	HallID   string         `json:"hall_id" binding:"required,uuid"`
	Title    string         `json:"title" binding:"required,max=200"`
	StartsAt time.Time      `json:"starts_at" binding:"required"`
	Prices   []PriceRequest `json:"prices" binding:"required,min=1,max=64,dive"`
}

// PriceRequest carries the price as a string so that no amount passes
// through a float.
type PriceRequest struct {
	SectorID         string `json:"sector_id" binding:"omitempty,uuid"`
	StandingSectorID string `json:"standing_sector_id" binding:"omitempty,uuid"`
	Price            string `json:"price" binding:"required,numeric"`
}
