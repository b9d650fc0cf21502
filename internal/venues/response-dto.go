package venues

import (
	"github.com/google/uuid"

	"boxoffice/internal/domain"
)

type HallResponse struct {
	ID              uuid.UUID                `json:"id"`
	VenueName       string                   `json:"venue_name"`
	Name            string                   `json:"name"`
	Capacity        int                      `json:"capacity"`
	Sectors         []SectorResponse         `json:"sectors"`
	StandingSectors []StandingSectorResponse `json:"standing_sectors"`
}

type SectorResponse struct {
	ID      uuid.UUID      `json:"id"`
	Name    string         `json:"name"`
	Rows    int            `json:"rows"`
	Columns int            `json:"columns"`
	Seats   []SeatResponse `json:"seats"`
}

type SeatResponse struct {
	ID     uuid.UUID `json:"id"`
	Row    int       `json:"row"`
	Column int       `json:"column"`
}

type StandingSectorResponse struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Capacity int       `json:"capacity"`
}

func ToHallResponse(h *domain.Hall) HallResponse {
	out := HallResponse{
		ID:              h.ID,
		VenueName:       h.VenueName,
		Name:            h.Name,
		Sectors:         make([]SectorResponse, len(h.Sectors)),
		StandingSectors: make([]StandingSectorResponse, len(h.StandingSectors)),
	}
	for i, sec := range h.Sectors {
		seats := make([]SeatResponse, len(sec.Seats))
		for j, seat := range sec.Seats {
			seats[j] = SeatResponse{ID: seat.ID, Row: seat.Row, Column: seat.Column}
		}
		out.Sectors[i] = SectorResponse{ID: sec.ID, Name: sec.Name, Rows: sec.Rows, Columns: sec.Columns, Seats: seats}
		out.Capacity += len(sec.Seats)
	}
	for i, ss := range h.StandingSectors {
		out.StandingSectors[i] = StandingSectorResponse{ID: ss.ID, Name: ss.Name, Capacity: ss.Capacity}
		out.Capacity += ss.Capacity
	}
	return out
}
