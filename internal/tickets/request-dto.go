package tickets

type StandingItem struct {
	StandingSectorID string `json:"standing_sector_id" binding:"required,uuid"`
	Count            int    `json:"count" binding:"required,min=1,max=20"`
}

type CreateTicketsRequest struct {
	ShowID     string         `json:"show_id" binding:"required,uuid"`
	Intent     string         `json:"intent" binding:"omitempty,oneof=cart reserve"`
	SeatIDs    []string       `json:"seat_ids" binding:"omitempty,max=20,dive,uuid"`
	Standing   []StandingItem `json:"standing" binding:"omitempty,max=20,dive"`
	SameSector bool           `json:"same_sector"`
}

type TicketIDsRequest struct {
	TicketIDs []string `json:"ticket_ids" binding:"required,min=1,max=50,dive,uuid"`
}
