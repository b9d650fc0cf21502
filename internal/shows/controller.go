package shows

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"boxoffice/internal/shared/utils/response"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// CreateEvent handles POST /api/v1/admin/events
func (c *Controller) CreateEvent(ctx *gin.Context) {
	var req CreateEventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}
	event, err := c.service.CreateEvent(ctx.Request.Context(), CreateEventInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusCreated, "Event created successfully", ToEventResponse(event), nil)
}

// GetEvent handles GET /api/v1/events/:id
func (c *Controller) GetEvent(ctx *gin.Context) {
	id, ok := idParam(ctx, "Invalid event ID")
	if !ok {
		return
	}
	event, err := c.service.GetEvent(ctx.Request.Context(), id)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Event retrieved successfully", ToEventResponse(event), nil)
}

// CreateShow handles POST /api/v1/admin/shows
func (c *Controller) CreateShow(ctx *gin.Context) {
	var req CreateShowRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	in := CreateShowInput{
		HallID:   uuid.MustParse(req.HallID),
		Title:    req.Title,
		StartsAt: req.StartsAt,
		Prices:   make([]PriceInput, len(req.Prices)),
	}
	if req.EventID != "" {
		id := uuid.MustParse(req.EventID)
		in.EventID = &id
	}
	for i, p := range req.Prices {
		in.Prices[i] = PriceInput{
			SectorID:         optionalID(p.SectorID),
			StandingSectorID: optionalID(p.StandingSectorID),
			Price:            p.Price,
		}
	}

	show, err := c.service.CreateShow(ctx.Request.Context(), in)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusCreated, "Show created successfully", ToShowResponse(show), nil)
}

// GetShow handles GET /api/v1/shows/:id
func (c *Controller) GetShow(ctx *gin.Context) {
	id, ok := idParam(ctx, "Invalid show ID")
	if !ok {
		return
	}
	show, err := c.service.GetShow(ctx.Request.Context(), id)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Show retrieved successfully", ToShowResponse(show), nil)
}

// DeleteShow handles DELETE /api/v1/admin/shows/:id
func (c *Controller) DeleteShow(ctx *gin.Context) {
	id, ok := idParam(ctx, "Invalid show ID")
	if !ok {
		return
	}
	if err := c.service.DeleteShow(ctx.Request.Context(), id); err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Show deleted successfully", nil, nil)
}

// GetAvailability handles GET /api/v1/shows/:id/availability
func (c *Controller) GetAvailability(ctx *gin.Context) {
	id, ok := idParam(ctx, "Invalid show ID")
	if !ok {
		return
	}
	a, err := c.service.Availability(ctx.Request.Context(), id)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Availability retrieved successfully", a, nil)
}

func idParam(ctx *gin.Context, msg string) (uuid.UUID, bool) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, msg, nil, nil)
		return uuid.Nil, false
	}
	return id, true
}

func optionalID(s string) *uuid.UUID {
	if s == "" {
		return nil
	}
	id := uuid.MustParse(s)
	return &id
}
