package venues

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

// GetHall handles GET /api/v1/halls/:id
func (c *Controller) GetHall(ctx *gin.Context) {
	id, ok := idParam(ctx, "Invalid hall ID")
	if !ok {
		return
	}
	hall, err := c.service.GetHall(ctx.Request.Context(), id)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Hall retrieved successfully", ToHallResponse(hall), nil)
}

// GetSeat handles GET /api/v1/seats/:id
func (c *Controller) GetSeat(ctx *gin.Context) {
	id, ok := idParam(ctx, "Invalid seat ID")
	if !ok {
		return
	}
	seat, err := c.service.GetSeat(ctx.Request.Context(), id)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Seat retrieved successfully", seat, nil)
}

// GetStandingSector handles GET /api/v1/standing-sectors/:id
func (c *Controller) GetStandingSector(ctx *gin.Context) {
	id, ok := idParam(ctx, "Invalid standing sector ID")
	if !ok {
		return
	}
	ss, err := c.service.GetStandingSector(ctx.Request.Context(), id)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Standing sector retrieved successfully", ss, nil)
}

func idParam(ctx *gin.Context, msg string) (uuid.UUID, bool) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, msg, nil, nil)
		return uuid.Nil, false
	}
	return id, true
}
