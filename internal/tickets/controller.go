package tickets

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"boxoffice/internal/documents"
	"boxoffice/internal/domain"
	"boxoffice/internal/shared/middleware"
	"boxoffice/internal/shared/utils/response"
)

type Controller struct {
	service  Service
	renderer documents.Renderer
}

func NewController(service Service, renderer documents.Renderer) *Controller {
	return &Controller{service: service, renderer: renderer}
}

// CreateTickets handles POST /api/v1/tickets
func (c *Controller) CreateTickets(ctx *gin.Context) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		return
	}

	var req CreateTicketsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	in := CreateTicketsInput{
		ShowID:     uuid.MustParse(req.ShowID),
		UserID:     userID,
		Intent:     domain.IntentCart,
		SameSector: req.SameSector,
	}
	if req.Intent != "" {
		in.Intent = domain.Intent(req.Intent)
	}
	for _, id := range req.SeatIDs {
		in.SeatIDs = append(in.SeatIDs, uuid.MustParse(id))
	}
	for _, s := range req.Standing {
		in.Standing = append(in.Standing, StandingRequest{
			StandingSectorID: uuid.MustParse(s.StandingSectorID),
			Count:            s.Count,
		})
	}

	created, err := c.service.Create(ctx.Request.Context(), in)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusCreated, "Tickets created successfully", ToTicketResponses(created), nil)
}

// ReserveTickets handles POST /api/v1/tickets/reserve
func (c *Controller) ReserveTickets(ctx *gin.Context) {
	userID, ids, ok := BindTicketIDs(ctx)
	if !ok {
		return
	}
	reserved, err := c.service.Reserve(ctx.Request.Context(), userID, ids)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Tickets reserved successfully", ToTicketResponses(reserved), nil)
}

// RemoveTickets handles POST /api/v1/tickets/remove
func (c *Controller) RemoveTickets(ctx *gin.Context) {
	userID, ids, ok := BindTicketIDs(ctx)
	if !ok {
		return
	}
	if err := c.service.Remove(ctx.Request.Context(), userID, ids); err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Tickets removed successfully", nil, nil)
}

// ListTickets handles GET /api/v1/tickets?state=PURCHASED
func (c *Controller) ListTickets(ctx *gin.Context) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		return
	}
	state := domain.TicketState(strings.ToUpper(ctx.Query("state")))
	list, err := c.service.ListForUser(ctx.Request.Context(), userID, state)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Tickets retrieved successfully", ToTicketResponses(list), nil)
}

// GetTicket handles GET /api/v1/tickets/:id
func (c *Controller) GetTicket(ctx *gin.Context) {
	userID, ticketID, ok := ticketParam(ctx)
	if !ok {
		return
	}
	t, err := c.service.Get(ctx.Request.Context(), userID, ticketID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Ticket retrieved successfully", ToTicketResponse(t), nil)
}

// GetTicketPass handles GET /api/v1/tickets/:id/pass
func (c *Controller) GetTicketPass(ctx *gin.Context) {
	userID, ticketID, ok := ticketParam(ctx)
	if !ok {
		return
	}
	t, orderRef, err := c.service.Pass(ctx.Request.Context(), userID, ticketID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	body, err := c.renderer.Render(ctx.Request.Context(), documents.NewTicketDocument(t, orderRef))
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	ctx.Data(http.StatusOK, c.renderer.ContentType(), body)
}

func ticketParam(ctx *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	ticketID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid ticket ID", nil, nil)
		return uuid.Nil, uuid.Nil, false
	}
	return userID, ticketID, true
}

// BindTicketIDs reads the caller and a TicketIDsRequest body. On failure the
// response has been written.
func BindTicketIDs(ctx *gin.Context) (uuid.UUID, []uuid.UUID, bool) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		return uuid.Nil, nil, false
	}
	var req TicketIDsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return uuid.Nil, nil, false
	}
	ids := make([]uuid.UUID, len(req.TicketIDs))
	for i, s := range req.TicketIDs {
		ids[i] = uuid.MustParse(s)
	}
	return userID, ids, true
}
