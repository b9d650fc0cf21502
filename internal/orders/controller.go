package orders

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"boxoffice/internal/documents"
	"boxoffice/internal/shared/middleware"
	"boxoffice/internal/shared/utils/response"
	"boxoffice/internal/tickets"
)

type Controller struct {
	service  Service
	renderer documents.Renderer
}

func NewController(service Service, renderer documents.Renderer) *Controller {
	return &Controller{service: service, renderer: renderer}
}

// Purchase handles POST /api/v1/orders/purchase
func (c *Controller) Purchase(ctx *gin.Context) {
	userID, ids, ok := tickets.BindTicketIDs(ctx)
	if !ok {
		return
	}
	order, err := c.service.Purchase(ctx.Request.Context(), userID, ids)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusCreated, "Order placed successfully", ToOrderResponse(order), nil)
}

// Cancel handles POST /api/v1/orders/cancel
func (c *Controller) Cancel(ctx *gin.Context) {
	userID, ids, ok := tickets.BindTicketIDs(ctx)
	if !ok {
		return
	}
	res, err := c.service.Cancel(ctx.Request.Context(), userID, ids)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Tickets cancelled successfully", CancelResponse{
		Order:   ToOrderResponse(res.Order),
		Invoice: ToInvoiceResponse(res.Invoice),
	}, nil)
}

// ListOrders handles GET /api/v1/orders
func (c *Controller) ListOrders(ctx *gin.Context) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		return
	}
	list, err := c.service.ListForUser(ctx.Request.Context(), userID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	out := make([]OrderResponse, len(list))
	for i := range list {
		out[i] = ToOrderResponse(&list[i])
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Orders retrieved successfully", out, nil)
}

// GetOrder handles GET /api/v1/orders/:id
func (c *Controller) GetOrder(ctx *gin.Context) {
	userID, orderID, ok := orderParam(ctx)
	if !ok {
		return
	}
	order, err := c.service.Get(ctx.Request.Context(), userID, orderID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Order retrieved successfully", ToOrderResponse(order), nil)
}

// ListInvoices handles GET /api/v1/orders/:id/invoices
func (c *Controller) ListInvoices(ctx *gin.Context) {
	userID, orderID, ok := orderParam(ctx)
	if !ok {
		return
	}
	list, err := c.service.ListInvoices(ctx.Request.Context(), userID, orderID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	out := make([]InvoiceResponse, len(list))
	for i := range list {
		out[i] = ToInvoiceResponse(&list[i])
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Invoices retrieved successfully", out, nil)
}

// GetInvoiceDocument handles GET /api/v1/orders/:id/invoices/:invoiceId/document
func (c *Controller) GetInvoiceDocument(ctx *gin.Context) {
	userID, orderID, ok := orderParam(ctx)
	if !ok {
		return
	}
	invoiceID, err := uuid.Parse(ctx.Param("invoiceId"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid invoice ID", nil, nil)
		return
	}
	inv, order, err := c.service.GetInvoice(ctx.Request.Context(), userID, orderID, invoiceID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	body, err := c.renderer.Render(ctx.Request.Context(), documents.NewInvoiceDocument(inv, order))
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	ctx.Data(http.StatusOK, c.renderer.ContentType(), body)
}

func orderParam(ctx *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	orderID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid order ID", nil, nil)
		return uuid.Nil, uuid.Nil, false
	}
	return userID, orderID, true
}
