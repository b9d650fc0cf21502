package tickets

import (
	"github.com/gin-gonic/gin"

	"boxoffice/internal/shared/middleware"
)

// SetupTicketRoutes configures all ticket-related routes. auth must verify
// the caller; limit guards the allocating endpoints.
func SetupTicketRoutes(rg *gin.RouterGroup, controller *Controller, auth, limit gin.HandlerFunc) {
	tickets := rg.Group("/tickets")
	tickets.Use(auth, middleware.RequireRoles(middleware.RoleUser, middleware.RoleAdmin))
	{
		tickets.POST("", limit, controller.CreateTickets)          // POST /api/v1/tickets
		tickets.POST("/reserve", limit, controller.ReserveTickets) // POST /api/v1/tickets/reserve
		tickets.POST("/remove", controller.RemoveTickets)          // POST /api/v1/tickets/remove
		tickets.GET("", controller.ListTickets)                    // GET /api/v1/tickets?state=
		tickets.GET("/:id", controller.GetTicket)                  // GET /api/v1/tickets/:id
		tickets.GET("/:id/pass", controller.GetTicketPass)         // GET /api/v1/tickets/:id/pass
	}
}
