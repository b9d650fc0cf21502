package orders

import (
	"github.com/gin-gonic/gin"

	"boxoffice/internal/shared/middleware"
)

// SetupOrderRoutes configures all order-related routes. limit guards the
// endpoints that move money.
func SetupOrderRoutes(rg *gin.RouterGroup, controller *Controller, auth, limit gin.HandlerFunc) {
	orders := rg.Group("/orders")
	orders.Use(auth, middleware.RequireRoles(middleware.RoleUser, middleware.RoleAdmin))
	{
		orders.POST("/purchase", limit, controller.Purchase)                           // POST /api/v1/orders/purchase
		orders.POST("/cancel", limit, controller.Cancel)                               // POST /api/v1/orders/cancel
		orders.GET("", controller.ListOrders)                                          // GET /api/v1/orders
		orders.GET("/:id", controller.GetOrder)                                        // GET /api/v1/orders/:id
		orders.GET("/:id/invoices", controller.ListInvoices)                           // GET /api/v1/orders/:id/invoices
		orders.GET("/:id/invoices/:invoiceId/document", controller.GetInvoiceDocument) // GET /api/v1/orders/:id/invoices/:invoiceId/document
	}
}
