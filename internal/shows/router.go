package shows

import (
	"github.com/gin-gonic/gin"

	"boxoffice/internal/shared/middleware"
)

// SetupShowRoutes configures the public browsing routes and the admin
// management routes. auth must verify the caller.
func SetupShowRoutes(rg *gin.RouterGroup, controller *Controller, auth gin.HandlerFunc) {
	rg.GET("/events/:id", controller.GetEvent)                    // GET /api/v1/events/:id
	rg.GET("/shows/:id", controller.GetShow)                      // GET /api/v1/shows/:id
	rg.GET("/shows/:id/availability", controller.GetAvailability) // GET /api/v1/shows/:id/availability

	admin := rg.Group("/admin")
	admin.Use(auth, middleware.RequireAdmin())
	{
		admin.POST("/events", controller.CreateEvent)     // POST /api/v1/admin/events
		admin.POST("/shows", controller.CreateShow)       // POST /api/v1/admin/shows
		admin.DELETE("/shows/:id", controller.DeleteShow) // DELETE /api/v1/admin/shows/:id
	}
}
