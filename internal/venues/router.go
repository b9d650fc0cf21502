package venues

import "github.com/gin-gonic/gin"

// SetupVenueRoutes configures the public catalog routes.
func SetupVenueRoutes(rg *gin.RouterGroup, controller *Controller) {
	rg.GET("/halls/:id", controller.GetHall)                      // GET /api/v1/halls/:id
	rg.GET("/seats/:id", controller.GetSeat)                      // GET /api/v1/seats/:id
	rg.GET("/standing-sectors/:id", controller.GetStandingSector) // GET /api/v1/standing-sectors/:id
}
