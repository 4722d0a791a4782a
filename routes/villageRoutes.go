package routes

import (
	"rural-voice-be/controllers"
	"rural-voice-be/middlewares"

	"github.com/gin-gonic/gin"
)

// VillageRoutes sets up the village routes
func VillageRoutes(r *gin.Engine, vc *controllers.VillageController) {
	villages := r.Group("/api/villages")
	{
		villages.POST("", middlewares.AuthMiddleware(), vc.CreateVillage)
		villages.GET("", vc.GetVillages)
	}
}
