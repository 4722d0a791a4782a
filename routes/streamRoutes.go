package routes

import (
	"rural-voice-be/controllers"

	"github.com/gin-gonic/gin"
)

// StreamRoutes sets up the per-village event stream
func StreamRoutes(r *gin.Engine, sc *controllers.StreamController) {
	r.GET("/api/stream/:villageId", sc.Subscribe)
}
