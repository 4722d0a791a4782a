package routes

import (
	"rural-voice-be/controllers"
	"rural-voice-be/middlewares"

	"github.com/gin-gonic/gin"
)

// UserRoutes sets up the user routes
func UserRoutes(r *gin.Engine, uc *controllers.UserController) {
	users := r.Group("/api/users")
	{
		users.GET("/leaderboard", uc.GetLeaderboard)
		users.GET("/me", middlewares.AuthMiddleware(), uc.GetMe)
	}
}
