package routes

import (
	"rural-voice-be/controllers"
	"rural-voice-be/middlewares"

	"github.com/gin-gonic/gin"
)

// IssueRoutes sets up the issue routes
func IssueRoutes(r *gin.Engine, ic *controllers.IssueController) {
	issues := r.Group("/api/issues")
	{
		issues.POST("", middlewares.AuthMiddleware(), middlewares.IssueRateLimiter(10), ic.CreateIssue)
		issues.GET("", ic.GetAllIssues)
		issues.GET("/:id", ic.GetIssue)
		issues.PUT("/:id/status", middlewares.AuthMiddleware(), ic.UpdateStatus)
		issues.PUT("/:id/vote", middlewares.AuthMiddleware(), ic.VoteOnIssue)
		issues.PUT("/:id/assign", middlewares.AuthMiddleware(), ic.AssignIssue)
		issues.POST("/:id/progress", middlewares.AuthMiddleware(), ic.AddProgressUpdate)
		issues.POST("/:id/comments", middlewares.AuthMiddleware(), ic.AddComment)
		issues.POST("/:id/comments/:commentId/reply", middlewares.AuthMiddleware(), ic.ReplyToComment)
	}
}
