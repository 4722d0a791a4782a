package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"rural-voice-be/models"
	"rural-voice-be/store"
)

// UserController serves the gamification reads.
type UserController struct {
	users store.UserStore
}

func NewUserController(users store.UserStore) *UserController {
	return &UserController{users: users}
}

// GetLeaderboard returns the top users by points, optionally scoped to
// one village
func (uc *UserController) GetLeaderboard(c *gin.Context) {
	var village *primitive.ObjectID
	if villageHex := c.Query("village"); villageHex != "" {
		villageID, err := primitive.ObjectIDFromHex(villageHex)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid village ID"})
			return
		}
		village = &villageID
	}

	users, err := uc.users.TopByPoints(c.Request.Context(), village, 10)
	if err != nil {
		respondError(c, err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	c.JSON(http.StatusOK, users)
}

// GetMe retrieves the authenticated user's profile, points, and badges
func (uc *UserController) GetMe(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	user, err := uc.users.Get(c.Request.Context(), actor.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
