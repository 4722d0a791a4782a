package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"rural-voice-be/apperr"
	"rural-voice-be/models"
	"rural-voice-be/services"
)

// respondError maps an error kind to its HTTP status. The one place
// that knows the mapping; handlers just forward engine errors here.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindUnauthorized:
		status = http.StatusForbidden
	case apperr.KindConflict:
		status = http.StatusConflict
	case apperr.KindDependency:
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// actorFromContext builds the engine actor from the auth middleware's
// claims. A missing role defaults to Villager.
func actorFromContext(c *gin.Context) (services.Actor, bool) {
	userIDVal, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return services.Actor{}, false
	}
	userIDHex, ok := userIDVal.(string)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return services.Actor{}, false
	}
	userID, err := primitive.ObjectIDFromHex(userIDHex)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return services.Actor{}, false
	}

	actor := services.Actor{ID: userID, Role: models.Villager}
	if roleVal, ok := c.Get("role"); ok {
		if role, ok := roleVal.(string); ok && role != "" {
			actor.Role = models.UserRole(role)
		}
	}
	if villageVal, ok := c.Get("village"); ok {
		if villageHex, ok := villageVal.(string); ok && villageHex != "" {
			if villageID, err := primitive.ObjectIDFromHex(villageHex); err == nil {
				actor.Village = &villageID
			}
		}
	}
	return actor, true
}
